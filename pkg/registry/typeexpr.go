package registry

import (
	"fmt"
	"strings"

	"github.com/mesonlint/mesonlint/pkg/types"
)

// typeParser reads the compact type notation used in builtins.yaml:
//
//	union := term ('|' term)*
//	term  := name | ('list' | 'dict') '(' union? ')'
type typeParser struct {
	src    string
	pos    int
	lookup func(string) (types.Type, bool)
}

func parseTypeExpr(src string, lookup func(string) (types.Type, bool)) (types.Set, error) {
	p := &typeParser{src: strings.TrimSpace(src), lookup: lookup}
	if p.src == "" || p.src == "void" {
		return nil, nil
	}
	set, err := p.union()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d in %q", p.src[p.pos:], p.pos, p.src)
	}
	return types.Dedup(set), nil
}

func (p *typeParser) union() (types.Set, error) {
	var out types.Set
	for {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.pos < len(p.src) && p.src[p.pos] == '|' {
			p.pos++
			continue
		}
		return out, nil
	}
}

func (p *typeParser) term() (types.Type, error) {
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return types.Type{}, fmt.Errorf("expected type name at offset %d in %q", start, p.src)
	}
	if p.pos < len(p.src) && p.src[p.pos] == '(' {
		if name != "list" && name != "dict" {
			return types.Type{}, fmt.Errorf("type %s takes no parameters in %q", name, p.src)
		}
		p.pos++
		var elems types.Set
		if p.pos < len(p.src) && p.src[p.pos] != ')' {
			var err error
			if elems, err = p.union(); err != nil {
				return types.Type{}, err
			}
		}
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return types.Type{}, fmt.Errorf("missing ')' in %q", p.src)
		}
		p.pos++
		if name == "list" {
			return types.List(elems...), nil
		}
		return types.Dict(elems...), nil
	}
	t, ok := p.lookup(name)
	if !ok {
		return types.Type{}, fmt.Errorf("unknown type %q in %q", name, p.src)
	}
	return t, nil
}

func isNameByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

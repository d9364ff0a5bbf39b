package registry

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mesonlint/mesonlint/pkg/types"
)

//go:embed builtins.yaml
var builtinData []byte

type document struct {
	Types            []typeDoc            `yaml:"types" validate:"dive"`
	Globals          map[string]string    `yaml:"globals"`
	Functions        []funcDoc            `yaml:"functions" validate:"dive"`
	Methods          map[string][]funcDoc `yaml:"methods" validate:"dive,dive"`
	Deprecations     []deprecationDoc     `yaml:"deprecations" validate:"dive"`
	Options          []Option             `yaml:"options" validate:"dive"`
	PureFunctions    []string             `yaml:"pure_functions"`
	PureMethods      []string             `yaml:"pure_methods"`
	CompilerIDs      []string             `yaml:"compiler_ids"`
	ArgumentSyntaxes []string             `yaml:"argument_syntaxes"`
	LinkerIDs        []string             `yaml:"linker_ids"`
	CPUFamilies      []string             `yaml:"cpu_families"`
	OSNames          []string             `yaml:"os_names"`
}

type typeDoc struct {
	Name   string `yaml:"name" validate:"required"`
	Parent string `yaml:"parent"`
}

type funcDoc struct {
	Name    string            `yaml:"name" validate:"required"`
	Args    []string          `yaml:"args"`
	Kwargs  map[string]string `yaml:"kwargs"`
	Returns string            `yaml:"returns"`
}

type deprecationDoc struct {
	Name  string   `yaml:"name" validate:"required"`
	Since string   `yaml:"since" validate:"required"`
	Use   []string `yaml:"use"`
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the registry built from the embedded builtin data. It is
// loaded once per process.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(builtinData)
	})
	return defaultReg, defaultErr
}

// LoadFile reads a registry from a YAML file in the builtins.yaml format.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML data.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry YAML: %w", err)
	}
	if err := validator.New().Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}

	r := &Registry{
		types:        make(map[string]types.Type),
		globals:      make(map[string]types.Set),
		functions:    make(map[string]*Function),
		methods:      make(map[string]map[string]*Function),
		deprecations: make(map[string]Deprecation),
		options:      make(map[string]Option),
		names:        make(map[NameSet]map[string]bool),
	}

	for _, td := range doc.Types {
		if _, exists := r.Type(td.Name); exists {
			return nil, fmt.Errorf("type %s: defined twice", td.Name)
		}
		var parent *types.Type
		if td.Parent != "" {
			p, ok := r.types[td.Parent]
			if !ok {
				return nil, fmt.Errorf("type %s: parent %s must be defined first", td.Name, td.Parent)
			}
			parent = &p
		}
		r.types[td.Name] = types.Object(td.Name, parent)
	}

	for name, expr := range doc.Globals {
		set, err := parseTypeExpr(expr, r.Type)
		if err != nil {
			return nil, fmt.Errorf("global %s: %w", name, err)
		}
		r.globals[name] = set
	}

	for _, fd := range doc.Functions {
		f, err := r.buildFunction(fd, "")
		if err != nil {
			return nil, err
		}
		if _, dup := r.functions[f.Name]; dup {
			return nil, fmt.Errorf("function %s: defined twice", f.Name)
		}
		r.functions[f.Name] = f
	}

	for recv, fds := range doc.Methods {
		if _, ok := r.Type(recv); !ok {
			return nil, fmt.Errorf("methods for unknown type %s", recv)
		}
		table := make(map[string]*Function, len(fds))
		for _, fd := range fds {
			m, err := r.buildFunction(fd, recv)
			if err != nil {
				return nil, err
			}
			if _, dup := table[m.Name]; dup {
				return nil, fmt.Errorf("method %s: defined twice", m.ID())
			}
			table[m.Name] = m
		}
		r.methods[recv] = table
	}

	for _, dd := range doc.Deprecations {
		v, err := semver.NewVersion(dd.Since)
		if err != nil {
			return nil, fmt.Errorf("deprecation %s: invalid version %q: %w", dd.Name, dd.Since, err)
		}
		r.deprecations[dd.Name] = Deprecation{Name: dd.Name, Since: v, Alternatives: dd.Use}
	}

	for _, o := range doc.Options {
		r.options[o.Name] = o
	}

	for set, values := range map[NameSet][]string{
		PureFunctions:    doc.PureFunctions,
		PureMethods:      doc.PureMethods,
		CompilerIDs:      doc.CompilerIDs,
		ArgumentSyntaxes: doc.ArgumentSyntaxes,
		LinkerIDs:        doc.LinkerIDs,
		CPUFamilies:      doc.CPUFamilies,
		OSNames:          doc.OSNames,
	} {
		m := make(map[string]bool, len(values))
		for _, v := range values {
			m[v] = true
		}
		r.names[set] = m
	}
	return r, nil
}

func (r *Registry) buildFunction(fd funcDoc, receiver string) (*Function, error) {
	f := &Function{
		Name:     fd.Name,
		Receiver: receiver,
		Kwargs:   make(map[string]Kwarg, len(fd.Kwargs)),
	}
	for i, arg := range fd.Args {
		var p Param
		switch {
		case strings.HasSuffix(arg, "..."):
			p.Varargs = true
			arg = strings.TrimSuffix(arg, "...")
		case strings.HasSuffix(arg, "?"):
			p.Optional = true
			arg = strings.TrimSuffix(arg, "?")
		}
		if p.Varargs && i != len(fd.Args)-1 {
			return nil, fmt.Errorf("%s: only the last parameter may be variadic", f.ID())
		}
		set, err := parseTypeExpr(arg, r.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %d: %w", f.ID(), i, err)
		}
		p.Types = set
		f.Params = append(f.Params, p)
	}
	for name, expr := range fd.Kwargs {
		var kw Kwarg
		if strings.HasSuffix(expr, "!") {
			kw.Required = true
			expr = strings.TrimSuffix(expr, "!")
		}
		set, err := parseTypeExpr(expr, r.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: keyword %s: %w", f.ID(), name, err)
		}
		kw.Types = set
		f.Kwargs[name] = kw
	}
	ret, err := parseTypeExpr(fd.Returns, r.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: return type: %w", f.ID(), err)
	}
	f.Returns = ret
	return f, nil
}

// Package editor converts lint diagnostics into Language Server Protocol
// diagnostics for editor front ends.
package editor

import (
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/diagnostics"
)

// Source is reported as the origin of every diagnostic.
const Source = "mesonlint"

// ToProtocol groups diags by document. Relative file paths are resolved
// against dir. Every document keeps the input order of its diagnostics.
func ToProtocol(dir string, diags []diagnostics.Diagnostic) map[uri.URI][]protocol.Diagnostic {
	out := make(map[uri.URI][]protocol.Diagnostic)
	for _, d := range diags {
		u := DocumentURI(dir, d.File)
		out[u] = append(out[u], Convert(d))
	}
	return out
}

// DocumentURI returns the file URI of a build file.
func DocumentURI(dir, file string) uri.URI {
	p := filepath.FromSlash(file)
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return uri.File(p)
}

// Convert maps a single diagnostic.
func Convert(d diagnostics.Diagnostic) protocol.Diagnostic {
	pd := protocol.Diagnostic{
		Range:    toRange(d.Range),
		Severity: protocol.DiagnosticSeverityWarning,
		Source:   Source,
		Message:  d.Message,
	}
	if d.Severity == diagnostics.SeverityError {
		pd.Severity = protocol.DiagnosticSeverityError
	}
	if tag, ok := tagOf(d.Message); ok {
		pd.Tags = []protocol.DiagnosticTag{tag}
	}
	return pd
}

func toRange(r ast.Range) protocol.Range {
	return protocol.Range{
		Start: toPosition(r.Start),
		End:   toPosition(r.End),
	}
}

func toPosition(p ast.Position) protocol.Position {
	return protocol.Position{Line: clamp(p.Line), Character: clamp(p.Column)}
}

func clamp(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// tagOf lets editors fade unused code and strike through deprecated calls.
func tagOf(msg string) (protocol.DiagnosticTag, bool) {
	switch {
	case msg == "dead code", msg == "unused assignment":
		return protocol.DiagnosticTagUnnecessary, true
	case strings.Contains(msg, " is deprecated"):
		return protocol.DiagnosticTagDeprecated, true
	}
	return 0, false
}

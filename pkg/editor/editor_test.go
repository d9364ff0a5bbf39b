package editor

import (
	"path/filepath"
	"testing"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/diagnostics"
)

func TestToProtocol(t *testing.T) {
	dir := t.TempDir()
	diags := []diagnostics.Diagnostic{
		{
			Severity: diagnostics.SeverityError,
			File:     "meson.build",
			Range:    ast.Range{Start: ast.Position{Line: 2, Column: 4}, End: ast.Position{Line: 2, Column: 11}},
			Message:  "unknown identifier `missing`",
		},
		{Severity: diagnostics.SeverityWarning, File: "src/meson.build", Message: "unused assignment"},
		{Severity: diagnostics.SeverityWarning, File: "meson.build", Message: "dead code"},
	}

	got := ToProtocol(dir, diags)
	if len(got) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(got))
	}

	root := uri.File(filepath.Join(dir, "meson.build"))
	rootDiags := got[root]
	if len(rootDiags) != 2 {
		t.Fatalf("expected 2 diagnostics for %s, got %d", root, len(rootDiags))
	}
	first := rootDiags[0]
	if first.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("expected error severity, got %v", first.Severity)
	}
	if first.Source != Source {
		t.Errorf("expected source %s, got %s", Source, first.Source)
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 2, Character: 4},
		End:   protocol.Position{Line: 2, Character: 11},
	}
	if first.Range != want {
		t.Errorf("expected range %+v, got %+v", want, first.Range)
	}
	if len(first.Tags) != 0 {
		t.Errorf("expected no tags, got %v", first.Tags)
	}
	if tags := rootDiags[1].Tags; len(tags) != 1 || tags[0] != protocol.DiagnosticTagUnnecessary {
		t.Errorf("expected dead code to be tagged unnecessary, got %v", tags)
	}

	src := uri.File(filepath.Join(dir, "src", "meson.build"))
	if len(got[src]) != 1 || got[src][0].Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("expected one warning for %s, got %+v", src, got[src])
	}
}

func TestConvert_Tags(t *testing.T) {
	tests := []struct {
		msg  string
		want []protocol.DiagnosticTag
	}{
		{"unused assignment", []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary}},
		{"dead code", []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary}},
		{"option `x` is deprecated", []protocol.DiagnosticTag{protocol.DiagnosticTagDeprecated}},
		{"keyword build_always is deprecated. Use one of these: build_by_default", []protocol.DiagnosticTag{protocol.DiagnosticTagDeprecated}},
		{"unknown function `frobnicate`", nil},
	}
	for _, tt := range tests {
		got := Convert(diagnostics.Diagnostic{Severity: diagnostics.SeverityWarning, Message: tt.msg}).Tags
		if len(got) != len(tt.want) || (len(got) == 1 && got[0] != tt.want[0]) {
			t.Errorf("%q: expected tags %v, got %v", tt.msg, tt.want, got)
		}
	}
}

func TestDocumentURI_Absolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "meson.build")
	if got := DocumentURI("/elsewhere", abs); got != uri.File(abs) {
		t.Errorf("expected %s, got %s", uri.File(abs), got)
	}
}

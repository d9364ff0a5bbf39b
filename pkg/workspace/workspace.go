// Package workspace loads workspace manifests: the list of tree dumps that
// make up a project, its declared options and its subprojects.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/registry"
	"github.com/mesonlint/mesonlint/pkg/subprojects"
)

// DefaultRoot is the path of the root build file when the manifest omits it.
const DefaultRoot = "meson.build"

// Manifest is the on-disk form of a workspace.
type Manifest struct {
	Name        string            `yaml:"name" json:"name"`
	Root        string            `yaml:"root" json:"root"`
	Files       []string          `yaml:"files" json:"files" validate:"required,min=1,dive,required"`
	Options     []registry.Option `yaml:"options" json:"options" validate:"dive"`
	Subprojects []SubprojectDecl  `yaml:"subprojects" json:"subprojects" validate:"dive"`
}

// SubprojectDecl declares one subproject. A declaration without files is a
// subproject whose sources are not available.
type SubprojectDecl struct {
	Name     string            `yaml:"name" json:"name" validate:"required"`
	Root     string            `yaml:"root" json:"root"`
	Files    []string          `yaml:"files" json:"files" validate:"dive,required"`
	Options  []registry.Option `yaml:"options" json:"options" validate:"dive"`
	Provides []string          `yaml:"provides" json:"provides"`
}

// Workspace is a loaded manifest.
type Workspace struct {
	Name string
	// Path is the manifest file, empty when parsed from memory.
	Path string
	// Dir is the directory dump paths are resolved against.
	Dir         string
	Tree        *ast.Tree
	Options     []registry.Option
	Subprojects []subprojects.Spec
	// Sources lists every dump file read, for watching.
	Sources []string
}

var manifestValidator = validator.New()

// Load reads the manifest at path. Dump paths are relative to its directory.
func Load(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace manifest: %w", err)
	}
	ws, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ws.Path = path
	return ws, nil
}

// Parse decodes a manifest and reads the dumps it lists from dir.
func Parse(data []byte, dir string) (*Workspace, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse workspace manifest: %w", err)
	}
	if err := manifestValidator.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid workspace manifest: %w", err)
	}

	ws := &Workspace{Name: m.Name, Dir: dir, Options: m.Options}
	tree, err := ws.readTree(m.Root, m.Files)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("root file %s is not among the workspace files", rootOf(m.Root))
	}
	ws.Tree = tree

	for _, decl := range m.Subprojects {
		spec := subprojects.Spec{Name: decl.Name, Options: decl.Options, Provides: decl.Provides}
		if len(decl.Files) > 0 {
			t, err := ws.readTree(decl.Root, decl.Files)
			if err != nil {
				return nil, fmt.Errorf("subproject %s: %w", decl.Name, err)
			}
			spec.Tree = t
		}
		ws.Subprojects = append(ws.Subprojects, spec)
	}
	return ws, nil
}

func rootOf(root string) string {
	if root == "" {
		return DefaultRoot
	}
	return filepath.ToSlash(filepath.Clean(root))
}

// readTree decodes files and returns nil when none of them is the root.
func (ws *Workspace) readTree(root string, files []string) (*ast.Tree, error) {
	var (
		rootFile *ast.SourceFile
		others   []*ast.SourceFile
		want     = rootOf(root)
	)
	for _, f := range files {
		p := f
		if !filepath.IsAbs(p) {
			p = filepath.Join(ws.Dir, p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read tree dump: %w", err)
		}
		sf, err := ast.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		ws.Sources = append(ws.Sources, p)
		if rootFile == nil && filepath.ToSlash(filepath.Clean(sf.Path)) == want {
			rootFile = sf
			continue
		}
		others = append(others, sf)
	}
	if rootFile == nil {
		return nil, nil
	}
	return ast.NewTree(rootFile, others...), nil
}

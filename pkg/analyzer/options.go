package analyzer

import (
	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/registry"
	"github.com/mesonlint/mesonlint/pkg/types"
)

// AnalysisOptions toggles lint categories. The zero value enables all lints.
type AnalysisOptions struct {
	DisableNameLinting               bool `yaml:"disable_name_linting" json:"disable_name_linting"`
	DisableAllIDLinting              bool `yaml:"disable_all_id_linting" json:"disable_all_id_linting"`
	DisableCompilerIDLinting         bool `yaml:"disable_compiler_id_linting" json:"disable_compiler_id_linting"`
	DisableCompilerArgumentIDLinting bool `yaml:"disable_compiler_argument_id_linting" json:"disable_compiler_argument_id_linting"`
	DisableLinkerIDLinting           bool `yaml:"disable_linker_id_linting" json:"disable_linker_id_linting"`
	DisableCPUFamilyLinting          bool `yaml:"disable_cpu_family_linting" json:"disable_cpu_family_linting"`
	DisableOSFamilyLinting           bool `yaml:"disable_os_family_linting" json:"disable_os_family_linting"`
}

// SubprojectSource exposes already resolved subprojects. Implementations
// must be safe for concurrent reads.
type SubprojectSource interface {
	// Names returns the known subproject names, sorted.
	Names() []string
	// Variables returns the root scope bindings of a subproject. ok is false
	// when the subproject has no analyzed tree.
	Variables(name string) (vars map[string]types.Set, ok bool)
}

// Input is everything one analysis run reads.
type Input struct {
	Tree *ast.Tree
	// Options are the declared project options. When nil, get_option()
	// names are not validated.
	Options     []registry.Option
	Analysis    AnalysisOptions
	Subprojects SubprojectSource
	// Provides lists the variable names the analyzed project exports as
	// dependencies; they are never reported as unused.
	Provides []string
}

package asset

import "github.com/bernharduw/parcel/internal/ast"

// Env is the minimal environment descriptor the hoister consults: only
// whether the target runtime is Node, which gates the `module.require`
// rewrite in the CommonJS pass.
type Env struct {
	Node bool
}

func (e Env) IsNode() bool { return e.Node }

// Asset is the module being transformed: its identity, its source path,
// its mutable metadata and symbol table, its declared dependencies, and
// the syntax tree itself. The caller creates it, hoist.Hoist mutates it in
// place, and the caller is responsible for whatever happens to it next
// (bundling, tree-shaking, emission -- all out of scope here).
type Asset struct {
	ID       string
	FilePath string

	// IsSource is false for third-party/vendored code. The import
	// rewriter uses it to decide whether an unreferenced specifier can be
	// silently dropped.
	IsSource bool

	Env  Env
	Meta Meta

	Symbols *SymbolTable

	dependencies []*Dependency

	Tree *ast.Tree
}

func NewAsset(id, filePath string, tree *ast.Tree) *Asset {
	return &Asset{
		ID:       id,
		FilePath: filePath,
		IsSource: true,
		Meta:     Meta{},
		Tree:     tree,
	}
}

func (a *Asset) EnsureSymbols() *SymbolTable {
	if a.Symbols == nil {
		a.Symbols = NewSymbolTable()
	}
	return a.Symbols
}

func (a *Asset) AddDependency(dep *Dependency) {
	a.dependencies = append(a.dependencies, dep)
}

func (a *Asset) GetDependencies() []*Dependency {
	return a.dependencies
}

// DependencyBySpecifier looks up a previously-declared dependency by its
// original module specifier text. Returns nil if none was declared. The
// hoister leaves a require()/import() call with no dependency untouched,
// but raises DependencyInvariantViolation for an import or re-export.
func (a *Asset) DependencyBySpecifier(specifier string) *Dependency {
	for _, dep := range a.dependencies {
		if dep.ModuleSpecifier == specifier {
			return dep
		}
	}
	return nil
}

// Package ast defines the module-local syntax tree that the hoisting pass
// operates on. It deliberately covers only the node shapes the hoister
// needs to recognize: imports, exports, CommonJS member access, and the
// handful of binding forms those constructs can appear in. A real front end
// (a parser or, in this repo, the tree-sitter bridge) is expected to build
// one of these per source file before handing it to the hoister.
package ast

// Version is the AST shape this package understands. hoist.Hoist rejects
// any Tree whose Version doesn't match this exactly, the same way a linker
// would refuse to process a bytecode format it doesn't recognize.
const Version = "hoist-ast-v1"

// Loc is a byte offset into the original source. LocNone means "no useful
// location", e.g. for nodes synthesized by the hoister itself.
type Loc struct {
	Start int32
}

var LocNone = Loc{Start: -1}

// Ref names one entry in a Tree's Symbols table. All identifier references
// in a tree go through a Ref rather than a bare name, so renaming a symbol
// is a single table update instead of a text search.
type Ref struct {
	InnerIndex uint32
}

var invalidRefIndex = ^uint32(0)

// InvalidRef is the zero value for "no symbol".
func InvalidRef() Ref { return Ref{InnerIndex: invalidRefIndex} }

func (r Ref) IsValid() bool { return r.InnerIndex != invalidRefIndex }

type SymbolKind uint8

const (
	// A plain top-level or nested variable, function, or class binding.
	SymbolOther SymbolKind = iota

	// A binding introduced by an import clause (default, named, or namespace).
	SymbolImport

	// A symbol synthesized by the hoister itself, e.g. $parcel$require.
	// These are never subject to the asset-prefix rename.
	SymbolGenerated

	// A free identifier with no matching declaration anywhere in the tree.
	SymbolUnbound
)

// Symbol is one binding or free-reference slot in a Tree's symbol table.
type Symbol struct {
	OriginalName string
	Kind         SymbolKind

	// DeclLoc is where this binding was declared, used when the hoister
	// needs to attach a location to a symbol-table entry it creates.
	DeclLoc Loc

	// Constant is false once the binding is reassigned anywhere after its
	// declaration. Non-constant bindings can't be safely renamed in place
	// (see safeRename in internal/hoist); the hoister aliases them instead.
	Constant bool

	// UseCount is a coarse estimate of how many places reference this
	// symbol. Crawl doesn't count an `export {x}` clause item, so the
	// import rewriter's weak-symbol check looks for UseCount == 0 on a
	// binding that appears in an export clause.
	UseCount uint32

	// Link redirects this symbol to another one. Used when a specifier
	// turns out to name an import/export slot that's already backed by a
	// symbol (duplicate imports of the same name): rather than rewrite
	// every existing reference, new
	// references are built pointing at this Ref and Follow resolves them
	// to the canonical symbol.
	Link Ref
}

// Tree is one module's parsed syntax tree plus its symbol table and scope
// tree. Dependencies and metadata live on the owning asset.Asset, not here.
type Tree struct {
	Version string
	Symbols []Symbol
	Scope   *Scope
	Body    []Stmt
}

// NewSymbol allocates a new entry in the tree's symbol table and returns
// its Ref. Used both by whatever builds the initial tree and by hoist
// passes that introduce fresh bindings (export thunks, require vars, ...).
func (t *Tree) NewSymbol(kind SymbolKind, name string) Ref {
	ref := Ref{InnerIndex: uint32(len(t.Symbols))}
	t.Symbols = append(t.Symbols, Symbol{OriginalName: name, Kind: kind, Constant: true, DeclLoc: LocNone, Link: InvalidRef()})
	return ref
}

func (t *Tree) Sym(ref Ref) *Symbol {
	return &t.Symbols[ref.InnerIndex]
}

// Rename overwrites a symbol's textual name in place. Because every
// reference to a symbol goes through its Ref rather than its name, this is
// the entire renaming operation -- no tree walk required.
func (t *Tree) Rename(ref Ref, name string) {
	t.Symbols[ref.InnerIndex].OriginalName = name
}

// Follow resolves a chain of symbol links down to the canonical Ref.
func (t *Tree) Follow(ref Ref) Ref {
	for {
		link := t.Symbols[ref.InnerIndex].Link
		if !link.IsValid() {
			return ref
		}
		ref = link
	}
}

// MergeInto links `from` to `to`, so Follow(from) == Follow(to).
func (t *Tree) MergeInto(from, to Ref) {
	t.Symbols[from.InnerIndex].Link = to
}

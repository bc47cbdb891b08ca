package ast

// Builder assembles a Tree programmatically. It exists for two reasons:
// it's what the test suite uses to construct fixture trees without going
// through a real parser, and it's what the tree-sitter bridge builds every
// parsed file through (syntax the bridge doesn't lower becomes EOpaque).
//
// Builder is also responsible for the one thing a real parser would do
// that Crawl doesn't: deciding when an identifier reference is free. Two
// calls to Ident("foo") before any Declare("foo") both resolve to the same
// shared SymbolUnbound ref, the same way two unshadowed reads of a global
// in real source share one conceptual binding.
type Builder struct {
	Tree    *Tree
	scope   *Scope
	globals map[string]Ref
}

func NewBuilder() *Builder {
	t := &Tree{Version: Version}
	return &Builder{Tree: t, globals: make(map[string]Ref)}
}

// Declare allocates a new, always-distinct binding (a real declaration),
// regardless of whether a global of the same name was already referenced.
func (b *Builder) Declare(name string) Ref {
	return b.Tree.NewSymbol(SymbolOther, name)
}

// DeclareImport is like Declare but tags the symbol as import-bound, which
// the renamer and import rewriter use to recognize already-placed import
// locals.
func (b *Builder) DeclareImport(name string) Ref {
	return b.Tree.NewSymbol(SymbolImport, name)
}

// Global returns the shared Ref for a free identifier, interning by name
// so that every unshadowed use of e.g. "module" in a fixture points at the
// same SymbolUnbound symbol.
func (b *Builder) Global(name string) Ref {
	if ref, ok := b.globals[name]; ok {
		return ref
	}
	ref := b.Tree.NewSymbol(SymbolUnbound, name)
	b.globals[name] = ref
	return ref
}

func (b *Builder) Ident(ref Ref) Expr {
	return Expr{Loc: LocNone, Data: EIdentifier{Ref: ref}}
}

func (b *Builder) Str(v string) Expr   { return Expr{Loc: LocNone, Data: EString{Value: v}} }
func (b *Builder) Num(v float64) Expr  { return Expr{Loc: LocNone, Data: ENumber{Value: v}} }
func (b *Builder) Bool(v bool) Expr    { return Expr{Loc: LocNone, Data: EBoolean{Value: v}} }
func (b *Builder) Null() Expr          { return Expr{Loc: LocNone, Data: ENull{}} }
func (b *Builder) Undefined() Expr     { return Expr{Loc: LocNone, Data: EUndefined{}} }
func (b *Builder) This() Expr          { return Expr{Loc: LocNone, Data: EThis{}} }

func (b *Builder) Object(props ...ObjectProperty) Expr {
	return Expr{Loc: LocNone, Data: EObject{Properties: props}}
}

// Opaque wraps a raw source span the caller isn't lowering into a typed
// node -- see EOpaque's doc comment for why that's safe.
func (b *Builder) Opaque(text string) Expr {
	return Expr{Loc: LocNone, Data: EOpaque{Text: text}}
}

func (b *Builder) Dot(target Expr, name string) Expr {
	return Expr{Loc: LocNone, Data: EDot{Target: target, Name: name}}
}

func (b *Builder) Index(target Expr, index Expr) Expr {
	return Expr{Loc: LocNone, Data: EIndex{Target: target, Index: index}}
}

func (b *Builder) Call(target Expr, args ...Expr) Expr {
	return Expr{Loc: LocNone, Data: ECall{Target: target, Args: args}}
}

func (b *Builder) ImportCall(arg Expr) Expr {
	return Expr{Loc: LocNone, Data: EImportCall{Arg: arg}}
}

func (b *Builder) Await(v Expr) Expr {
	return Expr{Loc: LocNone, Data: EAwait{Value: v}}
}

func (b *Builder) Typeof(v Expr) Expr {
	return Expr{Loc: LocNone, Data: EUnary{Op: UnOpTypeof, Value: v}}
}

func (b *Builder) Assign(target Expr, value Expr) Expr {
	return Expr{Loc: LocNone, Data: EAssign{Target: target, Value: value}}
}

func (b *Builder) ExprStmt(v Expr) Stmt {
	return Stmt{Loc: LocNone, Data: SExpr{Value: v}}
}

func (b *Builder) ReturnStmt(v *Expr) Stmt {
	return Stmt{Loc: LocNone, Data: SReturn{Value: v}}
}

func (b *Builder) VarDecl(kind LocalKind, ref Ref, value *Expr) Stmt {
	return Stmt{Loc: LocNone, Data: SLocal{Kind: kind, Decls: []Decl{{Binding: BIdentifier{Ref: ref}, Value: value}}}}
}

func (b *Builder) Directive(v string) Stmt {
	return Stmt{Loc: LocNone, Data: SDirective{Value: v}}
}

// Finish runs Crawl over the assembled body and returns the tree, ready to
// be wrapped in an asset.Asset and handed to hoist.Hoist.
func (b *Builder) Finish(body []Stmt) *Tree {
	b.Tree.Body = body
	Crawl(b.Tree)
	return b.Tree
}

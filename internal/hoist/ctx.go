package hoist

import (
	"github.com/bernharduw/parcel/internal/ast"
	"github.com/bernharduw/parcel/internal/asset"
)

// placeholders holds the Refs for the six fixed runtime calls this package
// emits (§6). They're allocated once per Hoist() call and never renamed.
type placeholders struct {
	require         ast.Ref
	requireResolve  ast.Ref
	exportWildcard  ast.Ref
	export          ast.Ref
	global          ast.Ref
	parcelRequire   ast.Ref
}

func newPlaceholders(tree *ast.Tree) placeholders {
	return placeholders{
		require:        tree.NewSymbol(ast.SymbolGenerated, "$parcel$require"),
		requireResolve: tree.NewSymbol(ast.SymbolGenerated, "$parcel$require$resolve"),
		exportWildcard: tree.NewSymbol(ast.SymbolGenerated, "$parcel$exportWildcard"),
		export:         tree.NewSymbol(ast.SymbolGenerated, "$parcel$export"),
		global:         tree.NewSymbol(ast.SymbolGenerated, "$parcel$global"),
		parcelRequire:  tree.NewSymbol(ast.SymbolGenerated, "parcelRequire"),
	}
}

// ctx is the mutable state threaded through the body walk: it's the
// "family of cooperating node-kind handlers sharing mutable state on the
// tree's root scope" from §2, made explicit as a struct instead of
// closures over shared variables.
type ctx struct {
	asset *asset.Asset
	tree  *ast.Tree
	scope *ast.Scope
	ph    placeholders

	// hoisted accumulates every statement that must land above the rest
	// of the body: $parcel$require calls for imports/re-exports/wildcard
	// re-exports, and var declarations introduced by the CommonJS
	// exports.K = rewrite. Appending in body-walk order is what gives
	// "hoisted in source-relative order" for free.
	hoisted []ast.Stmt

	requireEmitted map[*asset.Dependency]bool

	// exportVar records, for each static `exports.K =` / `module.exports.K =`
	// target already rewritten, the Ref of its hoisted var -- so a second
	// assignment to the same K becomes a plain reassignment instead of a
	// second hoist.
	exportVar map[string]ast.Ref

	// moduleExportsVar is not set by any pass: a bare `module.exports`
	// value use is rewritten to exportsRef() (see rewriteCJS).
	moduleExportsVar *ast.Ref

	cjsExportsReassigned bool

	// originalName snapshots every top-level binding's declared name
	// before renameTopLevel overwrites it with the $var$ form. The export
	// rewriter needs the pre-rename name (what the module actually called
	// the binding) to build its export identifier and symbol-table key.
	originalName map[ast.Ref]string
}

func newCtx(a *asset.Asset) *ctx {
	return &ctx{
		asset:          a,
		tree:           a.Tree,
		scope:          a.Tree.Scope,
		ph:             newPlaceholders(a.Tree),
		requireEmitted: make(map[*asset.Dependency]bool),
		exportVar:      make(map[string]ast.Ref),
		originalName:   make(map[ast.Ref]string),
	}
}

// snapshotOriginalNames records every top-level binding's current name
// before renameTopLevel rewrites it, so later passes can still recover
// the name the module actually declared.
func (c *ctx) snapshotOriginalNames() {
	for _, member := range c.scope.Members {
		c.originalName[member.Ref] = c.tree.Sym(member.Ref).OriginalName
	}
}

func (c *ctx) identFor(ref ast.Ref) ast.Expr {
	return ast.Expr{Loc: ast.LocNone, Data: ast.EIdentifier{Ref: ref}}
}

func strExpr(v string) ast.Expr  { return ast.Expr{Loc: ast.LocNone, Data: ast.EString{Value: v}} }
func nullExpr() ast.Expr         { return ast.Expr{Loc: ast.LocNone, Data: ast.ENull{}} }
func undefinedExpr() ast.Expr    { return ast.Expr{Loc: ast.LocNone, Data: ast.EUndefined{}} }

func callExpr(target ast.Expr, args ...ast.Expr) ast.Expr {
	return ast.Expr{Loc: ast.LocNone, Data: ast.ECall{Target: target, Args: args}}
}

func exprStmt(e ast.Expr) ast.Stmt {
	return ast.Stmt{Loc: ast.LocNone, Data: ast.SExpr{Value: e}}
}

// hoistRequire emits a single `$parcel$require(assetId, source)` call for
// the given dependency the first time it's seen; later calls for the same
// dependency are no-ops, since the statement is already hoisted.
func (c *ctx) hoistRequire(dep *asset.Dependency, source string) {
	if c.requireEmitted[dep] {
		return
	}
	c.requireEmitted[dep] = true
	call := callExpr(c.identFor(c.ph.require), strExpr(c.asset.ID), strExpr(source))
	c.hoisted = append(c.hoisted, exprStmt(call))
}

func (c *ctx) requireCall(source string) ast.Expr {
	return callExpr(c.identFor(c.ph.require), strExpr(c.asset.ID), strExpr(source))
}

// exportThunk builds `function(){return LOCAL;}` for $parcel$export's
// third argument.
func (c *ctx) exportThunk(local ast.Ref) ast.Expr {
	ret := c.identFor(local)
	fn := &ast.Fn{Body: []ast.Stmt{{Loc: ast.LocNone, Data: ast.SReturn{Value: &ret}}}}
	return ast.Expr{Loc: ast.LocNone, Data: ast.EFunction{Fn: fn}}
}

// emitExport appends `$parcel$export(exportsId, "name", thunk)` inline
// (the caller decides whether that means "right after this statement" or
// "into the hoisted prefix").
func (c *ctx) emitExport(name string, local ast.Ref) ast.Stmt {
	call := callExpr(c.identFor(c.ph.export), c.identFor(c.exportsRef()), strExpr(name), c.exportThunk(local))
	return exprStmt(call)
}

// exportsRef returns the Ref backing this asset's exports identifier,
// pushing it onto the program scope the first time it's needed; finalize
// emits its `var ... = {}` declaration.
func (c *ctx) exportsRef() ast.Ref {
	name := exportsName(c.asset)
	if m, ok := c.scope.Members[name]; ok {
		return m.Ref
	}
	return c.scope.Push(c.tree, name)
}

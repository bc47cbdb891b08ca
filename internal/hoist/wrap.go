package hoist

import (
	"github.com/bernharduw/parcel/internal/ast"
	"github.com/bernharduw/parcel/internal/asset"
)

// finalize implements §4.6, the program-exit step: either the closure-wrap
// fallback for a module that turned out to need one, or the ordinary
// cleanup (declare a bare exports object if one ended up referenced, and
// collapse the symbol table if static analysis of module.exports bailed
// out partway through).
func (c *ctx) finalize(scan scanResult, body []ast.Stmt) []ast.Stmt {
	if scan.shouldWrap {
		return c.wrapClosure(scan, body)
	}

	// Second run of the §4.2 renamer (see renameTopLevel).
	c.hoisted = append(c.hoisted, renameTopLevel(c.asset)...)

	// A CommonJS module's exports object is always reachable as a whole,
	// even when every individual property was rewritten statically (the
	// `exports.K = rhs` table row never touches "*" on its own): after the
	// bailout cleanup has cleared every other entry, register it here
	// unless a rewriter already set it.
	syms := c.asset.EnsureSymbols()
	if scan.resolveExportsBailed {
		syms.Clear("*")
	}
	if c.asset.Meta.Bool("isCommonJS") && !syms.HasExportSymbol("*") {
		syms.Set("*", asset.SymbolEntry{Local: c.exportsRef(), Loc: ast.LocNone})
	}

	var out []ast.Stmt
	if _, referenced := c.scope.Members[exportsName(c.asset)]; referenced {
		ref := c.exportsRef()
		empty := ast.Expr{Loc: ast.LocNone, Data: ast.EObject{}}
		out = append(out, ast.Stmt{Loc: ast.LocNone, Data: ast.SLocal{
			Kind:  ast.LocalVar,
			Decls: []ast.Decl{{Binding: ast.BIdentifier{Ref: ref}, Value: &empty}},
		}})
	}

	out = append(out, c.hoisted...)
	out = append(out, body...)

	return out
}

// wrapClosure implements the fallback in §4.6 for a module whose
// shouldWrap bit ended up set: the whole rewritten body (hoisted
// statements included) moves inside a closure called against a fresh
// object, with `exports`/`module` locally shadowed so every reference
// inside the body -- already rewritten by the body walk to read/write
// those exact names -- keeps working unmodified.
func (c *ctx) wrapClosure(scan scanResult, body []ast.Stmt) []ast.Stmt {
	innerExports := c.tree.NewSymbol(ast.SymbolGenerated, "exports")
	innerModule := c.tree.NewSymbol(ast.SymbolGenerated, "module")

	thisForExports := ast.Expr{Loc: ast.LocNone, Data: ast.EThis{}}
	exportsDecl := ast.Stmt{Loc: ast.LocNone, Data: ast.SLocal{
		Kind:  ast.LocalVar,
		Decls: []ast.Decl{{Binding: ast.BIdentifier{Ref: innerExports}, Value: &thisForExports}},
	}}

	moduleInit := ast.Expr{Loc: ast.LocNone, Data: ast.EObject{
		Properties: []ast.ObjectProperty{{Key: "exports", Value: ast.Expr{Loc: ast.LocNone, Data: ast.EThis{}}}},
	}}
	moduleDecl := ast.Stmt{Loc: ast.LocNone, Data: ast.SLocal{
		Kind:  ast.LocalVar,
		Decls: []ast.Decl{{Binding: ast.BIdentifier{Ref: innerModule}, Value: &moduleInit}},
	}}

	closureBody := []ast.Stmt{exportsDecl, moduleDecl}

	if scan.isES6Module {
		flag := ast.Expr{Loc: ast.LocNone, Data: ast.EAssign{
			Target: ast.Expr{Loc: ast.LocNone, Data: ast.EDot{Target: c.identFor(innerExports), Name: "__esModule"}},
			Value:  ast.Expr{Loc: ast.LocNone, Data: ast.EBoolean{Value: true}},
		}}
		closureBody = append(closureBody, exprStmt(flag))
	}

	closureBody = append(closureBody, c.hoisted...)
	closureBody = append(closureBody, body...)

	moduleExports := ast.Expr{Loc: ast.LocNone, Data: ast.EDot{Target: c.identFor(innerModule), Name: "exports"}}
	closureBody = append(closureBody, ast.Stmt{Loc: ast.LocNone, Data: ast.SReturn{Value: &moduleExports}})

	fn := &ast.Fn{Body: closureBody}
	fnExpr := ast.Expr{Loc: ast.LocNone, Data: ast.EFunction{Fn: fn}}
	callTarget := ast.Expr{Loc: ast.LocNone, Data: ast.EDot{Target: fnExpr, Name: "call"}}
	wrapperCall := ast.Expr{Loc: ast.LocNone, Data: ast.ECall{
		Target: callTarget,
		Args:   []ast.Expr{{Loc: ast.LocNone, Data: ast.EObject{}}},
	}}

	exportsRef := c.exportsRef()
	decl := ast.Stmt{Loc: ast.LocNone, Data: ast.SLocal{
		Kind:  ast.LocalVar,
		Decls: []ast.Decl{{Binding: ast.BIdentifier{Ref: exportsRef}, Value: &wrapperCall}},
	}}

	syms := c.asset.EnsureSymbols()
	syms.Clear()
	syms.Set("*", asset.SymbolEntry{Local: exportsRef, Loc: ast.LocNone})
	c.asset.Meta.SetBool("isCommonJS", true)
	c.asset.Meta.SetBool("isES6Module", false)

	return []ast.Stmt{decl}
}

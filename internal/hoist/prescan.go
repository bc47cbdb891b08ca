package hoist

import (
	"github.com/bernharduw/parcel/internal/ast"
	"github.com/bernharduw/parcel/internal/asset"
)

// scanResult is what the pre-scan walk (§4.1) produces before any
// rewriting begins.
type scanResult struct {
	isES6Module          bool
	isCommonJS           bool
	shouldWrap           bool
	resolveExportsBailed bool
}

// exprCtx describes how an expression is being used by its immediate
// parent, which is exactly the information §4.1's "safe context" and
// "unless parent is ..." carve-outs need.
type exprCtx uint8

const (
	ctxNone exprCtx = iota
	ctxAssignTarget
	ctxDotTarget        // e.g. the "exports" in "exports.foo"
	ctxStaticIndexTarget // the "exports" in "exports['foo']"
	ctxTypeofOperand
	ctxCallTarget
)

func preScan(a *asset.Asset) scanResult {
	p := &prescanner{asset: a, tree: a.Tree}
	p.walkStmts(a.Tree.Body, true)
	return p.result
}

type prescanner struct {
	asset  *asset.Asset
	tree   *ast.Tree
	result scanResult
}

func (p *prescanner) identNamed(e ast.Expr, name string) (ast.Ref, bool) {
	id, ok := e.Data.(ast.EIdentifier)
	if !ok {
		return ast.Ref{}, false
	}
	sym := p.tree.Sym(id.Ref)
	if sym.Kind != ast.SymbolUnbound || sym.OriginalName != name {
		return ast.Ref{}, false
	}
	return id.Ref, true
}

func (p *prescanner) walkStmts(stmts []ast.Stmt, topLevel bool) {
	for _, stmt := range stmts {
		p.walkStmt(stmt, topLevel)
	}
}

func (p *prescanner) walkStmt(stmt ast.Stmt, topLevel bool) {
	switch s := stmt.Data.(type) {
	case ast.SImport:
		p.result.isES6Module = true
	case ast.SExportDefault, ast.SExportClause, ast.SExportFrom, ast.SExportStar:
		p.result.isES6Module = true
	case ast.SReturn:
		if topLevel {
			p.result.isCommonJS = true
			p.result.shouldWrap = true
		}
		if s.Value != nil {
			p.walkExpr(*s.Value, ctxNone)
		}
	case ast.SExpr:
		p.walkExpr(s.Value, ctxNone)
	case ast.SLocal:
		if s.IsExport {
			p.result.isES6Module = true
		}
		for _, decl := range s.Decls {
			if decl.Value != nil {
				p.walkExpr(*decl.Value, ctxNone)
			}
		}
	case ast.SFunction:
		if s.IsExport {
			p.result.isES6Module = true
		}
		p.walkFn(s.Fn)
	case ast.SClass:
		if s.IsExport {
			p.result.isES6Module = true
		}
	case ast.SBlock:
		p.walkStmts(s.Stmts, false)
	case ast.SIf:
		p.walkExpr(s.Test, ctxNone)
		p.walkStmt(s.Yes, false)
		if s.No != nil {
			p.walkStmt(*s.No, false)
		}
	}

	if ed, ok := stmt.Data.(ast.SExportDefault); ok {
		if ed.Expr != nil {
			p.walkExpr(*ed.Expr, ctxNone)
		}
		if ed.Function != nil {
			p.walkFn(ed.Function)
		}
	}
}

func (p *prescanner) walkFn(fn *ast.Fn) {
	p.walkStmts(fn.Body, false)
}

func (p *prescanner) walkExpr(e ast.Expr, ctx exprCtx) {
	switch expr := e.Data.(type) {
	case ast.EIdentifier:
		p.classifyFreeIdentifier(e, ctx)

	case ast.EDot:
		p.checkModuleExportsAccess(e, ctx)
		p.walkExpr(expr.Target, ctxDotTarget)

	case ast.EIndex:
		p.checkModuleExportsIndexAccess(e, ctx)
		// Only a string-literal key is a statically-known property access
		// (module["exports"], exports["x"]); a computed key like
		// module[x] can reach anywhere on the object at runtime and must
		// not be treated as the safe ctxStaticIndexTarget case -- see the
		// identical literal check in checkModuleExportsIndexAccess above.
		if _, ok := expr.Index.Data.(ast.EString); ok {
			p.walkExpr(expr.Target, ctxStaticIndexTarget)
		} else {
			p.walkExpr(expr.Target, ctxNone)
		}
		p.walkExpr(expr.Index, ctxNone)

	case ast.ECall:
		if ref, ok := p.identNamed(expr.Target, "eval"); ok {
			_ = ref
			p.result.isCommonJS = true
			p.result.shouldWrap = true
		}
		p.walkExpr(expr.Target, ctxCallTarget)
		for _, arg := range expr.Args {
			p.walkExpr(arg, ctxNone)
		}

	case ast.EImportCall:
		p.walkExpr(expr.Arg, ctxNone)

	case ast.EAwait:
		p.walkExpr(expr.Value, ctxNone)

	case ast.EUnary:
		if expr.Op == ast.UnOpTypeof {
			p.walkExpr(expr.Value, ctxTypeofOperand)
		} else {
			p.walkExpr(expr.Value, ctxNone)
		}

	case ast.ELogical:
		p.walkExpr(expr.Left, ctxNone)
		p.walkExpr(expr.Right, ctxNone)

	case ast.EAssign:
		p.walkExpr(expr.Target, ctxAssignTarget)
		p.walkExpr(expr.Value, ctxNone)

	case ast.EObjectPattern:
		for _, prop := range expr.Properties {
			p.walkExpr(prop.Value, ctxNone)
		}

	case ast.EFunction:
		p.walkFn(expr.Fn)

	case ast.EArrow:
		if expr.BodyExpr != nil {
			p.walkExpr(*expr.BodyExpr, ctxNone)
		} else {
			p.walkStmts(expr.Body, false)
		}

	case ast.EArray:
		for _, item := range expr.Items {
			p.walkExpr(item, ctxNone)
		}
	}
}

// classifyFreeIdentifier implements the "free reference to module or
// exports" rule, including the shouldWrap carve-outs for typeof and
// static member access.
func (p *prescanner) classifyFreeIdentifier(e ast.Expr, ctx exprCtx) {
	id := e.Data.(ast.EIdentifier)
	sym := p.tree.Sym(id.Ref)
	if sym.Kind != ast.SymbolUnbound {
		return
	}

	switch sym.OriginalName {
	case "module":
		p.result.isCommonJS = true
		safe := ctx == ctxTypeofOperand || ctx == ctxDotTarget || ctx == ctxStaticIndexTarget
		if !safe {
			p.result.shouldWrap = true
		}
	case "exports":
		p.result.isCommonJS = true
		safe := ctx == ctxAssignTarget || ctx == ctxDotTarget || ctx == ctxStaticIndexTarget
		if !safe {
			p.bailOutExports(e)
		}
	}
}

// checkModuleExportsAccess handles the "module.exports member access with
// no local module binding" rule and feeds the bailout-safety check for
// plain `module.exports` / `module.exports.x`.
func (p *prescanner) checkModuleExportsAccess(e ast.Expr, ctx exprCtx) {
	dot := e.Data.(ast.EDot)
	if _, ok := p.identNamed(dot.Target, "module"); ok && dot.Name == "exports" {
		p.result.isCommonJS = true
		if ctx != ctxDotTarget && ctx != ctxStaticIndexTarget && ctx != ctxAssignTarget {
			// Bare `module.exports` used as a value (not as `module.exports = x`,
			// `module.exports.x`, or `module.exports['x']`) escapes static analysis.
			p.bailOutExports(e)
		}
		return
	}
	// exports.x and module.exports.x are both safe; nothing further to flag.
}

func (p *prescanner) checkModuleExportsIndexAccess(e ast.Expr, ctx exprCtx) {
	idx := e.Data.(ast.EIndex)
	dot, ok := idx.Target.Data.(ast.EDot)
	if !ok {
		return
	}
	if _, ok := p.identNamed(dot.Target, "module"); ok && dot.Name == "exports" {
		if _, ok := idx.Index.Data.(ast.EString); ok {
			return // module.exports['x'] is a safe, statically-indexed context
		}
	}
}

// bailOutExports records the resolveExportsBailedOut condition and arranges
// for a self-dependency to be added once the asset is available (done by
// the caller after pre-scan finishes, see hoist.go).
func (p *prescanner) bailOutExports(ast.Expr) {
	p.result.resolveExportsBailed = true
}

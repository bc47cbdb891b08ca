package hoist

import (
	"github.com/bernharduw/parcel/internal/ast"
	"github.com/bernharduw/parcel/internal/asset"
)

// rewriteCJS implements §4.5: it runs only when the module is not being
// wrapped, substituting every free module/exports/global/this/typeof
// reference for its ES-shaped equivalent.
//
// Every substitution except `this` applies no matter how deep inside the
// module a reference sits -- exports.K = rhs inside a callback is still the
// module's own exports object. `this`, unlike those, is scoped by ordinary
// JS function-call semantics: a nested, non-arrow function gets its own
// call-time `this`, unrelated to the module-level `this` this pass
// substitutes. The walker below tracks that one piece of nesting state
// itself (depth counts non-arrow function bodies only) rather than reusing
// the shared rewriteExprPre/rewriteBodyPre walkers in walk.go, which have
// no notion of "inside a nested function" at all.
func (c *ctx) rewriteCJS(stmts []ast.Stmt) {
	c.cjsExportsReassigned = scanFreeExportsReassigned(c.tree, stmts)
	cjsExportsID := c.cjsExportsRef()

	var visitExpr func(ast.Expr, int) ast.Expr
	var visitStmt func(ast.Stmt, int) ast.Stmt
	var visitBody func([]ast.Stmt, int) []ast.Stmt

	leaf := func(e ast.Expr, depth int) ast.Expr {
		switch expr := e.Data.(type) {
		case ast.EIdentifier:
			sym := c.tree.Sym(expr.Ref)
			if sym.Kind != ast.SymbolUnbound {
				return e
			}
			switch sym.OriginalName {
			case "exports":
				c.asset.Meta.SetBool("isCommonJS", true)
				return c.identFor(cjsExportsID)
			case "global":
				return c.identFor(c.ph.global)
			case "this":
				if depth > 0 {
					return e
				}
				if c.asset.Meta.Bool("isCommonJS") {
					return c.identFor(c.exportsRef())
				}
				return undefinedExpr()
			}
			return e

		case ast.EThis:
			if depth > 0 {
				// A nested, non-arrow function's own `this` -- not the
				// module-level `this` this pass rewrites (§4.5).
				return e
			}
			if c.asset.Meta.Bool("isCommonJS") {
				return c.identFor(c.exportsRef())
			}
			return undefinedExpr()

		case ast.EUnary:
			if expr.Op == ast.UnOpTypeof {
				if id, ok := expr.Value.Data.(ast.EIdentifier); ok {
					sym := c.tree.Sym(id.Ref)
					if sym.Kind == ast.SymbolUnbound {
						switch sym.OriginalName {
						case "module":
							return strExpr("object")
						case "require":
							return strExpr("function")
						}
					}
				}
			}
			return e

		case ast.EDot:
			if id, ok := expr.Target.Data.(ast.EIdentifier); ok {
				sym := c.tree.Sym(id.Ref)
				if sym.Kind == ast.SymbolUnbound && sym.OriginalName == "module" {
					switch expr.Name {
					case "exports":
						c.asset.Meta.SetBool("isCommonJS", true)
						exportsID := c.exportsRef()
						c.asset.EnsureSymbols().Set("*", asset.SymbolEntry{Local: exportsID, Loc: ast.LocNone})
						return c.identFor(exportsID)
					case "id":
						return strExpr(c.asset.ID)
					case "hot":
						return nullExpr()
					case "require":
						if !c.asset.Env.IsNode() {
							return nullExpr()
						}
					case "bundle":
						return c.identFor(c.ph.parcelRequire)
					}
				}
			}
			return e
		}
		return e
	}

	visitExpr = func(e ast.Expr, depth int) ast.Expr {
		// `exports.K = rhs` / `module.exports.K = rhs` has to be recognized
		// by its original, unrewritten shape -- the generic substitution
		// below would otherwise already have substituted the free
		// `exports`/`module` identifier out from under it by the time a
		// post-order visit reached the assignment itself, since children
		// are rewritten before parents.
		if assign, ok := e.Data.(ast.EAssign); ok {
			if dot, ok := assign.Target.Data.(ast.EDot); ok {
				rhs := visitExpr(assign.Value, depth)
				if rewritten, ok := c.rewriteExportsAssign(dot, rhs); ok {
					return rewritten
				}
			}
		}

		switch expr := e.Data.(type) {
		case ast.EDot:
			expr.Target = visitExpr(expr.Target, depth)
			e.Data = expr
		case ast.EIndex:
			expr.Target = visitExpr(expr.Target, depth)
			expr.Index = visitExpr(expr.Index, depth)
			e.Data = expr
		case ast.ECall:
			expr.Target = visitExpr(expr.Target, depth)
			for i, a := range expr.Args {
				expr.Args[i] = visitExpr(a, depth)
			}
			e.Data = expr
		case ast.EImportCall:
			expr.Arg = visitExpr(expr.Arg, depth)
			e.Data = expr
		case ast.EAwait:
			expr.Value = visitExpr(expr.Value, depth)
			e.Data = expr
		case ast.EUnary:
			expr.Value = visitExpr(expr.Value, depth)
			e.Data = expr
		case ast.ELogical:
			expr.Left = visitExpr(expr.Left, depth)
			expr.Right = visitExpr(expr.Right, depth)
			e.Data = expr
		case ast.EAssign:
			expr.Target = visitExpr(expr.Target, depth)
			expr.Value = visitExpr(expr.Value, depth)
			e.Data = expr
		case ast.EObjectPattern:
			for i, p := range expr.Properties {
				p.Value = visitExpr(p.Value, depth)
				expr.Properties[i] = p
			}
			e.Data = expr
		case ast.EFunction:
			// A plain function expression gets its own `this` -- stop
			// treating `this` as the module-level binding inside it.
			expr.Fn.Body = visitBody(expr.Fn.Body, depth+1)
			e.Data = expr
		case ast.EArrow:
			// Arrow functions inherit the enclosing `this`; depth is
			// unchanged.
			if expr.BodyExpr != nil {
				v := visitExpr(*expr.BodyExpr, depth)
				expr.BodyExpr = &v
			} else {
				expr.Body = visitBody(expr.Body, depth)
			}
			e.Data = expr
		case ast.EArray:
			for i, item := range expr.Items {
				expr.Items[i] = visitExpr(item, depth)
			}
			e.Data = expr
		case ast.EObject:
			for i, p := range expr.Properties {
				p.Value = visitExpr(p.Value, depth)
				expr.Properties[i] = p
			}
			e.Data = expr
		}
		return leaf(e, depth)
	}

	visitStmt = func(stmt ast.Stmt, depth int) ast.Stmt {
		switch s := stmt.Data.(type) {
		case ast.SExpr:
			s.Value = visitExpr(s.Value, depth)
			stmt.Data = s
		case ast.SReturn:
			if s.Value != nil {
				v := visitExpr(*s.Value, depth)
				s.Value = &v
			}
			stmt.Data = s
		case ast.SLocal:
			for i, d := range s.Decls {
				if d.Value != nil {
					v := visitExpr(*d.Value, depth)
					d.Value = &v
					s.Decls[i] = d
				}
			}
			stmt.Data = s
		case ast.SFunction:
			// A function declaration is just as much a new `this` scope
			// as a function expression.
			s.Fn.Body = visitBody(s.Fn.Body, depth+1)
			stmt.Data = s
		case ast.SExportDefault:
			if s.Expr != nil {
				v := visitExpr(*s.Expr, depth)
				s.Expr = &v
			}
			if s.Function != nil {
				s.Function.Body = visitBody(s.Function.Body, depth+1)
			}
			stmt.Data = s
		case ast.SBlock:
			s.Stmts = visitBody(s.Stmts, depth)
			stmt.Data = s
		case ast.SIf:
			s.Test = visitExpr(s.Test, depth)
			s.Yes = visitStmt(s.Yes, depth)
			if s.No != nil {
				no := visitStmt(*s.No, depth)
				s.No = &no
			}
			stmt.Data = s
		}
		return stmt
	}

	visitBody = func(ss []ast.Stmt, depth int) []ast.Stmt {
		out := make([]ast.Stmt, len(ss))
		for i, s := range ss {
			out[i] = visitStmt(s, depth)
		}
		return out
	}

	rewritten := visitBody(stmts, 0)
	copy(stmts, rewritten)
}

// scanFreeExportsReassigned reports whether the body contains a bare
// `exports = rhs` anywhere, which is what forces the "two-identifier
// split" (§4.5): once `exports` itself is reassigned, every free read of
// `exports` has to resolve to a second, dedicated binding instead of the
// asset's exports identifier, for the whole module uniformly.
func scanFreeExportsReassigned(tree *ast.Tree, stmts []ast.Stmt) bool {
	found := false

	isFreeExports := func(e ast.Expr) bool {
		id, ok := e.Data.(ast.EIdentifier)
		if !ok {
			return false
		}
		sym := tree.Sym(id.Ref)
		return sym.Kind == ast.SymbolUnbound && sym.OriginalName == "exports"
	}

	var walkStmts func([]ast.Stmt)
	var walkStmt func(ast.Stmt)
	var walkExpr func(ast.Expr)

	walkStmts = func(ss []ast.Stmt) {
		for _, s := range ss {
			if found {
				return
			}
			walkStmt(s)
		}
	}

	walkStmt = func(stmt ast.Stmt) {
		switch s := stmt.Data.(type) {
		case ast.SExpr:
			walkExpr(s.Value)
		case ast.SReturn:
			if s.Value != nil {
				walkExpr(*s.Value)
			}
		case ast.SLocal:
			for _, d := range s.Decls {
				if d.Value != nil {
					walkExpr(*d.Value)
				}
			}
		case ast.SFunction:
			walkStmts(s.Fn.Body)
		case ast.SExportDefault:
			if s.Expr != nil {
				walkExpr(*s.Expr)
			}
			if s.Function != nil {
				walkStmts(s.Function.Body)
			}
		case ast.SBlock:
			walkStmts(s.Stmts)
		case ast.SIf:
			walkExpr(s.Test)
			walkStmt(s.Yes)
			if s.No != nil {
				walkStmt(*s.No)
			}
		}
	}

	walkExpr = func(e ast.Expr) {
		if found {
			return
		}
		switch expr := e.Data.(type) {
		case ast.EAssign:
			if isFreeExports(expr.Target) {
				found = true
				return
			}
			walkExpr(expr.Target)
			walkExpr(expr.Value)
		case ast.EDot:
			walkExpr(expr.Target)
		case ast.EIndex:
			walkExpr(expr.Target)
			walkExpr(expr.Index)
		case ast.ECall:
			walkExpr(expr.Target)
			for _, a := range expr.Args {
				walkExpr(a)
			}
		case ast.EImportCall:
			walkExpr(expr.Arg)
		case ast.EAwait:
			walkExpr(expr.Value)
		case ast.EUnary:
			walkExpr(expr.Value)
		case ast.ELogical:
			walkExpr(expr.Left)
			walkExpr(expr.Right)
		case ast.EObjectPattern:
			for _, p := range expr.Properties {
				walkExpr(p.Value)
			}
		case ast.EFunction:
			walkStmts(expr.Fn.Body)
		case ast.EArrow:
			if expr.BodyExpr != nil {
				walkExpr(*expr.BodyExpr)
			} else {
				walkStmts(expr.Body)
			}
		case ast.EArray:
			for _, it := range expr.Items {
				walkExpr(it)
			}
		}
	}

	walkStmts(stmts)
	return found
}

// cjsExportsRef selects the binding free `exports` references resolve to:
// the asset's exports identifier, unless `exports` was itself reassigned
// somewhere, in which case a second `$<id>$cjs_exports` binding takes over
// (§4.5's "two-identifier split").
func (c *ctx) cjsExportsRef() ast.Ref {
	if !c.cjsExportsReassigned {
		return c.exportsRef()
	}
	name := cjsExportsName(c.asset)
	if m, ok := c.scope.Members[name]; ok {
		return m.Ref
	}
	return c.scope.Push(c.tree, name)
}

// rewriteExportsAssign handles the static `exports.K = rhs` /
// `module.exports.K = rhs` CommonJS-export rewrite: the first assignment
// to a given K hoists a var declaration and a $parcel$export call; later
// assignments to the same K become plain reassignments. rhs has already
// been rewritten by the caller.
func (c *ctx) rewriteExportsAssign(dot ast.EDot, rhs ast.Expr) (ast.Expr, bool) {
	root, ok := dot.Target.Data.(ast.EIdentifier)
	isExports := ok && c.tree.Sym(root.Ref).Kind == ast.SymbolUnbound && c.tree.Sym(root.Ref).OriginalName == "exports"

	isModuleExports := false
	if inner, ok := dot.Target.Data.(ast.EDot); ok && inner.Name == "exports" {
		if id, ok := inner.Target.Data.(ast.EIdentifier); ok {
			sym := c.tree.Sym(id.Ref)
			isModuleExports = sym.Kind == ast.SymbolUnbound && sym.OriginalName == "module"
		}
	}

	if !isExports && !isModuleExports {
		return ast.Expr{}, false
	}

	key := dot.Name
	c.asset.Meta.SetBool("isCommonJS", true)

	if ref, ok := c.exportVar[key]; ok {
		return ast.Expr{Data: ast.EAssign{Target: c.identFor(ref), Value: rhs}}, true
	}

	ref := c.scope.Push(c.tree, exportName(c.asset, key))
	c.exportVar[key] = ref
	c.hoisted = append(c.hoisted, ast.Stmt{Loc: ast.LocNone, Data: ast.SLocal{
		Kind:  ast.LocalVar,
		Decls: []ast.Decl{{Binding: ast.BIdentifier{Ref: ref}, Value: &rhs}},
	}})
	if key != "default" && key != "*" {
		syms := c.asset.EnsureSymbols()
		if !syms.HasExportSymbol(key) {
			syms.Set(key, asset.SymbolEntry{Local: ref, Loc: ast.LocNone})
		}
	}
	c.hoisted = append(c.hoisted, c.emitExport(key, ref))

	// The original `exports.K = rhs;` statement is fully consumed by the
	// hoisted var and export call above; what's left standing in its place
	// is just a reference to the new binding.
	return ast.Expr{Data: ast.EIdentifier{Ref: ref}}, true
}

package hoist

import "github.com/bernharduw/parcel/internal/ast"

// exprVisit is applied post-order to every expression node reachable from
// a rewriteBody call, including inside nested function/arrow bodies.
type exprVisit func(ast.Expr) ast.Expr

// preVisit runs before a node's children are rewritten. Returning
// handled==true short-circuits the normal post-order recursion entirely --
// the hook is responsible for rewriting (or not) the node's own children
// itself. The rewriteBody/rewriteStmt/rewriteExpr wrappers pass a nil hook;
// the CommonJS rewriter (cjs.go) uses its own walker, not this one.
type preVisit func(ast.Expr) (ast.Expr, bool)

func rewriteBody(stmts []ast.Stmt, visit exprVisit) []ast.Stmt {
	return rewriteBodyPre(stmts, nil, visit)
}

func rewriteStmt(stmt ast.Stmt, visit exprVisit) ast.Stmt {
	return rewriteStmtPre(stmt, nil, visit)
}

func rewriteExpr(e ast.Expr, visit exprVisit) ast.Expr {
	return rewriteExprPre(e, nil, visit)
}

func rewriteBodyPre(stmts []ast.Stmt, pre preVisit, visit exprVisit) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = rewriteStmtPre(s, pre, visit)
	}
	return out
}

func rewriteStmtPre(stmt ast.Stmt, pre preVisit, visit exprVisit) ast.Stmt {
	switch s := stmt.Data.(type) {
	case ast.SExpr:
		s.Value = rewriteExprPre(s.Value, pre, visit)
		stmt.Data = s
	case ast.SReturn:
		if s.Value != nil {
			v := rewriteExprPre(*s.Value, pre, visit)
			s.Value = &v
		}
		stmt.Data = s
	case ast.SLocal:
		for i, d := range s.Decls {
			if d.Value != nil {
				v := rewriteExprPre(*d.Value, pre, visit)
				d.Value = &v
				s.Decls[i] = d
			}
		}
		stmt.Data = s
	case ast.SFunction:
		s.Fn.Body = rewriteBodyPre(s.Fn.Body, pre, visit)
	case ast.SExportDefault:
		if s.Expr != nil {
			v := rewriteExprPre(*s.Expr, pre, visit)
			s.Expr = &v
		}
		if s.Function != nil {
			s.Function.Body = rewriteBodyPre(s.Function.Body, pre, visit)
		}
		stmt.Data = s
	case ast.SBlock:
		s.Stmts = rewriteBodyPre(s.Stmts, pre, visit)
		stmt.Data = s
	case ast.SIf:
		s.Test = rewriteExprPre(s.Test, pre, visit)
		s.Yes = rewriteStmtPre(s.Yes, pre, visit)
		if s.No != nil {
			no := rewriteStmtPre(*s.No, pre, visit)
			s.No = &no
		}
		stmt.Data = s
	}
	return stmt
}

func rewriteExprPre(e ast.Expr, pre preVisit, visit exprVisit) ast.Expr {
	if pre != nil {
		if replaced, handled := pre(e); handled {
			return replaced
		}
	}

	switch expr := e.Data.(type) {
	case ast.EDot:
		expr.Target = rewriteExprPre(expr.Target, pre, visit)
		e.Data = expr
	case ast.EIndex:
		expr.Target = rewriteExprPre(expr.Target, pre, visit)
		expr.Index = rewriteExprPre(expr.Index, pre, visit)
		e.Data = expr
	case ast.ECall:
		expr.Target = rewriteExprPre(expr.Target, pre, visit)
		for i, a := range expr.Args {
			expr.Args[i] = rewriteExprPre(a, pre, visit)
		}
		e.Data = expr
	case ast.EImportCall:
		expr.Arg = rewriteExprPre(expr.Arg, pre, visit)
		e.Data = expr
	case ast.EAwait:
		expr.Value = rewriteExprPre(expr.Value, pre, visit)
		e.Data = expr
	case ast.EUnary:
		expr.Value = rewriteExprPre(expr.Value, pre, visit)
		e.Data = expr
	case ast.ELogical:
		expr.Left = rewriteExprPre(expr.Left, pre, visit)
		expr.Right = rewriteExprPre(expr.Right, pre, visit)
		e.Data = expr
	case ast.EAssign:
		expr.Target = rewriteExprPre(expr.Target, pre, visit)
		expr.Value = rewriteExprPre(expr.Value, pre, visit)
		e.Data = expr
	case ast.EObjectPattern:
		for i, p := range expr.Properties {
			p.Value = rewriteExprPre(p.Value, pre, visit)
			expr.Properties[i] = p
		}
		e.Data = expr
	case ast.EFunction:
		expr.Fn.Body = rewriteBodyPre(expr.Fn.Body, pre, visit)
		e.Data = expr
	case ast.EArrow:
		if expr.BodyExpr != nil {
			v := rewriteExprPre(*expr.BodyExpr, pre, visit)
			expr.BodyExpr = &v
		} else {
			expr.Body = rewriteBodyPre(expr.Body, pre, visit)
		}
		e.Data = expr
	case ast.EArray:
		for i, item := range expr.Items {
			expr.Items[i] = rewriteExprPre(item, pre, visit)
		}
		e.Data = expr
	case ast.EObject:
		for i, p := range expr.Properties {
			p.Value = rewriteExprPre(p.Value, pre, visit)
			expr.Properties[i] = p
		}
		e.Data = expr
	}
	return visit(e)
}

// rewriteModuleBody is the body walk proper: §4.3/§4.4/§4.5 run over every
// top-level statement in source order, each handler free to hoist
// statements onto c.hoisted or rewrite/drop the statement in place. It
// assumes renameTopLevel has already run (§4.2 runs before the body walk).
func (c *ctx) rewriteModuleBody(shouldWrap bool) []ast.Stmt {
	var out []ast.Stmt

	// Indexed, not ranged: a namespace import or async-import binding found
	// partway through the body rewrites every static member access to it
	// *anywhere* in c.tree.Body, including statements after the one being
	// visited right now. A `range` would have snapshotted the pre-rewrite
	// slice up front and silently fed later iterations the stale copies.
	for i := 0; i < len(c.tree.Body); i++ {
		stmt := c.tree.Body[i]
		switch s := stmt.Data.(type) {
		case ast.SImport:
			c.handleStaticImport(s)

		case ast.SExportDefault:
			out = append(out, c.handleExportDefault(s)...)

		case ast.SLocal:
			if s.IsExport {
				out = append(out, c.handleExportNamedDecl(s)...)
			} else {
				out = append(out, c.rewriteGeneralStmt(stmt, true))
			}

		case ast.SFunction:
			if s.IsExport {
				out = append(out, c.handleExportNamedFunction(s)...)
			} else {
				out = append(out, c.rewriteGeneralStmt(stmt, true))
			}

		case ast.SClass:
			if s.IsExport {
				out = append(out, c.handleExportNamedClass(s)...)
			} else {
				out = append(out, stmt)
			}

		case ast.SExportClause:
			out = append(out, c.handleExportClause(s)...)

		case ast.SExportFrom:
			c.handleExportFrom(s)

		case ast.SExportStar:
			c.handleExportStar(s)

		case ast.SDirective:
			// "use strict" and friends are stripped unconditionally (§4.5).

		case ast.SIf, ast.SBlock:
			// A require() found inside either is no longer a direct
			// statement child of the program (§4.3's ordering rule).
			out = append(out, c.rewriteGeneralStmt(stmt, false))

		default:
			out = append(out, c.rewriteGeneralStmt(stmt, true))
		}
	}

	if !shouldWrap {
		c.rewriteCJS(out)
	}

	return out
}

// rewriteGeneralStmt applies the require()/import() call rewriter to a
// single ordinary statement; the CommonJS substitutions run afterwards over
// the whole output (rewriteCJS in rewriteModuleBody). topLevel marks
// statements that are direct children of the program body, which matters
// for the require() shouldWrap propagation rule (§4.3). It applies to the
// whole statement: a require() under a logical operator or inside a
// function body within a top-level statement also counts as top-level.
func (c *ctx) rewriteGeneralStmt(stmt ast.Stmt, topLevel bool) ast.Stmt {
	switch s := stmt.Data.(type) {
	case ast.SLocal:
		for i, d := range s.Decls {
			if d.Value != nil {
				v := c.rewriteTopValue(*d.Value, topLevel, d.Binding)
				d.Value = &v
				s.Decls[i] = d
			}
		}
		stmt.Data = s
		return stmt

	case ast.SExpr:
		if assign, ok := s.Value.Data.(ast.EAssign); ok {
			if pat, ok := assign.Target.Data.(ast.EObjectPattern); ok {
				if await, ok := assign.Value.Data.(ast.EAwait); ok {
					if imp, ok := await.Value.Data.(ast.EImportCall); ok {
						if dep, source, found := c.dependencyForCall(imp.Arg); found {
							c.handleAsyncImportBinding(dep, patternFromObjectPattern(pat))
							await.Value = c.requireCall(source)
							assign.Value = ast.Expr{Loc: s.Value.Loc, Data: await}
							s.Value = ast.Expr{Loc: s.Value.Loc, Data: assign}
							stmt.Data = s
							return stmt
						}
					}
				}
			}
		}
		s.Value = c.rewriteTopValue(s.Value, topLevel, nil)
		stmt.Data = s
		return stmt

	default:
		return rewriteStmt(stmt, c.requireCallVisit(topLevel))
	}
}

// rewriteTopValue handles the `let x = await import(s)` / `let {a,b} =
// await import(s)` / `import(s).then(fn)` continuation shapes before
// falling back to the generic require()/import() call rewrite.
func (c *ctx) rewriteTopValue(value ast.Expr, topLevel bool, binding ast.Binding) ast.Expr {
	if await, ok := value.Data.(ast.EAwait); ok {
		if imp, ok := await.Value.Data.(ast.EImportCall); ok && binding != nil {
			if dep, source, found := c.dependencyForCall(imp.Arg); found {
				// `let ns = await import(s)` is only split into members when ns
				// is never reassigned and the module isn't wrapped.
				if id, ok := binding.(ast.BIdentifier); ok && (!c.tree.Sym(id.Ref).Constant || c.asset.Meta.Bool("shouldWrap")) {
					c.catchallAsync(dep, dep.EnsureSymbols())
				} else {
					c.handleAsyncImportBinding(dep, binding)
				}
				await.Value = c.requireCall(source)
				return ast.Expr{Loc: value.Loc, Data: await}
			}
		}
	}

	if call, ok := value.Data.(ast.ECall); ok {
		if dot, ok := call.Target.Data.(ast.EDot); ok && dot.Name == "then" && len(call.Args) == 1 {
			if imp, ok := dot.Target.Data.(ast.EImportCall); ok {
				if dep, source, found := c.dependencyForCall(imp.Arg); found {
					if binding := arrowParamBinding(call.Args[0]); binding != nil {
						c.handleAsyncImportBinding(dep, binding)
					} else {
						c.catchallAsync(dep, dep.EnsureSymbols())
					}
					dot.Target = c.requireCall(source)
					call.Target = ast.Expr{Loc: call.Target.Loc, Data: dot}
					newCall := ast.Expr{Loc: value.Loc, Data: call}
					return rewriteExpr(newCall, c.requireCallVisit(topLevel))
				}
			}
		}
	}

	return rewriteExpr(value, c.requireCallVisit(topLevel))
}

// requireCallVisit returns the leaf expr-rewrite used for every
// require()/require.resolve()/bare-import() call not already consumed by
// one of the continuation shapes above.
func (c *ctx) requireCallVisit(topLevel bool) exprVisit {
	return func(e ast.Expr) ast.Expr {
		switch expr := e.Data.(type) {
		case ast.ECall:
			if dot, ok := expr.Target.Data.(ast.EDot); ok && dot.Name == "resolve" && len(expr.Args) == 1 {
				if id, ok := dot.Target.Data.(ast.EIdentifier); ok && c.tree.Sym(id.Ref).Kind == ast.SymbolUnbound && c.tree.Sym(id.Ref).OriginalName == "require" {
					if _, source, found := c.dependencyForCall(expr.Args[0]); found {
						return callExpr(c.identFor(c.ph.requireResolve), strExpr(c.asset.ID), strExpr(source))
					}
				}
			}
			if id, ok := expr.Target.Data.(ast.EIdentifier); ok && len(expr.Args) == 1 {
				sym := c.tree.Sym(id.Ref)
				if sym.Kind == ast.SymbolUnbound && sym.OriginalName == "require" {
					if dep, source, found := c.dependencyForCall(expr.Args[0]); found {
						if !dep.IsAsync {
							c.asset.Meta.SetBool("isCommonJS", true)
						}
						if !topLevel {
							dep.Meta.SetBool("shouldWrap", true)
						}
						return c.requireCall(source)
					}
				}
			}
			return e

		case ast.EImportCall:
			if dep, source, found := c.dependencyForCall(expr.Arg); found {
				depSyms := dep.EnsureSymbols()
				if !depSyms.HasExportSymbol("*") {
					c.catchallAsync(dep, depSyms)
				}
				return c.requireCall(source)
			}
			return e
		}
		return e
	}
}

func patternFromObjectPattern(pat ast.EObjectPattern) ast.Binding {
	props := make([]ast.PropertyBinding, 0, len(pat.Properties))
	for _, p := range pat.Properties {
		if id, ok := p.Value.Data.(ast.EIdentifier); ok {
			props = append(props, ast.PropertyBinding{Key: p.Key, Value: ast.BIdentifier{Ref: id.Ref}})
		}
	}
	return ast.BObject{Properties: props}
}

// arrowParamBinding extracts the single-parameter binding of a `.then`
// callback, when it's a plain identifier. A destructured parameter
// (`.then(({a,b}) => ...)`) gives no Args ref, so this returns nil and the
// caller falls back to the catch-all whole-namespace symbol; the
// destructured names are not extracted.
func arrowParamBinding(fn ast.Expr) ast.Binding {
	arrow, ok := fn.Data.(ast.EArrow)
	if !ok || len(arrow.Args) != 1 {
		return nil
	}
	return ast.BIdentifier{Ref: arrow.Args[0]}
}

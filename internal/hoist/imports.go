package hoist

import (
	"sort"

	"github.com/bernharduw/parcel/internal/ast"
	"github.com/bernharduw/parcel/internal/asset"
)

// handleStaticImport implements §4.3's "static import declarations" rule.
// It mutates dep's symbol table, renames every surviving local binding to
// its chosen import identifier, and hoists a single $parcel$require call.
// It returns nothing: the SImport node itself is always dropped by the
// caller.
func (c *ctx) handleStaticImport(imp ast.SImport) {
	dep := c.asset.DependencyBySpecifier(imp.Path)
	if dep == nil {
		raise(DependencyInvariantViolation, "import from %q has no declared dependency", imp.Path)
	}
	depSyms := dep.EnsureSymbols()

	if imp.DefaultRef != nil {
		c.handleImportSpecifier(dep, depSyms, "default", *imp.DefaultRef, ast.LocNone)
	}
	for _, item := range imp.Items {
		c.handleImportSpecifier(dep, depSyms, item.Imported, item.Local, item.Loc)
	}
	if imp.StarRef != nil {
		c.handleNamespaceImport(dep, depSyms, *imp.StarRef)
	}
	c.hoistRequire(dep, imp.Path)
}

func (c *ctx) handleImportSpecifier(dep *asset.Dependency, depSyms *asset.SymbolTable, imported string, local ast.Ref, loc ast.Loc) {
	sym := c.tree.Sym(local)
	if sym.UseCount == 0 && !c.asset.IsSource {
		return
	}

	if existing, ok := depSyms.Get(imported); ok {
		c.tree.MergeInto(local, existing.Local)
		return
	}

	if imported == "default" {
		dep.Meta.SetBool("hasDefaultImport", true)
	}

	isWeak := sym.UseCount == 0 && c.isSoleExportClauseRef(local)
	newRef, alias := safeRename(c.asset, c.scope, local, importName(c.asset, dep, imported))
	if alias != nil {
		c.hoisted = append(c.hoisted, *alias)
	}
	depSyms.Set(imported, asset.SymbolEntry{Local: newRef, Loc: loc, IsWeak: isWeak})
}

// isSoleExportClauseRef reports whether ref appears as the local side of a
// named `export {x}` specifier in any top-level export clause. The caller
// pairs it with UseCount == 0 (Crawl doesn't count export-clause locals) to
// get the condition §4.3 calls out for marking an import weak.
func (c *ctx) isSoleExportClauseRef(ref ast.Ref) bool {
	for _, stmt := range c.tree.Body {
		if ec, ok := stmt.Data.(ast.SExportClause); ok {
			for _, item := range ec.Items {
				if item.Local == ref {
					return true
				}
			}
		}
	}
	return false
}

// handleNamespaceImport implements the `import * as ns from "s"` branch of
// §4.3: if every reference to ns is a static member access, each accessed
// member gets its own fresh import identifier and ns disappears entirely;
// otherwise ns falls back to a single whole-namespace symbol.
func (c *ctx) handleNamespaceImport(dep *asset.Dependency, depSyms *asset.SymbolTable, ns ast.Ref) {
	members, allStatic := scanNamespaceRefs(c.tree.Body, ns)

	if allStatic && len(members) > 0 {
		names := make([]string, 0, len(members))
		for name := range members {
			names = append(names, name)
		}
		sort.Strings(names)

		memberRefs := make(map[string]ast.Ref, len(names))
		for _, name := range names {
			ref := c.scope.Push(c.tree, importName(c.asset, dep, name))
			memberRefs[name] = ref
			depSyms.Set(name, asset.SymbolEntry{Local: ref, Loc: ast.LocNone})
		}

		c.tree.Body = rewriteBody(c.tree.Body, func(e ast.Expr) ast.Expr {
			switch expr := e.Data.(type) {
			case ast.EDot:
				if id, ok := expr.Target.Data.(ast.EIdentifier); ok && id.Ref == ns {
					if r, ok := memberRefs[expr.Name]; ok {
						return ast.Expr{Loc: e.Loc, Data: ast.EIdentifier{Ref: r}}
					}
				}
			case ast.EIndex:
				if id, ok := expr.Target.Data.(ast.EIdentifier); ok && id.Ref == ns {
					if str, ok := expr.Index.Data.(ast.EString); ok {
						if r, ok := memberRefs[str.Value]; ok {
							return ast.Expr{Loc: e.Loc, Data: ast.EIdentifier{Ref: r}}
						}
					}
				}
			}
			return e
		})
		return
	}

	newRef, alias := safeRename(c.asset, c.scope, ns, importName(c.asset, dep, ""))
	if alias != nil {
		c.hoisted = append(c.hoisted, *alias)
	}
	depSyms.Set("*", asset.SymbolEntry{Local: newRef, Loc: ast.LocNone})
}

// scanNamespaceRefs walks the whole body looking for every reference to
// ref, classifying each as a static member access (EDot, or EIndex with a
// string-literal key) or a bare use. members collects every statically
// accessed property name; allStatic is false the moment any reference
// escapes static analysis.
func scanNamespaceRefs(stmts []ast.Stmt, ref ast.Ref) (members map[string]bool, allStatic bool) {
	members = make(map[string]bool)
	allStatic = true

	var walkStmts func([]ast.Stmt)
	var walkStmt func(ast.Stmt)
	var walkExpr func(ast.Expr, bool)

	walkStmts = func(ss []ast.Stmt) {
		for _, s := range ss {
			walkStmt(s)
		}
	}

	walkStmt = func(stmt ast.Stmt) {
		switch s := stmt.Data.(type) {
		case ast.SExpr:
			walkExpr(s.Value, false)
		case ast.SReturn:
			if s.Value != nil {
				walkExpr(*s.Value, false)
			}
		case ast.SLocal:
			for _, d := range s.Decls {
				if d.Value != nil {
					walkExpr(*d.Value, false)
				}
			}
		case ast.SFunction:
			walkStmts(s.Fn.Body)
		case ast.SExportDefault:
			if s.Expr != nil {
				walkExpr(*s.Expr, false)
			}
			if s.Function != nil {
				walkStmts(s.Function.Body)
			}
		case ast.SBlock:
			walkStmts(s.Stmts)
		case ast.SIf:
			walkExpr(s.Test, false)
			walkStmt(s.Yes)
			if s.No != nil {
				walkStmt(*s.No)
			}
		}
	}

	walkExpr = func(e ast.Expr, isStaticTarget bool) {
		switch expr := e.Data.(type) {
		case ast.EIdentifier:
			if expr.Ref == ref && !isStaticTarget {
				allStatic = false
			}
		case ast.EDot:
			if id, ok := expr.Target.Data.(ast.EIdentifier); ok && id.Ref == ref {
				members[expr.Name] = true
				return
			}
			walkExpr(expr.Target, false)
		case ast.EIndex:
			if id, ok := expr.Target.Data.(ast.EIdentifier); ok && id.Ref == ref {
				if str, ok2 := expr.Index.Data.(ast.EString); ok2 {
					members[str.Value] = true
					return
				}
				allStatic = false
				return
			}
			walkExpr(expr.Target, false)
			walkExpr(expr.Index, false)
		case ast.ECall:
			walkExpr(expr.Target, false)
			for _, a := range expr.Args {
				walkExpr(a, false)
			}
		case ast.EImportCall:
			walkExpr(expr.Arg, false)
		case ast.EAwait:
			walkExpr(expr.Value, false)
		case ast.EUnary:
			walkExpr(expr.Value, false)
		case ast.ELogical:
			walkExpr(expr.Left, false)
			walkExpr(expr.Right, false)
		case ast.EAssign:
			walkExpr(expr.Target, false)
			walkExpr(expr.Value, false)
		case ast.EObjectPattern:
			for _, p := range expr.Properties {
				walkExpr(p.Value, false)
			}
		case ast.EFunction:
			walkStmts(expr.Fn.Body)
		case ast.EArrow:
			if expr.BodyExpr != nil {
				walkExpr(*expr.BodyExpr, false)
			} else {
				walkStmts(expr.Body)
			}
		case ast.EArray:
			for _, it := range expr.Items {
				walkExpr(it, false)
			}
		case ast.EObject:
			for _, p := range expr.Properties {
				walkExpr(p.Value, false)
			}
		}
	}

	walkStmts(stmts)
	return members, allStatic
}

// handleAsyncImportBinding implements the four destructuring shapes of
// §4.3's async-continuation table, given the binding pattern the dynamic
// import's result flows into (the arrow parameter for `.then(fn)`, or the
// declaration/assignment pattern for the await forms). On a successful
// static match it renames the extracted locals to their importAsync
// identifiers and records them on dep; otherwise it falls back to the
// catch-all whole-namespace symbol.
func (c *ctx) handleAsyncImportBinding(dep *asset.Dependency, binding ast.Binding) {
	depSyms := dep.EnsureSymbols()

	switch b := binding.(type) {
	case ast.BObject:
		for _, prop := range b.Properties {
			id, ok := prop.Value.(ast.BIdentifier)
			if !ok {
				c.catchallAsync(dep, depSyms)
				return
			}
			newRef, alias := safeRename(c.asset, c.scope, id.Ref, importAsyncName(c.asset, dep, prop.Key))
			if alias != nil {
				c.hoisted = append(c.hoisted, *alias)
			}
			depSyms.Set(prop.Key, asset.SymbolEntry{Local: newRef, Loc: ast.LocNone})
		}
		return

	case ast.BIdentifier:
		members, allStatic := scanNamespaceRefs(c.tree.Body, b.Ref)
		if !allStatic || len(members) == 0 {
			c.catchallAsync(dep, depSyms)
			return
		}
		names := make([]string, 0, len(members))
		for name := range members {
			names = append(names, name)
		}
		sort.Strings(names)
		memberRefs := make(map[string]ast.Ref, len(names))
		for _, name := range names {
			ref := c.scope.Push(c.tree, importAsyncName(c.asset, dep, name))
			memberRefs[name] = ref
			depSyms.Set(name, asset.SymbolEntry{Local: ref, Loc: ast.LocNone})
		}
		c.tree.Body = rewriteBody(c.tree.Body, func(e ast.Expr) ast.Expr {
			if dot, ok := e.Data.(ast.EDot); ok {
				if id, ok := dot.Target.Data.(ast.EIdentifier); ok && id.Ref == b.Ref {
					if r, ok := memberRefs[dot.Name]; ok {
						return ast.Expr{Loc: e.Loc, Data: ast.EIdentifier{Ref: r}}
					}
				}
			}
			return e
		})
		return
	}

	c.catchallAsync(dep, depSyms)
}

func (c *ctx) catchallAsync(dep *asset.Dependency, depSyms *asset.SymbolTable) {
	dep.Meta.SetBool("isCommonJS", true)
	ref := c.scope.Push(c.tree, importName(c.asset, dep, ""))
	depSyms.Set("*", asset.SymbolEntry{Local: ref, Loc: ast.LocNone})
}

// dependencyForCall resolves the dependency for a require()/import() whose
// sole argument is the given expression. Returns nil if the argument isn't
// a string literal, or if it has no matching dependency -- both of which
// mean "leave the call alone" (§7's silent no-op).
func (c *ctx) dependencyForCall(arg ast.Expr) (*asset.Dependency, string, bool) {
	str, ok := arg.Data.(ast.EString)
	if !ok {
		return nil, "", false
	}
	dep := c.asset.DependencyBySpecifier(str.Value)
	if dep == nil {
		return nil, str.Value, false
	}
	return dep, str.Value, true
}

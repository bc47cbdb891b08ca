package hoist

import (
	"github.com/bernharduw/parcel/internal/ast"
	"github.com/bernharduw/parcel/internal/asset"
)

// handleExportDefault implements §4.4's default-export rule.
func (c *ctx) handleExportDefault(s ast.SExportDefault) []ast.Stmt {
	identifier := exportName(c.asset, "default")
	var local ast.Ref
	var decl ast.Stmt
	hasDecl := false

	switch {
	case s.Function != nil:
		if s.Function.Name != nil {
			newRef, alias := safeRename(c.asset, c.scope, *s.Function.Name, identifier)
			local = newRef
			if alias != nil {
				c.hoisted = append(c.hoisted, *alias)
			}
		} else {
			local = c.scope.Push(c.tree, identifier)
			ref := local
			s.Function.Name = &ref
		}
		decl = ast.Stmt{Loc: ast.LocNone, Data: ast.SFunction{Fn: s.Function}}
		hasDecl = true

	case s.Class != nil:
		if s.Class.Name != nil {
			newRef, alias := safeRename(c.asset, c.scope, *s.Class.Name, identifier)
			local = newRef
			if alias != nil {
				c.hoisted = append(c.hoisted, *alias)
			}
		} else {
			local = c.scope.Push(c.tree, identifier)
			ref := local
			s.Class.Name = &ref
		}
		decl = ast.Stmt{Loc: ast.LocNone, Data: ast.SClass{Class: s.Class}}
		hasDecl = true

	case s.Expr != nil:
		if id, ok := s.Expr.Data.(ast.EIdentifier); ok {
			newRef, alias := safeRename(c.asset, c.scope, id.Ref, identifier)
			local = newRef
			if alias != nil {
				c.hoisted = append(c.hoisted, *alias)
			}
		} else {
			local = c.scope.Push(c.tree, identifier)
			decl = ast.Stmt{Loc: ast.LocNone, Data: ast.SLocal{
				Kind:  ast.LocalVar,
				Decls: []ast.Decl{{Binding: ast.BIdentifier{Ref: local}, Value: s.Expr}},
			}}
			hasDecl = true
		}
	}

	syms := c.asset.EnsureSymbols()
	if !syms.HasExportSymbol("default") {
		syms.Set("default", asset.SymbolEntry{Local: local, Loc: ast.LocNone})
	}

	var out []ast.Stmt
	if hasDecl {
		out = append(out, decl)
	}
	out = append(out, c.emitExport("default", local))
	return out
}

// exportLocal allocates (or reuses) the export identifier for one exported
// name, renames the underlying binding to it, records the symbol-table
// entry, and appends the $parcel$export call. Shared by every "a name
// becomes exported" shape: named declarations (variables, functions,
// classes) and named specifiers. handleExportDefault renames with
// safeRename directly instead.
func (c *ctx) exportLocal(local ast.Ref, exported string, syms *asset.SymbolTable, out *[]ast.Stmt) {
	identifier := exportName(c.asset, exported)
	newRef, alias := safeRename(c.asset, c.scope, local, identifier)
	if alias != nil {
		*out = append(*out, *alias)
	}
	if !syms.HasExportSymbol(exported) {
		syms.Set(exported, asset.SymbolEntry{Local: newRef, Loc: ast.LocNone})
	}
	*out = append(*out, c.emitExport(exported, newRef))
}

func (c *ctx) exportBinding(b ast.Binding, syms *asset.SymbolTable, out *[]ast.Stmt) {
	switch bind := b.(type) {
	case ast.BIdentifier:
		name := c.originalName[bind.Ref]
		if name == "" {
			name = c.tree.Sym(bind.Ref).OriginalName
		}
		c.exportLocal(bind.Ref, name, syms, out)
	case ast.BObject:
		for _, prop := range bind.Properties {
			c.exportBinding(prop.Value, syms, out)
		}
	}
}

// handleExportNamedDecl implements "export const x = ...;" / "export let
// ..." / "export var ...": the export keyword is stripped and the bare
// declaration stays in place, followed by one $parcel$export call per
// declared name.
func (c *ctx) handleExportNamedDecl(s ast.SLocal) []ast.Stmt {
	syms := c.asset.EnsureSymbols()
	bare := s
	bare.IsExport = false
	out := []ast.Stmt{{Loc: ast.LocNone, Data: bare}}

	for _, decl := range s.Decls {
		c.exportBinding(decl.Binding, syms, &out)
	}
	return out
}

func (c *ctx) handleExportNamedFunction(s ast.SFunction) []ast.Stmt {
	syms := c.asset.EnsureSymbols()
	bare := s
	bare.IsExport = false
	out := []ast.Stmt{{Loc: ast.LocNone, Data: bare}}

	if s.Fn.Name != nil {
		name := c.originalName[*s.Fn.Name]
		if name == "" {
			name = c.tree.Sym(*s.Fn.Name).OriginalName
		}
		c.exportLocal(*s.Fn.Name, name, syms, &out)
	}
	return out
}

func (c *ctx) handleExportNamedClass(s ast.SClass) []ast.Stmt {
	syms := c.asset.EnsureSymbols()
	bare := s
	bare.IsExport = false
	out := []ast.Stmt{{Loc: ast.LocNone, Data: bare}}

	if s.Class.Name != nil {
		name := c.originalName[*s.Class.Name]
		if name == "" {
			name = c.tree.Sym(*s.Class.Name).OriginalName
		}
		c.exportLocal(*s.Class.Name, name, syms, &out)
	}
	return out
}

// handleExportClause implements "export {x, y as z};" (no source). Items
// carry Local = the binding in this module, Imported = the name it's
// published under.
func (c *ctx) handleExportClause(s ast.SExportClause) []ast.Stmt {
	syms := c.asset.EnsureSymbols()
	var out []ast.Stmt
	for _, item := range s.Items {
		c.exportLocal(item.Local, item.Imported, syms, &out)
	}
	return out
}

// handleExportFrom implements re-exports with a source: "export {x as y}
// from 's'", "export x from 's'", "export * as ns from 's'". Per the
// ClauseItem convention used here, Imported is the name this module
// publishes and item.Local's symbol name (not a real binding -- nothing in
// the module ever declares it) carries the name being pulled from the
// dependency. `export * as ns from 's'` is the exception: its item has
// Imported == "*" and Local names ns, so "*" is pulled and ns published.
func (c *ctx) handleExportFrom(s ast.SExportFrom) {
	dep := c.asset.DependencyBySpecifier(s.Path)
	if dep == nil {
		raise(DependencyInvariantViolation, "export ... from %q has no declared dependency", s.Path)
	}
	depSyms := dep.EnsureSymbols()
	assetSyms := c.asset.EnsureSymbols()

	for _, item := range s.Items {
		sourceName := c.tree.Sym(item.Local).OriginalName
		exported := item.Imported
		if item.Imported == "*" {
			sourceName = "*"
			exported = c.originalName[item.Local]
			if exported == "" {
				exported = c.tree.Sym(item.Local).OriginalName
			}
		}
		importID := c.scope.Push(c.tree, importName(c.asset, dep, sourceName))
		depSyms.Set(sourceName, asset.SymbolEntry{Local: importID, Loc: item.Loc, IsWeak: true})
		if !assetSyms.HasExportSymbol(exported) {
			assetSyms.Set(exported, asset.SymbolEntry{Local: importID, Loc: item.Loc})
		}
		c.hoisted = append(c.hoisted, c.emitExport(exported, importID))
	}
	c.hoistRequire(dep, s.Path)
}

// handleExportStar implements "export * from 's'": every enumerable
// property of the dependency's namespace, except "default", is copied
// onto this module's exports object at evaluation time.
func (c *ctx) handleExportStar(s ast.SExportStar) {
	dep := c.asset.DependencyBySpecifier(s.Path)
	if dep == nil {
		raise(DependencyInvariantViolation, "export * from %q has no declared dependency", s.Path)
	}
	depSyms := dep.EnsureSymbols()
	starRef := c.tree.NewSymbol(ast.SymbolGenerated, "*")
	depSyms.Set("*", asset.SymbolEntry{Local: starRef, Loc: ast.LocNone, IsWeak: true})

	c.requireEmitted[dep] = true
	call := callExpr(c.identFor(c.ph.exportWildcard), c.identFor(c.exportsRef()), c.requireCall(s.Path))
	c.hoisted = append(c.hoisted, exprStmt(call))
}

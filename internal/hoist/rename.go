package hoist

import (
	"sort"

	"github.com/bernharduw/parcel/internal/ast"
	"github.com/bernharduw/parcel/internal/asset"
)

// safeRename renames ref to newName. For a constant binding this is the
// whole operation: one symbol-table write, since every reference already
// goes through the same Ref (see ast.Tree.Rename).
//
// For a non-constant (reassigned) binding, renaming the declaration in
// place is unsafe in the general case a name-based scope tracker has to
// defend against -- the insight behind Babel's identically-named
// safety valve, which this mirrors: instead, a fresh alias binding is
// declared (`var newName = <current ref>;`) and the caller is handed the
// new Ref to use at the rename site, while the original declaration keeps
// its own name and continues to be reassigned undisturbed everywhere else
// in the module.
func safeRename(a *asset.Asset, scope *ast.Scope, ref ast.Ref, newName string) (ast.Ref, *ast.Stmt) {
	sym := a.Tree.Sym(ref)
	if sym.Constant {
		a.Tree.Rename(ref, newName)
		return ref, nil
	}

	aliasRef := scope.Push(a.Tree, newName)
	oldIdent := ast.Expr{Loc: ast.LocNone, Data: ast.EIdentifier{Ref: ref}}
	stmt := ast.Stmt{Loc: ast.LocNone, Data: ast.SLocal{
		Kind:  ast.LocalVar,
		Decls: []ast.Decl{{Binding: ast.BIdentifier{Ref: aliasRef}, Value: &oldIdent}},
	}}
	return aliasRef, &stmt
}

// renameTopLevel implements §4.2: every top-level binding not already
// carrying the asset prefix is renamed to `$<id>$var$<original>`. Runs
// once right after pre-scan (before any import/export/CJS rewriting
// touches the tree) and again, idempotently, at program-exit (§4.6) to
// catch anything a rewriter introduced without already using the naming
// scheme -- in practice that never happens, since every rewriter below
// allocates its own symbols already prefixed, but re-running costs nothing
// and keeps this pass honest about the spec's stated two call sites.
//
// Returns any alias declarations introduced for non-constant bindings;
// the caller hoists them to the front of the body alongside imports.
func renameTopLevel(a *asset.Asset) []ast.Stmt {
	scope := a.Tree.Scope
	names := make([]string, 0, len(scope.Members))
	for name := range scope.Members {
		names = append(names, name)
	}
	sort.Strings(names)

	var extra []ast.Stmt
	for _, name := range names {
		member := scope.Members[name]
		sym := a.Tree.Sym(member.Ref)
		if sym.Kind == ast.SymbolGenerated {
			continue
		}
		if hasAssetPrefix(a, sym.OriginalName) {
			continue
		}

		newRef, stmt := safeRename(a, scope, member.Ref, varName(a, sym.OriginalName))
		delete(scope.Members, name)
		if stmt != nil {
			extra = append(extra, *stmt)
			scope.Members[a.Tree.Sym(newRef).OriginalName] = ast.ScopeMember{Ref: newRef}
		} else {
			scope.Members[a.Tree.Sym(newRef).OriginalName] = member
		}
	}
	return extra
}

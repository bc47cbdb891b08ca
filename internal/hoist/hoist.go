// Package hoist implements the scope-hoisting transform: it rewrites one
// module's syntax tree in place so that, once every module in a bundle has
// gone through it, the whole bundle can run concatenated in a single
// scope instead of requiring a module-wrapper function per file.
//
// Hoist is the package's only entry point. Everything else here is split
// by concern: prescan.go classifies the module (ES module vs CommonJS vs
// needs-wrapping) before anything is rewritten, rename.go gives every
// top-level binding a module-unique name, imports.go/exports.go/cjs.go
// rewrite the three kinds of module-boundary syntax, and wrap.go applies
// the closure fallback when static rewriting alone isn't safe.
package hoist

import (
	"fmt"

	"github.com/bernharduw/parcel/internal/ast"
	"github.com/bernharduw/parcel/internal/asset"
)

// Hoist rewrites a.Tree in place. It returns a non-nil *Error (never a
// plain error, so callers that care can type-assert for the Kind) if the
// tree couldn't be processed; the asset is left in an undefined state in
// that case and should be discarded rather than reused.
func Hoist(a *asset.Asset) (err error) {
	if a.Tree.Version != ast.Version {
		return newError(UnsupportedAST, "tree version %q, want %q", a.Tree.Version, ast.Version)
	}

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*Error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	scan := preScan(a)
	c := newCtx(a)

	a.Meta.SetBool("isES6Module", scan.isES6Module)
	a.Meta.SetBool("isCommonJS", scan.isCommonJS)
	a.Meta.SetBool("shouldWrap", scan.shouldWrap)

	if !scan.isES6Module && !scan.isCommonJS {
		// Neither import/export syntax nor any CommonJS marker appeared
		// anywhere in the module: treat it as a plain script whose only
		// exports anyone could possibly reach are through the bare
		// exports object.
		a.Meta.SetBool("isCommonJS", true)
		a.EnsureSymbols().Set("*", asset.SymbolEntry{Local: c.exportsRef(), Loc: ast.LocNone})
	}

	if scan.resolveExportsBailed {
		// Static analysis lost track of what this module exports (a bare
		// `module.exports` used as a value, say). A self-dependency whose
		// namespace resolves to the literal placeholder "@exports" tells
		// downstream passes they can't trust this module's symbol table
		// to be complete.
		self := asset.NewDependency(fmt.Sprintf("@exports:%s", a.ID), false)
		placeholder := a.Tree.NewSymbol(ast.SymbolGenerated, "@exports")
		self.EnsureSymbols().Set("*", asset.SymbolEntry{Local: placeholder, Loc: ast.LocNone})
		a.AddDependency(self)
	}

	c.snapshotOriginalNames()
	c.hoisted = append(c.hoisted, renameTopLevel(a)...)

	body := c.rewriteModuleBody(scan.shouldWrap)
	a.Tree.Body = c.finalize(scan, body)

	return nil
}

// Package asset holds the Asset and Dependency entities the hoister
// mutates: the module being transformed, its declared dependencies, and
// the symbol tables that record what each one exports.
package asset

import "github.com/bernharduw/parcel/internal/ast"

// SymbolEntry is one row of a symbol table: the outward-facing name maps
// to the local binding it's attached to in the emitted code, an optional
// source location, and whether downstream tree-shaking may elide it.
type SymbolEntry struct {
	Local  ast.Ref
	Loc    ast.Loc
	IsWeak bool
}

// SymbolTable maps exported names ("default", "*", or an identifier) to
// their local binding. Insertion order is preserved so exportSymbols()
// enumerates deterministically, matching the parser's left-to-right
// declaration order.
type SymbolTable struct {
	entries map[string]SymbolEntry
	order   []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{entries: make(map[string]SymbolEntry)}
}

func (t *SymbolTable) Set(name string, entry SymbolEntry) {
	if _, exists := t.entries[name]; !exists {
		t.order = append(t.order, name)
	}
	t.entries[name] = entry
}

func (t *SymbolTable) Get(name string) (SymbolEntry, bool) {
	entry, ok := t.entries[name]
	return entry, ok
}

func (t *SymbolTable) Delete(name string) {
	if _, exists := t.entries[name]; !exists {
		return
	}
	delete(t.entries, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *SymbolTable) HasExportSymbol(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// HasLocalSymbol reports whether some exported name resolves to the given
// local ref -- the reverse lookup the data model calls out explicitly.
func (t *SymbolTable) HasLocalSymbol(local ast.Ref) bool {
	for _, entry := range t.entries {
		if entry.Local == local {
			return true
		}
	}
	return false
}

// ExportSymbols enumerates every exported name in declaration order.
func (t *SymbolTable) ExportSymbols() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Clear drops every entry except the given names (used by the wrap/bailout
// cleanup in §4.6: "clear all previously recorded exported names except
// '*'").
func (t *SymbolTable) Clear(keep ...string) {
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}
	for _, name := range t.order {
		if !keepSet[name] {
			delete(t.entries, name)
		}
	}
	newOrder := t.order[:0]
	for _, name := range t.order {
		if keepSet[name] {
			newOrder = append(newOrder, name)
		}
	}
	t.order = newOrder
}

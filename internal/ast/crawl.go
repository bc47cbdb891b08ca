package ast

// Crawl builds (or rebuilds) the scope tree for a tree whose statements
// already reference symbols by Ref. This stands in for the "prior pass"
// that a real front end would run during parsing: it records which names
// are declared in which scope, flags bindings that are reassigned
// (Constant = false), and tallies how many times each symbol is used.
//
// Builder calls this once after a fixture tree is fully constructed, and
// the tree-sitter bridge calls it once after translating a parsed file.
// The hoister itself never calls it directly -- it only re-crawls a single
// scope's Members map in place via Scope.Push, which needs no rebuild.
func Crawl(t *Tree) {
	for i := range t.Symbols {
		t.Symbols[i].UseCount = 0
	}

	entry := NewScope(ScopeEntry, nil)
	t.Scope = entry

	c := &crawler{tree: t}
	c.declareStmts(entry, t.Body)
	c.walkStmts(entry, t.Body)
}

type crawler struct {
	tree *Tree
}

func (c *crawler) declareStmts(scope *Scope, stmts []Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.Data.(type) {
		case SLocal:
			for _, decl := range s.Decls {
				c.declareBinding(scope, decl.Binding)
			}
		case SFunction:
			if s.Fn.Name != nil {
				scope.Members[c.tree.Sym(*s.Fn.Name).OriginalName] = ScopeMember{Ref: *s.Fn.Name}
			}
		case SClass:
			if s.Class.Name != nil {
				scope.Members[c.tree.Sym(*s.Class.Name).OriginalName] = ScopeMember{Ref: *s.Class.Name}
			}
		case SImport:
			if s.DefaultRef != nil {
				scope.Members[c.tree.Sym(*s.DefaultRef).OriginalName] = ScopeMember{Ref: *s.DefaultRef}
			}
			if s.StarRef != nil {
				scope.Members[c.tree.Sym(*s.StarRef).OriginalName] = ScopeMember{Ref: *s.StarRef}
			}
			for _, item := range s.Items {
				scope.Members[c.tree.Sym(item.Local).OriginalName] = ScopeMember{Ref: item.Local, Loc: item.Loc}
			}
		}
	}
}

func (c *crawler) declareBinding(scope *Scope, b Binding) {
	switch bind := b.(type) {
	case BIdentifier:
		scope.Members[c.tree.Sym(bind.Ref).OriginalName] = ScopeMember{Ref: bind.Ref}
	case BObject:
		for _, prop := range bind.Properties {
			c.declareBinding(scope, prop.Value)
		}
	}
}

func (c *crawler) walkStmts(scope *Scope, stmts []Stmt) {
	for _, stmt := range stmts {
		c.walkStmt(scope, stmt)
	}
}

func (c *crawler) walkStmt(scope *Scope, stmt Stmt) {
	switch s := stmt.Data.(type) {
	case SExpr:
		c.walkExpr(scope, s.Value)
	case SReturn:
		if s.Value != nil {
			c.walkExpr(scope, *s.Value)
		}
	case SLocal:
		for _, decl := range s.Decls {
			if decl.Value != nil {
				c.walkExpr(scope, *decl.Value)
			}
		}
	case SFunction:
		c.walkFn(scope, s.Fn)
	case SExportDefault:
		if s.Expr != nil {
			c.walkExpr(scope, *s.Expr)
		}
		if s.Function != nil {
			c.walkFn(scope, s.Function)
		}
	case SBlock:
		c.walkStmts(scope, s.Stmts)
	case SIf:
		c.walkExpr(scope, s.Test)
		c.walkStmt(scope, s.Yes)
		if s.No != nil {
			c.walkStmt(scope, *s.No)
		}
	}
}

func (c *crawler) walkFn(parent *Scope, fn *Fn) {
	body := NewScope(ScopeFunctionBody, parent)
	for _, ref := range fn.Args {
		body.Members[c.tree.Sym(ref).OriginalName] = ScopeMember{Ref: ref}
	}
	c.declareStmts(body, fn.Body)
	c.walkStmts(body, fn.Body)
}

func (c *crawler) walkExpr(scope *Scope, expr Expr) {
	switch e := expr.Data.(type) {
	case EIdentifier:
		sym := c.tree.Sym(e.Ref)
		sym.UseCount++
		if sym.Kind == SymbolUnbound {
			scope.Globals[sym.OriginalName] = true
		}
	case EDot:
		c.walkExpr(scope, e.Target)
	case EIndex:
		c.walkExpr(scope, e.Target)
		c.walkExpr(scope, e.Index)
	case ECall:
		c.walkExpr(scope, e.Target)
		for _, arg := range e.Args {
			c.walkExpr(scope, arg)
		}
	case EImportCall:
		c.walkExpr(scope, e.Arg)
	case EAwait:
		c.walkExpr(scope, e.Value)
	case EUnary:
		c.walkExpr(scope, e.Value)
	case ELogical:
		c.walkExpr(scope, e.Left)
		c.walkExpr(scope, e.Right)
	case EAssign:
		c.markAssignmentTargets(e.Target)
		c.walkExpr(scope, e.Target)
		c.walkExpr(scope, e.Value)
	case EObjectPattern:
		for _, prop := range e.Properties {
			c.walkExpr(scope, prop.Value)
		}
	case EFunction:
		c.walkFn(scope, e.Fn)
	case EArrow:
		body := NewScope(ScopeFunctionBody, scope)
		for _, ref := range e.Args {
			body.Members[c.tree.Sym(ref).OriginalName] = ScopeMember{Ref: ref}
		}
		if e.BodyExpr != nil {
			c.walkExpr(body, *e.BodyExpr)
		} else {
			c.declareStmts(body, e.Body)
			c.walkStmts(body, e.Body)
		}
	case EArray:
		for _, item := range e.Items {
			c.walkExpr(scope, item)
		}
	case EObject:
		for _, prop := range e.Properties {
			c.walkExpr(scope, prop.Value)
		}
	}
}

// markAssignmentTargets flags every identifier directly assigned to (not
// read through) as non-constant, matching the real-world notion of
// "reassigned after declaration" that drives safeRename.
func (c *crawler) markAssignmentTargets(target Expr) {
	switch e := target.Data.(type) {
	case EIdentifier:
		c.tree.Sym(e.Ref).Constant = false
	case EObjectPattern:
		for _, prop := range e.Properties {
			c.markAssignmentTargets(prop.Value)
		}
	}
}

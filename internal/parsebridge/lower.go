package parsebridge

import (
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/bernharduw/parcel/internal/ast"
)

// lowering walks one tree-sitter parse tree and produces the ast.Tree
// shapes hoist.Hoist understands. It tracks top-level bindings in a single
// flat scope (locals), which is a simplification: real JS has block scoping
// and var-hoisting rules this bridge doesn't model. That's acceptable here
// because the hoister itself only ever asks two questions about a
// reference -- "is this the well-known free `module`/`exports`/`require`/
// `eval`/`global`, or a declared local" -- both of which a flat top-level
// table answers correctly for the overwhelming majority of real modules.
type lowering struct {
	b      *ast.Builder
	source []byte
	locals map[string]ast.Ref
}

func newLowering(b *ast.Builder, source []byte) *lowering {
	return &lowering{b: b, source: source, locals: make(map[string]ast.Ref)}
}

func (l *lowering) text(n *ts.Node) string {
	return string(n.Utf8Text(l.source))
}

func (l *lowering) declareLocal(name string) ast.Ref {
	ref := l.b.Declare(name)
	l.locals[name] = ref
	return ref
}

func (l *lowering) declareImportLocal(name string) ast.Ref {
	ref := l.b.DeclareImport(name)
	l.locals[name] = ref
	return ref
}

func (l *lowering) resolveIdent(name string) ast.Ref {
	if ref, ok := l.locals[name]; ok {
		return ref
	}
	return l.b.Global(name)
}

// namedChildren returns every named (non-punctuation) child.
func namedChildren(n *ts.Node) []*ts.Node {
	out := make([]*ts.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (l *lowering) program(root *ts.Node) []ast.Stmt {
	var out []ast.Stmt
	for _, c := range namedChildren(root) {
		out = append(out, l.topStmt(c))
	}
	return out
}

// stringLiteralValue strips the surrounding quotes tree-sitter includes in
// a "string" node's span.
func stringLiteralValue(raw string) string {
	if len(raw) >= 2 {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func (l *lowering) opaqueStmt(n *ts.Node) ast.Stmt {
	return ast.Stmt{Data: ast.SExpr{Value: l.b.Opaque(l.text(n))}}
}

func (l *lowering) topStmt(n *ts.Node) ast.Stmt {
	switch n.Kind() {
	case "import_statement":
		return l.importStatement(n)

	case "export_statement":
		return l.exportStatement(n)

	case "lexical_declaration", "variable_declaration":
		return l.localDeclaration(n, false)

	case "expression_statement":
		children := namedChildren(n)
		if len(children) != 1 {
			return l.opaqueStmt(n)
		}
		return ast.Stmt{Data: ast.SExpr{Value: l.expr(children[0])}}

	case "return_statement":
		children := namedChildren(n)
		if len(children) == 0 {
			return ast.Stmt{Data: ast.SReturn{}}
		}
		v := l.expr(children[0])
		return ast.Stmt{Data: ast.SReturn{Value: &v}}

	case "empty_statement":
		return ast.Stmt{Data: ast.SEmpty{}}

	default:
		// Directive prologue entries parse as an expression_statement
		// wrapping a bare string in real source; tree-sitter-javascript
		// doesn't give them a distinct top-level kind, so a leading
		// "use strict" is caught by the expression_statement case above
		// lowering a "string" node -- see l.expr's EString case. The
		// directive stripping in hoist's rewriteModuleBody (§4.5) matches
		// only SDirective, so such a directive is not stripped.
		return l.opaqueStmt(n)
	}
}

func (l *lowering) localDeclaration(n *ts.Node, isExport bool) ast.Stmt {
	kind := ast.LocalVar
	switch n.Kind() {
	case "lexical_declaration":
		if strings.HasPrefix(l.text(n), "const") {
			kind = ast.LocalConst
		} else {
			kind = ast.LocalLet
		}
	}

	var decls []ast.Decl
	for _, c := range namedChildren(n) {
		if c.Kind() != "variable_declarator" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		valueNode := c.ChildByFieldName("value")
		if nameNode == nil {
			continue
		}

		binding := l.binding(nameNode, true)

		var value *ast.Expr
		if valueNode != nil {
			v := l.expr(valueNode)
			value = &v
		}
		decls = append(decls, ast.Decl{Binding: binding, Value: value})
	}

	return ast.Stmt{Data: ast.SLocal{Kind: kind, Decls: decls, IsExport: isExport}}
}

// binding lowers a declaration-site pattern. declare controls whether a
// plain identifier allocates a fresh local (true, for `let x = ...`) or
// resolves an existing one (false, for an assignment-target pattern like
// `({a} = await import(s))`, which is an expression, not a declaration).
func (l *lowering) binding(n *ts.Node, declare bool) ast.Binding {
	switch n.Kind() {
	case "identifier":
		name := l.text(n)
		if declare {
			return ast.BIdentifier{Ref: l.declareLocal(name)}
		}
		return ast.BIdentifier{Ref: l.resolveIdent(name)}

	case "object_pattern":
		var props []ast.PropertyBinding
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "shorthand_property_identifier_pattern":
				name := l.text(c)
				var ref ast.Ref
				if declare {
					ref = l.declareLocal(name)
				} else {
					ref = l.resolveIdent(name)
				}
				props = append(props, ast.PropertyBinding{Key: name, Value: ast.BIdentifier{Ref: ref}})
			case "pair_pattern":
				keyNode := c.ChildByFieldName("key")
				valueNode := c.ChildByFieldName("value")
				if keyNode == nil || valueNode == nil {
					continue
				}
				props = append(props, ast.PropertyBinding{Key: l.text(keyNode), Value: l.binding(valueNode, declare)})
			}
		}
		return ast.BObject{Properties: props}

	default:
		// Array patterns, default values, and rest elements in a binding
		// position aren't modeled -- see ast.Binding's two-shape design,
		// which only needs plain identifiers and object patterns for
		// every shape §4.3's async-import extraction names.
		return ast.BIdentifier{Ref: l.declareLocal(l.text(n))}
	}
}

func (l *lowering) importStatement(n *ts.Node) ast.Stmt {
	imp := ast.SImport{}

	sourceNode := n.ChildByFieldName("source")
	if sourceNode != nil {
		imp.Path = stringLiteralValue(l.text(sourceNode))
	}

	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "string":
			if imp.Path == "" {
				imp.Path = stringLiteralValue(l.text(c))
			}
		case "import_clause":
			for _, clauseChild := range namedChildren(c) {
				switch clauseChild.Kind() {
				case "identifier":
					ref := l.declareImportLocal(l.text(clauseChild))
					imp.DefaultRef = &ref
				case "namespace_import":
					for _, nc := range namedChildren(clauseChild) {
						if nc.Kind() == "identifier" {
							ref := l.declareLocal(l.text(nc))
							imp.StarRef = &ref
						}
					}
				case "named_imports":
					for _, spec := range namedChildren(clauseChild) {
						if spec.Kind() != "import_specifier" {
							continue
						}
						nameNode := spec.ChildByFieldName("name")
						aliasNode := spec.ChildByFieldName("alias")
						if nameNode == nil {
							continue
						}
						imported := l.text(nameNode)
						localNode := nameNode
						if aliasNode != nil {
							localNode = aliasNode
						}
						ref := l.declareImportLocal(l.text(localNode))
						imp.Items = append(imp.Items, ast.ClauseItem{Imported: imported, Local: ref})
					}
				}
			}
		}
	}

	return ast.Stmt{Data: imp}
}

func (l *lowering) exportStatement(n *ts.Node) ast.Stmt {
	children := namedChildren(n)
	if len(children) == 0 {
		return l.opaqueStmt(n)
	}

	// `export default ...`
	isDefault := false
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == "default" {
			isDefault = true
		}
	}
	if isDefault {
		target := children[0]
		switch target.Kind() {
		case "function_declaration", "function":
			fn := l.fn(target)
			return ast.Stmt{Data: ast.SExportDefault{Function: fn}}
		case "class_declaration", "class":
			return ast.Stmt{Data: ast.SExportDefault{Class: l.class(target)}}
		default:
			v := l.expr(target)
			return ast.Stmt{Data: ast.SExportDefault{Expr: &v}}
		}
	}

	first := children[0]
	switch first.Kind() {
	case "export_clause":
		sourceNode := n.ChildByFieldName("source")
		items := l.exportClauseItems(first)
		if sourceNode != nil {
			return ast.Stmt{Data: ast.SExportFrom{Path: stringLiteralValue(l.text(sourceNode)), Items: items}}
		}
		return ast.Stmt{Data: ast.SExportClause{Items: items}}

	case "namespace_export":
		// export * as ns from "s"
		sourceNode := n.ChildByFieldName("source")
		nameRef := ""
		for _, c := range namedChildren(first) {
			if c.Kind() == "identifier" {
				nameRef = l.text(c)
			}
		}
		path := ""
		if sourceNode != nil {
			path = stringLiteralValue(l.text(sourceNode))
		}
		return ast.Stmt{Data: ast.SExportFrom{Path: path, Items: []ast.ClauseItem{{Imported: "*", Local: l.declareLocal(nameRef)}}}}

	case "lexical_declaration", "variable_declaration":
		return l.localDeclaration(first, true)

	case "function_declaration":
		fn := l.fn(first)
		return ast.Stmt{Data: ast.SFunction{Fn: fn, IsExport: true}}

	case "class_declaration":
		return ast.Stmt{Data: ast.SClass{Class: l.class(first), IsExport: true}}

	case "string":
		// export * from "s"
		return ast.Stmt{Data: ast.SExportStar{Path: stringLiteralValue(l.text(first))}}

	default:
		return l.opaqueStmt(n)
	}
}

func (l *lowering) exportClauseItems(clause *ts.Node) []ast.ClauseItem {
	var items []ast.ClauseItem
	for _, spec := range namedChildren(clause) {
		if spec.Kind() != "export_specifier" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		aliasNode := spec.ChildByFieldName("alias")
		if nameNode == nil {
			continue
		}
		localName := l.text(nameNode)
		exported := localName
		if aliasNode != nil {
			exported = l.text(aliasNode)
		}
		items = append(items, ast.ClauseItem{Imported: exported, Local: l.resolveIdent(localName)})
	}
	return items
}

func (l *lowering) fn(n *ts.Node) *ast.Fn {
	fn := &ast.Fn{}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		ref := l.declareLocal(l.text(nameNode))
		fn.Name = &ref
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range namedChildren(params) {
			if p.Kind() == "identifier" {
				fn.Args = append(fn.Args, l.declareLocal(l.text(p)))
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fn.Body = l.program(body)
	}
	return fn
}

func (l *lowering) class(n *ts.Node) *ast.Class {
	class := &ast.Class{}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		ref := l.declareLocal(l.text(nameNode))
		class.Name = &ref
	}
	return class
}

// expr lowers the expression shapes §4's rewriters actually inspect;
// everything else becomes an EOpaque carrying the original source span, so
// a construct this bridge doesn't understand still round-trips instead of
// being dropped.
func (l *lowering) expr(n *ts.Node) ast.Expr {
	switch n.Kind() {
	case "identifier":
		name := l.text(n)
		if name == "undefined" {
			return ast.Expr{Data: ast.EUndefined{}}
		}
		return ast.Expr{Data: ast.EIdentifier{Ref: l.resolveIdent(name)}}

	case "this":
		return ast.Expr{Data: ast.EThis{}}

	case "null":
		return ast.Expr{Data: ast.ENull{}}

	case "true":
		return ast.Expr{Data: ast.EBoolean{Value: true}}

	case "false":
		return ast.Expr{Data: ast.EBoolean{Value: false}}

	case "number":
		v, _ := strconv.ParseFloat(l.text(n), 64)
		return ast.Expr{Data: ast.ENumber{Value: v}}

	case "string":
		return ast.Expr{Data: ast.EString{Value: stringLiteralValue(l.text(n))}}

	case "parenthesized_expression":
		children := namedChildren(n)
		if len(children) == 1 {
			return l.expr(children[0])
		}
		return l.opaqueExpr(n)

	case "member_expression":
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return l.opaqueExpr(n)
		}
		return ast.Expr{Data: ast.EDot{Target: l.expr(obj), Name: l.text(prop)}}

	case "subscript_expression":
		obj := n.ChildByFieldName("object")
		idx := n.ChildByFieldName("index")
		if obj == nil || idx == nil {
			return l.opaqueExpr(n)
		}
		return ast.Expr{Data: ast.EIndex{Target: l.expr(obj), Index: l.expr(idx)}}

	case "call_expression":
		fnNode := n.ChildByFieldName("function")
		argsNode := n.ChildByFieldName("arguments")
		if fnNode == nil {
			return l.opaqueExpr(n)
		}
		var args []ast.Expr
		if argsNode != nil {
			for _, a := range namedChildren(argsNode) {
				args = append(args, l.expr(a))
			}
		}
		// `import(s)` parses as a call_expression whose function child has
		// kind "import" -- route it to EImportCall instead of a plain ECall
		// so the async-import rewriters in §4.3 can recognize it.
		if fnNode.Kind() == "import" {
			if len(args) == 0 {
				return l.opaqueExpr(n)
			}
			return ast.Expr{Data: ast.EImportCall{Arg: args[0]}}
		}
		return ast.Expr{Data: ast.ECall{Target: l.expr(fnNode), Args: args}}

	case "await_expression":
		children := namedChildren(n)
		if len(children) != 1 {
			return l.opaqueExpr(n)
		}
		return ast.Expr{Data: ast.EAwait{Value: l.expr(children[0])}}

	case "unary_expression":
		op := n.ChildByFieldName("operator")
		argNode := n.ChildByFieldName("argument")
		if op == nil || argNode == nil {
			return l.opaqueExpr(n)
		}
		var kind ast.UnOp
		switch l.text(op) {
		case "typeof":
			kind = ast.UnOpTypeof
		case "delete":
			kind = ast.UnOpDelete
		case "void":
			kind = ast.UnOpVoid
		default:
			return l.opaqueExpr(n)
		}
		return ast.Expr{Data: ast.EUnary{Op: kind, Value: l.expr(argNode)}}

	case "binary_expression":
		op := n.ChildByFieldName("operator")
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if op == nil || left == nil || right == nil {
			return l.opaqueExpr(n)
		}
		var kind ast.LogicalOp
		switch l.text(op) {
		case "&&":
			kind = ast.LogicalAnd
		case "||":
			kind = ast.LogicalOr
		case "??":
			kind = ast.LogicalNullish
		default:
			// Arithmetic/comparison operators have no ELogical/EUnary
			// equivalent in this AST; only the three short-circuiting
			// operators are modeled, as ELogical.
			return l.opaqueExpr(n)
		}
		return ast.Expr{Data: ast.ELogical{Op: kind, Left: l.expr(left), Right: l.expr(right)}}

	case "assignment_expression":
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if left == nil || right == nil {
			return l.opaqueExpr(n)
		}
		var target ast.Expr
		if left.Kind() == "object_pattern" {
			target = l.objectPatternExpr(left)
		} else {
			target = l.expr(left)
		}
		return ast.Expr{Data: ast.EAssign{Target: target, Value: l.expr(right)}}

	case "object_pattern":
		return l.objectPatternExpr(n)

	case "object":
		var props []ast.ObjectProperty
		for _, p := range namedChildren(n) {
			if p.Kind() != "pair" {
				continue
			}
			keyNode := p.ChildByFieldName("key")
			valueNode := p.ChildByFieldName("value")
			if keyNode == nil || valueNode == nil {
				continue
			}
			props = append(props, ast.ObjectProperty{Key: l.text(keyNode), Value: l.expr(valueNode)})
		}
		return ast.Expr{Data: ast.EObject{Properties: props}}

	case "array":
		var items []ast.Expr
		for _, c := range namedChildren(n) {
			items = append(items, l.expr(c))
		}
		return ast.Expr{Data: ast.EArray{Items: items}}

	case "arrow_function":
		arrow := ast.EArrow{}
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range namedChildren(params) {
				if p.Kind() == "identifier" {
					arrow.Args = append(arrow.Args, l.declareLocal(l.text(p)))
				}
			}
		} else if single := n.ChildByFieldName("parameter"); single != nil {
			arrow.Args = append(arrow.Args, l.declareLocal(l.text(single)))
		}
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Kind() == "statement_block" {
				arrow.Body = l.program(body)
			} else {
				v := l.expr(body)
				arrow.BodyExpr = &v
			}
		}
		return ast.Expr{Data: arrow}

	case "function", "function_expression":
		return ast.Expr{Data: ast.EFunction{Fn: l.fn(n)}}

	case "class", "class_expression":
		return ast.Expr{Data: ast.EClass{Class: l.class(n)}}

	default:
		return l.opaqueExpr(n)
	}
}

func (l *lowering) opaqueExpr(n *ts.Node) ast.Expr {
	return l.b.Opaque(l.text(n))
}

// objectPatternExpr lowers an object_pattern used as an expression (the
// assignment-target shape `({a} = await import(s))`), as opposed to
// l.binding's declaration-site use of the same grammar node.
func (l *lowering) objectPatternExpr(n *ts.Node) ast.Expr {
	var props []ast.ObjectPatternProperty
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "shorthand_property_identifier_pattern":
			name := l.text(c)
			props = append(props, ast.ObjectPatternProperty{Key: name, Value: ast.Expr{Data: ast.EIdentifier{Ref: l.resolveIdent(name)}}})
		case "pair_pattern":
			keyNode := c.ChildByFieldName("key")
			valueNode := c.ChildByFieldName("value")
			if keyNode == nil || valueNode == nil {
				continue
			}
			props = append(props, ast.ObjectPatternProperty{Key: l.text(keyNode), Value: l.expr(valueNode)})
		}
	}
	return ast.Expr{Data: ast.EObjectPattern{Properties: props}}
}

package parsebridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bernharduw/parcel/internal/ast"
)

// Unparse renders tree back to JavaScript source text. It is deliberately
// partial -- it only has a case for the node kinds lower.go produces
// (including the $parcel$* placeholder calls the hoisting core emits) --
// and exists so the MCP tool and the CLI's stdout output have something to
// print, not as a general-purpose code generator. EOpaque leaves are
// spliced back in verbatim, which is what keeps this safe for input the
// bridge didn't fully lower.
func Unparse(tree *ast.Tree) string {
	p := &printer{tree: tree}
	for _, stmt := range tree.Body {
		p.stmt(stmt)
	}
	return p.b.String()
}

type printer struct {
	tree *ast.Tree
	b    strings.Builder
}

func (p *printer) name(ref ast.Ref) string {
	return p.tree.Sym(p.tree.Follow(ref)).OriginalName
}

func (p *printer) stmt(s ast.Stmt) {
	switch st := s.Data.(type) {
	case ast.SExpr:
		p.expr(st.Value)
		p.b.WriteString(";\n")

	case ast.SReturn:
		p.b.WriteString("return")
		if st.Value != nil {
			p.b.WriteString(" ")
			p.expr(*st.Value)
		}
		p.b.WriteString(";\n")

	case ast.SLocal:
		kw := "var"
		switch st.Kind {
		case ast.LocalLet:
			kw = "let"
		case ast.LocalConst:
			kw = "const"
		}
		if st.IsExport {
			p.b.WriteString("export ")
		}
		p.b.WriteString(kw + " ")
		for i, d := range st.Decls {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.binding(d.Binding)
			if d.Value != nil {
				p.b.WriteString(" = ")
				p.expr(*d.Value)
			}
		}
		p.b.WriteString(";\n")

	case ast.SFunction:
		if st.IsExport {
			p.b.WriteString("export ")
		}
		p.fn("function", st.Fn)
		p.b.WriteString("\n")

	case ast.SClass:
		if st.IsExport {
			p.b.WriteString("export ")
		}
		p.class(st.Class)
		p.b.WriteString("\n")

	case ast.SImport:
		p.b.WriteString("import ")
		wroteClause := false
		if st.DefaultRef != nil {
			p.b.WriteString(p.name(*st.DefaultRef))
			wroteClause = true
		}
		if st.StarRef != nil {
			if wroteClause {
				p.b.WriteString(", ")
			}
			p.b.WriteString("* as " + p.name(*st.StarRef))
			wroteClause = true
		}
		if len(st.Items) > 0 {
			if wroteClause {
				p.b.WriteString(", ")
			}
			p.b.WriteString("{")
			for i, item := range st.Items {
				if i > 0 {
					p.b.WriteString(", ")
				}
				local := p.name(item.Local)
				if local != item.Imported {
					p.b.WriteString(item.Imported + " as " + local)
				} else {
					p.b.WriteString(item.Imported)
				}
			}
			p.b.WriteString("}")
			wroteClause = true
		}
		if wroteClause {
			p.b.WriteString(" from ")
		}
		p.b.WriteString(strconv.Quote(st.Path) + ";\n")

	case ast.SExportDefault:
		p.b.WriteString("export default ")
		switch {
		case st.Expr != nil:
			p.expr(*st.Expr)
			p.b.WriteString(";\n")
		case st.Function != nil:
			p.fn("function", st.Function)
			p.b.WriteString("\n")
		case st.Class != nil:
			p.class(st.Class)
			p.b.WriteString("\n")
		}

	case ast.SExportClause:
		p.b.WriteString("export {")
		p.clauseItems(st.Items)
		p.b.WriteString("};\n")

	case ast.SExportFrom:
		if len(st.Items) == 1 && st.Items[0].Imported == "*" {
			p.b.WriteString("export * as " + p.name(st.Items[0].Local) + " from " + strconv.Quote(st.Path) + ";\n")
			return
		}
		p.b.WriteString("export {")
		p.clauseItems(st.Items)
		p.b.WriteString("} from " + strconv.Quote(st.Path) + ";\n")

	case ast.SExportStar:
		p.b.WriteString("export * from " + strconv.Quote(st.Path) + ";\n")

	case ast.SBlock:
		p.b.WriteString("{\n")
		for _, inner := range st.Stmts {
			p.stmt(inner)
		}
		p.b.WriteString("}\n")

	case ast.SIf:
		p.b.WriteString("if (")
		p.expr(st.Test)
		p.b.WriteString(") ")
		p.stmt(st.Yes)
		if st.No != nil {
			p.b.WriteString("else ")
			p.stmt(*st.No)
		}

	case ast.SDirective:
		p.b.WriteString(strconv.Quote(st.Value) + ";\n")

	case ast.SEmpty:
		// nothing to print

	default:
		p.b.WriteString(fmt.Sprintf("/* unprintable statement %T */\n", st))
	}
}

func (p *printer) clauseItems(items []ast.ClauseItem) {
	for i, item := range items {
		if i > 0 {
			p.b.WriteString(", ")
		}
		local := p.name(item.Local)
		if local != item.Imported {
			p.b.WriteString(local + " as " + item.Imported)
		} else {
			p.b.WriteString(local)
		}
	}
}

func (p *printer) binding(b ast.Binding) {
	switch bd := b.(type) {
	case ast.BIdentifier:
		p.b.WriteString(p.name(bd.Ref))
	case ast.BObject:
		p.b.WriteString("{")
		for i, prop := range bd.Properties {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(prop.Key + ": ")
			p.binding(prop.Value)
		}
		p.b.WriteString("}")
	}
}

func (p *printer) fn(keyword string, fn *ast.Fn) {
	p.b.WriteString(keyword + " ")
	if fn.Name != nil {
		p.b.WriteString(p.name(*fn.Name))
	}
	p.b.WriteString("(")
	for i, arg := range fn.Args {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.b.WriteString(p.name(arg))
	}
	p.b.WriteString(") {\n")
	for _, s := range fn.Body {
		p.stmt(s)
	}
	p.b.WriteString("}")
}

func (p *printer) class(c *ast.Class) {
	p.b.WriteString("class")
	if c.Name != nil {
		p.b.WriteString(" " + p.name(*c.Name))
	}
	p.b.WriteString(" {}")
}

func (p *printer) expr(e ast.Expr) {
	switch ex := e.Data.(type) {
	case ast.EIdentifier:
		p.b.WriteString(p.name(ex.Ref))
	case ast.ENumber:
		p.b.WriteString(strconv.FormatFloat(ex.Value, 'g', -1, 64))
	case ast.EString:
		p.b.WriteString(strconv.Quote(ex.Value))
	case ast.EBoolean:
		p.b.WriteString(strconv.FormatBool(ex.Value))
	case ast.ENull:
		p.b.WriteString("null")
	case ast.EUndefined:
		p.b.WriteString("undefined")
	case ast.EThis:
		p.b.WriteString("this")
	case ast.EDot:
		p.expr(ex.Target)
		p.b.WriteString("." + ex.Name)
	case ast.EIndex:
		p.expr(ex.Target)
		p.b.WriteString("[")
		p.expr(ex.Index)
		p.b.WriteString("]")
	case ast.ECall:
		p.expr(ex.Target)
		p.b.WriteString("(")
		for i, a := range ex.Args {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(a)
		}
		p.b.WriteString(")")
	case ast.EImportCall:
		p.b.WriteString("import(")
		p.expr(ex.Arg)
		p.b.WriteString(")")
	case ast.EAwait:
		p.b.WriteString("await ")
		p.expr(ex.Value)
	case ast.EUnary:
		switch ex.Op {
		case ast.UnOpTypeof:
			p.b.WriteString("typeof ")
		case ast.UnOpDelete:
			p.b.WriteString("delete ")
		case ast.UnOpVoid:
			p.b.WriteString("void ")
		}
		p.expr(ex.Value)
	case ast.ELogical:
		op := "&&"
		switch ex.Op {
		case ast.LogicalOr:
			op = "||"
		case ast.LogicalNullish:
			op = "??"
		}
		p.expr(ex.Left)
		p.b.WriteString(" " + op + " ")
		p.expr(ex.Right)
	case ast.EAssign:
		p.expr(ex.Target)
		p.b.WriteString(" = ")
		p.expr(ex.Value)
	case ast.EObjectPattern:
		p.b.WriteString("{")
		for i, prop := range ex.Properties {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(prop.Key + ": ")
			p.expr(prop.Value)
		}
		p.b.WriteString("}")
	case ast.EFunction:
		p.fn("function", ex.Fn)
	case ast.EArrow:
		p.b.WriteString("(")
		for i, a := range ex.Args {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(p.name(a))
		}
		p.b.WriteString(") => ")
		if ex.BodyExpr != nil {
			p.expr(*ex.BodyExpr)
		} else {
			p.b.WriteString("{\n")
			for _, s := range ex.Body {
				p.stmt(s)
			}
			p.b.WriteString("}")
		}
	case ast.EClass:
		p.class(ex.Class)
	case ast.EObject:
		p.b.WriteString("{")
		for i, prop := range ex.Properties {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(prop.Key + ": ")
			p.expr(prop.Value)
		}
		p.b.WriteString("}")
	case ast.EArray:
		p.b.WriteString("[")
		for i, item := range ex.Items {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(item)
		}
		p.b.WriteString("]")
	case ast.EOpaque:
		p.b.WriteString(ex.Text)
	default:
		p.b.WriteString(fmt.Sprintf("/* unprintable expr %T */", ex))
	}
}

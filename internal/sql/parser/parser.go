// Package parser is a small recursive-descent SQL frontend producing the
// ast package's statement trees. The engine treats it as a replaceable
// collaborator; anything that yields ast.Statement values can drive the
// translator.
package parser

import (
	"strconv"
	"strings"

	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/sql/ast"
)

// Parse parses one SQL statement.
func Parse(input string) (ast.Statement, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, errors.New(errors.ParseError, err.Error())
	}
	p := &parser{tokens: tokens}

	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	p.accept(tokSymbol, ";")
	if !p.at(tokEOF, "") {
		return nil, p.errorf("unexpected %q after statement", p.peek().text)
	}
	return stmt, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(kind tokenKind, text string) bool {
	t := p.peek()
	if t.kind != kind {
		return false
	}
	return text == "" || t.text == text
}

func (p *parser) accept(kind tokenKind, text string) bool {
	if p.at(kind, text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, text string) (token, error) {
	if !p.at(kind, text) {
		want := text
		if want == "" {
			want = "identifier"
		}
		return token{}, p.errorf("expected %q, found %q", want, p.peek().text)
	}
	return p.next(), nil
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Newf(errors.ParseError, format, args...).
		WithDetailf("at position %d", p.peek().pos)
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.at(tokKeyword, "SELECT"):
		return p.parseSelect()
	case p.at(tokKeyword, "INSERT"):
		return p.parseInsert()
	case p.at(tokKeyword, "UPDATE"):
		return p.parseUpdate()
	case p.at(tokKeyword, "DELETE"):
		return p.parseDelete()
	case p.at(tokKeyword, "CREATE"):
		return p.parseCreateTable()
	case p.at(tokKeyword, "DROP"):
		return p.parseDropTable()
	case p.at(tokKeyword, "SHOW"):
		return p.parseShow()
	default:
		return nil, p.errorf("expected a statement, found %q", p.peek().text)
	}
}

func (p *parser) parseSelect() (*ast.SelectStatement, error) {
	if _, err := p.expect(tokKeyword, "SELECT"); err != nil {
		return nil, err
	}

	sel := &ast.SelectStatement{}

	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		sel.Items = append(sel.Items, item)
		if !p.accept(tokSymbol, ",") {
			break
		}
	}

	if _, err := p.expect(tokKeyword, "FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseTableExpression()
	if err != nil {
		return nil, err
	}
	sel.From = from

	if p.accept(tokKeyword, "WHERE") {
		if sel.Where, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}

	if p.accept(tokKeyword, "GROUP") {
		if _, err := p.expect(tokKeyword, "BY"); err != nil {
			return nil, err
		}
		for {
			g, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, g)
			if !p.accept(tokSymbol, ",") {
				break
			}
		}
	}

	if p.accept(tokKeyword, "HAVING") {
		if sel.Having, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}

	if p.accept(tokKeyword, "ORDER") {
		if _, err := p.expect(tokKeyword, "BY"); err != nil {
			return nil, err
		}
		for {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			item := ast.OrderItem{Expr: expr}
			if p.accept(tokKeyword, "DESC") {
				item.Desc = true
			} else {
				p.accept(tokKeyword, "ASC")
			}
			sel.OrderBy = append(sel.OrderBy, item)
			if !p.accept(tokSymbol, ",") {
				break
			}
		}
	}

	if p.accept(tokKeyword, "LIMIT") {
		count, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		sel.Limit = &ast.LimitClause{Count: count}
		if p.accept(tokKeyword, "OFFSET") {
			if sel.Limit.Offset, err = p.parseIntLiteral(); err != nil {
				return nil, err
			}
		}
	}

	return sel, nil
}

func (p *parser) parseSelectItem() (ast.SelectItem, error) {
	if p.accept(tokSymbol, "*") {
		return ast.SelectItem{Star: true}, nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return ast.SelectItem{}, err
	}
	item := ast.SelectItem{Expr: expr}
	if p.accept(tokKeyword, "AS") {
		alias, err := p.expect(tokIdent, "")
		if err != nil {
			return ast.SelectItem{}, err
		}
		item.Alias = alias.text
	} else if p.at(tokIdent, "") {
		item.Alias = p.next().text
	}
	return item, nil
}

func (p *parser) parseTableExpression() (ast.TableExpression, error) {
	var left ast.TableExpression
	left, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}

	for {
		var joinType ast.JoinType
		switch {
		case p.accept(tokKeyword, "CROSS"):
			if _, err := p.expect(tokKeyword, "JOIN"); err != nil {
				return nil, err
			}
			right, err := p.parseTableRef()
			if err != nil {
				return nil, err
			}
			left = &ast.JoinExpr{Type: ast.JoinCross, Left: left, Right: right}
			continue

		case p.accept(tokKeyword, "INNER"):
			joinType = ast.JoinInner
		case p.accept(tokKeyword, "LEFT"):
			p.accept(tokKeyword, "OUTER")
			joinType = ast.JoinLeft
		case p.accept(tokKeyword, "RIGHT"):
			p.accept(tokKeyword, "OUTER")
			joinType = ast.JoinRight
		case p.accept(tokKeyword, "FULL"):
			p.accept(tokKeyword, "OUTER")
			joinType = ast.JoinFull
		case p.at(tokKeyword, "JOIN"):
			joinType = ast.JoinInner
		case p.accept(tokSymbol, ","):
			right, err := p.parseTableRef()
			if err != nil {
				return nil, err
			}
			left = &ast.JoinExpr{Type: ast.JoinCross, Left: left, Right: right}
			continue
		default:
			return left, nil
		}

		if _, err := p.expect(tokKeyword, "JOIN"); err != nil {
			return nil, err
		}
		right, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokKeyword, "ON"); err != nil {
			return nil, err
		}
		condition, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.JoinExpr{Type: joinType, Left: left, Right: right, Condition: condition}
	}
}

func (p *parser) parseTableRef() (*ast.TableRef, error) {
	name, err := p.expect(tokIdent, "")
	if err != nil {
		return nil, err
	}
	ref := &ast.TableRef{Name: name.text}

	if p.accept(tokKeyword, "AS") {
		alias, err := p.expect(tokIdent, "")
		if err != nil {
			return nil, err
		}
		ref.Alias = alias.text
	} else if p.at(tokIdent, "") {
		ref.Alias = p.next().text
	}

	if p.accept(tokSymbol, "(") {
		for {
			col, err := p.expect(tokIdent, "")
			if err != nil {
				return nil, err
			}
			ref.ColumnAliases = append(ref.ColumnAliases, col.text)
			if !p.accept(tokSymbol, ",") {
				break
			}
		}
		if _, err := p.expect(tokSymbol, ")"); err != nil {
			return nil, err
		}
	}

	return ref, nil
}

func (p *parser) parseIntLiteral() (int64, error) {
	t, err := p.expect(tokNumber, "")
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(t.text, 10, 64)
	if err != nil {
		return 0, p.errorf("invalid integer %q", t.text)
	}
	return n, nil
}

func (p *parser) parseInsert() (ast.Statement, error) {
	p.next() // INSERT
	if _, err := p.expect(tokKeyword, "INTO"); err != nil {
		return nil, err
	}
	name, err := p.expect(tokIdent, "")
	if err != nil {
		return nil, err
	}
	ins := &ast.InsertStatement{TableName: name.text}

	if p.accept(tokSymbol, "(") {
		for {
			col, err := p.expect(tokIdent, "")
			if err != nil {
				return nil, err
			}
			ins.Columns = append(ins.Columns, col.text)
			if !p.accept(tokSymbol, ",") {
				break
			}
		}
		if _, err := p.expect(tokSymbol, ")"); err != nil {
			return nil, err
		}
	}

	if p.at(tokKeyword, "SELECT") {
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		ins.Select = sel
		return ins, nil
	}

	if _, err := p.expect(tokKeyword, "VALUES"); err != nil {
		return nil, err
	}
	for {
		if _, err := p.expect(tokSymbol, "("); err != nil {
			return nil, err
		}
		var row []ast.Expr
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			row = append(row, e)
			if !p.accept(tokSymbol, ",") {
				break
			}
		}
		if _, err := p.expect(tokSymbol, ")"); err != nil {
			return nil, err
		}
		ins.Rows = append(ins.Rows, row)
		if !p.accept(tokSymbol, ",") {
			break
		}
	}
	return ins, nil
}

func (p *parser) parseUpdate() (ast.Statement, error) {
	p.next() // UPDATE
	name, err := p.expect(tokIdent, "")
	if err != nil {
		return nil, err
	}
	upd := &ast.UpdateStatement{TableName: name.text}

	if _, err := p.expect(tokKeyword, "SET"); err != nil {
		return nil, err
	}
	for {
		col, err := p.expect(tokIdent, "")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokSymbol, "="); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		upd.Assignments = append(upd.Assignments, ast.Assignment{Column: col.text, Value: value})
		if !p.accept(tokSymbol, ",") {
			break
		}
	}

	if p.accept(tokKeyword, "WHERE") {
		if upd.Where, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	return upd, nil
}

func (p *parser) parseDelete() (ast.Statement, error) {
	p.next() // DELETE
	if _, err := p.expect(tokKeyword, "FROM"); err != nil {
		return nil, err
	}
	name, err := p.expect(tokIdent, "")
	if err != nil {
		return nil, err
	}
	del := &ast.DeleteStatement{TableName: name.text}

	if p.accept(tokKeyword, "WHERE") {
		if del.Where, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	return del, nil
}

func (p *parser) parseCreateTable() (ast.Statement, error) {
	p.next() // CREATE
	if _, err := p.expect(tokKeyword, "TABLE"); err != nil {
		return nil, err
	}
	name, err := p.expect(tokIdent, "")
	if err != nil {
		return nil, err
	}
	create := &ast.CreateTableStatement{TableName: name.text}

	if _, err := p.expect(tokSymbol, "("); err != nil {
		return nil, err
	}
	for {
		col, err := p.expect(tokIdent, "")
		if err != nil {
			return nil, err
		}
		typeName, err := p.expect(tokIdent, "")
		if err != nil {
			return nil, err
		}
		def := ast.ColumnDef{Name: col.text, TypeName: typeName.text}
		if p.accept(tokKeyword, "NOT") {
			if _, err := p.expect(tokKeyword, "NULL"); err != nil {
				return nil, err
			}
			def.NotNull = true
		}
		create.Columns = append(create.Columns, def)
		if !p.accept(tokSymbol, ",") {
			break
		}
	}
	if _, err := p.expect(tokSymbol, ")"); err != nil {
		return nil, err
	}
	return create, nil
}

func (p *parser) parseDropTable() (ast.Statement, error) {
	p.next() // DROP
	if _, err := p.expect(tokKeyword, "TABLE"); err != nil {
		return nil, err
	}
	name, err := p.expect(tokIdent, "")
	if err != nil {
		return nil, err
	}
	return &ast.DropTableStatement{TableName: name.text}, nil
}

func (p *parser) parseShow() (ast.Statement, error) {
	p.next() // SHOW
	switch {
	case p.accept(tokKeyword, "TABLES"):
		return &ast.ShowStatement{Kind: ast.ShowTables}, nil
	case p.accept(tokKeyword, "COLUMNS"):
		if _, err := p.expect(tokKeyword, "FROM"); err != nil {
			return nil, err
		}
		name, err := p.expect(tokIdent, "")
		if err != nil {
			return nil, err
		}
		return &ast.ShowStatement{Kind: ast.ShowColumns, TableName: name.text}, nil
	default:
		return nil, p.errorf("expected TABLES or COLUMNS after SHOW")
	}
}

// Expression grammar, loosest binding first:
// OR > AND > NOT > comparison/IN/BETWEEN/LIKE/IS > additive > multiplicative
// > unary > primary.

func (p *parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokKeyword, "OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept(tokKeyword, "AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.accept(tokKeyword, "NOT") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	switch {
	case p.at(tokSymbol, "=") || p.at(tokSymbol, "<>") || p.at(tokSymbol, "!=") ||
		p.at(tokSymbol, "<") || p.at(tokSymbol, "<=") || p.at(tokSymbol, ">") || p.at(tokSymbol, ">="):
		op := p.next().text
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: op, Left: left, Right: right}, nil

	case p.accept(tokKeyword, "BETWEEN"):
		lower, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokKeyword, "AND"); err != nil {
			return nil, err
		}
		upper, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.BetweenExpr{Operand: left, Lower: lower, Upper: upper}, nil

	case p.accept(tokKeyword, "LIKE"):
		pattern, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: "LIKE", Left: left, Right: pattern}, nil

	case p.accept(tokKeyword, "IS"):
		not := p.accept(tokKeyword, "NOT")
		if _, err := p.expect(tokKeyword, "NULL"); err != nil {
			return nil, err
		}
		return &ast.IsNullExpr{Operand: left, Not: not}, nil

	case p.accept(tokKeyword, "IN"):
		if _, err := p.expect(tokSymbol, "("); err != nil {
			return nil, err
		}
		in := &ast.InExpr{Operand: left}
		if p.at(tokKeyword, "SELECT") {
			sel, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			in.Subquery = sel
		} else {
			for {
				item, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				in.List = append(in.List, item)
				if !p.accept(tokSymbol, ",") {
					break
				}
			}
		}
		if _, err := p.expect(tokSymbol, ")"); err != nil {
			return nil, err
		}
		return in, nil
	}

	return left, nil
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(tokSymbol, "+") || p.at(tokSymbol, "-") {
		op := p.next().text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(tokSymbol, "*") || p.at(tokSymbol, "/") || p.at(tokSymbol, "%") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.accept(tokSymbol, "-") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*ast.Literal); ok {
			switch v := lit.Value.(type) {
			case int64:
				return &ast.Literal{Value: -v}, nil
			case float64:
				return &ast.Literal{Value: -v}, nil
			}
		}
		return &ast.UnaryExpr{Op: "-", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.peek()

	switch t.kind {
	case tokNumber:
		p.next()
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, p.errorf("invalid number %q", t.text)
			}
			return &ast.Literal{Value: f}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", t.text)
		}
		if n >= -1<<31 && n < 1<<31 {
			return &ast.Literal{Value: int(n)}, nil
		}
		return &ast.Literal{Value: n}, nil

	case tokString:
		p.next()
		return &ast.Literal{Value: t.text}, nil

	case tokParam:
		p.next()
		index, err := strconv.Atoi(t.text)
		if err != nil {
			return nil, p.errorf("invalid parameter $%s", t.text)
		}
		return &ast.Parameter{Index: index}, nil

	case tokKeyword:
		switch t.text {
		case "NULL":
			p.next()
			return &ast.Literal{Null: true}, nil

		case "CASE":
			p.next()
			if _, err := p.expect(tokKeyword, "WHEN"); err != nil {
				return nil, err
			}
			when, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokKeyword, "THEN"); err != nil {
				return nil, err
			}
			then, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			caseExpr := &ast.CaseExpr{When: when, Then: then}
			if p.accept(tokKeyword, "ELSE") {
				if caseExpr.Else, err = p.parseExpr(); err != nil {
					return nil, err
				}
			}
			if _, err := p.expect(tokKeyword, "END"); err != nil {
				return nil, err
			}
			return caseExpr, nil

		case "EXISTS":
			p.next()
			if _, err := p.expect(tokSymbol, "("); err != nil {
				return nil, err
			}
			sel, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokSymbol, ")"); err != nil {
				return nil, err
			}
			return &ast.ExistsExpr{Select: sel}, nil
		}
		return nil, p.errorf("unexpected keyword %q in expression", t.text)

	case tokIdent:
		p.next()

		if p.at(tokSymbol, "(") {
			return p.parseCallArgs(t.text)
		}

		if p.accept(tokSymbol, ".") {
			col, err := p.expect(tokIdent, "")
			if err != nil {
				return nil, err
			}
			return &ast.Identifier{Table: t.text, Name: col.text}, nil
		}
		return &ast.Identifier{Name: t.text}, nil

	case tokSymbol:
		if t.text == "(" {
			p.next()
			if p.at(tokKeyword, "SELECT") {
				sel, err := p.parseSelect()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(tokSymbol, ")"); err != nil {
					return nil, err
				}
				return &ast.SubqueryExpr{Select: sel}, nil
			}
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokSymbol, ")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	}

	return nil, p.errorf("unexpected %q in expression", t.text)
}

func (p *parser) parseCallArgs(name string) (ast.Expr, error) {
	p.next() // (
	call := &ast.FuncCall{Name: name}

	if p.accept(tokSymbol, "*") {
		call.Star = true
		if _, err := p.expect(tokSymbol, ")"); err != nil {
			return nil, err
		}
		return call, nil
	}

	if p.accept(tokKeyword, "DISTINCT") {
		call.Distinct = true
	}

	if !p.at(tokSymbol, ")") {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if !p.accept(tokSymbol, ",") {
				break
			}
		}
	}
	if _, err := p.expect(tokSymbol, ")"); err != nil {
		return nil, err
	}
	return call, nil
}

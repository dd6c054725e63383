// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package compiler

import (
	"fmt"
	"strings"

	"github.com/vechain/cvm/vm"
)

type parser struct {
	file   string
	tokens []token
	pos    int
}

func parse(file, src string) (*moduleDecl, error) {
	tokens, err := tokenize(file, src)
	if err != nil {
		return nil, err
	}
	p := &parser{file: file, tokens: tokens}
	return p.module()
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &Error{File: p.file, Line: t.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) is(kind tokenKind, text string) bool {
	t := p.peek()
	return t.kind == kind && t.text == text
}

func (p *parser) isKeyword(words ...string) bool {
	t := p.peek()
	if t.kind != tokKeyword {
		return false
	}
	for _, w := range words {
		if t.text == w {
			return true
		}
	}
	return false
}

func (p *parser) expect(kind tokenKind, text string) (token, error) {
	t := p.next()
	if t.kind != kind || t.text != text {
		return t, p.errorf(t, "expected '%s', found %s", text, t)
	}
	return t, nil
}

func (p *parser) expectName() (token, error) {
	t := p.next()
	if t.kind != tokName {
		return t, p.errorf(t, "expected name, found %s", t)
	}
	return t, nil
}

func (p *parser) expectNewline() error {
	t := p.next()
	if t.kind != tokNewline {
		return p.errorf(t, "expected end of line, found %s", t)
	}
	return nil
}

func (p *parser) module() (*moduleDecl, error) {
	m := &moduleDecl{}
	seen := make(map[string]int)
	declare := func(t token, name string) error {
		if line, ok := seen[name]; ok {
			return p.errorf(t, "'%s' already declared at line %d", name, line)
		}
		seen[name] = t.line
		return nil
	}

	for p.peek().kind != tokEOF {
		t := p.peek()
		switch {
		case t.kind == tokNewline:
			p.next()
		case p.isKeyword("import"):
			p.next()
			name, err := p.expectName()
			if err != nil {
				return nil, err
			}
			parts := []string{name.text}
			for p.is(tokOp, ".") {
				p.next()
				part, err := p.expectName()
				if err != nil {
					return nil, err
				}
				parts = append(parts, part.text)
			}
			if err := p.expectNewline(); err != nil {
				return nil, err
			}
			if err := declare(t, parts[0]); err != nil {
				return nil, err
			}
			m.imports = append(m.imports, strings.Join(parts, "."))
		case p.isKeyword("const"):
			p.next()
			name, err := p.expectName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokOp, "="); err != nil {
				return nil, err
			}
			value, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expectNewline(); err != nil {
				return nil, err
			}
			if err := declare(name, name.text); err != nil {
				return nil, err
			}
			m.consts = append(m.consts, &constDecl{name: name.text, line: name.line, value: value})
		case p.isKeyword("func"):
			fn, err := p.funcDecl()
			if err != nil {
				return nil, err
			}
			if err := declare(t, fn.name); err != nil {
				return nil, err
			}
			m.funcs = append(m.funcs, fn)
		default:
			return nil, p.errorf(t, "expected import, const or func at top level, found %s", t)
		}
	}
	return m, nil
}

func (p *parser) funcDecl() (*funcDecl, error) {
	start, err := p.expect(tokKeyword, "func")
	if err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	fn := &funcDecl{name: name.text, line: start.line}
	if _, err := p.expect(tokOp, "("); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for !p.is(tokOp, ")") {
		param, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if seen[param.text] {
			return nil, p.errorf(param, "duplicate argument '%s'", param.text)
		}
		seen[param.text] = true
		fn.params = append(fn.params, param.text)
		if p.is(tokOp, "=") {
			p.next()
			def, err := p.expr()
			if err != nil {
				return nil, err
			}
			fn.defaults = append(fn.defaults, def)
		} else if len(fn.defaults) > 0 {
			return nil, p.errorf(param, "non-default argument '%s' follows default argument", param.text)
		}
		if !p.is(tokOp, ")") {
			if _, err := p.expect(tokOp, ","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	if err := p.expectNewline(); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(tokKeyword, "end")
	if err != nil {
		return nil, err
	}
	fn.body = body
	fn.endLine = end.line
	return fn, p.expectNewline()
}

// block parses statements up to end, elif or else.
func (p *parser) block() ([]stmt, error) {
	var body []stmt
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return nil, p.errorf(t, "missing 'end'")
		case t.kind == tokNewline:
			p.next()
			continue
		case p.isKeyword("end", "elif", "else"):
			return body, nil
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
}

func (p *parser) stmt() (stmt, error) {
	t := p.peek()
	if t.kind == tokKeyword {
		switch t.text {
		case "let":
			p.next()
			name, err := p.expectName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokOp, "="); err != nil {
				return nil, err
			}
			value, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &letStmt{pos{t.line}, name.text, value}, p.expectNewline()
		case "if":
			return p.ifStmt()
		case "while":
			p.next()
			cond, err := p.expr()
			if err != nil {
				return nil, err
			}
			body, err := p.loopBody()
			if err != nil {
				return nil, err
			}
			return &whileStmt{pos{t.line}, cond, body}, nil
		case "for":
			p.next()
			name, err := p.expectName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokKeyword, "in"); err != nil {
				return nil, err
			}
			iter, err := p.expr()
			if err != nil {
				return nil, err
			}
			body, err := p.loopBody()
			if err != nil {
				return nil, err
			}
			return &forStmt{pos{t.line}, name.text, iter, body}, nil
		case "break":
			p.next()
			return &breakStmt{pos{t.line}}, p.expectNewline()
		case "continue":
			p.next()
			return &continueStmt{pos{t.line}}, p.expectNewline()
		case "return":
			p.next()
			if p.peek().kind == tokNewline {
				return &returnStmt{pos: pos{t.line}}, p.expectNewline()
			}
			value, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &returnStmt{pos{t.line}, value}, p.expectNewline()
		case "raise":
			p.next()
			value, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &raiseStmt{pos{t.line}, value}, p.expectNewline()
		case "func":
			fn, err := p.funcDecl()
			if err != nil {
				return nil, err
			}
			return &funcStmt{pos{t.line}, fn}, nil
		case "import", "const":
			return nil, p.errorf(t, "'%s' is only allowed at top level", t.text)
		}
	}

	x, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.is(tokOp, "=") {
		eq := p.next()
		switch x.(type) {
		case *nameExpr, *indexExpr:
		default:
			return nil, p.errorf(eq, "cannot assign to expression")
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &assignStmt{pos{t.line}, x, value}, p.expectNewline()
	}
	return &exprStmt{pos{t.line}, x}, p.expectNewline()
}

func (p *parser) loopBody() ([]stmt, error) {
	if _, err := p.expect(tokKeyword, "do"); err != nil {
		return nil, err
	}
	if err := p.expectNewline(); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokKeyword, "end"); err != nil {
		return nil, err
	}
	return body, p.expectNewline()
}

func (p *parser) ifStmt() (stmt, error) {
	start := p.next()
	s := &ifStmt{pos: pos{start.line}}
	line := start.line
	for {
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokKeyword, "then"); err != nil {
			return nil, err
		}
		if err := p.expectNewline(); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		s.conds = append(s.conds, cond)
		s.blocks = append(s.blocks, body)
		s.lines = append(s.lines, line)

		if !p.isKeyword("elif") {
			break
		}
		line = p.next().line
	}
	if p.isKeyword("else") {
		p.next()
		if err := p.expectNewline(); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		s.orElse = body
	}
	if _, err := p.expect(tokKeyword, "end"); err != nil {
		return nil, err
	}
	return s, p.expectNewline()
}

func (p *parser) expr() (expr, error) { return p.or() }

func (p *parser) or() (expr, error) {
	x, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		t := p.next()
		y, err := p.and()
		if err != nil {
			return nil, err
		}
		x = &binaryExpr{pos{t.line}, "or", x, y}
	}
	return x, nil
}

func (p *parser) and() (expr, error) {
	x, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		t := p.next()
		y, err := p.not()
		if err != nil {
			return nil, err
		}
		x = &binaryExpr{pos{t.line}, "and", x, y}
	}
	return x, nil
}

func (p *parser) not() (expr, error) {
	if p.isKeyword("not") {
		t := p.next()
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{pos{t.line}, "not", x}, nil
	}
	return p.comparison()
}

var comparisonOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) comparison() (expr, error) {
	x, err := p.sum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp && comparisonOps[t.text] {
		p.next()
		y, err := p.sum()
		if err != nil {
			return nil, err
		}
		x = &binaryExpr{pos{t.line}, t.text, x, y}
		if t := p.peek(); t.kind == tokOp && comparisonOps[t.text] {
			return nil, p.errorf(t, "comparisons cannot be chained")
		}
	}
	return x, nil
}

func (p *parser) sum() (expr, error) {
	x, err := p.product()
	if err != nil {
		return nil, err
	}
	for p.is(tokOp, "+") || p.is(tokOp, "-") {
		t := p.next()
		y, err := p.product()
		if err != nil {
			return nil, err
		}
		x = &binaryExpr{pos{t.line}, t.text, x, y}
	}
	return x, nil
}

func (p *parser) product() (expr, error) {
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.is(tokOp, "*") || p.is(tokOp, "/") || p.is(tokOp, "%") {
		t := p.next()
		y, err := p.unary()
		if err != nil {
			return nil, err
		}
		x = &binaryExpr{pos{t.line}, t.text, x, y}
	}
	return x, nil
}

func (p *parser) unary() (expr, error) {
	if p.is(tokOp, "-") {
		t := p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if lit, ok := x.(*literalExpr); ok {
			if n, ok := lit.value.(int64); ok {
				return &literalExpr{pos{t.line}, -n}, nil
			}
		}
		return &unaryExpr{pos{t.line}, "-", x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case p.is(tokOp, "("):
			p.next()
			args, err := p.exprList(")")
			if err != nil {
				return nil, err
			}
			x = &callExpr{pos{t.line}, x, args}
		case p.is(tokOp, "["):
			p.next()
			key, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokOp, "]"); err != nil {
				return nil, err
			}
			x = &indexExpr{pos{t.line}, x, key}
		case p.is(tokOp, "."):
			p.next()
			name, err := p.expectName()
			if err != nil {
				return nil, err
			}
			x = &attrExpr{pos{t.line}, x, name.text}
		default:
			return x, nil
		}
	}
}

func (p *parser) exprList(closing string) ([]expr, error) {
	var items []expr
	for !p.is(tokOp, closing) {
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		items = append(items, x)
		if !p.is(tokOp, closing) {
			if _, err := p.expect(tokOp, ","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	return items, nil
}

func (p *parser) primary() (expr, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		return &literalExpr{pos{t.line}, t.num}, nil
	case tokString:
		return &literalExpr{pos{t.line}, t.text}, nil
	case tokBytes:
		return &literalExpr{pos{t.line}, vm.Bytes(t.text)}, nil
	case tokName:
		return &nameExpr{pos{t.line}, t.text}, nil
	case tokKeyword:
		switch t.text {
		case "true":
			return &literalExpr{pos{t.line}, true}, nil
		case "false":
			return &literalExpr{pos{t.line}, false}, nil
		case "nil":
			return &literalExpr{pos{t.line}, nil}, nil
		}
	case tokOp:
		switch t.text {
		case "(":
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokOp, ")"); err != nil {
				return nil, err
			}
			return x, nil
		case "[":
			items, err := p.exprList("]")
			if err != nil {
				return nil, err
			}
			return &listExpr{pos{t.line}, items}, nil
		case "{":
			m := &mapExpr{pos: pos{t.line}}
			for !p.is(tokOp, "}") {
				k, err := p.expr()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(tokOp, ":"); err != nil {
					return nil, err
				}
				v, err := p.expr()
				if err != nil {
					return nil, err
				}
				m.keys = append(m.keys, k)
				m.vals = append(m.vals, v)
				if !p.is(tokOp, "}") {
					if _, err := p.expect(tokOp, ","); err != nil {
						return nil, err
					}
				}
			}
			p.next()
			return m, nil
		}
	}
	return nil, p.errorf(t, "unexpected %s", t)
}

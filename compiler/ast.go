// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package compiler

import "github.com/vechain/cvm/vm"

type (
	expr interface{ exprLine() int }
	stmt interface{ stmtLine() int }
)

type pos struct{ line int }

func (p pos) exprLine() int { return p.line }
func (p pos) stmtLine() int { return p.line }

// expressions
type (
	literalExpr struct {
		pos
		value vm.Value
	}
	nameExpr struct {
		pos
		name string
	}
	listExpr struct {
		pos
		items []expr
	}
	mapExpr struct {
		pos
		keys, vals []expr
	}
	callExpr struct {
		pos
		fn   expr
		args []expr
	}
	indexExpr struct {
		pos
		obj, key expr
	}
	attrExpr struct {
		pos
		obj  expr
		name string
	}
	unaryExpr struct {
		pos
		op string
		x  expr
	}
	binaryExpr struct {
		pos
		op   string
		x, y expr
	}
)

// statements
type (
	letStmt struct {
		pos
		name  string
		value expr
	}
	assignStmt struct {
		pos
		target expr // nameExpr or indexExpr
		value  expr
	}
	exprStmt struct {
		pos
		x expr
	}
	ifStmt struct {
		pos
		conds  []expr
		blocks [][]stmt
		orElse []stmt
		lines  []int // line of each condition
	}
	whileStmt struct {
		pos
		cond expr
		body []stmt
	}
	forStmt struct {
		pos
		name string
		iter expr
		body []stmt
	}
	breakStmt    struct{ pos }
	continueStmt struct{ pos }
	returnStmt   struct {
		pos
		value expr // may be nil
	}
	raiseStmt struct {
		pos
		value expr
	}
	funcStmt struct {
		pos
		fn *funcDecl
	}
)

type funcDecl struct {
	name     string
	line     int
	endLine  int
	params   []string
	defaults []expr
	body     []stmt
}

type constDecl struct {
	name  string
	line  int
	value expr
}

type moduleDecl struct {
	imports []string
	consts  []*constDecl
	funcs   []*funcDecl
}

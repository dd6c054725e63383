// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package compiler

type varKind int

const (
	varGlobal varKind = iota
	varLocal
	varCell
)

// scope holds the variables of one function. Variables are function scoped:
// a name declared or assigned anywhere in the function body is local to it,
// unless the assignment reaches a variable of an enclosing function.
type scope struct {
	fn       *funcDecl
	parent   *scope
	locals   map[string]int // slot of every local
	order    []string
	cells    map[string]bool // locals captured by nested functions
	free     []string        // variables captured from enclosing functions
	children map[*funcDecl]*scope
}

func newScope(fn *funcDecl, parent *scope) *scope {
	s := &scope{
		fn:       fn,
		parent:   parent,
		locals:   make(map[string]int),
		cells:    make(map[string]bool),
		children: make(map[*funcDecl]*scope),
	}
	for _, p := range fn.params {
		s.declare(p)
	}
	return s
}

func (s *scope) declare(name string) {
	if _, ok := s.locals[name]; ok {
		return
	}
	s.locals[name] = len(s.order)
	s.order = append(s.order, name)
}

// visible reports whether name is a local of s or of an enclosing function.
func (s *scope) visible(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.locals[name]; ok {
			return true
		}
	}
	return false
}

// capture records that s reads name from an enclosing function.
func (s *scope) capture(name string) {
	for _, f := range s.free {
		if f == name {
			return
		}
	}
	if _, ok := s.parent.locals[name]; ok {
		s.parent.cells[name] = true
	} else {
		s.parent.capture(name)
	}
	s.free = append(s.free, name)
}

func (s *scope) lookup(name string) varKind {
	if _, ok := s.locals[name]; ok {
		if s.cells[name] {
			return varCell
		}
		return varLocal
	}
	if s.parent != nil && s.parent.visible(name) {
		return varCell
	}
	return varGlobal
}

// cellNames returns captured locals in slot order.
func (s *scope) cellNames() []string {
	var names []string
	for _, name := range s.order {
		if s.cells[name] {
			names = append(names, name)
		}
	}
	return names
}

// cellIndex returns the frame cell index of name: own cells first, then
// free variables.
func (s *scope) cellIndex(name string) int {
	own := s.cellNames()
	for i, n := range own {
		if n == name {
			return i
		}
	}
	for i, n := range s.free {
		if n == name {
			return len(own) + i
		}
	}
	return -1
}

// resolve builds the scope tree of fn. Declarations are collected before
// references so the order of statements does not matter.
func resolve(fn *funcDecl, parent *scope) *scope {
	s := newScope(fn, parent)
	declareBlock(s, fn.body)

	for _, st := range fn.body {
		resolveStmt(s, st)
	}
	return s
}

func declareBlock(s *scope, body []stmt) {
	for _, st := range body {
		switch st := st.(type) {
		case *letStmt:
			s.declare(st.name)
		case *forStmt:
			s.declare(st.name)
			declareBlock(s, st.body)
		case *funcStmt:
			s.declare(st.fn.name)
		case *assignStmt:
			if n, ok := st.target.(*nameExpr); ok && (s.parent == nil || !s.parent.visible(n.name)) {
				s.declare(n.name)
			}
		case *ifStmt:
			for _, b := range st.blocks {
				declareBlock(s, b)
			}
			declareBlock(s, st.orElse)
		case *whileStmt:
			declareBlock(s, st.body)
		}
	}
}

func resolveStmt(s *scope, st stmt) {
	switch st := st.(type) {
	case *letStmt:
		resolveExpr(s, st.value)
	case *assignStmt:
		resolveExpr(s, st.target)
		resolveExpr(s, st.value)
	case *exprStmt:
		resolveExpr(s, st.x)
	case *ifStmt:
		for i, c := range st.conds {
			resolveExpr(s, c)
			for _, b := range st.blocks[i] {
				resolveStmt(s, b)
			}
		}
		for _, b := range st.orElse {
			resolveStmt(s, b)
		}
	case *whileStmt:
		resolveExpr(s, st.cond)
		for _, b := range st.body {
			resolveStmt(s, b)
		}
	case *forStmt:
		resolveExpr(s, st.iter)
		for _, b := range st.body {
			resolveStmt(s, b)
		}
	case *returnStmt:
		if st.value != nil {
			resolveExpr(s, st.value)
		}
	case *raiseStmt:
		resolveExpr(s, st.value)
	case *funcStmt:
		s.children[st.fn] = resolve(st.fn, s)
	}
}

func resolveExpr(s *scope, x expr) {
	switch x := x.(type) {
	case *nameExpr:
		if _, ok := s.locals[x.name]; !ok && s.parent != nil && s.parent.visible(x.name) {
			s.capture(x.name)
		}
	case *listExpr:
		for _, item := range x.items {
			resolveExpr(s, item)
		}
	case *mapExpr:
		for i := range x.keys {
			resolveExpr(s, x.keys[i])
			resolveExpr(s, x.vals[i])
		}
	case *callExpr:
		resolveExpr(s, x.fn)
		for _, a := range x.args {
			resolveExpr(s, a)
		}
	case *indexExpr:
		resolveExpr(s, x.obj)
		resolveExpr(s, x.key)
	case *attrExpr:
		resolveExpr(s, x.obj)
	case *unaryExpr:
		resolveExpr(s, x.x)
	case *binaryExpr:
		resolveExpr(s, x.x)
		resolveExpr(s, x.y)
	}
}

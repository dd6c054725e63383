// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package compiler

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokName
	tokInt
	tokString
	tokBytes
	tokOp
	tokKeyword
)

var keywords = map[string]bool{
	"func": true, "end": true, "let": true, "const": true, "import": true,
	"if": true, "then": true, "elif": true, "else": true,
	"while": true, "do": true, "for": true, "in": true,
	"break": true, "continue": true, "return": true, "raise": true,
	"true": true, "false": true, "nil": true,
	"and": true, "or": true, "not": true,
}

// two character operators first
var operators = []string{
	"==", "!=", "<=", ">=",
	"(", ")", "[", "]", "{", "}", ",", ":", ".", "=",
	"<", ">", "+", "-", "*", "/", "%",
}

type token struct {
	kind tokenKind
	text string // operator, keyword or name; decoded value for literals
	num  int64
	line int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokNewline:
		return "end of line"
	case tokString:
		return strconv.Quote(t.text)
	case tokInt:
		return strconv.FormatInt(t.num, 10)
	}
	return "'" + t.text + "'"
}

// Error is a compile error.
type Error struct {
	File string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

type lexer struct {
	file   string
	src    string
	pos    int
	line   int
	depth  int // bracket nesting, newlines inside brackets are ignored
	tokens []token
}

func tokenize(file, src string) ([]token, error) {
	lx := &lexer{file: file, src: src, line: 1}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.tokens, nil
}

func (lx *lexer) errorf(format string, args ...any) error {
	return &Error{File: lx.file, Line: lx.line, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) emit(t token) {
	t.line = lx.line
	lx.tokens = append(lx.tokens, t)
}

func (lx *lexer) newline() {
	if lx.depth == 0 && len(lx.tokens) > 0 && lx.tokens[len(lx.tokens)-1].kind != tokNewline {
		lx.emit(token{kind: tokNewline})
	}
	lx.line++
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (lx *lexer) run() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.pos++
			lx.newline()
		case c == ' ' || c == '\t' || c == '\r':
			lx.pos++
		case c == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case c == '"':
			s, err := lx.quoted()
			if err != nil {
				return err
			}
			lx.emit(token{kind: tokString, text: s})
		case c == 'b' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '"':
			lx.pos++
			s, err := lx.quoted()
			if err != nil {
				return err
			}
			lx.emit(token{kind: tokBytes, text: s})
		case c == '0' && lx.pos+1 < len(lx.src) && (lx.src[lx.pos+1] == 'x' || lx.src[lx.pos+1] == 'X'):
			start := lx.pos + 2
			lx.pos = start
			for lx.pos < len(lx.src) && strings.IndexByte("0123456789abcdefABCDEF", lx.src[lx.pos]) >= 0 {
				lx.pos++
			}
			b, err := hex.DecodeString(lx.src[start:lx.pos])
			if err != nil {
				return lx.errorf("invalid hex literal: %v", err)
			}
			lx.emit(token{kind: tokBytes, text: string(b)})
		case isDigit(c):
			start := lx.pos
			for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
				lx.pos++
			}
			n, err := strconv.ParseInt(strings.ReplaceAll(lx.src[start:lx.pos], "_", ""), 10, 64)
			if err != nil {
				return lx.errorf("invalid integer literal %s", lx.src[start:lx.pos])
			}
			lx.emit(token{kind: tokInt, num: n})
		case isNameStart(c):
			start := lx.pos
			for lx.pos < len(lx.src) && (isNameStart(lx.src[lx.pos]) || isDigit(lx.src[lx.pos])) {
				lx.pos++
			}
			word := lx.src[start:lx.pos]
			if keywords[word] {
				lx.emit(token{kind: tokKeyword, text: word})
			} else {
				lx.emit(token{kind: tokName, text: word})
			}
		default:
			if err := lx.operator(); err != nil {
				return err
			}
		}
	}
	if lx.depth > 0 {
		return lx.errorf("unclosed bracket")
	}
	lx.newline()
	lx.emit(token{kind: tokEOF})
	return nil
}

func (lx *lexer) quoted() (string, error) {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.pos += 2
			continue
		case '\n':
			return "", lx.errorf("unterminated string")
		case '"':
			lx.pos++
			s, err := strconv.Unquote(lx.src[start:lx.pos])
			if err != nil {
				return "", lx.errorf("invalid string literal %s", lx.src[start:lx.pos])
			}
			return s, nil
		}
		lx.pos++
	}
	return "", lx.errorf("unterminated string")
}

func (lx *lexer) operator() error {
	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)
			switch op {
			case "(", "[", "{":
				lx.depth++
			case ")", "]", "}":
				if lx.depth == 0 {
					return lx.errorf("unexpected '%s'", op)
				}
				lx.depth--
			}
			lx.emit(token{kind: tokOp, text: op})
			return nil
		}
	}
	return lx.errorf("unexpected character %q", lx.src[lx.pos])
}

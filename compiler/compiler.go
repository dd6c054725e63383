// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package compiler turns contract source into vm prototypes.
//
// A contract is a module of imports, constants and functions:
//
//	import hashing
//	const FEE = 10
//
//	func transfer(to, amount = 1)
//	    let balance = storage_get(to)
//	    if balance == nil then
//	        balance = 0
//	    end
//	    storage_set(to, balance + amount - FEE)
//	end
package compiler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/vechain/cvm/vm"
)

// Suffix is the file suffix of contract sources.
const Suffix = ".cvm"

// CompileModule compiles src into a module. Functions are bound to a fresh
// globals table holding the module members.
func CompileModule(name, file string, src []byte) (*vm.Module, error) {
	decl, err := parse(file, string(src))
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(src), "\n")

	m := vm.NewModule(name, file)
	m.Imports = decl.imports
	for _, c := range decl.consts {
		v, err := constValue(c.value)
		if err != nil {
			return nil, &Error{File: file, Line: c.line, Msg: "const " + c.name + ": " + err.Error()}
		}
		m.Members[c.name] = v
	}
	for _, fn := range decl.funcs {
		s := resolve(fn, nil)
		proto, err := compileFunc(file, lines, fn, s, nil)
		if err != nil {
			return nil, err
		}
		m.Members[fn.name] = vm.NewClosure(proto, nil, nil)
	}
	m.Bind(vm.NewGlobals())
	return m, nil
}

// CompileFunction compiles a source holding exactly one function.
func CompileFunction(file string, src []byte) (*vm.Closure, error) {
	m, err := CompileModule(moduleName(file), file, src)
	if err != nil {
		return nil, err
	}
	var fn *vm.Closure
	for _, v := range m.Members {
		cl, ok := v.(*vm.Closure)
		if !ok || fn != nil || len(m.Imports) > 0 {
			return nil, &Error{File: file, Line: 1, Msg: "expected a single function"}
		}
		fn = cl
	}
	if fn == nil {
		return nil, &Error{File: file, Line: 1, Msg: "no function found"}
	}
	return fn, nil
}

// CompileFile compiles the contract at path. The module is named after the
// file.
func CompileFile(path string) (*vm.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read contract source")
	}
	file := filepath.Base(path)
	return CompileModule(moduleName(file), file, src)
}

func moduleName(file string) string {
	return strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
}

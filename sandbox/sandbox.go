// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package sandbox builds the restricted global namespace contracts run in.
package sandbox

import (
	"os"
	"sort"
	"strings"

	"github.com/vechain/cvm/builtin"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/xenv"
)

// Identity of the host entry point that dispatches into contract code.
const (
	DispatchFile = "<dispatch>"
	DispatchFunc = "dispatch"
)

// AllowGlobals lists the ambient globals copied into a sandbox.
var AllowGlobals = []string{
	"__name__",
	"__contract__",
	"__method__",
}

// AllowBuiltins lists the ambient builtins copied into a sandbox.
var AllowBuiltins = []string{
	"abs",
	"append",
	"bytes",
	"has",
	"int",
	"keys",
	"len",
	"max",
	"min",
	"print",
	"range",
	"remove",
	"sorted",
	"str",
	"type",
	"values",
}

// ambientGlobals is the global table the host offers to any module. It holds
// more than a contract may see.
func ambientGlobals(env *xenv.Environment, module string) map[string]vm.Value {
	environ := vm.NewMap()
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		environ.Set(k, v)
	}
	args := make([]vm.Value, len(os.Args))
	for i, a := range os.Args {
		args[i] = a
	}
	return map[string]vm.Value{
		"__name__":     module,
		"__contract__": env.Address().String(),
		"__method__":   env.Method(),
		"__environ__":  environ,
		"__argv__":     vm.NewList(args...),
		"__pid__":      int64(os.Getpid()),
	}
}

// BuildGlobals creates a fresh global table holding only allow-listed
// ambient names and the capability functions of reg bound to env.
func BuildGlobals(reg *builtin.Registry, env *xenv.Environment, module string) *vm.Globals {
	g := vm.NewGlobals()

	ambient := ambientGlobals(env, module)
	for _, name := range AllowGlobals {
		if v, ok := ambient[name]; ok {
			g.Set(name, v)
		}
	}
	builtins := vm.AmbientBuiltins()
	for _, name := range AllowBuiltins {
		if b, ok := builtins[name]; ok {
			g.Set(name, b)
		}
	}
	for _, lib := range reg.Libraries() {
		for _, fn := range lib.Funcs {
			g.Set(fn.Name, bind(lib, fn, env))
		}
	}
	return g
}

// Modules exposes each capability library as an importable module.
func Modules(reg *builtin.Registry, env *xenv.Environment) map[string]*vm.Module {
	mods := make(map[string]*vm.Module)
	for _, lib := range reg.Libraries() {
		m := vm.NewModule(lib.Name, lib.File)
		for _, fn := range lib.Funcs {
			m.Members[fn.Name] = bind(lib, fn, env)
		}
		mods[lib.Name] = m
	}
	return mods
}

// ModuleNames returns the names of the importable modules, sorted.
func ModuleNames(reg *builtin.Registry) []string {
	var names []string
	for _, lib := range reg.Libraries() {
		names = append(names, lib.Name)
	}
	sort.Strings(names)
	return names
}

func bind(lib *builtin.Library, fn *builtin.Func, env *xenv.Environment) *vm.Native {
	return &vm.Native{
		Name:   fn.Name,
		Lib:    lib.File,
		Params: fn.Params,
		Price:  fn.Price,
		Fn: func(_ *vm.Interpreter, args []vm.Value) (vm.Value, error) {
			return fn.Run(env, args)
		},
	}
}

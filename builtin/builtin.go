// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin holds the capability libraries callable from contracts and
// the price table charged for them.
package builtin

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/xenv"
)

// ErrDuplicateFunc is returned when two libraries define the same function.
var ErrDuplicateFunc = errors.New("duplicate capability function")

// Func is a priced capability function.
type Func struct {
	Name   string
	Params []string
	Price  uint64
	Run    func(env *xenv.Environment, args []vm.Value) (vm.Value, error)
}

// Library is a named group of capability functions. File is the location
// reported for its frames while tracing.
type Library struct {
	Name  string
	File  string
	Funcs []*Func
}

// Registry is the read-only price table over a set of libraries.
type Registry struct {
	libs   []*Library
	funcs  map[string]*Func
	prices map[string]uint64
}

// NewRegistry merges the functions of libs.
func NewRegistry(libs ...*Library) (*Registry, error) {
	r := &Registry{
		libs:   libs,
		funcs:  make(map[string]*Func),
		prices: make(map[string]uint64),
	}
	for _, lib := range libs {
		for _, fn := range lib.Funcs {
			if _, ok := r.funcs[fn.Name]; ok {
				return nil, errors.Wrapf(ErrDuplicateFunc, "%s.%s", lib.Name, fn.Name)
			}
			if fn.Price == 0 {
				return nil, errors.Errorf("%s.%s: price must be positive", lib.Name, fn.Name)
			}
			r.funcs[fn.Name] = fn
			r.prices[fn.Name] = fn.Price
		}
	}
	return r, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry over the standard libraries.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := NewRegistry(Hashing, Signature, Convert, Statement)
		if err != nil {
			panic(err)
		}
		defaultReg = reg
	})
	return defaultReg
}

// Price returns the price of the named function, 0 if unknown.
func (r *Registry) Price(name string) uint64 {
	return r.prices[name]
}

// Prices returns a copy of the price table.
func (r *Registry) Prices() map[string]uint64 {
	out := make(map[string]uint64, len(r.prices))
	for k, v := range r.prices {
		out[k] = v
	}
	return out
}

// Libraries returns the libraries in registration order.
func (r *Registry) Libraries() []*Library {
	return append([]*Library(nil), r.libs...)
}

// Lookup returns the named function.
func (r *Registry) Lookup(name string) (*Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns all function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefinitionPrice returns the price charged for a paused source line. Only a
// line starting a definition of a priced function, "func name(", costs
// anything.
func (r *Registry) DefinitionPrice(text string) uint64 {
	rest, ok := strings.CutPrefix(text, "func ")
	if !ok {
		return 0
	}
	i := strings.IndexByte(rest, '(')
	if i <= 0 {
		return 0
	}
	return r.prices[rest[:i]]
}

// method builds a Func whose proc aborts through env on bad input.
func method(name string, params []string, price uint64, proc func(env *xenv.Environment, args []vm.Value) vm.Value) *Func {
	return &Func{
		Name:   name,
		Params: params,
		Price:  price,
		Run: func(env *xenv.Environment, args []vm.Value) (vm.Value, error) {
			return env.Call(name, len(params), proc, args)
		},
	}
}

// data returns a bytes or str argument as raw bytes.
func data(env *xenv.Environment, args []vm.Value, i int) []byte {
	if s, ok := args[i].(string); ok {
		return []byte(s)
	}
	return env.ArgBytes(args, i)
}

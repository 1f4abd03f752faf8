// Copyright 2025 ssrgen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import (
	"fmt"
	"sort"
)

// Function is an SSA function: parameters, an entry block, and a block
// list. Blocks[0] is the entry.
type Function struct {
	// Name is the function name.
	Name string

	// Params are the formal parameters.
	Params []*Param

	// Blocks is the block list in layout order; Blocks[0] is the entry.
	Blocks []*BasicBlock

	attrs map[string]bool
	names map[string]int
}

// NewFunction creates an empty function.
func NewFunction(name string) *Function {
	return &Function{
		Name:  name,
		attrs: make(map[string]bool),
		names: make(map[string]int),
	}
}

// AddParam appends a parameter and returns it.
func (f *Function) AddParam(name string, ty Type) *Param {
	p := &Param{name: f.uniqueName(name), ty: ty}
	f.Params = append(f.Params, p)
	return p
}

// Entry returns the entry block.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		panic("ir: function has no blocks")
	}
	return f.Blocks[0]
}

// NewBlock appends a new block with a unique label.
func (f *Function) NewBlock(name string) *BasicBlock {
	b := &BasicBlock{name: f.uniqueName(name), fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewBlockBefore inserts a new block immediately before pos in layout
// order.
func (f *Function) NewBlockBefore(pos *BasicBlock, name string) *BasicBlock {
	b := &BasicBlock{name: f.uniqueName(name), fn: f}
	for k, x := range f.Blocks {
		if x == pos {
			f.Blocks = append(f.Blocks, nil)
			copy(f.Blocks[k+1:], f.Blocks[k:])
			f.Blocks[k] = b
			return b
		}
	}
	panic("ir: position block not in function")
}

// AddAttr attaches a function attribute.
func (f *Function) AddAttr(a string) { f.attrs[a] = true }

// HasAttr reports whether the function carries the attribute.
func (f *Function) HasAttr(a string) bool { return f.attrs[a] }

// Attrs returns the attached attributes, sorted.
func (f *Function) Attrs() []string {
	var as []string
	for a := range f.attrs {
		as = append(as, a)
	}
	sort.Strings(as)
	return as
}

// CalleeRef returns a Callee describing this function, for building call
// sites that carry the function's current attributes.
func (f *Function) CalleeRef() *Callee {
	attrs := make(map[string]bool, len(f.attrs))
	for a := range f.attrs {
		attrs[a] = true
	}
	return &Callee{Name: f.Name, Attrs: attrs}
}

// ReplaceAllUses rewrites every operand and phi edge in the function that
// references old to reference new.
func (f *Function) ReplaceAllUses(old, new Value) {
	f.replaceUses(old, new, nil)
}

// ReplaceUsesOutsideBlock rewrites uses of old everywhere except inside
// the given block.
func (f *Function) ReplaceUsesOutsideBlock(old, new Value, except *BasicBlock) {
	if except == nil {
		panic("ir: nil except block")
	}
	f.replaceUses(old, new, except)
}

func (f *Function) replaceUses(old, new Value, except *BasicBlock) {
	for _, b := range f.Blocks {
		if b == except {
			continue
		}
		for _, i := range b.Instrs {
			for k, a := range i.Args {
				if a == old {
					i.Args[k] = new
				}
			}
			for k := range i.Incoming {
				if i.Incoming[k].Value == old {
					i.Incoming[k].Value = new
				}
			}
		}
	}
}

// Rename gives the instruction a fresh unique name derived from base.
// Void-typed instructions have no name and are left alone.
func (f *Function) Rename(i *Instr, base string) {
	if i.ty == Void {
		return
	}
	i.name = f.uniqueName(base)
}

// uniqueName returns base, or base.N when base is taken.
func (f *Function) uniqueName(base string) string {
	if base == "" {
		base = "v"
	}
	n, taken := f.names[base]
	if !taken {
		f.names[base] = 0
		return base
	}
	for {
		n++
		cand := fmt.Sprintf("%s.%d", base, n)
		if _, clash := f.names[cand]; !clash {
			f.names[base] = n
			f.names[cand] = 0
			return cand
		}
	}
}

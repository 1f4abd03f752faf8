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

// BasicBlock is an ordered list of instructions ending in a terminator.
type BasicBlock struct {
	name   string
	fn     *Function
	Instrs []*Instr
}

// Name returns the block's label.
func (b *BasicBlock) Name() string { return b.name }

// Func returns the containing function.
func (b *BasicBlock) Func() *Function { return b.fn }

// Terminator returns the block's final instruction if it is a terminator,
// nil otherwise (blocks under construction).
func (b *BasicBlock) Terminator() *Instr {
	if n := len(b.Instrs); n > 0 && b.Instrs[n-1].Op.IsTerminator() {
		return b.Instrs[n-1]
	}
	return nil
}

// Succs returns the successor blocks.
func (b *BasicBlock) Succs() []*BasicBlock {
	if t := b.Terminator(); t != nil {
		return t.Succs
	}
	return nil
}

// Preds returns the predecessor blocks in function block order.
func (b *BasicBlock) Preds() []*BasicBlock {
	var preds []*BasicBlock
	for _, p := range b.fn.Blocks {
		for _, s := range p.Succs() {
			if s == b {
				preds = append(preds, p)
				break
			}
		}
	}
	return preds
}

// Phis returns the phi nodes at the head of the block.
func (b *BasicBlock) Phis() []*Instr {
	var phis []*Instr
	for _, i := range b.Instrs {
		if i.Op != OpPhi {
			break
		}
		phis = append(phis, i)
	}
	return phis
}

// FirstNonPhi returns the first non-phi instruction, or nil for a block
// holding only phis.
func (b *BasicBlock) FirstNonPhi() *Instr {
	for _, i := range b.Instrs {
		if i.Op != OpPhi {
			return i
		}
	}
	return nil
}

// FirstInsertionPoint is the instruction before which new non-phi code is
// inserted: the first non-phi.
func (b *BasicBlock) FirstInsertionPoint() *Instr {
	return b.FirstNonPhi()
}

// Append adds the instruction at the end of the block.
func (b *BasicBlock) Append(i *Instr) {
	if i.blk != nil {
		panic("ir: instruction already attached")
	}
	i.blk = b
	b.Instrs = append(b.Instrs, i)
}

// InsertBefore inserts i immediately before pos, which must be in b.
func (b *BasicBlock) InsertBefore(pos, i *Instr) {
	if i.blk != nil {
		panic("ir: instruction already attached")
	}
	at := b.indexOf(pos)
	i.blk = b
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[at+1:], b.Instrs[at:])
	b.Instrs[at] = i
}

func (b *BasicBlock) indexOf(i *Instr) int {
	for k, x := range b.Instrs {
		if x == i {
			return k
		}
	}
	panic("ir: instruction not in block")
}

func (b *BasicBlock) remove(i *Instr) {
	at := b.indexOf(i)
	b.Instrs = append(b.Instrs[:at], b.Instrs[at+1:]...)
}

// SplitBlockBefore splits x's block in two: a new head block takes every
// instruction before x and ends with an unconditional branch to the tail
// (x's block, which keeps x and everything after it). All predecessor
// edges into the original block are redirected to the head. Splitting at
// a phi is a caller error. Returns (head, tail).
func SplitBlockBefore(x *Instr, name string) (*BasicBlock, *BasicBlock) {
	if x.Op == OpPhi {
		panic("ir: cannot split at a phi node")
	}
	tail := x.Block()
	if tail == nil {
		panic("ir: cannot split at a detached instruction")
	}
	fn := tail.fn
	head := fn.NewBlockBefore(tail, name)

	at := tail.indexOf(x)
	moved := tail.Instrs[:at]
	rest := append([]*Instr(nil), tail.Instrs[at:]...)
	for _, i := range moved {
		i.blk = head
	}
	head.Instrs = append(head.Instrs, moved...)
	tail.Instrs = rest

	br := &Instr{Op: OpBr, Succs: []*BasicBlock{tail}}
	head.Append(br)

	// Redirect predecessors of the tail (other than the new head).
	for _, p := range tail.Preds() {
		if p == head {
			continue
		}
		p.Terminator().ReplaceSucc(tail, head)
	}
	return head, tail
}

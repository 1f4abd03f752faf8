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

// Builder constructs instructions at a movable insertion point. With a
// "before" instruction set, new instructions go immediately in front of
// it, in emission order; otherwise they are appended to the current block.
type Builder struct {
	fn     *Function
	blk    *BasicBlock
	before *Instr
}

// NewBuilder returns a builder for the function with no insertion point.
func NewBuilder(f *Function) *Builder {
	return &Builder{fn: f}
}

// SetInsertPoint places the builder immediately before the instruction.
func (b *Builder) SetInsertPoint(i *Instr) {
	if i.Block() == nil {
		panic("ir: insertion point is detached")
	}
	b.blk = i.Block()
	b.before = i
}

// SetInsertPointAtEnd places the builder at the end of the block.
func (b *Builder) SetInsertPointAtEnd(blk *BasicBlock) {
	b.blk = blk
	b.before = nil
}

func (b *Builder) insert(i *Instr, name string) *Instr {
	if b.blk == nil {
		panic("ir: builder has no insertion point")
	}
	if i.ty != Void {
		i.name = b.fn.uniqueName(name)
	}
	if b.before != nil {
		b.blk.InsertBefore(b.before, i)
	} else {
		b.blk.Append(i)
	}
	return i
}

// CreatePhi builds a phi node with no incoming edges yet.
func (b *Builder) CreatePhi(ty Type, name string) *Instr {
	return b.insert(&Instr{Op: OpPhi, ty: ty}, name)
}

// CreateBr builds an unconditional branch.
func (b *Builder) CreateBr(dest *BasicBlock) *Instr {
	return b.insert(&Instr{Op: OpBr, Succs: []*BasicBlock{dest}}, "")
}

// CreateCondBr builds a conditional branch; cond true goes to t.
func (b *Builder) CreateCondBr(cond Value, t, f *BasicBlock) *Instr {
	return b.insert(&Instr{Op: OpCondBr, Args: []Value{cond}, Succs: []*BasicBlock{t, f}}, "")
}

// CreateRet builds a return. v may be nil for a void return.
func (b *Builder) CreateRet(v Value) *Instr {
	i := &Instr{Op: OpRet}
	if v != nil {
		i.Args = []Value{v}
	}
	return b.insert(i, "")
}

// CreateLoad builds a load of the given type from addr.
func (b *Builder) CreateLoad(ty Type, addr Value, name string) *Instr {
	return b.insert(&Instr{Op: OpLoad, ty: ty, Args: []Value{addr}}, name)
}

// CreateStore builds a store of v to addr.
func (b *Builder) CreateStore(v, addr Value) *Instr {
	return b.insert(&Instr{Op: OpStore, Args: []Value{v, addr}}, "")
}

func (b *Builder) binop(op Op, ty Type, x, y Value, name string) *Instr {
	return b.insert(&Instr{Op: op, ty: ty, Args: []Value{x, y}}, name)
}

// CreateAdd builds integer/pointer addition; the result takes x's type.
func (b *Builder) CreateAdd(x, y Value, name string) *Instr {
	return b.binop(OpAdd, x.Type(), x, y, name)
}

// CreateSub builds integer subtraction.
func (b *Builder) CreateSub(x, y Value, name string) *Instr {
	return b.binop(OpSub, x.Type(), x, y, name)
}

// CreateMul builds integer multiplication.
func (b *Builder) CreateMul(x, y Value, name string) *Instr {
	return b.binop(OpMul, x.Type(), x, y, name)
}

// CreateFAdd builds floating addition.
func (b *Builder) CreateFAdd(x, y Value, name string) *Instr {
	return b.binop(OpFAdd, x.Type(), x, y, name)
}

// CreateFMul builds floating multiplication.
func (b *Builder) CreateFMul(x, y Value, name string) *Instr {
	return b.binop(OpFMul, x.Type(), x, y, name)
}

// CreateICmpULE builds an unsigned x <= y comparison.
func (b *Builder) CreateICmpULE(x, y Value, name string) *Instr {
	return b.binop(OpICmpULE, I1, x, y, name)
}

// CreateICmpULT builds an unsigned x < y comparison.
func (b *Builder) CreateICmpULT(x, y Value, name string) *Instr {
	return b.binop(OpICmpULT, I1, x, y, name)
}

// CreateICmpSLE builds a signed x <= y comparison.
func (b *Builder) CreateICmpSLE(x, y Value, name string) *Instr {
	return b.binop(OpICmpSLE, I1, x, y, name)
}

// CreateICmpSLT builds a signed x < y comparison.
func (b *Builder) CreateICmpSLT(x, y Value, name string) *Instr {
	return b.binop(OpICmpSLT, I1, x, y, name)
}

// CreateAnd builds bitwise and.
func (b *Builder) CreateAnd(x, y Value, name string) *Instr {
	return b.binop(OpAnd, x.Type(), x, y, name)
}

// CreateOr builds bitwise or.
func (b *Builder) CreateOr(x, y Value, name string) *Instr {
	return b.binop(OpOr, x.Type(), x, y, name)
}

// CreateCall builds a call with the given result type.
func (b *Builder) CreateCall(callee *Callee, args []Value, ty Type, name string) *Instr {
	return b.insert(&Instr{Op: OpCall, ty: ty, Args: args, Callee: callee}, name)
}

// CreateIntrinsic builds a hardware intrinsic call.
func (b *Builder) CreateIntrinsic(id Intrinsic, args []Value, name string) *Instr {
	return b.insert(&Instr{Op: OpIntrinsic, ty: id.ResultType(), Args: args, Intrinsic: id}, name)
}

// CreateInlineAsm builds an opaque inline-assembly instruction.
func (b *Builder) CreateInlineAsm(text string) *Instr {
	return b.insert(&Instr{Op: OpInlineAsm, Asm: text}, "")
}

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

package fixtures

import (
	"fmt"

	"github.com/ajroetker/ssrgen/ssr/affine"
	"github.com/ajroetker/ssrgen/ssr/ir"
)

const elemSize = 8 // bytes per f64

// reduce1D builds the canonical 1-D reduction
//
//	for i in 0..trips { sum += base[i] }
//
// mkBase supplies the base pointer both as the IR value the body
// addresses through and as the expression the analysis reports.
func reduce1D(name string, trips int64, mkBase func(fn *ir.Function) (ir.Value, affine.Expr)) (*Kernel, error) {
	fn := ir.NewFunction(name)
	baseVal, baseExpr := mkBase(fn)

	entry := fn.NewBlock("entry")
	loop := fn.NewBlock("loop")
	exit := fn.NewBlock("exit")

	b := ir.NewBuilder(fn)
	b.SetInsertPointAtEnd(entry)
	b.CreateBr(loop)

	b.SetInsertPointAtEnd(loop)
	i := b.CreatePhi(ir.I32, "i")
	sum := b.CreatePhi(ir.F64, "sum")
	off := b.CreateMul(i, ir.ConstInt(ir.I32, elemSize), "off")
	addr := b.CreateAdd(baseVal, off, "addr")
	x := b.CreateLoad(ir.F64, addr, "x")
	sumNext := b.CreateFAdd(sum, x, "sum.next")
	iNext := b.CreateAdd(i, ir.ConstInt(ir.I32, 1), "i.next")
	cond := b.CreateICmpULT(iNext, ir.ConstInt(ir.I32, trips), "cond")
	b.CreateCondBr(cond, loop, exit)
	i.AddIncoming(ir.ConstInt(ir.I32, 0), entry)
	i.AddIncoming(iNext, loop)
	sum.AddIncoming(ir.ConstFloat(ir.F64, 0), entry)
	sum.AddIncoming(sumNext, loop)

	b.SetInsertPointAtEnd(exit)
	lcssa := b.CreatePhi(ir.F64, "sum.lcssa")
	lcssa.AddIncoming(sumNext, loop)
	b.CreateRet(lcssa)

	li := ir.NewLoopInfo()
	l := li.NewLoop(loop, nil)

	table := affine.NewTable(li)
	table.NewAccess(false, baseExpr, x).
		AddDim(l, affine.Const(elemSize), affine.Const(trips-1))

	return &Kernel{Fn: fn, Analysis: table}, nil
}

// buildStream1D reads 100 doubles starting at a static scratchpad
// address.
func buildStream1D() (*Kernel, error) {
	return reduce1D("stream1d", 100, func(fn *ir.Function) (ir.Value, affine.Expr) {
		return ir.ConstInt(ir.I32, 0x100000), affine.Const(0x100000)
	})
}

// buildUnknownBase is the same kernel with the base address only known at
// runtime, so the scratchpad guard must decide between fast and slow
// path.
func buildUnknownBase() (*Kernel, error) {
	return reduce1D("unknown_base", 100, func(fn *ir.Function) (ir.Value, affine.Expr) {
		a := fn.AddParam("a", ir.Ptr)
		return a, affine.ValueOf(a)
	})
}

// buildNested2D builds
//
//	for i in 0..10 {
//	    for j in 0..10 { sum += a[i][j] }
//	    b[i] = sum
//	}
//
// The a reads form a 2-D stream over the outer loop; the b writes a
// separate conflict-free 1-D stream.
func buildNested2D() (*Kernel, error) {
	fn := ir.NewFunction("nested2d")
	a := fn.AddParam("a", ir.Ptr)
	bp := fn.AddParam("b", ir.Ptr)

	entry := fn.NewBlock("entry")
	outer := fn.NewBlock("outer.header")
	inner := fn.NewBlock("inner.header")
	latch := fn.NewBlock("outer.latch")
	exit := fn.NewBlock("exit")

	b := ir.NewBuilder(fn)
	b.SetInsertPointAtEnd(entry)
	b.CreateBr(outer)

	b.SetInsertPointAtEnd(outer)
	i := b.CreatePhi(ir.I32, "i")
	sumOuter := b.CreatePhi(ir.F64, "sum.outer")
	b.CreateBr(inner)

	b.SetInsertPointAtEnd(inner)
	j := b.CreatePhi(ir.I32, "j")
	sumInner := b.CreatePhi(ir.F64, "sum.inner")
	rowOff := b.CreateMul(i, ir.ConstInt(ir.I32, 10*elemSize), "row.off")
	colOff := b.CreateMul(j, ir.ConstInt(ir.I32, elemSize), "col.off")
	off := b.CreateAdd(rowOff, colOff, "off")
	addrA := b.CreateAdd(a, off, "addr.a")
	x := b.CreateLoad(ir.F64, addrA, "x")
	sumNext := b.CreateFAdd(sumInner, x, "sum.next")
	jNext := b.CreateAdd(j, ir.ConstInt(ir.I32, 1), "j.next")
	condJ := b.CreateICmpULT(jNext, ir.ConstInt(ir.I32, 10), "cond.j")
	b.CreateCondBr(condJ, inner, latch)
	j.AddIncoming(ir.ConstInt(ir.I32, 0), outer)
	j.AddIncoming(jNext, inner)
	sumInner.AddIncoming(sumOuter, outer)
	sumInner.AddIncoming(sumNext, inner)

	b.SetInsertPointAtEnd(latch)
	sumRow := b.CreatePhi(ir.F64, "sum.row")
	sumRow.AddIncoming(sumNext, inner)
	offB := b.CreateMul(i, ir.ConstInt(ir.I32, elemSize), "off.b")
	addrB := b.CreateAdd(bp, offB, "addr.b")
	st := b.CreateStore(sumRow, addrB)
	iNext := b.CreateAdd(i, ir.ConstInt(ir.I32, 1), "i.next")
	condI := b.CreateICmpULT(iNext, ir.ConstInt(ir.I32, 10), "cond.i")
	b.CreateCondBr(condI, outer, exit)
	i.AddIncoming(ir.ConstInt(ir.I32, 0), entry)
	i.AddIncoming(iNext, latch)
	sumOuter.AddIncoming(ir.ConstFloat(ir.F64, 0), entry)
	sumOuter.AddIncoming(sumRow, latch)

	b.SetInsertPointAtEnd(exit)
	lcssa := b.CreatePhi(ir.F64, "sum.lcssa")
	lcssa.AddIncoming(sumRow, latch)
	b.CreateRet(lcssa)

	li := ir.NewLoopInfo()
	lOuter := li.NewLoop(outer, nil)
	lInner := li.NewLoop(inner, lOuter)
	li.AddBlock(lOuter, latch)

	table := affine.NewTable(li)
	table.NewAccess(false, affine.ValueOf(a), x).
		AddDim(lInner, affine.Const(elemSize), affine.Const(9)).
		AddDim(lOuter, affine.Const(10*elemSize), affine.Const(9))
	table.NewAccess(true, affine.ValueOf(bp), st).
		AddDim(lOuter, affine.Const(elemSize), affine.Const(9))

	return &Kernel{Fn: fn, Analysis: table}, nil
}

// buildConflict copies 100 doubles between two pointer parameters that
// the analysis cannot prove disjoint: streaming requires the runtime
// non-overlap check.
func buildConflict() (*Kernel, error) {
	fn := ir.NewFunction("copy1d")
	src := fn.AddParam("src", ir.Ptr)
	dst := fn.AddParam("dst", ir.Ptr)

	entry := fn.NewBlock("entry")
	loop := fn.NewBlock("loop")
	exit := fn.NewBlock("exit")

	b := ir.NewBuilder(fn)
	b.SetInsertPointAtEnd(entry)
	b.CreateBr(loop)

	b.SetInsertPointAtEnd(loop)
	i := b.CreatePhi(ir.I32, "i")
	off := b.CreateMul(i, ir.ConstInt(ir.I32, elemSize), "off")
	addrSrc := b.CreateAdd(src, off, "addr.src")
	x := b.CreateLoad(ir.F64, addrSrc, "x")
	addrDst := b.CreateAdd(dst, off, "addr.dst")
	st := b.CreateStore(x, addrDst)
	iNext := b.CreateAdd(i, ir.ConstInt(ir.I32, 1), "i.next")
	cond := b.CreateICmpULT(iNext, ir.ConstInt(ir.I32, 100), "cond")
	b.CreateCondBr(cond, loop, exit)
	i.AddIncoming(ir.ConstInt(ir.I32, 0), entry)
	i.AddIncoming(iNext, loop)

	b.SetInsertPointAtEnd(exit)
	b.CreateRet(nil)

	li := ir.NewLoopInfo()
	l := li.NewLoop(loop, nil)

	table := affine.NewTable(li)
	rd := table.NewAccess(false, affine.ValueOf(src), x).
		AddDim(l, affine.Const(elemSize), affine.Const(99))
	wr := table.NewAccess(true, affine.ValueOf(dst), st).
		AddDim(l, affine.Const(elemSize), affine.Const(99))
	table.AddConflict(rd, wr, affine.MustNotIntersect)

	return &Kernel{Fn: fn, Analysis: table}, nil
}

// buildPoisoned builds a loop that already enables a stream by hand; the
// detector must keep inference away from it.
func buildPoisoned() (*Kernel, error) {
	fn := ir.NewFunction("poisoned")
	a := fn.AddParam("a", ir.Ptr)

	entry := fn.NewBlock("entry")
	loop := fn.NewBlock("loop")
	exit := fn.NewBlock("exit")

	b := ir.NewBuilder(fn)
	b.SetInsertPointAtEnd(entry)
	b.CreateBr(loop)

	b.SetInsertPointAtEnd(loop)
	i := b.CreatePhi(ir.I32, "i")
	b.CreateIntrinsic(ir.IntrEnable, nil, "")
	off := b.CreateMul(i, ir.ConstInt(ir.I32, elemSize), "off")
	addr := b.CreateAdd(a, off, "addr")
	x := b.CreateLoad(ir.F64, addr, "x")
	b.CreateIntrinsic(ir.IntrDisable, nil, "")
	iNext := b.CreateAdd(i, ir.ConstInt(ir.I32, 1), "i.next")
	cond := b.CreateICmpULT(iNext, ir.ConstInt(ir.I32, 100), "cond")
	b.CreateCondBr(cond, loop, exit)
	i.AddIncoming(ir.ConstInt(ir.I32, 0), entry)
	i.AddIncoming(iNext, loop)

	b.SetInsertPointAtEnd(exit)
	b.CreateRet(nil)

	li := ir.NewLoopInfo()
	l := li.NewLoop(loop, nil)

	table := affine.NewTable(li)
	table.NewAccess(false, affine.ValueOf(a), x).
		AddDim(l, affine.Const(elemSize), affine.Const(99))

	return &Kernel{Fn: fn, Analysis: table}, nil
}

// nestedCopy builds a depth-deep nest of 10-trip loops whose innermost
// body loads a[...] and stores the value to b[i_inner]. The load is
// declared affine in every level.
func nestedCopy(name string, depth int, elem ir.Type) (*Kernel, error) {
	fn := ir.NewFunction(name)
	a := fn.AddParam("a", ir.Ptr)
	bp := fn.AddParam("b", ir.Ptr)

	entry := fn.NewBlock("entry")
	headers := make([]*ir.BasicBlock, depth)
	for k := 0; k < depth; k++ {
		headers[k] = fn.NewBlock(fmt.Sprintf("h%d", k+1))
	}
	latches := make([]*ir.BasicBlock, depth-1)
	for k := depth - 2; k >= 0; k-- {
		latches[k] = fn.NewBlock(fmt.Sprintf("t%d", k+1))
	}
	exit := fn.NewBlock("exit")

	b := ir.NewBuilder(fn)
	b.SetInsertPointAtEnd(entry)
	b.CreateBr(headers[0])

	ivs := make([]*ir.Instr, depth)
	for k := 0; k < depth; k++ {
		b.SetInsertPointAtEnd(headers[k])
		ivs[k] = b.CreatePhi(ir.I32, fmt.Sprintf("i%d", k+1))
		if k < depth-1 {
			b.CreateBr(headers[k+1])
		}
	}

	// Innermost body plus its latch logic, all in the last header.
	b.SetInsertPointAtEnd(headers[depth-1])
	var off ir.Value
	stride := int64(elemSize)
	for k := depth - 1; k >= 0; k-- {
		term := b.CreateMul(ivs[k], ir.ConstInt(ir.I32, stride), fmt.Sprintf("off%d", k+1))
		if off == nil {
			off = term
		} else {
			off = b.CreateAdd(off, term, "off")
		}
		stride *= 10
	}
	addr := b.CreateAdd(a, off, "addr")
	x := b.CreateLoad(elem, addr, "x")
	offB := b.CreateMul(ivs[depth-1], ir.ConstInt(ir.I32, elemSize), "off.b")
	addrB := b.CreateAdd(bp, offB, "addr.b")
	b.CreateStore(x, addrB)

	// Back-edges, innermost outward.
	for k := depth - 1; k >= 0; k-- {
		if k < depth-1 {
			b.SetInsertPointAtEnd(latches[k])
		}
		next := b.CreateAdd(ivs[k], ir.ConstInt(ir.I32, 1), fmt.Sprintf("i%d.next", k+1))
		cond := b.CreateICmpULT(next, ir.ConstInt(ir.I32, 10), fmt.Sprintf("cond%d", k+1))
		out := exit
		if k > 0 {
			out = latches[k-1]
		}
		b.CreateCondBr(cond, headers[k], out)
		pred := entry
		if k > 0 {
			pred = headers[k-1]
		}
		ivs[k].AddIncoming(ir.ConstInt(ir.I32, 0), pred)
		if k == depth-1 {
			ivs[k].AddIncoming(next, headers[k])
		} else {
			ivs[k].AddIncoming(next, latches[k])
		}
	}

	b.SetInsertPointAtEnd(exit)
	b.CreateRet(nil)

	li := ir.NewLoopInfo()
	loops := make([]*ir.Loop, depth)
	var parent *ir.Loop
	for k := 0; k < depth; k++ {
		loops[k] = li.NewLoop(headers[k], parent)
		parent = loops[k]
	}
	for k := 0; k < depth-1; k++ {
		li.AddBlock(loops[k], latches[k])
	}

	table := affine.NewTable(li)
	acc := table.NewAccess(false, affine.ValueOf(a), x)
	step := int64(elemSize)
	for k := depth - 1; k >= 0; k-- {
		acc.AddDim(loops[k], affine.Const(step), affine.Const(9))
		step *= 10
	}

	return &Kernel{Fn: fn, Analysis: table}, nil
}

// buildDim5 exceeds the hardware's dimension ceiling at the nest root;
// the access is still streamable at the inner levels.
func buildDim5() (*Kernel, error) {
	return nestedCopy("dim5", 5, ir.F64)
}

// buildFloat32 loads an element type the stream hardware does not
// support.
func buildFloat32() (*Kernel, error) {
	return nestedCopy("float32", 1, ir.F32)
}

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

package ssr

import (
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/ajroetker/ssrgen/ssr/affine"
	"github.com/ajroetker/ssrgen/ssr/ir"
)

// describeStream writes a one-line description of an expanded access to
// stderr for -ssr-verbose.
func describeStream(e *affine.Expanded) {
	dir := "read "
	if e.Access.IsWrite() {
		dir = "write"
	}
	fmt.Fprintf(os.Stderr, "%s stream of dimension %d with base address %s.\n",
		dir, e.Dimension(), e.Access.BaseAddr(e.Dimension()))
}

// emitStreamSetup configures one data mover for an expanded access and
// rewrites the access sites to stream pops/pushes. All setup calls are
// emitted at point (the fast path's preheader terminator); the order is
// dictated by the hardware state machine: bound/stride per dimension,
// then repetition, then the base-address call, which starts prefetching
// and must come last.
func emitStreamSetup(cfg Config, e *affine.Expanded, dmid int, point *ir.Instr) {
	fn := point.Block().Func()
	b := ir.NewBuilder(fn)
	b.SetInsertPoint(point)

	dim := e.Dimension()
	klog.V(4).Infof("stream setup on data mover %d, dimension %d", dmid, dim)
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "Inferring ")
		describeStream(e)
	}
	if dim < 1 || dim > MaxDim {
		panic("ssr: stream dimension out of range")
	}
	dmidC := ir.ConstInt(ir.I32, int64(dmid))
	dimC := ir.ConstInt(ir.I32, int64(dim-1)) // hardware counts from zero

	for d := 1; d <= dim; d++ {
		stride := e.Steps[d-1]
		if d > 1 {
			// Higher-dimension strides are deltas on top of the distance
			// the lower dimensions already covered.
			stride = b.CreateSub(stride, e.PrefixSumRanges[d-2], fmt.Sprintf("stride.%dd", d))
		}
		bound := e.Reps[d-1]
		b.CreateIntrinsic(ir.BoundStrideIntrinsic(d), []ir.Value{dmidC, bound, stride}, "")
	}

	site := ir.NewBuilder(fn)
	nSites := 0
	if e.Access.IsWrite() {
		for _, st := range e.Access.Sites() {
			site.SetInsertPoint(st)
			site.CreateIntrinsic(ir.IntrPush, []ir.Value{dmidC, st.Args[0]}, "")
			st.Erase()
			nSites++
		}
	} else {
		for _, ld := range e.Access.Sites() {
			site.SetInsertPoint(ld)
			pop := site.CreateIntrinsic(ir.IntrPop, []ir.Value{dmidC}, "ssr.pop")
			fn.ReplaceAllUses(ld, pop)
			ld.Erase()
			nSites++
		}
	}

	b.CreateIntrinsic(ir.IntrSetupRepetition,
		[]ir.Value{dmidC, ir.ConstInt(ir.I32, int64(nSites-1))}, "")

	setup := ir.IntrSetupReadImm
	if e.Access.IsWrite() {
		setup = ir.IntrSetupWriteImm
	}
	b.CreateIntrinsic(setup, []ir.Value{dmidC, dimC, e.Addr}, "")
}

// emitBarrier inserts a drain wait for the data mover before insertBefore.
func emitBarrier(insertBefore *ir.Instr, dmid int) {
	b := ir.NewBuilder(insertBefore.Block().Func())
	b.SetInsertPoint(insertBefore)
	b.CreateIntrinsic(ir.IntrBarrier, []ir.Value{ir.ConstInt(ir.I32, int64(dmid))}, "")
}

// emitEnableDisable brackets the streamed region: enable before php (the
// preheader terminator), disable before exp (the exit block's first
// insertion point).
func emitEnableDisable(php, exp *ir.Instr) {
	b := ir.NewBuilder(php.Block().Func())
	b.SetInsertPoint(php)
	b.CreateIntrinsic(ir.IntrEnable, nil, "")
	b.SetInsertPoint(exp)
	b.CreateIntrinsic(ir.IntrDisable, nil, "")
	klog.V(4).Info("generated stream_enable and stream_disable")
}

// cloneAndSetup guards the loop region with cond and installs the
// streams. With a runtime guard the region between phT and exP is cloned
// into fast and slow versions first; a guard that folded to constant true
// skips the cloning, and one that folded to false aborts the transform
// for this loop.
func cloneAndSetup(cfg Config, phT, exP *ir.Instr, cond ir.Value, exps []affine.Expanded) {
	if len(exps) > NumStreams {
		panic("ssr: more expanded accesses than data movers")
	}
	if len(exps) == 0 {
		return
	}

	if c, ok := cond.(*ir.Const); ok {
		// The runtime checks were decided at compile time. False should
		// not happen, but means the fast path is never safe.
		if !c.IsTrue() {
			return
		}
	} else {
		headBr, fuseBr, _ := cloneRegion(phT, exP)
		headBr.SetCondition(cond)
		exP = fuseBr // disable goes before the original region's rejoin
	}

	for dmid := range exps {
		emitStreamSetup(cfg, &exps[dmid], dmid, phT)
		if cfg.Barrier {
			emitBarrier(exP, dmid)
		}
	}

	emitEnableDisable(phT, exP)
}

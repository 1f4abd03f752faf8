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
	"k8s.io/klog/v2"

	"github.com/ajroetker/ssrgen/ssr/ir"
)

// copyPhisFromPred mirrors the phi nodes of bb's single predecessor into
// bb, so that after the region is duplicated both the original and the
// clone can contribute incoming values at the rejoin.
func copyPhisFromPred(bb *ir.BasicBlock) {
	preds := bb.Preds()
	if len(preds) != 1 {
		panic("ssr: rejoin block must have a single predecessor")
	}
	pred := preds[0]
	fn := bb.Func()

	b := ir.NewBuilder(fn)
	for _, phi := range pred.Phis() {
		b.SetInsertPoint(bb.FirstNonPhi())
		phiC := b.CreatePhi(phi.Type(), phi.Name()+".copy")
		// All users outside pred now read the mirror.
		fn.ReplaceUsesOutsideBlock(phi, phiC, pred)
		phiC.AddIncoming(phi, pred)
	}
}

// cloneRegion duplicates the CFG region reached from beginWith up to but
// not including endBefore, and installs a conditional branch at the entry
// so runtime selects the original or the clone.
//
// Preconditions: every path out of beginWith leads to endBefore or to a
// return, and every value defined in the region and live after endBefore
// is routed through a phi in endBefore's block (LCSSA form).
//
// Returns the conditional branch at the head (condition initially the
// constant false; the caller installs the real guard), the original
// region's branch into the rejoin block, and that branch's clone.
func cloneRegion(beginWith, endBefore *ir.Instr) (headBr, fuseBr, fuseBrClone *ir.Instr) {
	klog.V(4).Infof("cloning region from %s up to %s", beginWith, endBefore)

	fn := beginWith.Block().Func()

	head, begin := ir.SplitBlockBefore(beginWith, "split.before")
	fusePrep, end := ir.SplitBlockBefore(endBefore, "fuse.prep")
	fuseBr = fusePrep.Terminator()
	copyPhisFromPred(end)

	// BFS the region, cloning blocks and instructions. Operands are
	// rewritten immediately when their clone already exists; forward
	// references (back-edges) are fixed up after the walk.
	valClones := make(map[ir.Value]ir.Value)
	blockClones := make(map[*ir.BasicBlock]*ir.BasicBlock)
	var clonedInstrs []*ir.Instr
	type fixup struct {
		idx int
		in  *ir.Instr
	}
	var deferred []fixup

	queue := []*ir.BasicBlock{begin}
	visited := make(map[*ir.BasicBlock]bool)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == end || visited[c] {
			continue
		}
		visited[c] = true

		cc := fn.NewBlockBefore(c, c.Name()+".clone")
		blockClones[c] = cc
		for _, i := range c.Instrs {
			ic := i.Clone()
			cc.Append(ic)
			fn.Rename(ic, i.Name()+".clone")
			for k, arg := range ic.Args {
				if a, ok := valClones[arg]; ok {
					ic.Args[k] = a
				} else {
					deferred = append(deferred, fixup{k, ic})
				}
			}
			valClones[i] = ic
			clonedInstrs = append(clonedInstrs, ic)
		}
		queue = append(queue, c.Succs()...)
	}

	// Deferred operand fix-up: operands still referencing an original
	// that was cloned after the use was copied. Anything absent from the
	// map was defined before the region and stays as is.
	for _, f := range deferred {
		if a, ok := valClones[f.in.Args[f.idx]]; ok {
			f.in.Args[f.idx] = a
		}
	}

	// Successor edges and phi incoming edges of the clones point into
	// the clone where a cloned counterpart exists. Incoming blocks are
	// not operands and are rewritten here, separately from values.
	for _, ic := range clonedInstrs {
		for k, s := range ic.Succs {
			if sc, ok := blockClones[s]; ok {
				ic.Succs[k] = sc
			}
		}
		for k := range ic.Incoming {
			if vc, ok := valClones[ic.Incoming[k].Value]; ok {
				ic.Incoming[k].Value = vc
			}
			if bc, ok := blockClones[ic.Incoming[k].Block]; ok {
				ic.Incoming[k].Block = bc
			}
		}
	}

	// Turn the head's unconditional branch into the runtime selector:
	// true takes the original region, where the streams are installed.
	oldBr := head.Terminator()
	succ := oldBr.Succs[0]
	succClone := blockClones[succ]
	oldBr.Erase()
	b := ir.NewBuilder(fn)
	b.SetInsertPointAtEnd(head)
	headBr = b.CreateCondBr(ir.ConstBool(false), succ, succClone)

	// The rejoin phis gain one incoming edge per cloned predecessor,
	// with the cloned value when one exists (region-external values and
	// constants pass through unchanged).
	for _, phi := range end.Phis() {
		edges := append([]ir.PhiEdge(nil), phi.Incoming...)
		for _, e := range edges {
			bc, ok := blockClones[e.Block]
			if !ok {
				continue
			}
			v := e.Value
			if vc, ok := valClones[v]; ok {
				v = vc
			}
			phi.AddIncoming(v, bc)
		}
	}

	fuseBrClone = valClones[fuseBr].(*ir.Instr)
	klog.V(4).Info("done cloning")
	return headBr, fuseBr, fuseBrClone
}

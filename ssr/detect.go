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

// findLoopsWithSSR walks the CFG from the entry and collects every loop
// that already carries stream activity, so inference never nests streams.
//
// A block poisons its containing loops when it calls a function tagged
// SSR, calls a stream intrinsic, or contains inline assembly (which may
// conceal raw stream instructions). Intrinsic calls and inline assembly
// additionally mark the block: the marking propagates along successor
// edges, poisoning every loop it flows through, until a stream_disable is
// observed. Each block is visited at most once per marking state.
func findLoopsWithSSR(f *ir.Function, li *ir.LoopInfo) map[*ir.Loop]bool {
	invalid := make(map[*ir.Loop]bool)

	type item struct {
		b      *ir.BasicBlock
		marked bool
	}
	work := []item{{f.Entry(), false}}
	visMarked := make(map[*ir.BasicBlock]bool)
	visUnmarked := make(map[*ir.BasicBlock]bool)

	poison := func(b *ir.BasicBlock) {
		for l := li.LoopFor(b); l != nil; l = l.Parent {
			invalid[l] = true
		}
	}

	for len(work) > 0 {
		it := work[0]
		work = work[1:]
		b, marked := it.b, it.marked
		if b == nil {
			continue
		}

		if marked {
			if visMarked[b] {
				continue
			}
			visMarked[b] = true
			poison(b)

			// A disable in this block clears the marking for the
			// successors.
			for _, i := range b.Instrs {
				if i.Op == ir.OpIntrinsic && i.Intrinsic == ir.IntrDisable {
					marked = false
				}
				if !marked {
					break
				}
			}
		} else {
			if visUnmarked[b] {
				continue
			}
			visUnmarked[b] = true

			for _, i := range b.Instrs {
				switch i.Op {
				case ir.OpCall:
					if i.Callee.HasAttr(FnAttrSSR) {
						klog.V(4).Infof("call to %s carries the %s attribute", i.Callee.Name, FnAttrSSR)
						// Loops containing the call cannot stream, but
						// successors can, assuming the callee brackets
						// its streams correctly.
						poison(b)
					}
				case ir.OpIntrinsic:
					if i.Intrinsic.IsStream() {
						klog.V(4).Infof("block %s calls stream intrinsic %s", b.Name(), i.Intrinsic)
						marked = true
					}
				case ir.OpInlineAsm:
					klog.V(4).Infof("block %s contains inline asm, assuming stream use", b.Name())
					marked = true
				}
			}
			if marked {
				work = append(work, item{b, true})
			}
		}

		for _, s := range b.Succs() {
			work = append(work, item{s, marked})
		}
	}

	if klog.V(4).Enabled() && len(invalid) > 0 {
		for l := range invalid {
			klog.V(4).Infof("loop with header %s at depth %d is invalid for streams", l.Header.Name(), l.Depth())
		}
	}
	return invalid
}

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

	"github.com/ajroetker/ssrgen/ssr/affine"
	"github.com/ajroetker/ssrgen/ssr/ir"
)

// scratchpadCheck builds the address-range membership check for one
// expanded access: SCRATCHPAD_BEGIN <= lower && upper <= SCRATCHPAD_END,
// both bounds inclusive.
func scratchpadCheck(b *ir.Builder, e *affine.Expanded) ir.Value {
	c1 := b.CreateICmpULE(ir.ConstInt(ir.I32, ScratchpadBegin), e.LowerBound, "beg.check")
	c2 := b.CreateICmpULE(e.UpperBound, ir.ConstInt(ir.I32, ScratchpadEnd), "end.check")
	return b.CreateAnd(c1, c2, "tcdm.check")
}

// expandInLoop materializes the candidate set's setup data and runtime
// checks in l's preheader. It returns the expanded accesses and the
// guard: a boolean that is true at runtime precisely when the streamed
// fast path is safe. With every check elided the guard is the constant
// true.
func expandInLoop(cfg Config, accs []affine.Access, l *ir.Loop, aa affine.Analysis) ([]affine.Expanded, ir.Value, error) {
	if len(accs) == 0 || len(accs) > NumStreams {
		panic("ssr: candidate set size out of range")
	}
	ph := l.Preheader()
	if ph == nil {
		panic("ssr: expanding in a loop without preheader")
	}
	at := ph.Terminator()

	klog.V(4).Infof("expanding in loop %s at depth %d", l.Header.Name(), l.Depth())

	exps, cond, err := aa.ExpandAllAt(accs, l, at, !cfg.NoIntersectCheck, !cfg.NoBoundCheck)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.NoTCDMCheck {
		b := ir.NewBuilder(ph.Func())
		b.SetInsertPoint(at)
		for i := range exps {
			chk := scratchpadCheck(b, &exps[i])
			if c, ok := cond.(*ir.Const); ok && c.IsTrue() {
				cond = chk
			} else {
				cond = b.CreateAnd(cond, chk, "check")
			}
		}
	}

	if cond.Type() != ir.I1 {
		panic("ssr: guard condition is not boolean")
	}
	return exps, cond, nil
}

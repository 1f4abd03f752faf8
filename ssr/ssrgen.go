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

// Package ssr infers streaming semantic register usage: it finds affine
// memory accesses in candidate loops, maps the most profitable
// non-overlapping loops onto the hardware's stream engines, guards each
// transformed region with runtime safety checks, clones the region into a
// fast (streamed) and slow (scalar) version, and rewrites the fast path's
// loads and stores into stream pops and pushes bracketed by
// enable/disable.
package ssr

import (
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/ajroetker/ssrgen/ssr/affine"
	"github.com/ajroetker/ssrgen/ssr/ir"
)

// Hardware contract. None of these are tunable.
const (
	// NumStreams is the number of data movers available.
	NumStreams = 3

	// MaxDim is the maximum affine dimensionality one stream can drive.
	MaxDim = 4

	// ScratchpadBegin and ScratchpadEnd delimit the address range the
	// hardware can stream from. Both ends are inclusive.
	ScratchpadBegin = 0x100000
	ScratchpadEnd   = 0x120000

	// ElemType is the single element type the stream hardware supports.
	ElemType = ir.F64

	// FnAttrSSR tags functions that contain stream activity.
	FnAttrSSR = "SSR"
)

// Pass is the stream inference transformation. One instance may be run
// over any number of functions; all per-run state is local to Run.
type Pass struct {
	Config Config
}

// New returns a pass with the given configuration.
func New(cfg Config) *Pass {
	return &Pass{Config: cfg}
}

// visitLoop collects the candidate set and estimated gain for one loop
// and inserts the loop into its top-level loop's conflict tree. It must
// run for every loop of the nest, including invalid ones, so the tree
// mirrors the nest completely.
func (p *Pass) visitLoop(l *ir.Loop, possible map[*ir.Loop][]affine.Access, tree *conflictTree[*ir.Loop], aa affine.Analysis, knownInvalid bool) {
	cfg := p.Config

	accs := aa.ExpandableAccesses(l, cfg.ConflictFreeOnly)
	if knownInvalid || !validLoop(l) {
		accs = nil
	}

	cands := selectCandidates(accs, l)

	gain := 0
	if len(cands) > 0 {
		g, err := estimateGain(cands, l, cfg)
		if err != nil {
			// A bad conflict: this candidate set cannot be expanded
			// here. Skip the loop, keep walking the nest.
			klog.V(4).Infof("skipping loop %s: %v", l.Header.Name(), err)
			cands = nil
		} else {
			gain = g
		}
	}
	klog.V(4).Infof("loop %s: %d candidates, estimated gain %d", l.Header.Name(), len(cands), gain)

	possible[l] = cands

	val := gain
	if val < 0 {
		val = 0
	}
	var parent *ir.Loop
	if !l.IsOutermost() {
		parent = l.Parent
	}
	tree.insert(l, val, parent)

	if cfg.Verbose {
		for _, a := range cands {
			fmt.Fprintf(os.Stderr, "potential stream with base addr %s of dimension %d\n",
				a.BaseAddr(a.LoopToDimension(l)), a.LoopToDimension(l))
		}
		if len(cands) > 0 {
			fmt.Fprintf(os.Stderr, "With est. gain = %d\n", gain)
		}
	}
}

// Run applies the pass to one function, consulting aa for affine-access
// facts. It reports whether the function changed.
//
// The run has two strictly separated phases. The first phase is the only
// one that queries the analysis: it walks every loop nest, builds the
// conflict trees, selects the best loops, and expands their setup data
// and guards in the preheaders (the only IR it adds). A loop whose
// expansion fails is skipped. The second phase clones the guarded regions
// and emits the stream intrinsics. No analysis result is consulted after
// the first clone, since cloning renders cached affine-access data stale.
func (p *Pass) Run(f *ir.Function, aa affine.Analysis) (bool, error) {
	cfg := p.Config
	klog.V(4).Infof("stream inference on function %s, config %+v", f.Name, cfg)

	if !cfg.InferSSR {
		return false, nil
	}
	if f.HasAttr(FnAttrSSR) {
		// The function already contains streams.
		return false, nil
	}

	li := aa.LoopInfo()
	invalid := findLoopsWithSSR(f, li)

	possible := make(map[*ir.Loop][]affine.Access)
	conds := make(map[*ir.Loop]ir.Value)
	exps := make(map[*ir.Loop][]affine.Expanded)
	bestLoops := make(map[*ir.Loop][]*ir.Loop)

	changed := false
	for _, top := range li.TopLevel() {
		tree := newConflictTree[*ir.Loop]()

		worklist := []*ir.Loop{top}
		for len(worklist) > 0 {
			l := worklist[0]
			worklist = worklist[1:]
			p.visitLoop(l, possible, tree, aa, invalid[l])
			worklist = append(worklist, l.Children...)
		}

		// Map the best loops of this nest to the data movers.
		best := tree.findBest(func(a, b int) int { return a + b })

		for _, l := range best {
			accs := possible[l]
			if len(accs) == 0 {
				continue
			}
			exp, cond, err := expandInLoop(cfg, accs, l, aa)
			if err != nil {
				// A bad conflict the gain estimate did not consult
				// (intersect checks elided): skip the loop.
				klog.V(4).Infof("skipping loop %s: %v", l.Header.Name(), err)
				continue
			}
			changed = true
			conds[l] = cond
			exps[l] = exp
		}
		bestLoops[top] = best
	}

	// Mutation phase. Cloning falsifies the analyses; nothing below may
	// query aa.
	for _, top := range li.TopLevel() {
		for _, l := range bestLoops[top] {
			cond, ok := conds[l]
			if !ok {
				continue
			}
			ex := l.ExitBlock()
			if ex == nil {
				panic("ssr: chosen loop lost its single exit")
			}
			if cfg.Verbose {
				fmt.Fprintf(os.Stderr,
					"> Function %s: Expanding SSR streams with %d containing loops and setup in preheader of loop with header %s\n",
					f.Name, l.Depth()-1, l.Header.Name())
			}
			cloneAndSetup(cfg, l.Preheader().Terminator(), ex.FirstInsertionPoint(), cond, exps[l])
		}
	}

	if !changed {
		return false, nil
	}
	f.AddAttr(FnAttrSSR)
	if cfg.NoInline {
		f.AddAttr("noinline")
	}
	return true, nil
}

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

	"github.com/ajroetker/ssrgen/ssr/affine"
	"github.com/ajroetker/ssrgen/ssr/ir"
)

// gainParams are the cost-model weights. They are fixed in production;
// tests vary them to probe monotonicity.
type gainParams struct {
	// memOpCost is the saving per removed load/store.
	memOpCost int

	// mulCost is the cost of one multiplication when materializing a
	// dimension's address range.
	mulCost int

	// loopTripCount is the trip-count guess for loops whose repetition
	// is not a compile-time constant.
	loopTripCount int
}

var defaultGainParams = gainParams{
	memOpCost:     2,
	mulCost:       3,
	loopTripCount: 25,
}

// estExpandCost estimates the instructions needed to materialize an
// access's setup data (base address, strides, repetitions, ranges) in the
// preheader.
func estExpandCost(a affine.Access, dim int, p gainParams) int {
	cost := a.BaseAddr(dim).Size()
	for d := 1; d <= dim; d++ {
		cost += a.Step(d).Size()
		cost += a.Rep(d).Size()
		cost += p.mulCost // range
		if d > 1 {
			cost++ // prefix-sum addition
		}
	}
	return cost
}

// estimateGain estimates the benefit of streaming the candidate set accs
// over loop l: removed memory operations minus expansion and runtime
// check overhead. Conflicts are consulted only when intersect checks are
// enabled; a BadConflict then makes the set inexpandable at l and is
// reported as an error.
func estimateGain(accs []affine.Access, l *ir.Loop, cfg Config) (int, error) {
	return estimateGainParams(accs, l, cfg, defaultGainParams)
}

func estimateGainParams(accs []affine.Access, l *ir.Loop, cfg Config, p gainParams) (int, error) {
	gain := 0
	inSet := make(map[affine.Access]bool, len(accs))
	for _, a := range accs {
		inSet[a] = true
	}

	contLoops := make(map[*ir.Loop]bool)
	vis := make(map[affine.Access]bool)
	for _, a := range accs {
		vis[a] = true
		dim := a.LoopToDimension(l)

		gain -= estExpandCost(a, dim, p)

		if !cfg.NoIntersectCheck {
			for _, c := range a.Conflicts(l) {
				switch c.Kind {
				case affine.NoConflict:
				case affine.MustNotIntersect:
					if vis[c.Other] {
						break // counted when the roles were swapped
					}
					if !inSet[c.Other] {
						gain -= estExpandCost(c.Other, c.Other.LoopToDimension(l), p)
					}
					gain -= 4 // 2x icmp.ult, or, and
				case affine.BadConflict:
					return 0, fmt.Errorf("ssr: bad conflict for candidate set in loop %s", l.Header.Name())
				default:
					panic("ssr: unknown conflict kind")
				}
			}
		}

		if !cfg.NoTCDMCheck {
			gain -= 4 // 2x icmp.ule, 2x and
		}

		reps := 1
		for d := dim; d >= 1; d-- {
			tc := p.loopTripCount
			if v, ok := affine.ConstValue(a.Rep(d)); ok {
				tc = int(v)
			}
			// Saturate rather than overflow.
			if n := reps * tc; n > reps {
				reps = n
			}
			contLoops[a.LoopAt(d)] = true
		}
		gain += p.memOpCost * reps // memory ops removed by the stream
	}

	if !cfg.NoBoundCheck {
		gain -= 2 * len(contLoops) // icmp, and per contributing loop
	}

	return gain, nil
}

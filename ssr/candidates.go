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
	"sort"

	"github.com/ajroetker/ssrgen/ssr/affine"
	"github.com/ajroetker/ssrgen/ssr/ir"
)

// validAccess enforces the hardware constraints on a candidate: every
// site moves the supported element type, and the dimensionality over l
// fits the engines.
func validAccess(a affine.Access, l *ir.Loop) bool {
	write := a.IsWrite()
	for _, site := range a.Sites() {
		var ty ir.Type
		if write {
			ty = site.Args[0].Type() // stored value
		} else {
			ty = site.Type()
		}
		if ty != ElemType {
			return false
		}
	}
	return a.LoopToDimension(l) <= MaxDim
}

// selectCandidates filters the accesses down to those the hardware can
// stream over l, orders them by dimension (ascending, reads before writes
// at equal dimension), and caps the set at the engine count. Low
// dimensions sort first so candidates at outer loops rank fairly against
// high-dimension candidates at inner loops during tree selection.
func selectCandidates(accs []affine.Access, l *ir.Loop) []affine.Access {
	var valid []affine.Access
	for _, a := range accs {
		if validAccess(a, l) {
			valid = append(valid, a)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		di := valid[i].LoopToDimension(l)
		dj := valid[j].LoopToDimension(l)
		if di != dj {
			return di < dj
		}
		return !valid[i].IsWrite() && valid[j].IsWrite()
	})
	if len(valid) > NumStreams {
		valid = valid[:NumStreams]
	}
	return valid
}

// validLoop re-checks the structural preconditions loop canonicalization
// should have established.
func validLoop(l *ir.Loop) bool {
	return l.Preheader() != nil && l.ExitBlock() != nil
}

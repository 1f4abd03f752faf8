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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajroetker/ssrgen/ssr/fixtures"
	"github.com/ajroetker/ssrgen/ssr/ir"
)

// reaches reports whether dest is reachable from src along CFG edges.
func reaches(src, dest *ir.BasicBlock) bool {
	seen := map[*ir.BasicBlock]bool{}
	work := []*ir.BasicBlock{src}
	for len(work) > 0 {
		b := work[0]
		work = work[1:]
		if b == dest {
			return true
		}
		if seen[b] {
			continue
		}
		seen[b] = true
		work = append(work, b.Succs()...)
	}
	return false
}

func TestCloneRegion(t *testing.T) {
	fx, err := fixtures.Lookup("unknown-base")
	require.NoError(t, err)
	k, err := fx.Build()
	require.NoError(t, err)
	fn := k.Fn

	l := k.Analysis.LoopInfo().TopLevel()[0]
	phT := l.Preheader().Terminator()
	exP := l.ExitBlock().FirstInsertionPoint()
	before := len(fn.Blocks)

	headBr, fuseBr, fuseBrClone := cloneRegion(phT, exP)

	// Head: a conditional branch whose two targets are the original
	// region entry and the clone's entry.
	if headBr.Op != ir.OpCondBr {
		t.Fatalf("head terminator = %v, want condbr", headBr.Op)
	}
	orig, clone := headBr.Succs[0], headBr.Succs[1]
	if orig == clone {
		t.Fatal("fast and slow path must be distinct")
	}
	if !strings.HasSuffix(clone.Name(), ".clone") {
		t.Errorf("false edge should enter the clone, got %s", clone.Name())
	}

	// Both region branches rejoin at the same block.
	end := fuseBr.Succs[0]
	if fuseBrClone.Succs[0] != end {
		t.Fatal("original and clone must rejoin at the same block")
	}
	if !reaches(orig, end) || !reaches(clone, end) {
		t.Fatal("both paths must reach the rejoin block")
	}

	// The split produced head + fuse.prep, the clone duplicated the
	// three-region blocks (entry remainder, loop, fuse.prep).
	if got, want := len(fn.Blocks), before+2+3; got != want {
		t.Fatalf("block count = %d, want %d", got, want)
	}

	// Every rejoin phi has contributions from both regions.
	for _, phi := range end.Phis() {
		var fromOrig, fromClone bool
		for _, e := range phi.Incoming {
			if e.Block == fuseBr.Block() {
				fromOrig = true
			}
			if e.Block == fuseBrClone.Block() {
				fromClone = true
			}
		}
		if !fromOrig || !fromClone {
			t.Fatalf("phi %s lacks a contribution from one region", phi.Name())
		}
	}

	// Cloned back-edges stay inside the clone.
	loopClone := clone.Succs()[0]
	if !strings.HasSuffix(loopClone.Name(), ".clone") {
		t.Fatalf("clone entry should branch into cloned loop, got %s", loopClone.Name())
	}
	backEdge := loopClone.Terminator()
	if backEdge.Succs[0] != loopClone {
		t.Fatalf("cloned back-edge must target the cloned header, got %s", backEdge.Succs[0].Name())
	}

	// Cloned phis take their values and blocks from the clone.
	for _, phi := range loopClone.Phis() {
		for _, e := range phi.Incoming {
			if e.Block != loopClone && !strings.HasSuffix(e.Block.Name(), ".clone") {
				t.Fatalf("cloned phi %s still names original block %s", phi.Name(), e.Block.Name())
			}
		}
	}

	// The guard is installable afterwards.
	cond := ir.ConstBool(true)
	headBr.SetCondition(cond)
	if headBr.Args[0] != ir.Value(cond) {
		t.Fatal("SetCondition must rewrite the branch operand")
	}
}

func TestCopyPhisFromPred(t *testing.T) {
	fx, err := fixtures.Lookup("unknown-base")
	require.NoError(t, err)
	k, err := fx.Build()
	require.NoError(t, err)
	fn := k.Fn

	l := k.Analysis.LoopInfo().TopLevel()[0]
	exit := l.ExitBlock()
	ret := exit.Terminator()
	lcssa := exit.Phis()[0]

	fusePrep, end := ir.SplitBlockBefore(exit.FirstInsertionPoint(), "fuse.prep")
	copyPhisFromPred(end)

	require.Len(t, end.Phis(), 1)
	mirror := end.Phis()[0]
	if v, ok := mirror.IncomingFor(fusePrep); !ok || v != ir.Value(lcssa) {
		t.Fatal("mirror phi must read the original through the fuse block")
	}
	if ret.Args[0] != ir.Value(mirror) {
		t.Fatal("users after the rejoin must read the mirror")
	}
	if fn.Blocks[len(fn.Blocks)-1] != end {
		t.Fatal("the rejoin block keeps its layout position")
	}
}

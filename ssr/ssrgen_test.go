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

func runFixture(t *testing.T, name string, cfg Config) (*fixtures.Kernel, bool) {
	t.Helper()
	fx, err := fixtures.Lookup(name)
	require.NoError(t, err)
	k, err := fx.Build()
	require.NoError(t, err)
	cfg.InferSSR = true
	changed, err := New(cfg).Run(k.Fn, k.Analysis)
	require.NoError(t, err)
	return k, changed
}

func findIntrinsics(fn *ir.Function, id ir.Intrinsic) []*ir.Instr {
	var out []*ir.Instr
	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			if i.Op == ir.OpIntrinsic && i.Intrinsic == id {
				out = append(out, i)
			}
		}
	}
	return out
}

func countIntrinsics(fn *ir.Function, id ir.Intrinsic) int {
	return len(findIntrinsics(fn, id))
}

func countOps(fn *ir.Function, op ir.Op) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			if i.Op == op {
				n++
			}
		}
	}
	return n
}

func constArg(t *testing.T, i *ir.Instr, idx int) int64 {
	t.Helper()
	c, ok := i.Args[idx].(*ir.Const)
	if !ok {
		t.Fatalf("argument %d of %s is not constant", idx, i.Format())
	}
	return c.IntVal
}

// checkEnableDisableBalance walks every CFG path carrying the running
// enable/disable balance; at each return the brackets must be closed.
// Each (block, balance) pair is visited once, which handles cycles.
func checkEnableDisableBalance(t *testing.T, fn *ir.Function) {
	t.Helper()
	type state struct {
		b       *ir.BasicBlock
		balance int
	}
	seen := map[state]bool{}
	work := []state{{fn.Entry(), 0}}
	for len(work) > 0 {
		s := work[0]
		work = work[1:]
		if seen[s] {
			continue
		}
		seen[s] = true
		balance := s.balance
		for _, i := range s.b.Instrs {
			if i.Op != ir.OpIntrinsic {
				continue
			}
			switch i.Intrinsic {
			case ir.IntrEnable:
				balance++
			case ir.IntrDisable:
				balance--
			}
			if balance < 0 {
				t.Fatalf("disable without enable in block %s", s.b.Name())
			}
		}
		if term := s.b.Terminator(); term != nil && term.Op == ir.OpRet && balance != 0 {
			t.Fatalf("unbalanced enable/disable (%d) on a path through %s", balance, s.b.Name())
		}
		for _, succ := range s.b.Succs() {
			work = append(work, state{succ, balance})
		}
	}
}

// setupBlock returns the block holding the stream setup calls.
func setupBlock(t *testing.T, fn *ir.Function) *ir.BasicBlock {
	t.Helper()
	ens := findIntrinsics(fn, ir.IntrEnable)
	require.Len(t, ens, 1)
	return ens[0].Block()
}

func TestStream1D(t *testing.T) {
	k, changed := runFixture(t, "stream1d", Config{})
	fn := k.Fn
	if !changed {
		t.Fatal("expected streams to be inferred")
	}
	if !fn.HasAttr(FnAttrSSR) {
		t.Fatal("function must be tagged SSR")
	}

	bs := findIntrinsics(fn, ir.IntrSetupBoundStride1D)
	require.Len(t, bs, 1)
	if got := constArg(t, bs[0], 0); got != 0 {
		t.Errorf("data mover id = %d, want 0", got)
	}
	if got := constArg(t, bs[0], 1); got != 99 {
		t.Errorf("bound = %d, want 99", got)
	}
	if got := constArg(t, bs[0], 2); got != 8 {
		t.Errorf("stride = %d, want 8", got)
	}

	rd := findIntrinsics(fn, ir.IntrSetupReadImm)
	require.Len(t, rd, 1)
	if got := constArg(t, rd[0], 1); got != 0 {
		t.Errorf("encoded dimension = %d, want dim-1 = 0", got)
	}

	rep := findIntrinsics(fn, ir.IntrSetupRepetition)
	require.Len(t, rep, 1)
	if got := constArg(t, rep[0], 1); got != 0 {
		t.Errorf("repetition = %d, want sites-1 = 0", got)
	}

	if got := countIntrinsics(fn, ir.IntrPop); got != 1 {
		t.Errorf("pop count = %d, want 1", got)
	}
	// The fast path's load is gone; the slow clone keeps its copy.
	if got := countOps(fn, ir.OpLoad); got != 1 {
		t.Errorf("remaining loads = %d, want 1 (slow path)", got)
	}
	pops := findIntrinsics(fn, ir.IntrPop)
	if strings.HasSuffix(pops[0].Block().Name(), ".clone") {
		t.Error("the pop must live on the fast path")
	}

	if countIntrinsics(fn, ir.IntrEnable) != 1 || countIntrinsics(fn, ir.IntrDisable) != 1 {
		t.Error("exactly one enable and one disable expected")
	}
	checkEnableDisableBalance(t, fn)
}

func TestStream1DSetupOrder(t *testing.T) {
	k, _ := runFixture(t, "stream1d", Config{})
	blk := setupBlock(t, k.Fn)

	pos := map[ir.Intrinsic]int{}
	for idx, i := range blk.Instrs {
		if i.Op == ir.OpIntrinsic {
			if _, dup := pos[i.Intrinsic]; !dup {
				pos[i.Intrinsic] = idx
			}
		}
	}
	bs, okBS := pos[ir.IntrSetupBoundStride1D]
	rep, okRep := pos[ir.IntrSetupRepetition]
	rd, okRd := pos[ir.IntrSetupReadImm]
	en, okEn := pos[ir.IntrEnable]
	if !okBS || !okRep || !okRd || !okEn {
		t.Fatal("setup calls missing from the preheader")
	}
	if !(bs < rep && rep < rd && rd < en) {
		t.Fatalf("setup order wrong: bound/stride %d, repetition %d, read %d, enable %d", bs, rep, rd, en)
	}
}

func TestStream1DNoChecksSkipsCloning(t *testing.T) {
	cfg := Config{NoIntersectCheck: true, NoTCDMCheck: true, NoBoundCheck: true}
	k, changed := runFixture(t, "stream1d", cfg)
	fn := k.Fn
	if !changed {
		t.Fatal("expected streams to be inferred")
	}
	// The guard folded to true: no fast/slow split, no block growth.
	if got := len(fn.Blocks); got != 3 {
		t.Fatalf("block count = %d, want 3 (no cloning)", got)
	}
	if got := countOps(fn, ir.OpLoad); got != 0 {
		t.Errorf("remaining loads = %d, want 0", got)
	}
	checkEnableDisableBalance(t, fn)
}

func TestUnknownBaseGuardedClone(t *testing.T) {
	k, changed := runFixture(t, "unknown-base", Config{})
	fn := k.Fn
	if !changed {
		t.Fatal("expected streams to be inferred")
	}

	// The entry now ends in the runtime selector.
	sel := fn.Entry().Terminator()
	if sel.Op != ir.OpCondBr {
		t.Fatalf("entry terminator = %v, want condbr", sel.Op)
	}
	if _, isConst := sel.Args[0].(*ir.Const); isConst {
		t.Fatal("guard must be a runtime value")
	}
	fast, slow := sel.Succs[0], sel.Succs[1]
	if !strings.HasSuffix(slow.Name(), ".clone") {
		t.Errorf("false edge should take the scalar clone, got %s", slow.Name())
	}

	// Find the rejoin: the block the fast-path disable precedes flows
	// into it, and its phis see both regions.
	dis := findIntrinsics(fn, ir.IntrDisable)
	require.Len(t, dis, 1)
	end := dis[0].Block().Succs()[0]
	for _, phi := range end.Phis() {
		if len(phi.Incoming) < 2 {
			t.Fatalf("rejoin phi %s has %d incoming values, want 2", phi.Name(), len(phi.Incoming))
		}
	}

	// Both paths reach the rejoin.
	if !reaches(fast, end) || !reaches(slow, end) {
		t.Fatal("both fast and slow path must reach the rejoin")
	}
	// Enable and disable stay balanced on both paths.
	checkEnableDisableBalance(t, fn)
}

func TestNested2D(t *testing.T) {
	k, changed := runFixture(t, "nested2d", Config{})
	fn := k.Fn
	if !changed {
		t.Fatal("expected streams to be inferred")
	}

	// The 2-D read programs dimensions 1 and 2; the 1-D write programs
	// dimension 1 only.
	if got := countIntrinsics(fn, ir.IntrSetupBoundStride1D); got != 2 {
		t.Errorf("bound_stride_1d count = %d, want 2", got)
	}
	if got := countIntrinsics(fn, ir.IntrSetupBoundStride2D); got != 1 {
		t.Errorf("bound_stride_2d count = %d, want 1", got)
	}
	require.Len(t, findIntrinsics(fn, ir.IntrSetupReadImm), 1)
	wr := findIntrinsics(fn, ir.IntrSetupWriteImm)
	require.Len(t, wr, 1)
	if got := countIntrinsics(fn, ir.IntrPop); got != 1 {
		t.Errorf("pop count = %d, want 1", got)
	}
	if got := countIntrinsics(fn, ir.IntrPush); got != 1 {
		t.Errorf("push count = %d, want 1", got)
	}

	// Selection prefers the outer loop: a single setup block serves the
	// whole nest, and it is the outer preheader (reached straight from
	// the entry selector).
	blk := setupBlock(t, fn)
	if countIntrinsics(fn, ir.IntrSetupReadImm) != 1 || findIntrinsics(fn, ir.IntrSetupReadImm)[0].Block() != blk {
		t.Error("read setup must share the single setup block")
	}
	if wr[0].Block() != blk {
		t.Error("write setup must share the single setup block")
	}
	// The 1-D write sorts ahead of the 2-D read, so it takes mover 0.
	if got := constArg(t, wr[0], 0); got != 0 {
		t.Errorf("write stream data mover id = %d, want 0", got)
	}
	if got := constArg(t, findIntrinsics(fn, ir.IntrSetupReadImm)[0], 0); got != 1 {
		t.Errorf("read stream data mover id = %d, want 1", got)
	}

	// Two distinct streams stay within the engine budget.
	imms := countIntrinsics(fn, ir.IntrSetupReadImm) + countIntrinsics(fn, ir.IntrSetupWriteImm)
	if imms > NumStreams {
		t.Errorf("%d streams configured, budget is %d", imms, NumStreams)
	}
	checkEnableDisableBalance(t, fn)
}

func TestConflictNeedsIntersectGuard(t *testing.T) {
	k, changed := runFixture(t, "conflict", Config{})
	fn := k.Fn
	if !changed {
		t.Fatal("expected streams to be inferred")
	}
	// Source reads stream 0, destination writes stream 1; the guard
	// carries the one non-overlap disjunction.
	require.Len(t, findIntrinsics(fn, ir.IntrSetupReadImm), 1)
	require.Len(t, findIntrinsics(fn, ir.IntrSetupWriteImm), 1)
	if got := countOps(fn, ir.OpOr); got != 1 {
		t.Errorf("or count = %d, want exactly one non-overlap check", got)
	}
	checkEnableDisableBalance(t, fn)
}

func TestConflictFreeOnlyDeclines(t *testing.T) {
	_, changed := runFixture(t, "conflict", Config{ConflictFreeOnly: true})
	if changed {
		t.Fatal("conflicting accesses must be withheld under ssr-conflict-free-only")
	}
}

func TestBarrierPrecedesDisable(t *testing.T) {
	k, changed := runFixture(t, "conflict", Config{Barrier: true})
	fn := k.Fn
	if !changed {
		t.Fatal("expected streams to be inferred")
	}
	bars := findIntrinsics(fn, ir.IntrBarrier)
	require.Len(t, bars, 2)
	dis := findIntrinsics(fn, ir.IntrDisable)
	require.Len(t, dis, 1)
	blk := dis[0].Block()
	disAt := -1
	barAt := []int{}
	for idx, i := range blk.Instrs {
		if i.Op != ir.OpIntrinsic {
			continue
		}
		switch i.Intrinsic {
		case ir.IntrDisable:
			disAt = idx
		case ir.IntrBarrier:
			barAt = append(barAt, idx)
		}
	}
	require.Len(t, barAt, 2)
	for _, at := range barAt {
		if at > disAt {
			t.Fatal("barriers must precede the disable")
		}
	}
	// Each stream waits on its own data mover.
	ids := map[int64]bool{}
	for _, bar := range bars {
		ids[constArg(t, bar, 0)] = true
	}
	if !ids[0] || !ids[1] {
		t.Errorf("barrier data mover ids = %v, want 0 and 1", ids)
	}
}

func TestPoisonedDeclines(t *testing.T) {
	k, changed := runFixture(t, "poisoned", Config{})
	if changed {
		t.Fatal("a loop with existing stream activity must be skipped")
	}
	if k.Fn.HasAttr(FnAttrSSR) {
		t.Fatal("declined function must not be tagged")
	}
	// Nothing was added beyond the hand-written bracket.
	if got := countIntrinsics(k.Fn, ir.IntrEnable); got != 1 {
		t.Errorf("enable count = %d, want the original 1", got)
	}
	if got := countIntrinsics(k.Fn, ir.IntrSetupBoundStride1D); got != 0 {
		t.Errorf("unexpected stream setup emitted")
	}
}

func TestDim5StreamsAtInnerLevel(t *testing.T) {
	k, changed := runFixture(t, "dim5", Config{})
	fn := k.Fn
	if !changed {
		t.Fatal("the access is streamable below the 5-D root")
	}
	// The chosen level programs exactly dimensions 1..4.
	for d, id := range []ir.Intrinsic{
		ir.IntrSetupBoundStride1D,
		ir.IntrSetupBoundStride2D,
		ir.IntrSetupBoundStride3D,
		ir.IntrSetupBoundStride4D,
	} {
		if got := countIntrinsics(fn, id); got != 1 {
			t.Errorf("bound_stride_%dd count = %d, want 1", d+1, got)
		}
	}
	// The outermost preheader (the function entry region) holds no
	// setup: the 5-D shape was rejected there.
	blk := setupBlock(t, fn)
	if blk == fn.Entry() {
		t.Error("setup must not land in the outermost preheader")
	}
	checkEnableDisableBalance(t, fn)
}

func TestFloat32Declines(t *testing.T) {
	k, changed := runFixture(t, "float32", Config{})
	if changed {
		t.Fatal("32-bit floats are unsupported; no streams expected")
	}
	if countIntrinsics(k.Fn, ir.IntrPop) != 0 {
		t.Error("no pops expected")
	}
}

func TestIdempotence(t *testing.T) {
	k, changed := runFixture(t, "stream1d", Config{})
	require.True(t, changed)
	// A second run sees the SSR tag and leaves the function alone.
	blocks := len(k.Fn.Blocks)
	again, err := New(Config{InferSSR: true}).Run(k.Fn, k.Analysis)
	require.NoError(t, err)
	if again {
		t.Fatal("second run must be a no-op")
	}
	if len(k.Fn.Blocks) != blocks {
		t.Fatal("second run must not touch the CFG")
	}
}

func TestDisabledPassIsNoOp(t *testing.T) {
	fx, err := fixtures.Lookup("stream1d")
	require.NoError(t, err)
	k, err := fx.Build()
	require.NoError(t, err)
	changed, err := New(Config{}).Run(k.Fn, k.Analysis)
	require.NoError(t, err)
	if changed {
		t.Fatal("pass must be inert without infer-ssr")
	}
}

func TestNoInlineAttr(t *testing.T) {
	k, changed := runFixture(t, "stream1d", Config{NoInline: true})
	require.True(t, changed)
	if !k.Fn.HasAttr("noinline") {
		t.Fatal("noinline attribute expected")
	}
}

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

package affine

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/ajroetker/ssrgen/ssr/ir"
)

// Dim is one affine dimension of a table access: the contributing loop,
// the stride expression, and the repetition (bound) expression.
type Dim struct {
	Loop *ir.Loop
	Step Expr
	Rep  Expr
}

// TableAccess is a declared affine access. Dimensions are registered
// innermost first.
type TableAccess struct {
	sites     []*ir.Instr
	write     bool
	base      Expr
	dims      []Dim
	conflicts []Conflict
}

// Sites implements Access.
func (a *TableAccess) Sites() []*ir.Instr { return a.sites }

// IsWrite implements Access.
func (a *TableAccess) IsWrite() bool { return a.write }

// LoopToDimension implements Access: the 1-based index of l among the
// registered dimensions, 0 when l contributes none.
func (a *TableAccess) LoopToDimension(l *ir.Loop) int {
	for i, d := range a.dims {
		if d.Loop == l {
			return i + 1
		}
	}
	return 0
}

// BaseAddr implements Access.
func (a *TableAccess) BaseAddr(dim int) Expr { return a.base }

// Step implements Access.
func (a *TableAccess) Step(d int) Expr { return a.dims[d-1].Step }

// Rep implements Access.
func (a *TableAccess) Rep(d int) Expr { return a.dims[d-1].Rep }

// LoopAt implements Access.
func (a *TableAccess) LoopAt(d int) *ir.Loop { return a.dims[d-1].Loop }

// Conflicts implements Access.
func (a *TableAccess) Conflicts(l *ir.Loop) []Conflict { return a.conflicts }

func (a *TableAccess) hasConflicts() bool {
	for _, c := range a.conflicts {
		if c.Kind != NoConflict {
			return true
		}
	}
	return false
}

// AddDim registers the next outer dimension and returns the access for
// chaining.
func (a *TableAccess) AddDim(l *ir.Loop, step, rep Expr) *TableAccess {
	a.dims = append(a.dims, Dim{Loop: l, Step: step, Rep: rep})
	return a
}

// Table is a declared-fact implementation of Analysis. Fixtures and tests
// register each access with its sites, dimensions, and conflicts; the
// table answers the pass's queries and performs the preheader expansion.
type Table struct {
	li       *ir.LoopInfo
	accesses []*TableAccess
}

// NewTable returns an empty table over the given loop forest.
func NewTable(li *ir.LoopInfo) *Table {
	return &Table{li: li}
}

// NewAccess registers an access and returns it for AddDim chaining.
func (t *Table) NewAccess(write bool, base Expr, sites ...*ir.Instr) *TableAccess {
	a := &TableAccess{write: write, base: base, sites: sites}
	t.accesses = append(t.accesses, a)
	return a
}

// AddConflict declares a symmetric pairwise conflict.
func (t *Table) AddConflict(a, b *TableAccess, kind ConflictKind) {
	a.conflicts = append(a.conflicts, Conflict{Other: b, Kind: kind})
	b.conflicts = append(b.conflicts, Conflict{Other: a, Kind: kind})
}

// LoopInfo implements Analysis.
func (t *Table) LoopInfo() *ir.LoopInfo { return t.li }

// ExpandableAccesses implements Analysis.
func (t *Table) ExpandableAccesses(l *ir.Loop, conflictFreeOnly bool) []Access {
	var out []Access
	for _, a := range t.accesses {
		if a.LoopToDimension(l) == 0 {
			continue
		}
		if conflictFreeOnly && a.hasConflicts() {
			continue
		}
		out = append(out, a)
	}
	return out
}

// expandOne materializes one access's setup quantities and address range
// at the builder's insertion point.
func expandOne(b *ir.Builder, a Access, dim int) Expanded {
	e := Expanded{Access: a}
	e.Addr = a.BaseAddr(dim).Emit(b)
	var prefix ir.Value
	for d := 1; d <= dim; d++ {
		step := a.Step(d).Emit(b)
		rep := a.Rep(d).Emit(b)
		e.Steps = append(e.Steps, step)
		e.Reps = append(e.Reps, rep)
		rng := b.CreateMul(step, rep, fmt.Sprintf("range.%dd", d))
		if prefix == nil {
			prefix = rng
		} else {
			prefix = b.CreateAdd(prefix, rng, "range.sum")
		}
		if d < dim {
			e.PrefixSumRanges = append(e.PrefixSumRanges, prefix)
		}
	}
	e.LowerBound = e.Addr
	e.UpperBound = b.CreateAdd(e.Addr, prefix, "upper.bound")
	return e
}

// ExpandAllAt implements Analysis. See the interface for the contract.
func (t *Table) ExpandAllAt(accs []Access, l *ir.Loop, at *ir.Instr, withIntersect, withBound bool) ([]Expanded, ir.Value, error) {
	for _, a := range accs {
		for _, c := range a.Conflicts(l) {
			if c.Kind == BadConflict {
				return nil, nil, fmt.Errorf("affine: bad conflict in loop %s", l.Header.Name())
			}
		}
	}

	fn := at.Block().Func()
	b := ir.NewBuilder(fn)
	b.SetInsertPoint(at)

	var cond ir.Value = ir.ConstBool(true)
	and := func(x ir.Value) {
		if c, ok := cond.(*ir.Const); ok && c.IsTrue() {
			cond = x
			return
		}
		cond = b.CreateAnd(cond, x, "check")
	}

	exps := make([]Expanded, 0, len(accs))
	for _, a := range accs {
		dim := a.LoopToDimension(l)
		if dim == 0 {
			return nil, nil, fmt.Errorf("affine: access is not affine in loop %s", l.Header.Name())
		}
		exps = append(exps, expandOne(b, a, dim))
	}
	index := make(map[Access]*Expanded, len(exps))
	for i := range exps {
		index[exps[i].Access] = &exps[i]
	}
	klog.V(4).Infof("expanded %d accesses in preheader of loop %s", len(exps), l.Header.Name())

	if withBound {
		// One check per loop contributing a dimension: the repetition
		// count must be non-negative, i.e. the access runs at least once.
		seen := make(map[*ir.Loop]bool)
		for _, a := range accs {
			dim := a.LoopToDimension(l)
			for d := 1; d <= dim; d++ {
				cl := a.LoopAt(d)
				if seen[cl] {
					continue
				}
				seen[cl] = true
				rep := index[a].Reps[d-1]
				and(b.CreateICmpSLE(ir.ConstInt(ir.I32, 0), rep, "bound.check"))
			}
		}
	}

	if withIntersect {
		type pair struct{ a, b Access }
		done := make(map[pair]bool)
		extra := make(map[Access]*Expanded)
		for _, a := range accs {
			for _, c := range a.Conflicts(l) {
				if c.Kind != MustNotIntersect {
					continue
				}
				o := c.Other
				if done[pair{a, o}] || done[pair{o, a}] {
					continue
				}
				done[pair{a, o}] = true
				eo := index[o]
				if eo == nil {
					eo = extra[o]
				}
				if eo == nil {
					dimO := o.LoopToDimension(l)
					if dimO == 0 {
						return nil, nil, fmt.Errorf("affine: conflicting access is not affine in loop %s", l.Header.Name())
					}
					x := expandOne(b, o, dimO)
					extra[o] = &x
					eo = &x
				}
				ea := index[a]
				c1 := b.CreateICmpULT(ea.UpperBound, eo.LowerBound, "before.check")
				c2 := b.CreateICmpULT(eo.UpperBound, ea.LowerBound, "after.check")
				and(b.CreateOr(c1, c2, "no.intersect"))
			}
		}
	}

	return exps, cond, nil
}

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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sum(a, b int) int { return a + b }

func picked(t *testing.T, tree *conflictTree[string]) []string {
	t.Helper()
	got := tree.findBest(sum)
	sort.Strings(got)
	return got
}

func TestFindBestEmpty(t *testing.T) {
	tree := newConflictTree[string]()
	if got := tree.findBest(sum); got != nil {
		t.Fatalf("empty tree should select nothing, got %v", got)
	}
}

func TestFindBestSingle(t *testing.T) {
	tree := newConflictTree[string]()
	tree.insert("root", 0, "")
	if diff := cmp.Diff([]string{"root"}, picked(t, tree)); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestFindBestChildrenWin(t *testing.T) {
	tree := newConflictTree[string]()
	tree.insert("root", 5, "")
	tree.insert("a", 4, "root")
	tree.insert("b", 3, "root")
	if diff := cmp.Diff([]string{"a", "b"}, picked(t, tree)); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestFindBestParentWinsTie(t *testing.T) {
	tree := newConflictTree[string]()
	tree.insert("root", 7, "")
	tree.insert("a", 4, "root")
	tree.insert("b", 3, "root")
	// Children total exactly the parent's value: the parent is kept, so
	// one setup serves the whole nest.
	if diff := cmp.Diff([]string{"root"}, picked(t, tree)); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestFindBestMixedDepth(t *testing.T) {
	// root(1) -> a(10) -> {aa(6), ab(5)}; root -> b(2) -> ba(9)
	tree := newConflictTree[string]()
	tree.insert("root", 1, "")
	tree.insert("a", 10, "root")
	tree.insert("b", 2, "root")
	tree.insert("aa", 6, "a")
	tree.insert("ab", 5, "a")
	tree.insert("ba", 9, "b")
	// a's children beat a (11 > 10); ba beats b; their total beats root.
	if diff := cmp.Diff([]string{"aa", "ab", "ba"}, picked(t, tree)); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestFindBestDiscardsSubtreePicks(t *testing.T) {
	// Deep chain where a middle node beats everything below it, so picks
	// accumulated under it must be discarded.
	tree := newConflictTree[string]()
	tree.insert("root", 0, "")
	tree.insert("mid", 100, "root")
	tree.insert("leaf", 99, "mid")
	if diff := cmp.Diff([]string{"mid"}, picked(t, tree)); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestFindBestNoAncestorPairs(t *testing.T) {
	tree := newConflictTree[string]()
	parents := map[string]string{
		"root": "", "a": "root", "b": "root",
		"aa": "a", "ab": "a", "aaa": "aa", "ba": "b",
	}
	values := map[string]int{
		"root": 3, "a": 8, "b": 1, "aa": 5, "ab": 4, "aaa": 6, "ba": 2,
	}
	tree.insert("root", values["root"], "")
	for _, n := range []string{"a", "b", "aa", "ab", "ba", "aaa"} {
		tree.insert(n, values[n], parents[n])
	}
	got := tree.findBest(sum)

	ancestors := func(n string) map[string]bool {
		out := map[string]bool{}
		for p := parents[n]; p != ""; p = parents[p] {
			out[p] = true
		}
		return out
	}
	for _, x := range got {
		anc := ancestors(x)
		for _, y := range got {
			if x != y && anc[y] {
				t.Fatalf("selection contains ancestor pair %s/%s", y, x)
			}
		}
	}
}

func TestInsertTwicePanics(t *testing.T) {
	tree := newConflictTree[string]()
	tree.insert("root", 1, "")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double insertion")
		}
	}()
	tree.insert("root", 2, "")
}

func TestInsertOrphanPanics(t *testing.T) {
	tree := newConflictTree[string]()
	tree.insert("root", 1, "")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when the parent is missing")
		}
	}()
	tree.insert("child", 1, "ghost")
}

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

// Package fixtures builds example kernels in canonical loop form together
// with their declared affine-access facts. The test suite and the CLI
// share them: each fixture is a function the inference pass can be run
// on, with the loop forest and a Table standing in for the production
// affine-access analysis.
package fixtures

import (
	"github.com/pkg/errors"

	"github.com/ajroetker/ssrgen/ssr/affine"
	"github.com/ajroetker/ssrgen/ssr/ir"
)

// Kernel is one buildable fixture: a function plus its analysis facts.
type Kernel struct {
	// Fn is the function in canonical (preheader, single exit, LCSSA)
	// form.
	Fn *ir.Function

	// Analysis holds the declared affine accesses and the loop forest.
	Analysis *affine.Table
}

// Fixture is a named kernel builder.
type Fixture struct {
	// Name is the CLI-facing identifier.
	Name string

	// Description is a one-line summary.
	Description string

	// Build constructs a fresh kernel.
	Build func() (*Kernel, error)
}

// All returns the fixtures in a stable order.
func All() []Fixture {
	return []Fixture{
		{
			Name:        "stream1d",
			Description: "1-D read reduction over 100 elements at a static scratchpad address",
			Build:       buildStream1D,
		},
		{
			Name:        "unknown-base",
			Description: "1-D read reduction with a pointer-parameter base address",
			Build:       buildUnknownBase,
		},
		{
			Name:        "nested2d",
			Description: "2-D nested reads with a conflict-free 1-D write in the outer loop",
			Build:       buildNested2D,
		},
		{
			Name:        "conflict",
			Description: "1-D copy where source and destination must not overlap",
			Build:       buildConflict,
		},
		{
			Name:        "poisoned",
			Description: "loop that already enables a stream by hand",
			Build:       buildPoisoned,
		},
		{
			Name:        "dim5",
			Description: "5-deep nest whose access exceeds the hardware dimension limit at the root",
			Build:       buildDim5,
		},
		{
			Name:        "float32",
			Description: "loop over 32-bit floats, unsupported by the stream hardware",
			Build:       buildFloat32,
		},
	}
}

// Lookup returns the fixture with the given name.
func Lookup(name string) (Fixture, error) {
	for _, f := range All() {
		if f.Name == name {
			return f, nil
		}
	}
	return Fixture{}, errors.Errorf("unknown fixture %q", name)
}

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

import "github.com/spf13/pflag"

// Config carries the pass's tuning flags. The zero value disables
// inference entirely; the master switch must be set explicitly.
type Config struct {
	// InferSSR is the master enable for stream inference.
	InferSSR bool

	// NoIntersectCheck elides the runtime non-overlap checks between
	// candidate and conflicting accesses. Unsafe unless aliasing is
	// excluded by other means.
	NoIntersectCheck bool

	// NoTCDMCheck assumes all streamed data lives in the scratchpad and
	// elides the address-range membership checks.
	NoTCDMCheck bool

	// NoBoundCheck elides the checks that each inferred stream's access
	// executes at least once.
	NoBoundCheck bool

	// ConflictFreeOnly restricts candidates to accesses with no
	// conflicts at all.
	ConflictFreeOnly bool

	// Barrier inserts a spinning wait for each stream to drain before
	// the disable.
	Barrier bool

	// NoInline tags functions that received streams as non-inlinable.
	NoInline bool

	// Verbose writes information about inferred streams to stderr.
	Verbose bool
}

// AddFlags registers the pass flags on the given flag set.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.InferSSR, "infer-ssr", c.InferSSR,
		"Enable inference of SSR streams.")
	fs.BoolVar(&c.NoIntersectCheck, "ssr-no-intersect-check", c.NoIntersectCheck,
		"Do not generate intersection checks (unsafe). Use `restrict` instead if possible.")
	fs.BoolVar(&c.NoTCDMCheck, "ssr-no-tcdm-check", c.NoTCDMCheck,
		"Assume all data of inferred streams is inside TCDM.")
	fs.BoolVar(&c.NoBoundCheck, "ssr-no-bound-check", c.NoBoundCheck,
		"Do not generate checks that make sure the inferred stream's access is executed at least once.")
	fs.BoolVar(&c.ConflictFreeOnly, "ssr-conflict-free-only", c.ConflictFreeOnly,
		"Only infer streams if they have no conflicts with other memory accesses.")
	fs.BoolVar(&c.Barrier, "ssr-barrier", c.Barrier,
		"Insert a spinning loop that waits for the stream to be done before it is disabled.")
	fs.BoolVar(&c.NoInline, "ssr-no-inline", c.NoInline,
		"Prevent functions that contain SSR streams from being inlined.")
	fs.BoolVar(&c.Verbose, "ssr-verbose", c.Verbose,
		"Write information about inferred streams to stderr.")
}

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

package ir

import "fmt"

// Intrinsic identifies a hardware stream intrinsic. The names are the
// wire-level contract with the assembler and backend.
type Intrinsic int

const (
	// IntrinsicNone marks a non-intrinsic instruction.
	IntrinsicNone Intrinsic = iota

	// Per-dimension bound/stride configuration for one data mover.
	// Arguments: dmid, bound, stride.
	IntrSetupBoundStride1D
	IntrSetupBoundStride2D
	IntrSetupBoundStride3D
	IntrSetupBoundStride4D

	// IntrSetupRepetition sets how often each streamed element is
	// replayed. Arguments: dmid, repetitions.
	IntrSetupRepetition

	// IntrSetupReadImm and IntrSetupWriteImm configure the base address
	// and direction and start prefetching. Arguments: dmid, dim-1, addr.
	IntrSetupReadImm
	IntrSetupWriteImm

	// Register-operand and shorthand configuration forms. The inference
	// pass never emits these, but hand-written code may contain them and
	// the invalid-loop detector must recognize them as stream activity.
	IntrSetupRead
	IntrSetupWrite
	IntrSetup1DRead
	IntrSetup1DWrite

	// IntrPush feeds a value into a write stream. Arguments: dmid, value.
	IntrPush

	// IntrPop takes the next value from a read stream. Argument: dmid.
	// The only intrinsic with a (F64) result.
	IntrPop

	// IntrEnable and IntrDisable bracket the region in which streamed
	// register reads/writes are live. No arguments.
	IntrEnable
	IntrDisable

	// IntrBarrier spins until the given data mover has drained.
	// Argument: dmid.
	IntrBarrier
)

// intrinsicNames is the wire-name table.
var intrinsicNames = map[Intrinsic]string{
	IntrSetupBoundStride1D: "setup_bound_stride_1d",
	IntrSetupBoundStride2D: "setup_bound_stride_2d",
	IntrSetupBoundStride3D: "setup_bound_stride_3d",
	IntrSetupBoundStride4D: "setup_bound_stride_4d",
	IntrSetupRepetition:    "setup_repetition",
	IntrSetupReadImm:       "setup_read_imm",
	IntrSetupWriteImm:      "setup_write_imm",
	IntrSetupRead:          "setup_read",
	IntrSetupWrite:         "setup_write",
	IntrSetup1DRead:        "setup_1d_read",
	IntrSetup1DWrite:       "setup_1d_write",
	IntrPush:               "stream_push",
	IntrPop:                "stream_pop",
	IntrEnable:             "stream_enable",
	IntrDisable:            "stream_disable",
	IntrBarrier:            "stream_barrier",
}

// String returns the intrinsic's wire name.
func (i Intrinsic) String() string {
	if n, ok := intrinsicNames[i]; ok {
		return n
	}
	return fmt.Sprintf("Intrinsic(%d)", int(i))
}

// ResultType returns the type of the value the intrinsic produces.
func (i Intrinsic) ResultType() Type {
	if i == IntrPop {
		return F64
	}
	return Void
}

// IsStream reports whether the intrinsic touches stream hardware state.
// Any of these inside a loop marks the loop as off-limits for inference.
func (i Intrinsic) IsStream() bool {
	return i > IntrinsicNone && i <= IntrBarrier
}

// BoundStrideIntrinsic returns the bound/stride setup intrinsic for the
// given dimension (1-based). Dimensions above 4 do not exist in hardware.
func BoundStrideIntrinsic(dim int) Intrinsic {
	switch dim {
	case 1:
		return IntrSetupBoundStride1D
	case 2:
		return IntrSetupBoundStride2D
	case 3:
		return IntrSetupBoundStride3D
	case 4:
		return IntrSetupBoundStride4D
	default:
		panic(fmt.Sprintf("ir: no bound/stride intrinsic for dimension %d", dim))
	}
}

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

// Package ir provides the SSA intermediate representation the stream
// inference pass operates on: typed values, instructions, basic blocks,
// functions, hardware stream intrinsics, and the loop forest. The
// representation is deliberately small; it carries exactly what a loop
// transformation needs (phi nodes with explicit incoming blocks, block
// splitting, use replacement) and nothing more.
package ir

import "fmt"

// Type identifies the machine type of a value.
type Type int

const (
	// Void is the type of instructions that produce no value
	// (stores, branches, most intrinsic calls).
	Void Type = iota

	// I1 is the boolean type produced by comparisons and consumed by
	// conditional branches.
	I1

	// I32 is the 32-bit integer type used for induction variables,
	// strides, bounds, and data-mover ids.
	I32

	// I64 is the 64-bit integer type.
	I64

	// F32 is the 32-bit floating type. The stream hardware does not
	// support it; accesses of this type are filtered out.
	F32

	// F64 is the 64-bit floating type, the single element type the
	// stream hardware supports.
	F64

	// Ptr is the opaque pointer type.
	Ptr
)

// String returns the textual name of the type as used by the printer.
func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case I1:
		return "i1"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Ptr:
		return "ptr"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Op identifies an instruction opcode.
type Op int

const (
	// OpPhi merges values from predecessor blocks. Incoming blocks are
	// not ordinary operands; they live in Instr.Incoming.
	OpPhi Op = iota

	// OpBr is an unconditional branch to Succs[0].
	OpBr

	// OpCondBr branches on Args[0]: true to Succs[0], false to Succs[1].
	OpCondBr

	// OpRet returns from the function, with Args[0] as the result when
	// present.
	OpRet

	// OpLoad reads memory at Args[0].
	OpLoad

	// OpStore writes Args[0] to memory at Args[1].
	OpStore

	// OpAdd, OpSub, OpMul are integer/pointer arithmetic on Args[0], Args[1].
	OpAdd
	OpSub
	OpMul

	// OpFAdd, OpFMul are floating arithmetic.
	OpFAdd
	OpFMul

	// OpICmpULE, OpICmpULT are unsigned comparisons producing I1.
	OpICmpULE
	OpICmpULT

	// OpICmpSLE, OpICmpSLT are signed comparisons producing I1.
	OpICmpSLE
	OpICmpSLT

	// OpAnd, OpOr are bitwise logic, used on I1 guard values.
	OpAnd
	OpOr

	// OpCall calls the function described by Instr.Callee.
	OpCall

	// OpIntrinsic calls the hardware intrinsic Instr.Intrinsic.
	OpIntrinsic

	// OpInlineAsm is an opaque inline-assembly blob. It may hide raw
	// stream instructions and is treated conservatively.
	OpInlineAsm
)

// String returns the opcode mnemonic.
func (o Op) String() string {
	switch o {
	case OpPhi:
		return "phi"
	case OpBr:
		return "br"
	case OpCondBr:
		return "condbr"
	case OpRet:
		return "ret"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpFAdd:
		return "fadd"
	case OpFMul:
		return "fmul"
	case OpICmpULE:
		return "icmp.ule"
	case OpICmpULT:
		return "icmp.ult"
	case OpICmpSLE:
		return "icmp.sle"
	case OpICmpSLT:
		return "icmp.slt"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpCall:
		return "call"
	case OpIntrinsic:
		return "intrinsic"
	case OpInlineAsm:
		return "asm"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// IsTerminator reports whether the opcode ends a basic block.
func (o Op) IsTerminator() bool {
	return o == OpBr || o == OpCondBr || o == OpRet
}

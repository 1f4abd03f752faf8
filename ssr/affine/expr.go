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

	"github.com/ajroetker/ssrgen/ssr/ir"
)

// Expr is a symbolic expression over loop-invariant quantities: the form
// in which the analysis reports bounds, strides, and base addresses before
// they are materialized as IR in a preheader. Size feeds the gain
// estimator's expression-size cost; Emit materializes the expression at
// the builder's insertion point.
type Expr interface {
	// Size is the number of nodes in the expression tree.
	Size() int

	// Emit materializes the expression as an IR value.
	Emit(b *ir.Builder) ir.Value

	// String renders the expression for diagnostics.
	String() string
}

type constExpr struct {
	v int64
}

// Const returns a constant expression.
func Const(v int64) Expr { return constExpr{v: v} }

func (e constExpr) Size() int { return 1 }

func (e constExpr) Emit(b *ir.Builder) ir.Value { return ir.ConstInt(ir.I32, e.v) }

func (e constExpr) String() string { return fmt.Sprintf("%d", e.v) }

type valueExpr struct {
	v ir.Value
}

// ValueOf returns an expression referencing an existing IR value, which
// must be invariant at the expansion point.
func ValueOf(v ir.Value) Expr { return valueExpr{v: v} }

func (e valueExpr) Size() int { return 1 }

func (e valueExpr) Emit(b *ir.Builder) ir.Value { return e.v }

func (e valueExpr) String() string { return "%" + e.v.Name() }

type addExpr struct {
	x, y Expr
}

// Add returns the sum expression x + y.
func Add(x, y Expr) Expr { return addExpr{x: x, y: y} }

func (e addExpr) Size() int { return 1 + e.x.Size() + e.y.Size() }

func (e addExpr) Emit(b *ir.Builder) ir.Value {
	return b.CreateAdd(e.x.Emit(b), e.y.Emit(b), "expr.add")
}

func (e addExpr) String() string { return fmt.Sprintf("(%s + %s)", e.x, e.y) }

type mulExpr struct {
	x, y Expr
}

// Mul returns the product expression x * y.
func Mul(x, y Expr) Expr { return mulExpr{x: x, y: y} }

func (e mulExpr) Size() int { return 1 + e.x.Size() + e.y.Size() }

func (e mulExpr) Emit(b *ir.Builder) ir.Value {
	return b.CreateMul(e.x.Emit(b), e.y.Emit(b), "expr.mul")
}

func (e mulExpr) String() string { return fmt.Sprintf("(%s * %s)", e.x, e.y) }

// ConstValue reports the value of a constant expression. The gain
// estimator uses it to replace the default trip-count guess with a known
// repetition count.
func ConstValue(e Expr) (int64, bool) {
	c, ok := e.(constExpr)
	return c.v, ok
}

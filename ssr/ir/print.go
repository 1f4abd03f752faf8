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

import (
	"fmt"
	"strings"
)

// ref renders a value operand: literals for constants, %name otherwise.
func ref(v Value) string {
	if v == nil {
		return "<nil>"
	}
	if c, ok := v.(*Const); ok {
		return c.Name()
	}
	return "%" + v.Name()
}

func refs(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = ref(v)
	}
	return strings.Join(parts, ", ")
}

// Format renders one instruction in the textual IR syntax.
func (i *Instr) Format() string {
	switch i.Op {
	case OpPhi:
		var edges []string
		for _, e := range i.Incoming {
			edges = append(edges, fmt.Sprintf("[ %s, %s ]", ref(e.Value), e.Block.Name()))
		}
		return fmt.Sprintf("%%%s = phi %s %s", i.name, i.ty, strings.Join(edges, " "))
	case OpBr:
		return fmt.Sprintf("br %s", i.Succs[0].Name())
	case OpCondBr:
		return fmt.Sprintf("condbr %s, %s, %s", ref(i.Args[0]), i.Succs[0].Name(), i.Succs[1].Name())
	case OpRet:
		if len(i.Args) == 0 {
			return "ret"
		}
		return fmt.Sprintf("ret %s", ref(i.Args[0]))
	case OpLoad:
		return fmt.Sprintf("%%%s = load %s %s", i.name, i.ty, ref(i.Args[0]))
	case OpStore:
		return fmt.Sprintf("store %s, %s", ref(i.Args[0]), ref(i.Args[1]))
	case OpCall:
		callee := "<nil>"
		if i.Callee != nil {
			callee = i.Callee.Name
		}
		if i.ty == Void {
			return fmt.Sprintf("call @%s(%s)", callee, refs(i.Args))
		}
		return fmt.Sprintf("%%%s = call %s @%s(%s)", i.name, i.ty, callee, refs(i.Args))
	case OpIntrinsic:
		if i.ty == Void {
			return fmt.Sprintf("call @%s(%s)", i.Intrinsic, refs(i.Args))
		}
		return fmt.Sprintf("%%%s = call %s @%s(%s)", i.name, i.ty, i.Intrinsic, refs(i.Args))
	case OpInlineAsm:
		return fmt.Sprintf("asm %q", i.Asm)
	default:
		return fmt.Sprintf("%%%s = %s %s %s", i.name, i.Op, i.ty, refs(i.Args))
	}
}

// String renders the whole function.
func (f *Function) String() string {
	var sb strings.Builder
	sb.WriteString("func @")
	sb.WriteString(f.Name)
	sb.WriteString("(")
	for k, p := range f.Params {
		if k > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%%%s %s", p.Name(), p.Type())
	}
	sb.WriteString(")")
	if as := f.Attrs(); len(as) > 0 {
		fmt.Fprintf(&sb, " attrs{%s}", strings.Join(as, ","))
	}
	sb.WriteString(" {\n")
	for _, b := range f.Blocks {
		fmt.Fprintf(&sb, "%s:\n", b.Name())
		for _, i := range b.Instrs {
			fmt.Fprintf(&sb, "  %s\n", i.Format())
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

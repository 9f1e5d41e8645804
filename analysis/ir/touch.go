// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

// Touch is a (base, field) pair a statement reads or writes. Field is BaseField when the base is touched as a whole.
type Touch struct {
	Base  *Local
	Field *Field
}

// BaseAndField decomposes a value into the touches it denotes. Binary and unary expressions and phis yield their
// operands; constants and allocations yield nothing. The index of an array reference is a touch only if
// implicitFlows is set.
func BaseAndField(v Value, implicitFlows bool) []Touch {
	var res []Touch
	collectTouches(v, implicitFlows, &res)
	return res
}

func collectTouches(v Value, implicitFlows bool, res *[]Touch) {
	switch x := v.(type) {
	case *Local:
		*res = append(*res, Touch{Base: x, Field: BaseField})
	case *InstanceFieldRef:
		*res = append(*res, Touch{Base: x.Base, Field: x.Field})
	case *StaticFieldRef:
		*res = append(*res, Touch{Base: StaticsBase, Field: x.Field})
	case *ArrayRef:
		*res = append(*res, Touch{Base: x.Base, Field: BaseField})
		if implicitFlows {
			collectTouches(x.Index, implicitFlows, res)
		}
	case *LengthExpr:
		collectTouches(x.X, implicitFlows, res)
	case *NewArrayExpr:
		collectTouches(x.Size, implicitFlows, res)
	case *CastExpr:
		collectTouches(x.X, implicitFlows, res)
	case *UnopExpr:
		collectTouches(x.X, implicitFlows, res)
	case *BinopExpr:
		collectTouches(x.X, implicitFlows, res)
		collectTouches(x.Y, implicitFlows, res)
	case *PhiExpr:
		for _, e := range x.Edges {
			collectTouches(e, implicitFlows, res)
		}
	case *InvokeExpr:
		if x.Base != nil {
			*res = append(*res, Touch{Base: x.Base, Field: BaseField})
		}
		for _, a := range x.Args {
			collectTouches(a, implicitFlows, res)
		}
	}
}

// LeftTouch returns the touch written by a statement, if any. A whole-local write has field BaseField; a store to
// an array element is a write of the array base's BaseField that does not overwrite the array.
func LeftTouch(s Stmt) (Touch, bool) {
	switch x := s.(type) {
	case *AssignStmt:
		switch l := x.Left.(type) {
		case *Local:
			return Touch{Base: l, Field: BaseField}, true
		case *InstanceFieldRef:
			return Touch{Base: l.Base, Field: l.Field}, true
		case *StaticFieldRef:
			return Touch{Base: StaticsBase, Field: l.Field}, true
		case *ArrayRef:
			return Touch{Base: l.Base, Field: BaseField}, true
		}
	case *IdentityStmt:
		return Touch{Base: x.Left, Field: BaseField}, true
	}
	return Touch{}, false
}

// RightValues returns the values a statement reads, excluding call arguments and receivers
func RightValues(s Stmt) []Value {
	switch x := s.(type) {
	case *AssignStmt:
		if _, isInvoke := x.Right.(*InvokeExpr); !isInvoke {
			return []Value{x.Right}
		}
	case *ReturnStmt:
		if x.Value != nil {
			return []Value{x.Value}
		}
	case *BranchStmt:
		if x.Cond != nil {
			return []Value{x.Cond}
		}
	case *ThrowStmt:
		return []Value{x.Value}
	}
	return nil
}

// CallValues returns the receiver and arguments of the call in s, receiver first
func CallValues(s Stmt) []Value {
	inv := InvokeOf(s)
	if inv == nil {
		return nil
	}
	var res []Value
	if inv.Base != nil {
		res = append(res, inv.Base)
	}
	return append(res, inv.Args...)
}

// IsArrayStore returns true if s writes an element of an array
func IsArrayStore(s Stmt) bool {
	if a, ok := s.(*AssignStmt); ok {
		_, isArray := a.Left.(*ArrayRef)
		return isArray
	}
	return false
}

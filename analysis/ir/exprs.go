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

// Const returns a constant value
func Const(v string) *Constant {
	return &Constant{Value: v}
}

// Binop returns x op y
func Binop(op string, x, y Value) *BinopExpr {
	return &BinopExpr{Op: op, X: x, Y: y}
}

// Unop returns op x
func Unop(op string, x Value) *UnopExpr {
	return &UnopExpr{Op: op, X: x}
}

// Len returns len(x)
func Len(x Value) *LengthExpr {
	return &LengthExpr{X: x}
}

// Cast returns x converted to t
func Cast(x Value, t *Type) *CastExpr {
	return &CastExpr{X: x, Type: t}
}

// Phi returns the merge of the values
func Phi(vs ...Value) *PhiExpr {
	return &PhiExpr{Edges: vs}
}

// New returns an allocation of t
func New(t *Type) *NewExpr {
	return &NewExpr{Type: t}
}

// NewArray returns an allocation of an array of t of the given size
func NewArray(t *Type, size Value) *NewArrayExpr {
	return &NewArrayExpr{Type: t, Size: size}
}

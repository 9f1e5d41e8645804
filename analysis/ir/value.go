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

import (
	"fmt"
	"strings"
)

// Type is the minimal type information the analysis needs
type Type struct {
	Name string
	// Array is true for array-like types (arrays, slices, maps)
	Array bool
	// Primitive is true for types whose values cannot carry fields
	Primitive bool
}

func (t *Type) String() string {
	if t == nil {
		return "?"
	}
	return t.Name
}

// A Value is an operand or expression appearing in a statement
type Value interface {
	fmt.Stringer
	isValue()
}

// Local is a local variable of a method. Locals are compared by pointer.
type Local struct {
	Name string
	Type *Type
}

// Constant is a literal; it never carries taint
type Constant struct {
	Value string
	Type  *Type
}

// Field is a field name. Fields are interned per program and compared by pointer.
type Field struct {
	Name string
}

// InstanceFieldRef is base.field
type InstanceFieldRef struct {
	Base  *Local
	Field *Field
}

// StaticFieldRef is a global or static field
type StaticFieldRef struct {
	Field *Field
}

// ArrayRef is base[index]
type ArrayRef struct {
	Base  *Local
	Index Value
}

// LengthExpr is the length of an array value
type LengthExpr struct {
	X Value
}

// NewExpr allocates an object
type NewExpr struct {
	Type *Type
}

// NewArrayExpr allocates an array of some size
type NewArrayExpr struct {
	Type *Type
	Size Value
}

// BinopExpr is x op y
type BinopExpr struct {
	Op   string
	X, Y Value
}

// UnopExpr is op x
type UnopExpr struct {
	Op string
	X  Value
}

// CastExpr converts X to Type; fields are preserved through casts
type CastExpr struct {
	X    Value
	Type *Type
}

// PhiExpr merges values from different predecessors
type PhiExpr struct {
	Edges []Value
}

// MethodRef names the target of a call
type MethodRef struct {
	Name string
}

// InvokeExpr is a call. Base is the receiver, nil for static calls.
type InvokeExpr struct {
	Callee MethodRef
	Base   *Local
	Args   []Value
}

// ParameterRef is the right-hand side of the identity statement binding a parameter
type ParameterRef struct {
	Index int
	Type  *Type
}

// ThisRef is the right-hand side of the identity statement binding the receiver
type ThisRef struct {
	Type *Type
}

// CaughtRef is the right-hand side of the identity statement binding a caught exception in a handler
type CaughtRef struct{}

func (*Local) isValue()            {}
func (*Constant) isValue()         {}
func (*InstanceFieldRef) isValue() {}
func (*StaticFieldRef) isValue()   {}
func (*ArrayRef) isValue()         {}
func (*LengthExpr) isValue()       {}
func (*NewExpr) isValue()          {}
func (*NewArrayExpr) isValue()     {}
func (*BinopExpr) isValue()        {}
func (*UnopExpr) isValue()         {}
func (*CastExpr) isValue()         {}
func (*PhiExpr) isValue()          {}
func (*InvokeExpr) isValue()       {}
func (*ParameterRef) isValue()     {}
func (*ThisRef) isValue()          {}
func (*CaughtRef) isValue()        {}

var (
	// BaseField is the field key of a value itself, as opposed to one of its fields
	BaseField = &Field{Name: "<base>"}

	// StaticsBase is the pseudo-local all static field references are based on
	StaticsBase = &Local{Name: "<statics>"}
)

// IsArray returns true if the local has an array-like type
func (l *Local) IsArray() bool {
	return l != nil && l.Type != nil && l.Type.Array
}

func (l *Local) String() string {
	if l == nil {
		return "<nil>"
	}
	return l.Name
}

func (c *Constant) String() string { return c.Value }

func (f *Field) String() string {
	if f == nil {
		return "<nil>"
	}
	return f.Name
}

func (r *InstanceFieldRef) String() string { return r.Base.String() + "." + r.Field.Name }

func (r *StaticFieldRef) String() string { return "<static>." + r.Field.Name }

func (r *ArrayRef) String() string { return fmt.Sprintf("%s[%s]", r.Base, r.Index) }

func (e *LengthExpr) String() string { return fmt.Sprintf("len(%s)", e.X) }

func (e *NewExpr) String() string { return "new " + e.Type.String() }

func (e *NewArrayExpr) String() string { return fmt.Sprintf("new %s[%s]", e.Type, e.Size) }

func (e *BinopExpr) String() string { return fmt.Sprintf("%s %s %s", e.X, e.Op, e.Y) }

func (e *UnopExpr) String() string { return e.Op + e.X.String() }

func (e *CastExpr) String() string { return fmt.Sprintf("(%s) %s", e.Type, e.X) }

func (e *PhiExpr) String() string {
	parts := make([]string, len(e.Edges))
	for i, v := range e.Edges {
		parts[i] = v.String()
	}
	return "phi(" + strings.Join(parts, ", ") + ")"
}

func (e *InvokeExpr) String() string {
	parts := make([]string, len(e.Args))
	for i, v := range e.Args {
		parts[i] = v.String()
	}
	recv := ""
	if e.Base != nil {
		recv = e.Base.Name + "."
	}
	return fmt.Sprintf("%s%s(%s)", recv, e.Callee.Name, strings.Join(parts, ", "))
}

func (r *ParameterRef) String() string { return fmt.Sprintf("@parameter%d", r.Index) }

func (*ThisRef) String() string { return "@this" }

func (*CaughtRef) String() string { return "@caughtexception" }

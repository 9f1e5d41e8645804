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
	"go/token"
)

// A Stmt is a statement of a method body. Statements are compared by pointer.
type Stmt interface {
	fmt.Stringer
	// Method returns the method containing the statement
	Method() *Method
	// Index returns the position of the statement in its method's body
	Index() int
	// Pos returns the source position of the statement, if known
	Pos() token.Position
	base() *stmtBase
}

type stmtBase struct {
	method *Method
	index  int
	pos    token.Position
}

func (s *stmtBase) Method() *Method     { return s.method }
func (s *stmtBase) Index() int          { return s.index }
func (s *stmtBase) Pos() token.Position { return s.pos }
func (s *stmtBase) base() *stmtBase     { return s }
func (s *stmtBase) qualifier() string   { return fmt.Sprintf("%s#%d", s.method.Name, s.index) }

// AssignStmt is Left = Right. Left is a Local, InstanceFieldRef, StaticFieldRef or ArrayRef.
type AssignStmt struct {
	stmtBase
	Left  Value
	Right Value
}

// IdentityStmt binds a parameter, the receiver or a caught exception to a local
type IdentityStmt struct {
	stmtBase
	Left  *Local
	Right Value
}

// InvokeStmt is a call whose result is discarded
type InvokeStmt struct {
	stmtBase
	Invoke *InvokeExpr
}

// ReturnStmt returns from the method. Value is nil for a void return.
type ReturnStmt struct {
	stmtBase
	Value Value
}

// BranchStmt is a conditional branch when Cond is non-nil, and a goto otherwise
type BranchStmt struct {
	stmtBase
	Cond   Value
	Target string
}

// ThrowStmt raises an exception
type ThrowStmt struct {
	stmtBase
	Value Value
}

// NopStmt does nothing
type NopStmt struct {
	stmtBase
}

func (s *AssignStmt) String() string   { return fmt.Sprintf("%s = %s", s.Left, s.Right) }
func (s *IdentityStmt) String() string { return fmt.Sprintf("%s := %s", s.Left, s.Right) }
func (s *InvokeStmt) String() string   { return s.Invoke.String() }

func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

func (s *BranchStmt) String() string {
	if s.Cond == nil {
		return "goto " + s.Target
	}
	return fmt.Sprintf("if %s goto %s", s.Cond, s.Target)
}

func (s *ThrowStmt) String() string { return "throw " + s.Value.String() }
func (s *NopStmt) String() string   { return "nop" }

// InvokeOf returns the call expression of a statement, or nil if the statement does not call
func InvokeOf(s Stmt) *InvokeExpr {
	switch x := s.(type) {
	case *InvokeStmt:
		return x.Invoke
	case *AssignStmt:
		if inv, ok := x.Right.(*InvokeExpr); ok {
			return inv
		}
	}
	return nil
}

// DefinedLocal returns the local written by the statement as a whole, if any. Field and array stores do not
// define a local.
func DefinedLocal(s Stmt) *Local {
	switch x := s.(type) {
	case *AssignStmt:
		if l, ok := x.Left.(*Local); ok {
			return l
		}
	case *IdentityStmt:
		return x.Left
	}
	return nil
}

// StmtString returns a string identifying the statement within the program
func StmtString(s Stmt) string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", s.base().qualifier(), s)
}

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

package sparse

import (
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/internal/funcutil"
)

// BaseInfoStmt records how one statement touches one base local
type BaseInfoStmt struct {
	Stmt ir.Stmt
	Base *ir.Local
	// LeftField is the field written; nil when the statement does not write the base and ir.BaseField when it
	// writes the base as a whole
	LeftField *ir.Field
	// RightFields are the fields read
	RightFields []*ir.Field
	// ArgsFields are the fields passed as call arguments or receiver
	ArgsFields []*ir.Field
	// IsIdentity marks the statements binding parameters and the receiver
	IsIdentity bool
	// IsOriginal is false when every touch is implicit: params, receiver and statics at method boundaries, and
	// statics at calls
	IsOriginal bool
	// Implicit is true when the statement has an implicit touch of the whole base
	Implicit bool

	// position in the base's chain for the statement's block
	pos int
}

// Touches returns true if a fact on the base keyed by field must visit this statement: the base is touched as a
// whole, or the field itself is touched.
func (b *BaseInfoStmt) Touches(field *ir.Field) bool {
	if field == ir.BaseField || b.Implicit || b.LeftField == ir.BaseField {
		return true
	}
	if b.LeftField == field {
		return true
	}
	for _, fs := range [][]*ir.Field{b.RightFields, b.ArgsFields} {
		for _, f := range fs {
			if f == ir.BaseField || f == field {
				return true
			}
		}
	}
	return false
}

// fields returns the distinct fields touched, other than ir.BaseField
func (b *BaseInfoStmt) fields() []*ir.Field {
	var res []*ir.Field
	for _, f := range append(append([]*ir.Field{b.LeftField}, b.RightFields...), b.ArgsFields...) {
		if f != nil && f != ir.BaseField {
			res = funcutil.AppendUnique(res, f)
		}
	}
	return res
}

// BaseInfoStmtSet holds the statements touching one base in one method, chained per basic block in statement
// order
type BaseInfoStmtSet struct {
	Base    *ir.Local
	byStmt  map[ir.Stmt]*BaseInfoStmt
	byBlock map[int][]*BaseInfoStmt
	fields  []*ir.Field
}

func newBaseInfoStmtSet(base *ir.Local) *BaseInfoStmtSet {
	return &BaseInfoStmtSet{
		Base:    base,
		byStmt:  map[ir.Stmt]*BaseInfoStmt{},
		byBlock: map[int][]*BaseInfoStmt{},
	}
}

// Get returns the record of s, if s touches the base
func (set *BaseInfoStmtSet) Get(s ir.Stmt) *BaseInfoStmt {
	return set.byStmt[s]
}

func (set *BaseInfoStmtSet) entry(s ir.Stmt) *BaseInfoStmt {
	if bi, ok := set.byStmt[s]; ok {
		return bi
	}
	bi := &BaseInfoStmt{Stmt: s, Base: set.Base}
	set.byStmt[s] = bi
	return bi
}

// classify scans a method's statements and groups their touches by base
func classify(m *ir.Method, blocks *methodBlocks, implicitFlows bool) map[*ir.Local]*BaseInfoStmtSet {
	sets := map[*ir.Local]*BaseInfoStmtSet{}
	get := func(base *ir.Local) *BaseInfoStmtSet {
		if set, ok := sets[base]; ok {
			return set
		}
		set := newBaseInfoStmtSet(base)
		sets[base] = set
		return set
	}
	boundary := []*ir.Local{ir.StaticsBase}
	if m.This != nil {
		boundary = append(boundary, m.This)
	}
	for _, p := range m.Params {
		if p != nil {
			boundary = append(boundary, p)
		}
	}
	prog := m.Program()

	for _, s := range m.Body {
		if left, ok := ir.LeftTouch(s); ok {
			bi := get(left.Base).entry(s)
			bi.LeftField = left.Field
			bi.IsOriginal = true
			_, bi.IsIdentity = s.(*ir.IdentityStmt)
			if ar, isArray := leftArray(s); isArray && implicitFlows {
				for _, t := range ir.BaseAndField(ar.Index, implicitFlows) {
					addRight(get(t.Base).entry(s), t.Field)
				}
			}
		}
		for _, v := range ir.RightValues(s) {
			for _, t := range ir.BaseAndField(v, implicitFlows) {
				addRight(get(t.Base).entry(s), t.Field)
			}
		}
		for _, v := range ir.CallValues(s) {
			for _, t := range ir.BaseAndField(v, implicitFlows) {
				bi := get(t.Base).entry(s)
				bi.ArgsFields = funcutil.AppendUnique(bi.ArgsFields, t.Field)
				bi.IsOriginal = true
			}
		}
		var implicit []*ir.Local
		if prog.IsStartPoint(s) || prog.IsExitStmt(s) {
			implicit = boundary
		} else if prog.IsCallStmt(s) {
			implicit = []*ir.Local{ir.StaticsBase}
		}
		for _, base := range implicit {
			get(base).entry(s).Implicit = true
		}
	}

	for _, set := range sets {
		for _, s := range m.Body {
			bi, ok := set.byStmt[s]
			if !ok {
				continue
			}
			b := blocks.blockOf[s.Index()]
			bi.pos = len(set.byBlock[b])
			set.byBlock[b] = append(set.byBlock[b], bi)
			for _, f := range bi.fields() {
				set.fields = funcutil.AppendUnique(set.fields, f)
			}
		}
	}
	return sets
}

func addRight(bi *BaseInfoStmt, f *ir.Field) {
	bi.RightFields = funcutil.AppendUnique(bi.RightFields, f)
	bi.IsOriginal = true
}

func leftArray(s ir.Stmt) (*ir.ArrayRef, bool) {
	if a, ok := s.(*ir.AssignStmt); ok {
		ar, isArray := a.Left.(*ir.ArrayRef)
		return ar, isArray
	}
	return nil, false
}

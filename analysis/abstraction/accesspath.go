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

package abstraction

import (
	"strings"
	"sync"

	"github.com/awslabs/sparseflow/analysis/ir"
)

// ArrayTaint is the part of an array value that is tainted
type ArrayTaint uint8

const (
	// NoArray is the array taint of paths whose base is not an array
	NoArray ArrayTaint = iota
	// ArrayContents means the elements are tainted
	ArrayContents
	// ArrayLength means only the length is tainted
	ArrayLength
	// ArrayContentsAndLength means both are tainted
	ArrayContentsAndLength
)

func (a ArrayTaint) covers(b ArrayTaint) bool {
	return a == b || a == ArrayContentsAndLength || b == NoArray
}

// AccessPath is a base local with a bounded chain of fields. Access paths are interned by a Factory: two paths
// from the same factory are structurally equal if and only if they are the same pointer.
type AccessPath struct {
	base           *ir.Local
	fields         []*ir.Field
	taintSubFields bool
	arrayTaint     ArrayTaint
}

// Base returns the base local; ir.StaticsBase for static paths, nil for the zero path
func (ap *AccessPath) Base() *ir.Local { return ap.base }

// Fields returns the field chain. The returned slice must not be modified.
func (ap *AccessPath) Fields() []*ir.Field { return ap.fields }

// FieldCount returns the length of the field chain
func (ap *AccessPath) FieldCount() int { return len(ap.fields) }

// FirstField returns the first field, or nil
func (ap *AccessPath) FirstField() *ir.Field {
	if len(ap.fields) == 0 {
		return nil
	}
	return ap.fields[0]
}

// TaintSubFields returns true if everything reachable from the path is tainted
func (ap *AccessPath) TaintSubFields() bool { return ap.taintSubFields }

// ArrayTaint returns the array taint kind
func (ap *AccessPath) ArrayTaint() ArrayTaint { return ap.arrayTaint }

// IsStatic returns true for paths based on a static field
func (ap *AccessPath) IsStatic() bool { return ap.base == ir.StaticsBase }

// IsLocal returns true for paths that denote a plain local
func (ap *AccessPath) IsLocal() bool {
	return ap.base != nil && !ap.IsStatic() && len(ap.fields) == 0
}

// IsHeap returns true if the path denotes a heap location: a field, an array element or a static
func (ap *AccessPath) IsHeap() bool {
	if ap.base == nil {
		return false
	}
	return len(ap.fields) > 0 || ap.IsStatic() || ap.base.IsArray() || ap.arrayTaint != NoArray
}

// StartsWith returns true if the path's fields start with the given fields, on the same base
func (ap *AccessPath) StartsWith(base *ir.Local, fields ...*ir.Field) bool {
	if ap.base != base || len(fields) > len(ap.fields) {
		return false
	}
	for i, f := range fields {
		if ap.fields[i] != f {
			return false
		}
	}
	return true
}

// Entails returns true if ap is a non-strict prefix of other with compatible flags: everything other denotes as
// tainted is also denoted by ap.
func (ap *AccessPath) Entails(other *AccessPath) bool {
	if ap == other {
		return true
	}
	if ap == nil || other == nil || ap.base != other.base {
		return false
	}
	if !other.StartsWith(ap.base, ap.fields...) {
		return false
	}
	if len(ap.fields) < len(other.fields) {
		// taint on the elements or the length of ap says nothing about its fields
		return ap.taintSubFields && (ap.arrayTaint == NoArray || ap.arrayTaint == ArrayContentsAndLength ||
			ap.arrayTaint == other.arrayTaint)
	}
	return (ap.taintSubFields || !other.taintSubFields) && ap.arrayTaint.covers(other.arrayTaint)
}

func (ap *AccessPath) String() string {
	if ap == nil || ap.base == nil {
		return "<zero>"
	}
	var b strings.Builder
	if ap.IsStatic() {
		b.WriteString("<static>")
	} else {
		b.WriteString(ap.base.Name)
	}
	for _, f := range ap.fields {
		b.WriteByte('.')
		b.WriteString(f.Name)
	}
	if ap.taintSubFields {
		b.WriteString(".*")
	}
	switch ap.arrayTaint {
	case ArrayLength:
		b.WriteString("[len]")
	case ArrayContentsAndLength:
		b.WriteString("[*,len]")
	}
	return b.String()
}

type pathKey struct {
	base   *ir.Local
	fields string
	sub    bool
	array  ArrayTaint
}

// Factory creates and interns access paths, truncating them to a maximum length
type Factory struct {
	maxLength int
	mu        sync.Mutex
	paths     map[pathKey]*AccessPath
	zero      *AccessPath
}

// NewFactory returns a factory producing paths of at most maxLength fields
func NewFactory(maxLength int) *Factory {
	return &Factory{
		maxLength: maxLength,
		paths:     map[pathKey]*AccessPath{},
		zero:      &AccessPath{},
	}
}

// MaxLength returns the maximum number of fields of the factory's paths
func (f *Factory) MaxLength() int { return f.maxLength }

// Zero returns the access path of the zero fact
func (f *Factory) Zero() *AccessPath { return f.zero }

// Create returns the interned path base.fields. Paths longer than the maximum are truncated and marked as
// tainting all their sub-fields.
func (f *Factory) Create(base *ir.Local, fields []*ir.Field, taintSubFields bool, arrayTaint ArrayTaint) *AccessPath {
	if base == nil {
		return f.zero
	}
	if len(fields) > f.maxLength {
		fields = fields[:f.maxLength]
		taintSubFields = true
	}
	if arrayTaint == NoArray && base.IsArray() && len(fields) == 0 {
		arrayTaint = ArrayContents
	}
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}
	key := pathKey{base: base, fields: strings.Join(names, "\x00"), sub: taintSubFields, array: arrayTaint}

	f.mu.Lock()
	defer f.mu.Unlock()
	if ap, ok := f.paths[key]; ok {
		return ap
	}
	ap := &AccessPath{
		base:           base,
		fields:         append([]*ir.Field(nil), fields...),
		taintSubFields: taintSubFields,
		arrayTaint:     arrayTaint,
	}
	f.paths[key] = ap
	return ap
}

// Local returns the path of a plain local, tainting all its sub-fields
func (f *Factory) Local(l *ir.Local) *AccessPath {
	return f.Create(l, nil, true, NoArray)
}

// FromValue returns the path denoted by a local, field reference, static reference or array reference, and nil for
// any other value.
func (f *Factory) FromValue(v ir.Value, taintSubFields bool) *AccessPath {
	switch x := v.(type) {
	case *ir.Local:
		return f.Create(x, nil, taintSubFields, NoArray)
	case *ir.InstanceFieldRef:
		return f.Create(x.Base, []*ir.Field{x.Field}, taintSubFields, NoArray)
	case *ir.StaticFieldRef:
		return f.Create(ir.StaticsBase, []*ir.Field{x.Field}, taintSubFields, NoArray)
	case *ir.ArrayRef:
		return f.Create(x.Base, nil, taintSubFields, ArrayContents)
	case *ir.CastExpr:
		return f.FromValue(x.X, taintSubFields)
	}
	return nil
}

// Rebase returns the path obtained by moving ap onto the value v: the base of v, the field of v if it is a field
// reference, then ap's fields, minus the first one if dropFirst is set. The flags of ap are kept. Rebase returns nil
// if v does not denote a path.
func (f *Factory) Rebase(ap *AccessPath, v ir.Value, dropFirst bool) *AccessPath {
	rest := ap.fields
	if dropFirst && len(rest) > 0 {
		rest = rest[1:]
	}
	switch x := v.(type) {
	case *ir.Local:
		return f.Create(x, rest, ap.taintSubFields, ap.arrayTaint)
	case *ir.InstanceFieldRef:
		return f.Create(x.Base, append([]*ir.Field{x.Field}, rest...), ap.taintSubFields, ap.arrayTaint)
	case *ir.StaticFieldRef:
		return f.Create(ir.StaticsBase, append([]*ir.Field{x.Field}, rest...), ap.taintSubFields, ap.arrayTaint)
	case *ir.ArrayRef:
		return f.Create(x.Base, rest, ap.taintSubFields, ArrayContents)
	case *ir.CastExpr:
		return f.Rebase(ap, x.X, dropFirst)
	}
	return nil
}

// WithBase returns ap moved to another base, keeping fields and flags
func (f *Factory) WithBase(ap *AccessPath, base *ir.Local) *AccessPath {
	return f.Create(base, ap.fields, ap.taintSubFields, ap.arrayTaint)
}

// WithArrayTaint returns ap with another array taint kind
func (f *Factory) WithArrayTaint(ap *AccessPath, arrayTaint ArrayTaint) *AccessPath {
	return f.Create(ap.base, ap.fields, ap.taintSubFields, arrayTaint)
}

// WithoutFields returns the base of ap as a plain local path
func (f *Factory) WithoutFields(ap *AccessPath) *AccessPath {
	return f.Create(ap.base, nil, true, NoArray)
}

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

package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/sparseflow/analysis/ir"
)

// AccessPath is a local followed by fields. The solver uses it where a taint access path would carry more
// information than a summary needs.
type AccessPath struct {
	Base   *ir.Local
	Fields []*ir.Field
}

// Append returns a new access path with fields appended
func (ap AccessPath) Append(fields ...*ir.Field) AccessPath {
	res := make([]*ir.Field, 0, len(ap.Fields)+len(fields))
	res = append(append(res, ap.Fields...), fields...)
	return AccessPath{Base: ap.Base, Fields: res}
}

// FirstField returns the first field, ir.BaseField if there are none
func (ap AccessPath) FirstField() *ir.Field {
	if len(ap.Fields) == 0 {
		return ir.BaseField
	}
	return ap.Fields[0]
}

func (ap AccessPath) String() string {
	var b strings.Builder
	if ap.Base != nil {
		b.WriteString(ap.Base.Name)
	}
	for _, f := range ap.Fields {
		b.WriteString(".")
		b.WriteString(f.Name)
	}
	return b.String()
}

// Kind is the kind of a summary
type Kind int

const (
	// Ordinary summaries apply to facts of exactly the source fields
	Ordinary Kind = iota
	// StrongUpdate summaries apply to facts extending the source fields and shadow deeper summaries
	StrongUpdate
	// Kill summaries apply to facts extending the source fields, except through killed fields
	Kill
)

func (k Kind) String() string {
	switch k {
	case Ordinary:
		return "ordinary"
	case StrongUpdate:
		return "strong"
	case Kill:
		return "kill"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Path is one summary: a fact on Source, holding after the entry statement Src, holds on TargetPath before Target.
// The fields of the fact past the source fields are appended to TargetPath when AppendRest is true; otherwise
// TargetPath holds the whole value.
//
// A Path must not be modified once it has been added to a Graph.
type Path struct {
	Src        ir.Stmt
	Source     AccessPath
	Target     ir.Stmt
	TargetPath AccessPath
	AppendRest bool
	Kind       Kind
	kill       map[*ir.Field]bool
}

// NewPath returns a summary path that appends the rest of the incoming fields to the target. The kill fields are
// only kept for Kill summaries.
func NewPath(src ir.Stmt, source AccessPath, target ir.Stmt, targetPath AccessPath, kind Kind,
	kill ...*ir.Field) *Path {
	p := &Path{Src: src, Source: source, Target: target, TargetPath: targetPath, AppendRest: true, Kind: kind}
	if kind == Kill {
		p.kill = make(map[*ir.Field]bool, len(kill))
		for _, f := range kill {
			p.kill[f] = true
		}
	}
	return p
}

// Kills returns true if the summary does not apply to facts continuing with f
func (p *Path) Kills(f *ir.Field) bool {
	return p.kill[f]
}

// KillSet returns the killed fields sorted by name
func (p *Path) KillSet() []*ir.Field {
	res := make([]*ir.Field, 0, len(p.kill))
	for f := range p.kill {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// key identifies the path regardless of its kill set
func (p *Path) key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%t|%s", ir.StmtString(p.Src), p.Source, ir.StmtString(p.Target), p.TargetPath,
		p.AppendRest, p.Kind)
}

func (p *Path) withKill(kill map[*ir.Field]bool) *Path {
	res := *p
	res.kill = kill
	return &res
}

// branch returns the ordinary summary for facts continuing with f
func (p *Path) branch(f *ir.Field) *Path {
	res := *p
	res.Kind = Ordinary
	res.kill = nil
	res.Source = p.Source.Append(f)
	if p.AppendRest {
		res.TargetPath = p.TargetPath.Append(f)
	}
	return &res
}

func (p *Path) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s -> %s @ %s", p.Kind, p.Source, p.TargetPath, ir.StmtString(p.Target))
	if !p.AppendRest {
		b.WriteString(" (whole)")
	}
	if p.Kind == Kill && len(p.kill) > 0 {
		names := make([]string, 0, len(p.kill))
		for _, f := range p.KillSet() {
			names = append(names, f.Name)
		}
		fmt.Fprintf(&b, " kill{%s}", strings.Join(names, ","))
	}
	return b.String()
}

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

package frontend

import (
	"fmt"
	"go/token"
	"go/types"
	"sort"
	"time"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/internal/analysisutil"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const (
	// DerefField is the pseudo-field written by a store through a pointer to a scalar
	DerefField = "*"
	chanIndex  = "<-"
	nextIndex  = "next"
)

// TupleField returns the name of the field holding the i-th value of a tuple
func TupleField(i int) string { return fmt.Sprintf("#%d", i) }

// Options control which functions are converted
type Options struct {
	// Exclude are file paths whose functions are not converted. A path ending in .go excludes that file, any other
	// path excludes the files under it.
	Exclude []string
	// Dependencies also converts the functions of the packages imported by the analyzed packages, outside the
	// standard library
	Dependencies bool
}

// Program is a Go program translated for the taint engine
type Program struct {
	// IR is the translated program
	IR *ir.Program
	// SSA is the program it was translated from
	SSA *ssa.Program

	calls map[ir.Stmt]config.CodeIdentifier
	funcs map[*ir.Method]*ssa.Function
}

// CodeID returns the code identifier of the callee of the call statement s
func (p *Program) CodeID(s ir.Stmt) (config.CodeIdentifier, bool) {
	cid, ok := p.calls[s]
	return cid, ok
}

// Function returns the SSA function m was translated from
func (p *Program) Function(m *ir.Method) *ssa.Function {
	return p.funcs[m]
}

// Convert translates the functions of the loaded packages
func Convert(lp *LoadedProgram, logger *config.LogGroup, opts Options) (*Program, error) {
	start := time.Now()
	analyzed := analyzedPackages(lp, opts)
	exclude := analysisutil.MakeAbsolute(opts.Exclude)

	var funcs []*ssa.Function
	for f := range ssautil.AllFunctions(lp.Program) {
		if f.Blocks == nil || !analyzed[packageOf(f)] || analysisutil.IsExcluded(lp.Program, f, exclude) {
			continue
		}
		funcs = append(funcs, f)
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].String() < funcs[j].String() })

	targets := callTargets(cha.CallGraph(lp.Program))
	p := &Program{
		SSA:   lp.Program,
		calls: map[ir.Stmt]config.CodeIdentifier{},
		funcs: map[*ir.Method]*ssa.Function{},
	}
	b := ir.NewBuilder()
	typeCache := map[types.Type]*ir.Type{}
	for _, f := range funcs {
		c := &converter{
			p:       p,
			b:       b,
			f:       f,
			fset:    lp.Program.Fset,
			targets: targets,
			types:   typeCache,
			locals:  map[ssa.Value]*ir.Local{},
			addrs:   map[ssa.Value]ir.Value{},
		}
		c.convert()
	}
	prog, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build program: %w", err)
	}
	p.IR = prog
	logger.Infof("Converted %d functions, %d statements (%.2f s)", len(funcs), prog.NumStmts(),
		time.Since(start).Seconds())
	return p, nil
}

func analyzedPackages(lp *LoadedProgram, opts Options) map[*ssa.Package]bool {
	res := map[*ssa.Package]bool{}
	for _, p := range lp.Packages {
		res[p] = true
	}
	if opts.Dependencies {
		analysisutil.VisitPackages(lp.Initial, func(p *packages.Package) bool {
			if analysisutil.IsStandard(p.PkgPath) {
				return false
			}
			if p.Types != nil {
				if sp := lp.Program.Package(p.Types); sp != nil {
					res[sp] = true
				}
			}
			return true
		})
	}
	return res
}

func packageOf(f *ssa.Function) *ssa.Package {
	if f.Pkg == nil && f.Origin() != nil {
		return f.Origin().Pkg
	}
	return f.Pkg
}

func callTargets(cg *callgraph.Graph) map[ssa.CallInstruction][]*ssa.Function {
	res := map[ssa.CallInstruction][]*ssa.Function{}
	for _, n := range cg.Nodes {
		for _, e := range n.Out {
			if e.Site != nil && e.Callee.Func != nil {
				res[e.Site] = append(res[e.Site], e.Callee.Func)
			}
		}
	}
	return res
}

func label(b *ssa.BasicBlock) string { return fmt.Sprintf("b%d", b.Index) }

// converter translates one function
type converter struct {
	p       *Program
	b       *ir.Builder
	mb      *ir.MethodBuilder
	f       *ssa.Function
	fset    *token.FileSet
	targets map[ssa.CallInstruction][]*ssa.Function
	types   map[types.Type]*ir.Type
	locals  map[ssa.Value]*ir.Local
	// addrs maps field and element addresses to the references they stand for
	addrs map[ssa.Value]ir.Value
}

func (c *converter) convert() {
	c.mb = c.b.Method(c.f.String())
	c.mb.At(c.fset.Position(c.f.Pos()))
	params := c.f.Params
	if c.f.Signature.Recv() != nil && len(params) > 0 {
		c.locals[params[0]] = c.mb.This(params[0].Name())
		params = params[1:]
	}
	for _, prm := range params {
		c.locals[prm] = c.mb.TypedParam(prm.Name(), c.typ(prm.Type()))
	}
	for _, fv := range c.f.FreeVars {
		c.locals[fv] = c.mb.TypedParam(fv.Name(), c.typ(fv.Type()))
	}
	c.collectAddrs()
	for _, blk := range c.f.Blocks {
		c.mb.Label(label(blk))
		for _, instr := range blk.Instrs {
			c.instr(instr)
		}
	}
	c.p.funcs[c.mb.Method()] = c.f
}

// collectAddrs records the reference each field or element address stands for, before any statement is emitted,
// since blocks are not visited in dominance order
func (c *converter) collectAddrs() {
	for _, blk := range c.f.Blocks {
		for _, instr := range blk.Instrs {
			switch x := instr.(type) {
			case *ssa.FieldAddr:
				name := analysisutil.FieldAddrFieldName(x)
				switch base := x.X.(type) {
				case *ssa.Global:
					c.addrs[x] = c.b.Static(base.String() + "." + name)
				case *ssa.Const:
				default:
					c.addrs[x] = c.mb.FieldRef(c.local(base), name)
				}
			case *ssa.IndexAddr:
				switch base := x.X.(type) {
				case *ssa.Global:
					c.addrs[x] = c.b.Static(base.String() + "[]")
				case *ssa.Const:
				default:
					if _, global := x.Index.(*ssa.Global); !global {
						c.addrs[x] = c.mb.Index(c.local(base), c.val(x.Index))
					}
				}
			}
		}
	}
}

func (c *converter) instr(instr ssa.Instruction) {
	if pos := instr.Pos(); pos.IsValid() {
		c.mb.At(c.fset.Position(pos))
	}
	switch x := instr.(type) {
	case *ssa.DebugRef, *ssa.RunDefers:
	case *ssa.Alloc:
		c.assign(x, ir.New(c.typ(deref(x.Type()))))
	case *ssa.FieldAddr, *ssa.IndexAddr:
		v := instr.(ssa.Value)
		if ref, ok := c.addrs[v]; ok && escapes(v) {
			c.assign(v, ref)
		}
	case *ssa.Field:
		c.assign(x, c.mb.FieldRef(c.local(x.X), analysisutil.FieldFieldName(x)))
	case *ssa.Index:
		c.assign(x, c.mb.Index(c.local(x.X), c.val(x.Index)))
	case *ssa.Lookup:
		c.assign(x, c.mb.Index(c.local(x.X), c.val(x.Index)))
	case *ssa.MapUpdate:
		c.store(c.mb.Index(c.local(x.Map), c.val(x.Key)), x.Value)
	case *ssa.Store:
		c.store(c.addr(x.Addr), x.Val)
	case *ssa.Send:
		c.store(c.mb.Index(c.local(x.Chan), ir.Const(chanIndex)), x.X)
	case *ssa.UnOp:
		switch x.Op {
		case token.MUL:
			c.assign(x, c.deref(x.X))
		case token.ARROW:
			c.assign(x, c.mb.Index(c.local(x.X), ir.Const(chanIndex)))
		default:
			c.assign(x, ir.Unop(x.Op.String(), c.val(x.X)))
		}
	case *ssa.BinOp:
		c.assign(x, ir.Binop(x.Op.String(), c.val(x.X), c.val(x.Y)))
	case *ssa.Phi:
		edges := make([]ir.Value, len(x.Edges))
		for i, e := range x.Edges {
			edges[i] = c.val(e)
		}
		c.assign(x, ir.Phi(edges...))
	case *ssa.ChangeType, *ssa.Convert, *ssa.ChangeInterface, *ssa.MakeInterface, *ssa.SliceToArrayPointer,
		*ssa.MultiConvert, *ssa.TypeAssert, *ssa.Slice, *ssa.Range:
		v := instr.(ssa.Value)
		c.assign(v, ir.Cast(c.val(*instr.Operands(nil)[0]), c.typ(v.Type())))
	case *ssa.Extract:
		c.assign(x, c.mb.FieldRef(c.local(x.Tuple), TupleField(x.Index)))
	case *ssa.Next:
		c.assign(x, c.mb.Index(c.local(x.Iter), ir.Const(nextIndex)))
	case *ssa.MakeSlice:
		c.assign(x, ir.NewArray(c.typ(x.Type()), c.val(x.Len)))
	case *ssa.MakeMap:
		var size ir.Value = ir.Const("0")
		if x.Reserve != nil {
			size = c.val(x.Reserve)
		}
		c.assign(x, ir.NewArray(c.typ(x.Type()), size))
	case *ssa.MakeChan:
		c.assign(x, ir.NewArray(c.typ(x.Type()), c.val(x.Size)))
	case *ssa.MakeClosure:
		c.assign(x, ir.New(c.typ(x.Type())))
		fn := x.Fn.(*ssa.Function)
		for i, b := range x.Bindings {
			c.store(c.mb.FieldRef(c.local(x), fn.FreeVars[i].Name()), b)
		}
	case *ssa.Call:
		c.call(x, x)
	case *ssa.Go:
		c.call(x, nil)
	case *ssa.Defer:
		c.call(x, nil)
	case *ssa.If:
		succs := x.Block().Succs
		c.mb.If(c.val(x.Cond), label(succs[0]))
		c.mb.Goto(label(succs[1]))
	case *ssa.Jump:
		c.mb.Goto(label(x.Block().Succs[0]))
	case *ssa.Return:
		c.ret(x.Results)
	case *ssa.Panic:
		c.mb.Throw(c.val(x.X))
	default:
		if v, ok := instr.(ssa.Value); ok {
			c.assign(v, ir.New(c.typ(v.Type())))
		}
	}
}

// escapes returns true if the address v is used other than to load or store through it
func escapes(v ssa.Value) bool {
	refs := v.Referrers()
	if refs == nil {
		return false
	}
	for _, r := range *refs {
		switch x := r.(type) {
		case *ssa.Store:
			if x.Addr == v && x.Val != v {
				continue
			}
		case *ssa.UnOp:
			if x.Op == token.MUL {
				continue
			}
		case *ssa.DebugRef:
			continue
		}
		return true
	}
	return false
}

func (c *converter) assign(v ssa.Value, right ir.Value) {
	c.mb.Assign(c.local(v), right)
}

func (c *converter) store(ref ir.Value, v ssa.Value) {
	c.mb.Assign(ref, c.val(v))
}

// addr returns the reference written by a store through a
func (c *converter) addr(a ssa.Value) ir.Value {
	if ref, ok := c.addrs[a]; ok {
		return ref
	}
	if g, ok := a.(*ssa.Global); ok {
		return c.b.Static(g.String())
	}
	return c.mb.FieldRef(c.local(a), DerefField)
}

// deref returns the value loaded through the pointer p
func (c *converter) deref(p ssa.Value) ir.Value {
	if ref, ok := c.addrs[p]; ok {
		return ref
	}
	if g, ok := p.(*ssa.Global); ok {
		return c.b.Static(g.String())
	}
	if isAggregate(deref(p.Type())) {
		return ir.Cast(c.local(p), c.typ(deref(p.Type())))
	}
	return c.mb.FieldRef(c.local(p), DerefField)
}

// local returns the local holding v. Constants, functions and globals are copied to a fresh temporary.
func (c *converter) local(v ssa.Value) *ir.Local {
	if l, ok := c.locals[v]; ok {
		return l
	}
	switch x := v.(type) {
	case *ssa.Global:
		t := c.mb.Temp(c.typ(deref(x.Type())))
		c.mb.Assign(t, c.b.Static(x.String()))
		return t
	case *ssa.Const, *ssa.Function, *ssa.Builtin:
		t := c.mb.Temp(c.typ(x.Type()))
		c.mb.Assign(t, c.val(x))
		return t
	}
	l := c.mb.TypedLocal(v.Name(), c.typ(v.Type()))
	c.locals[v] = l
	return l
}

// val returns v as an operand: a constant or a local
func (c *converter) val(v ssa.Value) ir.Value {
	switch x := v.(type) {
	case *ssa.Const:
		if x.Value == nil {
			return &ir.Constant{Value: "nil", Type: c.typ(x.Type())}
		}
		return &ir.Constant{Value: x.Value.ExactString(), Type: c.typ(x.Type())}
	case *ssa.Function:
		return &ir.Constant{Value: x.String(), Type: c.typ(x.Type())}
	case *ssa.Builtin:
		return ir.Const(x.Name())
	}
	return c.local(v)
}

func (c *converter) vals(vs []ssa.Value) []ir.Value {
	res := make([]ir.Value, len(vs))
	for i, v := range vs {
		res[i] = c.val(v)
	}
	return res
}

func (c *converter) ret(results []ssa.Value) {
	switch len(results) {
	case 0:
		c.mb.Return(nil)
	case 1:
		c.mb.Return(c.val(results[0]))
	default:
		t := c.mb.Temp(c.typ(c.f.Signature.Results()))
		c.mb.Assign(t, ir.New(c.typ(c.f.Signature.Results())))
		for i, r := range results {
			c.store(c.mb.FieldRef(t, TupleField(i)), r)
		}
		c.mb.Return(t)
	}
}

// call emits the statement of a call. v is the value of the call, nil for go and defer statements.
func (c *converter) call(instr ssa.CallInstruction, v ssa.Value) {
	common := instr.Common()
	if b, ok := common.Value.(*ssa.Builtin); ok && c.builtin(b, common.Args, v) {
		return
	}
	var (
		base  *ir.Local
		name  string
		args  []ir.Value
		bound bool
	)
	switch callee := common.StaticCallee(); {
	case common.IsInvoke():
		base, name, args, bound = c.local(common.Value), common.Method.FullName(), c.vals(common.Args), true
	case callee != nil:
		name = callee.String()
		args = c.vals(common.Args)
		if callee.Signature.Recv() != nil && len(common.Args) > 0 {
			base, args = c.local(common.Args[0]), args[1:]
		}
		if mc, ok := common.Value.(*ssa.MakeClosure); ok {
			args = append(args, c.vals(mc.Bindings)...)
		}
	case isBuiltin(common.Value):
		name, args = "builtin."+common.Value.Name(), c.vals(common.Args)
	default:
		name, args, bound = common.Value.Name(), c.vals(common.Args), true
	}

	var s ir.Stmt
	hasResult := v != nil && !isEmptyTuple(v.Type())
	switch {
	case hasResult && base != nil:
		s = c.mb.Assign(c.local(v), c.mb.CallOn(base, name, args...))
	case hasResult:
		s = c.mb.Assign(c.local(v), c.mb.Call(name, args...))
	case base != nil:
		s = c.mb.InvokeOn(base, name, args...)
	default:
		s = c.mb.Invoke(name, args...)
	}
	if bound {
		var names []string
		for _, t := range c.targets[instr] {
			names = append(names, t.String())
		}
		c.b.Bind(s, names...)
	}
	if cid, ok := analysisutil.CallCodeID(c.f, common); ok {
		c.p.calls[s] = cid
	}
}

// builtin emits the statements of the builtins the engine models directly. It returns false for the other
// builtins, which are emitted as calls to external functions.
func (c *converter) builtin(b *ssa.Builtin, args []ssa.Value, v ssa.Value) bool {
	switch b.Name() {
	case "len", "cap":
		if v == nil {
			return false
		}
		c.assign(v, ir.Len(c.val(args[0])))
	case "append":
		if v == nil || len(args) == 0 {
			return false
		}
		if len(args) == 1 {
			c.assign(v, ir.Cast(c.val(args[0]), c.typ(v.Type())))
		} else {
			c.assign(v, ir.Binop("append", c.val(args[0]), c.val(args[1])))
		}
	case "copy":
		c.store(c.mb.Index(c.local(args[0]), ir.Const(DerefField)), args[1])
		if v != nil {
			c.assign(v, ir.Const("0"))
		}
	case "ssa:wrapnilchk":
		if v == nil {
			return false
		}
		c.assign(v, ir.Cast(c.val(args[0]), c.typ(v.Type())))
	default:
		return false
	}
	return true
}

func isBuiltin(v ssa.Value) bool {
	_, ok := v.(*ssa.Builtin)
	return ok
}

func isEmptyTuple(t types.Type) bool {
	tuple, ok := t.(*types.Tuple)
	return ok && tuple.Len() == 0
}

func deref(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

func isAggregate(t types.Type) bool {
	switch t.Underlying().(type) {
	case *types.Struct, *types.Array:
		return true
	}
	return false
}

func (c *converter) typ(t types.Type) *ir.Type {
	if it, ok := c.types[t]; ok {
		return it
	}
	it := &ir.Type{Name: t.String()}
	switch u := t.Underlying().(type) {
	case *types.Slice, *types.Array, *types.Map, *types.Chan:
		it.Array = true
	case *types.Pointer:
		_, it.Array = u.Elem().Underlying().(*types.Array)
	case *types.Basic:
		it.Primitive = true
	}
	c.types[t] = it
	return it
}

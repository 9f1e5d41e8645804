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

// Package analysisutil contains helpers over SSA values and loaded packages used by the Go front end.
// These functions are in an internal package because they are not important
// enough to be included in the main library.
package analysisutil

import (
	"fmt"
	"go/types"

	"github.com/awslabs/sparseflow/analysis/config"
	"golang.org/x/tools/go/ssa"
)

// FindTypePackage finds the package declaring t or returns an error
// Returns a package path and the name of the type declared in that package
func FindTypePackage(t types.Type) (string, string, error) {
	switch typ := t.(type) {
	case *types.Pointer:
		return FindTypePackage(typ.Elem()) // recursive call
	case *types.Named:
		obj := typ.Obj()
		if obj == nil {
			return "", "", fmt.Errorf("could not get name")
		}
		if pkg := obj.Pkg(); pkg != nil {
			return pkg.Path(), obj.Name(), nil
		}
		// obj is in Universe
		return "", obj.Name(), nil
	case *types.Alias:
		return FindTypePackage(types.Unalias(typ))
	case *types.Array:
		return FindTypePackage(typ.Elem()) // recursive call
	case *types.Map:
		return FindTypePackage(typ.Elem()) // recursive call
	case *types.Slice:
		return FindTypePackage(typ.Elem()) // recursive call
	case *types.Chan:
		return FindTypePackage(typ.Elem()) // recursive call
	default:
		return "", "", fmt.Errorf("%s: not a type with a package and name", typ)
	}
}

// CalleePkg returns the path of the package of the callee of n, if it is known statically
func CalleePkg(n *ssa.CallCommon) (string, bool) {
	if n == nil {
		return "", false
	}
	if n.IsInvoke() && n.Method != nil && n.Method.Pkg() != nil {
		return n.Method.Pkg().Path(), true
	}
	callee := n.StaticCallee()
	if callee == nil {
		return "", false
	}
	if callee.Pkg != nil {
		return callee.Pkg.Pkg.Path(), true
	}
	if callee.Object() != nil && callee.Object().Pkg() != nil {
		return callee.Object().Pkg().Path(), true
	}
	return "", false
}

// FieldAddrFieldName finds the name of a field access in ssa.FieldAddr
// if it cannot find a proper field name, returns "?"
func FieldAddrFieldName(fieldAddr *ssa.FieldAddr) string {
	return getFieldNameFromType(fieldAddr.X.Type().Underlying(), fieldAddr.Field)
}

// FieldFieldName finds the name of a field access in ssa.Field
// if it cannot find a proper field name, returns "?"
func FieldFieldName(field *ssa.Field) string {
	return getFieldNameFromType(field.X.Type().Underlying(), field.Field)
}

func getFieldNameFromType(t types.Type, i int) string {
	switch typ := t.(type) {
	case *types.Pointer:
		return getFieldNameFromType(typ.Elem().Underlying(), i) // recursive call
	case *types.Struct:
		if 0 <= i && i < typ.NumFields() {
			return typ.Field(i).Name()
		}
	}
	return "?"
}

// CallCodeID returns the code identifier of the callee of a call made in caller. The second result is false when
// the package of the callee cannot be determined statically.
func CallCodeID(caller *ssa.Function, call *ssa.CallCommon) (config.CodeIdentifier, bool) {
	pkg, ok := CalleePkg(call)
	if !ok {
		return config.CodeIdentifier{}, false
	}
	cid := config.CodeIdentifier{Package: pkg}
	if caller != nil {
		cid.Context = caller.String()
	}
	if call.IsInvoke() {
		cid.Method = call.Method.Name()
		if _, name, err := FindTypePackage(call.Value.Type()); err == nil {
			cid.Receiver = name
		}
		return cid, true
	}
	callee := call.StaticCallee()
	cid.Method = callee.Name()
	if recv := callee.Signature.Recv(); recv != nil {
		if _, name, err := FindTypePackage(recv.Type()); err == nil {
			cid.Receiver = name
		}
	}
	return cid, true
}

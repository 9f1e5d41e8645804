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

package config

import (
	"fmt"
	"regexp"
)

// CodeIdentifier identifies a code element that is a source or a sink. Each non-empty field is matched as a
// regex when it compiles to one, and as a plain string otherwise.
type CodeIdentifier struct {
	// Context restricts the identifier to calls made from functions whose name matches
	Context  string
	Package  string
	Method   string
	Receiver string
	// This will not be part of the yaml config
	computedRegexs *codeIdentifierRegex
}

type codeIdentifierRegex struct {
	contextRegex  *regexp.Regexp
	packageRegex  *regexp.Regexp
	methodRegex   *regexp.Regexp
	receiverRegex *regexp.Regexp
}

// compileRegexes compiles the strings in the code identifier into regexes. It compiles all identifiers into regexes
// or none.
func compileRegexes(cid CodeIdentifier) CodeIdentifier {
	var compiled [4]*regexp.Regexp
	for i, s := range []string{cid.Context, cid.Package, cid.Method, cid.Receiver} {
		r, err := regexp.Compile(s)
		if err != nil {
			return cid
		}
		compiled[i] = r
	}
	cid.computedRegexs = &codeIdentifierRegex{compiled[0], compiled[1], compiled[2], compiled[3]}
	return cid
}

// equalOnNonEmptyFields returns true if each of the receiver's fields are either equal to the corresponding
// argument's field, or the argument's field is empty
func (cid CodeIdentifier) equalOnNonEmptyFields(cidRef CodeIdentifier) bool {
	if cidRef.computedRegexs != nil {
		return (cidRef.Context == "" || cidRef.computedRegexs.contextRegex.MatchString(cid.Context)) &&
			(cidRef.Package == "" || cidRef.computedRegexs.packageRegex.MatchString(cid.Package)) &&
			(cidRef.Method == "" || cidRef.computedRegexs.methodRegex.MatchString(cid.Method)) &&
			(cidRef.Receiver == "" || cidRef.computedRegexs.receiverRegex.MatchString(cid.Receiver))
	}
	return (cidRef.Context == "" || cid.Context == cidRef.Context) &&
		(cidRef.Package == "" || cid.Package == cidRef.Package) &&
		(cidRef.Method == "" || cid.Method == cidRef.Method) &&
		(cidRef.Receiver == "" || cid.Receiver == cidRef.Receiver)
}

// MatchesAny returns true when cid matches one of the identifiers in refs
func (cid CodeIdentifier) MatchesAny(refs []CodeIdentifier) bool {
	for _, ref := range refs {
		if cid.equalOnNonEmptyFields(ref) {
			return true
		}
	}
	return false
}

func (cid CodeIdentifier) String() string {
	s := fmt.Sprintf("%s.%s", cid.Package, cid.Method)
	if cid.Receiver != "" {
		s = fmt.Sprintf("%s.(%s).%s", cid.Package, cid.Receiver, cid.Method)
	}
	if cid.Context != "" {
		s += " in " + cid.Context
	}
	return s
}

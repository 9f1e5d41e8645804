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

package main

import "fmt"

type record struct {
	name string
	id   string
}

type getter interface {
	Get() string
}

type box struct {
	v string
}

func (b box) Get() string {
	return b.v
}

var global string

func source() string {
	return "tainted"
}

func sink(s string) {
	fmt.Println(s)
}

func direct() {
	s := source() // @Source(A)
	sink(s)       // @Sink(A)
}

func copyInput(s string, x int) string {
	if x > 1 {
		return s
	}
	return s
}

func copyInto(s string, dst *string) {
	*dst = s
}

func interprocedural() {
	s := source() // @Source(B)
	s1 := copyInput(s, 1)
	s2 := ""
	copyInto(s1, &s2)
	sink(s2) // @Sink(B)
}

func fields() {
	r := &record{}
	r.name = source() // @Source(C)
	sink(r.name)      // @Sink(C)
	sink(r.id)
}

func overwrite() {
	s := source()
	s = "clean"
	sink(s)
}

func slices() {
	a := make([]string, 3)
	a[1] = source() // @Source(D)
	sink(a[0])      // @Sink(D)
}

func interfaces() {
	var g getter = box{v: source()} // @Source(E)
	sink(g.Get())                   // @Sink(E)
}

func setGlobal() {
	global = source() // @Source(F)
}

func useGlobal() {
	sink(global) // @Sink(F)
}

func main() {
	direct()
	interprocedural()
	fields()
	overwrite()
	slices()
	interfaces()
	setGlobal()
	useGlobal()
}

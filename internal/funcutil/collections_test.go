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

package funcutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetHelpers(t *testing.T) {
	a := map[string]bool{"x": true, "y": false}
	Union(a, map[string]bool{"y": true, "z": true})
	assert.Equal(t, []string{"x", "y", "z"}, SetToOrderedSlice(a))

	assert.Equal(t, []int{1, 2, 3}, AppendUnique([]int{1, 2}, 2, 3, 1))
	assert.Equal(t, []int{2, 4}, Filter([]int{1, 2, 3, 4}, func(x int) bool { return x%2 == 0 }))
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, func(x int) string { return string(rune('0' + x)) }))
	assert.Nil(t, Map[int, int](nil, func(x int) int { return x }))

	keys := SortedKeys(map[int]string{3: "c", 1: "a", 2: "b"}, func(a, b int) bool { return a > b })
	assert.Equal(t, []int{3, 2, 1}, keys)

	s := []int{1, 2, 3}
	Reverse(s)
	assert.Equal(t, []int{3, 2, 1}, s)
}

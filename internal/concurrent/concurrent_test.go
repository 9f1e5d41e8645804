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

package concurrent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetInsertIfAbsent(t *testing.T) {
	var s Set[int]
	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if s.Add(i) {
					mu.Lock()
					added++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, added)
	assert.Equal(t, 100, s.Len())
	assert.True(t, s.Has(42))
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has(42))
}

func TestMultiMap(t *testing.T) {
	var mm MultiMap[string, int]
	require.True(t, mm.Put("a", 1))
	require.True(t, mm.Put("a", 2))
	require.False(t, mm.Put("a", 1))
	require.True(t, mm.Put("b", 1))
	assert.Equal(t, []int{1, 2}, mm.Get("a"))
	assert.Nil(t, mm.Get("c"))
	assert.True(t, mm.Has("b", 1))
	assert.False(t, mm.Has("b", 2))
	assert.ElementsMatch(t, []string{"a", "b"}, mm.Keys())
	mm.Clear()
	assert.Empty(t, mm.Keys())
}

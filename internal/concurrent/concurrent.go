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

// Package concurrent provides the insert-if-absent collections shared by the worker goroutines of a solver.
// Re-inserting a present element is a no-op, so concurrent retries are safe without any lock beyond the ones of
// the collections themselves.
package concurrent

import (
	"sync"
	"sync/atomic"
)

// Set is a concurrent set of comparable elements
type Set[T comparable] struct {
	m    sync.Map
	size atomic.Int64
}

// Add inserts x and returns true if it was not already present
func (s *Set[T]) Add(x T) bool {
	if _, loaded := s.m.LoadOrStore(x, struct{}{}); loaded {
		return false
	}
	s.size.Add(1)
	return true
}

// Has returns true if x is in the set
func (s *Set[T]) Has(x T) bool {
	_, ok := s.m.Load(x)
	return ok
}

// Len returns the number of elements. The value may be stale while other goroutines insert.
func (s *Set[T]) Len() int {
	return int(s.size.Load())
}

// Range calls f on every element until f returns false
func (s *Set[T]) Range(f func(x T) bool) {
	s.m.Range(func(k, _ any) bool { return f(k.(T)) })
}

// Clear removes all elements
func (s *Set[T]) Clear() {
	s.m.Range(func(k, _ any) bool {
		s.m.Delete(k)
		return true
	})
	s.size.Store(0)
}

// bucket is the set of values of one key of a MultiMap, guarded by its own lock
type bucket[V comparable] struct {
	mu     sync.Mutex
	values map[V]struct{}
	order  []V
}

// MultiMap is a concurrent append-only multimap. Each key has its own lock.
type MultiMap[K comparable, V comparable] struct {
	m sync.Map
}

func (mm *MultiMap[K, V]) bucket(k K) *bucket[V] {
	if b, ok := mm.m.Load(k); ok {
		return b.(*bucket[V])
	}
	b, _ := mm.m.LoadOrStore(k, &bucket[V]{values: map[V]struct{}{}})
	return b.(*bucket[V])
}

// Put adds v to the values of k and returns true if it was not already present
func (mm *MultiMap[K, V]) Put(k K, v V) bool {
	b := mm.bucket(k)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.values[v]; ok {
		return false
	}
	b.values[v] = struct{}{}
	b.order = append(b.order, v)
	return true
}

// Get returns a snapshot of the values of k, in insertion order
func (mm *MultiMap[K, V]) Get(k K) []V {
	x, ok := mm.m.Load(k)
	if !ok {
		return nil
	}
	b := x.(*bucket[V])
	b.mu.Lock()
	defer b.mu.Unlock()
	res := make([]V, len(b.order))
	copy(res, b.order)
	return res
}

// Has returns true when v is a value of k
func (mm *MultiMap[K, V]) Has(k K, v V) bool {
	x, ok := mm.m.Load(k)
	if !ok {
		return false
	}
	b := x.(*bucket[V])
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok = b.values[v]
	return ok
}

// Keys returns a snapshot of the keys
func (mm *MultiMap[K, V]) Keys() []K {
	var keys []K
	mm.m.Range(func(k, _ any) bool {
		keys = append(keys, k.(K))
		return true
	})
	return keys
}

// Clear removes all keys
func (mm *MultiMap[K, V]) Clear() {
	mm.m.Range(func(k, _ any) bool {
		mm.m.Delete(k)
		return true
	})
}

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

// Package abstraction implements the taint facts propagated by the solvers. Facts are allocated in a per-run Arena
// and referenced by ID; predecessor and neighbor links are IDs as well, so a run's facts are released by dropping
// its arena.
package abstraction

import (
	"fmt"
	"sync"

	"github.com/awslabs/sparseflow/analysis/ir"
)

// ID references an Abstraction in an Arena
type ID uint32

// Zero is the ID of the zero fact, which holds at every reachable statement
const Zero ID = 0

// SourceContext records where a taint originated. Source contexts are compared by pointer.
type SourceContext struct {
	Stmt       ir.Stmt
	AccessPath *AccessPath
	UserData   any
}

func (sc *SourceContext) String() string {
	if sc == nil {
		return "<no source>"
	}
	return fmt.Sprintf("%s @ %s", sc.AccessPath, ir.StmtString(sc.Stmt))
}

// Neighbor is an additional way a fact was derived: from Pred at Stmt
type Neighbor struct {
	Pred ID
	Stmt ir.Stmt
}

// Abstraction is a taint fact. The identity of a fact is (access path, activation unit, active flag, source
// context); the predecessor and neighbors only serve path reconstruction.
type Abstraction struct {
	ap         *AccessPath
	source     *SourceContext
	activation ir.Stmt
	active     bool
	pred       ID
	stmt       ir.Stmt
}

// AccessPath returns the tainted access path
func (a *Abstraction) AccessPath() *AccessPath { return a.ap }

// Source returns the source context, nil for the zero fact
func (a *Abstraction) Source() *SourceContext { return a.source }

// ActivationUnit returns the statement at which an inactive alias fact becomes active, nil for active facts
func (a *Abstraction) ActivationUnit() ir.Stmt { return a.activation }

// IsActive returns true if the fact is an active taint, as opposed to an alias placeholder
func (a *Abstraction) IsActive() bool { return a.active }

// Pred returns the fact this one was first derived from
func (a *Abstraction) Pred() ID { return a.pred }

// Stmt returns the statement at which the fact was first derived
func (a *Abstraction) Stmt() ir.Stmt { return a.stmt }

// IsZero returns true for the zero fact
func (a *Abstraction) IsZero() bool { return a.source == nil && a.ap != nil && a.ap.base == nil }

func (a *Abstraction) String() string {
	if a.IsZero() {
		return "<zero>"
	}
	if a.active {
		return a.ap.String()
	}
	return fmt.Sprintf("%s (inactive until %s)", a.ap, ir.StmtString(a.activation))
}

type identity struct {
	ap         *AccessPath
	activation ir.Stmt
	active     bool
	source     *SourceContext
}

// Arena owns the facts of one analysis run
type Arena struct {
	mu        sync.RWMutex
	facts     []*Abstraction
	neighbors map[ID][]Neighbor
	index     map[identity]ID
}

// NewArena returns an arena containing only the zero fact, whose access path is zeroPath
func NewArena(zeroPath *AccessPath) *Arena {
	zero := &Abstraction{ap: zeroPath, active: true}
	return &Arena{
		facts:     []*Abstraction{zero},
		neighbors: map[ID][]Neighbor{},
		index:     map[identity]ID{{ap: zeroPath, active: true}: Zero},
	}
}

// Get returns the fact with the given id
func (a *Arena) Get(id ID) *Abstraction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.facts[id]
}

// Len returns the number of facts in the arena
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.facts)
}

// Neighbors returns a copy of the neighbors of the fact
func (a *Arena) Neighbors(id ID) []Neighbor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Neighbor(nil), a.neighbors[id]...)
}

// intern returns the id of the fact with the given identity, allocating it if needed. If the fact already exists
// and was reached from another predecessor or statement, the new derivation is recorded as a neighbor.
func (a *Arena) intern(key identity, pred ID, stmt ir.Stmt) ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.index[key]; ok {
		existing := a.facts[id]
		if id == pred || id == Zero || (existing.pred == pred && existing.stmt == stmt) {
			return id
		}
		for _, n := range a.neighbors[id] {
			if n.Pred == pred && n.Stmt == stmt {
				return id
			}
		}
		a.neighbors[id] = append(a.neighbors[id], Neighbor{Pred: pred, Stmt: stmt})
		return id
	}
	id := ID(len(a.facts))
	a.facts = append(a.facts, &Abstraction{
		ap:         key.ap,
		source:     key.source,
		activation: key.activation,
		active:     key.active,
		pred:       pred,
		stmt:       stmt,
	})
	a.index[key] = id
	return id
}

// Source returns the fact introduced at a source statement
func (a *Arena) Source(sc *SourceContext, stmt ir.Stmt) ID {
	return a.intern(identity{ap: sc.AccessPath, active: true, source: sc}, Zero, stmt)
}

// Derive returns the fact obtained from parent by changing its access path at stmt
func (a *Arena) Derive(parent ID, ap *AccessPath, stmt ir.Stmt) ID {
	p := a.Get(parent)
	if p.ap == ap {
		return parent
	}
	return a.intern(identity{ap: ap, activation: p.activation, active: p.active, source: p.source}, parent, stmt)
}

// DeriveInactive returns an inactive copy of parent with another access path, activated at stmt
func (a *Arena) DeriveInactive(parent ID, ap *AccessPath, stmt ir.Stmt) ID {
	p := a.Get(parent)
	return a.intern(identity{ap: ap, activation: stmt, active: false, source: p.source}, parent, stmt)
}

// Activate returns the active version of an inactive fact
func (a *Arena) Activate(parent ID, stmt ir.Stmt) ID {
	p := a.Get(parent)
	if p.active {
		return parent
	}
	return a.intern(identity{ap: p.ap, active: true, source: p.source}, parent, stmt)
}

// Lookup returns the id of the fact with the given identity, if it exists
func (a *Arena) Lookup(ap *AccessPath, activation ir.Stmt, active bool, sc *SourceContext) (ID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.index[identity{ap: ap, activation: activation, active: active, source: sc}]
	return id, ok
}

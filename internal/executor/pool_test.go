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

package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolQuiescenceWithNestedTasks(t *testing.T) {
	p := New(4)
	defer p.Close()

	var count atomic.Int64
	var spawn func(depth int)
	spawn = func(depth int) {
		count.Add(1)
		if depth == 0 {
			return
		}
		for i := 0; i < 2; i++ {
			p.Submit(func() { spawn(depth - 1) })
		}
	}
	p.Submit(func() { spawn(6) })
	require.NoError(t, p.Await(context.Background()))
	assert.Equal(t, int64(127), count.Load())
	assert.Equal(t, 0, p.Pending())
}

func TestAwaitOnIdlePool(t *testing.T) {
	p := New(1)
	defer p.Close()
	require.NoError(t, p.Await(context.Background()))
}

func TestAwaitContextDone(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	p.Submit(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, p.Await(context.Background()))
	p.Close()
}

func TestPanicBecomesTaskError(t *testing.T) {
	p := New(2)
	defer p.Close()
	sentinel := errors.New("bad shape")
	p.Submit(func() { panic(sentinel) })
	err := p.Await(context.Background())
	require.Error(t, err)
	var terr *TaskError
	require.True(t, errors.As(err, &terr))
	assert.ErrorIs(t, err, sentinel)

	// the pool refuses work until reset
	ran := false
	p.Submit(func() { ran = true })
	require.Error(t, p.Await(context.Background()))
	assert.False(t, ran)

	p.Reset()
	done := make(chan struct{})
	p.Submit(func() { close(done) })
	require.NoError(t, p.Await(context.Background()))
	<-done
}

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

package infoflow

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBounded struct {
	mu     sync.Mutex
	reason error
	done   bool
}

func (f *fakeBounded) ForceTerminate(reason error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reason == nil {
		f.reason = reason
	}
}

func (f *fakeBounded) IsKilled() bool { return f.KillReason() != nil }

func (f *fakeBounded) KillReason() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason
}

func (f *fakeBounded) IsTerminated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done || f.reason != nil
}

func (f *fakeBounded) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reason, f.done = nil, false
}

func TestTimeoutWatchdogFires(t *testing.T) {
	a, b := &fakeBounded{}, &fakeBounded{done: true}
	reason := errors.New("too slow")
	w := NewTimeoutWatchdog(20*time.Millisecond, reason, config.NewDiscardLogGroup(), a)
	w.AddTarget(b)
	w.Start()
	defer w.Stop()

	require.Eventually(t, w.Fired, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, a.KillReason(), reason)
	assert.NoError(t, b.KillReason(), "terminated computations are left alone")
}

func TestTimeoutWatchdogStopped(t *testing.T) {
	a := &fakeBounded{}
	w := NewTimeoutWatchdog(20*time.Millisecond, ErrDataFlowTimeout, config.NewDiscardLogGroup(), a)
	w.Start()
	w.Stop()
	w.Stop()
	time.Sleep(50 * time.Millisecond)
	assert.False(t, w.Fired())
	assert.False(t, a.IsKilled())
}

func TestTimeoutWatchdogDisabled(t *testing.T) {
	a := &fakeBounded{}
	w := NewTimeoutWatchdog(0, ErrDataFlowTimeout, config.NewDiscardLogGroup(), a)
	w.Start()
	time.Sleep(10 * time.Millisecond)
	w.Stop()
	assert.False(t, a.IsKilled())
}

func TestMemoryWatchdog(t *testing.T) {
	a := &fakeBounded{}
	w := NewMemoryWatchdog(1, config.NewDiscardLogGroup(), a)
	w.interval = time.Millisecond
	var mu sync.Mutex
	used := uint64(512 << 10)
	w.heap = func() uint64 {
		mu.Lock()
		defer mu.Unlock()
		return used
	}
	w.Start()
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, a.IsKilled())

	mu.Lock()
	used = 2 << 20
	mu.Unlock()
	require.Eventually(t, w.Fired, time.Second, time.Millisecond)
	assert.ErrorIs(t, a.KillReason(), ErrMemoryExhausted)
}

func TestMemoryWatchdogUnlimited(t *testing.T) {
	w := NewMemoryWatchdog(0, config.NewDiscardLogGroup(), &fakeBounded{})
	w.Start()
	w.Stop()
	assert.False(t, w.Fired())
}

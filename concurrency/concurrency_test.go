/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package concurrency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSPSCFIFOPushPop(t *testing.T) {
	f := NewSPSCFIFO[int](4)
	require.Equal(t, 4, f.Cap())
	require.True(t, f.Push(1))
	require.True(t, f.Push(2))
	v, ok := f.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)
	v, ok = f.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)
	_, ok = f.Pop()
	require.False(t, ok)
}

func TestSPSCFIFOFull(t *testing.T) {
	f := NewSPSCFIFO[int](2)
	require.True(t, f.Push(1))
	require.True(t, f.Push(2))
	require.False(t, f.Push(3))
	require.True(t, f.Full())
}

func TestRCUReadUpdate(t *testing.T) {
	r := NewRCU(10)
	require.Equal(t, 10, r.Read())
	r.Update(20)
	require.Equal(t, 20, r.Read())
	r.UpdateFunc(func(cur int) int { return cur + 1 })
	require.Equal(t, 21, r.Read())
}

func TestAtomicRwLockExclusion(t *testing.T) {
	var l AtomicRwLock
	require.True(t, l.TryRLock())
	l.RUnlock()
	l.Lock()
	require.False(t, l.TryRLock())
	l.Unlock()
	require.True(t, l.TryRLock())
	l.RUnlock()
}

func TestDoubleBuffer(t *testing.T) {
	var d DoubleBuffer[int]
	d.Store(1)
	require.Equal(t, 1, d.Load())
	d.Store(2)
	require.Equal(t, 2, d.Load())
}

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

package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmitterSubscribeUnsubscribe(t *testing.T) {
	e := NewEmitter[int]()
	var got []int
	id := e.Subscribe(func(v int) { got = append(got, v) })
	e.Emit(1)
	e.Unsubscribe(id)
	e.Emit(2)
	require.Equal(t, []int{1}, got)
}

func TestFakeAfterFuncFires(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	fired := false
	f.AfterFunc(time.Second, func() { fired = true })
	f.Advance(500 * time.Millisecond)
	require.False(t, fired)
	f.Advance(600 * time.Millisecond)
	require.True(t, fired)
}

func TestFakeTickerFiresRepeatedly(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	count := 0
	f.TickerFunc(time.Second, func() { count++ })
	f.Advance(3500 * time.Millisecond)
	require.Equal(t, 3, count)
}

func TestFakeTimerStopPreventsFiring(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })
	timer.Stop()
	f.Advance(2 * time.Second)
	require.False(t, fired)
}

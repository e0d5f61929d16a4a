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

package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopIdentity(t *testing.T) {
	r := New[int](4)
	r.PushBack(42)
	v, ok := r.PopFront()
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestOverwriteOldestWhenFull(t *testing.T) {
	r := New[int](3)
	r.PushBack(1)
	r.PushBack(2)
	r.PushBack(3)
	overwritten := r.PushBack(4)
	require.True(t, overwritten)
	v, _ := r.PopFront()
	require.Equal(t, 2, v)
}

func TestEmptyPopFails(t *testing.T) {
	r := New[int](2)
	_, ok := r.PopFront()
	require.False(t, ok)
}

func TestFrontBack(t *testing.T) {
	r := New[int](3)
	r.PushBack(1)
	r.PushBack(2)
	front, _ := r.Front()
	back, _ := r.Back()
	require.Equal(t, 1, front)
	require.Equal(t, 2, back)
}

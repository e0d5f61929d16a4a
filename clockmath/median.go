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

// Package clockmath implements the sliding statistics used to reject outlier
// PTP offset samples: a fixed-size window supporting running median and
// standard deviation.
package clockmath

import "sort"

// SlidingMedian keeps the most recent N samples added and computes their
// median on demand.
type SlidingMedian struct {
	size   int
	window []float64
	next   int
	full   bool
	scratch []float64
}

// NewSlidingMedian creates a window holding up to size samples.
func NewSlidingMedian(size int) *SlidingMedian {
	if size < 1 {
		size = 1
	}
	return &SlidingMedian{
		size:   size,
		window: make([]float64, size),
	}
}

// Add pushes a new sample, evicting the oldest once the window is full.
func (m *SlidingMedian) Add(value float64) {
	m.window[m.next] = value
	m.next = (m.next + 1) % m.size
	if m.next == 0 {
		m.full = true
	}
}

// Count returns the number of samples currently held (≤ size).
func (m *SlidingMedian) Count() int {
	if m.full {
		return m.size
	}
	return m.next
}

// Median returns the median of the samples currently in the window, or 0 if
// empty.
func (m *SlidingMedian) Median() float64 {
	n := m.Count()
	if n == 0 {
		return 0
	}
	if cap(m.scratch) < n {
		m.scratch = make([]float64, n)
	}
	m.scratch = m.scratch[:n]
	copy(m.scratch, m.window[:n])
	sort.Float64s(m.scratch)
	if n%2 == 1 {
		return m.scratch[n/2]
	}
	return (m.scratch[n/2-1] + m.scratch[n/2]) / 2.0
}

// IsOutlier reports whether value deviates from the current median by more
// than threshold.
func (m *SlidingMedian) IsOutlier(value, threshold float64) bool {
	diff := value - m.Median()
	if diff < 0 {
		diff = -diff
	}
	return diff > threshold
}

// Reset discards all samples.
func (m *SlidingMedian) Reset() {
	m.next = 0
	m.full = false
}

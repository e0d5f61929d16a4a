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

package clockservo

import (
	"math"

	"github.com/ravennakit/core/clockmath"
)

// OutlierWindowSize is the number of recent offsets the median/outlier
// filter keeps.
const OutlierWindowSize = 51

// OutlierThresholdNs is the absolute deviation from the running median
// beyond which an offset sample is rejected as an outlier, once calibrated.
const OutlierThresholdNs = 1.3 * 1e6 // 1.3 ms

// OffsetEstimator filters raw offsetFromMaster samples before they reach the
// servo: the first CalibrationSamples after a step are accepted
// unconditionally, after which samples deviating from the sliding median by
// more than OutlierThresholdNs are discarded.
type OffsetEstimator struct {
	stats      *clockmath.SlidingStats
	calibrated int

	ignoredOutliers uint64
}

// NewOffsetEstimator creates an estimator in the uncalibrated (post-step)
// state.
func NewOffsetEstimator() *OffsetEstimator {
	return &OffsetEstimator{stats: clockmath.NewSlidingStats(OutlierWindowSize)}
}

// Accept evaluates a new raw offset sample (nanoseconds). It returns false,
// without updating the window, if the sample is rejected as an outlier.
// Samples large enough to force a servo step (see VirtualClock.Adjust) are
// always accepted — Reset must be called once the caller observes the step.
func (e *OffsetEstimator) Accept(offsetNs float64) bool {
	if math.Abs(offsetNs) > StepThreshold {
		return true
	}
	if e.calibrated < CalibrationSamples {
		e.stats.Add(offsetNs)
		e.calibrated++
		return true
	}
	if e.stats.IsOutlierMedian(offsetNs, OutlierThresholdNs) {
		e.ignoredOutliers++
		return false
	}
	e.stats.Add(offsetNs)
	return true
}

// IgnoredOutliers returns the running count of rejected samples.
func (e *OffsetEstimator) IgnoredOutliers() uint64 {
	return e.ignoredOutliers
}

// Reset clears the window and calibration counter, called after a hard step.
func (e *OffsetEstimator) Reset() {
	e.stats.Reset()
	e.calibrated = 0
}

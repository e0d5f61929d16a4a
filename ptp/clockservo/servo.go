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

// Package clockservo implements the virtual clock disciplined by the PTP
// slave: an exponential-approach frequency servo with a bounded slew rate
// and a hard step for large offsets, rather than the PI-loop/ring-buffer
// spike filter used to discipline a real PHC. The math here is this core's
// own; only the State/Servo structuring idiom is carried over.
package clockservo

import (
	"math"

	"github.com/ravennakit/core/clockmath"
)

// StepThreshold is the absolute offset beyond which the servo bypasses
// exponential approach and steps the clock directly.
const StepThreshold = 1 * 1e9 // 1 second, in nanoseconds

// CalibrationSamples is the number of adjustments required after a step
// before the servo starts slewing frequency instead of holding it at 1.0.
const CalibrationSamples = 10

// MaxSlewPerAdjustment bounds how far frequency_ratio may move towards its
// nominal value on a single adjustment, expressed as a relative frequency
// change (1e-3 == 1 millisecond of drift accrued per second of elapsed time).
const MaxSlewPerAdjustment = 1e-3

// State is the calibration phase of the servo.
type State uint8

const (
	// StateUncalibrated means fewer than CalibrationSamples adjustments have
	// been applied since the last step; frequency_ratio is held at 1.0.
	StateUncalibrated State = iota
	// StateCalibrated means the servo is slewing frequency_ratio toward the
	// offset-driven nominal value.
	StateCalibrated
)

// VirtualClock is the software clock described by
// now_ptp = last_sync + (now_local - last_sync) * frequency_ratio + shift.
type VirtualClock struct {
	lastSyncLocal  int64 // ns, local monotonic clock at last adjustment
	shift          int64 // ns
	frequencyRatio float64

	state              State
	calibrationCounter int

	filter *clockmath.LowPassFilter
}

// New creates a virtual clock anchored at localNow with frequency_ratio 1.0
// and no offset, in the uncalibrated state.
func New(localNow int64) *VirtualClock {
	return &VirtualClock{
		lastSyncLocal:  localNow,
		frequencyRatio: 1.0,
		filter:         clockmath.NewLowPassFilter(0.5),
	}
}

// Now returns the current PTP time given the local monotonic time.
func (c *VirtualClock) Now(localNow int64) int64 {
	elapsed := float64(localNow - c.lastSyncLocal)
	return c.lastSyncLocal + int64(elapsed*c.frequencyRatio) + c.shift
}

// State returns the servo's current calibration state.
func (c *VirtualClock) State() State {
	return c.state
}

// FrequencyRatio returns the current frequency multiplier.
func (c *VirtualClock) FrequencyRatio() float64 {
	return c.frequencyRatio
}

// Shift returns the accumulated step/fold offset, in nanoseconds.
func (c *VirtualClock) Shift() int64 {
	return c.shift
}

// Adjust folds a new raw offsetFromMaster sample (nanoseconds, T2-T1-meanPathDelay)
// at local time localNow into the servo. Offsets exceeding StepThreshold in
// magnitude bypass the exponential approach and step the clock immediately.
func (c *VirtualClock) Adjust(offsetNs float64, localNow int64) {
	if math.Abs(offsetNs) > StepThreshold {
		c.step(offsetNs, localNow)
		return
	}

	e := c.filter.Add(offsetNs)
	c.fold(localNow)

	if c.calibrationCounter < CalibrationSamples {
		c.frequencyRatio = 1.0
		c.calibrationCounter++
		if c.calibrationCounter >= CalibrationSamples {
			c.state = StateCalibrated
		}
		return
	}

	nominal := clampFrequency(math.Pow(1.5, -e/1e9), 0.5, 1.5)
	c.frequencyRatio = slew(c.frequencyRatio, nominal, MaxSlewPerAdjustment)
}

// step applies an immediate correction and resets calibration.
func (c *VirtualClock) step(offsetNs float64, localNow int64) {
	c.fold(localNow)
	c.shift -= int64(offsetNs)
	c.filter.Reset()
	c.calibrationCounter = 0
	c.state = StateUncalibrated
	c.frequencyRatio = 1.0
}

// fold moves the anchor to now, carrying into shift the amount by which
// virtual time has run ahead of (or behind) local time since the last
// adjustment, so Now is continuous across the move.
func (c *VirtualClock) fold(localNow int64) {
	elapsed := float64(localNow - c.lastSyncLocal)
	c.shift += int64(elapsed * (c.frequencyRatio - 1))
	c.lastSyncLocal = localNow
}

func clampFrequency(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func slew(current, target, maxStep float64) float64 {
	diff := target - current
	if math.Abs(diff) <= maxStep {
		return target
	}
	if diff > 0 {
		return current + maxStep
	}
	return current - maxStep
}

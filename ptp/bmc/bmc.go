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

// Package bmc implements the Best Master Clock Algorithm comparison used by
// an ordinary-clock multicast-profile port: the full IEEE 1588-2019 §9.3.2
// dataset comparison, including priority1 (the telecom unicast profile skips
// it; this core always runs the full comparison).
package bmc

import ptp "github.com/ravennakit/core/ptp/protocol"

// ComparisonResult is the outcome of comparing two Announce messages' data
// sets.
type ComparisonResult int8

const (
	// ABetterByTopology means A wins on stepsRemoved/port-identity tiebreak.
	ABetterByTopology ComparisonResult = 2
	// ABetter means A wins on dataset comparison.
	ABetter ComparisonResult = 1
	// Identical means the two data sets compare equal.
	Identical ComparisonResult = 0
	// BBetter means B wins on dataset comparison.
	BBetter ComparisonResult = -1
	// BBetterByTopology means B wins on stepsRemoved/port-identity tiebreak.
	BBetterByTopology ComparisonResult = -2
)

// ComparePortIdentity orders two port identities by clock identity then port
// number, ascending.
func ComparePortIdentity(a, b *ptp.PortIdentity) int64 {
	switch {
	case a.ClockIdentity < b.ClockIdentity:
		return -1
	case a.ClockIdentity > b.ClockIdentity:
		return 1
	}
	return int64(a.PortNumber) - int64(b.PortNumber)
}

// compareTopology breaks a tie between two Announces with identical
// grandmaster identity by stepsRemoved, then by the sender's port identity.
// This resolves the Open Question in the distilled spec: IEEE 1588-2019
// §9.3.4's Dataset Comparison Algorithm only reaches stepsRemoved/
// sender-identity when the grandmaster identities already match, which is
// exactly this function's precondition, so following the source's ascending
// sender-identity tiebreak instead of inventing a second dimension is
// faithful to the standard.
func compareTopology(a, b *ptp.Announce) ComparisonResult {
	if a.AnnounceBody.StepsRemoved+1 < b.AnnounceBody.StepsRemoved {
		return ABetter
	}
	if b.AnnounceBody.StepsRemoved+1 < a.AnnounceBody.StepsRemoved {
		return BBetter
	}
	diff := ComparePortIdentity(&a.Header.SourcePortIdentity, &b.Header.SourcePortIdentity)
	if diff < 0 {
		return ABetterByTopology
	}
	if diff > 0 {
		return BBetterByTopology
	}
	return Identical
}

// datasetKey is one ranked field of the §9.3.2 dataset comparison. It
// returns -1 if a ranks better than b on this field alone, 1 if b ranks
// better, or 0 if the two are tied on this field (dispatch falls through to
// the next key).
type datasetKey func(a, b *ptp.AnnounceBody) int

func orderUint8(a, b uint8) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderUint16(a, b uint16) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// datasetKeys ranks the fields §9.3.2 compares once grandmasterIdentity
// differs between the two candidates, highest priority first.
var datasetKeys = []datasetKey{
	func(a, b *ptp.AnnounceBody) int { return orderUint8(a.GrandmasterPriority1, b.GrandmasterPriority1) },
	func(a, b *ptp.AnnounceBody) int {
		return orderUint8(uint8(a.GrandmasterClockQuality.ClockClass), uint8(b.GrandmasterClockQuality.ClockClass))
	},
	func(a, b *ptp.AnnounceBody) int {
		return orderUint8(uint8(a.GrandmasterClockQuality.ClockAccuracy), uint8(b.GrandmasterClockQuality.ClockAccuracy))
	},
	func(a, b *ptp.AnnounceBody) int {
		return orderUint16(a.GrandmasterClockQuality.OffsetScaledLogVariance, b.GrandmasterClockQuality.OffsetScaledLogVariance)
	},
	func(a, b *ptp.AnnounceBody) int { return orderUint8(a.GrandmasterPriority2, b.GrandmasterPriority2) },
}

// Compare runs the full ordinary-clock-slave dataset comparison between two
// Announce messages. Identical grandmasterIdentity means the same
// grandmaster reached this port by two paths, so the comparison skips
// straight to the topology tiebreak; otherwise each datasetKey is tried in
// rank order until one breaks the tie, falling back to grandmasterIdentity
// itself if every ranked field matches.
func Compare(a, b *ptp.Announce) ComparisonResult {
	if a.AnnounceBody == b.AnnounceBody {
		return Identical
	}

	if a.AnnounceBody.GrandmasterIdentity == b.AnnounceBody.GrandmasterIdentity {
		return compareTopology(a, b)
	}

	for _, key := range datasetKeys {
		switch key(&a.AnnounceBody, &b.AnnounceBody) {
		case -1:
			return ABetter
		case 1:
			return BBetter
		}
	}

	if a.AnnounceBody.GrandmasterIdentity < b.AnnounceBody.GrandmasterIdentity {
		return ABetter
	}
	return BBetter
}

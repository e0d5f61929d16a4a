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

package rtpreceiver

import "github.com/ravennakit/core/clockmath"

// PacketStats accumulates the wrap-aware arrival counters published per
// reader: how many packets landed in sequence order, out of order, were
// dropped for arriving too old for the reorder window, or were discarded as
// redundant duplicates.
type PacketStats struct {
	tracker clockmath.SequenceTracker

	Received   uint64
	OutOfOrder uint64
	TooOld     uint64
	Duplicates uint64
	Dropped    uint64
}

// RecordSequence classifies one arriving RTP sequence number against the
// tracker's high-water mark. An advance of exactly 1 is the common case; a
// non-positive advance means the packet arrived out of order relative to
// the stream's sequence numbers (distinct from TooOld, which is a
// timestamp-domain judgement made by the reorder buffer).
func (s *PacketStats) RecordSequence(seq uint16) {
	s.Received++
	advanced := s.tracker.Update(clockmath.WrappingUint16(seq))
	if advanced <= 0 {
		s.OutOfOrder++
	}
}

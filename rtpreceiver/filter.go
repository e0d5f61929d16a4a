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

import (
	"net"

	"github.com/ravennakit/core/sdp"
)

// FilterEvaluator evaluates an SDP source-filter attribute against an
// arriving datagram's source address. A nil *sdp.SourceFilter accepts
// everything - the absence of the attribute means "no filtering".
type FilterEvaluator struct {
	filter *sdp.SourceFilter
}

// NewFilterEvaluator builds an evaluator from a parsed source-filter, or an
// accept-all evaluator if f is nil.
func NewFilterEvaluator(f *sdp.SourceFilter) FilterEvaluator {
	return FilterEvaluator{filter: f}
}

// Accept reports whether a datagram from src should be admitted.
func (e FilterEvaluator) Accept(src net.IP) bool {
	if e.filter == nil {
		return true
	}
	matched := false
	for _, s := range e.filter.Sources {
		ip := net.ParseIP(s)
		if ip != nil && ip.Equal(src) {
			matched = true
			break
		}
	}
	if e.filter.Mode == sdp.SourceFilterExclude {
		return !matched
	}
	return matched
}

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

package ptp

import (
	"sync"

	"github.com/ravennakit/core/ptp/bmc"
	wire "github.com/ravennakit/core/ptp/protocol"
)

// Instance aggregates one or more Ports belonging to the same PTP Instance
// and runs the instance-wide Best Master Clock Algorithm decision across
// them. This is a deliberate simplification of IEEE 1588-2019's full
// §9.3.3 state-decision table: because every port here is slave-only, the
// only two outcomes a port can reach are SLAVE (its Erbest is the
// instance's Ebest, Ebest qualified) and PASSIVE (a qualified foreign
// master exists but lost the comparison) - MASTER is never selected.
type Instance struct {
	mu    sync.Mutex
	ports []*Port
}

// NewInstance creates an empty Instance. Ports are added with AddPort.
func NewInstance() *Instance {
	return &Instance{}
}

// AddPort registers a port with the instance. The port must already be
// constructed via NewPort.
func (in *Instance) AddPort(p *Port) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.ports = append(in.ports, p)
}

// Ports returns the registered ports, in registration order.
func (in *Instance) Ports() []*Port {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]*Port, len(in.ports))
	copy(out, in.ports)
	return out
}

// RunBMCA recomputes Erbest for every port, picks the instance-wide Ebest,
// and drives each port to SLAVE (if it supplied Ebest) or PASSIVE (if it has
// a qualified foreign master that isn't Ebest). Ports with no qualified
// foreign master are left alone.
func (in *Instance) RunBMCA() {
	in.mu.Lock()
	ports := make([]*Port, len(in.ports))
	copy(ports, in.ports)
	in.mu.Unlock()

	var ebest *wire.Announce
	var ebestPort *Port
	for _, p := range ports {
		cand := p.Erbest()
		if cand == nil {
			continue
		}
		if ebest == nil || bmc.Compare(cand, ebest) == bmc.ABetter || bmc.Compare(cand, ebest) == bmc.ABetterByTopology {
			ebest = cand
			ebestPort = p
		}
	}
	if ebest == nil {
		for _, p := range ports {
			p.foreign.ClearBest()
		}
		return
	}
	for _, p := range ports {
		if p == ebestPort {
			p.foreign.SetBest(ebest.Header.SourcePortIdentity)
			p.SetSlave(ebest)
			continue
		}
		p.foreign.ClearBest()
		if p.Erbest() != nil {
			p.SetPassive()
		}
	}
}

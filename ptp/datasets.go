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

// Package ptp implements the ordinary-clock multicast slave: the port state
// machine, the Best Master Clock Algorithm tying ports to the foreign-master
// list, the slave delay-request loop and the virtual clock servo. The wire
// codec lives in the protocol subpackage, dataset comparison in bmc,
// foreign-master bookkeeping in foreignmaster and the servo in clockservo —
// this package wires them together the way facebook-time's sptp client
// wires protocol, bmc and its own servo.
package ptp

import wire "github.com/ravennakit/core/ptp/protocol"

// ParentDataSet holds the best-master information this instance has
// selected, refreshed on every BMCA run.
type ParentDataSet struct {
	GrandmasterIdentity     wire.ClockIdentity
	GrandmasterClockQuality wire.ClockQuality
	GrandmasterPriority1    uint8
	GrandmasterPriority2    uint8
	ParentPortIdentity      wire.PortIdentity
}

// CurrentDataSet holds the live offset/delay estimate for the slave port.
type CurrentDataSet struct {
	StepsRemoved     uint16
	OffsetFromMaster int64 // nanoseconds, signed
	MeanPathDelay    int64 // nanoseconds, signed
}

// TimePropertiesDataSet holds the grandmaster-advertised time properties
// most recently received via Announce.
type TimePropertiesDataSet struct {
	CurrentUTCOffset     int16
	Leap59               bool
	Leap61               bool
	TimeTraceable        bool
	FrequencyTraceable   bool
	PTPTimescale         bool
	TimeSource           wire.TimeSource
}

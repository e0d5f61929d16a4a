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
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ravennakit/core/ptp/bmc"
	"github.com/ravennakit/core/ptp/clockservo"
	"github.com/ravennakit/core/ptp/foreignmaster"
	wire "github.com/ravennakit/core/ptp/protocol"
)

// Transport decouples a Port's send path from a concrete socket so the port
// state machine can be driven by a fake in tests. SendEvent must return the
// local send timestamp (T3 for Delay_Req) captured as close to the wire as
// the implementation can manage.
type Transport interface {
	SendEvent(b []byte) (sendTimestamp time.Time, err error)
	SendGeneral(b []byte) error
}

// Config holds the static, never-changing-at-runtime identity of a Port.
type Config struct {
	ClockIdentity        wire.ClockIdentity
	PortNumber           uint16
	DomainNumber         uint8
	Priority1            uint8
	Priority2            uint8
	ClockQuality         wire.ClockQuality
	LogAnnounceInterval  wire.LogInterval
	LogSyncInterval      wire.LogInterval
	AnnounceReceiptTimeo uint8 // in units of announce intervals, IEEE default 3
}

// pendingSync tracks a Sync awaiting its Follow_Up (two-step) or already
// carrying its own origin timestamp (one-step).
type pendingSync struct {
	sequenceID uint16
	t1         time.Time // origin/precise-origin timestamp from master
	t2         time.Time // local receipt time
	twoStep    bool
	haveT1     bool
}

// pendingDelayReq tracks an outstanding Delay_Req awaiting its Delay_Resp.
type pendingDelayReq struct {
	sequenceID uint16
	t3         time.Time // local send time
}

// Port implements one ordinary-clock slave-capable PTP port: it ingests
// Announce/Sync/Follow_Up/Delay_Resp, feeds the foreign-master list and BMC,
// and drives the virtual clock servo from the Sync/Delay_Req exchange.
// It never drives itself into PortStateMaster - ownership of that decision
// belongs to Instance, and an ordinary-clock slave-only port only ever
// becomes SLAVE or PASSIVE.
type Port struct {
	mu sync.Mutex

	cfg       Config
	transport Transport

	state PortState

	foreign *foreignmaster.List
	clock   *clockservo.VirtualClock
	offsets *clockservo.OffsetEstimator

	parent  ParentDataSet
	current CurrentDataSet
	times   TimePropertiesDataSet

	sync      pendingSync
	delayReq  pendingDelayReq
	haveDelay bool

	delayReqSeq uint16

	log *logrus.Entry
}

// PortState mirrors protocol.PortState but is redeclared here so callers of
// this package don't need to import protocol just to inspect it.
type PortState = wire.PortState

// NewPort creates a port in the INITIALIZING state. Call Start to move it to
// LISTENING once a transport is attached.
func NewPort(cfg Config, transport Transport, localNow time.Time) *Port {
	return &Port{
		cfg:       cfg,
		transport: transport,
		state:     wire.PortStateInitializing,
		foreign:   foreignmaster.NewList(),
		clock:     clockservo.New(localNow.UnixNano()),
		offsets:   clockservo.NewOffsetEstimator(),
		log: logrus.WithFields(logrus.Fields{
			"component":    "ptp.port",
			"port_number":  cfg.PortNumber,
			"clock_identity": cfg.ClockIdentity.String(),
		}),
	}
}

// Start transitions an INITIALIZING port to LISTENING.
func (p *Port) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = wire.PortStateListening
}

// State returns the port's current state.
func (p *Port) State() PortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetSlave moves the port into the SLAVE/UNCALIBRATED path once Instance's
// BMCA run has decided this port's Erbest is the instance's Ebest.
func (p *Port) SetSlave(best *wire.Announce) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != wire.PortStateSlave && p.state != wire.PortStateUncalibrated {
		p.log.WithField("grandmaster", best.GrandmasterIdentity.String()).Info("port entering UNCALIBRATED toward new grandmaster")
		p.state = wire.PortStateUncalibrated
	}
	p.parent = ParentDataSet{
		GrandmasterIdentity:     best.GrandmasterIdentity,
		GrandmasterClockQuality: best.GrandmasterClockQuality,
		GrandmasterPriority1:    best.GrandmasterPriority1,
		GrandmasterPriority2:    best.GrandmasterPriority2,
		ParentPortIdentity:      best.Header.SourcePortIdentity,
	}
	p.current.StepsRemoved = best.StepsRemoved + 1
	p.times = TimePropertiesDataSet{
		CurrentUTCOffset:   best.CurrentUTCOffset,
		Leap59:             best.Header.FlagField&wire.FlagLeap59 != 0,
		Leap61:             best.Header.FlagField&wire.FlagLeap61 != 0,
		TimeTraceable:      best.Header.FlagField&wire.FlagTimeTraceable != 0,
		FrequencyTraceable: best.Header.FlagField&wire.FlagFrequencyTraceable != 0,
		PTPTimescale:       best.Header.FlagField&wire.FlagPTPTimescale != 0,
		TimeSource:         best.TimeSource,
	}
}

// SetPassive moves the port to PASSIVE: it has a qualified foreign master
// but isn't the instance-wide best, per the design note that an ordinary
// slave-only clock never advertises itself as MASTER.
func (p *Port) SetPassive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == wire.PortStateSlave || p.state == wire.PortStateUncalibrated || p.state == wire.PortStateListening {
		p.log.Info("port entering PASSIVE, not instance-best")
		p.state = wire.PortStatePassive
	}
}

// Erbest returns this port's best-qualified foreign-master Announce, or nil
// if none is qualified yet.
func (p *Port) Erbest() *wire.Announce {
	p.mu.Lock()
	defer p.mu.Unlock()
	var best *foreignmaster.Record
	for _, rec := range p.foreign.Qualified() {
		if best == nil || bmc.Compare(rec.MostRecent, best.MostRecent) == bmc.ABetter {
			best = rec
		}
	}
	if best == nil {
		return nil
	}
	return best.MostRecent
}

// shouldDropMessage implements the domain/profile/loopback filtering rule:
// drop messages from a different domain, a different major SDO, from
// ourselves, or carrying alternateMaster.
func (p *Port) shouldDropMessage(h *wire.Header) bool {
	if h.DomainNumber != p.cfg.DomainNumber {
		return true
	}
	if h.SdoIDAndMsgType>>4 != 0 {
		return true
	}
	if h.SourcePortIdentity.ClockIdentity == p.cfg.ClockIdentity {
		return true
	}
	if h.FlagField&wire.FlagAlternateMaster != 0 {
		return true
	}
	return false
}

// HandleAnnounce feeds an Announce into the foreign-master list. The caller
// (Instance) is responsible for re-running BMCA afterward.
func (p *Port) HandleAnnounce(a *wire.Announce) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldDropMessage(&a.Header) {
		return
	}
	p.foreign.Update(a)
}

// Tick ages the foreign-master window; call this once per announce interval.
func (p *Port) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.foreign.Tick()
}

// HandleSync captures T2 (local receipt) and, for a one-step Sync, T1 from
// the origin timestamp directly; a two-step Sync waits for the matching
// Follow_Up before the offset can be computed.
func (p *Port) HandleSync(s *wire.SyncDelayReq, receivedAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldDropMessage(&s.Header) {
		return
	}
	twoStep := s.Header.FlagField&wire.FlagTwoStep != 0
	p.sync = pendingSync{
		sequenceID: s.Header.SequenceID,
		t2:         receivedAt,
		twoStep:    twoStep,
	}
	if !twoStep {
		p.sync.t1 = s.OriginTimestamp.Time()
		p.sync.haveT1 = true
	}
}

// HandleFollowUp completes a two-step Sync exchange by supplying T1.
func (p *Port) HandleFollowUp(f *wire.FollowUp) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldDropMessage(&f.Header) {
		return
	}
	if !p.sync.twoStep || f.Header.SequenceID != p.sync.sequenceID {
		return
	}
	p.sync.t1 = f.PreciseOriginTimestamp.Time()
	p.sync.haveT1 = true
}

// SendDelayReq transmits a Delay_Req, capturing T3 from the transport's
// reported send timestamp.
func (p *Port) SendDelayReq() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delayReqSeq++
	req := &wire.SyncDelayReq{
		Header: wire.Header{
			SdoIDAndMsgType:    wire.NewSdoIDAndMsgType(wire.MessageDelayReq, 0),
			Version:            wire.Version,
			DomainNumber:       p.cfg.DomainNumber,
			SourcePortIdentity: wire.PortIdentity{ClockIdentity: p.cfg.ClockIdentity, PortNumber: p.cfg.PortNumber},
			SequenceID:         p.delayReqSeq,
			LogMessageInterval: wire.MgmtLogMessageInterval,
		},
	}
	b, err := req.MarshalBinary()
	if err != nil {
		return fmt.Errorf("ptp: marshal delay_req: %w", err)
	}
	t3, err := p.transport.SendEvent(b)
	if err != nil {
		return fmt.Errorf("ptp: send delay_req: %w", err)
	}
	p.delayReq = pendingDelayReq{sequenceID: p.delayReqSeq, t3: t3}
	p.haveDelay = true
	return nil
}

// HandleDelayResp captures T4 and, combined with the pending Delay_Req's T3,
// completes the path-delay/offset computation.
func (p *Port) HandleDelayResp(r *wire.DelayResp) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldDropMessage(&r.Header) {
		return
	}
	if r.RequestingPortIdentity.ClockIdentity != p.cfg.ClockIdentity ||
		r.RequestingPortIdentity.PortNumber != p.cfg.PortNumber {
		return
	}
	if !p.haveDelay || r.Header.SequenceID != p.delayReq.sequenceID {
		return
	}
	t4 := r.ReceiveTimestamp.Time()
	t3 := p.delayReq.t3
	p.haveDelay = false

	if !p.sync.haveT1 {
		return
	}
	t1 := p.sync.t1
	t2 := p.sync.t2

	// meanPathDelay = ((T2-T1) + (T4-T3)) / 2
	meanPathDelay := (t2.Sub(t1) + t4.Sub(t3)) / 2
	offsetFromMaster := t2.Sub(t1) - meanPathDelay

	p.current.MeanPathDelay = int64(meanPathDelay)
	p.current.OffsetFromMaster = int64(offsetFromMaster)

	if p.offsets.Accept(float64(offsetFromMaster)) {
		stepped := math.Abs(float64(offsetFromMaster)) > clockservo.StepThreshold
		p.clock.Adjust(float64(offsetFromMaster), t2.UnixNano())
		if stepped {
			// Adjust just stepped the clock instead of slewing it: the
			// calibration window is stale, so the next CalibrationSamples
			// samples must restart unconditionally-accepted too.
			p.offsets.Reset()
		}
		if p.clock.State() == clockservo.StateCalibrated && p.state == wire.PortStateUncalibrated {
			p.log.Info("port calibrated, entering SLAVE")
			p.state = wire.PortStateSlave
		}
	}
}

// CurrentDataSet returns a snapshot of the live offset/delay estimate.
func (p *Port) CurrentDataSet() CurrentDataSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// ParentDataSet returns a snapshot of the selected parent/grandmaster.
func (p *Port) ParentDataSet() ParentDataSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parent
}

// TimePropertiesDataSet returns a snapshot of the grandmaster-advertised
// time properties most recently captured by SetSlave.
func (p *Port) TimePropertiesDataSet() TimePropertiesDataSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.times
}

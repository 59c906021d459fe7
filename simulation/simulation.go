// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package simulation runs a radio driver under test (DUT) against an auto-acking peer driver on
// a simulated air medium, and routes the events of both to the trace file, the MQTT bridge and
// an output handler.
package simulation

import (
	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/bridge"
	"github.com/openthread/ot-nrf802154/energy"
	"github.com/openthread/ot-nrf802154/event"
	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/pcap"
	"github.com/openthread/ot-nrf802154/progctx"
	"github.com/openthread/ot-nrf802154/radio"
	"github.com/openthread/ot-nrf802154/radiosim"
	"github.com/openthread/ot-nrf802154/store"
	"github.com/openthread/ot-nrf802154/types"
)

const (
	DutId  types.RadioId = 1
	PeerId types.RadioId = 2

	// AckWaitUs is how long a radio waits for an ACK before its reception is forced off,
	// macAckWaitDuration of the 2.4 GHz O-QPSK PHY.
	AckWaitUs uint64 = 54 * types.TimeUsPerSymbol

	stepUs uint64 = 100
)

type EventHandler func(ev *event.Event)

type member struct {
	d       *radio.Driver
	q       *event.Queue
	rxAckAt uint64
	inRxAck bool
}

type Simulation struct {
	ctx     *progctx.ProgCtx
	cfg     *Config
	medium  *radiosim.Medium
	dut     member
	peer    member
	energy  *energy.EnergyAnalyser
	pcap    *pcap.Writer
	trace   *event.TraceWriter
	store   *store.BoltStore
	bridge  *bridge.Bridge
	onEvent EventHandler
	peerSeq uint8
	stats   map[event.EventType]int
	closed  bool
}

func NewSimulation(ctx *progctx.ProgCtx, cfg *Config) (*Simulation, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		ctx:    ctx,
		cfg:    cfg,
		medium: radiosim.NewMedium(cfg.Medium),
		energy: energy.NewEnergyAnalyser(),
		stats:  map[event.EventType]int{},
	}
	s.onEvent = func(ev *event.Event) {
		logger.Debugf("%v", ev)
	}
	s.medium.SetEnergyAnalyser(s.energy)

	if err := s.openOutputs(); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.dut = s.newMember(DutId, cfg.Radio, cfg.DutShortAddr, cfg.DutExtAddr)
	s.peer = s.newMember(PeerId, radio.DefaultConfig(), cfg.PeerShortAddr, cfg.PeerExtAddr)

	if err := s.restore(); err != nil {
		_ = s.Close()
		return nil, err
	}

	if err := s.peer.d.Receive(cfg.Channel, false); err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "starting peer reception")
	}

	if ctx != nil {
		if err := ctx.Defer(func() { _ = s.Close() }); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Simulation) openOutputs() error {
	var err error
	if s.cfg.PcapFile != "" {
		if s.pcap, err = pcap.NewFile(s.cfg.PcapFile, pcap.ParseFrameTypeStr(s.cfg.PcapType)); err != nil {
			return err
		}
		s.medium.SetPcap(s.pcap)
	}
	if s.cfg.TraceFile != "" {
		if s.trace, err = event.NewTraceFile(s.cfg.TraceFile); err != nil {
			return err
		}
	}
	if s.cfg.StoreFile != "" {
		if s.store, err = store.NewBoltStore(s.cfg.StoreFile); err != nil {
			return err
		}
	}
	if s.cfg.Mqtt.Broker != "" {
		if s.bridge, err = bridge.New(s.cfg.Mqtt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) newMember(id types.RadioId, cfg radio.Config, shortAddr uint16, extAddr uint64) member {
	q := event.NewQueue(id, s.cfg.EventQueue, s.medium.Now)
	d := radio.NewDriver(id, s.medium.AddRadio(id), q, cfg)
	q.Attach(d)

	pib := d.Pib()
	pib.Channel = s.cfg.Channel
	pib.PanId = s.cfg.PanId
	pib.ShortAddr = shortAddr
	pib.ExtAddr = extAddr
	logger.PanicIfError(d.SetPib(pib))
	return member{d: d, q: q}
}

// restore loads the stored DUT configuration, if any.
func (s *Simulation) restore() error {
	if s.store == nil {
		return nil
	}
	st, err := s.store.LoadRadio(DutId)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	if err := store.Restore(s.dut.d, st); err != nil {
		logger.Warnf("restoring radio %d: %v", DutId, err)
	}
	logger.Infof("radio %d configuration restored from %s", DutId, s.cfg.StoreFile)
	return nil
}

func (s *Simulation) Config() *Config {
	return s.cfg
}

// Dut returns the driver under test.
func (s *Simulation) Dut() *radio.Driver {
	return s.dut.d
}

func (s *Simulation) Peer() *radio.Driver {
	return s.peer.d
}

// Radios returns the driver under test and the peer, in that order.
func (s *Simulation) Radios() []*radio.Driver {
	return []*radio.Driver{s.dut.d, s.peer.d}
}

func (s *Simulation) Medium() *radiosim.Medium {
	return s.medium
}

func (s *Simulation) EnergyAnalyser() *energy.EnergyAnalyser {
	return s.energy
}

// Now returns the simulated time in microseconds.
func (s *Simulation) Now() uint64 {
	return s.medium.Now()
}

// SetEventHandler sets the function every event of both radios is passed to.
func (s *Simulation) SetEventHandler(h EventHandler) {
	if h == nil {
		h = func(*event.Event) {}
	}
	s.onEvent = h
}

// Stats returns the number of events seen per event type.
func (s *Simulation) Stats() map[string]int {
	stats := make(map[string]int, len(s.stats))
	for tp, n := range s.stats {
		stats[event.TypeName(tp)] = n
	}
	return stats
}

// Dropped returns the number of events lost to a full queue.
func (s *Simulation) Dropped() uint64 {
	return s.dut.q.Dropped() + s.peer.q.Dropped()
}

// Go advances the simulation by us microseconds. It stops early with the context error when the
// program context is cancelled.
func (s *Simulation) Go(us uint64) error {
	end := s.medium.Now() + us
	for {
		if s.ctx != nil && s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		now := s.medium.Now()
		if now >= end {
			break
		}
		step := end - now
		if step > stepUs {
			step = stepUs
		}
		s.medium.Run(step)
		s.checkAckWait(&s.dut)
		s.checkAckWait(&s.peer)
		s.dispatch()
	}
	s.energy.StoreNetworkEnergy(s.medium.Now())
	return nil
}

// checkAckWait forces a radio out of RxAck once no ACK arrived within AckWaitUs.
func (s *Simulation) checkAckWait(m *member) {
	now := s.medium.Now()
	if m.d.State() != types.StateRxAck {
		m.inRxAck = false
		return
	}
	if !m.inRxAck {
		m.inRxAck = true
		m.rxAckAt = now
		return
	}
	if now-m.rxAckAt < AckWaitUs {
		return
	}
	m.inRxAck = false
	logger.Debugf("radio %d: no ACK within %d us", m.d.Id(), AckWaitUs)
	if err := m.d.Receive(m.d.Pib().Channel, true); err != nil {
		logger.Warnf("radio %d: ending ACK wait: %v", m.d.Id(), err)
	}
}

// Flush passes on events that are queued but not yet dispatched.
func (s *Simulation) Flush() {
	s.dispatch()
}

func (s *Simulation) dispatch() {
	for _, m := range []*member{&s.dut, &s.peer} {
		for _, ev := range m.q.Drain() {
			s.record(&ev)
		}
	}
}

func (s *Simulation) record(ev *event.Event) {
	s.stats[ev.Type]++
	if s.trace != nil {
		if err := s.trace.Write(ev); err != nil {
			logger.Warnf("trace: %v", err)
		}
	}
	if s.bridge != nil {
		if err := s.bridge.Publish(ev); err != nil {
			logger.Warnf("%v", err)
		}
	}
	s.onEvent(ev)
}

// PeerTransmit sends a data frame from the peer to dst, on the peer's channel and after a CCA.
func (s *Simulation) PeerTransmit(dst uint16, ackRequest bool, payload []byte) error {
	pib := s.peer.d.Pib()
	s.peerSeq++
	frame, err := DataFrame(s.peerSeq, pib.PanId, dst, pib.ShortAddr, ackRequest, payload)
	if err != nil {
		return err
	}
	return s.peer.d.Transmit(frame, pib.Channel, pib.TxPower, true)
}

// Inject puts a MAC frame, given without FCS, on air on ch.
func (s *Simulation) Inject(ch types.Channel, mac []byte, crcOk bool) error {
	frame, err := PhrFrame(mac)
	if err != nil {
		return err
	}
	return s.medium.Inject(ch, frame, crcOk)
}

// Save stores the DUT configuration. It is a no-op without a store.
func (s *Simulation) Save() error {
	if s.store == nil {
		return nil
	}
	return s.store.SaveRadio(DutId, store.Snapshot(s.dut.d))
}

// SaveEnergy writes the energy report files to the configured directory.
func (s *Simulation) SaveEnergy(name string) error {
	return s.energy.SaveEnergyDataToFile(s.cfg.EnergyDir, name, s.medium.Now())
}

// Close saves the DUT configuration and closes all outputs. Only the first call has an effect.
func (s *Simulation) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.dut.d != nil {
		s.dispatch()
		keep(s.Save())
	}
	if s.trace != nil {
		keep(s.trace.Close())
	}
	if s.pcap != nil {
		s.medium.SetPcap(nil)
		keep(s.pcap.Close())
	}
	if s.store != nil {
		keep(s.store.Close())
	}
	if s.bridge != nil {
		s.bridge.Close()
	}
	s.trace, s.pcap, s.store, s.bridge = nil, nil, nil, nil
	return firstErr
}

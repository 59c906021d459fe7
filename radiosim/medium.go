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

// Package radiosim simulates nRF RADIO peripherals sharing one ideal 2.4 GHz air medium, driven by
// a discrete-event clock in microseconds.
package radiosim

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/dissectpkt/wpan"
	"github.com/openthread/ot-nrf802154/energy"
	"github.com/openthread/ot-nrf802154/hal"
	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/pcap"
	"github.com/openthread/ot-nrf802154/prng"
	"github.com/openthread/ot-nrf802154/types"
)

var ErrInvalidFrame = errors.New("invalid frame")

// maxIdleEvents bounds RunUntilIdle, so that a radio restarting itself forever cannot hang a caller.
const maxIdleEvents = 1 << 20

type Config struct {
	RssiDbm        int8    `yaml:"rssi"`             // RSSI of every received frame
	RssiJitterDb   int     `yaml:"rssi_jitter"`      // uniform jitter added to RssiDbm
	FrameErrorRate float64 `yaml:"frame_error_rate"` // probability of a CRC error per received frame
	TxEnergySample uint8   `yaml:"tx_energy_sample"` // ED sample while a frame or carrier is on air
	IrqLatencyUs   uint64  `yaml:"irq_latency"`      // default IRQ latency of new radios
}

func DefaultConfig() Config {
	return Config{
		RssiDbm:        -60,
		TxEnergySample: 0x40,
	}
}

// airFrame is one frame, or an unmodulated carrier, occupying a channel.
type airFrame struct {
	src     *Radio // nil for injected frames
	channel types.Channel
	data    []byte // PHR-prefixed, FCS set
	start   uint64
	end     uint64
	crcBad  bool
}

type Medium struct {
	mu     sync.Mutex
	cfg    Config
	now    uint64
	sched  *scheduler
	radios map[int]*Radio
	order  []*Radio
	onAir  []*airFrame
	busy   map[types.Channel]bool
	level  map[types.Channel]uint8
	pcap   *pcap.Writer
	energy *energy.EnergyAnalyser
}

func NewMedium(cfg Config) *Medium {
	return &Medium{
		cfg:    cfg,
		sched:  newScheduler(),
		radios: make(map[int]*Radio),
		busy:   make(map[types.Channel]bool),
		level:  make(map[types.Channel]uint8),
	}
}

// SetPcap captures every frame put on air into w.
func (m *Medium) SetPcap(w *pcap.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pcap = w
}

// SetEnergyAnalyser feeds hardware activity changes of all radios into ea.
func (m *Medium) SetEnergyAnalyser(ea *energy.EnergyAnalyser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.energy = ea
	for _, r := range m.order {
		ea.AddRadio(r.id, m.now)
		ea.SetRadioState(r.id, r.activity(), m.now)
	}
}

// AddRadio creates a peripheral attached to the medium.
func (m *Medium) AddRadio(id int) *Radio {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.AssertTrue(m.radios[id] == nil, "radio %d exists", id)
	r := newRadio(m, id, prng.NewSource(prng.NewRadioRandomSeed()))
	r.irqLatency = m.cfg.IrqLatencyUs
	m.radios[id] = r
	m.order = append(m.order, r)
	if m.energy != nil {
		m.energy.AddRadio(id, m.now)
	}
	return r
}

func (m *Medium) Radio(id int) *Radio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.radios[id]
}

func (m *Medium) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// SetChannelBusy forces CCA on ch to report busy, whatever the mode.
func (m *Medium) SetChannelBusy(ch types.Channel, busy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy[ch] = busy
}

// SetEnergyLevel sets the background ED sample of ch.
func (m *Medium) SetEnergyLevel(ch types.Channel, sample uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level[ch] = sample
	for _, r := range m.order {
		if r.edActive && r.channel() == ch && sample > r.edMax {
			r.edMax = sample
		}
	}
}

// Inject puts a PHR-prefixed frame from a virtual peer on air, starting now. The FCS is computed
// unless crcOk is false, in which case it is corrupted.
func (m *Medium) Inject(ch types.Channel, psdu []byte, crcOk bool) error {
	if !types.ValidChannel(ch) {
		return errors.Errorf("invalid channel %d", ch)
	}
	if len(psdu) < 1 || int(psdu[0]) < types.FcsSize || int(psdu[0]) > types.MaxPsduSize || len(psdu) < int(psdu[0])+1 {
		return errors.Wrapf(ErrInvalidFrame, "length %d", len(psdu))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data := append([]byte(nil), psdu[:int(psdu[0])+1]...)
	wpan.SetFcs(data)
	a := &airFrame{
		channel: ch,
		data:    data,
		start:   m.now,
		end:     m.now + types.FrameDurationUs(int(data[0])),
		crcBad:  !crcOk,
	}
	m.startFrame(a)
	m.schedule(a.end, nil, func() {
		m.endFrame(a)
	})
	return nil
}

func (m *Medium) schedule(ts uint64, r *Radio, fn func()) {
	m.sched.add(&simEvent{Timestamp: ts, radio: r, fn: fn})
}

func (m *Medium) scheduleIrq(ts uint64, r *Radio) {
	m.sched.add(&simEvent{Timestamp: ts, radio: r, irq: true})
}

// startFrame puts a on air and starts reception on every listening radio of its channel.
func (m *Medium) startFrame(a *airFrame) {
	m.onAir = append(m.onAir, a)
	if m.pcap != nil && len(a.data) > 1 {
		err := m.pcap.AppendFrame(pcap.Frame{
			Timestamp: a.start,
			Data:      a.data[1:],
			Channel:   a.channel,
			Rssi:      float32(m.cfg.RssiDbm),
		})
		if err != nil {
			logger.Warnf("pcap write failed: %v", err)
		}
	}

	for _, r := range m.order {
		if r == a.src || r.channel() != a.channel {
			continue
		}
		if r.edActive && m.cfg.TxEnergySample > r.edMax {
			r.edMax = m.cfg.TxEnergySample
		}
		if r.state == hal.HwRx && r.rx == nil && len(a.data) > 1 {
			r.beginReception(a)
		}
	}
}

// endFrame takes a off air. Receivers of a frame cut short see it end with a CRC error.
func (m *Medium) endFrame(a *airFrame) {
	for i, f := range m.onAir {
		if f == a {
			m.onAir = append(m.onAir[:i], m.onAir[i+1:]...)
			break
		}
	}
	if m.now < a.end {
		for _, r := range m.order {
			if r.rx != nil && r.rx.air == a {
				r.endReception(r.rx, true)
			}
		}
	}
}

// carrierOn reports whether another transmitter occupies ch.
func (m *Medium) carrierOn(r *Radio, ch types.Channel) bool {
	for _, a := range m.onAir {
		if a.src != r && a.channel == ch {
			return true
		}
	}
	for _, o := range m.order {
		if o != r && o.state == hal.HwTxIdle && o.channel() == ch {
			return true
		}
	}
	return false
}

func (m *Medium) energyAt(r *Radio, ch types.Channel) uint8 {
	e := m.level[ch]
	if m.carrierOn(r, ch) && m.cfg.TxEnergySample > e {
		e = m.cfg.TxEnergySample
	}
	return e
}

func (m *Medium) ccaBusy(r *Radio) bool {
	ch := r.channel()
	if m.busy[ch] {
		return true
	}
	carrier := m.carrierOn(r, ch)
	ed := m.energyAt(r, ch) > r.cca.EdThreshold
	switch r.cca.Mode {
	case hal.CcaModeCarrier:
		return carrier
	case hal.CcaModeCarrierAndEd:
		return carrier && ed
	case hal.CcaModeCarrierOrEd:
		return carrier || ed
	default:
		return ed
	}
}

func (m *Medium) rssiDbm(r *Radio) int8 {
	rssi := int(m.cfg.RssiDbm) + r.rng.Jitter(m.cfg.RssiJitterDb)
	if rssi > 0 {
		rssi = 0
	}
	if rssi < -127 {
		rssi = -127
	}
	return int8(rssi)
}

func (m *Medium) activityChanged(r *Radio) {
	if m.energy != nil {
		m.energy.SetRadioState(r.id, r.activity(), m.now)
	}
}

// Step processes the next scheduled event. It returns false if there is none.
func (m *Medium) Step() bool {
	return m.step(types.Ever)
}

func (m *Medium) step(until uint64) bool {
	m.mu.Lock()
	if m.sched.len() == 0 || m.sched.nextTimestamp() > until {
		m.mu.Unlock()
		return false
	}
	e := m.sched.pop()
	m.now = e.Timestamp
	if !e.irq {
		e.fn()
		m.mu.Unlock()
		return true
	}

	r := e.radio
	r.irqPending = false
	handler := r.irqHandler
	m.mu.Unlock()

	// the handler runs outside the medium lock, as it calls back into the peripheral.
	if handler != nil {
		handler()
	}

	m.mu.Lock()
	if r.irqAsserted() {
		r.requestIrq()
	}
	m.mu.Unlock()
	return true
}

// Run advances the clock by us microseconds, processing all events due until then.
func (m *Medium) Run(us uint64) {
	m.mu.Lock()
	until := m.now + us
	m.mu.Unlock()

	for m.step(until) {
	}

	m.mu.Lock()
	if m.now < until {
		m.now = until
	}
	m.mu.Unlock()
}

// RunUntilIdle processes events until none is left and returns the number processed.
func (m *Medium) RunUntilIdle() int {
	n := 0
	for m.Step() {
		n++
		if n >= maxIdleEvents {
			logger.Warnf("radiosim: still busy after %d events", n)
			break
		}
	}
	return n
}

// Pending returns the number of scheduled events.
func (m *Medium) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sched.len()
}

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

package radiosim

import (
	"github.com/openthread/ot-nrf802154/dissectpkt/wpan"
	"github.com/openthread/ot-nrf802154/hal"
	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/prng"
	"github.com/openthread/ot-nrf802154/types"
)

const (
	resetFrequency = 2    // FREQUENCY register reset value
	usPerBit       = 4    // 250 kbit/s
	rawLqiMax      = 0x3f // LQI as written by the hardware, before scaling
)

// reception is a frame being received from the air.
type reception struct {
	air       *airFrame
	buf       []byte
	bitsStart uint64 // time the bit counter starts: end of SFD
	bcGen     uint64
	bcStarted bool
}

// Radio simulates one nRF RADIO peripheral. It implements hal.Radio and hal.IrqSource.
type Radio struct {
	id int
	m  *Medium

	state     hal.HwState
	shorts    hal.Short
	events    [hal.EventCount]bool
	inten     hal.Interrupt
	freq      uint32
	txPower   int8
	packet    []byte
	bcc       uint32
	mhmuPat   uint32
	mhmuMask  uint32
	crcOk     bool
	rssi      uint8
	edSample  uint8
	edCount   uint32
	edActive  bool
	edMax     uint8
	cca       hal.CcaConfig
	stuck     bool
	gen       uint64 // bumped to cancel in-flight ramp-up, CCA, ED and TX activity
	rx        *reception
	tx        *airFrame
	lastEnd   uint64
	timerGen  uint64
	rng       *prng.Source
	sent      [][]byte
	tasks     map[hal.Task]int

	irqLatency uint64
	irqHandler func()
	irqPending bool
}

func newRadio(m *Medium, id int, rng *prng.Source) *Radio {
	r := &Radio{
		id:    id,
		m:     m,
		rng:   rng,
		tasks: make(map[hal.Task]int),
	}
	r.resetRegisters()
	return r
}

func (r *Radio) Id() int {
	return r.id
}

func (r *Radio) resetRegisters() {
	r.setState(hal.HwDisabled)
	r.shorts = hal.ShortsIdle
	r.events = [hal.EventCount]bool{}
	r.inten = 0
	r.freq = resetFrequency
	r.txPower = 0
	r.packet = nil
	r.bcc = 0
	r.mhmuPat, r.mhmuMask = 0, 0
	r.crcOk = false
	r.edCount = 0
	r.edActive = false
	r.cca = hal.DefaultCcaConfig()
	r.gen++
	r.timerGen++
	r.rx = nil
	r.abortTx()
}

func (r *Radio) channel() types.Channel {
	if r.freq < 5 || (r.freq-5)%5 != 0 {
		return types.InvalidChannel
	}
	ch := types.MinChannel + types.Channel((r.freq-5)/5)
	if !types.ValidChannel(ch) {
		return types.InvalidChannel
	}
	return ch
}

func (r *Radio) activity() types.HwActivity {
	switch r.state {
	case hal.HwRxRu, hal.HwRxIdle, hal.HwRx, hal.HwRxDisable:
		return types.HwRx
	case hal.HwTxRu, hal.HwTxIdle, hal.HwTx, hal.HwTxDisable:
		return types.HwTx
	default:
		return types.HwDisabled
	}
}

func (r *Radio) setState(s hal.HwState) {
	if r.state == s {
		return
	}
	prev := r.activity()
	r.state = s
	if r.m != nil && prev != r.activity() {
		r.m.activityChanged(r)
	}
}

func (r *Radio) raise(e hal.Event) {
	r.events[e] = true
	if r.inten&e.Mask() != 0 {
		r.requestIrq()
	}
}

func (r *Radio) irqAsserted() bool {
	for e := hal.Event(0); e < hal.EventCount; e++ {
		if r.events[e] && r.inten&e.Mask() != 0 {
			return true
		}
	}
	return false
}

func (r *Radio) requestIrq() {
	if r.irqPending || r.irqHandler == nil {
		return
	}
	r.irqPending = true
	r.m.scheduleIrq(r.m.now+r.irqLatency, r)
}

// after schedules fn in us microseconds, dropped if the radio activity was cancelled meanwhile.
func (r *Radio) after(us uint64, fn func()) {
	g := r.gen
	r.m.schedule(r.m.now+us, r, func() {
		if r.gen == g {
			fn()
		}
	})
}

func (r *Radio) task(t hal.Task) {
	r.tasks[t]++
	switch t {
	case hal.TaskTxEn:
		if r.state != hal.HwDisabled && r.state != hal.HwRxIdle {
			logger.Tracef("hw %d: TXEN ignored in %v", r.id, r.state)
			return
		}
		r.setState(hal.HwTxRu)
		r.after(types.TxRampUpUs, func() {
			r.setState(hal.HwTxIdle)
			r.raise(hal.EventReady)
			r.raise(hal.EventTxReady)
			if r.shorts&(hal.ShortReadyStart|hal.ShortTxReadyStart) != 0 {
				r.task(hal.TaskStart)
			}
		})

	case hal.TaskRxEn:
		if r.state != hal.HwDisabled {
			logger.Tracef("hw %d: RXEN ignored in %v", r.id, r.state)
			return
		}
		r.setState(hal.HwRxRu)
		r.after(types.RxRampUpUs, func() {
			r.setState(hal.HwRxIdle)
			r.raise(hal.EventReady)
			r.raise(hal.EventRxReady)
			switch {
			case r.shorts&hal.ShortRxReadyCcaStart != 0:
				r.task(hal.TaskCcaStart)
			case r.shorts&hal.ShortReadyEdStart != 0:
				r.task(hal.TaskEdStart)
			case r.shorts&(hal.ShortReadyStart|hal.ShortRxReadyStart) != 0:
				r.task(hal.TaskStart)
			}
		})

	case hal.TaskStart:
		switch r.state {
		case hal.HwTxIdle:
			r.startTx()
		case hal.HwRxIdle:
			r.setState(hal.HwRx)
		}

	case hal.TaskStop:
		switch r.state {
		case hal.HwRx:
			r.gen++
			r.rx = nil
			r.setState(hal.HwRxIdle)
		case hal.HwTx:
			r.gen++
			r.abortTx()
			r.setState(hal.HwTxIdle)
		}

	case hal.TaskDisable:
		if r.stuck {
			logger.Tracef("hw %d: DISABLE ignored, peripheral stuck", r.id)
			return
		}
		if r.state != hal.HwDisabled {
			r.gen++
			r.edActive = false
			r.rx = nil
			r.abortTx()
			r.setState(hal.HwDisabled)
		}
		r.raise(hal.EventDisabled)
		switch {
		case r.shorts&hal.ShortDisabledTxEn != 0:
			r.task(hal.TaskTxEn)
		case r.shorts&hal.ShortDisabledRxEn != 0:
			r.task(hal.TaskRxEn)
		}

	case hal.TaskCcaStart:
		if r.state != hal.HwRxIdle {
			return
		}
		r.after(types.CcaDurationUs, func() {
			if r.m.ccaBusy(r) {
				r.raise(hal.EventCcaBusy)
				if r.shorts&hal.ShortCcaBusyDisable != 0 {
					r.task(hal.TaskDisable)
				}
				return
			}
			r.raise(hal.EventCcaIdle)
			if r.shorts&hal.ShortCcaIdleTxEn != 0 {
				r.task(hal.TaskTxEn)
			}
		})

	case hal.TaskCcaStop, hal.TaskEdStop:
		if r.state == hal.HwRxIdle {
			r.gen++
			r.edActive = false
		}

	case hal.TaskEdStart:
		if r.state != hal.HwRxIdle {
			return
		}
		r.edActive = true
		r.edMax = r.m.energyAt(r, r.channel())
		r.after(uint64(r.edCount+1)*types.EdIterDurationUs, func() {
			r.edActive = false
			r.edSample = r.edMax
			r.raise(hal.EventEdEnd)
			if r.shorts&hal.ShortEdEndDisable != 0 {
				r.task(hal.TaskDisable)
			}
		})
	}
}

func (r *Radio) startTx() {
	r.setState(hal.HwTx)
	n := 0
	if len(r.packet) > 0 {
		n = int(r.packet[0])
	}
	if n > types.MaxPsduSize {
		n = types.MaxPsduSize
	}
	if n+1 > len(r.packet) {
		n = len(r.packet) - 1
	}
	data := make([]byte, n+1)
	copy(data, r.packet)
	data[0] = byte(n)
	wpan.SetFcs(data)

	a := &airFrame{
		src:     r,
		channel: r.channel(),
		data:    data,
		start:   r.m.now,
		end:     r.m.now + types.FrameDurationUs(n),
	}
	r.tx = a
	r.after(types.ShrDurationUs, func() {
		r.raise(hal.EventAddress)
	})
	r.after(a.end-a.start, func() {
		r.tx = nil
		r.m.endFrame(a)
		r.sent = append(r.sent, a.data)
		r.lastEnd = r.m.now
		r.setState(hal.HwTxIdle)
		r.raise(hal.EventEnd)
		r.raise(hal.EventPhyEnd)
		if r.shorts&(hal.ShortEndDisable|hal.ShortPhyEndDisable) != 0 {
			r.task(hal.TaskDisable)
		} else if r.shorts&(hal.ShortEndStart|hal.ShortPhyEndStart) != 0 {
			r.task(hal.TaskStart)
		}
	})
	if a.channel != types.InvalidChannel {
		r.m.startFrame(a)
	}
}

func (r *Radio) abortTx() {
	if r.tx == nil {
		return
	}
	a := r.tx
	r.tx = nil
	if r.m != nil {
		r.m.endFrame(a)
	}
}

func (r *Radio) beginReception(a *airFrame) {
	rx := &reception{
		air:       a,
		bitsStart: a.start + types.ShrDurationUs,
	}
	r.rx = rx
	g := r.gen
	at := func(ts uint64, fn func()) {
		r.m.schedule(ts, r, func() {
			if r.gen == g && r.rx == rx {
				fn()
			}
		})
	}

	at(rx.bitsStart, func() {
		r.raise(hal.EventAddress)
		if r.shorts&hal.ShortAddressRssiStart != 0 {
			r.rssi = uint8(-int(r.m.rssiDbm(r)))
		}
		if r.shorts&hal.ShortAddressBcStart != 0 {
			rx.bcStarted = true
			r.scheduleBcMatch(rx)
		}
	})
	at(rx.bitsStart+types.PhrSize*types.TimeUsPerByte, func() {
		rx.buf = r.packet
		copy(rx.buf, a.data)
		r.raise(hal.EventFrameStart)
	})
	at(a.end, func() {
		r.endReception(rx, false)
	})
}

func (r *Radio) scheduleBcMatch(rx *reception) {
	rx.bcGen++
	if !rx.bcStarted || r.bcc == 0 {
		return
	}
	ts := rx.bitsStart + uint64(r.bcc)*usPerBit
	if ts > rx.air.end {
		return
	}
	if ts < r.m.now {
		ts = r.m.now
	}
	g, bg := r.gen, rx.bcGen
	r.m.schedule(ts, r, func() {
		if r.gen == g && r.rx == rx && rx.bcGen == bg {
			r.raise(hal.EventBcMatch)
		}
	})
}

func (r *Radio) endReception(rx *reception, cut bool) {
	r.rx = nil
	if cut && rx.buf == nil {
		// lost before the PHR: the receiver never noticed the frame.
		return
	}
	data := rx.air.data
	r.crcOk = !cut && !rx.air.crcBad && wpan.FcsValid(data) && !r.rng.Chance(r.m.cfg.FrameErrorRate)

	if rx.buf != nil {
		n := int(data[0])
		if n >= 2 && n < len(rx.buf) {
			rx.buf[n-1] = r.rawLqi()
		}
	}
	if r.mhmuMask != 0 && wpan.MhrWord(data)&r.mhmuMask == r.mhmuPat&r.mhmuMask {
		r.raise(hal.EventMhrMatch)
	}
	if r.crcOk {
		r.raise(hal.EventCrcOk)
	} else {
		r.raise(hal.EventCrcError)
	}
	r.lastEnd = r.m.now
	r.setState(hal.HwRxIdle)
	r.raise(hal.EventEnd)
	r.raise(hal.EventPhyEnd)
	if r.shorts&hal.ShortEndDisable != 0 {
		r.task(hal.TaskDisable)
	} else if r.shorts&hal.ShortEndStart != 0 {
		r.task(hal.TaskStart)
	}
}

// rawLqi maps the RSSI sample of -100..-37 dBm onto the 0..63 LQI range of the hardware.
func (r *Radio) rawLqi() uint8 {
	v := 100 - int(r.rssi)
	if v < 0 {
		v = 0
	}
	if v > rawLqiMax {
		v = rawLqiMax
	}
	return uint8(v)
}

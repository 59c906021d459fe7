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
	"github.com/openthread/ot-nrf802154/hal"
	"github.com/openthread/ot-nrf802154/types"
)

var (
	_ hal.Radio     = (*Radio)(nil)
	_ hal.IrqSource = (*Radio)(nil)
)

func (r *Radio) SetFrequency(mhzOffset uint32) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.freq = mhzOffset
}

func (r *Radio) Frequency() uint32 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.freq
}

func (r *Radio) SetTxPower(dbm int8) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.txPower = dbm
}

func (r *Radio) TxPower() int8 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.txPower
}

func (r *Radio) SetPacketPtr(buf []byte) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.packet = buf
}

func (r *Radio) PacketPtr() []byte {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.packet
}

func (r *Radio) SetShorts(shorts hal.Short) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.shorts = shorts
}

func (r *Radio) Shorts() hal.Short {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.shorts
}

func (r *Radio) TriggerTask(task hal.Task) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.task(task)
}

func (r *Radio) EventGet(event hal.Event) bool {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.events[event]
}

func (r *Radio) EventClear(event hal.Event) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.events[event] = false
}

func (r *Radio) IntEnable(mask hal.Interrupt) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.inten |= mask & hal.IntAll
	if r.irqAsserted() {
		r.requestIrq()
	}
}

func (r *Radio) IntDisable(mask hal.Interrupt) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.inten &^= mask
}

func (r *Radio) IntEnabled() hal.Interrupt {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.inten
}

func (r *Radio) State() hal.HwState {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.state
}

func (r *Radio) RssiSample() uint8 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.rssi
}

func (r *Radio) EdSample() uint8 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.edSample
}

func (r *Radio) SetEdLoopCount(count uint32) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if count > hal.EdLoopCountMax {
		count = hal.EdLoopCountMax
	}
	r.edCount = count
}

func (r *Radio) CrcOk() bool {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.crcOk
}

// SetBcc sets the bit counter compare. During a reception a new BCMATCH is scheduled for it.
func (r *Radio) SetBcc(bits uint32) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.bcc = bits
	if r.rx != nil {
		r.scheduleBcMatch(r.rx)
	}
}

func (r *Radio) Bcc() uint32 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.bcc
}

func (r *Radio) SetMhmuPattern(pattern uint32, mask uint32) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.mhmuPat, r.mhmuMask = pattern, mask
}

func (r *Radio) SetCcaConfig(cfg hal.CcaConfig) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.cca = cfg
}

func (r *Radio) Reset() {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.stuck = false
	r.resetRegisters()
}

func (r *Radio) ScheduleTask(task hal.Task, delayUs uint32) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.timerGen++
	at := r.lastEnd + uint64(delayUs)
	if at <= r.m.now {
		return
	}
	g := r.timerGen
	r.m.schedule(at, r, func() {
		if r.timerGen == g {
			r.task(task)
		}
	})
}

func (r *Radio) CancelScheduled() {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.timerGen++
}

func (r *Radio) TimerCapture() uint32 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d := r.m.now - r.lastEnd
	if d > 0xffffffff {
		d = 0xffffffff
	}
	return uint32(d)
}

func (r *Radio) SetIrqHandler(handler func()) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.irqHandler = handler
	if r.irqAsserted() {
		r.requestIrq()
	}
}

// SetIrqLatency delays IRQ handler invocation by us microseconds after the event, modelling a
// CPU held by higher priority work.
func (r *Radio) SetIrqLatency(us uint64) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.irqLatency = us
}

// SetStuck makes the peripheral ignore DISABLE until Reset.
func (r *Radio) SetStuck(stuck bool) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.stuck = stuck
}

// RaiseEvent sets an event as the hardware would, for exercising the IRQ handler directly.
func (r *Radio) RaiseEvent(event hal.Event) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.raise(event)
}

// Transmitted returns copies of the PHR-prefixed frames this radio completed sending.
func (r *Radio) Transmitted() [][]byte {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	res := make([][]byte, len(r.sent))
	for i, f := range r.sent {
		res[i] = append([]byte(nil), f...)
	}
	return res
}

func (r *Radio) ClearTransmitted() {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.sent = nil
}

// TaskCount returns how often task was triggered since the radio was created.
func (r *Radio) TaskCount(task hal.Task) int {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.tasks[task]
}

// Channel returns the channel the FREQUENCY register is tuned to.
func (r *Radio) Channel() types.Channel {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.channel()
}

func (r *Radio) Activity() types.HwActivity {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.activity()
}

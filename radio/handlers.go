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

package radio

import (
	"github.com/openthread/ot-nrf802154/dissectpkt/wpan"
	"github.com/openthread/ot-nrf802154/hal"
	"github.com/openthread/ot-nrf802154/rxbuffer"
	"github.com/openthread/ot-nrf802154/types"
)

func (d *Driver) handleEvent(e hal.Event) error {
	switch e {
	case hal.EventFrameStart:
		return d.onFrameStart()
	case hal.EventBcMatch:
		return d.onBcMatch()
	case hal.EventAddress:
		return d.onAddress()
	case hal.EventEnd:
		return d.onEnd()
	case hal.EventPhyEnd:
		return d.onPhyEnd()
	case hal.EventDisabled:
		if d.state != types.StateSleep {
			return d.fault(e, "")
		}
		return nil
	case hal.EventReady:
		if d.state != types.StateContinuousCarrier {
			return d.fault(e, "")
		}
		d.log.Debugf("carrier on, hw %v", d.hw.State())
		return nil
	case hal.EventCcaIdle:
		if d.state != types.StateStandaloneCca {
			return d.fault(e, "")
		}
		d.enterWaiting()
		d.notify(func() { d.notifier.CcaDone(true) })
		return nil
	case hal.EventCcaBusy:
		return d.onCcaBusy()
	case hal.EventEdEnd:
		return d.onEdEnd()
	default:
		return d.fault(e, "")
	}
}

func (d *Driver) onFrameStart() error {
	if d.state != types.StateWaitingRxFrame {
		return d.fault(hal.EventFrameStart, "")
	}
	if !d.lock() {
		return d.fault(hal.EventFrameStart, "mutex held while waiting for a frame")
	}
	if d.rxBuf == nil {
		return d.fault(hal.EventFrameStart, "reception without a buffer")
	}
	d.setState(types.StateRxHeader)
	return nil
}

func (d *Driver) onBcMatch() error {
	switch d.state {
	case types.StateRxHeader:
	case types.StateRxFrame:
		// a compare moved behind the running counter still fires once
		return nil
	default:
		return d.fault(hal.EventBcMatch, "")
	}

	numBytes := uint8(d.hw.Bcc() / 8)
	next, rxErr := wpan.FilterFramePart(d.rxBuf.Psdu[:], numBytes, d.pib.identity())
	switch {
	case rxErr != types.RxErrorNone:
		d.filterFailed(rxErr)
	case next > numBytes:
		d.hw.SetBcc(uint32(next) * 8)
	default:
		d.filterPassed = true
		d.setState(types.StateRxFrame)
	}
	return nil
}

// filterFailed drops the frame being received, unless promiscuous mode wants it anyway.
func (d *Driver) filterFailed(rxErr types.RxError) {
	if d.pib.Promiscuous && rxErr != types.RxErrorInvalidLength {
		d.setState(types.StateRxFrame)
		return
	}

	isAck := wpan.IsAck(d.rxBuf.Psdu[:])
	d.log.Tracef("frame dropped: %v", rxErr)
	d.enterWaiting()
	if !isAck {
		d.notifyReceiveFailed(rxErr)
	}
}

func (d *Driver) onAddress() error {
	// a transmit without CCA is in TxFrame from the start
	if d.state != types.StateCca && d.state != types.StateTxFrame {
		return d.fault(hal.EventAddress, "")
	}
	d.setState(types.StateTxFrame)
	frame := d.txFrame
	d.notify(func() { d.notifier.TransmitStarted(frame) })
	return nil
}

func (d *Driver) onEnd() error {
	switch d.state {
	case types.StateRxHeader:
		return d.onEndRxHeader()
	case types.StateRxFrame:
		return d.onEndRxFrame()
	case types.StateRxAck:
		return d.onEndRxAck()
	default:
		return d.fault(hal.EventEnd, "")
	}
}

// onEndRxHeader completes filtering of a frame that ended before the IRQ caught up with the
// byte counter. All bytes are in the buffer by now.
func (d *Driver) onEndRxHeader() error {
	numBytes := uint8(d.hw.Bcc() / 8)
	for {
		next, rxErr := wpan.FilterFramePart(d.rxBuf.Psdu[:], numBytes, d.pib.identity())
		if rxErr != types.RxErrorNone {
			d.filterFailed(rxErr)
			if d.state != types.StateRxFrame {
				return nil
			}
			break
		}
		if next <= numBytes {
			d.filterPassed = true
			d.setState(types.StateRxFrame)
			break
		}
		numBytes = next
	}
	return d.onEndRxFrame()
}

func (d *Driver) onEndRxFrame() error {
	if !d.hw.CrcOk() {
		d.enterWaiting()
		if d.cfg.NotifyCrcError {
			d.notifyReceiveFailed(types.RxErrorInvalidFcs)
		}
		return nil
	}

	buf := d.rxBuf
	psdu := buf.Psdu[:]
	rssi, lqi := d.rssi(), d.lqi(psdu)

	if !d.filterPassed || !d.pib.AutoAck || !wpan.AckRequested(psdu) {
		d.deliverReceived(buf, rssi, lqi)
		d.rxBuf = nil
		d.enterWaiting()
		return nil
	}

	d.ack = wpan.NewAck(wpan.Seq(psdu), d.pending.ShouldBeSet(psdu))
	d.ackedRssi, d.ackedLqi = rssi, lqi
	d.hw.SetPacketPtr(d.ack)
	d.hw.SetShorts(shortsTxAck)
	d.hw.IntDisable(hal.IntAll)
	d.hw.EventClear(hal.EventPhyEnd)
	d.hw.EventClear(hal.EventTxReady)
	d.hw.IntEnable(intTxAck)
	d.setState(types.StateTxAck)
	d.hw.ScheduleTask(hal.TaskTxEn, types.AckTxEnDelayUs)

	if d.ackStarted() {
		return nil
	}

	// the IRQ came too late for the timer: the ACK is lost but the frame is not
	d.log.Warnf("ACK for seq %d not sent, END serviced after %d us", wpan.Seq(psdu), d.hw.TimerCapture())
	d.hw.CancelScheduled()
	d.hw.Reset()
	d.hwInit()
	d.ack = nil
	d.deliverReceived(buf, rssi, lqi)
	d.rxBuf = nil
	d.enterWaiting()
	return nil
}

// ackStarted verifies that the timer will trigger, or has triggered, the ACK transmission.
func (d *Driver) ackStarted() bool {
	if d.hw.TimerCapture() < types.AckTxEnDelayUs {
		return true
	}
	for i := 0; i < d.cfg.MaxPolls; i++ {
		if d.hw.State().IsTx() || d.hw.EventGet(hal.EventTxReady) {
			return true
		}
	}
	return false
}

func (d *Driver) onEndRxAck() error {
	matched := d.hw.EventGet(hal.EventMhrMatch)
	d.hw.EventClear(hal.EventMhrMatch)

	if !matched || !d.hw.CrcOk() {
		// not our ACK: keep listening with the same buffer
		d.hw.SetShorts(shortsRxAck | hal.ShortRxReadyStart)
		d.hw.TriggerTask(hal.TaskRxEn)
		return nil
	}

	ack := d.rxBuf
	psdu := ack.Psdu[:]
	pending := wpan.FramePending(psdu)
	rssi, lqi := d.rssi(), d.lqi(psdu)
	d.pool.MarkUsed(ack)
	d.rxBuf = nil

	frame := d.txFrame
	d.txFrame = nil
	d.enterWaiting()
	d.notify(func() { d.notifier.Transmitted(frame, ack, pending, rssi, lqi) })
	return nil
}

func (d *Driver) onPhyEnd() error {
	switch d.state {
	case types.StateTxAck:
		d.ack = nil
		d.deliverReceived(d.rxBuf, d.ackedRssi, d.ackedLqi)
		d.rxBuf = nil
		d.enterWaiting()
		return nil
	case types.StateTxFrame:
		return d.onPhyEndTxFrame()
	default:
		return d.fault(hal.EventPhyEnd, "")
	}
}

func (d *Driver) onPhyEndTxFrame() error {
	frame := d.txFrame
	if !wpan.AckRequested(frame) {
		d.txFrame = nil
		d.enterWaiting()
		d.notify(func() { d.notifier.Transmitted(frame, nil, false, 0, 0) })
		return nil
	}

	d.setState(types.StateRxAck)
	d.hw.IntDisable(hal.IntAll)
	d.clearEvents()
	d.hw.SetMhmuPattern(wpan.AckMatchSearchPattern(wpan.Seq(frame)), wpan.AckMatchMask)

	shorts := shortsRxAck
	d.rxBuf = d.pool.FreeFind()
	if d.rxBuf != nil {
		d.hw.SetPacketPtr(d.rxBuf.Psdu[:])
		shorts |= hal.ShortRxReadyStart
	} else {
		// the receiver ramps up idle; BufferFree starts it if a buffer comes back in time
		d.log.Debugf("no free rx buffer for ACK of seq %d", wpan.Seq(frame))
	}
	d.hw.SetShorts(shorts)
	d.hw.IntEnable(intRxAck)
	d.hw.TriggerTask(hal.TaskRxEn)
	return nil
}

func (d *Driver) onCcaBusy() error {
	switch d.state {
	case types.StateCca:
		d.enterWaiting()
		d.notifyTransmitFailed(types.TxErrorBusyChannel)
	case types.StateStandaloneCca:
		d.enterWaiting()
		d.notify(func() { d.notifier.CcaDone(false) })
	default:
		return d.fault(hal.EventCcaBusy, "")
	}
	return nil
}

func (d *Driver) onEdEnd() error {
	if d.state != types.StateEnergyDetection {
		return d.fault(hal.EventEdEnd, "")
	}

	if s := d.hw.EdSample(); s > d.edMax {
		d.edMax = s
	}
	if d.edRemaining > 0 {
		d.edArm()
		d.hw.TriggerTask(hal.TaskEdStart)
		return nil
	}

	result := uint16(d.edMax) * edScale
	if result > 0xff {
		result = 0xff
	}
	d.enterWaiting()
	d.notify(func() { d.notifier.EnergyDetected(uint8(result)) })
	return nil
}

// rssi converts the RSSI sample of the last frame to dBm.
func (d *Driver) rssi() int8 {
	return -int8(d.hw.RssiSample())
}

// lqi scales the LQI the hardware wrote over the FCS of the PHR-prefixed frame.
func (d *Driver) lqi(psdu []byte) uint8 {
	n := int(psdu[0])
	if n < types.FcsSize || n > types.MaxPsduSize {
		return 0
	}
	v := uint16(psdu[n-1]) * lqiScale
	if v > 0xff {
		v = 0xff
	}
	return uint8(v)
}

func (d *Driver) deliverReceived(buf *rxbuffer.Buffer, rssi int8, lqi uint8) {
	if buf == nil {
		return
	}
	d.pool.MarkUsed(buf)
	d.notify(func() { d.notifier.Received(buf, rssi, lqi) })
}

func (d *Driver) notifyReceiveFailed(rxErr types.RxError) {
	d.notify(func() { d.notifier.ReceiveFailed(rxErr) })
}

func (d *Driver) notifyTransmitFailed(txErr types.TxError) {
	frame := d.txFrame
	d.txFrame = nil
	d.notify(func() { d.notifier.TransmitFailed(frame, txErr) })
}

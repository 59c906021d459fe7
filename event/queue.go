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

package event

import (
	"go.uber.org/atomic"

	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/radio"
	"github.com/openthread/ot-nrf802154/rxbuffer"
	"github.com/openthread/ot-nrf802154/types"
)

var _ radio.Notifier = (*Queue)(nil)

// Queue is a radio.Notifier turning driver callbacks into Events on a buffered channel. Frames are
// copied and driver buffers returned right away. When the channel is full, events are dropped.
type Queue struct {
	radioId types.RadioId
	ch      chan Event
	clock   func() uint64
	driver  *radio.Driver
	dropped atomic.Uint64
}

func NewQueue(radioId types.RadioId, size int, clock func() uint64) *Queue {
	return &Queue{
		radioId: radioId,
		ch:      make(chan Event, size),
		clock:   clock,
	}
}

// Attach sets the driver whose buffers are freed and whose channel is reported in events.
func (q *Queue) Attach(d *radio.Driver) {
	q.driver = d
}

// C returns the event channel.
func (q *Queue) C() <-chan Event {
	return q.ch
}

// Drain returns all queued events without blocking.
func (q *Queue) Drain() []Event {
	var evs []Event
	for {
		select {
		case ev := <-q.ch:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

// Dropped returns the number of events lost to a full channel.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

func (q *Queue) newEvent(tp EventType) Event {
	ev := Event{
		Type:      tp,
		RadioId:   q.radioId,
		Timestamp: InvalidTimestamp,
	}
	if q.clock != nil {
		ev.Timestamp = q.clock()
	}
	if q.driver != nil {
		ev.Channel = q.driver.Pib().Channel
	}
	return ev
}

func (q *Queue) push(ev Event) {
	select {
	case q.ch <- ev:
	default:
		q.dropped.Inc()
		logger.Warnf("radio %d: event queue full, dropped %s", q.radioId, TypeName(ev.Type))
	}
}

// take copies the frame out of buf and returns buf to the driver.
func (q *Queue) take(buf *rxbuffer.Buffer) []byte {
	if buf == nil {
		return nil
	}
	frame := append([]byte(nil), buf.Frame()...)
	if q.driver != nil {
		if err := q.driver.BufferFree(buf); err != nil {
			logger.Warnf("radio %d: buffer free: %v", q.radioId, err)
		}
	}
	return frame
}

func (q *Queue) Received(buf *rxbuffer.Buffer, rssi int8, lqi uint8) {
	ev := q.newEvent(EventTypeReceived)
	ev.Data = q.take(buf)
	ev.Rssi, ev.Lqi = rssi, lqi
	q.push(ev)
}

func (q *Queue) ReceiveFailed(err types.RxError) {
	ev := q.newEvent(EventTypeReceiveFailed)
	ev.Error = uint8(err)
	q.push(ev)
}

func (q *Queue) TransmitStarted(frame []byte) {
	ev := q.newEvent(EventTypeTransmitStarted)
	ev.Data = append([]byte(nil), frame...)
	q.push(ev)
}

func (q *Queue) Transmitted(frame []byte, ack *rxbuffer.Buffer, pending bool, rssi int8, lqi uint8) {
	ev := q.newEvent(EventTypeTransmitted)
	ev.Data = append([]byte(nil), frame...)
	ev.Ack = q.take(ack)
	ev.Pending = pending
	ev.Rssi, ev.Lqi = rssi, lqi
	q.push(ev)
}

func (q *Queue) TransmitFailed(frame []byte, err types.TxError) {
	ev := q.newEvent(EventTypeTransmitFailed)
	ev.Data = append([]byte(nil), frame...)
	ev.Error = uint8(err)
	q.push(ev)
}

func (q *Queue) EnergyDetected(result uint8) {
	ev := q.newEvent(EventTypeEnergyDetected)
	ev.Result = result
	q.push(ev)
}

func (q *Queue) EnergyDetectionFailed(err types.EdError) {
	ev := q.newEvent(EventTypeEnergyDetectionFailed)
	ev.Error = uint8(err)
	q.push(ev)
}

func (q *Queue) CcaDone(idle bool) {
	ev := q.newEvent(EventTypeCcaDone)
	ev.Idle = idle
	q.push(ev)
}

func (q *Queue) CcaFailed(err types.CcaError) {
	ev := q.newEvent(EventTypeCcaFailed)
	ev.Error = uint8(err)
	q.push(ev)
}

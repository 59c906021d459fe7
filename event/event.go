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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/types"
)

type EventType = uint8

const (
	// Event type IDs, one per radio driver notification.
	EventTypeReceived              EventType = 1
	EventTypeReceiveFailed         EventType = 2
	EventTypeTransmitStarted       EventType = 3
	EventTypeTransmitted           EventType = 4
	EventTypeTransmitFailed        EventType = 5
	EventTypeEnergyDetected        EventType = 6
	EventTypeEnergyDetectionFailed EventType = 7
	EventTypeCcaDone               EventType = 8
	EventTypeCcaFailed             EventType = 9
)

const (
	InvalidTimestamp uint64 = math.MaxUint64
)

var typeNames = map[EventType]string{
	EventTypeReceived:              "received",
	EventTypeReceiveFailed:         "receive_failed",
	EventTypeTransmitStarted:       "transmit_started",
	EventTypeTransmitted:           "transmitted",
	EventTypeTransmitFailed:        "transmit_failed",
	EventTypeEnergyDetected:        "energy_detected",
	EventTypeEnergyDetectionFailed: "energy_detection_failed",
	EventTypeCcaDone:               "cca_done",
	EventTypeCcaFailed:             "cca_failed",
}

// TypeName returns the name of an event type, as used in topics and traces.
func TypeName(tp EventType) string {
	if s, ok := typeNames[tp]; ok {
		return s
	}
	return fmt.Sprintf("type_%d", tp)
}

const (
	flagPending = 1 << 0
	flagIdle    = 1 << 1
)

// Event wire format, all fields little-endian:
//
//	Timestamp uint64, Type uint8, RadioId uint32, Channel uint8, Rssi int8, Lqi uint8,
//	Error uint8, Flags uint8, Result uint8, DataLen uint16, AckLen uint16, Data, Ack
const eventMsgHeaderLen = 23

// Event is one notification of a radio driver.
type Event struct {
	Timestamp uint64        `json:"timestamp"`
	Type      EventType     `json:"type"`
	RadioId   types.RadioId `json:"radio"`
	Channel   types.Channel `json:"channel"`
	Rssi      int8          `json:"rssi"`
	Lqi       uint8         `json:"lqi"`
	Error     uint8         `json:"error"`
	Pending   bool          `json:"pending"`
	Idle      bool          `json:"idle"`
	Result    uint8         `json:"result"`
	Data      []byte        `json:"data,omitempty"` // PHR-prefixed frame
	Ack       []byte        `json:"ack,omitempty"`  // PHR-prefixed ACK of a transmitted frame
}

// Serialize serializes this Event into []byte for a trace or a remote consumer.
func (e *Event) Serialize() []byte {
	msg := make([]byte, eventMsgHeaderLen+len(e.Data)+len(e.Ack))
	binary.LittleEndian.PutUint64(msg[0:8], e.Timestamp)
	msg[8] = e.Type
	binary.LittleEndian.PutUint32(msg[9:13], uint32(e.RadioId))
	msg[13] = e.Channel
	msg[14] = byte(e.Rssi)
	msg[15] = e.Lqi
	msg[16] = e.Error
	var flags byte
	if e.Pending {
		flags |= flagPending
	}
	if e.Idle {
		flags |= flagIdle
	}
	msg[17] = flags
	msg[18] = e.Result
	binary.LittleEndian.PutUint16(msg[19:21], uint16(len(e.Data)))
	binary.LittleEndian.PutUint16(msg[21:23], uint16(len(e.Ack)))
	n := copy(msg[eventMsgHeaderLen:], e.Data)
	n += copy(msg[eventMsgHeaderLen+n:], e.Ack)
	logger.AssertTrue(n == len(e.Data)+len(e.Ack))

	return msg
}

// Deserialize deserializes []byte Event fields into the Event object e.
// It returns the number of bytes used from `data` for the Deserialize operation, or 0 if the data buffer
// is incomplete i.e. does not contain one entire serialized Event.
func (e *Event) Deserialize(data []byte) int {
	n := len(data)
	if n < eventMsgHeaderLen {
		return 0
	}
	dataLen := int(binary.LittleEndian.Uint16(data[19:21]))
	ackLen := int(binary.LittleEndian.Uint16(data[21:23]))
	if eventMsgHeaderLen+dataLen+ackLen > n {
		return 0
	}

	e.Timestamp = binary.LittleEndian.Uint64(data[0:8])
	e.Type = data[8]
	e.RadioId = types.RadioId(binary.LittleEndian.Uint32(data[9:13]))
	e.Channel = data[13]
	e.Rssi = int8(data[14])
	e.Lqi = data[15]
	e.Error = data[16]
	e.Pending = data[17]&flagPending != 0
	e.Idle = data[17]&flagIdle != 0
	e.Result = data[18]

	e.Data, e.Ack = nil, nil
	if dataLen > 0 {
		e.Data = make([]byte, dataLen)
		copy(e.Data, data[eventMsgHeaderLen:])
	}
	if ackLen > 0 {
		e.Ack = make([]byte, ackLen)
		copy(e.Ack, data[eventMsgHeaderLen+dataLen:])
	}
	return eventMsgHeaderLen + dataLen + ackLen
}

// Copy creates a copy of the Event, not sharing frame storage.
func (e *Event) Copy() Event {
	newEv := *e
	if e.Data != nil {
		newEv.Data = append([]byte(nil), e.Data...)
	}
	if e.Ack != nil {
		newEv.Ack = append([]byte(nil), e.Ack...)
	}
	return newEv
}

// ErrorString renders the Error field according to the event type.
func (e *Event) ErrorString() string {
	switch e.Type {
	case EventTypeReceiveFailed:
		return types.RxError(e.Error).String()
	case EventTypeTransmitFailed:
		return types.TxError(e.Error).String()
	case EventTypeEnergyDetectionFailed:
		return types.EdError(e.Error).String()
	case EventTypeCcaFailed:
		return types.CcaError(e.Error).String()
	default:
		return "none"
	}
}

func (e *Event) String() string {
	var s string
	switch e.Type {
	case EventTypeReceived:
		s = fmt.Sprintf("rssi=%d,lqi=%d", e.Rssi, e.Lqi)
	case EventTypeTransmitted:
		s = fmt.Sprintf("pending=%t,rssi=%d,lqi=%d", e.Pending, e.Rssi, e.Lqi)
	case EventTypeReceiveFailed, EventTypeTransmitFailed, EventTypeEnergyDetectionFailed, EventTypeCcaFailed:
		s = "err=" + e.ErrorString()
	case EventTypeEnergyDetected:
		s = fmt.Sprintf("result=%d", e.Result)
	case EventTypeCcaDone:
		s = fmt.Sprintf("idle=%t", e.Idle)
	}
	if len(e.Data) > 0 {
		s += ",psdu=" + hex.EncodeToString(e.Data)
	}
	if len(e.Ack) > 0 {
		s += ",ack=" + hex.EncodeToString(e.Ack)
	}
	return fmt.Sprintf("Ev{%s,rid=%d,ch=%d,ts=%d,%s}", TypeName(e.Type), e.RadioId, e.Channel, e.Timestamp, s)
}

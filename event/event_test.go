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
	"bytes"
	"encoding/hex"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-nrf802154/dissectpkt/wpan"
	"github.com/openthread/ot-nrf802154/radio"
	"github.com/openthread/ot-nrf802154/radiosim"
	"github.com/openthread/ot-nrf802154/types"
)

func TestDeserializeReceivedEvent(t *testing.T) {
	data, _ := hex.DecodeString("d204000000000000" + "01" + "02000000" + "0f" + "c4" + "a0" + "00" + "00" + "00" +
		"0400" + "0000" + "03020007")
	var ev Event
	n := ev.Deserialize(data)
	assert.Equal(t, len(data), n)
	assert.Equal(t, uint64(1234), ev.Timestamp)
	assert.Equal(t, EventTypeReceived, ev.Type)
	assert.Equal(t, 2, ev.RadioId)
	assert.Equal(t, types.Channel(15), ev.Channel)
	assert.Equal(t, int8(-60), ev.Rssi)
	assert.Equal(t, uint8(160), ev.Lqi)
	assert.Equal(t, []byte{3, 2, 0, 7}, ev.Data)
	assert.Nil(t, ev.Ack)
}

func TestDeserializeIncomplete(t *testing.T) {
	ev := Event{Type: EventTypeTransmitted, Data: []byte{1, 2, 3}, Ack: []byte{5, 2, 0, 1}}
	data := ev.Serialize()
	var ev2 Event
	assert.Equal(t, 0, ev2.Deserialize(data[:10]))
	assert.Equal(t, 0, ev2.Deserialize(data[:len(data)-1]))
	assert.Equal(t, len(data), ev2.Deserialize(append(data, 0xff)))
}

func TestSerializeTransmittedEvent(t *testing.T) {
	ev := &Event{
		Timestamp: 0x0102,
		Type:      EventTypeTransmitted,
		RadioId:   1,
		Channel:   26,
		Rssi:      -70,
		Lqi:       255,
		Pending:   true,
		Data:      []byte{9, 0x61, 0x88},
		Ack:       wpan.NewAck(7, true),
	}
	data := ev.Serialize()
	assert.Equal(t, eventMsgHeaderLen+3+6, len(data))
	assert.Equal(t, byte(0x02), data[0])
	assert.Equal(t, byte(0x01), data[1])
	assert.Equal(t, EventTypeTransmitted, data[8])
	assert.Equal(t, byte(flagPending), data[17])

	var ev2 Event
	ev2.Deserialize(data)
	assert.Equal(t, *ev, ev2)
}

func TestEventStrings(t *testing.T) {
	ev := Event{Type: EventTypeTransmitFailed, Error: uint8(types.TxErrorBusyChannel)}
	assert.Equal(t, "busy_channel", ev.ErrorString())
	assert.Contains(t, ev.String(), "transmit_failed")
	assert.Contains(t, ev.String(), "err=busy_channel")

	ev = Event{Type: EventTypeReceiveFailed, Error: uint8(types.RxErrorInvalidFcs)}
	assert.Equal(t, "invalid_fcs", ev.ErrorString())
	ev = Event{Type: EventTypeCcaDone, Idle: true}
	assert.Equal(t, "none", ev.ErrorString())
	assert.Contains(t, ev.String(), "idle=true")
	assert.Equal(t, "type_99", TypeName(99))
}

func TestCopy(t *testing.T) {
	ev := Event{Type: EventTypeReceived, Data: []byte{1, 2}}
	c := ev.Copy()
	c.Data[0] = 9
	assert.Equal(t, byte(1), ev.Data[0])
}

func TestTraceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTraceWriter(&buf)
	require.Nil(t, err)

	evs := []Event{
		{Timestamp: 10, Type: EventTypeEnergyDetected, RadioId: 1, Channel: 11, Result: 0xc0},
		{Timestamp: 20, Type: EventTypeReceived, RadioId: 2, Data: []byte{3, 1, 2, 3}},
		{Timestamp: 30, Type: EventTypeCcaFailed, RadioId: 1, Error: uint8(types.CcaErrorAborted)},
	}
	for i := range evs {
		require.Nil(t, tw.Write(&evs[i]))
	}
	assert.Equal(t, 3, tw.Count())
	require.Nil(t, tw.Close())

	tr, err := NewTraceReader(&buf)
	require.Nil(t, err)
	read, err := tr.ReadAll()
	require.Nil(t, err)
	assert.Equal(t, evs, read)

	_, err = tr.Next()
	assert.Equal(t, io.EOF, err)
}

func TestTraceReaderErrors(t *testing.T) {
	_, err := NewTraceReader(bytes.NewReader([]byte("PCAPFILE\x01\x00")))
	assert.Equal(t, ErrBadTrace, err)
	_, err = NewTraceReader(bytes.NewReader([]byte("NRF")))
	assert.True(t, errors.Is(err, ErrBadTrace))

	var buf bytes.Buffer
	tw, _ := NewTraceWriter(&buf)
	require.Nil(t, tw.Write(&Event{Type: EventTypeReceived, Data: []byte{1, 2, 3}}))
	require.Nil(t, tw.Flush())
	tr, err := NewTraceReader(bytes.NewReader(buf.Bytes()[:buf.Len()-1]))
	require.Nil(t, err)
	_, err = tr.Next()
	assert.NotNil(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestQueueWithDriver(t *testing.T) {
	m := radiosim.NewMedium(radiosim.DefaultConfig())
	hw := m.AddRadio(1)
	q := NewQueue(1, 8, m.Now)
	d := radio.NewDriver(1, hw, q, radio.DefaultConfig())
	q.Attach(d)

	require.Nil(t, d.Receive(20, false))
	m.Run(100)
	frame := []byte{9, 0x41, 0x08, 5, 0xff, 0xff, 0xff, 0xff, 0, 0}
	require.Nil(t, m.Inject(20, frame, true))
	m.RunUntilIdle()

	require.Nil(t, d.EnergyDetection(20, 128))
	m.RunUntilIdle()

	evs := q.Drain()
	require.Len(t, evs, 2)
	assert.Equal(t, EventTypeReceived, evs[0].Type)
	assert.Equal(t, types.Channel(20), evs[0].Channel)
	assert.Equal(t, frame[:8], evs[0].Data[:8])
	assert.Equal(t, int8(-60), evs[0].Rssi)
	assert.NotEqual(t, InvalidTimestamp, evs[0].Timestamp)
	assert.Equal(t, EventTypeEnergyDetected, evs[1].Type)

	// the received buffer went back to the driver
	assert.Equal(t, d.Buffers().Size(), d.Buffers().FreeCount())
	assert.Empty(t, q.Drain())
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(3, 1, nil)
	q.CcaDone(true)
	q.CcaDone(false)
	q.EnergyDetectionFailed(types.EdErrorAborted)
	assert.Equal(t, uint64(2), q.Dropped())

	ev := <-q.C()
	assert.True(t, ev.Idle)
	assert.Equal(t, InvalidTimestamp, ev.Timestamp)
	assert.Equal(t, 3, ev.RadioId)
}

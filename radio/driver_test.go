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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-nrf802154/dissectpkt/wpan"
	"github.com/openthread/ot-nrf802154/hal"
	"github.com/openthread/ot-nrf802154/pendingbit"
	"github.com/openthread/ot-nrf802154/radiosim"
	"github.com/openthread/ot-nrf802154/rxbuffer"
	"github.com/openthread/ot-nrf802154/types"
)

const (
	testChannel types.Channel = 15
	testPan     uint16        = 0xface
	addrA       uint16        = 0x0001
	addrB       uint16        = 0x0002
)

type rxRecord struct {
	frame []byte
	rssi  int8
	lqi   uint8
}

type txRecord struct {
	frame   []byte
	ack     []byte
	pending bool
	rssi    int8
	lqi     uint8
}

// recorder collects notifications, copying and freeing received buffers unless keep is set.
type recorder struct {
	d    *Driver
	keep bool

	received    []rxRecord
	rxFailed    []types.RxError
	started     int
	transmitted []txRecord
	txFailed    []types.TxError
	ed          []uint8
	edFailed    []types.EdError
	cca         []bool
	ccaFailed   []types.CcaError
	kept        []*rxbuffer.Buffer
}

func (r *recorder) Received(buf *rxbuffer.Buffer, rssi int8, lqi uint8) {
	r.received = append(r.received, rxRecord{append([]byte(nil), buf.Frame()...), rssi, lqi})
	r.release(buf)
}

func (r *recorder) ReceiveFailed(err types.RxError) {
	r.rxFailed = append(r.rxFailed, err)
}

func (r *recorder) TransmitStarted([]byte) {
	r.started++
}

func (r *recorder) Transmitted(frame []byte, ack *rxbuffer.Buffer, pending bool, rssi int8, lqi uint8) {
	rec := txRecord{frame: frame, pending: pending, rssi: rssi, lqi: lqi}
	if ack != nil {
		rec.ack = append([]byte(nil), ack.Frame()...)
		r.release(ack)
	}
	r.transmitted = append(r.transmitted, rec)
}

func (r *recorder) TransmitFailed(_ []byte, err types.TxError) {
	r.txFailed = append(r.txFailed, err)
}

func (r *recorder) EnergyDetected(result uint8) {
	r.ed = append(r.ed, result)
}

func (r *recorder) EnergyDetectionFailed(err types.EdError) {
	r.edFailed = append(r.edFailed, err)
}

func (r *recorder) CcaDone(idle bool) {
	r.cca = append(r.cca, idle)
}

func (r *recorder) CcaFailed(err types.CcaError) {
	r.ccaFailed = append(r.ccaFailed, err)
}

func (r *recorder) release(buf *rxbuffer.Buffer) {
	if r.keep {
		r.kept = append(r.kept, buf)
		return
	}
	_ = r.d.BufferFree(buf)
}

type testRadio struct {
	hw  *radiosim.Radio
	d   *Driver
	rec *recorder
}

func newTestRadio(t *testing.T, m *radiosim.Medium, id int, addr uint16, cfg Config) *testRadio {
	hw := m.AddRadio(id)
	rec := &recorder{}
	d := NewDriver(id, hw, rec, cfg)
	rec.d = d
	d.SetPanID(testPan)
	d.SetShortAddress(addr)
	d.SetExtendedAddress(0x1122334455660000 | uint64(addr))
	assertMutex(t, d)
	return &testRadio{hw: hw, d: d, rec: rec}
}

// newPair returns two drivers receiving on testChannel.
func newPair(t *testing.T, cfgA, cfgB Config) (*radiosim.Medium, *testRadio, *testRadio) {
	m := radiosim.NewMedium(radiosim.DefaultConfig())
	a := newTestRadio(t, m, 1, addrA, cfgA)
	b := newTestRadio(t, m, 2, addrB, cfgB)
	require.Nil(t, a.d.Receive(testChannel, false))
	require.Nil(t, b.d.Receive(testChannel, false))
	m.Run(100)
	require.Equal(t, types.StateWaitingRxFrame, a.d.State())
	require.Equal(t, types.StateWaitingRxFrame, b.d.State())
	return m, a, b
}

// dataFrame builds a PHR-prefixed data frame with short addresses in testPan and room for the FCS.
func dataFrame(seq uint8, dst, src uint16, ackRequest bool, payload ...byte) []byte {
	fcf := uint16(0x8841)
	if ackRequest {
		fcf |= 0x0020
	}
	pan := testPan
	f := []byte{0, byte(fcf), byte(fcf >> 8), seq, byte(pan), byte(pan >> 8),
		byte(dst), byte(dst >> 8), byte(src), byte(src >> 8)}
	f = append(f, payload...)
	f = append(f, 0, 0)
	f[0] = byte(len(f) - 1)
	return f
}

func assertMutex(t *testing.T, d *Driver) {
	s := d.State()
	held := s != types.StateSleep && s != types.StateWaitingRxFrame
	assert.Equal(t, held, d.mutex.Load(), "mutex in state %v", s)
}

func TestNewDriverSleeps(t *testing.T) {
	m := radiosim.NewMedium(radiosim.DefaultConfig())
	r := newTestRadio(t, m, 1, addrA, DefaultConfig())
	assert.Equal(t, types.StateSleep, r.d.State())
	assert.Equal(t, hal.HwDisabled, r.hw.State())
	assert.Equal(t, 16, r.d.Buffers().Size())
	assert.Equal(t, types.DefaultChannel, r.d.Pib().Channel)
	assert.True(t, r.d.Pib().AutoAck)
}

func TestTransmitWithAckPending(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())
	require.Nil(t, b.d.PendingBit().Add(pendingbit.Short, uint64(addrA)))
	require.Nil(t, a.d.PendingBit().Add(pendingbit.Extended, 0xabcdef))

	frame := dataFrame(7, addrB, addrA, true, 0xaa, 0xbb)
	require.Nil(t, a.d.Transmit(frame, testChannel, 0, true))
	assert.Equal(t, types.StateCca, a.d.State())
	assertMutex(t, a.d)

	// sleep during a transmission fails and leaves the tables as they were
	assert.Equal(t, ErrBusy, a.d.Sleep())
	assert.Equal(t, 1, a.d.PendingBit().Len(pendingbit.Extended))
	assert.True(t, a.d.PendingBit().Contains(pendingbit.Extended, 0xabcdef))

	m.RunUntilIdle()

	assert.Equal(t, 1, a.rec.started)
	require.Len(t, a.rec.transmitted, 1)
	tx := a.rec.transmitted[0]
	assert.Equal(t, frame, tx.frame)
	assert.True(t, tx.pending)
	require.NotNil(t, tx.ack)
	assert.True(t, wpan.IsAck(tx.ack))
	assert.Equal(t, uint8(7), wpan.Seq(tx.ack))
	assert.True(t, wpan.FramePending(tx.ack))
	assert.Equal(t, int8(-60), tx.rssi)
	assert.Equal(t, uint8(160), tx.lqi)
	assert.Empty(t, a.rec.txFailed)

	require.Len(t, b.rec.received, 1)
	rx := b.rec.received[0]
	n := int(frame[0])
	assert.Equal(t, frame[:n-1], rx.frame[:n-1])
	assert.Equal(t, int8(-60), rx.rssi)
	assert.Equal(t, uint8(160), rx.lqi)
	assert.Empty(t, b.rec.rxFailed)

	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
	assert.Equal(t, types.StateWaitingRxFrame, b.d.State())
	assertMutex(t, a.d)
	assertMutex(t, b.d)
	assert.Equal(t, a.d.Buffers().Size(), a.d.Buffers().FreeCount())
	assert.Equal(t, b.d.Buffers().Size(), b.d.Buffers().FreeCount())
	assert.Equal(t, 1, b.hw.TaskCount(hal.TaskTxEn))
}

func TestTransmitAckWithoutPending(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())
	require.Nil(t, b.d.PendingBit().Add(pendingbit.Short, 0x0099))

	require.Nil(t, a.d.Transmit(dataFrame(9, addrB, addrA, true), testChannel, 0, true))
	m.RunUntilIdle()

	require.Len(t, a.rec.transmitted, 1)
	assert.False(t, a.rec.transmitted[0].pending)
	assert.False(t, wpan.FramePending(a.rec.transmitted[0].ack))

	// with the lookup disabled every ACK carries the pending bit
	b.d.PendingBit().SetEnabled(false)
	require.Nil(t, a.d.Transmit(dataFrame(10, addrB, addrA, true), testChannel, 0, true))
	m.RunUntilIdle()
	require.Len(t, a.rec.transmitted, 2)
	assert.True(t, a.rec.transmitted[1].pending)
}

func TestTransmitWithoutAckRequest(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())

	frame := dataFrame(3, wpan.BroadcastShortAddr, addrA, false, 1, 2, 3)
	require.Nil(t, a.d.Transmit(frame, testChannel, 4, true))
	m.RunUntilIdle()

	require.Len(t, a.rec.transmitted, 1)
	assert.Nil(t, a.rec.transmitted[0].ack)
	assert.False(t, a.rec.transmitted[0].pending)
	assert.Equal(t, int8(4), a.hw.TxPower())
	require.Len(t, b.rec.received, 1)
	assert.Equal(t, 0, b.hw.TaskCount(hal.TaskTxEn))
}

func TestAckWithOtherSeqIgnored(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.Transmit(dataFrame(7, 0x0099, addrA, true), testChannel, 0, true))
	m.RunUntilIdle()
	assert.Equal(t, types.StateRxAck, a.d.State())
	assertMutex(t, a.d)
	assert.Equal(t, []types.RxError{types.RxErrorInvalidDestAddr}, b.rec.rxFailed)

	require.Nil(t, m.Inject(testChannel, wpan.NewAck(8, false), true))
	m.RunUntilIdle()
	assert.Equal(t, types.StateRxAck, a.d.State())
	assert.Empty(t, a.rec.transmitted)

	require.Nil(t, m.Inject(testChannel, wpan.NewAck(7, true), true))
	m.RunUntilIdle()
	require.Len(t, a.rec.transmitted, 1)
	assert.True(t, a.rec.transmitted[0].pending)
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())

	// the peer drops both ACKs silently
	assert.Equal(t, []types.RxError{types.RxErrorInvalidDestAddr}, b.rec.rxFailed)
	assert.Empty(t, b.rec.received)
}

func TestForcedReceiveDuringRxAck(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.Transmit(dataFrame(7, 0x0099, addrA, true), testChannel, 0, true))
	m.RunUntilIdle()
	require.Equal(t, types.StateRxAck, a.d.State())

	assert.Equal(t, ErrBusy, a.d.Receive(testChannel, false))
	assert.Equal(t, types.StateRxAck, a.d.State())
	require.Nil(t, a.d.Receive(testChannel, true))
	assert.Equal(t, []types.TxError{types.TxErrorNoAck}, a.rec.txFailed)
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
	assertMutex(t, a.d)
}

func TestTransmitBusyChannel(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())
	m.SetChannelBusy(testChannel, true)

	require.Nil(t, a.d.Transmit(dataFrame(1, addrB, addrA, true), testChannel, 0, true))
	m.RunUntilIdle()
	assert.Equal(t, []types.TxError{types.TxErrorBusyChannel}, a.rec.txFailed)
	assert.Equal(t, 0, a.rec.started)
	assert.Empty(t, a.hw.Transmitted())
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
	assertMutex(t, a.d)
}

func TestTransmitWithoutCca(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())
	m.SetChannelBusy(testChannel, true)

	frame := dataFrame(5, addrB, addrA, true, 0x42)
	require.Nil(t, a.d.Transmit(frame, testChannel, 0, false))
	assert.Equal(t, types.StateTxFrame, a.d.State())
	assertMutex(t, a.d)
	assert.Equal(t, ErrBusy, a.d.Transmit(frame, testChannel, 0, false))

	m.RunUntilIdle()
	assert.Empty(t, a.rec.txFailed)
	assert.Equal(t, 1, a.rec.started)
	require.Len(t, a.rec.transmitted, 1)
	assert.Equal(t, uint8(5), wpan.Seq(a.rec.transmitted[0].ack))
	assert.Equal(t, 0, a.hw.TaskCount(hal.TaskCcaStart))
	require.Len(t, b.rec.received, 1)
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
	assertMutex(t, a.d)
}

func TestTransmitWithoutCcaAborted(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.Transmit(dataFrame(1, addrB, addrA, false), testChannel, 0, false))
	assert.Equal(t, ErrBusy, a.d.Receive(testChannel, false))
	require.Nil(t, a.d.Receive(testChannel, true))
	m.RunUntilIdle()

	assert.Equal(t, []types.TxError{types.TxErrorAborted}, a.rec.txFailed)
	assert.Equal(t, 0, a.rec.started)
	assert.Empty(t, a.hw.Transmitted())
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
}

func TestTransmitAbortedDuringCca(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.Transmit(dataFrame(1, addrB, addrA, true), testChannel, 0, true))
	assert.Equal(t, ErrBusy, a.d.Transmit(dataFrame(2, addrB, addrA, true), testChannel, 0, true))
	assert.Equal(t, ErrBusy, a.d.Cca(testChannel))
	require.Nil(t, a.d.Receive(testChannel, true))
	m.RunUntilIdle()

	assert.Equal(t, []types.TxError{types.TxErrorAborted}, a.rec.txFailed)
	assert.Empty(t, a.hw.Transmitted())
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
}

func TestTransmitNoBufferForAck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RxBuffers = 1
	m, a, b := newPair(t, cfg, DefaultConfig())
	a.rec.keep = true

	// b's frame takes a's only buffer
	require.Nil(t, b.d.Transmit(dataFrame(1, addrA, addrB, false), testChannel, 0, true))
	m.RunUntilIdle()
	require.Len(t, a.rec.received, 1)
	require.Equal(t, 0, a.d.Buffers().FreeCount())

	require.Nil(t, a.d.Transmit(dataFrame(2, addrB, addrA, true), testChannel, 0, true))
	for a.d.State() != types.StateRxAck {
		require.True(t, m.Step())
	}
	assert.NotEqual(t, hal.HwRx, a.hw.State())
	assert.Zero(t, a.hw.Shorts()&hal.ShortRxReadyStart)

	// the buffer comes back before b's ACK is on air
	require.Nil(t, a.d.BufferFree(a.rec.kept[0]))
	a.rec.kept = nil
	m.RunUntilIdle()

	assert.Empty(t, a.rec.txFailed)
	require.Len(t, a.rec.transmitted, 1)
	assert.True(t, wpan.IsAck(a.rec.transmitted[0].ack))
	assert.Equal(t, uint8(2), wpan.Seq(a.rec.transmitted[0].ack))
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
	assertMutex(t, a.d)
}

func TestTransmitAckMissedWithoutBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RxBuffers = 1
	m, a, b := newPair(t, cfg, DefaultConfig())
	a.rec.keep = true

	require.Nil(t, b.d.Transmit(dataFrame(1, addrA, addrB, false), testChannel, 0, true))
	m.RunUntilIdle()
	require.Nil(t, a.d.Transmit(dataFrame(2, addrB, addrA, true), testChannel, 0, true))
	m.RunUntilIdle()

	// nothing started the receiver, so the ACK went by unheard
	assert.Equal(t, types.StateRxAck, a.d.State())
	assert.Empty(t, a.rec.transmitted)
	require.Len(t, b.rec.received, 1)

	require.Nil(t, a.d.Receive(testChannel, true))
	m.RunUntilIdle()
	assert.Equal(t, []types.TxError{types.TxErrorNoAck}, a.rec.txFailed)
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
}

func TestInvalidArguments(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())
	_ = m

	assert.Equal(t, ErrInvalidChannel, a.d.Transmit(dataFrame(1, addrB, addrA, false), 10, 0, true))
	assert.Equal(t, ErrInvalidLength, a.d.Transmit([]byte{}, testChannel, 0, true))
	assert.Equal(t, ErrInvalidLength, a.d.Transmit([]byte{2, 0, 0}, testChannel, 0, true))
	assert.Equal(t, ErrInvalidLength, a.d.Transmit([]byte{10, 0x41, 0x88}, testChannel, 0, true))
	assert.Equal(t, ErrInvalidLength, a.d.Transmit(make([]byte, 129), testChannel, 0, true))
	assert.Equal(t, ErrInvalidChannel, a.d.Receive(27, false))
	assert.Equal(t, ErrInvalidChannel, a.d.EnergyDetection(0, 128))
	assert.Equal(t, ErrInvalidChannel, a.d.UpdateChannel(42))
	assert.Equal(t, ErrInvalidBuffer, a.d.BufferFree(nil))
	assert.Equal(t, ErrInvalidBuffer, a.d.BufferFree(&rxbuffer.Buffer{}))

	require.Nil(t, a.d.Sleep())
	assert.Equal(t, ErrBusy, a.d.Transmit(dataFrame(1, addrB, addrA, false), testChannel, 0, true))
	assert.Equal(t, ErrBusy, a.d.Cca(testChannel))
	assert.Equal(t, ErrBusy, a.d.ContinuousCarrier(testChannel, 0))
}

func TestSleep(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.Sleep())
	assert.Equal(t, types.StateSleep, a.d.State())
	assert.Equal(t, hal.HwDisabled, a.hw.State())
	assertMutex(t, a.d)
	require.Nil(t, a.d.Sleep())

	// a sleeping radio hears nothing
	require.Nil(t, m.Inject(testChannel, dataFrame(1, addrA, addrB, false), true))
	m.RunUntilIdle()
	assert.Empty(t, a.rec.received)

	require.Nil(t, a.d.Receive(testChannel, false))
	m.Run(100)
	require.Nil(t, m.Inject(testChannel, dataFrame(2, addrA, addrB, false), true))
	m.RunUntilIdle()
	assert.Len(t, a.rec.received, 1)
}

func TestSleepStuckPeripheral(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())
	_ = m

	a.hw.SetStuck(true)
	require.Nil(t, a.d.Sleep())
	assert.Equal(t, types.StateSleep, a.d.State())
	assert.Equal(t, hal.HwDisabled, a.hw.State())
	assert.Equal(t, hal.DefaultCcaConfig(), a.d.Pib().Cca)
}

func TestBufferFree(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RxBuffers = 1
	m, a, b := newPair(t, DefaultConfig(), cfg)
	b.rec.keep = true

	// freeing an already free buffer changes nothing
	free := b.d.Buffers().FreeFind()
	require.NotNil(t, free)
	require.Nil(t, b.d.BufferFree(free))
	assert.Equal(t, 1, b.d.Buffers().FreeCount())
	assert.Equal(t, types.StateWaitingRxFrame, b.d.State())

	require.Nil(t, a.d.Transmit(dataFrame(1, addrB, addrA, false), testChannel, 0, true))
	m.RunUntilIdle()
	require.Len(t, b.rec.received, 1)
	assert.Equal(t, 0, b.d.Buffers().FreeCount())
	assert.Equal(t, hal.HwRxIdle, b.hw.State())

	// no buffer: the frame is not received
	require.Nil(t, a.d.Transmit(dataFrame(2, addrB, addrA, false), testChannel, 0, true))
	m.RunUntilIdle()
	assert.Len(t, b.rec.received, 1)

	require.Len(t, b.rec.kept, 1)
	require.Nil(t, b.d.BufferFree(b.rec.kept[0]))
	assert.Equal(t, hal.HwRx, b.hw.State())
	require.Nil(t, a.d.Transmit(dataFrame(3, addrB, addrA, false), testChannel, 0, true))
	m.RunUntilIdle()
	require.Len(t, b.rec.received, 2)
	assert.Equal(t, uint8(3), wpan.Seq(b.rec.received[1].frame))
}

func TestAckMissedIrqLatency(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())
	b.hw.SetIrqLatency(types.AckTxEnDelayUs + 20)

	require.Nil(t, a.d.Transmit(dataFrame(5, addrB, addrA, true, 1, 2), testChannel, 0, true))
	m.RunUntilIdle()

	// the frame is delivered even though its ACK could not be sent in time
	require.Len(t, b.rec.received, 1)
	assert.Equal(t, uint8(5), wpan.Seq(b.rec.received[0].frame))
	assert.Equal(t, 0, b.hw.TaskCount(hal.TaskTxEn))
	assert.Equal(t, types.StateWaitingRxFrame, b.d.State())
	assert.Equal(t, hal.HwRx, b.hw.State())
	assertMutex(t, b.d)

	assert.Empty(t, a.rec.transmitted)
	assert.Equal(t, types.StateRxAck, a.d.State())

	// the peer keeps working after the reset
	b.hw.SetIrqLatency(0)
	require.Nil(t, a.d.Receive(testChannel, true))
	require.Nil(t, a.d.Transmit(dataFrame(6, addrB, addrA, true), testChannel, 0, true))
	m.RunUntilIdle()
	require.Len(t, a.rec.transmitted, 1)
	assert.Equal(t, uint8(6), wpan.Seq(a.rec.transmitted[0].ack))
}

func TestDeferredChannel(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.Transmit(dataFrame(4, addrB, addrA, true, 9, 9, 9), testChannel, 0, true))
	for b.d.State() != types.StateRxFrame && m.Step() {
	}
	require.Equal(t, types.StateRxFrame, b.d.State())

	require.Nil(t, b.d.Receive(20, false))
	assert.Equal(t, types.StateRxFrame, b.d.State())
	assert.Equal(t, testChannel, b.hw.Channel())

	m.RunUntilIdle()
	require.Len(t, b.rec.received, 1)
	require.Len(t, a.rec.transmitted, 1)
	assert.Equal(t, types.Channel(20), b.d.Pib().Channel)
	assert.Equal(t, types.Channel(20), b.hw.Channel())
	assert.Equal(t, types.StateWaitingRxFrame, b.d.State())
}

func TestForcedReceiveAbortsReception(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.Transmit(dataFrame(4, addrB, addrA, true, 9, 9, 9), testChannel, 0, true))
	for b.d.State() != types.StateRxFrame && m.Step() {
	}
	require.Nil(t, b.d.Receive(testChannel, true))
	assert.Equal(t, []types.RxError{types.RxErrorAborted}, b.rec.rxFailed)
	assert.Equal(t, types.StateWaitingRxFrame, b.d.State())
	assertMutex(t, b.d)

	m.RunUntilIdle()
	assert.Empty(t, b.rec.received)
	assert.Equal(t, types.StateRxAck, a.d.State())
}

func TestForcedReceiveDuringTxAckDeliversFrame(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.Transmit(dataFrame(4, addrB, addrA, true), testChannel, 0, true))
	for b.d.State() != types.StateTxAck && m.Step() {
	}
	require.Equal(t, types.StateTxAck, b.d.State())
	assertMutex(t, b.d)

	require.Nil(t, b.d.Receive(testChannel, true))
	require.Len(t, b.rec.received, 1)
	assert.Empty(t, b.rec.rxFailed)

	m.RunUntilIdle()
	assert.Empty(t, a.rec.transmitted)
}

func TestPromiscuous(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())
	b.d.SetPromiscuous(true)

	require.Nil(t, a.d.Transmit(dataFrame(4, 0x0099, addrA, true), testChannel, 0, true))
	m.RunUntilIdle()
	require.Len(t, b.rec.received, 1)
	assert.Empty(t, b.rec.rxFailed)
	assert.Equal(t, 0, b.hw.TaskCount(hal.TaskTxEn))

	// ACK frames are delivered too
	require.Nil(t, m.Inject(testChannel, wpan.NewAck(4, false), true))
	m.RunUntilIdle()
	require.Len(t, b.rec.received, 2)
	assert.True(t, wpan.IsAck(b.rec.received[1].frame))
	require.Len(t, a.rec.transmitted, 1)
}

func TestAutoAckDisabled(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())
	b.d.SetAutoAck(false)

	require.Nil(t, a.d.Transmit(dataFrame(4, addrB, addrA, true), testChannel, 0, true))
	m.RunUntilIdle()
	require.Len(t, b.rec.received, 1)
	assert.Equal(t, 0, b.hw.TaskCount(hal.TaskTxEn))
	assert.Equal(t, types.StateRxAck, a.d.State())
}

func TestCrcError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NotifyCrcError = true
	m, _, b := newPair(t, DefaultConfig(), cfg)

	require.Nil(t, m.Inject(testChannel, dataFrame(1, addrB, addrA, true), false))
	m.RunUntilIdle()
	assert.Equal(t, []types.RxError{types.RxErrorInvalidFcs}, b.rec.rxFailed)
	assert.Empty(t, b.rec.received)
	assert.Equal(t, 0, b.hw.TaskCount(hal.TaskTxEn))
	assert.Equal(t, types.StateWaitingRxFrame, b.d.State())

	m2, _, b2 := newPair(t, DefaultConfig(), DefaultConfig())
	require.Nil(t, m2.Inject(testChannel, dataFrame(1, addrB, addrA, true), false))
	m2.RunUntilIdle()
	assert.Empty(t, b2.rec.rxFailed)
}

func TestEnergyDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EdMaxIterations = 3
	m, a, _ := newPair(t, cfg, DefaultConfig())
	m.SetEnergyLevel(testChannel, 0x30)

	require.Nil(t, a.d.EnergyDetection(testChannel, 1000))
	assert.Equal(t, types.StateEnergyDetection, a.d.State())
	assertMutex(t, a.d)
	assert.Equal(t, ErrBusy, a.d.EnergyDetection(testChannel, 1000))
	m.RunUntilIdle()

	assert.Equal(t, []uint8{0xc0}, a.rec.ed)
	assert.Equal(t, 3, a.hw.TaskCount(hal.TaskEdStart))
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())

	m.SetEnergyLevel(testChannel, 0x50)
	require.Nil(t, a.d.EnergyDetection(testChannel, 128))
	m.RunUntilIdle()
	assert.Equal(t, []uint8{0xc0, 0xff}, a.rec.ed)
}

func TestEnergyDetectionFromSleepAndAbort(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())
	require.Nil(t, a.d.Sleep())

	require.Nil(t, a.d.EnergyDetection(testChannel, 0))
	m.RunUntilIdle()
	assert.Equal(t, []uint8{0}, a.rec.ed)

	require.Nil(t, a.d.EnergyDetection(testChannel, 10000))
	m.Run(200)
	require.Nil(t, a.d.Receive(testChannel, true))
	assert.Equal(t, []types.EdError{types.EdErrorAborted}, a.rec.edFailed)
	m.RunUntilIdle()
	assert.Len(t, a.rec.ed, 1)
}

func TestStandaloneCca(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.Cca(testChannel))
	assert.Equal(t, types.StateStandaloneCca, a.d.State())
	m.RunUntilIdle()

	m.SetChannelBusy(testChannel, true)
	require.Nil(t, a.d.Cca(testChannel))
	m.RunUntilIdle()
	assert.Equal(t, []bool{true, false}, a.rec.cca)

	require.Nil(t, a.d.Cca(testChannel))
	require.Nil(t, a.d.Receive(testChannel, true))
	m.RunUntilIdle()
	assert.Equal(t, []types.CcaError{types.CcaErrorAborted}, a.rec.ccaFailed)
	assert.Len(t, a.rec.cca, 2)
}

func TestContinuousCarrier(t *testing.T) {
	m, a, b := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.ContinuousCarrier(testChannel, 8))
	m.RunUntilIdle()
	assert.Equal(t, types.StateContinuousCarrier, a.d.State())
	assert.Equal(t, hal.HwTxIdle, a.hw.State())

	// the carrier occupies the channel for everyone else
	cfg := hal.DefaultCcaConfig()
	cfg.Mode = hal.CcaModeCarrier
	b.d.SetCcaConfig(cfg)
	require.Nil(t, b.d.Cca(testChannel))
	m.RunUntilIdle()
	assert.Equal(t, []bool{false}, b.rec.cca)

	assert.Equal(t, ErrBusy, a.d.Sleep())
	require.Nil(t, a.d.Receive(testChannel, true))
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
	m.RunUntilIdle()
	assert.Equal(t, hal.HwRx, a.hw.State())
}

func TestUpdateChannel(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())

	require.Nil(t, a.d.UpdateChannel(22))
	m.RunUntilIdle()
	assert.Equal(t, types.Channel(22), a.hw.Channel())
	assert.Equal(t, hal.HwRx, a.hw.State())

	require.Nil(t, a.d.Sleep())
	require.Nil(t, a.d.UpdateChannel(23))
	assert.Equal(t, types.StateSleep, a.d.State())
	require.Nil(t, a.d.Receive(24, false))
	assert.Equal(t, types.Channel(24), a.d.Pib().Channel)
}

func TestSetPib(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())
	pib := a.d.Pib()
	pib.Channel = 26
	pib.PanId = 0x1234
	require.Nil(t, a.d.SetPib(pib))
	m.RunUntilIdle()
	assert.Equal(t, pib, a.d.Pib())
	assert.Equal(t, types.Channel(26), a.hw.Channel())

	pib.Channel = 0
	assert.Equal(t, ErrInvalidChannel, a.d.SetPib(pib))
}

func TestFault(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())

	a.hw.RaiseEvent(hal.EventEnd)
	err := a.d.HandleIRQ()
	require.NotNil(t, err)
	assert.True(t, IsFault(err))
	fe := err.(*FaultError)
	assert.Equal(t, types.StateWaitingRxFrame, fe.State)
	assert.Equal(t, hal.EventEnd, fe.Event)
	m.RunUntilIdle()
	assert.Equal(t, uint32(1), a.d.Faults())

	// through the IRQ line the fault is counted and logged, not returned
	a.hw.RaiseEvent(hal.EventEnd)
	m.RunUntilIdle()
	assert.Equal(t, uint32(2), a.d.Faults())
	assert.Equal(t, types.StateWaitingRxFrame, a.d.State())
	assertMutex(t, a.d)

	cfg := DefaultConfig()
	cfg.PanicOnFault = true
	m2, b, _ := newPair(t, cfg, DefaultConfig())
	_ = m2
	b.hw.RaiseEvent(hal.EventEnd)
	assert.Panics(t, func() {
		_ = b.d.HandleIRQ()
	})
	// the critical section was left
	assert.Equal(t, types.StateWaitingRxFrame, b.d.State())
}

func TestRun(t *testing.T) {
	m, a, _ := newPair(t, DefaultConfig(), DefaultConfig())
	_ = m

	irq := make(chan struct{}, 1)
	irq <- struct{}{}
	close(irq)
	assert.Nil(t, a.d.Run(context.Background(), irq))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, a.d.Run(ctx, make(chan struct{})))
}

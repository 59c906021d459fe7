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
	"github.com/openthread/ot-nrf802154/rxbuffer"
	"github.com/openthread/ot-nrf802154/types"
)

// Notifier receives the outcome of driver operations. Calls are made outside the driver's
// critical section, so implementations may call back into the driver.
//
// Buffers passed to Received and Transmitted stay owned by the consumer until returned with
// Driver.BufferFree.
type Notifier interface {
	Received(buf *rxbuffer.Buffer, rssi int8, lqi uint8)
	ReceiveFailed(err types.RxError)
	TransmitStarted(frame []byte)
	// Transmitted reports a completed transmission. ack is nil for frames not requesting an ACK.
	Transmitted(frame []byte, ack *rxbuffer.Buffer, pending bool, rssi int8, lqi uint8)
	TransmitFailed(frame []byte, err types.TxError)
	EnergyDetected(result uint8)
	EnergyDetectionFailed(err types.EdError)
	CcaDone(idle bool)
	CcaFailed(err types.CcaError)
}

// NopNotifier ignores all notifications. Embed it to implement a subset of Notifier.
type NopNotifier struct{}

func (NopNotifier) Received(*rxbuffer.Buffer, int8, uint8)                   {}
func (NopNotifier) ReceiveFailed(types.RxError)                              {}
func (NopNotifier) TransmitStarted([]byte)                                   {}
func (NopNotifier) Transmitted([]byte, *rxbuffer.Buffer, bool, int8, uint8) {}
func (NopNotifier) TransmitFailed([]byte, types.TxError)                     {}
func (NopNotifier) EnergyDetected(uint8)                                     {}
func (NopNotifier) EnergyDetectionFailed(types.EdError)                      {}
func (NopNotifier) CcaDone(bool)                                             {}
func (NopNotifier) CcaFailed(types.CcaError)                                 {}

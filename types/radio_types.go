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

package types

// RadioState is the state of the 802.15.4 radio driver state machine.
type RadioState byte

const (
	StateSleep             RadioState = 0 // transceiver disabled
	StateWaitingRxFrame    RadioState = 1 // receiver enabled, no frame on air yet
	StateRxHeader          RadioState = 2 // frame start detected, MAC header being received
	StateRxFrame           RadioState = 3 // header accepted by the filter, rest of the frame being received
	StateTxAck             RadioState = 4 // automatic ACK being transmitted
	StateCca               RadioState = 5 // clear channel assessment before a frame transmission
	StateTxFrame           RadioState = 6 // frame being transmitted
	StateRxAck             RadioState = 7 // waiting for the ACK of a transmitted frame
	StateEnergyDetection   RadioState = 8
	StateStandaloneCca     RadioState = 9
	StateContinuousCarrier RadioState = 10
)

func (s RadioState) String() string {
	switch s {
	case StateSleep:
		return "sleep"
	case StateWaitingRxFrame:
		return "waiting_rx_frame"
	case StateRxHeader:
		return "rx_header"
	case StateRxFrame:
		return "rx_frame"
	case StateTxAck:
		return "tx_ack"
	case StateCca:
		return "cca"
	case StateTxFrame:
		return "tx_frame"
	case StateRxAck:
		return "rx_ack"
	case StateEnergyDetection:
		return "energy_detection"
	case StateStandaloneCca:
		return "standalone_cca"
	case StateContinuousCarrier:
		return "continuous_carrier"
	default:
		return "invalid"
	}
}

// IsIdleReceive is true for the states in which no operation is in flight.
func (s RadioState) IsIdleReceive() bool {
	return s == StateWaitingRxFrame
}

// IsReceiving is true while a frame reception or its automatic ACK is in progress.
func (s RadioState) IsReceiving() bool {
	return s == StateRxHeader || s == StateRxFrame || s == StateTxAck
}

// HwActivity is the coarse activity of the radio hardware, used for energy accounting.
type HwActivity byte

const (
	HwDisabled HwActivity = 0
	HwRx       HwActivity = 1
	HwTx       HwActivity = 2
)

func (a HwActivity) String() string {
	switch a {
	case HwDisabled:
		return "Off"
	case HwRx:
		return "Rx_"
	case HwTx:
		return "Tx_"
	default:
		return "INVALID"
	}
}

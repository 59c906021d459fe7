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

package energy

import (
	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/types"
)

type RadioConsumer struct {
	radioId int
	radio   RadioStatus
}

// ComputeRadioState accounts the time since the last update to the current activity.
func (r *RadioConsumer) ComputeRadioState(timestamp uint64) {
	logger.AssertLessOrEqual(r.radio.Timestamp, timestamp)
	delta := timestamp - r.radio.Timestamp
	switch r.radio.State {
	case types.HwDisabled:
		r.radio.SpentDisabled += delta
	case types.HwTx:
		r.radio.SpentTx += delta
	case types.HwRx:
		r.radio.SpentRx += delta
	default:
		logger.Panicf("unknown radio activity: %v", r.radio.State)
	}
	r.radio.Timestamp = timestamp
}

func (r *RadioConsumer) SetRadioState(state types.HwActivity, timestamp uint64) {
	// time spent in the previous activity is accounted first.
	r.ComputeRadioState(timestamp)
	r.radio.State = state
}

func (r *RadioConsumer) Status() RadioStatus {
	return r.radio
}

func (r *RadioConsumer) Energy() RadioEnergy {
	return RadioEnergy{
		RadioId:  r.radioId,
		Disabled: float64(r.radio.SpentDisabled) * RadioDisabledConsumption,
		Tx:       float64(r.radio.SpentTx) * RadioTxConsumption,
		Rx:       float64(r.radio.SpentRx) * RadioRxConsumption,
	}
}

func newRadioConsumer(radioId int, timestamp uint64) *RadioConsumer {
	return &RadioConsumer{
		radioId: radioId,
		radio: RadioStatus{
			State:     types.HwDisabled,
			Timestamp: timestamp,
		},
	}
}

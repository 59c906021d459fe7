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
	"github.com/openthread/ot-nrf802154/types"
)

/*
 * Default consumption values by state of the nRF52840 RADIO at 3V (DC/DC enabled).
 * Consumption in kilowatts, time in microseconds, resulting energy in mJ.
 */
const (
	RadioDisabledConsumption float64 = 0.0000000045 // kilowatts @ i = 1.5 uA (System ON idle)
	RadioTxConsumption       float64 = 0.0000144    // kilowatts @ i = 4.8 mA, 0 dBm
	RadioRxConsumption       float64 = 0.0000138    // kilowatts @ i = 4.6 mA
)

type RadioStatus struct {
	State         types.HwActivity
	SpentDisabled uint64
	SpentTx       uint64
	SpentRx       uint64
	Timestamp     uint64
}

// RadioEnergy is the energy in mJ consumed by one radio, per activity.
type RadioEnergy struct {
	RadioId  int     `yaml:"radio"`
	Disabled float64 `yaml:"disabled"`
	Tx       float64 `yaml:"tx"`
	Rx       float64 `yaml:"rx"`
}

func (e RadioEnergy) Total() float64 {
	return e.Disabled + e.Tx + e.Rx
}

type NetworkConsumption struct {
	Timestamp          uint64
	EnergyConsDisabled float64
	EnergyConsTx       float64
	EnergyConsRx       float64
}

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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/types"
)

type EnergyAnalyser struct {
	radios         map[int]*RadioConsumer
	networkHistory []NetworkConsumption
	title          string
}

func (e *EnergyAnalyser) AddRadio(radioId int, timestamp uint64) {
	if _, ok := e.radios[radioId]; ok {
		return
	}
	e.radios[radioId] = newRadioConsumer(radioId, timestamp)
}

func (e *EnergyAnalyser) DeleteRadio(radioId int) {
	delete(e.radios, radioId)

	if len(e.radios) == 0 {
		e.ClearEnergyData()
	}
}

func (e *EnergyAnalyser) GetRadio(radioId int) *RadioConsumer {
	return e.radios[radioId]
}

func (e *EnergyAnalyser) GetNetworkEnergyHistory() []NetworkConsumption {
	return e.networkHistory
}

// SetRadioState records a radio changing its hardware activity at timestamp.
func (e *EnergyAnalyser) SetRadioState(radioId int, state types.HwActivity, timestamp uint64) {
	if r, ok := e.radios[radioId]; ok {
		r.SetRadioState(state, timestamp)
	}
}

// Energies computes the consumption of all radios up to timestamp, sorted by radio id.
func (e *EnergyAnalyser) Energies(timestamp uint64) []RadioEnergy {
	ids := make([]int, 0, len(e.radios))
	for id := range e.radios {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	res := make([]RadioEnergy, 0, len(ids))
	for _, id := range ids {
		r := e.radios[id]
		r.ComputeRadioState(timestamp)
		res = append(res, r.Energy())
	}
	return res
}

func (e *EnergyAnalyser) StoreNetworkEnergy(timestamp uint64) {
	snapshot := NetworkConsumption{
		Timestamp: timestamp,
	}

	netSize := float64(len(e.radios))
	for _, re := range e.Energies(timestamp) {
		snapshot.EnergyConsDisabled += re.Disabled / netSize
		snapshot.EnergyConsTx += re.Tx / netSize
		snapshot.EnergyConsRx += re.Rx / netSize
	}
	e.networkHistory = append(e.networkHistory, snapshot)
}

// SaveEnergyDataToFile writes per-radio and network history files into dir.
func (e *EnergyAnalyser) SaveEnergyDataToFile(dir string, name string, timestamp uint64) error {
	if name == "" {
		if e.title == "" {
			name = "energy"
		} else {
			name = e.title
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating energy result dir %s", dir)
	}

	path := filepath.Join(dir, name)
	fileRadios, err := os.Create(path + "_radios.txt")
	if err != nil {
		return errors.Wrap(err, "creating energy file")
	}
	defer fileRadios.Close()

	fileNetwork, err := os.Create(path + ".txt")
	if err != nil {
		return errors.Wrap(err, "creating energy file")
	}
	defer fileNetwork.Close()

	e.writeEnergyByRadios(fileRadios, timestamp)
	e.writeNetworkEnergy(fileNetwork, timestamp)
	logger.Debugf("energy data saved to %s", path)
	return nil
}

func (e *EnergyAnalyser) writeEnergyByRadios(w io.Writer, timestamp uint64) {
	fmt.Fprintf(w, "Duration of the simulation (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(w, "ID\tDisabled (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")

	for _, re := range e.Energies(timestamp) {
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\n", re.RadioId, re.Disabled, re.Tx, re.Rx)
	}
}

func (e *EnergyAnalyser) writeNetworkEnergy(w io.Writer, timestamp uint64) {
	fmt.Fprintf(w, "Duration of the simulation (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(w, "Time (ms)\tDisabled (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")
	for _, snapshot := range e.networkHistory {
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\n",
			snapshot.Timestamp/1000,
			snapshot.EnergyConsDisabled,
			snapshot.EnergyConsTx,
			snapshot.EnergyConsRx,
		)
	}
}

func (e *EnergyAnalyser) ClearEnergyData() {
	logger.Debugf("radio energy data cleared")
	e.networkHistory = make([]NetworkConsumption, 0, 64)
}

func (e *EnergyAnalyser) SetTitle(title string) {
	e.title = title
}

func NewEnergyAnalyser() *EnergyAnalyser {
	return &EnergyAnalyser{
		radios:         make(map[int]*RadioConsumer),
		networkHistory: make([]NetworkConsumption, 0, 64),
	}
}

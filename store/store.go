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

// Package store persists the PIB and pending-address tables of simulated radios between runs.
package store

import (
	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/pendingbit"
	"github.com/openthread/ot-nrf802154/radio"
)

var ErrNotFound = errors.New("not found")

// RadioState is the persisted configuration of one radio driver.
type RadioState struct {
	Pib             radio.PIB `json:"pib"`
	PendingEnabled  bool      `json:"pending_enabled"`
	PendingShort    []uint64  `json:"pending_short,omitempty"`
	PendingExtended []uint64  `json:"pending_extended,omitempty"`
}

// Snapshot captures the persisted configuration of d.
func Snapshot(d *radio.Driver) *RadioState {
	pb := d.PendingBit()
	return &RadioState{
		Pib:             d.Pib(),
		PendingEnabled:  pb.Enabled(),
		PendingShort:    pb.Addresses(pendingbit.Short),
		PendingExtended: pb.Addresses(pendingbit.Extended),
	}
}

// Restore loads st into d. Addresses beyond the table capacities of d are reported as an error,
// after restoring all that fit.
func Restore(d *radio.Driver, st *RadioState) error {
	if err := d.SetPib(st.Pib); err != nil {
		return errors.Wrap(err, "restoring pib")
	}

	pb := d.PendingBit()
	pb.SetEnabled(st.PendingEnabled)
	pb.Clear(pendingbit.Short)
	pb.Clear(pendingbit.Extended)

	var firstErr error
	add := func(kind pendingbit.Kind, addrs []uint64) {
		for _, a := range addrs {
			if err := pb.Add(kind, a); err != nil && firstErr == nil {
				firstErr = errors.Wrapf(err, "restoring %v address %#x", kind, a)
			}
		}
	}
	add(pendingbit.Short, st.PendingShort)
	add(pendingbit.Extended, st.PendingExtended)
	return firstErr
}

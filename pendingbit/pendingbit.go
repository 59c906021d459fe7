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

// Package pendingbit keeps the address tables that decide the frame pending bit of automatic ACKs.
package pendingbit

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/dissectpkt/wpan"
)

var (
	ErrTableFull      = errors.New("pending address table full")
	ErrNotFound       = errors.New("pending address not found")
	ErrInvalidAddress = errors.New("invalid pending address")
)

// Kind selects one of the two address tables.
type Kind int

const (
	Short    Kind = 0
	Extended Kind = 1
)

func (k Kind) String() string {
	if k == Extended {
		return "extended"
	}
	return "short"
}

// Tables holds the sorted short and extended address tables. It is safe for concurrent use.
type Tables struct {
	mu       sync.Mutex
	enabled  bool
	short    []uint64
	extended []uint64
	capShort int
	capExt   int
}

// New creates empty tables of the given capacities with pending-bit lookup enabled.
func New(shortCapacity, extendedCapacity int) *Tables {
	return &Tables{
		enabled:  true,
		short:    make([]uint64, 0, shortCapacity),
		extended: make([]uint64, 0, extendedCapacity),
		capShort: shortCapacity,
		capExt:   extendedCapacity,
	}
}

func (t *Tables) table(kind Kind) (*[]uint64, int) {
	if kind == Extended {
		return &t.extended, t.capExt
	}
	return &t.short, t.capShort
}

func checkAddr(kind Kind, addr uint64) error {
	if kind == Short && addr > 0xffff {
		return errors.Wrapf(ErrInvalidAddress, "short address %x", addr)
	}
	return nil
}

func search(tbl []uint64, addr uint64) (int, bool) {
	i := sort.Search(len(tbl), func(i int) bool { return tbl[i] >= addr })
	return i, i < len(tbl) && tbl[i] == addr
}

// Add inserts addr into the table of the given kind. Adding an address that is already present
// succeeds without creating a duplicate. Short addresses above 0xffff are rejected.
func (t *Tables) Add(kind Kind, addr uint64) error {
	if err := checkAddr(kind, addr); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, capacity := t.table(kind)
	i, found := search(*tbl, addr)
	if found {
		return nil
	}
	if len(*tbl) >= capacity {
		return errors.Wrapf(ErrTableFull, "%s table, %d entries", kind, capacity)
	}
	*tbl = append(*tbl, 0)
	copy((*tbl)[i+1:], (*tbl)[i:])
	(*tbl)[i] = addr
	return nil
}

// Remove deletes addr from the table of the given kind. ErrNotFound is returned, with the table
// unchanged, if the address is not present.
func (t *Tables) Remove(kind Kind, addr uint64) error {
	if err := checkAddr(kind, addr); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, _ := t.table(kind)
	i, found := search(*tbl, addr)
	if !found {
		return errors.Wrapf(ErrNotFound, "%s address %x", kind, addr)
	}
	*tbl = append((*tbl)[:i], (*tbl)[i+1:]...)
	return nil
}

func (t *Tables) Clear(kind Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, _ := t.table(kind)
	*tbl = (*tbl)[:0]
}

func (t *Tables) Len(kind Kind) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, _ := t.table(kind)
	return len(*tbl)
}

func (t *Tables) Contains(kind Kind, addr uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, _ := t.table(kind)
	_, found := search(*tbl, addr)
	return found
}

// Addresses returns a sorted copy of the table of the given kind.
func (t *Tables) Addresses(kind Kind) []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, _ := t.table(kind)
	return append([]uint64(nil), *tbl...)
}

// SetEnabled switches pending-bit lookup. When disabled every ACK has the pending bit set.
func (t *Tables) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *Tables) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// ShouldBeSet decides the frame pending bit of the ACK answering the PHR-prefixed frame psdu:
// set when the frame's source address is in the matching table.
func (t *Tables) ShouldBeSet(psdu []byte) bool {
	t.mu.Lock()
	enabled := t.enabled
	t.mu.Unlock()
	if !enabled {
		return true
	}

	addr, extended, ok := wpan.SourceAddress(psdu)
	if !ok {
		return false
	}
	kind := Short
	if extended {
		kind = Extended
	}
	return t.Contains(kind, addr)
}

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

package store

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-nrf802154/hal"
	"github.com/openthread/ot-nrf802154/pendingbit"
	"github.com/openthread/ot-nrf802154/radio"
	"github.com/openthread/ot-nrf802154/radiosim"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.Nil(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestDriver(id int, cfg radio.Config) *radio.Driver {
	m := radiosim.NewMedium(radiosim.DefaultConfig())
	return radio.NewDriver(id, m.AddRadio(id), nil, cfg)
}

func TestSaveAndLoadRadio(t *testing.T) {
	s := newTestStore(t)

	st := &RadioState{
		Pib: radio.PIB{
			Channel:   21,
			TxPower:   -4,
			PanId:     0xface,
			ShortAddr: 0x1234,
			ExtAddr:   0x1122334455667788,
			AutoAck:   true,
			Cca:       hal.DefaultCcaConfig(),
		},
		PendingEnabled:  true,
		PendingShort:    []uint64{1, 2},
		PendingExtended: []uint64{0xabcdef},
	}
	require.Nil(t, s.SaveRadio(3, st))

	got, err := s.LoadRadio(3)
	require.Nil(t, err)
	assert.Equal(t, st, got)

	_, err = s.LoadRadio(4)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListAndDeleteRadios(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []int{300, 2, 1} {
		require.Nil(t, s.SaveRadio(id, &RadioState{}))
	}

	ids, err := s.ListRadios()
	require.Nil(t, err)
	assert.Equal(t, []int{1, 2, 300}, ids)

	require.Nil(t, s.DeleteRadio(2))
	ids, err = s.ListRadios()
	require.Nil(t, err)
	assert.Equal(t, []int{1, 300}, ids)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := NewBoltStore(path)
	require.Nil(t, err)
	require.Nil(t, s.SaveRadio(1, &RadioState{PendingShort: []uint64{7}}))
	require.Nil(t, s.Close())

	s, err = NewBoltStore(path)
	require.Nil(t, err)
	defer s.Close()
	st, err := s.LoadRadio(1)
	require.Nil(t, err)
	assert.Equal(t, []uint64{7}, st.PendingShort)
}

func TestSnapshotRestore(t *testing.T) {
	d := newTestDriver(1, radio.DefaultConfig())
	d.SetPanID(0xbeef)
	require.Nil(t, d.UpdateChannel(17))
	require.Nil(t, d.PendingBit().Add(pendingbit.Short, 0x20))
	require.Nil(t, d.PendingBit().Add(pendingbit.Extended, 0x99))
	st := Snapshot(d)
	assert.Equal(t, uint16(0xbeef), st.Pib.PanId)
	assert.Equal(t, []uint64{0x20}, st.PendingShort)

	cfg := radio.DefaultConfig()
	cfg.PendingShort = 0
	d2 := newTestDriver(2, cfg)
	err := Restore(d2, st)
	assert.True(t, errors.Is(err, pendingbit.ErrTableFull))
	assert.Equal(t, st.Pib, d2.Pib())
	assert.Equal(t, 0, d2.PendingBit().Len(pendingbit.Short))
	assert.True(t, d2.PendingBit().Contains(pendingbit.Extended, 0x99))

	st.Pib.Channel = 5
	assert.NotNil(t, Restore(d2, st))
}

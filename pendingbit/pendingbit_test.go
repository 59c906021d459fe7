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

package pendingbit

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKeepsSortedWithoutDuplicates(t *testing.T) {
	tbl := New(4, 4)
	for _, a := range []uint64{0x30, 0x10, 0x20, 0x10} {
		require.Nil(t, tbl.Add(Short, a))
	}
	assert.Equal(t, []uint64{0x10, 0x20, 0x30}, tbl.Addresses(Short))
	assert.Equal(t, 0, tbl.Len(Extended))
}

func TestAddFull(t *testing.T) {
	tbl := New(2, 1)
	require.Nil(t, tbl.Add(Short, 1))
	require.Nil(t, tbl.Add(Short, 2))
	err := tbl.Add(Short, 3)
	assert.True(t, errors.Is(err, ErrTableFull))
	// re-adding an existing address still succeeds when full
	assert.Nil(t, tbl.Add(Short, 2))

	require.Nil(t, tbl.Add(Extended, 0x1122334455667788))
	assert.True(t, errors.Is(tbl.Add(Extended, 1), ErrTableFull))
}

func TestShortAddressRange(t *testing.T) {
	tbl := New(2, 2)
	assert.True(t, errors.Is(tbl.Add(Short, 0x10000), ErrInvalidAddress))
	assert.True(t, errors.Is(tbl.Remove(Short, 0x10000), ErrInvalidAddress))
	assert.Equal(t, 0, tbl.Len(Short))

	require.Nil(t, tbl.Add(Short, 0xffff))
	require.Nil(t, tbl.Add(Extended, 0x10000))
	assert.Equal(t, 1, tbl.Len(Short))
	assert.Equal(t, 1, tbl.Len(Extended))
}

func TestRemove(t *testing.T) {
	tbl := New(4, 4)
	require.Nil(t, tbl.Add(Extended, 5))
	require.Nil(t, tbl.Add(Extended, 9))

	err := tbl.Remove(Extended, 7)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, []uint64{5, 9}, tbl.Addresses(Extended))

	assert.Nil(t, tbl.Remove(Extended, 5))
	assert.Equal(t, []uint64{9}, tbl.Addresses(Extended))
	assert.True(t, errors.Is(tbl.Remove(Short, 9), ErrNotFound))

	tbl.Clear(Extended)
	assert.Equal(t, 0, tbl.Len(Extended))
}

func dataFromShort(src uint16) []byte {
	// 2006 data frame, short dst and short src, PAN ID compression
	return []byte{11, 0x41, 0x98, 1, 0xce, 0xfa, 0x34, 0x12, byte(src), byte(src >> 8), 0, 0}
}

func TestShouldBeSet(t *testing.T) {
	tbl := New(4, 4)
	frame := dataFromShort(0xabcd)
	assert.False(t, tbl.ShouldBeSet(frame))

	require.Nil(t, tbl.Add(Short, 0xabcd))
	assert.True(t, tbl.ShouldBeSet(frame))
	assert.False(t, tbl.ShouldBeSet(dataFromShort(0xabce)))

	tbl.SetEnabled(false)
	assert.False(t, tbl.Enabled())
	assert.True(t, tbl.ShouldBeSet(dataFromShort(0xabce)))
}

func TestConcurrentAccess(t *testing.T) {
	tbl := New(64, 64)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for i := uint64(0); i < 16; i++ {
				_ = tbl.Add(Short, base+i)
				_ = tbl.ShouldBeSet(dataFromShort(uint16(base + i)))
			}
		}(uint64(g) * 16)
	}
	wg.Wait()
	addrs := tbl.Addresses(Short)
	assert.Len(t, addrs, 64)
	for i := 1; i < len(addrs); i++ {
		assert.Less(t, addrs[i-1], addrs[i])
	}
}

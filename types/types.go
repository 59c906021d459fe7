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

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
)

type RadioId = int

// Channel is an IEEE 802.15.4 2.4 GHz O-QPSK channel number.
type Channel = uint8

const (
	MinChannel     Channel = 11
	MaxChannel     Channel = 26
	DefaultChannel Channel = 11
	InvalidChannel Channel = 0
)

// IEEE 802.15.4-2015 2.4 GHz O-QPSK PHY parameters, as used by the nRF RADIO peripheral.
const (
	PhrSize          = 1   // PHY header (length byte)
	FcfSize          = 2   // MAC frame control field
	DsnSize          = 1   // MAC sequence number
	FcsSize          = 2   // MAC frame check sequence (CRC16)
	MaxPsduSize      = 127 // max PSDU length excluding PHR
	AckPsduLength    = 5   // FCF + DSN + FCS
	TimeUsPerSymbol  = 16
	TimeUsPerByte    = 32
	ShrDurationUs    = 5 * TimeUsPerByte // preamble (4 bytes) + SFD (1 byte)
	TurnaroundTimeUs = 12 * TimeUsPerSymbol
	CcaDurationUs    = 8 * TimeUsPerSymbol
	EdIterDurationUs = 128
	AckIfsUs         = TurnaroundTimeUs
	TxRampUpUs       = 40 // transmitter ramp-up time
	RxRampUpUs       = 40 // receiver ramp-up time
	EndEventLatUs    = 23 // END event latency
)

// AckTxEnDelayUs is the delay after END at which TXEN must be triggered for the ACK to start
// exactly AckIfsUs after the end of the received frame.
const AckTxEnDelayUs = AckIfsUs - TxRampUpUs - EndEventLatUs

// Ever is the time value for "never" in the simulated clock.
const Ever uint64 = math.MaxUint64

// ValidChannel reports whether ch is a 2.4 GHz 802.15.4 channel.
func ValidChannel(ch Channel) bool {
	return ch >= MinChannel && ch <= MaxChannel
}

// ChannelFrequency returns the RADIO FREQUENCY register value (MHz offset from 2400 MHz) for ch.
func ChannelFrequency(ch Channel) uint32 {
	return 5 + 5*uint32(ch-MinChannel)
}

// FrameDurationUs returns the on-air time of a PSDU of psduLen bytes, including SHR and PHR.
func FrameDurationUs(psduLen int) uint64 {
	return uint64(ShrDurationUs + (PhrSize+psduLen)*TimeUsPerByte)
}

// ParseChannel parses a decimal channel string, checking the valid range.
func ParseChannel(s string) (Channel, error) {
	ch, err := strconv.Atoi(s)
	if err != nil {
		return InvalidChannel, errors.Wrapf(err, "invalid channel %q", s)
	}
	if ch < int(MinChannel) || ch > int(MaxChannel) {
		return InvalidChannel, errors.Errorf("channel %d out of range [%d, %d]", ch, MinChannel, MaxChannel)
	}
	return Channel(ch), nil
}

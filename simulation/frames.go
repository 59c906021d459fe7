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

package simulation

import (
	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/types"
)

const (
	fcfData        = 0x0001
	fcfAckRequest  = 0x0020
	fcfPanIdCompr  = 0x0040
	fcfDstShort    = 0x0800
	fcfSrcShort    = 0x8000
	maxMacFrameLen = types.MaxPsduSize - types.FcsSize
)

// PhrFrame prefixes a MAC frame, given without FCS, with its PHR and appends room for the FCS.
func PhrFrame(mac []byte) ([]byte, error) {
	if len(mac) < types.FcfSize+types.DsnSize || len(mac) > maxMacFrameLen {
		return nil, errors.Errorf("MAC frame length %d out of range [%d, %d]", len(mac), types.FcfSize+types.DsnSize, maxMacFrameLen)
	}
	frame := make([]byte, 0, types.PhrSize+len(mac)+types.FcsSize)
	frame = append(frame, byte(len(mac)+types.FcsSize))
	frame = append(frame, mac...)
	return append(frame, 0, 0), nil
}

// DataFrame builds a PHR-prefixed data frame from src to dst within pan, using short addresses.
func DataFrame(seq uint8, pan, dst, src uint16, ackRequest bool, payload []byte) ([]byte, error) {
	fcf := uint16(fcfData | fcfPanIdCompr | fcfDstShort | fcfSrcShort)
	if ackRequest {
		fcf |= fcfAckRequest
	}
	mac := []byte{
		byte(fcf), byte(fcf >> 8), seq,
		byte(pan), byte(pan >> 8),
		byte(dst), byte(dst >> 8),
		byte(src), byte(src >> 8),
	}
	return PhrFrame(append(mac, payload...))
}

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

package wpan

import (
	"github.com/openthread/ot-nrf802154/types"
)

const (
	ackHeaderWithPending    = 0x12
	ackHeaderWithoutPending = 0x02

	// AckMatchPattern and AckMatchMask select frame type ACK and the DSN in the PHR+FCF+DSN word
	// compared by the MHMU (MAC header match unit).
	AckMatchPattern uint32 = 0x00000200
	AckMatchMask    uint32 = 0xff000700
	ackMatchDsnShift       = 24
)

// NewAck builds an immediate ACK frame buffer (PHR, FCF, DSN and room for the FCS) for seq.
func NewAck(seq uint8, pending bool) []byte {
	ack := make([]byte, types.PhrSize+types.AckPsduLength)
	ack[PhrOffset] = types.AckPsduLength
	SetAckPending(ack, pending)
	ack[DsnOffset] = seq
	return ack
}

// SetAckPending sets or clears the frame pending bit of an ACK buffer built by NewAck.
func SetAckPending(ack []byte, pending bool) {
	if pending {
		ack[FcfOffset] = ackHeaderWithPending
	} else {
		ack[FcfOffset] = ackHeaderWithoutPending
	}
	ack[FcfOffset+1] = 0
}

// AckMatchSearchPattern returns the MHMU search pattern matching the ACK of a frame with seq.
func AckMatchSearchPattern(seq uint8) uint32 {
	return AckMatchPattern | uint32(seq)<<ackMatchDsnShift
}

// MhrWord returns PHR, FCF and DSN as a little-endian word, as compared by the MHMU.
func MhrWord(psdu []byte) uint32 {
	var w uint32
	for i := 0; i < 4 && i < len(psdu); i++ {
		w |= uint32(psdu[i]) << (8 * i)
	}
	return w
}

// AckMatches reports whether psdu is the ACK for the frame with sequence number seq.
func AckMatches(psdu []byte, seq uint8) bool {
	return MhrWord(psdu)&AckMatchMask == AckMatchSearchPattern(seq)&AckMatchMask
}

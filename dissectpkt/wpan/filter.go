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
	"encoding/binary"

	"github.com/openthread/ot-nrf802154/types"
)

const (
	FrameVersion2003 = 0
	FrameVersion2006 = 1
	FrameVersion2015 = 2

	BroadcastPanId     uint16 = 0xffff
	BroadcastShortAddr uint16 = 0xffff

	// FilterInitBytes is the number of PHR-prefixed bytes the first filter stage needs.
	FilterInitBytes = types.PhrSize + types.FcfSize

	minFrameLength = types.FcfSize + types.FcsSize
)

// Identity is the addressing information a receiver filters frames on.
type Identity struct {
	PanId     uint16
	ShortAddr uint16
	ExtAddr   uint64
}

// FilterFramePart runs one stage of the incremental frame filter over the first numBytes bytes
// (PHR included) of a frame being received.
//
// The first stage is called with numBytes == FilterInitBytes and checks length, frame type and
// version. It returns the number of bytes needed to check destination addressing. When the returned
// count equals numBytes the frame passed the filter; otherwise the caller waits until that many
// bytes were received and calls again.
func FilterFramePart(psdu []byte, numBytes uint8, id Identity) (uint8, types.RxError) {
	if len(psdu) < int(numBytes) || numBytes < FilterInitBytes {
		return numBytes, types.RxErrorInvalidLength
	}

	if numBytes == FilterInitBytes {
		length := psdu[PhrOffset]
		if length < minFrameLength || length > types.MaxPsduSize {
			return numBytes, types.RxErrorInvalidLength
		}
		fc := FrameControlOf(psdu)
		if !frameTypeAndVersionAccepted(fc) {
			return numBytes, types.RxErrorInvalidFrame
		}
		end := dstAddressingEnd(fc)
		if int(end)+types.FcsSize > int(length)+types.PhrSize {
			return numBytes, types.RxErrorInvalidLength
		}
		return end, types.RxErrorNone
	}

	fc := FrameControlOf(psdu)
	end := dstAddressingEnd(fc)
	if numBytes < end {
		return end, types.RxErrorNone
	}
	return numBytes, dstAddressingCheck(psdu, fc, id)
}

func frameTypeAndVersionAccepted(fc FrameControl) bool {
	switch fc.FrameType() {
	case FrameTypeBeacon, FrameTypeData, FrameTypeCommand:
		return fc.FrameVersion() <= FrameVersion2015
	default:
		// ACK frames are only accepted by the ACK matching hardware, not by the filter.
		return false
	}
}

// dstAddressingEnd returns the PHR-prefixed offset of the first byte after the destination address.
func dstAddressingEnd(fc FrameControl) uint8 {
	n := uint8(DsnOffset)
	if !fc.SequenceNumberSuppression() {
		n += types.DsnSize
	}
	switch fc.DestAddrMode() {
	case AddrModeShort:
		n += 2
	case AddrModeExtended:
		n += 8
	default:
		return n
	}
	if fc.HasDestPanIdField() {
		n += 2
	}
	return n
}

func dstAddressingCheck(psdu []byte, fc FrameControl, id Identity) types.RxError {
	n := DsnOffset
	if !fc.SequenceNumberSuppression() {
		n += types.DsnSize
	}

	mode := fc.DestAddrMode()
	if mode == AddrModeNone {
		// Frames without destination are for the PAN coordinator; beacons never have one.
		return types.RxErrorNone
	}

	// 2015 frames may elide the destination PAN ID; the address alone decides then.
	if fc.HasDestPanIdField() {
		panId := binary.LittleEndian.Uint16(psdu[n:])
		n += 2
		if panId != BroadcastPanId && panId != id.PanId {
			return types.RxErrorInvalidDestAddr
		}
	}

	switch mode {
	case AddrModeShort:
		addr := binary.LittleEndian.Uint16(psdu[n:])
		if addr != BroadcastShortAddr && addr != id.ShortAddr {
			return types.RxErrorInvalidDestAddr
		}
	case AddrModeExtended:
		if binary.LittleEndian.Uint64(psdu[n:]) != id.ExtAddr {
			return types.RxErrorInvalidDestAddr
		}
	default:
		return types.RxErrorInvalidFrame
	}
	return types.RxErrorNone
}

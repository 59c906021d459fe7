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
	"fmt"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/types"
)

type FrameType = uint16

const (
	FrameTypeBeacon  FrameType = 0
	FrameTypeData    FrameType = 1
	FrameTypeAck     FrameType = 2
	FrameTypeCommand FrameType = 3
)

// Values for both Src and Dst addressing modes, Table 7-3, 802.15.4-2015.
const (
	AddrModeNone     = 0
	AddrModeReserved = 1
	AddrModeShort    = 2
	AddrModeExtended = 3
)

type FrameControl uint16

func (fc FrameControl) String() string {
	return fmt.Sprintf("0x%04x", uint16(fc))
}

func (fc FrameControl) FrameType() FrameType {
	return FrameType(fc & 0x0007)
}

func (fc FrameControl) SecurityEnabled() bool {
	return (fc & 0x0008) != 0
}

func (fc FrameControl) FramePending() bool {
	return (fc & 0x0010) != 0
}

func (fc FrameControl) AckRequest() bool {
	return (fc & 0x0020) != 0
}

func (fc FrameControl) PanidCompression() bool {
	return (fc & 0x0040) != 0
}

func (fc FrameControl) SequenceNumberSuppression() bool {
	return (fc & 0x0100) != 0
}

func (fc FrameControl) IEPresent() bool {
	return (fc & 0x0200) != 0
}

func (fc FrameControl) DestAddrMode() uint16 {
	return uint16((fc & 0x0c00) >> 10)
}

func (fc FrameControl) SourceAddrMode() uint16 {
	return uint16((fc & 0xc000) >> 14)
}

func (fc FrameControl) FrameVersion() uint16 {
	return uint16((fc & 0x3000) >> 12)
}

func (fc *FrameControl) Dissect(bytes []byte) {
	*fc = FrameControl(binary.LittleEndian.Uint16(bytes))
}

func (fc *FrameControl) HasDestPanIdField() bool {
	if fc.FrameVersion() <= 1 {
		return true
	}
	dam := fc.DestAddrMode()
	sam := fc.SourceAddrMode()
	pc := fc.PanidCompression()
	if dam == AddrModeExtended && sam == AddrModeExtended {
		return !pc
	}
	if dam != AddrModeNone && sam != AddrModeNone {
		return true
	}
	if sam == AddrModeNone && dam != AddrModeNone && !pc {
		return true
	}
	if sam == AddrModeNone && dam == AddrModeNone && pc {
		return true
	}
	return false
}

func (fc *FrameControl) HasSourcePanIdField() bool {
	dam := fc.DestAddrMode()
	sam := fc.SourceAddrMode()
	pc := fc.PanidCompression()
	if fc.FrameVersion() <= 1 {
		if sam != AddrModeNone && !pc {
			return true
		}
		return false
	}
	if dam == AddrModeExtended && sam == AddrModeExtended && !pc {
		return false
	}
	if sam == AddrModeNone {
		return false
	}
	return !pc
}

// Offsets into a PHR-prefixed frame buffer, as laid out by the RADIO EasyDMA.
const (
	PhrOffset = 0
	FcfOffset = types.PhrSize
	DsnOffset = types.PhrSize + types.FcfSize
)

var ErrTruncated = errors.New("truncated frame")

type MacFrame struct {
	FrameControl    FrameControl
	Seq             uint8
	DstPanId        uint16
	SrcPanId        uint16
	DstAddrShort    uint16
	SrcAddrShort    uint16
	DstAddrExtended uint64
	SrcAddrExtended uint64
	LengthBytes     uint8 // PSDU length as given by the PHR, FCS included
	HeaderLength    uint8 // PHR + MHR up to and including the source address
}

func (f *MacFrame) String() string {
	if f.FrameControl.FrameType() == FrameTypeAck {
		return fmt.Sprintf("ACK,FC:%s,Seq:%d", f.FrameControl, f.Seq)
	}

	var dstAddrS string
	switch f.FrameControl.DestAddrMode() {
	case AddrModeShort:
		dstAddrS = fmt.Sprintf("%04x", f.DstAddrShort)
	case AddrModeExtended:
		dstAddrS = fmt.Sprintf("%016x", f.DstAddrExtended)
	default:
		dstAddrS = "-"
	}

	return fmt.Sprintf("MAC,FC:%s,Seq:%d,Dst:%s", f.FrameControl, f.Seq, dstAddrS)
}

// Dissect parses the MAC header of a PHR-prefixed frame buffer. A buffer that ends before the
// header does returns ErrTruncated together with the fields parsed so far.
func Dissect(data []byte) (*MacFrame, error) {
	frame := &MacFrame{}
	if len(data) < types.PhrSize+types.FcfSize {
		return frame, errors.Wrapf(ErrTruncated, "%d bytes", len(data))
	}
	frame.LengthBytes = data[PhrOffset]
	frame.FrameControl.Dissect(data[FcfOffset:])
	if frame.FrameControl.FrameType() > FrameTypeCommand {
		// unsupported frame types carry no header we can parse.
		frame.HeaderLength = DsnOffset
		return frame, nil
	}

	n := DsnOffset
	need := func(size int) error {
		if n+size > len(data) {
			return errors.Wrapf(ErrTruncated, "need %d bytes at offset %d, have %d", size, n, len(data))
		}
		return nil
	}

	if !frame.FrameControl.SequenceNumberSuppression() {
		if err := need(1); err != nil {
			return frame, err
		}
		frame.Seq = data[n]
		n += 1
	}
	if frame.FrameControl.HasDestPanIdField() && frame.FrameControl.DestAddrMode() != AddrModeNone {
		if err := need(2); err != nil {
			return frame, err
		}
		frame.DstPanId = binary.LittleEndian.Uint16(data[n : n+2])
		n += 2
	}

	switch frame.FrameControl.DestAddrMode() {
	case AddrModeExtended:
		if err := need(8); err != nil {
			return frame, err
		}
		frame.DstAddrExtended = binary.LittleEndian.Uint64(data[n : n+8])
		n += 8
	case AddrModeShort:
		if err := need(2); err != nil {
			return frame, err
		}
		frame.DstAddrShort = binary.LittleEndian.Uint16(data[n : n+2])
		n += 2
	}

	if frame.FrameControl.HasSourcePanIdField() {
		if err := need(2); err != nil {
			return frame, err
		}
		frame.SrcPanId = binary.LittleEndian.Uint16(data[n : n+2])
		n += 2
	} else {
		frame.SrcPanId = frame.DstPanId
	}

	switch frame.FrameControl.SourceAddrMode() {
	case AddrModeExtended:
		if err := need(8); err != nil {
			return frame, err
		}
		frame.SrcAddrExtended = binary.LittleEndian.Uint64(data[n : n+8])
		n += 8
	case AddrModeShort:
		if err := need(2); err != nil {
			return frame, err
		}
		frame.SrcAddrShort = binary.LittleEndian.Uint16(data[n : n+2])
		n += 2
	}

	frame.HeaderLength = uint8(n)
	return frame, nil
}

// FrameControlOf returns the frame control field of a PHR-prefixed buffer, or 0 if it is too short.
func FrameControlOf(psdu []byte) FrameControl {
	if len(psdu) < types.PhrSize+types.FcfSize {
		return 0
	}
	return FrameControl(binary.LittleEndian.Uint16(psdu[FcfOffset:]))
}

func AckRequested(psdu []byte) bool {
	return FrameControlOf(psdu).AckRequest()
}

func IsAck(psdu []byte) bool {
	return len(psdu) > FcfOffset && FrameControlOf(psdu).FrameType() == FrameTypeAck
}

func FramePending(psdu []byte) bool {
	return FrameControlOf(psdu).FramePending()
}

// Seq returns the sequence number of a PHR-prefixed buffer, or 0 if it has none.
func Seq(psdu []byte) uint8 {
	if len(psdu) <= DsnOffset || FrameControlOf(psdu).SequenceNumberSuppression() {
		return 0
	}
	return psdu[DsnOffset]
}

// SourceAddress extracts the source address of a frame. The address is a short address when
// extended is false. ok is false for frames without (or with a truncated) source address.
func SourceAddress(psdu []byte) (addr uint64, extended bool, ok bool) {
	frame, err := Dissect(psdu)
	if err != nil {
		return 0, false, false
	}
	switch frame.FrameControl.SourceAddrMode() {
	case AddrModeShort:
		return uint64(frame.SrcAddrShort), false, true
	case AddrModeExtended:
		return frame.SrcAddrExtended, true, true
	default:
		return 0, false, false
	}
}

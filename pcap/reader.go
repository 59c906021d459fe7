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

package pcap

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

var ErrBadMagic = errors.New("not a pcap stream")

// ReadFrames reads all frames of a PCAP stream written by Writer.
func ReadFrames(r io.Reader) (FrameType, []Frame, error) {
	var header [pcapFileHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return FrameTypeUnknown, nil, errors.Wrap(err, "reading pcap header")
	}
	if binary.LittleEndian.Uint32(header[:4]) != pcapMagicNumber {
		return FrameTypeUnknown, nil, ErrBadMagic
	}

	frameType := FrameTypeUnknown
	switch binary.LittleEndian.Uint32(header[20:24]) {
	case dltIeee802154:
		frameType = FrameTypeWpan
	case dltIeee802154Tap:
		frameType = FrameTypeWpanTap
	}

	var frames []Frame
	for {
		var fh [pcapFrameHeaderSize]byte
		if _, err := io.ReadFull(r, fh[:]); err == io.EOF {
			return frameType, frames, nil
		} else if err != nil {
			return frameType, frames, errors.Wrap(err, "reading frame header")
		}
		frame := Frame{
			Timestamp: uint64(binary.LittleEndian.Uint32(fh[0:4]))*1000000 + uint64(binary.LittleEndian.Uint32(fh[4:8])),
		}
		data := make([]byte, binary.LittleEndian.Uint32(fh[8:12]))
		if _, err := io.ReadFull(r, data); err != nil {
			return frameType, frames, errors.Wrap(err, "reading frame data")
		}
		if frameType == FrameTypeWpanTap {
			data = parseTap(&frame, data)
		}
		frame.Data = data
		frames = append(frames, frame)
	}
}

func parseTap(frame *Frame, data []byte) []byte {
	if len(data) < 4 {
		return data
	}
	hdrLen := int(binary.LittleEndian.Uint16(data[2:4]))
	if hdrLen > len(data) {
		return data
	}
	for n := 4; n+4 <= hdrLen; {
		tlvType := binary.LittleEndian.Uint16(data[n:])
		tlvLen := int(binary.LittleEndian.Uint16(data[n+2:]))
		v := data[n+4:]
		switch {
		case tlvType == tlvRss && tlvLen == 4:
			frame.Rssi = math.Float32frombits(binary.LittleEndian.Uint32(v))
		case tlvType == tlvChannelAssignment && tlvLen >= 1:
			frame.Channel = v[0]
		case tlvType == tlvLqi && tlvLen == 1:
			frame.Lqi = v[0]
		}
		n += 4 + (tlvLen+3)&^3
	}
	return data[hdrLen:]
}

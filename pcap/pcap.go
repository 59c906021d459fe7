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
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/types"
)

type FrameType int

const (
	FrameTypeOff FrameType = iota
	FrameTypeWpan
	FrameTypeWpanTap
	FrameTypeUnknown
)

const (
	FrameTypeOffStr     string = "off"
	FrameTypeWpanStr    string = "wpan"
	FrameTypeWpanTapStr string = "wpan-tap"
)

const (
	dltIeee802154       = 195
	dltIeee802154Tap    = 283
	pcapMagicNumber     = 0xA1B2C3D4
	pcapVersionMajor    = 2
	pcapVersionMinor    = 4
	pcapFileHeaderSize  = 24
	pcapFrameHeaderSize = 16
	pcapSnapLen         = 256
)

// wpan-tap / DLT IEEE802 15 4 TAP specification is at
// https://gitlab.com/exegin/ieee802-15-4-tap
const (
	tapHeaderSize = 36

	tlvFcsType           = 0
	tlvRss               = 1
	tlvChannelAssignment = 3
	tlvLqi               = 10
)

// Frame is one captured radio frame. Data is the PSDU without PHR, FCS included.
type Frame struct {
	Timestamp uint64
	Data      []byte
	Channel   types.Channel
	Rssi      float32
	Lqi       uint8
}

// Writer appends frames to a PCAP stream.
type Writer struct {
	w         *bufio.Writer
	closer    io.Closer
	frameType FrameType
}

// NewFile creates a PCAP file with all frames using the specified frameType.
func NewFile(filename string, frameType FrameType) (*Writer, error) {
	if frameType != FrameTypeWpan && frameType != FrameTypeWpanTap {
		return nil, errors.Errorf("invalid PCAP frame type: %d", frameType)
	}
	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening pcap file %s", filename)
	}
	pw, err := NewWriter(fd, frameType)
	if err != nil {
		_ = fd.Close()
		return nil, err
	}
	pw.closer = fd
	return pw, nil
}

// NewWriter writes the PCAP file header to w and returns a Writer appending to it.
func NewWriter(w io.Writer, frameType FrameType) (*Writer, error) {
	pw := &Writer{w: bufio.NewWriter(w), frameType: frameType}

	var dlt uint32
	switch frameType {
	case FrameTypeWpan:
		dlt = dltIeee802154
	case FrameTypeWpanTap:
		dlt = dltIeee802154Tap
	default:
		return nil, errors.Errorf("invalid PCAP frame type: %d", frameType)
	}

	var header [pcapFileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], pcapMagicNumber)
	binary.LittleEndian.PutUint16(header[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(header[6:8], pcapVersionMinor)
	binary.LittleEndian.PutUint32(header[16:20], pcapSnapLen)
	binary.LittleEndian.PutUint32(header[20:24], dlt)
	if _, err := pw.w.Write(header[:]); err != nil {
		return nil, err
	}
	return pw, pw.w.Flush()
}

func ParseFrameTypeStr(tp string) FrameType {
	switch tp {
	case FrameTypeOffStr, "":
		return FrameTypeOff
	case FrameTypeWpanStr:
		return FrameTypeWpan
	case FrameTypeWpanTapStr:
		return FrameTypeWpanTap
	default:
		return FrameTypeUnknown
	}
}

func appendTlv(hdr []byte, tlvType uint16, data []byte) []byte {
	var tl [4]byte
	binary.LittleEndian.PutUint16(tl[0:2], tlvType)
	binary.LittleEndian.PutUint16(tl[2:4], uint16(len(data)))
	hdr = append(hdr, tl[:]...)
	hdr = append(hdr, data...)
	for pad := (4 - len(data)%4) % 4; pad > 0; pad-- {
		hdr = append(hdr, 0)
	}
	return hdr
}

func (pw *Writer) tapHeader(frame Frame) []byte {
	hdr := make([]byte, 4, tapHeaderSize)
	hdr[0] = 0 // wpan-tap version
	hdr[1] = 0
	binary.LittleEndian.PutUint16(hdr[2:4], tapHeaderSize)
	hdr = appendTlv(hdr, tlvFcsType, []byte{1}) // 16-bit CRC
	rss := make([]byte, 4)
	binary.LittleEndian.PutUint32(rss, math.Float32bits(frame.Rssi))
	hdr = appendTlv(hdr, tlvRss, rss)
	channel := []byte{frame.Channel, 0, 0} // channel, page 0
	hdr = appendTlv(hdr, tlvChannelAssignment, channel)
	hdr = appendTlv(hdr, tlvLqi, []byte{frame.Lqi})
	return hdr
}

func (pw *Writer) AppendFrame(frame Frame) error {
	var tap []byte
	if pw.frameType == FrameTypeWpanTap {
		tap = pw.tapHeader(frame)
	}

	var header [pcapFrameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], uint32(frame.Timestamp/1000000))
	binary.LittleEndian.PutUint32(header[4:8], uint32(frame.Timestamp%1000000))
	plen := uint32(len(tap) + len(frame.Data))
	binary.LittleEndian.PutUint32(header[8:12], plen)
	binary.LittleEndian.PutUint32(header[12:16], plen)

	if _, err := pw.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := pw.w.Write(tap); err != nil {
		return err
	}
	_, err := pw.w.Write(frame.Data)
	return err
}

func (pw *Writer) Sync() error {
	if err := pw.w.Flush(); err != nil {
		return err
	}
	if f, ok := pw.closer.(*os.File); ok {
		return f.Sync()
	}
	return nil
}

func (pw *Writer) Close() error {
	err := pw.w.Flush()
	if pw.closer != nil {
		if cerr := pw.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

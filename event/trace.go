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

package event

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

var (
	traceMagic = []byte("NRFTRACE")

	ErrBadTrace = errors.New("not an event trace")
)

const traceVersion uint16 = 1

// TraceWriter appends serialized events to a trace stream.
type TraceWriter struct {
	w      *bufio.Writer
	closer io.Closer
	count  int
}

// NewTraceFile creates the trace file filename.
func NewTraceFile(filename string) (*TraceWriter, error) {
	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening trace file %s", filename)
	}
	tw, err := NewTraceWriter(fd)
	if err != nil {
		_ = fd.Close()
		return nil, err
	}
	tw.closer = fd
	return tw, nil
}

// NewTraceWriter writes the trace header to w.
func NewTraceWriter(w io.Writer) (*TraceWriter, error) {
	tw := &TraceWriter{w: bufio.NewWriter(w)}
	var header [10]byte
	copy(header[:8], traceMagic)
	binary.LittleEndian.PutUint16(header[8:], traceVersion)
	if _, err := tw.w.Write(header[:]); err != nil {
		return nil, errors.Wrap(err, "writing trace header")
	}
	return tw, tw.w.Flush()
}

func (tw *TraceWriter) Write(ev *Event) error {
	if _, err := tw.w.Write(ev.Serialize()); err != nil {
		return errors.Wrap(err, "writing trace event")
	}
	tw.count++
	return nil
}

// Count returns the number of events written.
func (tw *TraceWriter) Count() int {
	return tw.count
}

func (tw *TraceWriter) Flush() error {
	return tw.w.Flush()
}

func (tw *TraceWriter) Close() error {
	err := tw.w.Flush()
	if tw.closer != nil {
		if cerr := tw.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// TraceReader reads the events of a trace stream written by TraceWriter.
type TraceReader struct {
	r *bufio.Reader
}

func NewTraceReader(r io.Reader) (*TraceReader, error) {
	tr := &TraceReader{r: bufio.NewReader(r)}
	var header [10]byte
	if _, err := io.ReadFull(tr.r, header[:]); err != nil {
		return nil, errors.Wrap(ErrBadTrace, err.Error())
	}
	if !bytes.Equal(header[:8], traceMagic) {
		return nil, ErrBadTrace
	}
	if v := binary.LittleEndian.Uint16(header[8:]); v != traceVersion {
		return nil, errors.Wrapf(ErrBadTrace, "unsupported version %d", v)
	}
	return tr, nil
}

// Next returns the next event, or io.EOF at the end of the trace.
func (tr *TraceReader) Next() (Event, error) {
	var ev Event
	header := make([]byte, eventMsgHeaderLen)
	if _, err := io.ReadFull(tr.r, header); err == io.EOF {
		return ev, io.EOF
	} else if err != nil {
		return ev, errors.Wrap(err, "reading event header")
	}

	payloadLen := int(binary.LittleEndian.Uint16(header[19:21])) + int(binary.LittleEndian.Uint16(header[21:23]))
	msg := make([]byte, eventMsgHeaderLen+payloadLen)
	copy(msg, header)
	if _, err := io.ReadFull(tr.r, msg[eventMsgHeaderLen:]); err != nil {
		return ev, errors.Wrap(err, "reading event payload")
	}
	ev.Deserialize(msg)
	return ev, nil
}

// ReadAll returns all remaining events.
func (tr *TraceReader) ReadAll() ([]Event, error) {
	var evs []Event
	for {
		ev, err := tr.Next()
		if err == io.EOF {
			return evs, nil
		} else if err != nil {
			return evs, err
		}
		evs = append(evs, ev)
	}
}

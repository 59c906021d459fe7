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

// Command radio-trace-dump prints the radio events of a trace file written by nrf802154-sim.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/event"
)

var args struct {
	Json    bool
	RadioId int
	Types   string
}

func parseArgs() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <trace-file>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  Prints the radio events of a trace file, one per line.\n")
		flag.PrintDefaults()
	}
	flag.BoolVar(&args.Json, "json", false, "print events as JSON objects")
	flag.IntVar(&args.RadioId, "radio", 0, "only print events of this radio")
	flag.StringVar(&args.Types, "type", "", "only print events of these comma-separated types, e.g. received,transmitted")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
}

type filter struct {
	radioId int
	types   map[string]bool
}

func newFilter(radioId int, types string) filter {
	f := filter{radioId: radioId}
	if types != "" {
		f.types = map[string]bool{}
		for _, tp := range strings.Split(types, ",") {
			f.types[strings.TrimSpace(tp)] = true
		}
	}
	return f
}

func (f filter) match(ev *event.Event) bool {
	if f.radioId != 0 && ev.RadioId != f.radioId {
		return false
	}
	return f.types == nil || f.types[event.TypeName(ev.Type)]
}

// dump writes the matching events of trace r to w and returns the number written.
func dump(r io.Reader, w io.Writer, f filter, asJson bool) (int, error) {
	tr, err := event.NewTraceReader(r)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	n := 0
	for {
		ev, err := tr.Next()
		if err == io.EOF {
			return n, nil
		} else if err != nil {
			return n, err
		}
		if !f.match(&ev) {
			continue
		}
		if asJson {
			err = enc.Encode(&ev)
		} else {
			_, err = fmt.Fprintln(w, ev.String())
		}
		if err != nil {
			return n, errors.Wrap(err, "writing event")
		}
		n++
	}
}

func main() {
	parseArgs()

	fd, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "radio-trace-dump: %v\n", err)
		os.Exit(1)
	}
	defer fd.Close()

	if _, err := dump(fd, os.Stdout, newFilter(args.RadioId, args.Types), args.Json); err != nil {
		fmt.Fprintf(os.Stderr, "radio-trace-dump: %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

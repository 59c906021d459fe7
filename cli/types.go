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

package cli

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/pendingbit"
	"github.com/openthread/ot-nrf802154/types"
)

// unquote strips the quotes of a string literal token, if present.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '`') {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

// parseHex parses a hex byte string, allowing spaces and colons between bytes.
func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "").Replace(unquote(s))
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex string %q", s)
	}
	return b, nil
}

// parseAddr parses a decimal or 0x-prefixed hex address of up to bits bits.
func parseAddr(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid address %s", s)
	}
	return v, nil
}

func parsePower(s string) (int8, error) {
	v, err := strconv.ParseInt(s, 10, 8)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid power %s", s)
	}
	return int8(v), nil
}

func parseChannel(ch int) (types.Channel, error) {
	return types.ParseChannel(strconv.Itoa(ch))
}

func parsePendingKind(s string) pendingbit.Kind {
	if s == "ext" {
		return pendingbit.Extended
	}
	return pendingbit.Short
}

// parseGoDuration parses the time argument of 'go'. A bare number is in microseconds.
func parseGoDuration(s string) (uint64, error) {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		s += "us"
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.Errorf("could not parse time duration: %s", s)
	}
	return uint64(d / time.Microsecond), nil
}

func hexAddrs(addrs []uint64) []string {
	s := make([]string, len(addrs))
	for i, a := range addrs {
		s[i] = "0x" + strconv.FormatUint(a, 16)
	}
	return s
}

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

package logger

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	lv, err := ParseLevel("debug")
	assert.Nil(t, err)
	assert.Equal(t, DebugLevel, lv)

	lv, err = ParseLevel("W")
	assert.Nil(t, err)
	assert.Equal(t, WarnLevel, lv)

	lv, err = ParseLevel("")
	assert.Nil(t, err)
	assert.Equal(t, DefaultLevel, lv)

	_, err = ParseLevel("loud")
	assert.NotNil(t, err)
}

func TestLevelString(t *testing.T) {
	for _, lv := range []Level{TraceLevel, DebugLevel, InfoLevel, NoteLevel, WarnLevel, ErrorLevel, OffLevel} {
		parsed, err := ParseLevel(lv.String())
		assert.Nil(t, err)
		assert.Equal(t, lv, parsed)
	}
}

func TestRadioLoggerLevels(t *testing.T) {
	rl := GetRadioLogger(42)
	assert.Same(t, rl, GetRadioLogger(42))

	rl.SetLevel(WarnLevel)
	assert.True(t, rl.IsLevelVisible(ErrorLevel))
	assert.True(t, rl.IsLevelVisible(WarnLevel))
	assert.False(t, rl.IsLevelVisible(DebugLevel))

	var now uint64 = 1234
	rl.SetClock(func() uint64 { return now })
	rl.Debugf("not shown %d", 1)
	rl.Warnf("shown %d", 2)
}

func TestAssertPanics(t *testing.T) {
	assert.Panics(t, func() {
		AssertTrue(false)
	})
	assert.NotPanics(t, func() {
		AssertLessOrEqual(1, 2)
	})
	assert.Panics(t, func() {
		AssertLessOrEqual(3, 2, "queue depth")
	})
}

func TestPanicIfError(t *testing.T) {
	assert.NotPanics(t, func() {
		PanicIfError(nil)
	})
	assert.Panics(t, func() {
		PanicIfError(errors.New("write failed"))
	})
}

func TestGetMessage(t *testing.T) {
	assert.Equal(t, "plain", getMessage("plain", nil))
	assert.Equal(t, "ch 11", getMessage("ch %d", []interface{}{11}))
	assert.Equal(t, "busy", getMessage("", []interface{}{"busy"}))
}

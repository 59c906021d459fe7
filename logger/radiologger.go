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
	"fmt"
	"sync"
)

// RadioLogger is a radio-specific log object. Its level can be set per radio, independent of the
// global level, and each line carries the radio id and the simulated time.
type RadioLogger struct {
	Id    int
	level Level
	clock func() uint64
}

var (
	radioLogs = make(map[int]*RadioLogger, 4)
	mutex     sync.Mutex
)

// GetRadioLogger gets the RadioLogger instance for the given radio id, creating it when needed.
// The logger starts at the global level.
func GetRadioLogger(id int) *RadioLogger {
	mutex.Lock()
	defer mutex.Unlock()

	rl, ok := radioLogs[id]
	if !ok {
		rl = &RadioLogger{
			Id:    id,
			level: currentLevel,
		}
		radioLogs[id] = rl
	}
	return rl
}

// SetClock sets the source of timestamps, in microseconds, shown in each log line.
func (rl *RadioLogger) SetClock(clock func() uint64) {
	rl.clock = clock
}

func (rl *RadioLogger) SetLevel(lv Level) {
	rl.level = lv
}

func (rl *RadioLogger) Level() Level {
	return rl.level
}

// IsLevelVisible returns true if logging at 'level' would be shown.
func (rl *RadioLogger) IsLevelVisible(level Level) bool {
	return level <= rl.level
}

func (rl *RadioLogger) log(level Level, format string, args []interface{}) {
	if level > rl.level {
		return
	}
	var ts uint64
	if rl.clock != nil {
		ts = rl.clock()
	}
	prefix := fmt.Sprintf("radio %d @%d ", rl.Id, ts)
	logAlways(level, prefix+getMessage(format, args))
}

func (rl *RadioLogger) Tracef(format string, args ...interface{}) {
	rl.log(TraceLevel, format, args)
}

func (rl *RadioLogger) Debugf(format string, args ...interface{}) {
	rl.log(DebugLevel, format, args)
}

func (rl *RadioLogger) Infof(format string, args ...interface{}) {
	rl.log(InfoLevel, format, args)
}

func (rl *RadioLogger) Warnf(format string, args ...interface{}) {
	rl.log(WarnLevel, format, args)
}

func (rl *RadioLogger) Errorf(format string, args ...interface{}) {
	rl.log(ErrorLevel, format, args)
}

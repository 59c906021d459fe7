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

package radio

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/hal"
	"github.com/openthread/ot-nrf802154/types"
)

var (
	// ErrBusy is returned when the requested operation is not allowed in the current state.
	ErrBusy           = errors.New("radio busy")
	ErrInvalidChannel = errors.New("invalid channel")
	ErrInvalidLength  = errors.New("invalid frame length")
	ErrInvalidBuffer  = errors.New("buffer not owned by the driver")
)

// FaultError reports a hardware event the state machine has no handler for in its current state.
type FaultError struct {
	State   types.RadioState
	Event   hal.Event
	HwState hal.HwState
	Msg     string
}

func (e *FaultError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("radio fault: %s (state %v, event %v, hw %v)", e.Msg, e.State, e.Event, e.HwState)
	}
	return fmt.Sprintf("radio fault: unexpected %v in state %v (hw %v)", e.Event, e.State, e.HwState)
}

// IsFault reports whether err is, or wraps, a FaultError.
func IsFault(err error) bool {
	_, ok := errors.Cause(err).(*FaultError)
	return ok
}

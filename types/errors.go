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

package types

// RxError is the reason a frame reception was not delivered.
type RxError uint8

const (
	RxErrorNone            RxError = 0
	RxErrorInvalidFrame    RxError = 1
	RxErrorInvalidFcs      RxError = 2
	RxErrorInvalidDestAddr RxError = 3
	RxErrorRuntime         RxError = 4
	RxErrorAborted         RxError = 5
	RxErrorInvalidLength   RxError = 6
)

func (e RxError) String() string {
	switch e {
	case RxErrorNone:
		return "none"
	case RxErrorInvalidFrame:
		return "invalid_frame"
	case RxErrorInvalidFcs:
		return "invalid_fcs"
	case RxErrorInvalidDestAddr:
		return "invalid_dest_addr"
	case RxErrorRuntime:
		return "runtime"
	case RxErrorAborted:
		return "aborted"
	case RxErrorInvalidLength:
		return "invalid_length"
	default:
		return "invalid"
	}
}

// TxError is the reason a requested transmission did not complete.
type TxError uint8

const (
	TxErrorNone        TxError = 0
	TxErrorBusyChannel TxError = 1
	TxErrorNoAck       TxError = 2
	TxErrorAborted     TxError = 3
	TxErrorNoMem       TxError = 4
)

func (e TxError) String() string {
	switch e {
	case TxErrorNone:
		return "none"
	case TxErrorBusyChannel:
		return "busy_channel"
	case TxErrorNoAck:
		return "no_ack"
	case TxErrorAborted:
		return "aborted"
	case TxErrorNoMem:
		return "no_mem"
	default:
		return "invalid"
	}
}

type EdError uint8

const (
	EdErrorNone    EdError = 0
	EdErrorAborted EdError = 1
)

func (e EdError) String() string {
	if e == EdErrorAborted {
		return "aborted"
	}
	return "none"
}

type CcaError uint8

const (
	CcaErrorNone    CcaError = 0
	CcaErrorAborted CcaError = 1
)

func (e CcaError) String() string {
	if e == CcaErrorAborted {
		return "aborted"
	}
	return "none"
}

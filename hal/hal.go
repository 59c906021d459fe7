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

// Package hal describes the nRF RADIO peripheral as used by the 802.15.4 driver: tasks, events,
// shorts, interrupts and the register accessors the driver needs.
package hal

// Task is a RADIO task register.
type Task int

const (
	TaskTxEn Task = iota
	TaskRxEn
	TaskStart
	TaskStop
	TaskDisable
	TaskCcaStart
	TaskCcaStop
	TaskEdStart
	TaskEdStop
)

var taskNames = [...]string{"TXEN", "RXEN", "START", "STOP", "DISABLE", "CCASTART", "CCASTOP", "EDSTART", "EDSTOP"}

func (t Task) String() string {
	if t < 0 || int(t) >= len(taskNames) {
		return "INVALID"
	}
	return taskNames[t]
}

// Event is a RADIO event register.
type Event int

const (
	EventReady Event = iota
	EventAddress
	EventFrameStart
	EventBcMatch
	EventEnd
	EventPhyEnd
	EventDisabled
	EventCrcOk
	EventCrcError
	EventCcaIdle
	EventCcaBusy
	EventEdEnd
	EventMhrMatch
	EventRxReady
	EventTxReady

	EventCount
)

var eventNames = [...]string{"READY", "ADDRESS", "FRAMESTART", "BCMATCH", "END", "PHYEND", "DISABLED",
	"CRCOK", "CRCERROR", "CCAIDLE", "CCABUSY", "EDEND", "MHRMATCH", "RXREADY", "TXREADY"}

func (e Event) String() string {
	if e < 0 || e >= EventCount {
		return "INVALID"
	}
	return eventNames[e]
}

// Interrupt is a mask of events enabled to raise the RADIO IRQ.
type Interrupt uint32

const IntAll Interrupt = 1<<EventCount - 1

// Mask returns the interrupt bit of e.
func (e Event) Mask() Interrupt {
	return 1 << uint(e)
}

// Short is the SHORTS register: a mask of hardware event-to-task links.
type Short uint32

const (
	ShortReadyStart Short = 1 << iota
	ShortEndDisable
	ShortDisabledTxEn
	ShortDisabledRxEn
	ShortAddressRssiStart
	ShortEndStart
	ShortAddressBcStart
	ShortRxReadyCcaStart
	ShortCcaIdleTxEn
	ShortCcaBusyDisable
	ShortReadyEdStart
	ShortEdEndDisable
	ShortCcaIdleStop
	ShortTxReadyStart
	ShortRxReadyStart
	ShortPhyEndDisable
	ShortPhyEndStart

	ShortsIdle Short = 0
)

// HwState is the STATE register of the RADIO.
type HwState int

const (
	HwDisabled HwState = iota
	HwRxRu
	HwRxIdle
	HwRx
	HwRxDisable
	HwTxRu
	HwTxIdle
	HwTx
	HwTxDisable
)

var hwStateNames = [...]string{"Disabled", "RxRu", "RxIdle", "Rx", "RxDisable", "TxRu", "TxIdle", "Tx", "TxDisable"}

func (s HwState) String() string {
	if s < 0 || int(s) >= len(hwStateNames) {
		return "INVALID"
	}
	return hwStateNames[s]
}

// IsTx is true for the transmitter states, ramp-up included.
func (s HwState) IsTx() bool {
	return s == HwTxRu || s == HwTxIdle || s == HwTx
}

type CcaMode int

const (
	CcaModeEd CcaMode = iota
	CcaModeCarrier
	CcaModeCarrierAndEd
	CcaModeCarrierOrEd
)

func (m CcaMode) String() string {
	switch m {
	case CcaModeEd:
		return "ed"
	case CcaModeCarrier:
		return "carrier"
	case CcaModeCarrierAndEd:
		return "carrier_and_ed"
	case CcaModeCarrierOrEd:
		return "carrier_or_ed"
	default:
		return "invalid"
	}
}

// CcaConfig is the CCACTRL register.
type CcaConfig struct {
	Mode          CcaMode `yaml:"mode"`
	EdThreshold   uint8   `yaml:"ed_threshold"`
	CorrThreshold uint8   `yaml:"corr_threshold"`
	CorrLimit     uint8   `yaml:"corr_limit"`
}

func DefaultCcaConfig() CcaConfig {
	return CcaConfig{
		Mode:          CcaModeEd,
		EdThreshold:   0x2d,
		CorrThreshold: 0x2d,
		CorrLimit:     0x02,
	}
}

// EdLoopCountMax is the largest value of the EDCNT register.
const EdLoopCountMax = 0x1fffff

// Radio is the register interface of one RADIO peripheral together with the TIMER channel the
// driver uses to start ACK transmission.
type Radio interface {
	SetFrequency(mhzOffset uint32)
	Frequency() uint32
	SetTxPower(dbm int8)
	TxPower() int8

	// SetPacketPtr sets the EasyDMA buffer: PHR followed by PSDU.
	SetPacketPtr(buf []byte)
	PacketPtr() []byte

	SetShorts(shorts Short)
	Shorts() Short

	TriggerTask(task Task)
	EventGet(event Event) bool
	EventClear(event Event)

	IntEnable(mask Interrupt)
	IntDisable(mask Interrupt)
	IntEnabled() Interrupt

	State() HwState

	// RssiSample returns the last RSSI sample, in -dBm.
	RssiSample() uint8
	EdSample() uint8
	SetEdLoopCount(count uint32)
	CrcOk() bool

	SetBcc(bits uint32)
	Bcc() uint32

	// SetMhmuPattern configures the MAC header match unit. A zero mask disables matching.
	SetMhmuPattern(pattern uint32, mask uint32)

	SetCcaConfig(cfg CcaConfig)

	// Reset power-cycles the peripheral, restoring every register to its reset value.
	Reset()

	// ScheduleTask arms the timer to trigger task delayUs after the last END event. A compare
	// value already in the past never fires.
	ScheduleTask(task Task, delayUs uint32)
	CancelScheduled()
	// TimerCapture returns the microseconds elapsed since the last END event.
	TimerCapture() uint32
}

// IrqSource is implemented by peripherals that deliver their IRQ line to a handler function.
type IrqSource interface {
	SetIrqHandler(handler func())
}

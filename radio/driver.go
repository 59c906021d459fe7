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

// Package radio implements the 802.15.4 radio driver state machine on top of an nRF RADIO
// peripheral. A Driver mediates all access to one transceiver: it enforces the legal sequence of
// operations, filters received frames, and sends and receives immediate ACKs without blocking
// its caller.
package radio

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/openthread/ot-nrf802154/dissectpkt/wpan"
	"github.com/openthread/ot-nrf802154/hal"
	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/pendingbit"
	"github.com/openthread/ot-nrf802154/rxbuffer"
	"github.com/openthread/ot-nrf802154/types"
)

const (
	bccInit = wpan.FilterInitBytes * 8

	shortsRx    = hal.ShortAddressRssiStart | hal.ShortEndDisable | hal.ShortAddressBcStart
	shortsCcaTx = hal.ShortRxReadyCcaStart | hal.ShortCcaBusyDisable | hal.ShortCcaIdleTxEn |
		hal.ShortTxReadyStart | hal.ShortPhyEndDisable
	shortsTx    = hal.ShortTxReadyStart | hal.ShortPhyEndDisable
	shortsTxAck = hal.ShortTxReadyStart | hal.ShortPhyEndDisable
	shortsRxAck = hal.ShortAddressRssiStart | hal.ShortEndDisable
	shortsEd    = hal.ShortReadyEdStart
	shortsCca   = hal.ShortRxReadyCcaStart | hal.ShortCcaBusyDisable

	lqiScale = 4
	edScale  = 4
)

var (
	intWaiting   = hal.EventFrameStart.Mask() | hal.EventBcMatch.Mask() | hal.EventEnd.Mask()
	intTxAck     = hal.EventPhyEnd.Mask()
	intTx        = hal.EventCcaBusy.Mask() | hal.EventAddress.Mask() | hal.EventPhyEnd.Mask()
	intTxNoCca   = hal.EventAddress.Mask() | hal.EventPhyEnd.Mask()
	intRxAck     = hal.EventEnd.Mask()
	intEd        = hal.EventEdEnd.Mask()
	intCca       = hal.EventCcaIdle.Mask() | hal.EventCcaBusy.Mask()
	intCarrier   = hal.EventReady.Mask()
	intSleep     = hal.EventDisabled.Mask()
	isrEventList = []hal.Event{
		hal.EventFrameStart, hal.EventBcMatch, hal.EventAddress, hal.EventEnd, hal.EventPhyEnd,
		hal.EventDisabled, hal.EventReady, hal.EventCcaIdle, hal.EventCcaBusy, hal.EventEdEnd,
	}
)

// Driver is the radio state machine of one transceiver.
type Driver struct {
	id       int
	cfg      Config
	hw       hal.Radio
	notifier Notifier
	log      *logger.RadioLogger

	// cs serializes API calls and the IRQ handler.
	cs sync.Mutex
	// mutex is held in every state but Sleep and WaitingRxFrame.
	mutex  atomic.Bool
	faults atomic.Uint32

	state   types.RadioState
	pib     PIB
	pending *pendingbit.Tables
	pool    *rxbuffer.Pool
	rxBuf   *rxbuffer.Buffer

	filterPassed bool
	ack          []byte
	ackedRssi    int8
	ackedLqi     uint8
	txFrame      []byte
	edRemaining  uint32
	edMax        uint8

	notes []func()
}

// NewDriver creates a driver for hw in the Sleep state. When hw implements hal.IrqSource the
// driver installs its IRQ handler; otherwise the IRQ line is delivered through Run or HandleIRQ.
func NewDriver(id int, hw hal.Radio, notifier Notifier, cfg Config) *Driver {
	cfg.normalize()
	if notifier == nil {
		notifier = NopNotifier{}
	}

	d := &Driver{
		id:       id,
		cfg:      cfg,
		hw:       hw,
		notifier: notifier,
		log:      logger.GetRadioLogger(id),
		state:    types.StateSleep,
		pib:      defaultPib(cfg),
		pending:  pendingbit.New(cfg.PendingShort, cfg.PendingExtended),
		pool:     rxbuffer.NewPool(cfg.RxBuffers),
	}

	d.hwInit()
	d.hw.SetShorts(hal.ShortsIdle)
	d.hw.IntEnable(intSleep)

	if src, ok := hw.(hal.IrqSource); ok {
		src.SetIrqHandler(func() {
			if err := d.HandleIRQ(); err != nil {
				d.log.Warnf("irq: %v", err)
			}
		})
	}
	d.log.Debugf("driver created, irq priority %d", cfg.IrqPriority)
	return d
}

func (d *Driver) Id() int {
	return d.id
}

func (d *Driver) Config() Config {
	return d.cfg
}

// PendingBit returns the address tables deciding the frame pending bit of automatic ACKs.
func (d *Driver) PendingBit() *pendingbit.Tables {
	return d.pending
}

// Buffers returns the receive buffer pool.
func (d *Driver) Buffers() *rxbuffer.Pool {
	return d.pool
}

func (d *Driver) State() types.RadioState {
	d.enter()
	defer d.leave()
	return d.state
}

func (d *Driver) Pib() PIB {
	d.enter()
	defer d.leave()
	return d.pib
}

// enter opens the critical section.
func (d *Driver) enter() {
	d.cs.Lock()
}

// leave closes the critical section and delivers the notifications queued inside it.
func (d *Driver) leave() {
	notes := d.notes
	d.notes = nil
	d.cs.Unlock()

	for _, n := range notes {
		n()
	}
}

func (d *Driver) notify(n func()) {
	d.notes = append(d.notes, n)
}

func (d *Driver) setState(s types.RadioState) {
	if d.state != s {
		d.log.Tracef("state %v -> %v", d.state, s)
	}
	d.state = s
}

// lock takes the driver mutex for an operation starting in Sleep or WaitingRxFrame.
func (d *Driver) lock() bool {
	return d.mutex.CAS(false, true)
}

// HandleIRQ services the RADIO interrupt: every pending enabled event is cleared and handled
// in hardware priority order.
func (d *Driver) HandleIRQ() error {
	d.enter()
	defer d.leave()

	for _, e := range isrEventList {
		if d.hw.IntEnabled()&e.Mask() == 0 || !d.hw.EventGet(e) {
			continue
		}
		d.hw.EventClear(e)
		if err := d.handleEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// Run pumps a channel based IRQ line into HandleIRQ until ctx is done.
func (d *Driver) Run(ctx context.Context, irq <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-irq:
			if !ok {
				return nil
			}
			if err := d.HandleIRQ(); err != nil {
				d.log.Warnf("irq: %v", err)
			}
		}
	}
}

// Faults returns how many unexpected (event, state) combinations the IRQ handler met.
func (d *Driver) Faults() uint32 {
	return d.faults.Load()
}

func (d *Driver) fault(e hal.Event, msg string) error {
	d.faults.Inc()
	err := &FaultError{State: d.state, Event: e, HwState: d.hw.State(), Msg: msg}
	d.log.Errorf("%v", err)
	if d.cfg.PanicOnFault {
		logger.Panicf("%v", err)
	}
	return err
}

// hwInit loads the registers a peripheral reset clears.
func (d *Driver) hwInit() {
	d.hw.SetCcaConfig(d.pib.Cca)
	d.hw.SetTxPower(d.pib.TxPower)
	d.hw.SetFrequency(types.ChannelFrequency(d.pib.Channel))
}

func (d *Driver) clearEvents() {
	for e := hal.Event(0); e < hal.EventCount; e++ {
		d.hw.EventClear(e)
	}
}

// hwDisable returns the peripheral to the Disabled state, resetting it when it does not follow.
func (d *Driver) hwDisable() {
	d.hw.IntDisable(hal.IntAll)
	d.hw.CancelScheduled()
	d.hw.SetShorts(hal.ShortsIdle)
	if d.hw.State() == hal.HwDisabled {
		return
	}
	d.hw.TriggerTask(hal.TaskDisable)
	for i := 0; i < d.cfg.MaxPolls; i++ {
		if d.hw.State() == hal.HwDisabled {
			return
		}
	}
	d.log.Warnf("peripheral stuck in %v, resetting", d.hw.State())
	d.hw.Reset()
	d.hwInit()
}

// enterWaiting frees the mutex and (re)starts reception on the PIB channel.
func (d *Driver) enterWaiting() {
	d.setState(types.StateWaitingRxFrame)
	d.mutex.Store(false)
	d.rxStart()
}

func (d *Driver) rxStart() {
	d.hwDisable()
	d.clearEvents()
	d.hw.SetMhmuPattern(0, 0)
	d.hw.SetFrequency(types.ChannelFrequency(d.pib.Channel))
	d.hw.SetTxPower(d.pib.TxPower)
	d.hw.SetBcc(bccInit)
	d.filterPassed = false

	shorts := shortsRx
	d.rxBuf = d.pool.FreeFind()
	if d.rxBuf != nil {
		d.hw.SetPacketPtr(d.rxBuf.Psdu[:])
		shorts |= hal.ShortRxReadyStart
	} else {
		d.log.Debugf("no free rx buffer, receiver idle")
	}
	d.hw.SetShorts(shorts)
	d.hw.IntEnable(intWaiting)
	d.hw.TriggerTask(hal.TaskRxEn)
}

// Sleep disables the transceiver. It is allowed only when no operation is in progress.
func (d *Driver) Sleep() error {
	d.enter()
	defer d.leave()

	switch d.state {
	case types.StateSleep:
		return nil
	case types.StateWaitingRxFrame:
		if !d.lock() {
			return ErrBusy
		}
	default:
		return ErrBusy
	}

	d.hwDisable()
	d.clearEvents()
	d.hw.IntEnable(intSleep)
	d.rxBuf = nil
	d.setState(types.StateSleep)
	d.mutex.Store(false)
	return nil
}

// Receive switches the transceiver to receive on ch. A reception in progress completes first and
// the channel is applied afterwards, unless force aborts it. Other operations are aborted only
// with force.
func (d *Driver) Receive(ch types.Channel, force bool) error {
	if !types.ValidChannel(ch) {
		return ErrInvalidChannel
	}

	d.enter()
	defer d.leave()

	switch d.state {
	case types.StateSleep, types.StateWaitingRxFrame:
	case types.StateRxHeader, types.StateRxFrame, types.StateTxAck:
		if !force {
			d.pib.Channel = ch
			return nil
		}
		d.abort()
	default:
		if !force {
			return ErrBusy
		}
		d.abort()
	}

	d.pib.Channel = ch
	d.enterWaiting()
	return nil
}

// abort terminates the operation in progress and queues its failure notification.
func (d *Driver) abort() {
	d.log.Debugf("aborting %v", d.state)
	switch d.state {
	case types.StateRxHeader, types.StateRxFrame:
		d.notifyReceiveFailed(types.RxErrorAborted)
	case types.StateTxAck:
		// the frame was received correctly before its ACK was interrupted
		d.deliverReceived(d.rxBuf, d.ackedRssi, d.ackedLqi)
		d.rxBuf = nil
		d.ack = nil
	case types.StateCca, types.StateTxFrame:
		d.notifyTransmitFailed(types.TxErrorAborted)
	case types.StateRxAck:
		d.notifyTransmitFailed(types.TxErrorNoAck)
	case types.StateEnergyDetection:
		d.notify(func() { d.notifier.EnergyDetectionFailed(types.EdErrorAborted) })
	case types.StateStandaloneCca:
		d.notify(func() { d.notifier.CcaFailed(types.CcaErrorAborted) })
	}
}

// Transmit sends the PHR-prefixed frame on ch with power dBm, after a CCA when cca is set. The
// frame buffer must stay untouched until the operation is reported.
func (d *Driver) Transmit(frame []byte, ch types.Channel, power int8, cca bool) error {
	if !types.ValidChannel(ch) {
		return ErrInvalidChannel
	}
	if len(frame) < types.PhrSize || int(frame[0]) < types.FcsSize+1 || int(frame[0]) > types.MaxPsduSize ||
		len(frame) < types.PhrSize+int(frame[0]) {
		return ErrInvalidLength
	}

	d.enter()
	defer d.leave()

	if d.state != types.StateWaitingRxFrame || !d.lock() {
		return ErrBusy
	}

	d.pib.Channel = ch
	d.pib.TxPower = power
	d.txFrame = frame

	d.hwDisable()
	d.clearEvents()
	d.hw.SetFrequency(types.ChannelFrequency(ch))
	d.hw.SetTxPower(power)
	d.hw.SetPacketPtr(frame)
	if cca {
		d.setState(types.StateCca)
		d.hw.SetShorts(shortsCcaTx)
		d.hw.IntEnable(intTx)
		d.hw.TriggerTask(hal.TaskRxEn)
		return nil
	}
	d.setState(types.StateTxFrame)
	d.hw.SetShorts(shortsTx)
	d.hw.IntEnable(intTxNoCca)
	d.hw.TriggerTask(hal.TaskTxEn)
	return nil
}

// EnergyDetection measures the peak energy on ch over durationUs.
func (d *Driver) EnergyDetection(ch types.Channel, durationUs uint32) error {
	if !types.ValidChannel(ch) {
		return ErrInvalidChannel
	}

	d.enter()
	defer d.leave()

	if (d.state != types.StateWaitingRxFrame && d.state != types.StateSleep) || !d.lock() {
		return ErrBusy
	}

	iterations := (durationUs + types.EdIterDurationUs - 1) / types.EdIterDurationUs
	if iterations == 0 {
		iterations = 1
	}
	d.pib.Channel = ch
	d.edRemaining = iterations
	d.edMax = 0
	d.setState(types.StateEnergyDetection)

	d.hwDisable()
	d.clearEvents()
	d.hw.SetFrequency(types.ChannelFrequency(ch))
	d.hw.SetShorts(shortsEd)
	d.edArm()
	d.hw.IntEnable(intEd)
	d.hw.TriggerTask(hal.TaskRxEn)
	return nil
}

// edArm loads the loop count of the next hardware ED run.
func (d *Driver) edArm() {
	n := d.edRemaining
	if n > d.cfg.EdMaxIterations {
		n = d.cfg.EdMaxIterations
	}
	d.edRemaining -= n
	d.hw.SetEdLoopCount(n - 1)
}

// Cca performs a stand-alone clear channel assessment on ch.
func (d *Driver) Cca(ch types.Channel) error {
	if !types.ValidChannel(ch) {
		return ErrInvalidChannel
	}

	d.enter()
	defer d.leave()

	if d.state != types.StateWaitingRxFrame || !d.lock() {
		return ErrBusy
	}

	d.pib.Channel = ch
	d.setState(types.StateStandaloneCca)

	d.hwDisable()
	d.clearEvents()
	d.hw.SetFrequency(types.ChannelFrequency(ch))
	d.hw.SetShorts(shortsCca)
	d.hw.IntEnable(intCca)
	d.hw.TriggerTask(hal.TaskRxEn)
	return nil
}

// ContinuousCarrier emits an unmodulated carrier on ch until aborted by a forced Receive.
func (d *Driver) ContinuousCarrier(ch types.Channel, power int8) error {
	if !types.ValidChannel(ch) {
		return ErrInvalidChannel
	}

	d.enter()
	defer d.leave()

	if d.state != types.StateWaitingRxFrame || !d.lock() {
		return ErrBusy
	}

	d.pib.Channel = ch
	d.pib.TxPower = power
	d.setState(types.StateContinuousCarrier)

	d.hwDisable()
	d.clearEvents()
	d.hw.SetFrequency(types.ChannelFrequency(ch))
	d.hw.SetTxPower(power)
	d.hw.IntEnable(intCarrier)
	d.hw.TriggerTask(hal.TaskTxEn)
	return nil
}

// BufferFree returns a buffer delivered by Received or Transmitted to the pool. A receiver idle for
// lack of buffers is restarted into it.
func (d *Driver) BufferFree(buf *rxbuffer.Buffer) error {
	if buf == nil || d.pool.Lookup(buf.Psdu[:]) != buf {
		return ErrInvalidBuffer
	}

	d.enter()
	defer d.leave()

	if !d.pool.Free(buf) {
		d.log.Tracef("buffer %d already free", buf.Index())
	}

	if d.rxBuf != nil {
		return nil
	}
	if d.state != types.StateWaitingRxFrame && d.state != types.StateRxAck {
		return nil
	}
	hwState := d.hw.State()
	if hwState != hal.HwRxRu && hwState != hal.HwRxIdle {
		return nil
	}
	d.rxBuf = d.pool.FreeFind()
	if d.rxBuf == nil {
		return nil
	}
	d.log.Debugf("rx buffer %d freed, receiver started in %v", d.rxBuf.Index(), d.state)
	d.hw.SetPacketPtr(d.rxBuf.Psdu[:])
	// still ramping up: the READY short starts the receiver
	d.hw.SetShorts(d.hw.Shorts() | hal.ShortRxReadyStart)
	if hwState == hal.HwRxIdle {
		d.hw.TriggerTask(hal.TaskStart)
	}
	return nil
}

// UpdateChannel changes the PIB channel. Reception is restarted on it when idle; otherwise it
// takes effect when the driver next returns to receive.
func (d *Driver) UpdateChannel(ch types.Channel) error {
	if !types.ValidChannel(ch) {
		return ErrInvalidChannel
	}

	d.enter()
	defer d.leave()

	d.pib.Channel = ch
	if d.state == types.StateWaitingRxFrame && d.lock() {
		d.enterWaiting()
	}
	return nil
}

func (d *Driver) SetPanID(panId uint16) {
	d.enter()
	defer d.leave()
	d.pib.PanId = panId
}

func (d *Driver) SetShortAddress(addr uint16) {
	d.enter()
	defer d.leave()
	d.pib.ShortAddr = addr
}

func (d *Driver) SetExtendedAddress(addr uint64) {
	d.enter()
	defer d.leave()
	d.pib.ExtAddr = addr
}

func (d *Driver) SetPromiscuous(enabled bool) {
	d.enter()
	defer d.leave()
	d.pib.Promiscuous = enabled
}

func (d *Driver) SetAutoAck(enabled bool) {
	d.enter()
	defer d.leave()
	d.pib.AutoAck = enabled
}

// SetTxPower sets the power of ACKs and of the next transmissions.
func (d *Driver) SetTxPower(dbm int8) {
	d.enter()
	defer d.leave()
	d.pib.TxPower = dbm
	if !d.state.IsReceiving() && d.state != types.StateTxFrame {
		d.hw.SetTxPower(dbm)
	}
}

func (d *Driver) SetCcaConfig(cfg hal.CcaConfig) {
	d.enter()
	defer d.leave()
	d.pib.Cca = cfg
	d.hw.SetCcaConfig(cfg)
}

// SetPib replaces all PIB attributes. The channel takes effect like with UpdateChannel.
func (d *Driver) SetPib(pib PIB) error {
	if !types.ValidChannel(pib.Channel) {
		return ErrInvalidChannel
	}

	d.enter()
	defer d.leave()

	d.pib = pib
	d.hw.SetCcaConfig(pib.Cca)
	if d.state == types.StateWaitingRxFrame && d.lock() {
		d.enterWaiting()
	}
	return nil
}

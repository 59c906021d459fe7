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
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/ot-nrf802154/event"
	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/pendingbit"
	"github.com/openthread/ot-nrf802154/progctx"
	"github.com/openthread/ot-nrf802154/simulation"
	"github.com/openthread/ot-nrf802154/types"
)

const (
	Prompt = "> "

	defaultEdDurationUs = 8 * types.EdIterDurationUs
	goEverStepUs        = 1000000
)

type CommandContext struct {
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil {
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	root := &itemsYaml
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	// one line per call: the collection itself is flow styled, nested values follow.
	root.Style = yaml.FlowStyle

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner executes CLI commands against a simulation. Commands without a radio selector act
// on the driver under test.
type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
	seq  uint8
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}
		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) GetPrompt() string {
	return rt.sim.Dut().State().String() + Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Command: cmd,
		rt:      rt,
		output:  output,
	}
	rt.sim.SetEventHandler(func(ev *event.Event) {
		cc.outputf("%v\n", ev)
	})

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()
		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	// events raised synchronously by the command are shown before its result
	defer rt.sim.Flush()

	if cmd.Sleep != nil {
		cc.error(rt.sim.Dut().Sleep())
	} else if cmd.Receive != nil {
		rt.executeReceive(cc, cmd.Receive)
	} else if cmd.Transmit != nil {
		rt.executeTransmit(cc, cmd.Transmit)
	} else if cmd.Ed != nil {
		rt.executeEd(cc, cmd.Ed)
	} else if cmd.Cca != nil {
		rt.executeCca(cc, cmd.Cca)
	} else if cmd.Carrier != nil {
		rt.executeCarrier(cc, cmd.Carrier)
	} else if cmd.Pending != nil {
		rt.executePending(cc, cmd.Pending)
	} else if cmd.Inject != nil {
		rt.executeInject(cc, cmd.Inject)
	} else if cmd.Busy != nil {
		rt.executeBusy(cc, cmd.Busy)
	} else if cmd.Energy != nil {
		rt.executeEnergy(cc, cmd.Energy)
	} else if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.State != nil {
		rt.executeState(cc)
	} else if cmd.Stats != nil {
		rt.executeStats(cc)
	} else if cmd.Pib != nil {
		rt.executePib(cc, cmd.Pib)
	} else if cmd.Free != nil {
		rt.executeFree(cc)
	} else if cmd.Save != nil {
		cc.error(rt.sim.Save())
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Exit != nil {
		rt.ctx.Cancel(nil)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// channelOr returns the channel given, or the current channel of the driver under test.
func (rt *CmdRunner) channelOr(ch *ChannelArg) (types.Channel, error) {
	if ch == nil {
		return rt.sim.Dut().Pib().Channel, nil
	}
	return parseChannel(ch.Val)
}

func (rt *CmdRunner) executeReceive(cc *CommandContext, cmd *ReceiveCmd) {
	ch, err := rt.channelOr(cmd.Channel)
	if err != nil {
		cc.error(err)
		return
	}
	cc.error(rt.sim.Dut().Receive(ch, cmd.Force != nil))
}

func (rt *CmdRunner) executeTransmit(cc *CommandContext, cmd *TransmitCmd) {
	var (
		fromPeer   bool
		ackRequest bool
		seq        *int
		dst        *uint16
		ch         *types.Channel
		power      *int8
		payload    []byte
	)
	cca := true
	for _, arg := range cmd.Args {
		switch {
		case arg.Peer != nil:
			fromPeer = true
		case arg.Ack != nil:
			ackRequest = true
		case arg.NoCca != nil:
			cca = false
		case arg.Seq != nil:
			seq = &arg.Seq.Val
		case arg.Dst != nil:
			addr, err := parseAddr(arg.Dst.Addr, 16)
			if err != nil {
				cc.error(err)
				return
			}
			a := uint16(addr)
			dst = &a
		case arg.Channel != nil:
			c, err := parseChannel(arg.Channel.Val)
			if err != nil {
				cc.error(err)
				return
			}
			ch = &c
		case arg.Power != nil:
			p, err := parsePower(arg.Power.Val)
			if err != nil {
				cc.error(err)
				return
			}
			power = &p
		case arg.Payload != nil:
			b, err := parseHex(arg.Payload.Hex)
			if err != nil {
				cc.error(err)
				return
			}
			payload = b
		}
	}

	cfg := rt.sim.Config()
	if fromPeer {
		if seq != nil || ch != nil || power != nil || !cca {
			cc.errorf("transmit peer: seq, ch, power and CCA are taken from the peer")
			return
		}
		to := cfg.DutShortAddr
		if dst != nil {
			to = *dst
		}
		cc.error(rt.sim.PeerTransmit(to, ackRequest, payload))
		return
	}

	pib := rt.sim.Dut().Pib()
	if seq == nil {
		rt.seq++
		s := int(rt.seq)
		seq = &s
	}
	to := cfg.PeerShortAddr
	if dst != nil {
		to = *dst
	}
	if ch == nil {
		ch = &pib.Channel
	}
	if power == nil {
		power = &pib.TxPower
	}
	frame, err := simulation.DataFrame(uint8(*seq), pib.PanId, to, pib.ShortAddr, ackRequest, payload)
	if err != nil {
		cc.error(err)
		return
	}
	cc.error(rt.sim.Dut().Transmit(frame, *ch, *power, cca))
}

func (rt *CmdRunner) executeEd(cc *CommandContext, cmd *EdCmd) {
	var arg *ChannelArg
	if cmd.Channel != nil {
		arg = &ChannelArg{Val: *cmd.Channel}
	}
	ch, err := rt.channelOr(arg)
	if err != nil {
		cc.error(err)
		return
	}
	duration := uint32(defaultEdDurationUs)
	if cmd.Duration != nil {
		if *cmd.Duration <= 0 {
			cc.errorf("invalid duration %d", *cmd.Duration)
			return
		}
		duration = uint32(*cmd.Duration)
	}
	cc.error(rt.sim.Dut().EnergyDetection(ch, duration))
}

func (rt *CmdRunner) executeCca(cc *CommandContext, cmd *CcaCmd) {
	ch, err := rt.channelOr(cmd.Channel)
	if err != nil {
		cc.error(err)
		return
	}
	cc.error(rt.sim.Dut().Cca(ch))
}

func (rt *CmdRunner) executeCarrier(cc *CommandContext, cmd *CarrierCmd) {
	ch, err := rt.channelOr(cmd.Channel)
	if err != nil {
		cc.error(err)
		return
	}
	power := rt.sim.Dut().Pib().TxPower
	if cmd.Power != nil {
		if power, err = parsePower(cmd.Power.Val); err != nil {
			cc.error(err)
			return
		}
	}
	cc.error(rt.sim.Dut().ContinuousCarrier(ch, power))
}

func (rt *CmdRunner) executePending(cc *CommandContext, cmd *PendingCmd) {
	pb := rt.sim.Dut().PendingBit()
	switch {
	case cmd.Add != nil, cmd.Del != nil:
		arg, add := cmd.Add, true
		if arg == nil {
			arg, add = cmd.Del, false
		}
		kind := parsePendingKind(arg.Kind)
		bits := 16
		if kind == pendingbit.Extended {
			bits = 64
		}
		addr, err := parseAddr(arg.Addr, bits)
		if err != nil {
			cc.error(err)
			return
		}
		if add {
			cc.error(pb.Add(kind, addr))
		} else {
			cc.error(pb.Remove(kind, addr))
		}
	case cmd.Clear != nil:
		if cmd.Clear.Kind == "" {
			pb.Clear(pendingbit.Short)
			pb.Clear(pendingbit.Extended)
		} else {
			pb.Clear(parsePendingKind(cmd.Clear.Kind))
		}
	case cmd.Enable != nil:
		pb.SetEnabled(cmd.Enable.On)
	default:
		cc.outputf("enabled: %t\n", pb.Enabled())
		cc.outputf("short: ")
		cc.outputItemsAsYaml(hexAddrs(pb.Addresses(pendingbit.Short)))
		cc.outputf("ext: ")
		cc.outputItemsAsYaml(hexAddrs(pb.Addresses(pendingbit.Extended)))
	}
}

func (rt *CmdRunner) executeInject(cc *CommandContext, cmd *InjectCmd) {
	var arg *ChannelArg
	if cmd.Channel != nil {
		arg = &ChannelArg{Val: cmd.Channel.Val}
	}
	ch, err := rt.channelOr(arg)
	if err != nil {
		cc.error(err)
		return
	}
	mac, err := parseHex(cmd.Hex)
	if err != nil {
		cc.error(err)
		return
	}
	cc.error(rt.sim.Inject(ch, mac, cmd.CrcErr == nil))
}

func (rt *CmdRunner) executeBusy(cc *CommandContext, cmd *BusyCmd) {
	ch, err := parseChannel(cmd.Channel)
	if err != nil {
		cc.error(err)
		return
	}
	if cmd.Busy != nil {
		rt.sim.Medium().SetChannelBusy(ch, cmd.Busy.On)
		return
	}
	if cmd.Level.Val < 0 || cmd.Level.Val > 0xff {
		cc.errorf("energy level %d out of range [0, 255]", cmd.Level.Val)
		return
	}
	rt.sim.Medium().SetEnergyLevel(ch, uint8(cmd.Level.Val))
}

func (rt *CmdRunner) executeEnergy(cc *CommandContext, cmd *EnergyCmd) {
	if cmd.Save != nil {
		cc.error(rt.sim.SaveEnergy(unquote(cmd.Name)))
		return
	}
	for _, e := range rt.sim.EnergyAnalyser().Energies(rt.sim.Now()) {
		cc.outputItemsAsYaml(e)
	}
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	if cmd.Ever != nil {
		for rt.ctx.Err() == nil {
			if err := rt.sim.Go(goEverStepUs); err != nil {
				return
			}
		}
		return
	}

	us, err := parseGoDuration(cmd.Time)
	if err != nil {
		cc.error(err)
		return
	}
	cc.error(rt.sim.Go(us))
}

type radioStatus struct {
	Id      int    `yaml:"id"`
	State   string `yaml:"state"`
	Channel int    `yaml:"channel"`
	Free    int    `yaml:"free_buffers"`
}

func (rt *CmdRunner) executeState(cc *CommandContext) {
	cc.outputf("time: %d\n", rt.sim.Now())
	for _, d := range rt.sim.Radios() {
		cc.outputItemsAsYaml(radioStatus{
			Id:      d.Id(),
			State:   d.State().String(),
			Channel: int(d.Pib().Channel),
			Free:    d.Buffers().FreeCount(),
		})
	}
}

func (rt *CmdRunner) executeStats(cc *CommandContext) {
	cc.outputItemsAsYaml(rt.sim.Stats())
	cc.outputf("dropped: %d\n", rt.sim.Dropped())
}

func (rt *CmdRunner) executePib(cc *CommandContext, cmd *PibCmd) {
	d := rt.sim.Dut()
	pib := d.Pib()
	for _, arg := range cmd.Args {
		var err error
		switch {
		case arg.Channel != nil:
			pib.Channel, err = parseChannel(arg.Channel.Val)
		case arg.PanId != nil:
			var v uint64
			v, err = parseAddr(*arg.PanId, 16)
			pib.PanId = uint16(v)
		case arg.ShortAddr != nil:
			var v uint64
			v, err = parseAddr(*arg.ShortAddr, 16)
			pib.ShortAddr = uint16(v)
		case arg.ExtAddr != nil:
			pib.ExtAddr, err = parseAddr(*arg.ExtAddr, 64)
		case arg.Power != nil:
			pib.TxPower, err = parsePower(arg.Power.Val)
		case arg.Promiscuous != nil:
			pib.Promiscuous = arg.Promiscuous.On
		case arg.AutoAck != nil:
			pib.AutoAck = arg.AutoAck.On
		}
		if err != nil {
			cc.error(err)
			return
		}
	}
	if len(cmd.Args) > 0 {
		if err := d.SetPib(pib); err != nil {
			cc.error(err)
			return
		}
		pib = d.Pib()
	}

	cc.outputf("channel: %d\n", pib.Channel)
	cc.outputf("tx_power: %d\n", pib.TxPower)
	cc.outputf("pan_id: 0x%04x\n", pib.PanId)
	cc.outputf("short_addr: 0x%04x\n", pib.ShortAddr)
	cc.outputf("ext_addr: 0x%016x\n", pib.ExtAddr)
	cc.outputf("promiscuous: %t\n", pib.Promiscuous)
	cc.outputf("auto_ack: %t\n", pib.AutoAck)
	cc.outputf("cca: ")
	cc.outputItemsAsYaml(pib.Cca)
}

// executeFree hands a free buffer back to the driver, which restarts a reception stalled on a
// full pool.
func (rt *CmdRunner) executeFree(cc *CommandContext) {
	d := rt.sim.Dut()
	pool := d.Buffers()
	if buf := pool.FreeFind(); buf != nil {
		cc.error(d.BufferFree(buf))
	}
	cc.outputf("free buffers: %d/%d\n", pool.FreeCount(), pool.Size())
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevel())
		return
	}
	lv, err := logger.ParseLevel(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(lv)
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}

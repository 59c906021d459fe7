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

// Command nrf802154-sim runs the radio driver against a simulated peer and an interactive console.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/cli"
	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/progctx"
	"github.com/openthread/ot-nrf802154/simulation"
	"github.com/openthread/ot-nrf802154/types"
)

type mainArgs struct {
	ConfigFile string
	LogLevel   string
	Channel    string
	PcapFile   string
	PcapType   string
	TraceFile  string
	StoreFile  string
	MqttBroker string
	EnergyDir  string
	History    string
	Echo       bool
}

var args mainArgs

func parseArgs() map[string]bool {
	flag.StringVar(&args.ConfigFile, "config", "", "YAML config file; flags override its settings")
	flag.StringVar(&args.LogLevel, "log", "", "log level: trace, debug, info, note, warn, error or off")
	flag.StringVar(&args.Channel, "channel", "", "channel of both radios (11-26)")
	flag.StringVar(&args.PcapFile, "pcap", "", "write the frames on air to this pcap file")
	flag.StringVar(&args.PcapType, "pcap-type", "", "pcap frame type: wpan or wpan-tap")
	flag.StringVar(&args.TraceFile, "trace", "", "write the radio events to this trace file")
	flag.StringVar(&args.StoreFile, "store", "", "keep the driver configuration in this bbolt file")
	flag.StringVar(&args.MqttBroker, "mqtt", "", "publish the radio events to this MQTT broker, e.g. tcp://localhost:1883")
	flag.StringVar(&args.EnergyDir, "energy-dir", "", "directory of the energy report files")
	flag.StringVar(&args.History, "history", "", "console history file")
	flag.BoolVar(&args.Echo, "echo", false, "echo console input")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// buildConfig reads the config file, if any, and applies the flags given on the command line.
func buildConfig(set map[string]bool) (*simulation.Config, error) {
	cfg := simulation.DefaultConfig()
	if args.ConfigFile != "" {
		if err := simulation.ReadConfigFile(args.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}

	if set["channel"] {
		ch, err := types.ParseChannel(args.Channel)
		if err != nil {
			return nil, err
		}
		cfg.Channel = ch
	}
	overrides := map[string]struct {
		value string
		field *string
	}{
		"log":        {args.LogLevel, &cfg.LogLevel},
		"pcap":       {args.PcapFile, &cfg.PcapFile},
		"pcap-type":  {args.PcapType, &cfg.PcapType},
		"trace":      {args.TraceFile, &cfg.TraceFile},
		"store":      {args.StoreFile, &cfg.StoreFile},
		"mqtt":       {args.MqttBroker, &cfg.Mqtt.Broker},
		"energy-dir": {args.EnergyDir, &cfg.EnergyDir},
	}
	for name, o := range overrides {
		if set[name] {
			*o.field = o.value
		}
	}
	return cfg, cfg.Validate()
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.Go("handleSignals", func() {
		defer signal.Stop(c)
		select {
		case sig := <-c:
			logger.Infof("signal received: %v", sig)
			ctx.Cancel(nil)
		case <-ctx.Done():
		}
	})
}

func main() {
	cfg, err := buildConfig(parseArgs())
	if err != nil {
		fmt.Fprintf(os.Stderr, "nrf802154-sim: %v\n", err)
		os.Exit(2)
	}
	lv, err := logger.ParseLevel(cfg.LogLevel)
	logger.FatalIfError(err)
	logger.SetLevel(lv)

	ctx := progctx.New(context.Background())
	// unblocks the console when the program is cancelled elsewhere
	logger.FatalIfError(ctx.Defer(func() {
		_ = os.Stdin.Close()
	}))
	handleSignals(ctx)

	sim, err := simulation.NewSimulation(ctx, cfg)
	logger.FatalIfError(err)
	logger.Infof("DUT %#04x and peer %#04x on channel %d", cfg.DutShortAddr, cfg.PeerShortAddr, cfg.Channel)

	rt := cli.NewCmdRunner(ctx, sim)
	logger.SetStdoutCallback(cli.Cli)
	ctx.Go("cli", func() {
		err := cli.Cli.Run(rt, &cli.CliOptions{
			EchoInput:   args.Echo,
			HistoryFile: args.History,
		})
		ctx.Cancel(errors.Wrap(err, "console exit"))
	})

	<-ctx.Done()
	logger.Debugf("waiting for the simulation to stop")
	ctx.Wait()

	if err := ctx.Cause(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

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

package simulation

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/ot-nrf802154/bridge"
	"github.com/openthread/ot-nrf802154/pcap"
	"github.com/openthread/ot-nrf802154/radio"
	"github.com/openthread/ot-nrf802154/radiosim"
	"github.com/openthread/ot-nrf802154/types"
)

const (
	DefaultPanId         = 0xface
	DefaultDutShortAddr  = 0x0001
	DefaultPeerShortAddr = 0x0002
	DefaultDutExtAddr    = 0xf4ce360000000001
	DefaultPeerExtAddr   = 0xf4ce360000000002
	DefaultEventQueue    = 256
)

type Config struct {
	Channel       types.Channel   `yaml:"channel"`
	PanId         uint16          `yaml:"pan_id"`
	DutShortAddr  uint16          `yaml:"dut_short_addr"`
	PeerShortAddr uint16          `yaml:"peer_short_addr"`
	DutExtAddr    uint64          `yaml:"dut_ext_addr"`
	PeerExtAddr   uint64          `yaml:"peer_ext_addr"`
	Radio         radio.Config    `yaml:"radio"`
	Medium        radiosim.Config `yaml:"medium"`
	EventQueue    int             `yaml:"event_queue"`
	PcapFile      string          `yaml:"pcap"`
	PcapType      string          `yaml:"pcap_type"`
	TraceFile     string          `yaml:"trace"`
	StoreFile     string          `yaml:"store"`
	EnergyDir     string          `yaml:"energy_dir"`
	Mqtt          bridge.Config   `yaml:"mqtt"`
	LogLevel      string          `yaml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Channel:       types.DefaultChannel,
		PanId:         DefaultPanId,
		DutShortAddr:  DefaultDutShortAddr,
		PeerShortAddr: DefaultPeerShortAddr,
		DutExtAddr:    DefaultDutExtAddr,
		PeerExtAddr:   DefaultPeerExtAddr,
		Radio:         radio.DefaultConfig(),
		Medium:        radiosim.DefaultConfig(),
		EventQueue:    DefaultEventQueue,
		PcapType:      pcap.FrameTypeWpanTapStr,
		EnergyDir:     "tmp",
		Mqtt:          bridge.DefaultConfig(),
		LogLevel:      "warn",
	}
}

// ReadConfigFile overrides the fields of cfg present in a YAML file.
func ReadConfigFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "reading config %s", filename)
	}
	return ParseConfig(data, cfg)
}

func ParseConfig(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, "parsing config")
	}
	return cfg.Validate()
}

func (cfg *Config) Validate() error {
	if !types.ValidChannel(cfg.Channel) {
		return errors.Errorf("invalid channel %d", cfg.Channel)
	}
	if cfg.DutShortAddr == cfg.PeerShortAddr {
		return errors.Errorf("radios share short address %#04x", cfg.DutShortAddr)
	}
	if cfg.EventQueue <= 0 {
		cfg.EventQueue = DefaultEventQueue
	}
	if pcap.ParseFrameTypeStr(cfg.PcapType) == pcap.FrameTypeUnknown {
		return errors.Errorf("invalid pcap type %q", cfg.PcapType)
	}
	return nil
}

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
	"github.com/openthread/ot-nrf802154/hal"
)

type Config struct {
	RxBuffers       int    `yaml:"rx_buffers"`
	PendingShort    int    `yaml:"pending_short"`
	PendingExtended int    `yaml:"pending_extended"`
	AutoAck         bool   `yaml:"auto_ack"`
	Promiscuous     bool   `yaml:"promiscuous"`
	NotifyCrcError  bool   `yaml:"notify_crc_error"`
	PanicOnFault    bool   `yaml:"panic_on_fault"`
	MaxPolls        int    `yaml:"max_polls"`        // polls of a hardware state that should change immediately
	EdMaxIterations uint32 `yaml:"ed_max_iterations"` // ED loop iterations per hardware run
	IrqPriority     int    `yaml:"irq_priority"`
}

func DefaultConfig() Config {
	return Config{
		RxBuffers:       16,
		PendingShort:    10,
		PendingExtended: 10,
		AutoAck:         true,
		MaxPolls:        8,
		EdMaxIterations: hal.EdLoopCountMax,
		IrqPriority:     0,
	}
}

// normalize replaces unusable values with their defaults.
func (cfg *Config) normalize() {
	def := DefaultConfig()
	if cfg.RxBuffers <= 0 {
		cfg.RxBuffers = def.RxBuffers
	}
	if cfg.PendingShort < 0 {
		cfg.PendingShort = def.PendingShort
	}
	if cfg.PendingExtended < 0 {
		cfg.PendingExtended = def.PendingExtended
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = def.MaxPolls
	}
	if cfg.EdMaxIterations == 0 || cfg.EdMaxIterations > hal.EdLoopCountMax {
		cfg.EdMaxIterations = def.EdMaxIterations
	}
}

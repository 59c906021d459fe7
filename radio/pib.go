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
	"github.com/openthread/ot-nrf802154/dissectpkt/wpan"
	"github.com/openthread/ot-nrf802154/hal"
	"github.com/openthread/ot-nrf802154/types"
)

// PIB holds the PHY and MAC attributes the driver works with.
type PIB struct {
	Channel     types.Channel `yaml:"channel" json:"channel"`
	TxPower     int8          `yaml:"tx_power" json:"tx_power"`
	PanId       uint16        `yaml:"pan_id" json:"pan_id"`
	ShortAddr   uint16        `yaml:"short_addr" json:"short_addr"`
	ExtAddr     uint64        `yaml:"ext_addr" json:"ext_addr"`
	Promiscuous bool          `yaml:"promiscuous" json:"promiscuous"`
	AutoAck     bool          `yaml:"auto_ack" json:"auto_ack"`
	Cca         hal.CcaConfig `yaml:"cca" json:"cca"`
}

func defaultPib(cfg Config) PIB {
	return PIB{
		Channel:     types.DefaultChannel,
		PanId:       wpan.BroadcastPanId,
		ShortAddr:   wpan.BroadcastShortAddr,
		Promiscuous: cfg.Promiscuous,
		AutoAck:     cfg.AutoAck,
		Cca:         hal.DefaultCcaConfig(),
	}
}

func (p *PIB) identity() wpan.Identity {
	return wpan.Identity{
		PanId:     p.PanId,
		ShortAddr: p.ShortAddr,
		ExtAddr:   p.ExtAddr,
	}
}

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

// Package bridge publishes radio driver events to an MQTT broker.
//
// Events are published as JSON to <prefix>/<radio id>/<event type>. The bridge keeps a retained
// <prefix>/bridge/state of "online" while connected; the broker sets it to "offline" through the
// last will when the connection drops.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/event"
	"github.com/openthread/ot-nrf802154/logger"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
)

type Config struct {
	Broker      string `yaml:"broker"`
	ClientId    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	Qos         byte   `yaml:"qos"`
}

func DefaultConfig() Config {
	return Config{
		ClientId:    "nrf802154-sim",
		TopicPrefix: "nrf802154",
	}
}

// publisher is the part of pahomqtt.Client the bridge uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

type Bridge struct {
	cfg    Config
	client pahomqtt.Client
	pub    publisher
	sent   uint64
}

// New connects to the broker in cfg.
func New(cfg Config) (*Bridge, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker not set")
	}
	def := DefaultConfig()
	if cfg.ClientId == "" {
		cfg.ClientId = def.ClientId
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = def.TopicPrefix
	}

	b := &Bridge{cfg: cfg}
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientId).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(b.stateTopic(), "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			logger.Infof("mqtt connected to %s", cfg.Broker)
			b.publishState("online")
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.Warnf("mqtt connection lost: %v", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	b.client = client
	b.pub = client
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.Errorf("mqtt connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "mqtt connect to %s", cfg.Broker)
	}
	return b, nil
}

func newBridge(cfg Config, pub publisher) *Bridge {
	return &Bridge{cfg: cfg, pub: pub}
}

func (b *Bridge) stateTopic() string {
	return b.cfg.TopicPrefix + "/bridge/state"
}

// Topic returns the topic an event is published to.
func (b *Bridge) Topic(ev *event.Event) string {
	return fmt.Sprintf("%s/%d/%s", b.cfg.TopicPrefix, ev.RadioId, event.TypeName(ev.Type))
}

func (b *Bridge) publishState(state string) {
	token := b.pub.Publish(b.stateTopic(), 1, true, state)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		logger.Warnf("mqtt publish bridge state: %v", token.Error())
	}
}

// Publish sends ev as JSON. It waits for the broker only up to a short timeout; a timeout is
// not an error since the client keeps retrying on its own.
func (b *Bridge) Publish(ev *event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	token := b.pub.Publish(b.Topic(ev), b.cfg.Qos, false, payload)
	if token.WaitTimeout(publishTimeout) {
		if err := token.Error(); err != nil {
			return errors.Wrapf(err, "mqtt publish %s", b.Topic(ev))
		}
	}
	b.sent++
	return nil
}

// Sent returns the number of events handed to the client.
func (b *Bridge) Sent() uint64 {
	return b.sent
}

// Run publishes events from c until c is closed or ctx is done.
func (b *Bridge) Run(ctx context.Context, c <-chan event.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c:
			if !ok {
				return nil
			}
			if err := b.Publish(&ev); err != nil {
				logger.Warnf("%v", err)
			}
		}
	}
}

// Close marks the bridge offline and disconnects.
func (b *Bridge) Close() {
	b.publishState("offline")
	if b.client != nil {
		b.client.Disconnect(1000)
	}
}

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

package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/ot-nrf802154/event"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                       { return true }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
func (t *fakeToken) Error() error { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  interface{}
}

type fakePublisher struct {
	msgs []message
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	p.msgs = append(p.msgs, message{topic, qos, retained, payload})
	return &fakeToken{err: p.err}
}

func TestNewRequiresBroker(t *testing.T) {
	_, err := New(Config{})
	assert.NotNil(t, err)
}

func TestTopic(t *testing.T) {
	b := newBridge(DefaultConfig(), &fakePublisher{})
	ev := &event.Event{Type: event.EventTypeReceived, RadioId: 2}
	assert.Equal(t, "nrf802154/2/received", b.Topic(ev))
	ev.Type = event.EventTypeEnergyDetected
	assert.Equal(t, "nrf802154/2/energy_detected", b.Topic(ev))
}

func TestPublish(t *testing.T) {
	pub := &fakePublisher{}
	b := newBridge(DefaultConfig(), pub)
	ev := &event.Event{
		Timestamp: 1500,
		Type:      event.EventTypeReceived,
		RadioId:   1,
		Channel:   15,
		Rssi:      -60,
		Lqi:       160,
		Data:      []byte{5, 2, 0, 7, 0, 0},
	}
	require.Nil(t, b.Publish(ev))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "nrf802154/1/received", pub.msgs[0].topic)
	assert.False(t, pub.msgs[0].retained)

	var decoded event.Event
	require.Nil(t, json.Unmarshal(pub.msgs[0].payload.([]byte), &decoded))
	assert.Equal(t, *ev, decoded)
	assert.Equal(t, uint64(1), b.Sent())

	pub.err = errors.New("not connected")
	assert.NotNil(t, b.Publish(ev))
	assert.Equal(t, uint64(1), b.Sent())
}

func TestRunAndClose(t *testing.T) {
	pub := &fakePublisher{}
	cfg := DefaultConfig()
	cfg.TopicPrefix = "lab"
	b := newBridge(cfg, pub)

	c := make(chan event.Event, 2)
	c <- event.Event{Type: event.EventTypeCcaDone, RadioId: 1, Idle: true}
	c <- event.Event{Type: event.EventTypeTransmitFailed, RadioId: 3, Error: 2}
	close(c)
	require.Nil(t, b.Run(context.Background(), c))
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "lab/1/cca_done", pub.msgs[0].topic)
	assert.Equal(t, "lab/3/transmit_failed", pub.msgs[1].topic)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, b.Run(ctx, make(chan event.Event)))

	b.Close()
	last := pub.msgs[len(pub.msgs)-1]
	assert.Equal(t, "lab/bridge/state", last.topic)
	assert.True(t, last.retained)
	assert.Equal(t, "offline", last.payload)
}

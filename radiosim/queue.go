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

package radiosim

import (
	"container/heap"

	"github.com/openthread/ot-nrf802154/logger"
	"github.com/openthread/ot-nrf802154/types"
)

// simEvent is one scheduled piece of hardware activity, or an IRQ invocation when irq is set.
type simEvent struct {
	Timestamp uint64
	seq       uint64
	radio     *Radio
	irq       bool
	fn        func()

	index int
}

type eventQueue []*simEvent

func (eq eventQueue) Len() int {
	return len(eq)
}

// Less orders by time; events at the same time run in scheduling order.
func (eq eventQueue) Less(i, j int) bool {
	if eq[i].Timestamp != eq[j].Timestamp {
		return eq[i].Timestamp < eq[j].Timestamp
	}
	return eq[i].seq < eq[j].seq
}

func (eq eventQueue) Swap(i, j int) {
	a, b := eq[i], eq[j]
	if a.index != i || b.index != j {
		logger.Panicf("wrong index")
	}

	eq[i], eq[j] = b, a
	eq[i].index, eq[j].index = i, j
}

func (eq *eventQueue) Push(x interface{}) {
	e := x.(*simEvent)
	*eq = append(*eq, e)
	e.index = len(*eq) - 1
}

func (eq *eventQueue) Pop() (elem interface{}) {
	n := len(*eq)
	elem = (*eq)[n-1]
	(*eq)[n-1] = nil
	*eq = (*eq)[:n-1]
	return
}

type scheduler struct {
	q   eventQueue
	seq uint64
}

func newScheduler() *scheduler {
	s := &scheduler{q: eventQueue{}}
	heap.Init(&s.q)
	return s
}

func (s *scheduler) add(e *simEvent) {
	s.seq++
	e.seq = s.seq
	heap.Push(&s.q, e)
}

func (s *scheduler) nextTimestamp() uint64 {
	if len(s.q) == 0 {
		return types.Ever
	}
	return s.q[0].Timestamp
}

func (s *scheduler) pop() *simEvent {
	return heap.Pop(&s.q).(*simEvent)
}

func (s *scheduler) len() int {
	return len(s.q)
}

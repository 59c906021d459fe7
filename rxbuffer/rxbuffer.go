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

// Package rxbuffer is the pool of frame buffers the receiver writes into.
package rxbuffer

import (
	"sync"

	"github.com/openthread/ot-nrf802154/types"
)

// Buffer holds one PHR-prefixed received frame.
type Buffer struct {
	Psdu  [types.PhrSize + types.MaxPsduSize]byte
	index int
	free  bool
}

func (b *Buffer) Index() int {
	return b.index
}

// Frame returns the PHR-prefixed frame, sized by its PHR.
func (b *Buffer) Frame() []byte {
	n := int(b.Psdu[0])
	if n > types.MaxPsduSize {
		n = types.MaxPsduSize
	}
	return b.Psdu[:types.PhrSize+n]
}

// Pool is a fixed set of receive buffers. The receiver owns a buffer from the start of a reception
// until its consumer returns it with Free.
type Pool struct {
	mu      sync.Mutex
	buffers []*Buffer
}

func NewPool(size int) *Pool {
	p := &Pool{buffers: make([]*Buffer, size)}
	for i := range p.buffers {
		p.buffers[i] = &Buffer{index: i, free: true}
	}
	return p
}

// FreeFind returns the first free buffer, or nil if all are in use.
func (p *Pool) FreeFind() *Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range p.buffers {
		if b.free {
			return b
		}
	}
	return nil
}

func (p *Pool) MarkUsed(b *Buffer) {
	p.mu.Lock()
	b.free = false
	p.mu.Unlock()
}

// Free returns b to the pool. It reports whether the buffer was in use.
func (p *Pool) Free(b *Buffer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	wasUsed := !b.free
	b.free = true
	return wasUsed
}

func (p *Pool) IsFree(b *Buffer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return b.free
}

// Lookup finds the pool buffer whose storage starts at the given frame slice.
func (p *Pool) Lookup(frame []byte) *Buffer {
	if len(frame) == 0 {
		return nil
	}
	for _, b := range p.buffers {
		if &b.Psdu[0] == &frame[0] {
			return b
		}
	}
	return nil
}

func (p *Pool) Size() int {
	return len(p.buffers)
}

// FreeCount returns the number of free buffers.
func (p *Pool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, b := range p.buffers {
		if b.free {
			n++
		}
	}
	return n
}

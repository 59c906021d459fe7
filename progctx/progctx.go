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

// Package progctx tracks the lifetime of a program: its cancellation, the goroutines that must
// finish before it exits, and the cleanup run when it is cancelled.
package progctx

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/openthread/ot-nrf802154/logger"
)

type ProgCtx struct {
	context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	routines map[string]int
	deferred []func()
	cause    error
}

func New(parent context.Context) *ProgCtx {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &ProgCtx{
		Context:  ctx,
		cancel:   cancel,
		routines: map[string]int{},
	}
}

// Cancel cancels the context and runs the deferred functions in reverse order of registration.
// Only the first call has an effect; its err is reported by Cause.
func (ctx *ProgCtx) Cancel(err error) {
	ctx.mu.Lock()
	if ctx.Err() != nil {
		ctx.mu.Unlock()
		return
	}
	ctx.cause = err
	ctx.cancel()
	deferred := ctx.deferred
	ctx.deferred = nil
	ctx.mu.Unlock()

	if err != nil {
		logger.Infof("program exit: %v", err)
	} else {
		logger.Debugf("program exit")
	}
	for i := len(deferred) - 1; i >= 0; i-- {
		deferred[i]()
	}
}

// Cause returns the error Cancel was called with.
func (ctx *ProgCtx) Cause() error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.cause
}

// Defer registers f to run when the context is cancelled.
func (ctx *ProgCtx) Defer(f func()) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.Err() != nil {
		return errors.New("defer after program context is done")
	}
	ctx.deferred = append(ctx.deferred, f)
	return nil
}

// Go runs f in a goroutine that Wait waits for.
func (ctx *ProgCtx) Go(name string, f func()) {
	ctx.mu.Lock()
	ctx.routines[name]++
	ctx.mu.Unlock()
	ctx.wg.Add(1)

	go func() {
		defer ctx.done(name)
		f()
	}()
}

func (ctx *ProgCtx) done(name string) {
	ctx.mu.Lock()
	count := ctx.routines[name]
	logger.AssertTrue(count > 0, "routine %s is not running", name)
	if count == 1 {
		delete(ctx.routines, name)
	} else {
		ctx.routines[name] = count - 1
	}
	ctx.mu.Unlock()
	ctx.wg.Done()
}

// WaitCount returns the number of running goroutines started by Go.
func (ctx *ProgCtx) WaitCount() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	total := 0
	for _, c := range ctx.routines {
		total += c
	}
	return total
}

// Wait blocks until all goroutines started by Go have returned.
func (ctx *ProgCtx) Wait() {
	ctx.mu.Lock()
	logger.Debugf("program context waiting for routines: %v", ctx.routines)
	ctx.mu.Unlock()
	ctx.wg.Wait()
}

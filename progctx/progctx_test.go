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

package progctx

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCancelRunsDeferredOnce(t *testing.T) {
	ctx := New(context.Background())
	var order []int
	assert.Nil(t, ctx.Defer(func() { order = append(order, 1) }))
	assert.Nil(t, ctx.Defer(func() { order = append(order, 2) }))

	cause := errors.New("console exit")
	ctx.Cancel(cause)
	ctx.Cancel(nil)
	assert.Equal(t, []int{2, 1}, order)
	assert.Equal(t, cause, ctx.Cause())
	assert.NotNil(t, ctx.Err())
	assert.NotNil(t, ctx.Defer(func() {}))
}

func TestGoAndWait(t *testing.T) {
	ctx := New(nil)
	release := make(chan struct{})
	ctx.Go("worker", func() {
		<-release
	})
	ctx.Go("worker", func() {
		<-ctx.Done()
	})
	assert.Equal(t, 2, ctx.WaitCount())

	close(release)
	ctx.Cancel(nil)
	ctx.Wait()
	assert.Equal(t, 0, ctx.WaitCount())
}

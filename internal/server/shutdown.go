package server

import (
	"context"
	"sync"
	"sync/atomic"
)

// Coordinates shutdown between the accept loop and connection handlers.
//
// The halting flag flips from false to true exactly once and is set before
// any halt callback runs, so a handler woken by a callback always observes
// it. Handlers are counted so the server can wait for all of them to exit.
type coordinator struct {
	flag     atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	handlers sync.WaitGroup
}

func newCoordinator() *coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &coordinator{ctx: ctx, cancel: cancel}
}

// Sets the halting flag and fires halt callbacks. Returns false if the
// coordinator was already halted.
func (c *coordinator) halt() bool {
	if c.flag.Swap(true) {
		return false
	}
	c.cancel()
	return true
}

// Whether shutdown has begun.
func (c *coordinator) halting() bool {
	return c.flag.Load()
}

// Closed once shutdown has begun.
func (c *coordinator) halted() <-chan struct{} {
	return c.ctx.Done()
}

// Arranges for f to run in its own goroutine once shutdown begins. The
// returned function cancels the arrangement.
func (c *coordinator) onHalt(f func()) (stop func() bool) {
	return context.AfterFunc(c.ctx, f)
}

// Registers a handler. Must not be called concurrently with drain.
func (c *coordinator) enter() {
	c.handlers.Add(1)
}

// Marks a registered handler as finished.
func (c *coordinator) exit() {
	c.handlers.Done()
}

// Blocks until every registered handler has exited.
func (c *coordinator) drain() {
	c.handlers.Wait()
}

// Package sched holds the small cooperative-task primitives shared by the
// scan loop, the input worker and the housekeeping services.
package sched

import (
	"context"
	"runtime"
	"sync"
	"time"

	"eemon-go/errcode"
)

// ErrInterruptWaitTimeout is returned by Flag.Wait when the bound expires.
var ErrInterruptWaitTimeout = errcode.IRQTimeout

// Flag is a level-triggered event that an ISR can raise. Set never blocks;
// several Sets before a Wait collapse into one.
type Flag struct {
	c chan struct{}
}

func NewFlag() *Flag { return &Flag{c: make(chan struct{}, 1)} }

// Set raises the flag. Safe from interrupt context.
func (f *Flag) Set() {
	select {
	case f.c <- struct{}{}:
	default:
	}
}

// Clear lowers the flag without waiting.
func (f *Flag) Clear() {
	select {
	case <-f.c:
	default:
	}
}

// IsSet reports and keeps the flag state.
func (f *Flag) IsSet() bool { return len(f.c) > 0 }

// Wait blocks until the flag is raised, then lowers it. A zero timeout
// means no bound.
func (f *Flag) Wait(ctx context.Context, timeout time.Duration) error {
	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}
	select {
	case <-f.c:
		return nil
	case <-expire:
		return ErrInterruptWaitTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Yield hands the processor to other ready tasks.
func Yield() { runtime.Gosched() }

// Task is a long-running loop that returns when ctx is cancelled.
type Task func(ctx context.Context) error

// Group runs named tasks under one cancellation. The first task to fail
// cancels the others.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	err   error
	names []string
}

func NewGroup(parent context.Context) *Group {
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel}
}

// Context is cancelled when the group stops.
func (g *Group) Context() context.Context { return g.ctx }

// Go starts t.
func (g *Group) Go(name string, t Task) {
	g.mu.Lock()
	g.names = append(g.names, name)
	g.mu.Unlock()
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := t(g.ctx); err != nil && g.ctx.Err() == nil {
			g.mu.Lock()
			if g.err == nil {
				g.err = errcode.Wrap(errcode.Of(err), "sched."+name, "", err)
			}
			g.mu.Unlock()
			println("Error: [sched] task", name, "stopped:", err.Error())
			g.cancel()
		}
	}()
}

// Tasks lists the started task names.
func (g *Group) Tasks() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.names...)
}

// Stop cancels every task.
func (g *Group) Stop() { g.cancel() }

// Wait blocks until every task has returned and reports the first failure.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

package gpioirq

import (
	"context"
	"sync"
	"testing"
	"time"

	"eemon-go/hal"
	"eemon-go/platform"
)

type recorder struct {
	mu  sync.Mutex
	got []uint8
	ch  chan struct{}
}

func newRecorder() *recorder { return &recorder{ch: make(chan struct{}, 64)} }

func (r *recorder) sink(s uint8, _ time.Time) {
	r.mu.Lock()
	r.got = append(r.got, s)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) []uint8 {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.ch:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for sample %d", i+1)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint8(nil), r.got...)
}

func TestWorker_DeliversSamplesInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(8, nil)
	go w.Run(ctx)

	a, b := platform.NewFakePin(10), platform.NewFakePin(9)
	sample := func() uint8 {
		var v uint8
		if a.Get() {
			v |= 2
		}
		if b.Get() {
			v |= 1
		}
		return v
	}
	rec := newRecorder()
	stop, err := w.Register("rotary", hal.EdgeBoth, sample, rec.sink, a, b)
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	a.Drive(false) // 01
	b.Drive(false) // 00
	a.Drive(true)  // 10
	b.Drive(true)  // 11
	got := rec.wait(t, 4)
	want := []uint8{0b01, 0b00, 0b10, 0b11}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples %v want %v", got, want)
		}
	}
	if w.Delivered() != 4 {
		t.Fatalf("delivered=%d", w.Delivered())
	}
}

func TestWorker_FullQueueDrops(t *testing.T) {
	w := New(1, nil) // no consumer running
	p := platform.NewFakePin(8)
	if _, err := w.Register("btn", hal.EdgeBoth, func() uint8 { return 0 }, func(uint8, time.Time) {}, p); err != nil {
		t.Fatal(err)
	}
	p.Drive(false)
	p.Drive(true)
	p.Drive(false)
	if w.ISRDrops() != 2 {
		t.Fatalf("drops=%d want 2", w.ISRDrops())
	}
}

func TestWorker_GateSuppresses(t *testing.T) {
	var closed bool
	gate := func(isr func()) func() {
		return func() {
			if !closed {
				isr()
			}
		}
	}
	w := New(4, gate)
	p := platform.NewFakePin(3)
	_, _ = w.Register("btn", hal.EdgeFalling, func() uint8 { return 0 }, func(uint8, time.Time) {}, p)
	closed = true
	p.Drive(false)
	if len(w.isrQ) != 0 {
		t.Fatal("gated edge reached the queue")
	}
	closed = false
	p.Drive(true)
	p.Drive(false)
	if len(w.isrQ) != 1 {
		t.Fatalf("queue=%d want 1", len(w.isrQ))
	}
}

func TestWorker_CancelDisarms(t *testing.T) {
	w := New(4, nil)
	p := platform.NewFakePin(3)
	stop, _ := w.Register("btn", hal.EdgeBoth, func() uint8 { return 0 }, func(uint8, time.Time) {}, p)
	stop()
	p.Drive(false)
	if len(w.isrQ) != 0 {
		t.Fatal("edge after cancel reached the queue")
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(1, nil)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

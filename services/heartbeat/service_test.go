package heartbeat

import (
	"context"
	"strings"
	"testing"
	"time"

	"eemon-go/bus"
	"eemon-go/services/config"
)

func TestHeartbeat_LineAndInterval(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("hb")
	var drops uint32 = 3
	s := New(time.Hour, Uint("drops", func() uint32 { return drops }))

	// Retained config shortens the interval.
	conn.Publish(conn.NewMessage(bus.T("config", "heartbeat"), config.HeartbeatConfig{Interval: 5 * time.Millisecond}, true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, conn) }()

	deadline := time.After(time.Second)
	for s.Beats() < 2 {
		select {
		case <-deadline:
			t.Fatal("no heartbeat after the interval change")
		case <-time.After(2 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	l := s.Last()
	if !strings.HasPrefix(l, "heartbeat up=") || !strings.HasSuffix(l, " drops=3") {
		t.Fatalf("line %q", l)
	}
}

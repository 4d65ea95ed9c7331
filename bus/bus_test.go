package bus

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"eemon-go/errcode"
)

func TestPublish_ExactAndRetained(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("energy", "0"))
	c.Publish(c.NewMessage(T("energy", "0"), "live", false))
	expectPayload(t, sub, "live")

	c.Publish(c.NewMessage(T("config", "heartbeat"), "kept", true))
	late := c.Subscribe(T("config", "heartbeat"))
	expectPayload(t, late, "kept")
}

func TestWildcards(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	plus := c.Subscribe(T("input", "button", "+"))
	hash := c.Subscribe(T("input", "#"))
	all := c.Subscribe(T("#"))
	exact := c.Subscribe(T("input"))
	none := c.Subscribe(T("energy", "+"))

	c.Publish(b.NewMessage(T("input", "button", "enter"), "p1", false))
	expectPayload(t, plus, "p1")
	expectPayload(t, hash, "p1")
	expectPayload(t, all, "p1")
	expectNone(t, exact)
	expectNone(t, none)

	// "#" also matches its parent level.
	c.Publish(b.NewMessage(T("input"), "p2", false))
	expectPayload(t, hash, "p2")
	expectPayload(t, exact, "p2")
	expectPayload(t, all, "p2")
	expectNone(t, plus)

	c.Publish(b.NewMessage(T("input", "rotary"), "p3", false))
	expectNone(t, plus)
	expectPayload(t, hash, "p3")
}

func TestWildcards_RetainedReplay(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("config"), "r0", true))
	c.Publish(b.NewMessage(T("config", "board"), "r1", true))
	c.Publish(b.NewMessage(T("config", "board", "spi"), "r2", true))
	c.Publish(b.NewMessage(T("config", "heartbeat"), "r3", true))

	assertSet(t, drain(t, c.Subscribe(T("config", "#")), 4), "r0", "r1", "r2", "r3")
	assertSet(t, drain(t, c.Subscribe(T("config", "+", "#")), 3), "r1", "r2", "r3")
	assertSet(t, drain(t, c.Subscribe(T("config", "+")), 2), "r1", "r3")

	// A nil retained payload clears the slot.
	c.Publish(b.NewMessage(T("config", "board"), nil, true))
	assertSet(t, drain(t, c.Subscribe(T("config", "+")), 1), "r3")
}

func TestQueue_DropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	sub := c.Subscribe(T("x"))
	for _, p := range []string{"1", "2", "3", "4"} {
		c.Publish(b.NewMessage(T("x"), p, false))
	}
	expectPayload(t, sub, "3")
	expectPayload(t, sub, "4")
	if sub.Drops() != 2 {
		t.Fatalf("drops=%d", sub.Drops())
	}
}

func TestUnsubscribe_ClosesAndPrunes(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	sub := c.Subscribe(T("a", "b"))
	sub.Unsubscribe()
	if _, ok := <-sub.Channel(); ok {
		t.Fatal("channel should be closed")
	}
	if len(b.root.children) != 0 {
		t.Fatal("empty nodes not pruned")
	}
	sub.Unsubscribe() // second call is a no-op

	s1 := c.Subscribe(T("a"))
	s2 := c.Subscribe(T("b"))
	c.Disconnect()
	for _, s := range []*Subscription{s1, s2} {
		if _, ok := <-s.Channel(); ok {
			t.Fatal("Disconnect should close every subscription")
		}
	}
}

func TestRequestReply(t *testing.T) {
	b := NewBus(8)
	req := b.NewConnection("requester")
	resp := b.NewConnection("responder")

	in := resp.Subscribe(T("telemetry", "get"))
	go func() {
		if m, ok := <-in.Channel(); ok {
			resp.Reply(m, "OK", false)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	msg := b.NewMessage(T("telemetry", "get"), nil, false)
	reply, err := req.RequestWait(ctx, msg)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Payload != "OK" || reply.Topic.String() != msg.ReplyTo.String() {
		t.Fatalf("reply %+v", reply)
	}
}

func TestRequestReply_Timeout(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("requester")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.RequestWait(ctx, b.NewMessage(T("nobody"), nil, false))
	if !errors.Is(err, errcode.Timeout) {
		t.Fatalf("err=%v", err)
	}
}

func TestTopic_AppendDoesNotAlias(t *testing.T) {
	base := make(Topic, 1, 4)
	base[0] = "energy"
	a := base.Append("0")
	b := base.Append("1")
	if a.String() != "energy/0" || b.String() != "energy/1" {
		t.Fatalf("%s %s", a, b)
	}
}

func expectPayload(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		if s, _ := got.Payload.(string); s != want {
			t.Fatalf("payload %v, want %q", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message %#v", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func drain(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	for len(out) < n {
		select {
		case m := <-sub.Channel():
			out = append(out, m.Payload.(string))
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("got %d of %d messages: %v", len(out), n, out)
		}
	}
	expectNone(t, sub)
	return out
}

func assertSet(t *testing.T, got []string, want ...string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

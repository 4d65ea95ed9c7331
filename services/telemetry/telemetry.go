// Package telemetry publishes read-only instrument snapshots.
package telemetry

import (
	"context"
	"io"
	"strconv"
	"time"

	"eemon-go/bus"
	"eemon-go/drivers/ade7816"
	"eemon-go/stream"
	"eemon-go/x/timex"
)

var (
	topicEnergy = bus.T("energy")
	topicRotary = bus.T("input", "rotary")
	topicButton = bus.T("input", "button")
	TopicGet    = bus.T("telemetry", "get")
)

type Channel interface {
	Snapshot() ade7816.Snapshot
}

type Encoder interface {
	Value() int32
}

type Button interface {
	IsDown() bool
}

// NamedButton pairs a button with its published name.
type NamedButton struct {
	Name string
	Button
}

// RotaryState is the payload of input/rotary.
type RotaryState struct {
	Value int32
}

// ButtonState is the payload of input/button/<name>. Press counts are
// left for the UI to drain.
type ButtonState struct {
	Down bool
}

type Service struct {
	chans    []Channel
	rotary   Encoder
	buttons  []NamedButton
	out      io.Writer
	interval time.Duration
	clock    timex.Clock

	started time.Time
	seq     uint32
	errs    uint32
}

// New builds a publisher. rotary and out may be nil.
func New(interval time.Duration, chans []Channel, rotary Encoder, buttons []NamedButton, out io.Writer) *Service {
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{
		chans:    chans,
		rotary:   rotary,
		buttons:  buttons,
		out:      out,
		interval: interval,
		clock:    timex.Clock(nil).OrNow(),
	}
}

func (s *Service) WithClock(c timex.Clock) *Service {
	s.clock = c.OrNow()
	return s
}

// WriteErrors counts failed stream writes.
func (s *Service) WriteErrors() uint32 { return s.errs }

// Collect builds a snapshot of every channel and input.
func (s *Service) Collect() *stream.Snapshot {
	snap, _ := s.collect()
	return snap
}

// collect also returns the channel snapshots the frame was built from.
func (s *Service) collect() (*stream.Snapshot, []ade7816.Snapshot) {
	now := s.clock()
	if s.started.IsZero() {
		s.started = now
	}
	snap := &stream.Snapshot{
		Seq:      s.seq,
		UptimeMs: now.Sub(s.started).Milliseconds(),
		Channels: make([]stream.Channel, 0, len(s.chans)),
	}
	chans := make([]ade7816.Snapshot, 0, len(s.chans))
	for _, c := range s.chans {
		cs := c.Snapshot()
		chans = append(chans, cs)
		snap.Channels = append(snap.Channels, stream.Channel{
			Index:    cs.Index,
			Online:   cs.Online,
			EnergyWh: cs.TotalEnergy,
			PowerW:   cs.AveragePower(),
			Samples:  cs.Samples,
			Status1:  cs.Status1,
		})
	}
	if s.rotary != nil {
		snap.Rotary = s.rotary.Value()
	}
	for _, b := range s.buttons {
		snap.Buttons = append(snap.Buttons, stream.Button{Name: b.Name, Down: b.IsDown()})
	}
	return snap, chans
}

// Publish sends one round of topics and, if a writer is set, one frame.
func (s *Service) Publish(conn *bus.Connection) *stream.Snapshot {
	snap, chans := s.collect()
	s.seq++
	for _, cs := range chans {
		conn.Publish(conn.NewMessage(topicEnergy.Append(strconv.Itoa(cs.Index)), cs, true))
	}
	if s.rotary != nil {
		conn.Publish(conn.NewMessage(topicRotary, RotaryState{Value: snap.Rotary}, true))
	}
	for _, b := range snap.Buttons {
		conn.Publish(conn.NewMessage(topicButton.Append(b.Name), ButtonState{Down: b.Down}, true))
	}
	if s.out != nil {
		if err := stream.Write(s.out, snap); err != nil {
			s.errs++
			println("Warn: [telemetry] stream write failed:", err.Error())
		}
	}
	return snap
}

// Run publishes every interval and answers telemetry/get requests with a
// fresh snapshot until ctx is cancelled.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	get := conn.Subscribe(TopicGet)
	defer conn.Unsubscribe(get)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			println("Info: [telemetry] stopping")
			return nil
		case <-tick.C:
			s.Publish(conn)
		case req := <-get.Channel():
			conn.Reply(req, s.Collect(), false)
		}
	}
}

package heartbeat

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"eemon-go/bus"
	"eemon-go/services/config"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

// Field appends one "key=value" item to the status line.
type Field func(line []byte) []byte

// Uint is a Field reporting a counter.
func Uint(key string, get func() uint32) Field {
	return func(line []byte) []byte {
		line = append(line, ' ')
		line = append(line, key...)
		line = append(line, '=')
		return strconv.AppendUint(line, uint64(get()), 10)
	}
}

type Service struct {
	Fields []Field

	interval time.Duration
	started  time.Time
	beats    atomic.Uint32
	lastLine atomic.Value // string
}

func New(interval time.Duration, fields ...Field) *Service {
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{Fields: fields, interval: interval}
}

// Beats counts status lines printed.
func (s *Service) Beats() uint32 { return s.beats.Load() }

// Last returns the most recent status line.
func (s *Service) Last() string {
	v, _ := s.lastLine.Load().(string)
	return v
}

func (s *Service) line(now time.Time) string {
	b := make([]byte, 0, 96)
	b = append(b, "heartbeat up="...)
	b = strconv.AppendInt(b, int64(now.Sub(s.started)/time.Second), 10)
	b = append(b, 's')
	for _, f := range s.Fields {
		b = f(b)
	}
	return string(b)
}

// Run prints a status line every interval until ctx is cancelled. The
// interval follows config/heartbeat.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	s.started = time.Now()
	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return nil
		case t := <-tick.C:
			l := s.line(t)
			s.lastLine.Store(l)
			s.beats.Add(1)
			println("Info:", l)
		case msg := <-cfgSub.Channel():
			hb, ok := msg.Payload.(config.HeartbeatConfig)
			if ok && hb.Interval > 0 && hb.Interval != s.interval {
				s.interval = hb.Interval
				tick.Reset(hb.Interval)
				println("Info: heartbeat interval set to", hb.Interval.String())
			}
		}
	}
}

// Package activity records what operators did through the console.
package activity

import (
	"context"
	"log/slog"
	"time"

	"channel-console/metrics"
)

type Kind string

const (
	ChannelCreated   Kind = "channel.created"
	ChannelUpdated   Kind = "channel.updated"
	ChannelDeleted   Kind = "channel.deleted"
	MessageProcessed Kind = "message.processed"
)

type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

// Event is one entry of the activity trail.
type Event struct {
	Kind      Kind      `json:"kind"`
	ChannelID string    `json:"channel_id"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Sink persists or forwards events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Recorder fans events out to every sink. A sink failure is logged and
// never reported to the caller. A nil *Recorder discards events.
type Recorder struct {
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewRecorder(logger *slog.Logger, sinks ...Sink) *Recorder {
	return &Recorder{
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
	}
}

// Record stamps ev with the current time when At is zero and hands it to
// every sink.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if r == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = r.now().UTC()
	}
	for _, s := range r.sinks {
		if err := s.Record(ctx, ev); err != nil {
			metrics.ErrorsTotal.WithLabelValues("activity").Inc()
			r.logger.Error("failed to record activity", "kind", ev.Kind, "channel_id", ev.ChannelID, "sink", sinkName(s), "error", err)
		}
	}
	r.logger.Info("activity", "kind", ev.Kind, "channel_id", ev.ChannelID, "outcome", ev.Outcome)
}

func sinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}

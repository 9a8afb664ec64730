// Package tester sends operator-supplied messages through a persisted
// channel on the backend and keeps the outcome for display.
package tester

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"channel-console/activity"
	"channel-console/channel"
	"channel-console/metrics"
)

var (
	ErrNotPersisted = errors.New("channel has not been saved yet")
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already being processed")
	ErrClosed       = errors.New("tester is closed")
	ErrDiscarded    = errors.New("response arrived after the tester was closed")
)

const (
	MsgProcessFailed = "Failed to process message."
	MsgEmptyMessage  = "Message cannot be empty."
	MsgNotPersisted  = "Save the channel before testing it."
)

// Processor runs a message through a persisted channel.
type Processor interface {
	ProcessMessage(ctx context.Context, id string, req channel.ProcessRequest) (channel.ProcessResult, error)
}

// Field is one rendered line of a process result.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Status is the observable state of a tester.
type Status struct {
	TesterID  string                 `json:"tester_id"`
	ChannelID string                 `json:"channel_id"`
	Busy      bool                   `json:"busy"`
	Message   string                 `json:"message"`
	Error     string                 `json:"error,omitempty"`
	Result    *channel.ProcessResult `json:"result,omitempty"`
}

// Tester dry-runs messages against one channel. The channel shown is the
// persisted one, never an unsaved draft.
type Tester struct {
	id        string
	channel   channel.Channel
	processor Processor
	recorder  *activity.Recorder
	logger    *slog.Logger

	mu      sync.Mutex
	busy    bool
	closed  bool
	message string
	errMsg  string
	result  *channel.ProcessResult
}

func New(id string, ch channel.Channel, processor Processor, recorder *activity.Recorder, logger *slog.Logger) *Tester {
	return &Tester{
		id:        id,
		channel:   ch,
		processor: processor,
		recorder:  recorder,
		logger:    logger.With("tester_id", id, "channel_id", ch.ID),
	}
}

func (t *Tester) ID() string { return t.id }

// Channel returns a copy of the channel under test.
func (t *Tester) Channel() channel.Channel {
	return t.channel.Clone()
}

// SetMessage stores the message body shown in the input without sending it.
func (t *Tester) SetMessage(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.message = message
}

// Run sends message to the backend. Only one run may be in flight; a request
// failure clears any previous result and sets the error state.
func (t *Tester) Run(ctx context.Context, message string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.busy {
		t.mu.Unlock()
		return ErrBusy
	}
	t.message = message
	if t.channel.ID == "" {
		t.errMsg = MsgNotPersisted
		t.mu.Unlock()
		return ErrNotPersisted
	}
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		t.errMsg = MsgEmptyMessage
		t.mu.Unlock()
		return ErrEmptyMessage
	}
	t.busy = true
	t.errMsg = ""
	t.mu.Unlock()

	res, err := t.processor.ProcessMessage(ctx, t.channel.ID, channel.ProcessRequest{Message: trimmed})

	t.mu.Lock()
	t.busy = false

	if t.closed {
		t.mu.Unlock()
		t.logger.Debug("discarding process result for closed tester", "error", err)
		return ErrDiscarded
	}

	if err != nil {
		t.result = nil
		t.errMsg = MsgProcessFailed
		t.mu.Unlock()
		metrics.DryRuns.WithLabelValues("error").Inc()
		t.logger.Error("failed to process message", "error", err)
		t.recorder.Record(ctx, activity.Event{Kind: activity.MessageProcessed, ChannelID: t.channel.ID, Outcome: activity.Failure, Detail: err.Error()})
		return fmt.Errorf("process message: %w", err)
	}

	t.result = &res
	t.mu.Unlock()

	// Sinks may block on a broker; the tester stays readable meanwhile.
	outcome := activity.Success
	label := "success"
	if res.Success != nil && !*res.Success {
		outcome = activity.Failure
		label = "rejected"
	}
	metrics.DryRuns.WithLabelValues(label).Inc()
	ev := activity.Event{Kind: activity.MessageProcessed, ChannelID: t.channel.ID, Outcome: outcome}
	if res.Error != nil {
		ev.Detail = *res.Error
	}
	t.recorder.Record(ctx, ev)
	return nil
}

func (t *Tester) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := Status{
		TesterID:  t.id,
		ChannelID: t.channel.ID,
		Busy:      t.busy,
		Message:   t.message,
		Error:     t.errMsg,
	}
	if t.result != nil {
		r := *t.result
		st.Result = &r
	}
	return st
}

// Fields returns the fields present in the last result, in display order.
// Absent fields are left out.
func (t *Tester) Fields() []Field {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return nil
	}
	return Fields(*t.result)
}

// Fields lists the present fields of res in display order.
func Fields(res channel.ProcessResult) []Field {
	var out []Field
	if res.Success != nil {
		out = append(out, Field{Name: "success", Value: strconv.FormatBool(*res.Success)})
	}
	if res.Result != nil {
		out = append(out, Field{Name: "result", Value: *res.Result})
	}
	if res.ProcessedMessage != nil {
		out = append(out, Field{Name: "processed_message", Value: *res.ProcessedMessage})
	}
	if res.Error != nil {
		out = append(out, Field{Name: "error", Value: *res.Error})
	}
	return out
}

// Close tears the tester down. A run still in flight is discarded when its
// response arrives.
func (t *Tester) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// Package editor drives a channel draft from first edit to a persisted
// channel: it applies editing operations, validates the draft and submits it
// to the backend, never more than one submission at a time.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"channel-console/activity"
	"channel-console/channel"
	"channel-console/draft"
	"channel-console/metrics"
)

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSaved      State = "saved"
)

var (
	ErrBusy         = errors.New("a submission is already in progress")
	ErrSaved        = errors.New("channel already saved")
	ErrClosed       = errors.New("editor session is closed")
	ErrDiscarded    = errors.New("response arrived after the session was closed")
	ErrInvalidDraft = errors.New("draft is invalid")
)

// Operator-facing messages. They double as translation keys.
const (
	MsgSaveFailed    = "Failed to save channel."
	MsgLoadFailed    = "Failed to load channel."
	MsgInvalidDraft  = "Please correct the highlighted fields."
	MsgPendingInputs = "Some fields contain invalid input."
)

// ListPath is where the console navigates after a successful save.
const ListPath = "/admin/channels"

// Saver persists a draft.
type Saver interface {
	CreateChannel(ctx context.Context, ch channel.Channel) (channel.Channel, error)
	UpdateChannel(ctx context.Context, id string, ch channel.Channel) (channel.Channel, error)
}

// FieldError is a local error attached to one field. Input holds the
// rejected text so the form can show it again.
type FieldError struct {
	Message string `json:"message"`
	Input   string `json:"input,omitempty"`
}

// Status is the observable state of a session.
type Status struct {
	SessionID   string                `json:"session_id"`
	ChannelID   string                `json:"channel_id,omitempty"`
	Mode        string                `json:"mode"`
	State       State                 `json:"state"`
	Busy        bool                  `json:"busy"`
	Error       string                `json:"error,omitempty"`
	FieldErrors map[string]FieldError `json:"field_errors,omitempty"`
	Navigate    string                `json:"navigate,omitempty"`
}

// Session is one editor instance.
type Session struct {
	id         string
	originalID string
	store      *draft.Store
	saver      Saver
	recorder   *activity.Recorder
	logger     *slog.Logger

	mu          sync.Mutex
	state       State
	message     string
	editMsg     string // last rejected edit that left nothing on a field
	inputErrs   map[string]FieldError
	invalidErrs map[string]FieldError
	saved       channel.Channel
	closed      bool
}

// NewSession starts editing existing, or a new channel when existing is nil.
func NewSession(id string, existing *channel.Channel, saver Saver, recorder *activity.Recorder, logger *slog.Logger) *Session {
	s := &Session{
		id:          id,
		store:       draft.New(existing),
		saver:       saver,
		recorder:    recorder,
		logger:      logger.With("session_id", id),
		state:       StateIdle,
		inputErrs:   make(map[string]FieldError),
		invalidErrs: make(map[string]FieldError),
	}
	if existing != nil {
		s.originalID = existing.ID
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Draft returns a copy of the current draft.
func (s *Session) Draft() channel.Channel {
	return s.store.Snapshot()
}

func (s *Session) Mode() draft.Mode {
	return s.store.Mode()
}

// Apply performs one editing operation. A failed operation leaves the draft
// unchanged. Rejected field input is kept as a local error on that field
// until it is corrected; any other failure is only reported.
func (s *Session) Apply(op Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.state == StateSaved {
		return ErrSaved
	}

	key := op.Key()
	if err := apply(s.store, op); err != nil {
		s.logger.Debug("edit rejected", "op", op.Kind, "field", key, "error", err)
		if !keepsInput(err) {
			// Nothing on screen holds the rejected value, so there is
			// nothing for the operator to correct.
			s.editMsg = Describe(err)
			return err
		}
		fe := FieldError{Message: Describe(err)}
		if text, ok := op.Value.(string); ok {
			fe.Input = text
		}
		s.inputErrs[key] = fe
		return err
	}

	s.editMsg = ""
	delete(s.inputErrs, key)
	delete(s.invalidErrs, key)
	switch op.Kind {
	case OpChangeSourceType, OpChangeDestinationType, OpRemoveFilter, OpRemoveTransformer, OpRemoveDestination:
		// Errors recorded against the replaced or shifted entries no longer
		// describe what is on screen.
		clear(s.inputErrs)
	}
	return nil
}

// Submit validates the draft and creates or updates the channel. It returns
// ErrBusy while another submission is running and ErrSaved once the
// channel has been saved.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	switch s.state {
	case StateValidating, StateSubmitting:
		s.mu.Unlock()
		return ErrBusy
	case StateSaved:
		s.mu.Unlock()
		return ErrSaved
	}

	s.state = StateValidating
	s.message = ""
	s.editMsg = ""
	clear(s.invalidErrs)

	mode := s.store.Mode()
	snapshot := s.store.Snapshot()

	if len(s.inputErrs) > 0 {
		s.state = StateIdle
		s.message = MsgPendingInputs
		s.mu.Unlock()
		metrics.Submissions.WithLabelValues(mode.String(), "invalid").Inc()
		return fmt.Errorf("%w: unresolved input errors", ErrInvalidDraft)
	}

	if err := channel.Validate(snapshot, channel.ValidateOptions{RequireID: mode == draft.ModeCreate}); err != nil {
		var verrs channel.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				if _, ok := s.invalidErrs[ve.Field]; !ok {
					s.invalidErrs[ve.Field] = FieldError{Message: ve.Message}
				}
			}
		}
		s.state = StateIdle
		s.message = MsgInvalidDraft
		s.mu.Unlock()
		metrics.Submissions.WithLabelValues(mode.String(), "invalid").Inc()
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	s.state = StateSubmitting
	s.mu.Unlock()

	var (
		saved channel.Channel
		err   error
		kind  activity.Kind
	)
	if mode == draft.ModeCreate {
		kind = activity.ChannelCreated
		saved, err = s.saver.CreateChannel(ctx, snapshot)
	} else {
		kind = activity.ChannelUpdated
		saved, err = s.saver.UpdateChannel(ctx, s.originalID, snapshot)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding submission result for closed session", "error", err)
		return ErrDiscarded
	}

	// Activity is recorded after the lock is released so a slow sink never
	// stalls Status or Apply.
	if err != nil {
		s.state = StateIdle
		s.message = MsgSaveFailed
		s.mu.Unlock()
		metrics.Submissions.WithLabelValues(mode.String(), "failure").Inc()
		s.logger.Error("failed to save channel", "mode", mode.String(), "channel_id", snapshot.ID, "error", err)
		s.recorder.Record(ctx, activity.Event{Kind: kind, ChannelID: snapshot.ID, Outcome: activity.Failure, Detail: err.Error()})
		return fmt.Errorf("save channel: %w", err)
	}

	if saved.ID == "" {
		saved = snapshot
	}
	s.saved = saved
	s.state = StateSaved
	s.mu.Unlock()
	metrics.Submissions.WithLabelValues(mode.String(), "success").Inc()
	s.logger.Info("channel saved", "mode", mode.String(), "channel_id", saved.ID)
	s.recorder.Record(ctx, activity.Event{Kind: kind, ChannelID: saved.ID, Outcome: activity.Success})
	return nil
}

// Saved returns the channel as the backend stored it. ok is false until the
// session reaches StateSaved.
func (s *Session) Saved() (channel.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSaved {
		return channel.Channel{}, false
	}
	return s.saved.Clone(), true
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		SessionID: s.id,
		ChannelID: s.originalID,
		Mode:      s.store.Mode().String(),
		State:     s.state,
		Busy:      s.state == StateValidating || s.state == StateSubmitting,
		Error:     s.message,
	}
	if st.Error == "" {
		st.Error = s.editMsg
	}
	if s.state == StateSaved {
		st.ChannelID = s.saved.ID
		st.Navigate = ListPath
	}
	if n := len(s.inputErrs) + len(s.invalidErrs); n > 0 {
		st.FieldErrors = make(map[string]FieldError, n)
		maps.Copy(st.FieldErrors, s.invalidErrs)
		maps.Copy(st.FieldErrors, s.inputErrs)
	}
	return st
}

// Close tears the session down. Results of calls still in flight are
// discarded when they arrive.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

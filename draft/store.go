// Package draft holds the single in-progress channel of an editing session
// and the primitives that mutate it without ever producing a config object
// whose fields disagree with its type tag.
package draft

import (
	"errors"
	"fmt"
	"sync"

	"channel-console/channel"
)

var (
	ErrIDImmutable     = errors.New("channel id cannot be changed after creation")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownField    = errors.New("unknown field")
	ErrTypeField       = errors.New("type can only be changed with a type switch")
	ErrInvalidValue    = errors.New("invalid value")
	ErrInvalidHeaders  = errors.New("headers must be a JSON object of string values")
)

// Field names accepted by the setters.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldDescription = "description"
	FieldEnabled     = "enabled"
	FieldType        = "type"
	FieldPath        = "path"
	FieldMethod      = "method"
	FieldPort        = "port"
	FieldHost        = "host"
	FieldUseMLLP     = "use_mllp"
	FieldURL         = "url"
	FieldHeaders     = "headers"
	FieldScript      = "script"
)

// Mode tells whether the draft will be created or updated on submission.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Store owns one channel draft. Every mutation is applied under the lock,
// so a reader never sees a half-applied change.
type Store struct {
	mu    sync.RWMutex
	mode  Mode
	draft channel.Channel
}

// New returns a store initialized from existing, or with a default draft
// when existing is nil.
func New(existing *channel.Channel) *Store {
	s := &Store{}
	s.Initialize(existing)
	return s
}

// Initialize replaces the draft with a copy of existing (edit mode) or with
// the default draft (create mode).
func (s *Store) Initialize(existing *channel.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing == nil {
		s.mode = ModeCreate
		s.draft = Default()
		return
	}
	s.mode = ModeEdit
	s.draft = existing.Clone()
}

// Default returns the draft a new channel starts from.
func Default() channel.Channel {
	return channel.Channel{
		Enabled:      true,
		Source:       DefaultSource(channel.SourceHTTP),
		Filters:      []channel.FilterConfig{},
		Transformers: []channel.TransformerConfig{},
		Destinations: []channel.DestinationConfig{DefaultDestination(channel.DestinationHTTP)},
	}
}

func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Snapshot returns a deep copy of the draft.
func (s *Store) Snapshot() channel.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.Clone()
}

// SetField updates a top-level scalar. The id can only be set while creating.
func (s *Store) SetField(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case FieldName:
		v, err := toString(value)
		if err != nil {
			return err
		}
		s.draft.Name = v
	case FieldDescription:
		v, err := toString(value)
		if err != nil {
			return err
		}
		s.draft.Description = v
	case FieldEnabled:
		v, err := toBool(value)
		if err != nil {
			return err
		}
		s.draft.Enabled = v
	case FieldID:
		if s.mode == ModeEdit {
			return ErrIDImmutable
		}
		v, err := toString(value)
		if err != nil {
			return err
		}
		s.draft.ID = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// SetSourceField merges one field into the current source, keeping its type.
func (s *Store) SetSourceField(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := mergeSource(s.draft.Source, name, value)
	if err != nil {
		return err
	}
	s.draft.Source = src
	return nil
}

// SetDestinationField merges one field into destinations[index].
func (s *Store) SetDestinationField(index int, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkIndex("destination", index, len(s.draft.Destinations)); err != nil {
		return err
	}
	dst, err := mergeDestination(s.draft.Destinations[index], name, value)
	if err != nil {
		return err
	}
	s.draft.Destinations = replaceAt(s.draft.Destinations, index, dst)
	return nil
}

// SetFilterField merges one field into filters[index].
func (s *Store) SetFilterField(index int, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkIndex("filter", index, len(s.draft.Filters)); err != nil {
		return err
	}
	f, err := mergeFilter(s.draft.Filters[index], name, value)
	if err != nil {
		return err
	}
	s.draft.Filters = replaceAt(s.draft.Filters, index, f)
	return nil
}

// SetTransformerField merges one field into transformers[index].
func (s *Store) SetTransformerField(index int, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkIndex("transformer", index, len(s.draft.Transformers)); err != nil {
		return err
	}
	t, err := mergeTransformer(s.draft.Transformers[index], name, value)
	if err != nil {
		return err
	}
	s.draft.Transformers = replaceAt(s.draft.Transformers, index, t)
	return nil
}

func (s *Store) AddFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Filters = append(s.draft.Filters, channel.ScriptFilter{})
}

func (s *Store) RemoveFilter(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex("filter", index, len(s.draft.Filters)); err != nil {
		return err
	}
	s.draft.Filters = removeAt(s.draft.Filters, index)
	return nil
}

func (s *Store) AddTransformer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Transformers = append(s.draft.Transformers, channel.ScriptTransformer{})
}

func (s *Store) RemoveTransformer(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex("transformer", index, len(s.draft.Transformers)); err != nil {
		return err
	}
	s.draft.Transformers = removeAt(s.draft.Transformers, index)
	return nil
}

func (s *Store) AddDestination() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Destinations = append(s.draft.Destinations, DefaultDestination(channel.DestinationHTTP))
}

// RemoveDestination may leave the list empty; submission rejects that.
func (s *Store) RemoveDestination(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex("destination", index, len(s.draft.Destinations)); err != nil {
		return err
	}
	s.draft.Destinations = removeAt(s.draft.Destinations, index)
	return nil
}

func checkIndex(kind string, index, n int) error {
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %s %d of %d", ErrIndexOutOfRange, kind, index, n)
	}
	return nil
}

// replaceAt and removeAt build new slices so snapshots handed out earlier
// never share a backing array with the draft.
func replaceAt[T any](items []T, index int, v T) []T {
	out := make([]T, len(items))
	copy(out, items)
	out[index] = v
	return out
}

func removeAt[T any](items []T, index int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:index]...)
	return append(out, items[index+1:]...)
}

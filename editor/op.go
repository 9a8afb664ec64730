package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"channel-console/channel"
	"channel-console/draft"
)

type OpKind string

const (
	OpSetField              OpKind = "set_field"
	OpSetSourceField        OpKind = "set_source_field"
	OpSetDestinationField   OpKind = "set_destination_field"
	OpSetFilterField        OpKind = "set_filter_field"
	OpSetTransformerField   OpKind = "set_transformer_field"
	OpChangeSourceType      OpKind = "change_source_type"
	OpChangeDestinationType OpKind = "change_destination_type"
	OpAddFilter             OpKind = "add_filter"
	OpRemoveFilter          OpKind = "remove_filter"
	OpAddTransformer        OpKind = "add_transformer"
	OpRemoveTransformer     OpKind = "remove_transformer"
	OpAddDestination        OpKind = "add_destination"
	OpRemoveDestination     OpKind = "remove_destination"
)

var ErrUnknownOp = errors.New("unknown editor operation")

// Op is one editing action. Index addresses list entries, Field names the
// property for the set_* kinds, and Value carries the new property value or,
// for the change_*_type kinds, the new type tag.
type Op struct {
	Kind  OpKind `json:"op"`
	Index int    `json:"index,omitempty"`
	Field string `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
}

// UnmarshalJSON keeps an object value as raw JSON, so header blocks sent
// as objects go through the same parsing as typed text and repeated keys are
// rejected rather than collapsed.
func (op *Op) UnmarshalJSON(data []byte) error {
	var wire struct {
		Kind  OpKind          `json:"op"`
		Index int             `json:"index"`
		Field string          `json:"field"`
		Value json.RawMessage `json:"value"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return err
	}

	*op = Op{Kind: wire.Kind, Index: wire.Index, Field: wire.Field}
	raw := bytes.TrimSpace(wire.Value)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '{':
		op.Value = json.RawMessage(raw)
	default:
		if err := json.Unmarshal(raw, &op.Value); err != nil {
			return err
		}
	}
	return nil
}

// Key is the field path errors for this op are reported under. It matches
// the paths used by channel.Validate.
func (op Op) Key() string {
	switch op.Kind {
	case OpSetField:
		return op.Field
	case OpSetSourceField:
		return "source." + op.Field
	case OpChangeSourceType:
		return "source.type"
	case OpSetDestinationField:
		return fmt.Sprintf("destinations[%d].%s", op.Index, op.Field)
	case OpChangeDestinationType:
		return fmt.Sprintf("destinations[%d].type", op.Index)
	case OpSetFilterField:
		return fmt.Sprintf("filters[%d].%s", op.Index, op.Field)
	case OpSetTransformerField:
		return fmt.Sprintf("transformers[%d].%s", op.Index, op.Field)
	case OpRemoveFilter:
		return fmt.Sprintf("filters[%d]", op.Index)
	case OpRemoveTransformer:
		return fmt.Sprintf("transformers[%d]", op.Index)
	case OpRemoveDestination:
		return fmt.Sprintf("destinations[%d]", op.Index)
	case OpAddFilter:
		return "filters"
	case OpAddTransformer:
		return "transformers"
	case OpAddDestination:
		return "destinations"
	}
	return string(op.Kind)
}

func apply(s *draft.Store, op Op) error {
	switch op.Kind {
	case OpSetField:
		return s.SetField(op.Field, op.Value)
	case OpSetSourceField:
		return s.SetSourceField(op.Field, op.Value)
	case OpSetDestinationField:
		return s.SetDestinationField(op.Index, op.Field, op.Value)
	case OpSetFilterField:
		return s.SetFilterField(op.Index, op.Field, op.Value)
	case OpSetTransformerField:
		return s.SetTransformerField(op.Index, op.Field, op.Value)
	case OpChangeSourceType:
		t, ok := op.Value.(string)
		if !ok {
			return fmt.Errorf("%w: source type must be text", draft.ErrInvalidValue)
		}
		s.ChangeSourceType(channel.SourceType(t))
		return nil
	case OpChangeDestinationType:
		t, ok := op.Value.(string)
		if !ok {
			return fmt.Errorf("%w: destination type must be text", draft.ErrInvalidValue)
		}
		return s.ChangeDestinationType(op.Index, channel.DestinationType(t))
	case OpAddFilter:
		s.AddFilter()
		return nil
	case OpRemoveFilter:
		return s.RemoveFilter(op.Index)
	case OpAddTransformer:
		s.AddTransformer()
		return nil
	case OpRemoveTransformer:
		return s.RemoveTransformer(op.Index)
	case OpAddDestination:
		s.AddDestination()
		return nil
	case OpRemoveDestination:
		return s.RemoveDestination(op.Index)
	}
	return fmt.Errorf("%w: %q", ErrUnknownOp, op.Kind)
}

// Describe turns an op error into operator-facing text.
func Describe(err error) string {
	switch {
	case errors.Is(err, draft.ErrInvalidHeaders):
		return "Headers must be a JSON object of string values."
	case errors.Is(err, draft.ErrIDImmutable):
		return "Channel ID cannot be changed after creation."
	case errors.Is(err, draft.ErrInvalidValue):
		return "Invalid value."
	case errors.Is(err, draft.ErrIndexOutOfRange):
		return "The item no longer exists."
	case errors.Is(err, draft.ErrTypeField):
		return "Use the type selector to change the type."
	case errors.Is(err, draft.ErrUnknownField):
		return "Unknown field."
	}
	return "Invalid edit."
}

// keepsInput reports whether err rejected a value the operator typed into a
// field, as opposed to an edit that addressed nothing.
func keepsInput(err error) bool {
	return errors.Is(err, draft.ErrInvalidHeaders) || errors.Is(err, draft.ErrInvalidValue)
}

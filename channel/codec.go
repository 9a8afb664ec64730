package channel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingSource is returned when a decoded channel has no source object.
var ErrMissingSource = errors.New("channel source is missing")

type httpSourceJSON struct {
	Type   SourceType `json:"type"`
	Path   string     `json:"path"`
	Method Method     `json:"method"`
}

type tcpSourceJSON struct {
	Type    SourceType `json:"type"`
	Port    int        `json:"port"`
	Host    *string    `json:"host,omitempty"`
	UseMLLP *bool      `json:"use_mllp,omitempty"`
}

type httpDestinationJSON struct {
	Type    DestinationType    `json:"type"`
	URL     string             `json:"url"`
	Method  Method             `json:"method,omitempty"`
	Headers *map[string]string `json:"headers,omitempty"`
}

type tcpDestinationJSON struct {
	Type    DestinationType `json:"type"`
	Host    string          `json:"host"`
	Port    int             `json:"port"`
	UseMLLP *bool           `json:"use_mllp,omitempty"`
}

type scriptJSON struct {
	Type   string `json:"type"`
	Script string `json:"script"`
}

func (s HTTPSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(httpSourceJSON{Type: SourceHTTP, Path: s.Path, Method: s.Method})
}

func (s TCPSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(tcpSourceJSON{Type: SourceTCP, Port: s.Port, Host: s.Host, UseMLLP: s.UseMLLP})
}

func (d HTTPDestination) MarshalJSON() ([]byte, error) {
	w := httpDestinationJSON{Type: DestinationHTTP, URL: d.URL, Method: d.Method}
	// An empty but present header block is kept on the wire.
	if d.Headers != nil {
		w.Headers = &d.Headers
	}
	return json.Marshal(w)
}

func (d TCPDestination) MarshalJSON() ([]byte, error) {
	return json.Marshal(tcpDestinationJSON{Type: DestinationTCP, Host: d.Host, Port: d.Port, UseMLLP: d.UseMLLP})
}

func (f ScriptFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptJSON{Type: ScriptType, Script: f.Script})
}

func (t ScriptTransformer) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptJSON{Type: ScriptType, Script: t.Script})
}

// MarshalJSON writes empty lists as [] so the backend always receives arrays.
func (c Channel) MarshalJSON() ([]byte, error) {
	type plain Channel
	p := plain(c)
	if p.Filters == nil {
		p.Filters = []FilterConfig{}
	}
	if p.Transformers == nil {
		p.Transformers = []TransformerConfig{}
	}
	if p.Destinations == nil {
		p.Destinations = []DestinationConfig{}
	}
	return json.Marshal(p)
}

type channelJSON struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Enabled      *bool             `json:"enabled"`
	Source       json.RawMessage   `json:"source"`
	Filters      []json.RawMessage `json:"filters"`
	Transformers []json.RawMessage `json:"transformers"`
	Destinations []json.RawMessage `json:"destinations"`
}

// UnmarshalJSON decodes a channel, dispatching every nested config on its
// type tag. Unknown tags and fields foreign to a tag are rejected.
func (c *Channel) UnmarshalJSON(data []byte) error {
	var w channelJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Channel{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Enabled:     true,
	}
	if w.Enabled != nil {
		out.Enabled = *w.Enabled
	}

	if isNull(w.Source) {
		return ErrMissingSource
	}
	src, err := DecodeSource(w.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	out.Source = src

	if w.Filters != nil {
		out.Filters = make([]FilterConfig, 0, len(w.Filters))
		for i, raw := range w.Filters {
			f, err := DecodeFilter(raw)
			if err != nil {
				return fmt.Errorf("filters[%d]: %w", i, err)
			}
			out.Filters = append(out.Filters, f)
		}
	}
	if w.Transformers != nil {
		out.Transformers = make([]TransformerConfig, 0, len(w.Transformers))
		for i, raw := range w.Transformers {
			t, err := DecodeTransformer(raw)
			if err != nil {
				return fmt.Errorf("transformers[%d]: %w", i, err)
			}
			out.Transformers = append(out.Transformers, t)
		}
	}
	if w.Destinations != nil {
		out.Destinations = make([]DestinationConfig, 0, len(w.Destinations))
		for i, raw := range w.Destinations {
			d, err := DecodeDestination(raw)
			if err != nil {
				return fmt.Errorf("destinations[%d]: %w", i, err)
			}
			out.Destinations = append(out.Destinations, d)
		}
	}

	*c = out
	return nil
}

// DecodeSource decodes one tagged source object.
func DecodeSource(raw json.RawMessage) (SourceConfig, error) {
	tag, err := peekType(raw)
	if err != nil {
		return nil, err
	}
	t, err := ParseSourceType(tag)
	if err != nil {
		return nil, err
	}
	switch t {
	case SourceHTTP:
		var w httpSourceJSON
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		return HTTPSource{Path: w.Path, Method: w.Method}, nil
	case SourceTCP:
		var w tcpSourceJSON
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		return TCPSource{Port: w.Port, Host: w.Host, UseMLLP: w.UseMLLP}, nil
	}
	return nil, fmt.Errorf("%w: source %q", ErrUnknownType, tag)
}

// DecodeDestination decodes one tagged destination object.
func DecodeDestination(raw json.RawMessage) (DestinationConfig, error) {
	tag, err := peekType(raw)
	if err != nil {
		return nil, err
	}
	t, err := ParseDestinationType(tag)
	if err != nil {
		return nil, err
	}
	switch t {
	case DestinationHTTP:
		var w httpDestinationJSON
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		d := HTTPDestination{URL: w.URL, Method: w.Method}
		if w.Headers != nil {
			d.Headers = *w.Headers
			if d.Headers == nil {
				d.Headers = map[string]string{}
			}
		}
		return d, nil
	case DestinationTCP:
		var w tcpDestinationJSON
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		return TCPDestination{Host: w.Host, Port: w.Port, UseMLLP: w.UseMLLP}, nil
	}
	return nil, fmt.Errorf("%w: destination %q", ErrUnknownType, tag)
}

// DecodeFilter decodes one tagged filter object.
func DecodeFilter(raw json.RawMessage) (FilterConfig, error) {
	script, err := decodeScript(raw, "filter")
	if err != nil {
		return nil, err
	}
	return ScriptFilter{Script: script}, nil
}

// DecodeTransformer decodes one tagged transformer object.
func DecodeTransformer(raw json.RawMessage) (TransformerConfig, error) {
	script, err := decodeScript(raw, "transformer")
	if err != nil {
		return nil, err
	}
	return ScriptTransformer{Script: script}, nil
}

func decodeScript(raw json.RawMessage, kind string) (string, error) {
	tag, err := peekType(raw)
	if err != nil {
		return "", err
	}
	if tag != ScriptType {
		return "", fmt.Errorf("%w: %s %q", ErrUnknownType, kind, tag)
	}
	var w scriptJSON
	if err := decodeStrict(raw, &w); err != nil {
		return "", err
	}
	return w.Script, nil
}

func peekType(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", ErrMissingType
	}
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", err
	}
	if head.Type == nil || *head.Type == "" {
		return "", ErrMissingType
	}
	return *head.Type, nil
}

func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Package channel defines the channel configuration model shared by the
// console: the channel root entity and the tagged source, destination,
// filter and transformer variants.
package channel

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

var (
	// ErrUnknownType is returned for a type tag outside the closed set of a union.
	ErrUnknownType = errors.New("unknown config type")
	// ErrMissingType is returned when a config object carries no type tag.
	ErrMissingType = errors.New("config type is missing")
	// ErrInvalidMethod is returned for an HTTP method outside GET, POST, PUT and DELETE.
	ErrInvalidMethod = errors.New("invalid http method")
)

// Method is an HTTP verb accepted by http sources and destinations.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// Methods returns the accepted methods in display order.
func Methods() []Method {
	return []Method{MethodGet, MethodPost, MethodPut, MethodDelete}
}

// Valid reports whether m is one of the accepted methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return true
	}
	return false
}

// ParseMethod normalizes s and checks it against the accepted methods.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
	return m, nil
}

// SourceType tags a SourceConfig.
type SourceType string

const (
	SourceHTTP SourceType = "http"
	SourceTCP  SourceType = "tcp"
)

// SourceTypes returns the closed set of source tags.
func SourceTypes() []SourceType {
	return []SourceType{SourceHTTP, SourceTCP}
}

// ParseSourceType rejects tags outside the closed set.
func ParseSourceType(s string) (SourceType, error) {
	switch t := SourceType(s); t {
	case SourceHTTP, SourceTCP:
		return t, nil
	}
	return "", fmt.Errorf("%w: source %q", ErrUnknownType, s)
}

// DestinationType tags a DestinationConfig.
type DestinationType string

const (
	DestinationHTTP DestinationType = "http"
	DestinationTCP  DestinationType = "tcp"
)

// DestinationTypes returns the closed set of destination tags.
func DestinationTypes() []DestinationType {
	return []DestinationType{DestinationHTTP, DestinationTCP}
}

// ParseDestinationType rejects tags outside the closed set.
func ParseDestinationType(s string) (DestinationType, error) {
	switch t := DestinationType(s); t {
	case DestinationHTTP, DestinationTCP:
		return t, nil
	}
	return "", fmt.Errorf("%w: destination %q", ErrUnknownType, s)
}

// ScriptType is the only tag filters and transformers carry.
const ScriptType = "python_script"

// SourceConfig is the inbound listener of a channel. Implemented only by
// HTTPSource and TCPSource.
type SourceConfig interface {
	SourceType() SourceType
	cloneSource() SourceConfig
}

// DestinationConfig is an outbound sender of a channel. Implemented only by
// HTTPDestination and TCPDestination.
type DestinationConfig interface {
	DestinationType() DestinationType
	cloneDestination() DestinationConfig
}

// FilterConfig is a predicate stage. Implemented only by ScriptFilter.
type FilterConfig interface {
	FilterType() string
	cloneFilter() FilterConfig
}

// TransformerConfig is a rewrite stage. Implemented only by ScriptTransformer.
type TransformerConfig interface {
	TransformerType() string
	cloneTransformer() TransformerConfig
}

// HTTPSource listens for HTTP requests on Path.
type HTTPSource struct {
	Path   string `json:"path"`
	Method Method `json:"method" validate:"oneof=GET POST PUT DELETE"`
}

func (HTTPSource) SourceType() SourceType      { return SourceHTTP }
func (s HTTPSource) cloneSource() SourceConfig { return s }

// TCPSource listens on a TCP port, optionally with MLLP framing.
type TCPSource struct {
	Port    int     `json:"port" validate:"min=0,max=65535"`
	Host    *string `json:"host,omitempty"`
	UseMLLP *bool   `json:"use_mllp,omitempty"`
}

func (TCPSource) SourceType() SourceType { return SourceTCP }

func (s TCPSource) cloneSource() SourceConfig {
	s.Host = clonePtr(s.Host)
	s.UseMLLP = clonePtr(s.UseMLLP)
	return s
}

// HTTPDestination delivers to URL. Method and Headers are optional on the wire.
type HTTPDestination struct {
	URL     string            `json:"url"`
	Method  Method            `json:"method,omitempty" validate:"omitempty,oneof=GET POST PUT DELETE"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (HTTPDestination) DestinationType() DestinationType { return DestinationHTTP }

func (d HTTPDestination) cloneDestination() DestinationConfig {
	d.Headers = maps.Clone(d.Headers)
	return d
}

// TCPDestination delivers to Host:Port, optionally with MLLP framing.
type TCPDestination struct {
	Host    string `json:"host"`
	Port    int    `json:"port" validate:"min=0,max=65535"`
	UseMLLP *bool  `json:"use_mllp,omitempty"`
}

func (TCPDestination) DestinationType() DestinationType { return DestinationTCP }

func (d TCPDestination) cloneDestination() DestinationConfig {
	d.UseMLLP = clonePtr(d.UseMLLP)
	return d
}

// ScriptFilter carries an opaque filter script.
type ScriptFilter struct {
	Script string `json:"script"`
}

func (ScriptFilter) FilterType() string          { return ScriptType }
func (f ScriptFilter) cloneFilter() FilterConfig { return f }

// ScriptTransformer carries an opaque transformer script.
type ScriptTransformer struct {
	Script string `json:"script"`
}

func (ScriptTransformer) TransformerType() string                { return ScriptType }
func (t ScriptTransformer) cloneTransformer() TransformerConfig { return t }

// Channel is a routing definition: one source, ordered filters and
// transformers, and one or more destinations.
type Channel struct {
	ID           string              `json:"id,omitempty"`
	Name         string              `json:"name" validate:"nonblank"`
	Description  string              `json:"description,omitempty"`
	Enabled      bool                `json:"enabled"`
	Source       SourceConfig        `json:"source" validate:"required"`
	Filters      []FilterConfig      `json:"filters" validate:"dive,required"`
	Transformers []TransformerConfig `json:"transformers" validate:"dive,required"`
	Destinations []DestinationConfig `json:"destinations" validate:"min=1,dive,required"`
}

// Clone returns a deep copy of c. Nil lists stay nil.
func (c Channel) Clone() Channel {
	out := c
	if c.Source != nil {
		out.Source = c.Source.cloneSource()
	}
	if c.Filters != nil {
		out.Filters = make([]FilterConfig, len(c.Filters))
		for i, f := range c.Filters {
			if f != nil {
				out.Filters[i] = f.cloneFilter()
			}
		}
	}
	if c.Transformers != nil {
		out.Transformers = make([]TransformerConfig, len(c.Transformers))
		for i, t := range c.Transformers {
			if t != nil {
				out.Transformers[i] = t.cloneTransformer()
			}
		}
	}
	if c.Destinations != nil {
		out.Destinations = make([]DestinationConfig, len(c.Destinations))
		for i, d := range c.Destinations {
			if d != nil {
				out.Destinations[i] = d.cloneDestination()
			}
		}
	}
	return out
}

// String returns a pointer to s, for optional wire fields.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for optional wire fields.
func Bool(b bool) *bool { return &b }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package draft

import (
	"fmt"

	"channel-console/channel"
)

// DefaultSource returns the fresh config for a source tag. Tags outside the
// closed set fall back to http.
func DefaultSource(t channel.SourceType) channel.SourceConfig {
	switch t {
	case channel.SourceTCP:
		return channel.TCPSource{Port: 0, Host: channel.String("0.0.0.0"), UseMLLP: channel.Bool(false)}
	default:
		return channel.HTTPSource{Path: "", Method: channel.MethodPost}
	}
}

// DefaultDestination returns the fresh config for a destination tag. Tags
// outside the closed set fall back to http.
func DefaultDestination(t channel.DestinationType) channel.DestinationConfig {
	switch t {
	case channel.DestinationTCP:
		return channel.TCPDestination{Host: "", Port: 0, UseMLLP: channel.Bool(false)}
	default:
		return channel.HTTPDestination{URL: "", Method: channel.MethodPost}
	}
}

// ChangeSourceType replaces the whole source with the default config of t.
// Nothing of the previous variant survives.
func (s *Store) ChangeSourceType(t channel.SourceType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Source = DefaultSource(t)
}

// ChangeDestinationType replaces destinations[index] with the default
// config of t.
func (s *Store) ChangeDestinationType(index int, t channel.DestinationType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkIndex("destination", index, len(s.draft.Destinations)); err != nil {
		return err
	}
	s.draft.Destinations = replaceAt(s.draft.Destinations, index, DefaultDestination(t))
	return nil
}

func unknownField(name, variant string) error {
	return fmt.Errorf("%w: %q is not a field of %s", ErrUnknownField, name, variant)
}

func mergeSource(src channel.SourceConfig, name string, value any) (channel.SourceConfig, error) {
	if name == FieldType {
		return nil, ErrTypeField
	}

	switch s := src.(type) {
	case channel.HTTPSource:
		switch name {
		case FieldPath:
			v, err := toString(value)
			if err != nil {
				return nil, err
			}
			s.Path = v
		case FieldMethod:
			m, err := toMethod(value)
			if err != nil {
				return nil, err
			}
			s.Method = m
		default:
			return nil, unknownField(name, "http source")
		}
		return s, nil

	case channel.TCPSource:
		switch name {
		case FieldPort:
			n, err := toPort(value)
			if err != nil {
				return nil, err
			}
			s.Port = n
		case FieldHost:
			v, err := toString(value)
			if err != nil {
				return nil, err
			}
			s.Host = &v
		case FieldUseMLLP:
			b, err := toBool(value)
			if err != nil {
				return nil, err
			}
			s.UseMLLP = &b
		default:
			return nil, unknownField(name, "tcp source")
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %T", channel.ErrUnknownType, src)
}

func mergeDestination(dst channel.DestinationConfig, name string, value any) (channel.DestinationConfig, error) {
	if name == FieldType {
		return nil, ErrTypeField
	}

	switch d := dst.(type) {
	case channel.HTTPDestination:
		switch name {
		case FieldURL:
			v, err := toString(value)
			if err != nil {
				return nil, err
			}
			d.URL = v
		case FieldMethod:
			m, err := toMethod(value)
			if err != nil {
				return nil, err
			}
			d.Method = m
		case FieldHeaders:
			h, err := toHeaders(value)
			if err != nil {
				return nil, err
			}
			d.Headers = h
		default:
			return nil, unknownField(name, "http destination")
		}
		return d, nil

	case channel.TCPDestination:
		switch name {
		case FieldHost:
			v, err := toString(value)
			if err != nil {
				return nil, err
			}
			d.Host = v
		case FieldPort:
			n, err := toPort(value)
			if err != nil {
				return nil, err
			}
			d.Port = n
		case FieldUseMLLP:
			b, err := toBool(value)
			if err != nil {
				return nil, err
			}
			d.UseMLLP = &b
		default:
			return nil, unknownField(name, "tcp destination")
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: %T", channel.ErrUnknownType, dst)
}

func mergeFilter(f channel.FilterConfig, name string, value any) (channel.FilterConfig, error) {
	if name == FieldType {
		return nil, ErrTypeField
	}

	switch x := f.(type) {
	case channel.ScriptFilter:
		if name != FieldScript {
			return nil, unknownField(name, "filter")
		}
		v, err := toString(value)
		if err != nil {
			return nil, err
		}
		x.Script = v
		return x, nil
	}
	return nil, fmt.Errorf("%w: %T", channel.ErrUnknownType, f)
}

func mergeTransformer(t channel.TransformerConfig, name string, value any) (channel.TransformerConfig, error) {
	if name == FieldType {
		return nil, ErrTypeField
	}

	switch x := t.(type) {
	case channel.ScriptTransformer:
		if name != FieldScript {
			return nil, unknownField(name, "transformer")
		}
		v, err := toString(value)
		if err != nil {
			return nil, err
		}
		x.Script = v
		return x, nil
	}
	return nil, fmt.Errorf("%w: %T", channel.ErrUnknownType, t)
}

package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"channel-console/channel"
)

// Values arrive as form strings from the HTML console or as decoded JSON
// scalars from the API; the helpers below accept both.

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%w: expected text, got %T", ErrInvalidValue, v)
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: %v is not a whole number", ErrInvalidValue, x)
		}
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidValue, x)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidValue, x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: expected a number, got %T", ErrInvalidValue, v)
}

func toPort(v any) (int, error) {
	n, err := toInt(v)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 65535 {
		return 0, fmt.Errorf("%w: port %d out of range", ErrInvalidValue, n)
	}
	return n, nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "on", "yes":
			return true, nil
		case "", "off", "no":
			return false, nil
		}
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, x)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: expected a boolean, got %T", ErrInvalidValue, v)
}

func toMethod(v any) (channel.Method, error) {
	s, err := toString(v)
	if err != nil {
		return "", err
	}
	m, err := channel.ParseMethod(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return m, nil
}

// toHeaders accepts a JSON object given as text or raw JSON, or as an
// already decoded map. Only the first two can catch repeated keys. Blank text
// clears the header block.
func toHeaders(v any) (map[string]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		out := make(map[string]string, len(x))
		for k, val := range x {
			out[k] = val
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(x))
		for k, val := range x {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("%w: value of %q is not a string", ErrInvalidHeaders, k)
			}
			out[k] = s
		}
		return out, nil
	case json.RawMessage:
		return ParseHeaders(string(x))
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		return ParseHeaders(x)
	}
	return nil, fmt.Errorf("%w: got %T", ErrInvalidHeaders, v)
}

// ParseHeaders parses a JSON object of string values, rejecting syntax
// errors, non-string values and repeated keys.
func ParseHeaders(text string) (map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(text))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeaders, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidHeaders)
	}

	out := map[string]string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidHeaders, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected a header name", ErrInvalidHeaders)
		}
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidHeaders, err)
		}
		val, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: value of %q is not a string", ErrInvalidHeaders, key)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: header %q appears twice", ErrInvalidHeaders, key)
		}
		out[key] = val
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeaders, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidHeaders)
	}
	return out, nil
}

// FormatHeaders renders headers the way ParseHeaders reads them.
func FormatHeaders(h map[string]string) string {
	if h == nil {
		return "{}"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(h); err != nil {
		return "{}"
	}
	return strings.TrimSpace(buf.String())
}

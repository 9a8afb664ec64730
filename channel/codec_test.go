package channel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChannel(t *testing.T) {
	raw := `{
		"id": "lab-1",
		"name": "Lab Feed",
		"source": {"type": "tcp", "port": 6000, "use_mllp": true},
		"filters": [{"type": "python_script", "script": "return True"}],
		"transformers": [],
		"destinations": [
			{"type": "http", "url": "http://lis/in", "method": "PUT", "headers": {"X-Key": "abc"}},
			{"type": "tcp", "host": "10.0.0.5", "port": 6001}
		]
	}`

	var ch Channel
	require.NoError(t, json.Unmarshal([]byte(raw), &ch))

	assert.Equal(t, "lab-1", ch.ID)
	assert.True(t, ch.Enabled, "enabled defaults to true when absent")
	assert.Equal(t, TCPSource{Port: 6000, UseMLLP: Bool(true)}, ch.Source)
	assert.Equal(t, []FilterConfig{ScriptFilter{Script: "return True"}}, ch.Filters)
	assert.Equal(t, []TransformerConfig{}, ch.Transformers)
	require.Len(t, ch.Destinations, 2)
	assert.Equal(t, HTTPDestination{URL: "http://lis/in", Method: MethodPut, Headers: map[string]string{"X-Key": "abc"}}, ch.Destinations[0])
	assert.Equal(t, TCPDestination{Host: "10.0.0.5", Port: 6001}, ch.Destinations[1])
}

func TestDecodeRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name   string
		source string
		dest   string
		err    error
	}{
		{
			name:   "unknown source type",
			source: `{"type": "ftp", "path": "/x"}`,
			dest:   `{"type": "http", "url": "u"}`,
			err:    ErrUnknownType,
		},
		{
			name:   "missing source type",
			source: `{"path": "/x", "method": "POST"}`,
			dest:   `{"type": "http", "url": "u"}`,
			err:    ErrMissingType,
		},
		{
			name:   "unknown destination type",
			source: `{"type": "http", "path": "/x", "method": "POST"}`,
			dest:   `{"type": "kafka", "topic": "t"}`,
			err:    ErrUnknownType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"name": "n", "source": ` + tt.source + `, "destinations": [` + tt.dest + `]}`
			var ch Channel
			err := json.Unmarshal([]byte(raw), &ch)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDecodeRejectsHybridObjects(t *testing.T) {
	raw := `{"name": "n", "source": {"type": "http", "path": "/x", "method": "POST", "port": 80}, "destinations": []}`
	var ch Channel
	err := json.Unmarshal([]byte(raw), &ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")

	_, err = DecodeDestination(json.RawMessage(`{"type": "tcp", "host": "h", "port": 1, "url": "http://x"}`))
	assert.Error(t, err)

	_, err = DecodeFilter(json.RawMessage(`{"type": "python_script", "script": "", "engine": "js"}`))
	assert.Error(t, err)
}

func TestDecodeRejectsMissingSource(t *testing.T) {
	var ch Channel
	err := json.Unmarshal([]byte(`{"name": "n", "destinations": []}`), &ch)
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestMarshalWritesTypeTags(t *testing.T) {
	ch := Channel{
		ID:      "lab-1",
		Name:    "Lab Feed",
		Enabled: true,
		Source:  HTTPSource{Path: "/lab", Method: MethodPost},
		Destinations: []DestinationConfig{
			TCPDestination{Host: "10.0.0.5", Port: 6000, UseMLLP: Bool(true)},
		},
	}

	data, err := json.Marshal(ch)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "lab-1",
		"name": "Lab Feed",
		"enabled": true,
		"source": {"type": "http", "path": "/lab", "method": "POST"},
		"filters": [],
		"transformers": [],
		"destinations": [{"type": "tcp", "host": "10.0.0.5", "port": 6000, "use_mllp": true}]
	}`, string(data))
}

func TestRoundTripKeepsOptionalFieldPresence(t *testing.T) {
	raw := `{
		"id": "a",
		"name": "A",
		"enabled": false,
		"source": {"type": "tcp", "port": 2575},
		"filters": [],
		"transformers": [{"type": "python_script", "script": "msg.upper()"}],
		"destinations": [
			{"type": "http", "url": "http://x", "headers": {}},
			{"type": "http", "url": "http://y", "method": "GET"}
		]
	}`

	var ch Channel
	require.NoError(t, json.Unmarshal([]byte(raw), &ch))

	out, err := json.Marshal(ch)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestCloneDoesNotAlias(t *testing.T) {
	orig := Channel{
		Name:   "n",
		Source: TCPSource{Port: 1, Host: String("0.0.0.0")},
		Destinations: []DestinationConfig{
			HTTPDestination{URL: "u", Headers: map[string]string{"A": "1"}},
		},
	}

	cp := orig.Clone()
	*cp.Source.(TCPSource).Host = "changed"
	cp.Destinations[0].(HTTPDestination).Headers["A"] = "2"
	cp.Destinations = append(cp.Destinations, TCPDestination{})

	assert.Equal(t, "0.0.0.0", *orig.Source.(TCPSource).Host)
	assert.Equal(t, "1", orig.Destinations[0].(HTTPDestination).Headers["A"])
	assert.Len(t, orig.Destinations, 1)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" put ")
	require.NoError(t, err)
	assert.Equal(t, MethodPut, m)

	_, err = ParseMethod("PATCH")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

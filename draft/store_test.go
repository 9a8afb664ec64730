package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-console/channel"
)

func fetchedChannel() channel.Channel {
	return channel.Channel{
		ID:          "lab-1",
		Name:        "Lab Feed",
		Description: "results from the lab",
		Enabled:     false,
		Source:      channel.TCPSource{Port: 2575, Host: channel.String("0.0.0.0"), UseMLLP: channel.Bool(true)},
		Filters:     []channel.FilterConfig{channel.ScriptFilter{Script: "return True"}},
		Transformers: []channel.TransformerConfig{
			channel.ScriptTransformer{Script: "return msg"},
		},
		Destinations: []channel.DestinationConfig{
			channel.HTTPDestination{URL: "http://lis/in", Method: channel.MethodPost, Headers: map[string]string{}},
			channel.TCPDestination{Host: "10.0.0.5", Port: 6000},
		},
	}
}

func TestNewDefaultDraft(t *testing.T) {
	s := New(nil)

	assert.Equal(t, ModeCreate, s.Mode())
	assert.Equal(t, channel.Channel{
		Enabled:      true,
		Source:       channel.HTTPSource{Path: "", Method: channel.MethodPost},
		Filters:      []channel.FilterConfig{},
		Transformers: []channel.TransformerConfig{},
		Destinations: []channel.DestinationConfig{channel.HTTPDestination{URL: "", Method: channel.MethodPost}},
	}, s.Snapshot())
}

func TestInitializeRoundTrip(t *testing.T) {
	fetched := fetchedChannel()
	s := New(&fetched)

	assert.Equal(t, ModeEdit, s.Mode())
	assert.Equal(t, fetched, s.Snapshot())
}

func TestInitializeCopiesInput(t *testing.T) {
	fetched := fetchedChannel()
	s := New(&fetched)

	require.NoError(t, s.SetDestinationField(0, FieldHeaders, `{"A": "1"}`))
	require.NoError(t, s.SetSourceField(FieldHost, "127.0.0.1"))

	assert.Empty(t, fetched.Destinations[0].(channel.HTTPDestination).Headers)
	assert.Equal(t, "0.0.0.0", *fetched.Source.(channel.TCPSource).Host)
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := New(nil)
	snap := s.Snapshot()
	snap.Name = "mutated"
	snap.Destinations[0] = channel.TCPDestination{}

	after := s.Snapshot()
	assert.Equal(t, "", after.Name)
	assert.Equal(t, channel.DestinationHTTP, after.Destinations[0].DestinationType())
}

func TestSetFieldIdempotent(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.SetField(FieldName, "Lab Feed"))
	once := s.Snapshot()
	require.NoError(t, s.SetField(FieldName, "Lab Feed"))
	assert.Equal(t, once, s.Snapshot())
}

func TestSetFieldCoercesFormValues(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.SetField(FieldEnabled, "off"))
	assert.False(t, s.Snapshot().Enabled)
	require.NoError(t, s.SetField(FieldEnabled, true))
	assert.True(t, s.Snapshot().Enabled)

	assert.ErrorIs(t, s.SetField(FieldEnabled, "maybe"), ErrInvalidValue)
	assert.ErrorIs(t, s.SetField("source", "x"), ErrUnknownField)
}

func TestIDImmutableInEditMode(t *testing.T) {
	fetched := fetchedChannel()
	s := New(&fetched)
	before := s.Snapshot()

	err := s.SetField(FieldID, "other")
	assert.ErrorIs(t, err, ErrIDImmutable)
	assert.Equal(t, before, s.Snapshot())

	created := New(nil)
	require.NoError(t, created.SetField(FieldID, "lab-1"))
	assert.Equal(t, "lab-1", created.Snapshot().ID)
}

func TestSetSourceFieldKeepsType(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.SetSourceField(FieldPath, "/lab"))
	require.NoError(t, s.SetSourceField(FieldMethod, "put"))
	assert.Equal(t, channel.HTTPSource{Path: "/lab", Method: channel.MethodPut}, s.Snapshot().Source)

	assert.ErrorIs(t, s.SetSourceField(FieldType, "tcp"), ErrTypeField)
	assert.ErrorIs(t, s.SetSourceField(FieldPort, 80), ErrUnknownField)
	assert.ErrorIs(t, s.SetSourceField(FieldMethod, "PATCH"), ErrInvalidValue)
	assert.Equal(t, channel.HTTPSource{Path: "/lab", Method: channel.MethodPut}, s.Snapshot().Source)
}

func TestSetTCPSourceFields(t *testing.T) {
	s := New(nil)
	s.ChangeSourceType(channel.SourceTCP)

	require.NoError(t, s.SetSourceField(FieldPort, "6000"))
	require.NoError(t, s.SetSourceField(FieldUseMLLP, "on"))
	require.NoError(t, s.SetSourceField(FieldHost, "127.0.0.1"))

	assert.Equal(t, channel.TCPSource{
		Port:    6000,
		Host:    channel.String("127.0.0.1"),
		UseMLLP: channel.Bool(true),
	}, s.Snapshot().Source)

	assert.ErrorIs(t, s.SetSourceField(FieldPort, "70000"), ErrInvalidValue)
	assert.ErrorIs(t, s.SetSourceField(FieldPort, 12.5), ErrInvalidValue)
	assert.ErrorIs(t, s.SetSourceField(FieldPath, "/x"), ErrUnknownField)
}

func TestChangeSourceTypeReplacesWholesale(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.SetSourceField(FieldPath, "/x"))
	require.NoError(t, s.SetSourceField(FieldMethod, "GET"))

	s.ChangeSourceType(channel.SourceTCP)
	assert.Equal(t, channel.TCPSource{Port: 0, Host: channel.String("0.0.0.0"), UseMLLP: channel.Bool(false)}, s.Snapshot().Source)

	s.ChangeSourceType(channel.SourceHTTP)
	assert.Equal(t, channel.HTTPSource{Path: "", Method: channel.MethodPost}, s.Snapshot().Source)

	s.ChangeSourceType(channel.SourceTCP)
	s.ChangeSourceType("ftp")
	assert.Equal(t, channel.HTTPSource{Path: "", Method: channel.MethodPost}, s.Snapshot().Source)
}

func TestChangeDestinationType(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.SetDestinationField(0, FieldURL, "http://x"))
	require.NoError(t, s.SetDestinationField(0, FieldHeaders, `{"A":"1"}`))

	require.NoError(t, s.ChangeDestinationType(0, channel.DestinationTCP))
	assert.Equal(t, channel.TCPDestination{Host: "", Port: 0, UseMLLP: channel.Bool(false)}, s.Snapshot().Destinations[0])

	require.NoError(t, s.ChangeDestinationType(0, channel.DestinationHTTP))
	assert.Equal(t, channel.HTTPDestination{URL: "", Method: channel.MethodPost}, s.Snapshot().Destinations[0])

	before := s.Snapshot()
	assert.ErrorIs(t, s.ChangeDestinationType(3, channel.DestinationTCP), ErrIndexOutOfRange)
	assert.Equal(t, before, s.Snapshot())
}

func TestMalformedHeadersKeepPreviousValue(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.SetDestinationField(0, FieldHeaders, "{}"))

	err := s.SetDestinationField(0, FieldHeaders, `{"Content-Type":}`)
	require.ErrorIs(t, err, ErrInvalidHeaders)
	assert.Equal(t, map[string]string{}, s.Snapshot().Destinations[0].(channel.HTTPDestination).Headers)

	require.NoError(t, s.SetDestinationField(0, FieldHeaders, map[string]any{"Content-Type": "application/json"}))
	assert.Equal(t,
		map[string]string{"Content-Type": "application/json"},
		s.Snapshot().Destinations[0].(channel.HTTPDestination).Headers,
	)
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
		ok    bool
	}{
		{name: "object", input: `{"Content-Type": "application/json"}`, want: map[string]string{"Content-Type": "application/json"}, ok: true},
		{name: "empty", input: `{}`, want: map[string]string{}, ok: true},
		{name: "missing value", input: `{"Content-Type":}`},
		{name: "number value", input: `{"X-Retry": 3}`},
		{name: "duplicate key", input: `{"A": "1", "A": "2"}`},
		{name: "array", input: `["A"]`},
		{name: "trailing data", input: `{} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeaders(tt.input)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidHeaders)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListOperations(t *testing.T) {
	s := New(nil)
	s.AddFilter()
	s.AddFilter()
	s.AddTransformer()
	s.AddDestination()

	require.NoError(t, s.SetFilterField(1, FieldScript, "second"))
	require.NoError(t, s.SetTransformerField(0, FieldScript, "upper"))
	assert.ErrorIs(t, s.SetFilterField(0, FieldType, "python_script"), ErrTypeField)
	assert.ErrorIs(t, s.SetTransformerField(0, "engine", "js"), ErrUnknownField)

	snap := s.Snapshot()
	assert.Equal(t, []channel.FilterConfig{channel.ScriptFilter{}, channel.ScriptFilter{Script: "second"}}, snap.Filters)
	assert.Equal(t, []channel.TransformerConfig{channel.ScriptTransformer{Script: "upper"}}, snap.Transformers)
	assert.Len(t, snap.Destinations, 2)

	require.NoError(t, s.RemoveFilter(0))
	assert.Equal(t, []channel.FilterConfig{channel.ScriptFilter{Script: "second"}}, s.Snapshot().Filters)

	require.NoError(t, s.RemoveDestination(1))
	require.NoError(t, s.RemoveDestination(0))
	assert.Empty(t, s.Snapshot().Destinations)
}

func TestOutOfRangeLeavesDraftUnchanged(t *testing.T) {
	fetched := fetchedChannel()
	s := New(&fetched)
	before := s.Snapshot()

	assert.ErrorIs(t, s.RemoveFilter(5), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.RemoveTransformer(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.RemoveDestination(2), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.SetDestinationField(9, FieldURL, "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.SetFilterField(1, FieldScript, "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.SetTransformerField(1, FieldScript, "x"), ErrIndexOutOfRange)

	assert.Equal(t, before, s.Snapshot())
}

func TestFormatHeaders(t *testing.T) {
	assert.Equal(t, "{}", FormatHeaders(nil))
	assert.Equal(t, `{"A":"<b>"}`, FormatHeaders(map[string]string{"A": "<b>"}))
}

package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-console/channel"
	"channel-console/config"
)

type recorded struct {
	method string
	path   string
	body   string
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{method: r.Method, path: r.URL.EscapedPath(), body: string(body)})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(config.BackendConfig{BaseURL: srv.URL + "/api/v1/", TimeoutSeconds: 5}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return c, &calls
}

func labFeed() channel.Channel {
	return channel.Channel{
		ID:      "lab-1",
		Name:    "Lab Feed",
		Enabled: true,
		Source:  channel.HTTPSource{Path: "/lab", Method: channel.MethodPost},
		Destinations: []channel.DestinationConfig{
			channel.TCPDestination{Host: "10.0.0.5", Port: 6000, UseMLLP: channel.Bool(true)},
		},
	}
}

func TestCreateChannelSendsExactShape(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body, _ := json.Marshal(labFeed())
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	})

	created, err := c.CreateChannel(context.Background(), labFeed())
	require.NoError(t, err)
	assert.Equal(t, labFeed(), created)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/api/v1/channels/", call.path)
	assert.JSONEq(t, `{
		"id": "lab-1",
		"name": "Lab Feed",
		"enabled": true,
		"source": {"type": "http", "path": "/lab", "method": "POST"},
		"filters": [],
		"transformers": [],
		"destinations": [{"type": "tcp", "host": "10.0.0.5", "port": 6000, "use_mllp": true}]
	}`, call.body)
}

func TestRequestPaths(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/channels/":
			w.Write([]byte(`[]`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			body, _ := json.Marshal(labFeed())
			w.Write(body)
		}
	})
	ctx := context.Background()

	list, err := c.ListChannels(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = c.GetChannel(ctx, "lab 1")
	require.NoError(t, err)
	_, err = c.UpdateChannel(ctx, "lab-1", labFeed())
	require.NoError(t, err)
	require.NoError(t, c.DeleteChannel(ctx, "lab-1"))

	want := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/channels/"},
		{http.MethodGet, "/api/v1/channels/lab%201"},
		{http.MethodPut, "/api/v1/channels/lab-1"},
		{http.MethodDelete, "/api/v1/channels/lab-1"},
	}
	require.Len(t, *calls, len(want))
	for i, w := range want {
		assert.Equal(t, w.method, (*calls)[i].method)
		assert.Equal(t, w.path, (*calls)[i].path)
	}
	assert.Empty(t, (*calls)[3].body)
}

func TestProcessMessage(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "processed_message": "PING"}`))
	})

	res, err := c.ProcessMessage(context.Background(), "lab-1", channel.ProcessRequest{Message: "ping"})
	require.NoError(t, err)

	require.NotNil(t, res.Success)
	assert.True(t, *res.Success)
	require.NotNil(t, res.ProcessedMessage)
	assert.Equal(t, "PING", *res.ProcessedMessage)
	assert.Nil(t, res.Result)
	assert.Nil(t, res.Error)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/v1/channels/lab-1/process", (*calls)[0].path)
	assert.JSONEq(t, `{"message": "ping"}`, (*calls)[0].body)
}

func TestNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Channel not found"}`))
	})

	_, err := c.GetChannel(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "get channel", berr.Op)
	assert.Equal(t, "Channel not found", berr.Detail)
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string detail", body: `{"detail": "Channel exists"}`, want: "Channel exists"},
		{name: "structured detail", body: `{"detail":[{"loc":["body","name"]}]}`, want: `[{"loc":["body","name"]}]`},
		{name: "plain text", body: "  upstream down \n", want: "upstream down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorDetail([]byte(tt.body)))
		})
	}
}

func TestBackendRejection(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail": "Channel with this ID already exists"}`))
	})

	_, err := c.CreateChannel(context.Background(), labFeed())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "409")
}

func TestUnknownTypeInResponseIsRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "x", "name": "x", "source": {"type": "smtp"}, "destinations": []}`))
	})

	_, err := c.GetChannel(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, channel.ErrUnknownType)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(config.BackendConfig{BaseURL: url, TimeoutSeconds: 1}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	_, err = c.ListChannels(context.Background())
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Zero(t, berr.StatusCode)
	assert.Equal(t, "list channels", berr.Op)
}

func TestNewClientRejectsRelativeBase(t *testing.T) {
	_, err := NewClient(config.BackendConfig{BaseURL: "/api/v1", TimeoutSeconds: 1}, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

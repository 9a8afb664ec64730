package collector

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-console/channel"
	"channel-console/metrics"
)

type fakeLister struct {
	channels []channel.Channel
	err      error
}

func (f fakeLister) ListChannels(context.Context) ([]channel.Channel, error) {
	return f.channels, f.err
}

func TestSummarize(t *testing.T) {
	got := Summarize([]channel.Channel{
		{ID: "a", Enabled: true},
		{ID: "b", Enabled: false},
		{ID: "c", Enabled: true},
	})
	assert.Equal(t, Summary{Total: 3, Enabled: 2, Disabled: 1}, got)
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestRefreshSetsGauges(t *testing.T) {
	svc := NewService(fakeLister{channels: []channel.Channel{
		{ID: "a", Enabled: true},
		{ID: "b"},
		{ID: "c"},
	}}, time.Second, slog.New(slog.DiscardHandler))

	svc.Refresh()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Channels.WithLabelValues("enabled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Channels.WithLabelValues("disabled")))
}

func TestSummaryError(t *testing.T) {
	svc := NewService(fakeLister{err: errors.New("unreachable")}, time.Second, slog.New(slog.DiscardHandler))
	_, _, err := svc.Summary(context.Background())
	require.Error(t, err)

	before := testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues("collector"))
	svc.Refresh()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues("collector")))
}

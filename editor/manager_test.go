package editor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-console/activity"
	"channel-console/channel"
	"channel-console/draft"
)

func TestManagerOpen(t *testing.T) {
	b := newFakeBackend()
	b.channels["lab-1"] = channel.Channel{
		ID:           "lab-1",
		Name:         "Lab Feed",
		Enabled:      true,
		Source:       channel.TCPSource{Port: 2575},
		Destinations: []channel.DestinationConfig{channel.TCPDestination{Host: "h", Port: 1}},
	}
	m := NewManager(b, activity.NewRecorder(discard()), discard())
	ctx := context.Background()

	created, err := m.Open(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, draft.ModeCreate, created.Mode())
	assert.Equal(t, draft.Default(), created.Draft())

	edited, err := m.Open(ctx, "lab-1")
	require.NoError(t, err)
	assert.Equal(t, draft.ModeEdit, edited.Mode())
	assert.Equal(t, b.channels["lab-1"], edited.Draft())
	assert.Equal(t, "lab-1", edited.Status().ChannelID)

	_, err = m.Open(ctx, "missing")
	assert.Error(t, err)

	assert.Equal(t, 2, m.Len())
	got, ok := m.Get(edited.ID())
	require.True(t, ok)
	assert.Same(t, edited, got)
}

func TestManagerCloseTearsDown(t *testing.T) {
	m := NewManager(newFakeBackend(), nil, discard())
	s, err := m.Open(context.Background(), "")
	require.NoError(t, err)

	assert.True(t, m.Close(s.ID()))
	assert.True(t, s.Closed())
	assert.False(t, m.Close(s.ID()))

	_, ok := m.Get(s.ID())
	assert.False(t, ok)
}

func TestManagerSweep(t *testing.T) {
	m := NewManager(newFakeBackend(), nil, discard())
	s, err := m.Open(context.Background(), "")
	require.NoError(t, err)

	assert.Zero(t, m.Sweep(time.Hour))
	assert.Equal(t, 1, m.Sweep(-time.Second))
	assert.True(t, s.Closed())
	assert.Zero(t, m.Len())
}

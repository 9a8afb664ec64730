package editor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"channel-console/activity"
	"channel-console/channel"
	"channel-console/sessions"
)

// Backend is what editor sessions need from the channel service.
type Backend interface {
	Saver
	GetChannel(ctx context.Context, id string) (channel.Channel, error)
}

// Manager opens editor sessions and keeps them until they are closed or
// swept for inactivity.
type Manager struct {
	backend  Backend
	registry *sessions.Registry[*Session]
	recorder *activity.Recorder
	logger   *slog.Logger
}

func NewManager(backend Backend, recorder *activity.Recorder, logger *slog.Logger) *Manager {
	return &Manager{
		backend:  backend,
		registry: sessions.New[*Session]("editor"),
		recorder: recorder,
		logger:   logger.With("component", "editor"),
	}
}

// Open starts a session. An empty channelID creates a new channel; any other
// value loads the persisted channel for editing.
func (m *Manager) Open(ctx context.Context, channelID string) (*Session, error) {
	var existing *channel.Channel
	if channelID != "" {
		ch, err := m.backend.GetChannel(ctx, channelID)
		if err != nil {
			m.logger.Error("failed to load channel for editing", "channel_id", channelID, "error", err)
			return nil, fmt.Errorf("load channel %s: %w", channelID, err)
		}
		existing = &ch
	}

	id := sessions.NewID()
	s := NewSession(id, existing, m.backend, m.recorder, m.logger)
	m.registry.Put(id, s)
	m.logger.Debug("editor session opened", "session_id", id, "channel_id", channelID)
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	return m.registry.Get(id)
}

// Close tears the session down and forgets it.
func (m *Manager) Close(id string) bool {
	return m.registry.Remove(id)
}

// Sweep closes sessions idle for longer than maxIdle.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	n := m.registry.Sweep(maxIdle)
	if n > 0 {
		m.logger.Info("swept idle editor sessions", "count", n)
	}
	return n
}

func (m *Manager) Len() int {
	return m.registry.Len()
}

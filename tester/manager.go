package tester

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"channel-console/activity"
	"channel-console/channel"
	"channel-console/sessions"
)

const MsgLoadFailed = "Failed to load channel."

// Backend is what testers need from the channel service.
type Backend interface {
	Processor
	GetChannel(ctx context.Context, id string) (channel.Channel, error)
}

// Manager opens testers and keeps them until they are closed or swept.
type Manager struct {
	backend  Backend
	registry *sessions.Registry[*Tester]
	recorder *activity.Recorder
	logger   *slog.Logger
}

func NewManager(backend Backend, recorder *activity.Recorder, logger *slog.Logger) *Manager {
	return &Manager{
		backend:  backend,
		registry: sessions.New[*Tester]("tester"),
		recorder: recorder,
		logger:   logger.With("component", "tester"),
	}
}

// Open loads the persisted channel and starts a tester for it.
func (m *Manager) Open(ctx context.Context, channelID string) (*Tester, error) {
	if channelID == "" {
		return nil, ErrNotPersisted
	}
	ch, err := m.backend.GetChannel(ctx, channelID)
	if err != nil {
		m.logger.Error("failed to load channel for testing", "channel_id", channelID, "error", err)
		return nil, fmt.Errorf("load channel %s: %w", channelID, err)
	}

	id := sessions.NewID()
	t := New(id, ch, m.backend, m.recorder, m.logger)
	m.registry.Put(id, t)
	return t, nil
}

func (m *Manager) Get(id string) (*Tester, bool) {
	return m.registry.Get(id)
}

func (m *Manager) Close(id string) bool {
	return m.registry.Remove(id)
}

func (m *Manager) Sweep(maxIdle time.Duration) int {
	n := m.registry.Sweep(maxIdle)
	if n > 0 {
		m.logger.Info("swept idle testers", "count", n)
	}
	return n
}

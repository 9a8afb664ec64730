package collector

import (
	"context"
	"log/slog"
	"time"

	"channel-console/channel"
	"channel-console/metrics"
)

// Lister fetches the channels known to the backend.
type Lister interface {
	ListChannels(ctx context.Context) ([]channel.Channel, error)
}

// Summary holds the dashboard counters.
type Summary struct {
	Total    int `json:"total"`
	Enabled  int `json:"enabled"`
	Disabled int `json:"disabled"`
}

// Service is responsible for summarizing the channels on the backend.
type Service struct {
	lister  Lister
	timeout time.Duration
	logger  *slog.Logger
}

// NewService creates a new collector service. timeout bounds one scheduled
// refresh.
func NewService(lister Lister, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		lister:  lister,
		timeout: timeout,
		logger:  logger,
	}
}

// Summarize counts enabled and disabled channels.
func Summarize(channels []channel.Channel) Summary {
	s := Summary{Total: len(channels)}
	for _, ch := range channels {
		if ch.Enabled {
			s.Enabled++
		} else {
			s.Disabled++
		}
	}
	return s
}

// Summary fetches the channel list and returns it with its counters.
func (s *Service) Summary(ctx context.Context) (Summary, []channel.Channel, error) {
	channels, err := s.lister.ListChannels(ctx)
	if err != nil {
		return Summary{}, nil, err
	}
	return Summarize(channels), channels, nil
}

// Refresh is the scheduled job that publishes the counters as gauges.
// Failures are logged and the previous gauge values stay in place.
func (s *Service) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	sum, _, err := s.Summary(ctx)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("collector").Inc()
		s.logger.Error("failed to refresh channel summary", "error", err)
		return
	}

	metrics.Channels.WithLabelValues("enabled").Set(float64(sum.Enabled))
	metrics.Channels.WithLabelValues("disabled").Set(float64(sum.Disabled))
	s.logger.Debug("channel summary refreshed", "total", sum.Total, "enabled", sum.Enabled, "disabled", sum.Disabled)
}

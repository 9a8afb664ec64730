package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"channel-console/activity"
	"channel-console/channel"
)

// ChannelRoutes handles routing for /admin/channels/* paths.
func ChannelRoutes(h *Handler, w http.ResponseWriter, r *http.Request, parts []string) {
	// GET /admin/channels
	if r.Method == http.MethodGet && (len(parts) == 0 || parts[0] == "") {
		h.handleListChannels(w, r)
		return
	}

	// GET /admin/channels/new
	if r.Method == http.MethodGet && len(parts) == 1 && parts[0] == "new" {
		h.handleOpenEditor(w, r, "")
		return
	}

	if len(parts) == 2 {
		channelID := parts[0]
		switch {
		// GET /admin/channels/{id}/edit
		case r.Method == http.MethodGet && parts[1] == "edit":
			h.handleOpenEditor(w, r, channelID)
			return
		// GET /admin/channels/{id}/test
		case r.Method == http.MethodGet && parts[1] == "test":
			h.handleOpenTester(w, r, channelID)
			return
		// POST /admin/channels/{id}/delete
		case r.Method == http.MethodPost && parts[1] == "delete":
			h.handleDeleteChannel(w, r, channelID)
			return
		}
	}

	http.NotFound(w, r)
}

// ChannelRow is one line of the channel list.
type ChannelRow struct {
	ID           string
	Name         string
	Description  string
	Enabled      bool
	Source       string
	Destinations []string
	Filters      int
	Transformers int
}

func channelRow(ch channel.Channel) ChannelRow {
	row := ChannelRow{
		ID:           ch.ID,
		Name:         ch.Name,
		Description:  ch.Description,
		Enabled:      ch.Enabled,
		Source:       describeSource(ch.Source),
		Filters:      len(ch.Filters),
		Transformers: len(ch.Transformers),
	}
	for _, d := range ch.Destinations {
		row.Destinations = append(row.Destinations, describeDestination(d))
	}
	return row
}

func describeSource(src channel.SourceConfig) string {
	switch s := src.(type) {
	case channel.HTTPSource:
		return fmt.Sprintf("HTTP %s %s", s.Method, s.Path)
	case channel.TCPSource:
		host := "0.0.0.0"
		if s.Host != nil {
			host = *s.Host
		}
		return fmt.Sprintf("TCP %s:%d%s", host, s.Port, mllpSuffix(s.UseMLLP))
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", src)
}

func describeDestination(dst channel.DestinationConfig) string {
	switch d := dst.(type) {
	case channel.HTTPDestination:
		if d.Method == "" {
			return "HTTP " + d.URL
		}
		return fmt.Sprintf("HTTP %s %s", d.Method, d.URL)
	case channel.TCPDestination:
		return fmt.Sprintf("TCP %s:%d%s", d.Host, d.Port, mllpSuffix(d.UseMLLP))
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", dst)
}

func mllpSuffix(useMLLP *bool) string {
	if useMLLP != nil && *useMLLP {
		return " (MLLP)"
	}
	return ""
}

func (h *Handler) handleListChannels(w http.ResponseWriter, r *http.Request) {
	lang := h.determineLanguage(r)
	data := h.pageData(lang)

	channels, err := h.Backend.ListChannels(r.Context())
	if err != nil {
		h.Logger.Error("failed to fetch channels", "error", err)
		data.ErrorMessage = h.I18n.Sprintf(lang, "Failed to fetch channels.")
		h.renderTemplateStatus(w, "channels.html", data, http.StatusBadGateway)
		return
	}
	for _, ch := range channels {
		data.Channels = append(data.Channels, channelRow(ch))
	}

	q := r.URL.Query()
	switch q.Get("status") {
	case "saved":
		data.StatusMessage = h.I18n.Sprintf(lang, "Channel saved successfully.")
	case "deleted":
		data.StatusMessage = h.I18n.Sprintf(lang, "Channel deleted.")
	}
	switch q.Get("error") {
	case "delete":
		data.ErrorMessage = h.I18n.Sprintf(lang, "Failed to delete channel %s.", q.Get("id"))
	case "load":
		data.ErrorMessage = h.I18n.Sprintf(lang, "Failed to load channel.")
	}

	h.renderTemplate(w, "channels.html", data)
}

func (h *Handler) handleDeleteChannel(w http.ResponseWriter, r *http.Request, channelID string) {
	ctx := context.WithoutCancel(r.Context())
	if err := h.Backend.DeleteChannel(ctx, channelID); err != nil {
		h.Logger.Error("failed to delete channel", "channel_id", channelID, "error", err)
		h.Recorder.Record(ctx, activity.Event{Kind: activity.ChannelDeleted, ChannelID: channelID, Outcome: activity.Failure, Detail: err.Error()})
		http.Redirect(w, r, "/admin/channels?error=delete&id="+url.QueryEscape(channelID), http.StatusSeeOther)
		return
	}
	h.Recorder.Record(ctx, activity.Event{Kind: activity.ChannelDeleted, ChannelID: channelID, Outcome: activity.Success})
	http.Redirect(w, r, "/admin/channels?status=deleted", http.StatusSeeOther)
}

func (h *Handler) handleOpenEditor(w http.ResponseWriter, r *http.Request, channelID string) {
	s, err := h.Editors.Open(r.Context(), channelID)
	if err != nil {
		http.Redirect(w, r, "/admin/channels?error=load", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/editor/"+s.ID(), http.StatusSeeOther)
}

func (h *Handler) handleOpenTester(w http.ResponseWriter, r *http.Request, channelID string) {
	t, err := h.Testers.Open(r.Context(), channelID)
	if err != nil {
		http.Redirect(w, r, "/admin/channels?error=load", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/tester/"+t.ID(), http.StatusSeeOther)
}

package admin

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"channel-console/activity"
	"channel-console/channel"
	"channel-console/collector"
	"channel-console/editor"
	"channel-console/i18n"
	"channel-console/storage"
	"channel-console/tester"
)

//go:embed templates/*.html
var templateFS embed.FS

type PageData struct {
	Version        string
	AcceptLanguage string
	Languages      []string
	Settings       map[string]string // To hold current settings
	StatusMessage  string
	ErrorMessage   string
	Summary        *collector.Summary
	Activity       []activity.Event
	Channels       []ChannelRow
	Editor         *EditorView
	Tester         *TesterView
}

// Backend is the part of the channel service the console pages call
// directly. Editing and testing go through their session managers.
type Backend interface {
	ListChannels(ctx context.Context) ([]channel.Channel, error)
	DeleteChannel(ctx context.Context, id string) error
}

// Deps groups what the console needs.
type Deps struct {
	Backend   Backend
	Store     *storage.Store
	Editors   *editor.Manager
	Testers   *tester.Manager
	Collector *collector.Service
	Recorder  *activity.Recorder
	Logger    *slog.Logger
	I18n      *i18n.Service
	Version   string
	// Retention is the age past which the maintenance action prunes activity.
	Retention time.Duration
}

type Handler struct {
	Backend   Backend
	Store     *storage.Store
	Editors   *editor.Manager
	Testers   *tester.Manager
	Collector *collector.Service
	Recorder  *activity.Recorder
	Logger    *slog.Logger
	I18n      *i18n.Service
	Version   string
	Retention time.Duration

	templates map[string]*template.Template
	now       func() time.Time
}

func NewHandler(d Deps) *Handler {
	// Add a template function map
	funcMap := template.FuncMap{
		"T": func(key string, args ...interface{}) string {
			// Overridden per request in renderTemplate.
			return key
		},
		"fieldError": func(errs map[string]editor.FieldError, key string) string {
			return errs[key].Message
		},
		"shortTime": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04:05")
		},
	}

	templates := make(map[string]*template.Template)
	for _, name := range []string{"dashboard.html", "channels.html", "editor.html", "tester.html"} {
		templates[name] = template.Must(template.New(name).Funcs(funcMap).ParseFS(templateFS, "templates/"+name, "templates/layout.html"))
	}

	return &Handler{
		Backend:   d.Backend,
		Store:     d.Store,
		Editors:   d.Editors,
		Testers:   d.Testers,
		Collector: d.Collector,
		Recorder:  d.Recorder,
		Logger:    d.Logger,
		I18n:      d.I18n,
		Version:   d.Version,
		Retention: d.Retention,
		templates: templates,
		now:       time.Now,
	}
}

// determineLanguage determines the language for the request.
// It prioritizes the language set in the database, falling back to the Accept-Language header.
func (h *Handler) determineLanguage(r *http.Request) string {
	// 1. Try to get language from DB
	lang, err := h.Store.GetSetting(storage.LanguageKey)
	if err != nil {
		h.Logger.Error("failed to get language setting from DB", "error", err)
		// Fall through to using header
	}
	if lang != "" {
		return lang
	}

	// 2. Fallback to Accept-Language header
	return r.Header.Get("Accept-Language")
}

// ServeHTTP handles all incoming HTTP requests for the /admin path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Logger.Debug("admin handler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/admin")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if r.Method == http.MethodPost && path == "/settings/update" {
		h.handleUpdateSettings(w, r)
		return
	}

	if len(parts) == 0 || parts[0] == "" {
		if r.Method == http.MethodGet {
			h.handleDashboard(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}

	subPath := parts[1:]
	switch parts[0] {
	case "channels":
		ChannelRoutes(h, w, r, subPath)
	case "editor":
		EditorRoutes(h, w, r, subPath)
	case "tester":
		TesterRoutes(h, w, r, subPath)
	case "maintenance":
		MaintenanceRoutes(h, w, r, subPath)
	default:
		http.NotFound(w, r)
	}
}

// handleUpdateSettings saves application-wide settings.
func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	lang := h.determineLanguage(r)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, "dashboard.html", h.I18n.Sprintf(lang, "Failed to parse form."), http.StatusBadRequest, r)
		return
	}

	newLang := r.FormValue("language")
	if newLang != "" {
		if !slices.Contains(h.I18n.Languages(), newLang) {
			h.renderError(w, "dashboard.html", h.I18n.Sprintf(lang, "Unsupported language."), http.StatusBadRequest, r)
			return
		}
		if err := h.Store.SetSetting(storage.LanguageKey, newLang); err != nil {
			h.Logger.Error("failed to save language setting", "error", err)
			h.renderError(w, "dashboard.html", h.I18n.Sprintf(lang, "Failed to save language setting."), http.StatusInternalServerError, r)
			return
		}
	}

	http.Redirect(w, r, "/admin?status=settings_updated", http.StatusSeeOther)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	lang := h.determineLanguage(r)
	data := h.pageData(lang)

	summary, _, err := h.Collector.Summary(r.Context())
	if err != nil {
		h.Logger.Error("failed to fetch channels for dashboard", "error", err)
		data.ErrorMessage = h.I18n.Sprintf(lang, "Failed to fetch channels.")
	} else {
		data.Summary = &summary
	}

	events, err := h.Store.RecentActivity(r.Context(), 10)
	if err != nil {
		h.Logger.Error("failed to load recent activity", "error", err)
	}
	data.Activity = events

	switch status := r.URL.Query().Get("status"); {
	case status == "settings_updated":
		data.StatusMessage = h.I18n.Sprintf(lang, "Settings updated successfully.")
	case r.URL.Query().Get("pruned") != "":
		data.StatusMessage = h.I18n.Sprintf(lang, "Pruned activity entries: %s", r.URL.Query().Get("pruned"))
	}

	h.renderTemplate(w, "dashboard.html", data)
}

func (h *Handler) pageData(lang string) PageData {
	currentLang, err := h.Store.GetSetting(storage.LanguageKey)
	if err != nil {
		h.Logger.Error("failed to get language setting", "error", err)
	}
	return PageData{
		Version:        h.Version,
		AcceptLanguage: lang,
		Languages:      h.I18n.Languages(),
		Settings:       map[string]string{"language": currentLang},
	}
}

func (h *Handler) renderTemplate(w http.ResponseWriter, name string, data PageData) {
	h.renderTemplateStatus(w, name, data, http.StatusOK)
}

func (h *Handler) renderTemplateStatus(w http.ResponseWriter, name string, data PageData, statusCode int) {
	tmpl, ok := h.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("Template %s not found", name), http.StatusInternalServerError)
		return
	}

	// Clone the template set for each request to add dynamic functions
	clonedTmpl, err := tmpl.Clone()
	if err != nil {
		h.Logger.Error("failed to clone template", "error", err, "template", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	clonedTmpl.Funcs(template.FuncMap{
		"T": func(key string, args ...interface{}) string {
			return h.I18n.Sprintf(data.AcceptLanguage, key, args...)
		},
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := clonedTmpl.ExecuteTemplate(w, "layout", data); err != nil {
		h.Logger.Error("failed to execute template", "error", err, "template", name)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, templateName string, errorMessage string, statusCode int, r *http.Request) {
	data := h.pageData(h.determineLanguage(r))
	data.ErrorMessage = errorMessage
	h.renderTemplateStatus(w, templateName, data, statusCode)
}

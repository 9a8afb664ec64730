package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"channel-console/backend"
	"channel-console/channel"
	"channel-console/editor"
	"channel-console/i18n"
	"channel-console/tester"
)

const maxRequestBody = 1 << 20

type Handler struct {
	Editors *editor.Manager
	Testers *tester.Manager
	Logger  *slog.Logger
	I18n    *i18n.Service
}

func NewHandler(editors *editor.Manager, testers *tester.Manager, l *slog.Logger, i18n *i18n.Service) *Handler {
	return &Handler{
		Editors: editors,
		Testers: testers,
		Logger:  l,
		I18n:    i18n,
	}
}

type editorResponse struct {
	Status editor.Status   `json:"status"`
	Draft  channel.Channel `json:"draft"`
}

type testerResponse struct {
	Status tester.Status  `json:"status"`
	Fields []tester.Field `json:"fields"`
}

type errorResponse struct {
	Error string `json:"error"`
	// Field is set when the error belongs to one draft field.
	Field string `json:"field,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("api handler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/api")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch parts[0] {
	case "editor":
		h.editorRoutes(w, r, parts[1:])
	case "tester":
		h.testerRoutes(w, r, parts[1:])
	default:
		h.Logger.Warn("api path not found", "path", r.URL.Path)
		h.writeError(w, r, http.StatusNotFound, "Not found.")
	}
}

func (h *Handler) editorRoutes(w http.ResponseWriter, r *http.Request, parts []string) {
	// POST /api/editor
	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			h.writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed.")
			return
		}
		h.handleOpenEditor(w, r)
		return
	}

	s, ok := h.Editors.Get(parts[0])
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "Editor session expired. Open the channel again.")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.writeJSON(w, http.StatusOK, editorState(s))
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.Editors.Close(s.ID())
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "ops" && r.Method == http.MethodPost:
		h.handleApplyOp(w, r, s)
	case len(parts) == 2 && parts[1] == "submit" && r.Method == http.MethodPost:
		h.handleSubmit(w, r, s)
	default:
		h.writeError(w, r, http.StatusNotFound, "Not found.")
	}
}

func (h *Handler) handleOpenEditor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChannelID string `json:"channel_id"`
	}
	if !h.decode(w, r, &req, true) {
		return
	}

	s, err := h.Editors.Open(r.Context(), req.ChannelID)
	if err != nil {
		h.writeError(w, r, loadStatus(err), editor.MsgLoadFailed)
		return
	}
	h.writeJSON(w, http.StatusCreated, editorState(s))
}

func (h *Handler) handleApplyOp(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	var op editor.Op
	if !h.decode(w, r, &op, false) {
		return
	}

	if err := s.Apply(op); err != nil {
		if errors.Is(err, editor.ErrUnknownOp) {
			h.writeError(w, r, http.StatusBadRequest, "Unknown operation.")
			return
		}
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: h.I18n.Sprintf(r.Header.Get("Accept-Language"), editor.Describe(err)),
			Field: op.Key(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, editorState(s))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	err := s.Submit(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		resp := editorState(s)
		if saved, ok := s.Saved(); ok {
			resp.Draft = saved
		}
		h.writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, editor.ErrBusy):
		h.writeError(w, r, http.StatusConflict, "A submission is already in progress.")
	case errors.Is(err, editor.ErrSaved):
		h.writeError(w, r, http.StatusConflict, "Channel saved successfully.")
	case errors.Is(err, editor.ErrClosed), errors.Is(err, editor.ErrDiscarded):
		h.writeError(w, r, http.StatusGone, "Editor session expired. Open the channel again.")
	case errors.Is(err, editor.ErrInvalidDraft):
		h.writeJSON(w, http.StatusUnprocessableEntity, editorState(s))
	default:
		h.writeJSON(w, http.StatusBadGateway, editorState(s))
	}
}

func (h *Handler) testerRoutes(w http.ResponseWriter, r *http.Request, parts []string) {
	// POST /api/tester
	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			h.writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed.")
			return
		}
		h.handleOpenTester(w, r)
		return
	}

	t, ok := h.Testers.Get(parts[0])
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "Tester session expired. Open the channel again.")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.writeJSON(w, http.StatusOK, testerState(t))
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.Testers.Close(t.ID())
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "run" && r.Method == http.MethodPost:
		h.handleRun(w, r, t)
	default:
		h.writeError(w, r, http.StatusNotFound, "Not found.")
	}
}

func (h *Handler) handleOpenTester(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChannelID string `json:"channel_id"`
	}
	if !h.decode(w, r, &req, false) {
		return
	}

	t, err := h.Testers.Open(r.Context(), req.ChannelID)
	switch {
	case errors.Is(err, tester.ErrNotPersisted):
		h.writeError(w, r, http.StatusBadRequest, tester.MsgNotPersisted)
	case err != nil:
		h.writeError(w, r, loadStatus(err), tester.MsgLoadFailed)
	default:
		h.writeJSON(w, http.StatusCreated, testerState(t))
	}
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request, t *tester.Tester) {
	var req struct {
		Message string `json:"message"`
	}
	if !h.decode(w, r, &req, false) {
		return
	}

	err := t.Run(context.WithoutCancel(r.Context()), req.Message)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, testerState(t))
	case errors.Is(err, tester.ErrEmptyMessage):
		h.writeError(w, r, http.StatusBadRequest, tester.MsgEmptyMessage)
	case errors.Is(err, tester.ErrBusy):
		h.writeError(w, r, http.StatusConflict, "A message is already being processed.")
	case errors.Is(err, tester.ErrClosed), errors.Is(err, tester.ErrDiscarded):
		h.writeError(w, r, http.StatusGone, "Tester session expired. Open the channel again.")
	default:
		h.writeJSON(w, http.StatusBadGateway, testerState(t))
	}
}

func editorState(s *editor.Session) editorResponse {
	return editorResponse{Status: s.Status(), Draft: s.Draft()}
}

func testerState(t *tester.Tester) testerResponse {
	fields := t.Fields()
	if fields == nil {
		fields = []tester.Field{}
	}
	return testerResponse{Status: t.Status(), Fields: fields}
}

// loadStatus maps a failed channel load to a response code.
func loadStatus(err error) int {
	if errors.Is(err, backend.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// decode reads a JSON body into v. An empty body is accepted when optional.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		h.Logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: h.I18n.Sprintf(r.Header.Get("Accept-Language"), msg)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to encode response", "error", err)
	}
}

package admin

import (
	"context"
	"errors"
	"net/http"

	"channel-console/tester"
)

// TesterRoutes handles routing for /admin/tester/{tid}.
func TesterRoutes(h *Handler, w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 1 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	t, ok := h.Testers.Get(parts[0])
	if !ok {
		lang := h.determineLanguage(r)
		h.renderError(w, "channels.html", h.I18n.Sprintf(lang, "Tester session expired. Open the channel again."), http.StatusNotFound, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleShowTester(w, r, t)
	case http.MethodPost:
		h.handleTesterAction(w, r, t)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// TesterView is the dry-run page as rendered.
type TesterView struct {
	ID      string
	Channel ChannelRow
	Status  tester.Status
	Fields  []tester.Field
}

func newTesterView(t *tester.Tester) *TesterView {
	return &TesterView{
		ID:      t.ID(),
		Channel: channelRow(t.Channel()),
		Status:  t.Status(),
		Fields:  t.Fields(),
	}
}

func (h *Handler) handleShowTester(w http.ResponseWriter, r *http.Request, t *tester.Tester) {
	lang := h.determineLanguage(r)
	data := h.pageData(lang)
	data.Tester = newTesterView(t)
	if msg := data.Tester.Status.Error; msg != "" {
		data.ErrorMessage = h.I18n.Sprintf(lang, msg)
	}
	if r.URL.Query().Get("busy") != "" {
		data.ErrorMessage = h.I18n.Sprintf(lang, "A message is already being processed.")
	}
	h.renderTemplate(w, "tester.html", data)
}

func (h *Handler) handleTesterAction(w http.ResponseWriter, r *http.Request, t *tester.Tester) {
	lang := h.determineLanguage(r)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, "channels.html", h.I18n.Sprintf(lang, "Failed to parse form."), http.StatusBadRequest, r)
		return
	}

	testerURL := "/admin/tester/" + t.ID()
	switch r.PostForm.Get("action") {
	case "run":
		if err := t.Run(context.WithoutCancel(r.Context()), r.PostForm.Get("message")); errors.Is(err, tester.ErrBusy) {
			http.Redirect(w, r, testerURL+"?busy=1", http.StatusSeeOther)
			return
		}
	case "sample":
		t.SetMessage(tester.SampleMessage(h.now()))
	case "close":
		h.Testers.Close(t.ID())
		http.Redirect(w, r, "/admin/channels", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, testerURL, http.StatusSeeOther)
}

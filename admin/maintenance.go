package admin

import (
	"fmt"
	"net/http"
)

// MaintenanceRoutes handles routing for /admin/maintenance/* paths.
func MaintenanceRoutes(h *Handler, w http.ResponseWriter, r *http.Request, parts []string) {
	// POST /admin/maintenance
	if r.Method == http.MethodPost && (len(parts) == 0 || (len(parts) == 1 && parts[0] == "")) {
		h.handleMaintenanceActions(w, r)
		return
	}

	http.NotFound(w, r)
}

func (h *Handler) handleMaintenanceActions(w http.ResponseWriter, r *http.Request) {
	lang := h.determineLanguage(r)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, "dashboard.html", h.I18n.Sprintf(lang, "Failed to parse form."), http.StatusBadRequest, r)
		return
	}

	action := r.FormValue("action")
	switch action {
	case "prune_activity":
		h.handlePruneActivity(w, r)
	default:
		h.renderError(w, "dashboard.html", h.I18n.Sprintf(lang, "Unknown maintenance action."), http.StatusBadRequest, r)
	}
}

func (h *Handler) handlePruneActivity(w http.ResponseWriter, r *http.Request) {
	lang := h.determineLanguage(r)
	count, err := h.Store.PruneActivity(r.Context(), h.now().Add(-h.Retention))
	if err != nil {
		h.Logger.Error("failed to prune activity", "error", err)
		h.renderError(w, "dashboard.html", h.I18n.Sprintf(lang, "Failed to prune activity."), http.StatusInternalServerError, r)
		return
	}
	h.Logger.Info("pruned activity", "count", count)
	http.Redirect(w, r, fmt.Sprintf("/admin?pruned=%d", count), http.StatusSeeOther)
}

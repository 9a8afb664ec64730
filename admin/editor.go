package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"channel-console/channel"
	"channel-console/draft"
	"channel-console/editor"
)

// EditorRoutes handles routing for /admin/editor/{sid}.
func EditorRoutes(h *Handler, w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 1 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	s, ok := h.Editors.Get(parts[0])
	if !ok {
		lang := h.determineLanguage(r)
		h.renderError(w, "channels.html", h.I18n.Sprintf(lang, "Editor session expired. Open the channel again."), http.StatusNotFound, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleShowEditor(w, r, s)
	case http.MethodPost:
		h.handleEditorAction(w, r, s)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// EditorView is the editor form as rendered.
type EditorView struct {
	SessionID        string
	Create           bool
	Status           editor.Status
	ID               string
	Name             string
	Description      string
	Enabled          bool
	Source           SourceView
	Destinations     []DestinationView
	Filters          []ScriptView
	Transformers     []ScriptView
	Errors           map[string]editor.FieldError
	Methods          []channel.Method
	SourceTypes      []channel.SourceType
	DestinationTypes []channel.DestinationType
}

type SourceView struct {
	Type    channel.SourceType
	Path    string
	Method  string
	Port    string
	Host    string
	UseMLLP bool
}

type DestinationView struct {
	Index   int
	Key     string
	Type    channel.DestinationType
	URL     string
	Method  string
	Headers string
	Host    string
	Port    string
	UseMLLP bool
}

type ScriptView struct {
	Index  int
	Key    string
	Script string
}

func newEditorView(s *editor.Session) *EditorView {
	st := s.Status()
	ch := s.Draft()
	v := &EditorView{
		SessionID:        s.ID(),
		Create:           s.Mode() == draft.ModeCreate,
		Status:           st,
		ID:               ch.ID,
		Name:             ch.Name,
		Description:      ch.Description,
		Enabled:          ch.Enabled,
		Errors:           st.FieldErrors,
		Methods:          channel.Methods(),
		SourceTypes:      channel.SourceTypes(),
		DestinationTypes: channel.DestinationTypes(),
	}
	// Rejected input is shown again so the operator can fix it.
	input := func(key, current string) string {
		if fe, ok := st.FieldErrors[key]; ok && fe.Input != "" {
			return fe.Input
		}
		return current
	}

	v.ID = input("id", v.ID)
	v.Name = input("name", v.Name)

	switch src := ch.Source.(type) {
	case channel.HTTPSource:
		v.Source = SourceView{
			Type:   channel.SourceHTTP,
			Path:   input("source.path", src.Path),
			Method: string(src.Method),
		}
	case channel.TCPSource:
		v.Source = SourceView{
			Type:    channel.SourceTCP,
			Port:    input("source.port", strconv.Itoa(src.Port)),
			Host:    input("source.host", deref(src.Host)),
			UseMLLP: src.UseMLLP != nil && *src.UseMLLP,
		}
	}

	for i, d := range ch.Destinations {
		key := fmt.Sprintf("destinations[%d]", i)
		dv := DestinationView{Index: i, Key: key}
		switch d := d.(type) {
		case channel.HTTPDestination:
			dv.Type = channel.DestinationHTTP
			dv.URL = input(key+".url", d.URL)
			dv.Method = string(d.Method)
			dv.Headers = input(key+".headers", formatHeaders(d.Headers))
		case channel.TCPDestination:
			dv.Type = channel.DestinationTCP
			dv.Host = input(key+".host", d.Host)
			dv.Port = input(key+".port", strconv.Itoa(d.Port))
			dv.UseMLLP = d.UseMLLP != nil && *d.UseMLLP
		}
		v.Destinations = append(v.Destinations, dv)
	}

	for i, f := range ch.Filters {
		key := fmt.Sprintf("filters[%d]", i)
		switch f := f.(type) {
		case channel.ScriptFilter:
			v.Filters = append(v.Filters, ScriptView{Index: i, Key: key, Script: f.Script})
		}
	}
	for i, t := range ch.Transformers {
		key := fmt.Sprintf("transformers[%d]", i)
		switch t := t.(type) {
		case channel.ScriptTransformer:
			v.Transformers = append(v.Transformers, ScriptView{Index: i, Key: key, Script: t.Script})
		}
	}
	return v
}

func formatHeaders(h map[string]string) string {
	if h == nil {
		return ""
	}
	return draft.FormatHeaders(h)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) handleShowEditor(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	lang := h.determineLanguage(r)
	data := h.pageData(lang)
	data.Editor = newEditorView(s)
	if msg := data.Editor.Status.Error; msg != "" {
		data.ErrorMessage = h.I18n.Sprintf(lang, msg)
	}
	if r.URL.Query().Get("busy") != "" {
		data.ErrorMessage = h.I18n.Sprintf(lang, "A submission is already in progress.")
	}
	h.renderTemplate(w, "editor.html", data)
}

func (h *Handler) handleEditorAction(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	lang := h.determineLanguage(r)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, "channels.html", h.I18n.Sprintf(lang, "Failed to parse form."), http.StatusBadRequest, r)
		return
	}

	action := r.PostForm.Get("action")
	if action == "cancel" {
		h.Editors.Close(s.ID())
		http.Redirect(w, r, editor.ListPath, http.StatusSeeOther)
		return
	}

	for _, op := range formOps(r.PostForm, s.Draft(), s.Mode()) {
		// Rejected edits are recorded on the session and shown on the form.
		_ = s.Apply(op)
	}

	editorURL := "/admin/editor/" + s.ID()

	if action == "save" {
		err := s.Submit(context.WithoutCancel(r.Context()))
		switch {
		case err == nil:
			target := s.Status().Navigate
			h.Editors.Close(s.ID())
			http.Redirect(w, r, target+"?status=saved", http.StatusSeeOther)
		case errors.Is(err, editor.ErrBusy):
			http.Redirect(w, r, editorURL+"?busy=1", http.StatusSeeOther)
		default:
			http.Redirect(w, r, editorURL, http.StatusSeeOther)
		}
		return
	}

	if op, ok := actionOp(action); ok {
		_ = s.Apply(op)
	}
	http.Redirect(w, r, editorURL, http.StatusSeeOther)
}

// actionOp maps a form button value such as "add_filter" or
// "remove_destination:1" to an editor operation.
func actionOp(action string) (editor.Op, bool) {
	kind, idx, hasIndex := strings.Cut(action, ":")
	op := editor.Op{Kind: editor.OpKind(kind)}
	switch op.Kind {
	case editor.OpAddFilter, editor.OpAddTransformer, editor.OpAddDestination:
		return op, !hasIndex
	case editor.OpRemoveFilter, editor.OpRemoveTransformer, editor.OpRemoveDestination:
		if !hasIndex {
			return editor.Op{}, false
		}
		n, err := strconv.Atoi(idx)
		if err != nil {
			return editor.Op{}, false
		}
		op.Index = n
		return op, true
	}
	return editor.Op{}, false
}

// formOps turns the submitted editor form into editing operations. Field
// sets come first and type switches last, so a switch always starts from
// the fresh default of the new type. Checkboxes are paired with a hidden
// "off" input; the last submitted value wins.
func formOps(form url.Values, current channel.Channel, mode draft.Mode) []editor.Op {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sets, switches []editor.Op
	for _, key := range keys {
		vals := form[key]
		if len(vals) == 0 {
			continue
		}
		value := vals[len(vals)-1]

		parts := strings.Split(key, ".")
		switch {
		case len(parts) == 1:
			switch key {
			case draft.FieldName, draft.FieldDescription, draft.FieldEnabled:
				sets = append(sets, editor.Op{Kind: editor.OpSetField, Field: key, Value: value})
			case draft.FieldID:
				if mode == draft.ModeCreate {
					sets = append(sets, editor.Op{Kind: editor.OpSetField, Field: key, Value: value})
				}
			}

		case len(parts) == 2 && parts[0] == "source":
			field := parts[1]
			if field == draft.FieldType {
				if current.Source == nil || string(current.Source.SourceType()) != value {
					switches = append(switches, editor.Op{Kind: editor.OpChangeSourceType, Value: value})
				}
				continue
			}
			sets = append(sets, editor.Op{Kind: editor.OpSetSourceField, Field: field, Value: value})

		case len(parts) == 3:
			index, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			field := parts[2]
			switch parts[0] {
			case "destinations":
				if field == draft.FieldType {
					if index < len(current.Destinations) && string(current.Destinations[index].DestinationType()) != value {
						switches = append(switches, editor.Op{Kind: editor.OpChangeDestinationType, Index: index, Value: value})
					}
					continue
				}
				sets = append(sets, editor.Op{Kind: editor.OpSetDestinationField, Index: index, Field: field, Value: value})
			case "filters":
				sets = append(sets, editor.Op{Kind: editor.OpSetFilterField, Index: index, Field: field, Value: value})
			case "transformers":
				sets = append(sets, editor.Op{Kind: editor.OpSetTransformerField, Index: index, Field: field, Value: value})
			}
		}
	}
	return append(sets, switches...)
}

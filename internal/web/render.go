package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/store"
	"github.com/orcidhub/orcidhub/internal/view"
)

// Page names; each is parsed together with layout.tmpl.
const (
	pageIndex = "index.tmpl"
	pageAbout = "about.tmpl"
	pageList  = "list.tmpl"
	pageForm  = "form.tmpl"
	pageError = "error.tmpl"
)

var pages = []string{pageIndex, pageAbout, pageList, pageForm, pageError}

// navItem links one section of the current user.
type navItem struct {
	Code   schema.Discriminator
	Title  string
	URL    string
	Active bool
}

// page is the data every template receives.
type page struct {
	Title   string
	User    *store.User
	Nav     []navItem
	Flashes []Flash
	Body    any
}

func (p *page) notify(sev Severity, msg string) {
	p.Flashes = append(p.Flashes, Flash{Severity: sev, Message: msg})
}

// formBody is the body of form.tmpl.
type formBody struct {
	Form            *view.FormView
	ExternalIDsJSON string
	ExternalIDTypes []string
	Relationships   []extid.Relationship
}

// indexBody is the body of index.tmpl.
type indexBody struct {
	Organisation string
	Users        []store.User
	Sections     []*schema.Descriptor
}

// errorBody is the body of error.tmpl.
type errorBody struct {
	Status  int
	Message string
}

var templateFuncs = template.FuncMap{
	"listURL": func(userID string, d schema.Discriminator) string { return view.ListURL(userID, d) },
	"isType": func(f view.Field, t string) bool { return string(f.Type) == t },
}

func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New("layout.tmpl").Funcs(templateFuncs).ParseFS(fsys, "layout.tmpl", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// render writes the page, prepending the session's pending flashes. The
// template runs into a buffer so a failure can still produce a 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	if pending := h.flashes.Take(r); len(pending) > 0 {
		p.Flashes = append(pending, p.Flashes...)
	}
	var buf bytes.Buffer
	if err := h.templates[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		log.ErrorErr(log.CatHTTP, "Template execution failed", err, "template", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.render(w, r, status, pageError, &page{
		Title: http.StatusText(status),
		Body:  errorBody{Status: status, Message: msg},
	})
}

func (h *Handler) nav(userID string, active schema.Discriminator) []navItem {
	descs := h.registry.All()
	items := make([]navItem, 0, len(descs))
	for _, d := range descs {
		items = append(items, navItem{
			Code:   d.Discriminator,
			Title:  d.Title,
			URL:    view.ListURL(userID, d.Discriminator),
			Active: d.Discriminator == active,
		})
	}
	return items
}

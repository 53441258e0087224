// Package web serves the section list and edit views over HTTP.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"go.opentelemetry.io/otel/trace"

	"github.com/orcidhub/orcidhub/internal/cachemanager"
	"github.com/orcidhub/orcidhub/internal/flags"
	"github.com/orcidhub/orcidhub/internal/invite"
	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/store"
	"github.com/orcidhub/orcidhub/internal/templates"
	"github.com/orcidhub/orcidhub/internal/tracing"
)

// StatusFunc reports the database clock for /status.
type StatusFunc func(ctx context.Context) (time.Time, error)

// Organisation is the acting organisation; records it created are editable.
type Organisation struct {
	Name     string
	ClientID string
}

// HandlerConfig configures the web handler.
type HandlerConfig struct {
	// Registry describes the sections (required).
	Registry *schema.Registry
	// Records and Users are the data collaborators (required).
	Records store.Records
	Users   store.Users
	// Invites sends permission invitations (optional; invites are refused without it).
	Invites invite.Dispatcher
	// Status backs /status (optional; reports unavailable without it).
	Status       StatusFunc
	Organisation Organisation
	Flags        *flags.Registry
	// Flashes defaults to an in-memory store with a ten minute TTL.
	Flashes *FlashStore
	// Metrics defaults to a fresh private registry.
	Metrics *Metrics
	// Tracer creates the per-request server span (optional).
	Tracer trace.Tracer
}

// Handler provides the HTML endpoints.
type Handler struct {
	registry  *schema.Registry
	records   store.Records
	users     store.Users
	invites   invite.Dispatcher
	status    StatusFunc
	org       Organisation
	flags     *flags.Registry
	flashes   *FlashStore
	metrics   *Metrics
	tracer    trace.Tracer
	templates map[string]*template.Template
	about     template.HTML
}

// NewHandler parses the embedded templates and renders the about page.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Registry == nil || cfg.Records == nil || cfg.Users == nil {
		return nil, errors.New("web: registry, records and users are required")
	}
	tmpls, err := parseTemplates(templates.HTMLFS())
	if err != nil {
		return nil, err
	}
	var about bytes.Buffer
	if err := goldmark.Convert(templates.About(), &about); err != nil {
		return nil, fmt.Errorf("render about page: %w", err)
	}

	h := &Handler{
		registry:  cfg.Registry,
		records:   cfg.Records,
		users:     cfg.Users,
		invites:   cfg.Invites,
		status:    cfg.Status,
		org:       cfg.Organisation,
		flags:     cfg.Flags,
		flashes:   cfg.Flashes,
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
		templates: tmpls,
		// #nosec G203 -- produced by goldmark from the embedded about.md
		about: template.HTML(about.String()),
	}
	if h.flashes == nil {
		h.flashes = NewFlashStore(cachemanager.NewInMemoryCacheManager[SessionKey, []Flash]("flash", 10*time.Minute, time.Minute), 10*time.Minute)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics()
	}
	return h, nil
}

// Routes returns an http.Handler with all routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, "GET /{$}", h.Index)
	h.handle(mux, "GET /about", h.About)
	h.handle(mux, "GET /status", h.Status)
	mux.Handle("GET /metrics", h.metrics.Handler())

	// Sections
	h.handle(mux, "GET /section/{user}/{code}/list", h.List)
	h.handle(mux, "POST /section/{user}/{code}/list", h.SendInvite)
	h.handle(mux, "GET /section/{user}/{code}/new", h.NewForm)
	h.handle(mux, "POST /section/{user}/{code}/new", h.SubmitForm)
	h.handle(mux, "GET /section/{user}/{code}/{putcode}/edit", h.EditForm)
	h.handle(mux, "POST /section/{user}/{code}/{putcode}/edit", h.SubmitForm)
	h.handle(mux, "POST /section/{user}/{code}/{putcode}/delete", h.Delete)

	h.handle(mux, "/", h.NotFound)

	return tracing.Middleware(h.tracer)(mux)
}

func (h *Handler) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	route := pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		route = pattern[i+1:]
	}
	mux.HandleFunc(pattern, h.metrics.instrument(route, fn))
}

// Index lists the researchers and the organisation acting on them.
// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	p := &page{Title: "Researchers"}
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		log.ErrorErr(log.CatHTTP, "Failed to list users", err)
		p.notify(SeverityDanger, "Failed to load researchers.")
	}
	p.Body = indexBody{Organisation: h.org.Name, Users: users, Sections: h.registry.All()}
	h.render(w, r, http.StatusOK, pageIndex, p)
}

// About renders the embedded markdown page.
// GET /about
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageAbout, &page{Title: "About", Body: h.about})
}

// StatusResponse is the body of /status.
type StatusResponse struct {
	Status      string     `json:"status"`
	DBTimestamp *time.Time `json:"db-timestamp,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Status proves the database answers.
// GET /status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
		return
	}
	now, err := h.status(r.Context())
	if err != nil {
		log.ErrorErr(log.CatHTTP, "Status check failed", err)
		h.writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "error", Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "Connection successful.", DBTimestamp: &now})
}

// NotFound renders the 404 page for unmatched paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "The page you requested does not exist.")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatHTTP, "Failed to encode JSON response", "error", err)
	}
}

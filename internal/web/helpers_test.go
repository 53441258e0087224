package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/orcidhub/orcidhub/internal/flags"
	"github.com/orcidhub/orcidhub/internal/invite"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/store"
	"github.com/orcidhub/orcidhub/internal/testutil"
)

const (
	ownerClientID = "APP-5ZVH4XRKKBJ8V3QT"
	otherClientID = "APP-OTHER000000000"
	userID        = "u1"
)

var ownerSource = store.Source{ClientID: ownerClientID, Name: "Test Hub"}

type fixture struct {
	db      *store.DB
	records store.Records
	handler *Handler
	routes  http.Handler
	cookies []*http.Cookie
}

type fixtureOption func(*HandlerConfig)

func withFlags(m map[string]bool) fixtureOption {
	return func(c *HandlerConfig) { c.Flags = flags.New(m) }
}

func withRecords(r store.Records) fixtureOption {
	return func(c *HandlerConfig) { c.Records = r }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.NewBuilder(t, db, ownerSource).WithCarberry().Build()

	reg := schema.MustDefault()
	records := db.Records(reg, ownerSource)
	cfg := HandlerConfig{
		Registry:     reg,
		Records:      records,
		Users:        db.Users(),
		Invites:      invite.NewDispatcher(db),
		Status:       db.Status,
		Organisation: Organisation{Name: ownerSource.Name, ClientID: ownerClientID},
		Flags:        flags.New(map[string]bool{flags.FlagSendInvite: true}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	h, err := NewHandler(cfg)
	require.NoError(t, err)
	return &fixture{db: db, records: records, handler: h, routes: h.Routes()}
}

// do issues a request carrying the fixture's session cookie and keeps any
// cookie the response sets.
func (f *fixture) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.routes.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		f.cookies = set
	}
	return w
}

// follow GETs the redirect target of w.
func (f *fixture) follow(t *testing.T, w *httptest.ResponseRecorder) *html.Node {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	next := f.do(t, http.MethodGet, w.Header().Get("Location"), nil)
	require.Equal(t, http.StatusOK, next.Code)
	return parse(t, next)
}

func (f *fixture) save(t *testing.T, src store.Source, d schema.Discriminator, payload map[string]string) string {
	t.Helper()
	return testutil.NewBuilder(t, f.db, src).WithRecord(userID, d.String(), payload).Build()[0]
}

func parse(t *testing.T, w *httptest.ResponseRecorder) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(w.Body.String()))
	require.NoError(t, err)
	return doc
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// findAll returns every node matching pred in document order.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

func byAttr(key, val string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, ok := attr(n, key)
		return n.Type == html.ElementNode && ok && v == val
	}
}

func hasAttr(key string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		_, ok := attr(n, key)
		return n.Type == html.ElementNode && ok
	}
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// flashes returns severity -> messages of the rendered notifications.
func flashes(doc *html.Node) map[string][]string {
	out := map[string][]string{}
	for _, n := range findAll(doc, hasAttr("data-severity")) {
		sev, _ := attr(n, "data-severity")
		msg := n
		if m := findAll(n, byAttr("class", "message")); len(m) > 0 {
			msg = m[0]
		}
		out[sev] = append(out[sev], text(msg))
	}
	return out
}

// rows returns the record rows (excluding the header) of the listing.
func rows(doc *html.Node) []*html.Node {
	tables := findAll(doc, byAttr("class", "records"))
	if len(tables) == 0 {
		return nil
	}
	var out []*html.Node
	for _, tb := range findAll(tables[0], byTag("tbody")) {
		out = append(out, findAll(tb, byTag("tr"))...)
	}
	return out
}

func actionKinds(n *html.Node) []string {
	var kinds []string
	for _, a := range findAll(n, hasAttr("data-action")) {
		k, _ := attr(a, "data-action")
		kinds = append(kinds, k)
	}
	return kinds
}

// mockRecords is a testify mock of store.Records.
type mockRecords struct {
	mock.Mock
}

var _ store.Records = (*mockRecords)(nil)

func (m *mockRecords) FetchRecords(ctx context.Context, userID string, d schema.Discriminator) ([]record.Record, error) {
	args := m.Called(ctx, userID, d)
	recs, _ := args.Get(0).([]record.Record)
	return recs, args.Error(1)
}

func (m *mockRecords) FetchRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string) (record.Record, error) {
	args := m.Called(ctx, userID, d, putCode)
	rec, _ := args.Get(0).(record.Record)
	return rec, args.Error(1)
}

func (m *mockRecords) DeleteRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string) error {
	return m.Called(ctx, userID, d, putCode).Error(0)
}

func (m *mockRecords) SaveRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string, payload map[string]string) (string, error) {
	args := m.Called(ctx, userID, d, putCode, payload)
	return args.String(0), args.Error(1)
}

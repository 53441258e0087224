package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/flags"
	"github.com/orcidhub/orcidhub/internal/invite"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/store"
	"github.com/orcidhub/orcidhub/internal/view"
)

var employment = map[string]string{
	"org_name":   "University of Auckland",
	"city":       "Auckland",
	"country":    "NZ",
	"department": "Physics",
	"role":       "Lecturer",
	"start_date": "2010-03",
	"end_date":   "2015",
}

func TestList_EmptySectionShowsPlaceholder(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/section/u1/EMP/list", nil)
	require.Equal(t, http.StatusOK, w.Code)

	doc := parse(t, w)
	rs := rows(doc)
	require.Len(t, rs, 1)
	cls, _ := attr(rs[0], "class")
	assert.Equal(t, "placeholder", cls)
	assert.Equal(t, view.NoRecordsText, text(rs[0]))

	var headers []string
	for _, th := range findAll(doc, byTag("th")) {
		if s := text(th); s != "" {
			headers = append(headers, s)
		}
	}
	assert.Equal(t, []string{"Organisation", "City", "Country", "Department", "Role/Title", "Period", "Source"}, headers)
	assert.Equal(t, []string{"create"}, actionKinds(findAll(doc, byAttr("class", "affordances"))[0]),
		"activity sections offer no invitation")
}

func TestList_OnlyOwnRecordsAreEditable(t *testing.T) {
	f := newFixture(t)
	own := f.save(t, ownerSource, schema.Employment, employment)
	other := f.save(t, store.Source{ClientID: otherClientID, Name: "Elsewhere"}, schema.Employment, map[string]string{
		"org_name": "Massey University", "city": "Palmerston North", "country": "NZ",
	})

	doc := parse(t, f.do(t, http.MethodGet, "/section/u1/EMP/list", nil))
	rs := rows(doc)
	require.Len(t, rs, 2)

	byCode := map[string][]string{}
	for _, r := range rs {
		code, ok := attr(r, "data-put-code")
		require.True(t, ok)
		byCode[code] = actionKinds(r)
	}
	assert.Equal(t, []string{"edit", "delete"}, byCode[own])
	assert.Empty(t, byCode[other])

	cells := findAll(rs[0], byTag("td"))
	assert.Equal(t, "University of Auckland", text(cells[0]))
	assert.Equal(t, "2010–2015", text(cells[5]))
	assert.Equal(t, "Test Hub", text(cells[6]))
}

func TestList_ExactClientMatchFlag(t *testing.T) {
	// Containment accepts a record id that is part of the owner's id.
	f := newFixture(t, withFlags(map[string]bool{flags.FlagExactClientMatch: true}))
	code := f.save(t, store.Source{ClientID: "5ZVH4XRKKBJ8V3QT", Name: "Test Hub"},
		schema.Keyword, map[string]string{"content": "physics"})

	doc := parse(t, f.do(t, http.MethodGet, "/section/u1/KWR/list", nil))
	rs := findAll(doc, byAttr("data-put-code", code))
	require.Len(t, rs, 1)
	assert.Empty(t, actionKinds(rs[0]))

	f = newFixture(t)
	code = f.save(t, store.Source{ClientID: "5ZVH4XRKKBJ8V3QT", Name: "Test Hub"},
		schema.Keyword, map[string]string{"content": "physics"})
	doc = parse(t, f.do(t, http.MethodGet, "/section/u1/KWR/list", nil))
	rs = findAll(doc, byAttr("data-put-code", code))
	require.Len(t, rs, 1)
	assert.Equal(t, []string{"edit", "delete"}, actionKinds(rs[0]))
}

func TestList_UnknownSection(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/section/u1/XYZ/list", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown section")
}

func TestList_UnknownUserRedirectsWithNotice(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/section/nobody/EMP/list", nil)
	require.Equal(t, "/", w.Header().Get("Location"))

	doc := f.follow(t, w)
	assert.Equal(t, []string{"The user with ID nobody doesn't exist."}, flashes(doc)["danger"])

	again := parse(t, f.do(t, http.MethodGet, "/", nil))
	assert.Empty(t, flashes(again), "a flash is shown once")
}

func TestList_FetchFailureShowsNotice(t *testing.T) {
	recs := &mockRecords{}
	recs.On("FetchRecords", mock.Anything, userID, schema.Work).Return(nil, errors.New("connection reset"))
	f := newFixture(t, withRecords(recs))

	w := f.do(t, http.MethodGet, "/section/u1/WOR/list", nil)
	require.Equal(t, http.StatusOK, w.Code)

	doc := parse(t, w)
	require.Len(t, flashes(doc)["danger"], 1)
	assert.Contains(t, flashes(doc)["danger"][0], "connection reset")
	rs := rows(doc)
	require.Len(t, rs, 1)
	assert.Equal(t, view.NoRecordsText, text(rs[0]))
	recs.AssertExpectations(t)
}

func TestSendInvite(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t)

		doc := parse(t, f.do(t, http.MethodGet, "/section/u1/KWR/list", nil))
		assert.Equal(t, []string{"create", "send-invite"}, actionKinds(findAll(doc, byAttr("class", "affordances"))[0]))

		w := f.do(t, http.MethodPost, "/section/u1/KWR/list", url.Values{"confirm": {"yes"}})
		assert.Equal(t, "/section/u1/KWR/list", w.Header().Get("Location"))
		doc = f.follow(t, w)
		require.Len(t, flashes(doc)["success"], 1)
		assert.Contains(t, flashes(doc)["success"][0], "jc@example.org")

		pending, err := invite.NewDispatcher(f.db).Pending(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, ownerClientID, pending[0].OrgClientID)
	})

	t.Run("not confirmed", func(t *testing.T) {
		f := newFixture(t)

		doc := f.follow(t, f.do(t, http.MethodPost, "/section/u1/KWR/list", url.Values{}))
		assert.Len(t, flashes(doc)["warning"], 1)

		pending, err := invite.NewDispatcher(f.db).Pending(context.Background(), userID)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("activity section", func(t *testing.T) {
		f := newFixture(t)

		doc := f.follow(t, f.do(t, http.MethodPost, "/section/u1/EMP/list", url.Values{"confirm": {"yes"}}))
		assert.Equal(t, []string{"Invitations are not available for this section."}, flashes(doc)["warning"])
	})

	t.Run("flag off", func(t *testing.T) {
		f := newFixture(t, withFlags(map[string]bool{flags.FlagSendInvite: false}))

		doc := parse(t, f.do(t, http.MethodGet, "/section/u1/KWR/list", nil))
		assert.Equal(t, []string{"create"}, actionKinds(findAll(doc, byAttr("class", "affordances"))[0]))

		doc = f.follow(t, f.do(t, http.MethodPost, "/section/u1/KWR/list", url.Values{"confirm": {"yes"}}))
		assert.Len(t, flashes(doc)["warning"], 1)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.handler.metrics.actions.WithLabelValues("KWR", "send-invite", "refused")))
	})
}

func TestNewForm_CreatesRecord(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/section/u1/EMP/new", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := parse(t, w)
	require.Len(t, findAll(doc, byAttr("name", "org_name")), 1)
	assert.Empty(t, findAll(doc, byAttr("name", "external_ids")), "employment has no external id editor")

	form := url.Values{"action": {"save"}}
	for k, v := range employment {
		form.Set(k, v)
	}
	doc = f.follow(t, f.do(t, http.MethodPost, "/section/u1/EMP/new", form))
	assert.Equal(t, []string{"Record saved."}, flashes(doc)["success"])

	rs := rows(doc)
	require.Len(t, rs, 1)
	code, ok := attr(rs[0], "data-put-code")
	require.True(t, ok)

	rec, err := f.records.FetchRecord(context.Background(), userID, schema.Employment, code)
	require.NoError(t, err)
	assert.Equal(t, "Physics", rec.String([]string{"department_name"}, ""))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.handler.metrics.actions.WithLabelValues("EMP", "save", "ok")))
}

func TestEditForm_PrefillsAndUpdates(t *testing.T) {
	f := newFixture(t)
	code := f.save(t, ownerSource, schema.Employment, employment)

	w := f.do(t, http.MethodGet, "/section/u1/EMP/"+code+"/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	inputs := findAll(parse(t, w), byAttr("name", "role"))
	require.Len(t, inputs, 1)
	v, _ := attr(inputs[0], "value")
	assert.Equal(t, "Lecturer", v)

	form := url.Values{"action": {"save"}}
	for k, v := range employment {
		form.Set(k, v)
	}
	form.Set("role", "Professor")
	f.follow(t, f.do(t, http.MethodPost, "/section/u1/EMP/"+code+"/edit", form))

	rec, err := f.records.FetchRecord(context.Background(), userID, schema.Employment, code)
	require.NoError(t, err)
	assert.Equal(t, "Professor", rec.String([]string{"role_title"}, ""))
}

func TestEditForm_RefusesOtherOrganisationsRecord(t *testing.T) {
	f := newFixture(t)
	code := f.save(t, store.Source{ClientID: otherClientID, Name: "Elsewhere"}, schema.Keyword, map[string]string{"content": "physics"})

	w := f.do(t, http.MethodGet, "/section/u1/KWR/"+code+"/edit", nil)
	assert.Equal(t, "/section/u1/KWR/list", w.Header().Get("Location"))
	doc := f.follow(t, w)
	assert.Len(t, flashes(doc)["warning"], 1)

	w = f.do(t, http.MethodPost, "/section/u1/KWR/"+code+"/edit", url.Values{"content": {"chemistry"}})
	f.follow(t, w)
	rec, err := f.records.FetchRecord(context.Background(), userID, schema.Keyword, code)
	require.NoError(t, err)
	assert.Equal(t, "physics", rec.String([]string{"content"}, ""), "refused edits leave the record alone")
}

func TestEditForm_MissingRecord(t *testing.T) {
	f := newFixture(t)

	doc := f.follow(t, f.do(t, http.MethodGet, "/section/u1/EMP/999/edit", nil))
	assert.Equal(t, []string{"Record 999 was not found."}, flashes(doc)["warning"])
}

func TestSubmitForm_InvalidDate(t *testing.T) {
	f := newFixture(t)

	form := url.Values{"action": {"save"}}
	for k, v := range employment {
		form.Set(k, v)
	}
	form.Set("start_date", "2010-13-45")
	w := f.do(t, http.MethodPost, "/section/u1/EMP/new", form)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	doc := parse(t, w)
	assert.Len(t, flashes(doc)["warning"], 1)
	inputs := findAll(doc, byAttr("name", "org_name"))
	require.Len(t, inputs, 1)
	v, _ := attr(inputs[0], "value")
	assert.Equal(t, "University of Auckland", v, "submitted values survive the round trip")

	recs, err := f.records.FetchRecords(context.Background(), userID, schema.Employment)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSubmitForm_SaveFailure(t *testing.T) {
	recs := &mockRecords{}
	recs.On("SaveRecord", mock.Anything, userID, schema.Keyword, "", mock.Anything).Return("", errors.New("database is locked"))
	f := newFixture(t, withRecords(recs))

	w := f.do(t, http.MethodPost, "/section/u1/KWR/new", url.Values{"content": {"physics"}, "action": {"save"}})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	danger := flashes(parse(t, w))["danger"]
	require.Len(t, danger, 1)
	assert.Contains(t, danger[0], "database is locked")
	recs.AssertExpectations(t)
}

func TestSubmitForm_ExternalIDEditor(t *testing.T) {
	f := newFixture(t)
	base := url.Values{
		"funding_title": {"Marsden Fund"},
		"funding_type":  {"GRANT"},
		"org_name":      {"Royal Society Te Apārangi"},
		"city":          {"Wellington"},
		"country":       {"NZ"},
	}
	post := func(target string, extra url.Values) (*html.Node, int) {
		form := url.Values{}
		for k, v := range base {
			form[k] = v
		}
		for k, v := range extra {
			form[k] = v
		}
		w := f.do(t, http.MethodPost, target, form)
		return parse(t, w), w.Code
	}
	hidden := func(doc *html.Node) string {
		n := findAll(doc, byAttr("name", view.ExternalIDsField))
		require.Len(t, n, 1)
		v, _ := attr(n[0], "value")
		return v
	}
	positions := func(doc *html.Node) int {
		return len(findAll(doc, hasAttr("data-position")))
	}

	doc, code := post("/section/u1/FUN/new", url.Values{"action": {actionAddExternalID}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, positions(doc))
	v, _ := attr(findAll(doc, byAttr("name", "funding_title"))[0], "value")
	assert.Equal(t, "Marsden Fund", v, "field values survive editor actions")

	// Fill the blank row and add another: the new one is prepended.
	doc, _ = post("/section/u1/FUN/new", url.Values{
		view.ExternalIDsField:  {hidden(doc)},
		"action":               {actionAddExternalID},
		"extid-0-type":         {"grant_number"},
		"extid-0-value":        {"MFP-UOA1234"},
		"extid-0-url":          {""},
		"extid-0-relationship": {string(extid.RelationshipSelf)},
	})
	require.Equal(t, 2, positions(doc))
	state := hidden(doc)
	ids, err := extid.Unmarshal([]byte(state))
	require.NoError(t, err)
	second, err := ids.At(1)
	require.NoError(t, err)
	assert.Equal(t, "MFP-UOA1234", second.Value)

	// Deleting without confirmation keeps the entry.
	doc, _ = post("/section/u1/FUN/new?position=0", url.Values{
		view.ExternalIDsField: {state},
		"action":              {actionDeleteExternalID},
	})
	assert.Equal(t, 2, positions(doc))
	assert.Equal(t, []string{"The external identifier was kept."}, flashes(doc)["info"])

	// Another row's tick does not confirm this one.
	doc, _ = post("/section/u1/FUN/new?position=0", url.Values{
		view.ExternalIDsField: {state},
		"action":              {actionDeleteExternalID},
		"confirm-1":           {"yes"},
	})
	assert.Equal(t, 2, positions(doc))
	boxes := findAll(doc, byAttr("type", "checkbox"))
	require.Len(t, boxes, 2)
	for _, b := range boxes {
		_, checked := attr(b, "checked")
		assert.False(t, checked, "confirmation boxes start unticked")
	}

	doc, _ = post("/section/u1/FUN/new?position=0", url.Values{
		view.ExternalIDsField: {state},
		"action":              {actionDeleteExternalID},
		"confirm-0":           {"yes"},
	})
	require.Equal(t, 1, positions(doc))

	doc, _ = post("/section/u1/FUN/new?position=7&confirm=yes", url.Values{
		view.ExternalIDsField: {hidden(doc)},
		"action":              {actionDeleteExternalID},
	})
	assert.Equal(t, []string{"There is no external identifier #8."}, flashes(doc)["warning"])

	// Saving persists the remaining entry.
	w := f.do(t, http.MethodPost, "/section/u1/FUN/new", func() url.Values {
		form := url.Values{view.ExternalIDsField: {hidden(doc)}, "action": {"save"}}
		for k, v := range base {
			form[k] = v
		}
		return form
	}())
	f.follow(t, w)

	saved, err := f.records.FetchRecords(context.Background(), userID, schema.Funding)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	got, ok := saved[0].Lookup([]string{"external_ids", "external_id"})
	require.True(t, ok)
	require.Len(t, got, 1)
}

// submitted returns what a browser posts for form when no box is ticked.
func submitted(form *html.Node) url.Values {
	values := url.Values{}
	for _, in := range findAll(form, byTag("input")) {
		if typ, _ := attr(in, "type"); typ == "checkbox" {
			continue
		}
		name, _ := attr(in, "name")
		v, _ := attr(in, "value")
		values.Add(name, v)
	}
	return values
}

func TestList_DeleteNeedsTickedConfirmation(t *testing.T) {
	f := newFixture(t)
	code := f.save(t, ownerSource, schema.Keyword, map[string]string{"content": "physics"})

	doc := parse(t, f.do(t, http.MethodGet, "/section/u1/KWR/list", nil))
	forms := findAll(doc, byAttr("data-action", "delete"))
	require.Len(t, forms, 1)
	box := findAll(forms[0], byAttr("name", "confirm"))
	require.Len(t, box, 1)
	typ, _ := attr(box[0], "type")
	assert.Equal(t, "checkbox", typ)
	_, required := attr(box[0], "required")
	assert.True(t, required)

	target, _ := attr(forms[0], "action")
	doc = f.follow(t, f.do(t, http.MethodPost, target, submitted(forms[0])))
	assert.Equal(t, []string{"Deletion was not confirmed."}, flashes(doc)["warning"])
	assert.Len(t, findAll(doc, byAttr("class", "dismiss")), 1, "notifications can be dismissed")

	_, err := f.records.FetchRecord(context.Background(), userID, schema.Keyword, code)
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t)
		code := f.save(t, ownerSource, schema.Keyword, map[string]string{"content": "physics"})

		doc := f.follow(t, f.do(t, http.MethodPost, "/section/u1/KWR/"+code+"/delete", url.Values{"confirm": {"yes"}}))
		assert.Equal(t, []string{"Record deleted."}, flashes(doc)["success"])

		_, err := f.records.FetchRecord(context.Background(), userID, schema.Keyword, code)
		assert.ErrorIs(t, err, store.ErrRecordNotFound)
	})

	t.Run("not confirmed", func(t *testing.T) {
		f := newFixture(t)
		code := f.save(t, ownerSource, schema.Keyword, map[string]string{"content": "physics"})

		doc := f.follow(t, f.do(t, http.MethodPost, "/section/u1/KWR/"+code+"/delete", url.Values{}))
		assert.Equal(t, []string{"Deletion was not confirmed."}, flashes(doc)["warning"])

		_, err := f.records.FetchRecord(context.Background(), userID, schema.Keyword, code)
		assert.NoError(t, err)
	})

	t.Run("other organisation", func(t *testing.T) {
		f := newFixture(t)
		code := f.save(t, store.Source{ClientID: otherClientID}, schema.Keyword, map[string]string{"content": "physics"})

		doc := f.follow(t, f.do(t, http.MethodPost, "/section/u1/KWR/"+code+"/delete", url.Values{"confirm": {"yes"}}))
		assert.Len(t, flashes(doc)["warning"], 1)

		_, err := f.records.FetchRecord(context.Background(), userID, schema.Keyword, code)
		assert.NoError(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.handler.metrics.actions.WithLabelValues("KWR", "delete", "refused")))
	})

	t.Run("delete failure", func(t *testing.T) {
		recs := &mockRecords{}
		f := newFixture(t, withRecords(recs))
		rec := map[string]any{
			"put-code": int64(7),
			"content":  "physics",
			"source":   map[string]any{"source-client-id": map[string]any{"path": ownerClientID}},
		}
		recs.On("FetchRecord", mock.Anything, userID, schema.Keyword, "7").Return(record.Record(rec), nil)
		recs.On("DeleteRecord", mock.Anything, userID, schema.Keyword, "7").Return(errors.New("read-only database"))
		recs.On("FetchRecords", mock.Anything, userID, schema.Keyword).Return([]record.Record{record.Record(rec)}, nil)

		doc := f.follow(t, f.do(t, http.MethodPost, "/section/u1/KWR/7/delete", url.Values{"confirm": {"yes"}}))
		require.Len(t, flashes(doc)["danger"], 1)
		recs.AssertExpectations(t)
	})
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/pubsub"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/view"
)

func employmentPayload() map[string]string {
	return map[string]string{
		"org_name":   "University of Auckland",
		"city":       "Auckland",
		"country":    "NZ",
		"department": "Physics",
		"role":       "Lecturer",
		"start_date": "2010-03",
		"end_date":   "2015",
	}
}

func TestRecords_CreateAndFetch(t *testing.T) {
	_, recs := newTestRecords(t)
	ctx := context.Background()

	code, err := recs.SaveRecord(ctx, testUserID, schema.Employment, "", employmentPayload())
	require.NoError(t, err)
	require.NotEmpty(t, code)

	rec, err := recs.FetchRecord(ctx, testUserID, schema.Employment, code)
	require.NoError(t, err)
	require.Equal(t, "University of Auckland", rec.String(record.ParsePath("organization.name"), ""))
	require.Equal(t, code, rec.String(record.ParsePath("put_code"), ""))
	require.Equal(t, testClientID, rec.String(record.ParsePath("source.source_client_id.path"), ""))
	require.Equal(t, "Test Hub", rec.String(record.ParsePath("source.source_name.value"), ""))

	start, ok := rec.Lookup(record.ParsePath("start_date"))
	require.True(t, ok)
	d, err := record.ParsePartialDate(start)
	require.NoError(t, err)
	require.Equal(t, record.PartialDate{Year: 2010, Month: 3}, d)

	list, err := recs.FetchRecords(ctx, testUserID, schema.Employment)
	require.NoError(t, err)
	require.Len(t, list, 1)

	other, err := recs.FetchRecords(ctx, testUserID, schema.Education)
	require.NoError(t, err)
	require.Empty(t, other)
	require.NotNil(t, other)
}

func TestRecords_PutCodesAreSequential(t *testing.T) {
	_, recs := newTestRecords(t)
	ctx := context.Background()

	first, err := recs.SaveRecord(ctx, testUserID, schema.Keyword, "", map[string]string{"content": "physics"})
	require.NoError(t, err)
	second, err := recs.SaveRecord(ctx, testUserID, schema.OtherName, "", map[string]string{"content": "JC"})
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	kw, err := recs.FetchRecords(ctx, testUserID, schema.Keyword)
	require.NoError(t, err)
	require.Len(t, kw, 1)
	require.Equal(t, first, kw[0].String(record.ParsePath("put-code"), ""))
	require.Equal(t, testClientID, kw[0].String(record.ParsePath("source.source-client-id.path"), ""))
}

func TestRecords_UpdateMergesExistingDocument(t *testing.T) {
	db, recs := newTestRecords(t)
	ctx := context.Background()

	code, err := recs.SaveRecord(ctx, testUserID, schema.Employment, "", employmentPayload())
	require.NoError(t, err)

	// A key the form does not know about survives updates
	_, err = db.Connection().Exec(
		`UPDATE records SET document = json_set(document, '$.path', '/0000-0002-1825-0097/employment/1') WHERE put_code = ?`, code)
	require.NoError(t, err)

	saved, err := recs.SaveRecord(ctx, testUserID, schema.Employment, code, map[string]string{
		"role":     "Professor",
		"end_date": "",
	})
	require.NoError(t, err)
	require.Equal(t, code, saved)

	rec, err := recs.FetchRecord(ctx, testUserID, schema.Employment, code)
	require.NoError(t, err)
	require.Equal(t, "Professor", rec.String(record.ParsePath("role_title"), ""))
	require.Equal(t, "Physics", rec.String(record.ParsePath("department_name"), ""))
	require.Equal(t, "/0000-0002-1825-0097/employment/1", rec.String(record.ParsePath("path"), ""))
	_, hasEnd := rec.Lookup(record.ParsePath("end_date"))
	require.False(t, hasEnd)
}

func TestRecords_ExternalIDsStoredInORCIDShape(t *testing.T) {
	_, recs := newTestRecords(t)
	ctx := context.Background()

	ids := extid.NewList(
		extid.Entry{Type: "doi", Value: "10.1/abc", URL: "https://doi.org/10.1/abc", Relationship: extid.RelationshipSelf},
		extid.Entry{},
	)
	data, err := ids.Marshal()
	require.NoError(t, err)

	code, err := recs.SaveRecord(ctx, testUserID, schema.Funding, "", map[string]string{
		"funding_title":   "Dark matter",
		"org_name":        "Marsden Fund",
		ExternalIDsField: string(data),
	})
	require.NoError(t, err)

	rec, err := recs.FetchRecord(ctx, testUserID, schema.Funding, code)
	require.NoError(t, err)

	desc := describe(t, schema.Funding)
	got, err := extid.FromORCID(view.LookupExternalIDs(desc, rec))
	require.NoError(t, err)
	require.Equal(t, []extid.Entry{ids.NonBlank()[0]}, got.Entries())

	// Clearing the list removes the path
	_, err = recs.SaveRecord(ctx, testUserID, schema.Funding, code, map[string]string{ExternalIDsField: "[]"})
	require.NoError(t, err)
	rec, err = recs.FetchRecord(ctx, testUserID, schema.Funding, code)
	require.NoError(t, err)
	_, ok := rec.Lookup(desc.ExternalIDsPath)
	require.False(t, ok)
}

func TestRecords_InvalidDateRejected(t *testing.T) {
	_, recs := newTestRecords(t)
	p := employmentPayload()
	p["start_date"] = "2010-13"

	_, err := recs.SaveRecord(context.Background(), testUserID, schema.Employment, "", p)
	require.ErrorIs(t, err, ErrInvalidField)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "start_date", fe.Field)
}

func TestRecords_NotFound(t *testing.T) {
	_, recs := newTestRecords(t)
	ctx := context.Background()

	code, err := recs.SaveRecord(ctx, testUserID, schema.Keyword, "", map[string]string{"content": "x"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		section schema.Discriminator
		putCode string
	}{
		{"missing put-code", schema.Keyword, "999999"},
		{"garbage put-code", schema.Keyword, "abc"},
		{"other section", schema.OtherName, code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recs.FetchRecord(ctx, testUserID, tt.section, tt.putCode)
			require.ErrorIs(t, err, ErrRecordNotFound)
			require.ErrorIs(t, recs.DeleteRecord(ctx, testUserID, tt.section, tt.putCode), ErrRecordNotFound)
			_, err = recs.SaveRecord(ctx, testUserID, tt.section, tt.putCode, map[string]string{"content": "y"})
			require.ErrorIs(t, err, ErrRecordNotFound)
		})
	}
}

func TestRecords_UnknownUser(t *testing.T) {
	_, recs := newTestRecords(t)
	ctx := context.Background()

	_, err := recs.FetchRecords(ctx, "ghost", schema.Employment)
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = recs.SaveRecord(ctx, "ghost", schema.Employment, "", employmentPayload())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecords_UnknownSection(t *testing.T) {
	_, recs := newTestRecords(t)
	_, err := recs.FetchRecords(context.Background(), testUserID, schema.Discriminator("XYZ"))
	require.ErrorIs(t, err, schema.ErrUnknownDiscriminator)
}

func TestRecords_Delete(t *testing.T) {
	_, recs := newTestRecords(t)
	ctx := context.Background()

	code, err := recs.SaveRecord(ctx, testUserID, schema.Address, "", map[string]string{"country": "NZ"})
	require.NoError(t, err)
	require.NoError(t, recs.DeleteRecord(ctx, testUserID, schema.Address, code))

	list, err := recs.FetchRecords(ctx, testUserID, schema.Address)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestRecords_PublishesChanges(t *testing.T) {
	db, recs := newTestRecords(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := db.Events().Subscribe(ctx)

	code, err := recs.SaveRecord(ctx, testUserID, schema.Keyword, "", map[string]string{"content": "a"})
	require.NoError(t, err)
	_, err = recs.SaveRecord(ctx, testUserID, schema.Keyword, code, map[string]string{"content": "b"})
	require.NoError(t, err)
	require.NoError(t, recs.DeleteRecord(ctx, testUserID, schema.Keyword, code))

	want := RecordChange{UserID: testUserID, Section: schema.Keyword, PutCode: code}
	for _, typ := range []pubsub.EventType{pubsub.CreatedEvent, pubsub.UpdatedEvent, pubsub.DeletedEvent} {
		select {
		case ev := <-events:
			require.Equal(t, typ, ev.Type)
			require.Equal(t, want, ev.Payload)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

// formValue returns a value a form would accept for f.
func formValue(f schema.FieldSpec) string {
	switch f.Type {
	case schema.FieldDate:
		return "2010-03"
	case schema.FieldURL:
		return "https://example.org/" + f.Name
	case schema.FieldNumber:
		return "42"
	case schema.FieldSelect:
		if len(f.Options) > 0 {
			return f.Options[0]
		}
	}
	return "value of " + f.Name
}

// Saving a form payload and rendering the list shows the submitted values
// in the plain columns that share the field's accessor, for every section.
func TestRecords_SaveThenRenderList(t *testing.T) {
	for _, desc := range schema.MustDefault().All() {
		t.Run(desc.Discriminator.String(), func(t *testing.T) {
			_, recs := newTestRecords(t)
			ctx := context.Background()

			form, err := view.RenderForm(desc, nil, view.FormContext{UserID: testUserID})
			require.NoError(t, err)
			values := make(map[string]string)
			byAccessor := make(map[string]string)
			for _, f := range desc.VisibleFields() {
				v := formValue(f)
				values[f.Name] = v
				if f.Type != schema.FieldDate {
					byAccessor[f.Accessor.String()] = v
				}
			}
			form.Fill(values)
			payload, err := form.Payload(desc)
			require.NoError(t, err)

			code, err := recs.SaveRecord(ctx, testUserID, desc.Discriminator, "", payload)
			require.NoError(t, err)

			list, err := recs.FetchRecords(ctx, testUserID, desc.Discriminator)
			require.NoError(t, err)
			lv := view.RenderList(desc, list, view.ListContext{UserID: testUserID, OwnerClientID: testClientID})
			require.Len(t, lv.Rows, 1)
			row := lv.Rows[0]
			require.Equal(t, code, row.PutCode)
			require.True(t, row.Eligible())
			require.Len(t, row.Cells, len(desc.Columns))

			for i, col := range desc.Columns {
				want, ok := byAccessor[col.Accessor.String()]
				if !ok || col.Formatter != "" || len(col.Args) > 0 {
					continue
				}
				require.Equal(t, want, row.Cells[i].Text, "column %q", col.Label)
			}

			rec, err := recs.FetchRecord(ctx, testUserID, desc.Discriminator, code)
			require.NoError(t, err)
			edit, err := view.RenderForm(desc, rec, view.FormContext{UserID: testUserID})
			require.NoError(t, err)
			if diff := cmp.Diff(values, edit.Values()); diff != "" {
				t.Errorf("reopened form mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecords_EmploymentColumns(t *testing.T) {
	_, recs := newTestRecords(t)
	ctx := context.Background()
	desc := describe(t, schema.Employment)

	form, err := view.RenderForm(desc, nil, view.FormContext{UserID: testUserID})
	require.NoError(t, err)
	form.Fill(employmentPayload())
	payload, err := form.Payload(desc)
	require.NoError(t, err)

	code, err := recs.SaveRecord(ctx, testUserID, schema.Employment, "", payload)
	require.NoError(t, err)

	list, err := recs.FetchRecords(ctx, testUserID, schema.Employment)
	require.NoError(t, err)
	lv := view.RenderList(desc, list, view.ListContext{UserID: testUserID, OwnerClientID: testClientID})

	require.Len(t, lv.Rows, 1)
	row := lv.Rows[0]
	require.Equal(t, code, row.PutCode)
	require.True(t, row.Eligible())

	got := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		got[i] = c.Text
	}
	want := []string{"University of Auckland", "Auckland", "NZ", "Physics", "Lecturer", "2010–2015", "Test Hub"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}

	// Re-opening the edit form yields the same values
	rec, err := recs.FetchRecord(ctx, testUserID, schema.Employment, code)
	require.NoError(t, err)
	edit, err := view.RenderForm(desc, rec, view.FormContext{UserID: testUserID})
	require.NoError(t, err)
	values := edit.Values()
	require.Equal(t, "University of Auckland", values["org_name"])
	require.Equal(t, "Physics", values["department"])
}

package view

import (
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
)

// NoRecordsText fills the placeholder row of an empty listing.
const NoRecordsText = "There are no records."

// ActionKind names an affordance.
type ActionKind string

const (
	ActionCreate     ActionKind = "create"
	ActionEdit       ActionKind = "edit"
	ActionDelete     ActionKind = "delete"
	ActionSendInvite ActionKind = "send-invite"
)

// Action is an affordance and the endpoint it targets. A non-empty
// Confirm must be acknowledged before the request is issued.
type Action struct {
	Kind    ActionKind
	Label   string
	Method  string
	URL     string
	Confirm string
}

// Cell is one rendered value. Href is set for link columns with a value.
type Cell struct {
	Text string
	Href string
}

// Row is one listed record, or the single placeholder of an empty listing.
type Row struct {
	PutCode     string
	Cells       []Cell
	Actions     []Action
	Placeholder bool
}

// Eligible reports whether the row carries edit and delete actions.
func (r Row) Eligible() bool {
	return len(r.Actions) > 0
}

// ListContext is the caller-supplied context of a listing.
type ListContext struct {
	UserID        string
	OwnerClientID string
	Rule          MatchRule
	// SendInvite enables the invite affordance on source-bearing sections.
	SendInvite bool
}

// ListView is a render-ready section listing.
type ListView struct {
	Discriminator schema.Discriminator
	Title         string
	UserID        string
	Headers       []string
	Rows          []Row
	Affordances   []Action
}

// RenderList lays out records in input order, one row each. Missing
// accessor paths render the column default; an empty input renders a
// single placeholder row.
func RenderList(desc *schema.Descriptor, records []record.Record, ctx ListContext) ListView {
	lv := ListView{
		Discriminator: desc.Discriminator,
		Title:         desc.Title,
		UserID:        ctx.UserID,
		Headers:       make([]string, len(desc.Columns)),
		Affordances:   listAffordances(desc, ctx),
	}
	for i, col := range desc.Columns {
		lv.Headers[i] = col.Label
	}

	if len(records) == 0 {
		lv.Rows = []Row{{
			Placeholder: true,
			Cells:       []Cell{{Text: NoRecordsText}},
		}}
		return lv
	}

	lv.Rows = make([]Row, 0, len(records))
	for _, rec := range records {
		lv.Rows = append(lv.Rows, renderRow(desc, rec, ctx))
	}
	return lv
}

func renderRow(desc *schema.Descriptor, rec record.Record, ctx ListContext) Row {
	row := Row{
		PutCode: rec.String(desc.PutCodePath, ""),
		Cells:   make([]Cell, len(desc.Columns)),
	}
	for i, col := range desc.Columns {
		row.Cells[i] = RenderCell(col, rec)
	}
	if row.PutCode != "" && Eligible(desc, rec, ctx.OwnerClientID, ctx.Rule) {
		row.Actions = []Action{
			{
				Kind:   ActionEdit,
				Label:  "Edit",
				Method: "GET",
				URL:    EditURL(ctx.UserID, desc.Discriminator, row.PutCode),
			},
			{
				Kind:    ActionDelete,
				Label:   "Delete",
				Method:  "POST",
				URL:     DeleteURL(ctx.UserID, desc.Discriminator, row.PutCode),
				Confirm: "Are you sure you want to delete this record?",
			},
		}
	}
	return row
}

// RenderCell resolves and formats one column of rec.
func RenderCell(col schema.ColumnSpec, rec record.Record) Cell {
	v, _ := rec.Lookup(col.Accessor)
	args := make([]any, len(col.Args))
	for i, p := range col.Args {
		args[i], _ = rec.Lookup(p)
	}

	text := col.Format(v, args...)
	if text == "" {
		return Cell{Text: col.Default}
	}
	cell := Cell{Text: text}
	if col.IsLink() {
		cell.Href = text
	}
	return cell
}

func listAffordances(desc *schema.Descriptor, ctx ListContext) []Action {
	actions := []Action{{
		Kind:   ActionCreate,
		Label:  "Add " + desc.Title,
		Method: "GET",
		URL:    NewURL(ctx.UserID, desc.Discriminator),
	}}
	if desc.SourceBearing && ctx.SendInvite {
		actions = append(actions, Action{
			Kind:    ActionSendInvite,
			Label:   "Send update permission invitation",
			Method:  "POST",
			URL:     ListURL(ctx.UserID, desc.Discriminator),
			Confirm: "Send the researcher an invitation to grant update permission?",
		})
	}
	return actions
}

package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/flags"
	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/store"
	"github.com/orcidhub/orcidhub/internal/view"
)

// Form actions besides saving.
const (
	actionAddExternalID    = "add-external-id"
	actionDeleteExternalID = "delete-external-id"
)

// confirmed reports whether the request carries confirm=yes. Pages render
// it as a checkbox the user ticks; it is never pre-filled.
func confirmed(r *http.Request) bool {
	return r.FormValue("confirm") == "yes"
}

// section resolves the discriminator and the user of a section route.
// It writes the response and returns ok=false when either is unknown.
func (h *Handler) section(w http.ResponseWriter, r *http.Request) (*schema.Descriptor, *store.User, bool) {
	desc, err := h.registry.Lookup(r.PathValue("code"))
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, fmt.Sprintf("Unknown section %q.", r.PathValue("code")))
		return nil, nil, false
	}
	userID := r.PathValue("user")
	user, err := h.users.FindUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.flashes.Add(w, r, SeverityDanger, fmt.Sprintf("The user with ID %s doesn't exist.", userID))
		} else {
			log.ErrorErr(log.CatHTTP, "Failed to load user", err, "user", userID)
			h.flashes.Add(w, r, SeverityDanger, "Failed to load the user.")
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, nil, false
	}
	return desc, user, true
}

func (h *Handler) listContext(userID string) view.ListContext {
	return view.ListContext{
		UserID:        userID,
		OwnerClientID: h.org.ClientID,
		Rule:          view.RuleFromFlags(h.flags),
		SendInvite:    h.flags.Enabled(flags.FlagSendInvite),
	}
}

func (h *Handler) redirectToList(w http.ResponseWriter, r *http.Request, desc *schema.Descriptor, userID string) {
	http.Redirect(w, r, view.ListURL(userID, desc.Discriminator), http.StatusSeeOther)
}

// List renders a section's records.
// GET /section/{user}/{code}/list
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	desc, user, ok := h.section(w, r)
	if !ok {
		return
	}
	p := &page{Title: desc.Title, User: user, Nav: h.nav(user.ID, desc.Discriminator)}

	recs, err := h.records.FetchRecords(r.Context(), user.ID, desc.Discriminator)
	if err != nil {
		log.ErrorErr(log.CatHTTP, "Failed to fetch records", err, "user", user.ID, "section", desc.Discriminator)
		p.notify(SeverityDanger, "Failed to load records: "+err.Error())
		recs = nil
	}
	p.Body = view.RenderList(desc, recs, h.listContext(user.ID))
	h.render(w, r, http.StatusOK, pageList, p)
}

// SendInvite sends the update permission invitation.
// POST /section/{user}/{code}/list
func (h *Handler) SendInvite(w http.ResponseWriter, r *http.Request) {
	desc, user, ok := h.section(w, r)
	if !ok {
		return
	}
	defer h.redirectToList(w, r, desc, user.ID)
	code := desc.Discriminator.String()

	if !desc.SourceBearing || !h.flags.Enabled(flags.FlagSendInvite) || h.invites == nil {
		h.metrics.RecordAction(code, "send-invite", "refused")
		h.flashes.Add(w, r, SeverityWarning, "Invitations are not available for this section.")
		return
	}
	if !confirmed(r) {
		h.metrics.RecordAction(code, "send-invite", "refused")
		h.flashes.Add(w, r, SeverityWarning, "The invitation was not confirmed and has not been sent.")
		return
	}
	inv, err := h.invites.SendUpdatePermissionInvite(r.Context(), user.ID, h.org.ClientID)
	if err != nil {
		h.metrics.RecordAction(code, "send-invite", "error")
		log.ErrorErr(log.CatInvite, "Failed to send invite", err, "user", user.ID)
		h.flashes.Add(w, r, SeverityDanger, "Failed to send the invitation: "+err.Error())
		return
	}
	h.metrics.RecordAction(code, "send-invite", "ok")
	h.flashes.Add(w, r, SeveritySuccess, "An invitation to grant update permission was sent to "+inv.Email+".")
}

// NewForm renders an empty create form.
// GET /section/{user}/{code}/new
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	desc, user, ok := h.section(w, r)
	if !ok {
		return
	}
	form, err := view.RenderForm(desc, nil, view.FormContext{UserID: user.ID})
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	h.renderForm(w, r, http.StatusOK, desc, user, form, nil)
}

// EditForm renders the edit form of an eligible record.
// GET /section/{user}/{code}/{putcode}/edit
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	desc, user, ok := h.section(w, r)
	if !ok {
		return
	}
	rec, ok := h.editableRecord(w, r, desc, user, "edit")
	if !ok {
		return
	}
	form, err := view.RenderForm(desc, rec, view.FormContext{UserID: user.ID})
	if err != nil {
		h.flashes.Add(w, r, SeverityDanger, "The record cannot be edited: "+err.Error())
		h.redirectToList(w, r, desc, user.ID)
		return
	}
	h.renderForm(w, r, http.StatusOK, desc, user, form, nil)
}

// editableRecord fetches the route's record and checks the acting
// organisation may change it. On failure it flashes and redirects.
func (h *Handler) editableRecord(w http.ResponseWriter, r *http.Request, desc *schema.Descriptor, user *store.User, action string) (record.Record, bool) {
	putCode := r.PathValue("putcode")
	rec, err := h.records.FetchRecord(r.Context(), user.ID, desc.Discriminator, putCode)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		h.flashes.Add(w, r, SeverityWarning, fmt.Sprintf("Record %s was not found.", putCode))
	case err != nil:
		log.ErrorErr(log.CatHTTP, "Failed to fetch record", err, "user", user.ID, "put_code", putCode)
		h.flashes.Add(w, r, SeverityDanger, "Failed to load the record: "+err.Error())
	case !view.Eligible(desc, rec, h.org.ClientID, view.RuleFromFlags(h.flags)):
		h.metrics.RecordAction(desc.Discriminator.String(), action, "refused")
		h.flashes.Add(w, r, SeverityWarning, "This record was not added by your organisation and cannot be changed.")
	default:
		return rec, true
	}
	h.redirectToList(w, r, desc, user.ID)
	return nil, false
}

// SubmitForm handles the external id editor actions and saving.
// POST /section/{user}/{code}/new
// POST /section/{user}/{code}/{putcode}/edit
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	desc, user, ok := h.section(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	var rec record.Record
	if r.PathValue("putcode") != "" {
		if rec, ok = h.editableRecord(w, r, desc, user, "save"); !ok {
			return
		}
	}

	form, err := view.RenderForm(desc, rec, view.FormContext{UserID: user.ID, ExternalIDs: r.PostFormValue(view.ExternalIDsField)})
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	values := make(map[string]string, len(form.Fields))
	for _, f := range form.Fields {
		if _, present := r.PostForm[f.Name]; present {
			values[f.Name] = r.PostFormValue(f.Name)
		}
	}
	form.Fill(values)
	applyExternalIDEdits(form.ExternalIDs, r)

	var notices []Flash
	switch r.PostFormValue("action") {
	case actionAddExternalID:
		if form.ExternalIDs != nil {
			form.ExternalIDs.Add()
		}
		h.renderForm(w, r, http.StatusOK, desc, user, form, nil)
		return
	case actionDeleteExternalID:
		if form.ExternalIDs != nil {
			notices = deleteExternalID(form.ExternalIDs, r)
		}
		h.renderForm(w, r, http.StatusOK, desc, user, form, notices)
		return
	}

	code := desc.Discriminator.String()
	payload, err := form.Payload(desc)
	if err == nil {
		_, err = h.records.SaveRecord(r.Context(), user.ID, desc.Discriminator, form.PutCode, payload)
	}
	if err != nil {
		status := http.StatusInternalServerError
		notice := Flash{Severity: SeverityDanger, Message: "Failed to save the record: " + err.Error()}
		if errors.Is(err, store.ErrInvalidField) {
			status = http.StatusUnprocessableEntity
			notice = Flash{Severity: SeverityWarning, Message: err.Error()}
			h.metrics.RecordAction(code, "save", "refused")
		} else {
			h.metrics.RecordAction(code, "save", "error")
			log.ErrorErr(log.CatHTTP, "Failed to save record", err, "user", user.ID, "section", code)
		}
		h.renderForm(w, r, status, desc, user, form, []Flash{notice})
		return
	}

	h.metrics.RecordAction(code, "save", "ok")
	h.flashes.Add(w, r, SeveritySuccess, "Record saved.")
	h.redirectToList(w, r, desc, user.ID)
}

// applyExternalIDEdits copies the per-row inputs (extid-N-type and so on)
// over the list posted in the hidden field.
func applyExternalIDEdits(ids *extid.List, r *http.Request) {
	if ids == nil {
		return
	}
	for i := range ids.Len() {
		prefix := "extid-" + strconv.Itoa(i) + "-"
		if _, ok := r.PostForm[prefix+"type"]; !ok {
			continue
		}
		_ = ids.Set(i, extid.Entry{
			Type:         r.PostFormValue(prefix + "type"),
			Value:        r.PostFormValue(prefix + "value"),
			URL:          r.PostFormValue(prefix + "url"),
			Relationship: extid.Relationship(r.PostFormValue(prefix + "relationship")),
		})
	}
}

func deleteExternalID(ids *extid.List, r *http.Request) []Flash {
	pos, err := strconv.Atoi(r.FormValue("position"))
	if err != nil {
		return []Flash{{Severity: SeverityWarning, Message: "No external identifier was selected."}}
	}
	yes := confirmed(r) || r.FormValue(fmt.Sprintf("confirm-%d", pos)) == "yes"
	deleted, err := ids.Delete(pos, extid.ConfirmFunc(func(string) bool { return yes }))
	switch {
	case errors.Is(err, extid.ErrPositionOutOfRange):
		return []Flash{{Severity: SeverityWarning, Message: fmt.Sprintf("There is no external identifier #%d.", pos+1)}}
	case !deleted:
		return []Flash{{Severity: SeverityInfo, Message: "The external identifier was kept."}}
	default:
		return []Flash{{Severity: SeverityInfo, Message: "The external identifier was removed. Save to keep the change."}}
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, desc *schema.Descriptor, user *store.User, form *view.FormView, notices []Flash) {
	body := formBody{Form: form}
	if form.ExternalIDs != nil {
		data, err := form.ExternalIDsJSON()
		if err != nil {
			h.renderError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		body.ExternalIDsJSON = data
		body.ExternalIDTypes = extid.KnownTypes()
		body.Relationships = extid.Relationships()
		form.Issues = form.ExternalIDs.Validate()
	}
	title := "New " + desc.Title
	if !form.IsNew() {
		title = "Edit " + desc.Title
	}
	h.render(w, r, status, pageForm, &page{
		Title:   title,
		User:    user,
		Nav:     h.nav(user.ID, desc.Discriminator),
		Flashes: notices,
		Body:    body,
	})
}

// Delete removes an eligible record after confirmation.
// POST /section/{user}/{code}/{putcode}/delete
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	desc, user, ok := h.section(w, r)
	if !ok {
		return
	}
	code := desc.Discriminator.String()
	if !confirmed(r) {
		h.metrics.RecordAction(code, "delete", "refused")
		h.flashes.Add(w, r, SeverityWarning, "Deletion was not confirmed.")
		h.redirectToList(w, r, desc, user.ID)
		return
	}
	if _, ok := h.editableRecord(w, r, desc, user, "delete"); !ok {
		return
	}

	putCode := r.PathValue("putcode")
	if err := h.records.DeleteRecord(r.Context(), user.ID, desc.Discriminator, putCode); err != nil {
		h.metrics.RecordAction(code, "delete", "error")
		log.ErrorErr(log.CatHTTP, "Failed to delete record", err, "user", user.ID, "put_code", putCode)
		h.flashes.Add(w, r, SeverityDanger, "Failed to delete the record: "+err.Error())
	} else {
		h.metrics.RecordAction(code, "delete", "ok")
		h.flashes.Add(w, r, SeveritySuccess, "Record deleted.")
	}
	h.redirectToList(w, r, desc, user.ID)
}

package view

import (
	"net/url"

	"github.com/orcidhub/orcidhub/internal/schema"
)

func sectionBase(userID string, d schema.Discriminator) string {
	return "/section/" + url.PathEscape(userID) + "/" + url.PathEscape(string(d))
}

// ListURL is the section listing; POSTing to it sends the permission invite.
func ListURL(userID string, d schema.Discriminator) string {
	return sectionBase(userID, d) + "/list"
}

// NewURL is the create form.
func NewURL(userID string, d schema.Discriminator) string {
	return sectionBase(userID, d) + "/new"
}

// EditURL is the edit form of one record.
func EditURL(userID string, d schema.Discriminator, putCode string) string {
	return sectionBase(userID, d) + "/" + url.PathEscape(putCode) + "/edit"
}

// DeleteURL is the delete action of one record.
func DeleteURL(userID string, d schema.Discriminator, putCode string) string {
	return sectionBase(userID, d) + "/" + url.PathEscape(putCode) + "/delete"
}

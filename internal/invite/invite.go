// Package invite records permission invitations asking a researcher to
// let an organisation update their record sections.
package invite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/store"
	"github.com/orcidhub/orcidhub/internal/tracing"
)

// ErrNoEmail is returned when the researcher has no address to invite.
var ErrNoEmail = errors.New("user has no email address")

// Invitation is one permission invite.
type Invitation struct {
	Token       string
	UserID      string
	OrgClientID string
	Email       string
	CreatedAt   time.Time
	AcceptedAt  *time.Time
}

// Dispatcher sends permission invitations.
type Dispatcher interface {
	SendUpdatePermissionInvite(ctx context.Context, userID, orgClientID string) (*Invitation, error)
}

// SQLiteDispatcher stores invitations next to the records. Delivery is
// a log line; mail transport is not part of this program.
type SQLiteDispatcher struct {
	db    *sql.DB
	users store.Users
	now   func() time.Time
}

var _ Dispatcher = (*SQLiteDispatcher)(nil)

// NewDispatcher shares db's connection.
func NewDispatcher(db *store.DB) *SQLiteDispatcher {
	return &SQLiteDispatcher{db: db.Connection(), users: db.Users(), now: time.Now}
}

// SendUpdatePermissionInvite creates an invitation with a fresh token.
func (d *SQLiteDispatcher) SendUpdatePermissionInvite(ctx context.Context, userID, orgClientID string) (_ *Invitation, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, "send_invite", attribute.String(tracing.AttrUserID, userID))
	defer func() { tracing.EndSpan(span, err) }()

	user, err := d.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return nil, fmt.Errorf("invite %s: %w", userID, ErrNoEmail)
	}

	inv := &Invitation{
		Token:       uuid.NewString(),
		UserID:      user.ID,
		OrgClientID: orgClientID,
		Email:       email,
		CreatedAt:   d.now().UTC().Truncate(time.Second),
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO invitations (token, user_id, org_client_id, email, created_at) VALUES (?, ?, ?, ?, ?)`,
		inv.Token, inv.UserID, inv.OrgClientID, inv.Email, inv.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invitation: %w", err)
	}

	log.Info(log.CatInvite, "Permission invite issued",
		"user", inv.UserID, "email", inv.Email, "org", inv.OrgClientID, "token", inv.Token)
	return inv, nil
}

// Pending lists the user's unaccepted invitations, newest first.
func (d *SQLiteDispatcher) Pending(ctx context.Context, userID string) ([]Invitation, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT token, user_id, org_client_id, email, created_at FROM invitations
		WHERE user_id = ? AND accepted_at IS NULL ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var out []Invitation
	for rows.Next() {
		var inv Invitation
		var created int64
		if err := rows.Scan(&inv.Token, &inv.UserID, &inv.OrgClientID, &inv.Email, &created); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		inv.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Accept marks the invitation accepted. Unknown or already accepted
// tokens report sql.ErrNoRows.
func (d *SQLiteDispatcher) Accept(ctx context.Context, token string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE invitations SET accepted_at = ? WHERE token = ? AND accepted_at IS NULL`,
		d.now().Unix(), token,
	)
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("invitation %s: %w", token, sql.ErrNoRows)
	}
	return nil
}

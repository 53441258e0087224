package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var orcidPattern = regexp.MustCompile(`^([X\d]{4}-?){3}[X\d]{4}$`)

// ValidateORCID checks the iD's shape and its ISO 7064 11,2 checksum.
// An empty iD is valid; users need not have one.
func ValidateORCID(id string) error {
	if id == "" {
		return nil
	}
	if !orcidPattern.MatchString(id) {
		return fmt.Errorf("%w %q: expected xxxx-xxxx-xxxx-xxxx", ErrInvalidORCID, id)
	}
	check := 0
	for _, r := range id {
		switch {
		case r == '-':
			continue
		case r == 'X':
			check = (2*check + 10) % 11
		default:
			check = (2*check + int(r-'0')) % 11
		}
	}
	if check != 1 {
		return fmt.Errorf("%w %q: checksum mismatch", ErrInvalidORCID, id)
	}
	return nil
}

// User is a researcher whose sections are managed.
type User struct {
	ID        string
	Name      string
	Email     string
	ORCID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Users is the user data access contract.
type Users interface {
	FindUser(ctx context.Context, id string) (*User, error)
	SaveUser(ctx context.Context, u *User) error
	ListUsers(ctx context.Context) ([]User, error)
}

type userRepository struct {
	db *sql.DB
}

var _ Users = (*userRepository)(nil)

func newUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, orcid, created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*User, error) {
	var (
		u                User
		orcid            sql.NullString
		created, updated int64
	)
	if err := scanner.Scan(&u.ID, &u.Name, &u.Email, &orcid, &created, &updated); err != nil {
		return nil, err
	}
	u.ORCID = orcid.String
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return &u, nil
}

// FindUser returns UserNotFoundError for unknown ids.
func (r *userRepository) FindUser(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &UserNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

// SaveUser inserts or updates the user, validating the ORCID iD first.
func (r *userRepository) SaveUser(ctx context.Context, u *User) error {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return &FieldError{Field: "id", Err: errors.New("required")}
	}
	u.ORCID = strings.ToUpper(strings.TrimSpace(u.ORCID))
	if err := ValidateORCID(u.ORCID); err != nil {
		return err
	}
	var orcid sql.NullString
	if u.ORCID != "" {
		orcid = sql.NullString{String: u.ORCID, Valid: true}
	}

	now := time.Now().UTC().Truncate(time.Second)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, orcid, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email,
			orcid = excluded.orcid, updated_at = excluded.updated_at`,
		u.ID, u.Name, u.Email, orcid, u.CreatedAt.Unix(), u.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// ListUsers returns every user ordered by id.
func (r *userRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

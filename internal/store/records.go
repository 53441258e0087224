package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/pubsub"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/tracing"
)

// Records is the record data access contract consumed by the views.
// An empty putCode passed to SaveRecord creates a record.
type Records interface {
	FetchRecords(ctx context.Context, userID string, d schema.Discriminator) ([]record.Record, error)
	FetchRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string) (record.Record, error)
	DeleteRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string) error
	SaveRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string, payload map[string]string) (string, error)
}

// RecordChange is the payload of record events. A FlushedEvent carries a
// zero RecordChange.
type RecordChange struct {
	UserID  string
	Section schema.Discriminator
	PutCode string
}

type recordRepository struct {
	db       *sql.DB
	registry *schema.Registry
	source   Source
	users    Users
	events   pubsub.Publisher[RecordChange]
}

var _ Records = (*recordRepository)(nil)

func newRecordRepository(db *sql.DB, reg *schema.Registry, src Source, users Users, events pubsub.Publisher[RecordChange]) *recordRepository {
	return &recordRepository{db: db, registry: reg, source: src, users: users, events: events}
}

func spanAttrs(userID string, d schema.Discriminator, putCode string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrUserID, userID),
		attribute.String(tracing.AttrSection, d.String()),
	}
	if putCode != "" {
		attrs = append(attrs, attribute.String(tracing.AttrPutCode, putCode))
	}
	return attrs
}

func parsePutCode(userID string, d schema.Discriminator, putCode string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(putCode), 10, 64)
	if err != nil || n <= 0 {
		return 0, &RecordNotFoundError{UserID: userID, Section: d, PutCode: putCode}
	}
	return n, nil
}

// decodeRow turns a stored document into a Record with its put-code
// stamped at the section's put-code path.
func (r *recordRepository) decodeRow(desc *schema.Descriptor, putCode int64, doc string) (record.Record, error) {
	rec, err := record.Decode([]byte(doc))
	if err != nil {
		return nil, err
	}
	if err := rec.Set(desc.PutCodePath, putCode); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *recordRepository) FetchRecords(ctx context.Context, userID string, d schema.Discriminator) (recs []record.Record, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, "fetch_records", spanAttrs(userID, d, "")...)
	defer func() { tracing.EndSpan(span, err) }()

	desc, err := r.registry.Describe(d)
	if err != nil {
		return nil, err
	}
	if _, err := r.users.FindUser(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT put_code, document FROM records WHERE user_id = ? AND section = ? ORDER BY put_code`,
		userID, d.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer rows.Close()

	recs = []record.Record{}
	for rows.Next() {
		var putCode int64
		var doc string
		if err := rows.Scan(&putCode, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := r.decodeRow(desc, putCode, doc)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", putCode, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	span.SetAttributes(attribute.Int(tracing.AttrRecords, len(recs)))
	return recs, nil
}

func (r *recordRepository) FetchRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string) (rec record.Record, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, "fetch_record", spanAttrs(userID, d, putCode)...)
	defer func() { tracing.EndSpan(span, err) }()

	desc, err := r.registry.Describe(d)
	if err != nil {
		return nil, err
	}
	n, err := parsePutCode(userID, d, putCode)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, desc, userID, n)
}

func (r *recordRepository) fetch(ctx context.Context, desc *schema.Descriptor, userID string, putCode int64) (record.Record, error) {
	var doc string
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM records WHERE put_code = ? AND user_id = ? AND section = ?`,
		putCode, userID, desc.Discriminator.String(),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &RecordNotFoundError{UserID: userID, Section: desc.Discriminator, PutCode: strconv.FormatInt(putCode, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record: %w", err)
	}
	return r.decodeRow(desc, putCode, doc)
}

func (r *recordRepository) DeleteRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string) (err error) {
	ctx, span := tracing.StartStoreSpan(ctx, "delete_record", spanAttrs(userID, d, putCode)...)
	defer func() { tracing.EndSpan(span, err) }()

	n, err := parsePutCode(userID, d, putCode)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE put_code = ? AND user_id = ? AND section = ?`,
		n, userID, d.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return &RecordNotFoundError{UserID: userID, Section: d, PutCode: putCode}
	}

	log.Debug(log.CatDB, "Record deleted", "user", userID, "section", d, "put_code", n)
	r.events.Publish(pubsub.DeletedEvent, RecordChange{UserID: userID, Section: d, PutCode: putCode})
	return nil
}

func (r *recordRepository) SaveRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string, payload map[string]string) (_ string, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, "save_record", spanAttrs(userID, d, putCode)...)
	defer func() { tracing.EndSpan(span, err) }()

	desc, err := r.registry.Describe(d)
	if err != nil {
		return "", err
	}
	if _, err := r.users.FindUser(ctx, userID); err != nil {
		return "", err
	}

	var existing record.Record
	var n int64
	if putCode != "" {
		if n, err = parsePutCode(userID, d, putCode); err != nil {
			return "", err
		}
		if existing, err = r.fetch(ctx, desc, userID, n); err != nil {
			return "", err
		}
	}

	var before []byte
	if existing != nil {
		existing.Delete(desc.PutCodePath)
		if before, err = existing.Encode(); err != nil {
			return "", err
		}
	}
	rec, err := Materialize(desc, existing, payload, r.source)
	if err != nil {
		return "", err
	}
	// The put-code column is authoritative
	rec.Delete(desc.PutCodePath)
	doc, err := rec.Encode()
	if err != nil {
		return "", err
	}
	now := time.Now().Unix()

	if n == 0 {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO records (user_id, section, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			userID, d.String(), string(doc), now, now,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert record: %w", err)
		}
		if n, err = res.LastInsertId(); err != nil {
			return "", fmt.Errorf("failed to get last insert id: %w", err)
		}
		putCode = strconv.FormatInt(n, 10)
		log.Debug(log.CatDB, "Record created", "user", userID, "section", d, "put_code", n)
		r.events.Publish(pubsub.CreatedEvent, RecordChange{UserID: userID, Section: d, PutCode: putCode})
		return putCode, nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE records SET document = ?, updated_at = ? WHERE put_code = ?`,
		string(doc), now, n,
	)
	if err != nil {
		return "", fmt.Errorf("failed to update record: %w", err)
	}
	putCode = strconv.FormatInt(n, 10)
	change := diffDocuments(string(before), string(doc))
	log.Debug(log.CatDB, "Record updated", "user", userID, "section", d, "put_code", n,
		"inserted", change.Inserted, "deleted", change.Deleted, "unchanged", change.unchanged())
	r.events.Publish(pubsub.UpdatedEvent, RecordChange{UserID: userID, Section: d, PutCode: putCode})
	return putCode, nil
}

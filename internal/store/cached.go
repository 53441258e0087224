package store

import (
	"context"
	"time"

	"github.com/orcidhub/orcidhub/internal/cachemanager"
	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/pubsub"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
)

// SectionKey addresses one user's section listing in the record cache.
type SectionKey string

// NewSectionKey builds the cache key for (userID, d).
func NewSectionKey(userID string, d schema.Discriminator) SectionKey {
	return SectionKey(userID + ":" + d.String())
}

// UserPrefix matches every section key of userID.
func UserPrefix(userID string) SectionKey {
	return SectionKey(userID + ":")
}

type sectionQuery struct {
	userID string
	d      schema.Discriminator
}

// Cached decorates Records with a read-through cache of section listings.
// Its own writes evict synchronously; Run applies changes made elsewhere.
type Cached struct {
	Records
	cache cachemanager.CacheManager[SectionKey, []record.Record]
	reads *cachemanager.ReadThroughCache[SectionKey, []record.Record, sectionQuery]
	ttl   time.Duration
}

var _ Records = (*Cached)(nil)

// NewCached wraps inner. With enabled false every read goes to inner.
func NewCached(inner Records, cache cachemanager.CacheManager[SectionKey, []record.Record], ttl time.Duration, enabled bool) *Cached {
	c := &Cached{Records: inner, cache: cache, ttl: ttl}
	c.reads = cachemanager.NewReadThroughCache(cache, func(ctx context.Context, q sectionQuery) ([]record.Record, error) {
		log.Debug(log.CatCache, "Record cache miss", "user", q.userID, "section", q.d)
		return inner.FetchRecords(ctx, q.userID, q.d)
	}, !enabled)
	return c
}

// FetchRecords serves the listing from cache when present. Callers must
// treat the returned records as read-only.
func (c *Cached) FetchRecords(ctx context.Context, userID string, d schema.Discriminator) ([]record.Record, error) {
	return c.reads.GetWithRefresh(ctx, NewSectionKey(userID, d), sectionQuery{userID: userID, d: d}, c.ttl)
}

func (c *Cached) DeleteRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string) error {
	err := c.Records.DeleteRecord(ctx, userID, d, putCode)
	c.evict(ctx, userID, d)
	return err
}

func (c *Cached) SaveRecord(ctx context.Context, userID string, d schema.Discriminator, putCode string, payload map[string]string) (string, error) {
	code, err := c.Records.SaveRecord(ctx, userID, d, putCode, payload)
	c.evict(ctx, userID, d)
	return code, err
}

func (c *Cached) evict(ctx context.Context, userID string, d schema.Discriminator) {
	c.reads.Invalidate()
	_ = c.cache.Delete(ctx, NewSectionKey(userID, d))
}

// InvalidateUser drops every cached section of userID.
func (c *Cached) InvalidateUser(ctx context.Context, userID string) int {
	c.reads.Invalidate()
	return c.cache.DeletePrefix(ctx, UserPrefix(userID))
}

// Run applies record events until ctx is done or events closes. Record
// changes evict their section; FlushedEvent empties the cache.
func (c *Cached) Run(ctx context.Context, events <-chan pubsub.Event[RecordChange]) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.apply(ctx, ev)
		}
	}
}

func (c *Cached) apply(ctx context.Context, ev pubsub.Event[RecordChange]) {
	switch {
	case ev.Type == pubsub.FlushedEvent:
		c.reads.Invalidate()
		_ = c.cache.Flush(ctx)
		log.Info(log.CatCache, "Record cache flushed")
	case ev.Type.IsChange():
		if ev.Payload.Section.Valid() {
			c.evict(ctx, ev.Payload.UserID, ev.Payload.Section)
		} else {
			c.InvalidateUser(ctx, ev.Payload.UserID)
		}
	}
}

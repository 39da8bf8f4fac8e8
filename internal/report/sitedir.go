package report

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultSiteTTL bounds how long a cached site listing is served.
const DefaultSiteTTL = 5 * time.Minute

// SiteDirectory is a read-through cache over the site metadata feeds. It is
// the only mutable state shared between aggregation passes: entries expire
// after the TTL and concurrent refreshes of the same site type collapse into
// a single upstream fetch.
type SiteDirectory struct {
	store Store
	ttl   time.Duration
	clock func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[SiteType]siteEntry
}

type siteEntry struct {
	sites     []Site
	fetchedAt time.Time
}

// NewSiteDirectory builds the directory cache. A non-positive ttl falls back
// to DefaultSiteTTL.
func NewSiteDirectory(store Store, ttl time.Duration) *SiteDirectory {
	if ttl <= 0 {
		ttl = DefaultSiteTTL
	}
	return &SiteDirectory{
		store:   store,
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[SiteType]siteEntry),
	}
}

// WithClock overrides the directory clock for testing.
func (d *SiteDirectory) WithClock(fn func() time.Time) {
	if fn != nil {
		d.clock = fn
	}
}

// Sites returns the cached listing for one site type, refreshing through a
// single in-flight upstream call when the entry is missing or expired.
func (d *SiteDirectory) Sites(ctx context.Context, siteType SiteType) ([]Site, error) {
	d.mu.RLock()
	entry, ok := d.entries[siteType]
	d.mu.RUnlock()
	if ok && d.clock().Sub(entry.fetchedAt) < d.ttl {
		return entry.sites, nil
	}

	result := d.group.DoChan(string(siteType), func() (interface{}, error) {
		sites, err := d.store.Sites(ctx, siteType)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.entries[siteType] = siteEntry{sites: sites, fetchedAt: d.clock()}
		d.mu.Unlock()
		return sites, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			// Serve a stale entry over an error when one exists.
			if ok {
				return entry.sites, nil
			}
			return nil, res.Err
		}
		return res.Val.([]Site), nil
	}
}

// Invalidate drops every cached listing.
func (d *SiteDirectory) Invalidate() {
	d.mu.Lock()
	d.entries = make(map[SiteType]siteEntry)
	d.mu.Unlock()
}

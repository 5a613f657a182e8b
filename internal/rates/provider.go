package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/financas/internal/logger"
	"github.com/theirongolddev/financas/internal/model"
)

// DefaultTTL is how long a fetched history is served before refetching.
const DefaultTTL = 24 * time.Hour

// Fetcher downloads rate intervals. *Client implements it.
type Fetcher interface {
	FetchRecords(ctx context.Context, today civil.Date) ([]model.RateRecord, error)
}

// SnapshotStore persists the last fetched history across processes.
// LoadRates returns no records and a zero time when nothing is stored.
type SnapshotStore interface {
	LoadRates() ([]model.RateRecord, time.Time, error)
	SaveRates(records []model.RateRecord, fetchedAt time.Time) error
}

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	TTL      time.Duration // DefaultTTL when zero
	Clock    Clock         // SystemClock when nil
	Snapshot SnapshotStore // optional
}

// Provider serves rate lookups from a TTL cache in front of a Fetcher.
type Provider struct {
	fetcher  Fetcher
	snapshot SnapshotStore
	clock    Clock
	ttl      time.Duration
	cache    *TTLCache[*Table]
}

// NewProvider creates a provider for fetcher.
func NewProvider(fetcher Fetcher, cfg ProviderConfig) *Provider {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	p := &Provider{
		fetcher:  fetcher,
		snapshot: cfg.Snapshot,
		clock:    cfg.Clock,
		ttl:      cfg.TTL,
	}
	p.cache = NewTTLCache(p.load, cfg.TTL, cfg.Clock)
	return p
}

// Table returns the current rate history, fetching it when the cache is cold or expired.
func (p *Provider) Table(ctx context.Context) (*Table, error) {
	return p.cache.Get(ctx)
}

// RateAt looks up the annual rate in percent for d.
// A date outside every interval returns ErrNotFound.
func (p *Provider) RateAt(ctx context.Context, d civil.Date) (float64, error) {
	t, err := p.Table(ctx)
	if err != nil {
		return 0, err
	}
	rate, ok := t.RateAt(d, civil.DateOf(p.clock.Now()))
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, d)
	}
	return rate, nil
}

// Refresh drops the cached history and fetches it again, bypassing the snapshot.
func (p *Provider) Refresh(ctx context.Context) (*Table, error) {
	t, fetchedAt, err := p.fetchRemote(ctx)
	if err != nil {
		return nil, err
	}
	p.cache.Set(t, fetchedAt)
	return t, nil
}

// load is the cache's fetch function: a fresh snapshot wins over the network.
func (p *Provider) load(ctx context.Context) (*Table, time.Time, error) {
	log := logger.FromContext(ctx)

	if p.snapshot != nil {
		records, fetchedAt, err := p.snapshot.LoadRates()
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("reading rate snapshot")
		case len(records) > 0 && p.clock.Now().Sub(fetchedAt) < p.ttl:
			log.Debug().Time("fetched_at", fetchedAt).Int("records", len(records)).Msg("using rate snapshot")
			return &Table{Records: records, FetchedAt: fetchedAt}, fetchedAt, nil
		}
	}

	return p.fetchRemote(ctx)
}

func (p *Provider) fetchRemote(ctx context.Context) (*Table, time.Time, error) {
	log := logger.FromContext(ctx)

	now := p.clock.Now()
	records, err := p.fetcher.FetchRecords(ctx, civil.DateOf(now))
	if err != nil {
		log.Warn().Err(err).Msg("fetching rate history")
		return nil, time.Time{}, err
	}
	log.Debug().Int("records", len(records)).Msg("fetched rate history")

	if p.snapshot != nil {
		if err := p.snapshot.SaveRates(records, now); err != nil {
			log.Warn().Err(err).Msg("saving rate snapshot")
		}
	}
	return &Table{Records: records, FetchedAt: now}, now, nil
}

// Source names where a resolved rate came from.
type Source string

// Rate sources reported in a Resolution.
const (
	SourceOverride Source = "override"
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
	SourceMissing  Source = "missing"
)

// Resolution is the annual rate chosen for a projection.
type Resolution struct {
	RatePercent float64
	Source      Source
	// Err explains a SourceMissing result: ErrNotFound or an ErrService failure.
	Err error
}

// Resolve picks the rate for d. An override always wins and skips the lookup.
// Lookup misses and service failures are reported in Err instead of failing.
func (p *Provider) Resolve(ctx context.Context, d civil.Date, override *float64) Resolution {
	if override != nil {
		return Resolution{RatePercent: *override, Source: SourceOverride}
	}
	if p == nil {
		return Resolution{Source: SourceMissing, Err: fmt.Errorf("%w: no provider configured", ErrNotFound)}
	}

	rate, err := p.RateAt(ctx, d)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrService) {
			err = fmt.Errorf("%w: %w", ErrService, err)
		}
		return Resolution{Source: SourceMissing, Err: err}
	}
	return Resolution{RatePercent: rate, Source: SourceProvider}
}

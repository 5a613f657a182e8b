package store

import (
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/financas/internal/model"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "financas.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRateCache_Empty(t *testing.T) {
	c := openTemp(t)
	records, fetchedAt, err := c.Rates("http://example").LoadRates()
	if err != nil {
		t.Fatal(err)
	}
	if records != nil || !fetchedAt.IsZero() {
		t.Errorf("got %v at %v, want nothing", records, fetchedAt)
	}
}

func TestRateCache_SaveLoad(t *testing.T) {
	c := openTemp(t)
	rc := c.Rates("http://example")

	fetchedAt := time.Date(2023, 10, 17, 9, 30, 0, 123, time.UTC)
	in := []model.RateRecord{
		{Start: civil.Date{Year: 2023, Month: 8, Day: 3}, End: civil.Date{Year: 2023, Month: 10, Day: 18}, OpenEnded: true, RatePercent: 12.75},
		{Start: civil.Date{Year: 2023, Month: 6, Day: 22}, End: civil.Date{Year: 2023, Month: 8, Day: 3}, RatePercent: 13.75},
	}
	if err := rc.SaveRates(in, fetchedAt); err != nil {
		t.Fatalf("SaveRates: %v", err)
	}

	out, gotAt, err := rc.LoadRates()
	if err != nil {
		t.Fatal(err)
	}
	if !gotAt.Equal(fetchedAt) {
		t.Errorf("fetchedAt = %v, want %v", gotAt, fetchedAt)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	// Ordered by start date.
	if out[0] != in[1] || out[1] != in[0] {
		t.Errorf("records = %+v", out)
	}

	// Saving again replaces the snapshot.
	if err := rc.SaveRates(in[:1], fetchedAt.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	out, _, err = rc.LoadRates()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Errorf("len after replace = %d, want 1", len(out))
	}

	// Other endpoints are isolated.
	other, _, err := c.Rates("http://other").LoadRates()
	if err != nil || other != nil {
		t.Errorf("other endpoint = %v, %v", other, err)
	}
}

func TestCache_SnapshotsAndClear(t *testing.T) {
	c := openTemp(t)
	now := time.Now().UTC()
	if err := c.Rates("a").SaveRates(nil, now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	rec := []model.RateRecord{{Start: civil.Date{Year: 2023, Month: 1, Day: 1}, End: civil.Date{Year: 2023, Month: 2, Day: 1}, RatePercent: 13.75}}
	if err := c.Rates("b").SaveRates(rec, now); err != nil {
		t.Fatal(err)
	}

	snaps, err := c.Snapshots()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 || snaps[0].Endpoint != "b" || snaps[0].RecordCount != 1 {
		t.Errorf("snapshots = %+v", snaps)
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	records, _, err := c.Rates("b").LoadRates()
	if err != nil || records != nil {
		t.Errorf("after Clear = %v, %v", records, err)
	}
}

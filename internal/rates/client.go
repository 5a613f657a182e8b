// Package rates fetches, caches and looks up the SELIC reference rate.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/financas/internal/model"
)

const (
	// DefaultEndpoint is the central bank's SELIC target history service.
	DefaultEndpoint       = "https://www.bcb.gov.br/api/servico/sitebcb/historicotaxasjuros"
	defaultRequestTimeout = 10 * time.Second
	maxBodySize           = 4 << 20 // 4 MB
	userAgent             = "github.com/theirongolddev/financas/1.0"
)

var (
	// ErrService indicates the rate service was unreachable or returned malformed data.
	ErrService = errors.New("rates: service error")
	// ErrNotFound indicates no rate interval covers the queried date.
	ErrNotFound = errors.New("rates: no rate found for date")
)

// Client fetches the SELIC target history over HTTP.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

// NewClient creates a client for endpoint (DefaultEndpoint when empty).
// A non-positive timeout uses the 10s default.
func NewClient(endpoint string, timeout time.Duration) *Client {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		http:     &http.Client{},
	}
}

// Endpoint returns the URL the client queries.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchRecords downloads the full history and converts it to rate intervals,
// sorted by start date. Upstream end dates are inclusive; the returned records
// use exclusive ends, and an open-ended record runs through today.
func (c *Client) FetchRecords(ctx context.Context, today civil.Date) ([]model.RateRecord, error) {
	body, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	var raw HistoryResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing history: %w", ErrService, err)
	}

	return convertRecords(raw.Conteudo, today)
}

func convertRecords(raw []HistoryRecord, today civil.Date) ([]model.RateRecord, error) {
	records := make([]model.RateRecord, 0, len(raw))
	for i, r := range raw {
		rate, ok, err := parseRate(r.MetaSelic)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: invalid MetaSelic %s", ErrService, i, string(r.MetaSelic))
		}
		if !ok {
			continue
		}

		start, ok := parseDate(r.DataInicioVigencia)
		if !ok {
			return nil, fmt.Errorf("%w: record %d: invalid DataInicioVigencia %q", ErrService, i, r.DataInicioVigencia)
		}

		rec := model.RateRecord{Start: start, RatePercent: rate}
		if r.DataFimVigencia == nil || strings.TrimSpace(*r.DataFimVigencia) == "" {
			rec.OpenEnded = true
			rec.End = today.AddDays(1)
		} else {
			last, ok := parseDate(*r.DataFimVigencia)
			if !ok {
				return nil, fmt.Errorf("%w: record %d: invalid DataFimVigencia %q", ErrService, i, *r.DataFimVigencia)
			}
			rec.End = last.AddDays(1)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Start.Before(records[j].Start)
	})
	return records, nil
}

// get performs a GET request and returns the response body.
func (c *Client) get(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrService, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	//nolint:gosec // endpoint comes from config
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrService, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrService, err)
	}
	return body, nil
}

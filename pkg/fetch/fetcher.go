// Package fetch retrieves the monitored quantity from its upstream source.
// Fetchers are a pure I/O boundary: they perform one bounded request and
// classify failures, leaving retry policy to the poll loop.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hargaemas/gold-monitor/pkg/storage"
)

// Fetcher retrieves a single observation. Implementations must respect ctx
// and return classified errors (see Transient / Invalid).
type Fetcher interface {
	Fetch(ctx context.Context) (storage.Observation, error)
	Name() string
}

// Source describes an upstream JSON endpoint exposing the monitored value.
type Source struct {
	// URL of the endpoint. A GET must return a JSON object.
	URL string

	// Field is the key holding the monitored value. Values may be JSON
	// numbers or formatted strings such as "2.150.000".
	Field string

	// TimestampField optionally names a key carrying the upstream sample
	// time. When absent or unparsable the fetch time is used.
	TimestampField string

	// Tag identifies the source in recorded observations.
	Tag string

	// Timeout bounds the whole request.
	Timeout time.Duration
}

// RateFetcher fetches a rate value from a JSON HTTP endpoint.
type RateFetcher struct {
	source Source
	client *resty.Client
	logger *slog.Logger
}

// NewRateFetcher builds a fetcher for the given source.
func NewRateFetcher(src Source, logger *slog.Logger) *RateFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &RateFetcher{source: src, client: client, logger: logger}
}

func (f *RateFetcher) Name() string { return f.source.Tag }

// Fetch performs one request. Transport failures and upstream 5xx are
// transient; any response that cannot be interpreted is invalid.
func (f *RateFetcher) Fetch(ctx context.Context) (storage.Observation, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.source.URL)
	if err != nil {
		return storage.Observation{}, Transient(f.source.Tag, err)
	}

	code := resp.StatusCode()
	switch {
	case code >= http.StatusInternalServerError:
		return storage.Observation{}, Transient(f.source.Tag, fmt.Errorf("upstream status %d", code))
	case code != http.StatusOK:
		return storage.Observation{}, Invalid(f.source.Tag, fmt.Errorf("upstream status %d", code))
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return storage.Observation{}, Invalid(f.source.Tag, fmt.Errorf("decode payload: %w", err))
	}

	raw, ok := payload[f.source.Field]
	if !ok {
		return storage.Observation{}, Invalid(f.source.Tag, fmt.Errorf("field %q missing", f.source.Field))
	}

	value, err := parseNumber(raw)
	if err != nil {
		return storage.Observation{}, Invalid(f.source.Tag, fmt.Errorf("field %q: %w", f.source.Field, err))
	}

	ts := time.Now().UTC()
	if f.source.TimestampField != "" {
		if rawTS, ok := payload[f.source.TimestampField]; ok {
			if parsed, ok := parseTimestamp(rawTS); ok {
				ts = parsed
			} else {
				f.logger.Debug("unparsable upstream timestamp, using fetch time",
					"source", f.source.Tag,
					"field", f.source.TimestampField,
				)
			}
		}
	}

	return storage.Observation{Timestamp: ts, Value: value, Source: f.source.Tag}, nil
}

// parseNumber accepts JSON numbers and formatted numeric strings. Rate feeds
// report amounts like "2.150.000" with separator dots.
func parseNumber(raw json.RawMessage) (float64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, fmt.Errorf("value is null")
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number or numeric string: %s", string(raw))
	}

	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}

	stripped := strings.NewReplacer(".", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as number", s)
	}
	return v, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

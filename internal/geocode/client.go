// Package geocode resolves normalized addresses to coordinates through a
// Nominatim-compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"restituiri/internal"
	"restituiri/internal/config"
	"restituiri/internal/ratelimit"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *ratelimit.RateLimiter
	logger     *zap.Logger
	retryDelay time.Duration
}

type searchHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// StatusError is a non-2xx answer from the search endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("geocoder status=%d body=%s", e.Status, e.Body)
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.GeocodeTimeoutMs) * time.Millisecond},
		limiter:    ratelimit.NewRateLimiter(cfg.GeocodeRPS),
		logger:     logger,
		retryDelay: time.Duration(cfg.GeocodeRetryDelayMs) * time.Millisecond,
	}
}

// Geocode returns the best match for query, or nil when the service has none.
func (c *Client) Geocode(ctx context.Context, query string) (*internal.GeocodeResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty geocode query")
	}

	u, err := url.Parse(strings.TrimRight(c.cfg.GeocodeBaseURL, "/") + "/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	attempts := c.cfg.GeocodeRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("geocode retry",
				zap.String("query", query),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			if err := ratelimit.Sleep(ctx, c.retryDelay); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, status, err := c.get(ctx, u.String())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if status < 200 || status >= 300 {
			lastErr = &StatusError{Status: status, Body: string(body)}
			if isRetryableStatus(status) {
				continue
			}
			return nil, lastErr
		}

		return decodeFirstHit(body)
	}

	if lastErr == nil {
		lastErr = errors.New("geocode request failed")
	}
	return nil, fmt.Errorf("geocode %q after %d attempts: %w", query, attempts, lastErr)
}

func (c *Client) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.cfg.GeocodeUserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "ro")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func decodeFirstHit(body []byte) (*internal.GeocodeResult, error) {
	var hits []searchHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", hits[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", hits[0].Lon, err)
	}
	return &internal.GeocodeResult{Latitude: lat, Longitude: lon, DisplayName: hits[0].DisplayName}, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

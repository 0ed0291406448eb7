// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package geoadmin is a client for the address search of the federal
// geoportal (api3.geo.admin.ch).
package geoadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geosan/geosan/geocode"
	"github.com/geosan/geosan/metrics"
	"github.com/geosan/geosan/spatial"
	"github.com/geosan/geosan/utils/httputils"
)

const (
	// DefaultURL is the SearchServer endpoint.
	DefaultURL = "https://api3.geo.admin.ch/rest/services/api/SearchServer"
	// DefaultDelay spaces consecutive requests.
	DefaultDelay = 100 * time.Millisecond
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRetries is the number of retries after a transient failure.
	DefaultMaxRetries = 3

	// UserAgent identifies the geocoder to the service.
	UserAgent = "geosan-geocoder/1.0"
)

// Client searches addresses in the building register layer. All requests
// of a client share one rate limiter.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	limiter       *rate.Limiter
	maxRetries    uint
	retryInterval time.Duration
}

var _ geocode.RemoteGeocoder = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another SearchServer.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithDelay sets the minimum spacing between requests. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n uint) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryInterval sets the first backoff interval.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) {
		c.retryInterval = d
	}
}

// NewClient creates a client with the default endpoint, a 100ms request
// spacing and three retries.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultURL,
		httpClient:    httputils.NewClient(DefaultTimeout, UserAgent, false),
		limiter:       rate.NewLimiter(rate.Every(DefaultDelay), 1),
		maxRetries:    DefaultMaxRetries,
		retryInterval: 500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type searchResponse struct {
	Results []struct {
		Attrs struct {
			Label     string  `json:"label"`
			X         float64 `json:"x"`
			Y         float64 `json:"y"`
			FeatureID string  `json:"featureId"`
			Origin    string  `json:"origin"`
		} `json:"attrs"`
	} `json:"results"`
}

// Search returns the best building match for text, or nil when the
// service has none. Transient failures are retried with exponential
// backoff before an *Error is returned.
func (c *Client) Search(ctx context.Context, text string) (*geocode.RemoteMatch, error) {
	start := time.Now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval

	op := func() (*geocode.RemoteMatch, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		m, err := c.search(ctx, text)
		if err == nil {
			return m, nil
		}

		var e *Error
		if ctx.Err() != nil || !errors.As(err, &e) || !e.Retryable() {
			return nil, backoff.Permanent(err)
		}

		zap.L().Debug("retrying remote search", zap.String("text", text), zap.Error(err))

		return nil, err
	}

	m, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxRetries+1))

	metrics.RemoteRequestDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		metrics.RemoteRequestsTotal.WithLabelValues("error").Inc()

		return nil, err
	case m == nil:
		metrics.RemoteRequestsTotal.WithLabelValues("no_result").Inc()
	default:
		metrics.RemoteRequestsTotal.WithLabelValues("ok").Inc()
	}

	return m, nil
}

func (c *Client) search(ctx context.Context, text string) (*geocode.RemoteMatch, error) {
	params := url.Values{}
	params.Set("layer", "ch.bfs.gebaeude_wohnungs_register")
	params.Set("searchText", text)
	params.Set("type", "locations")
	params.Set("origins", "address,zipcode")
	params.Set("sr", strconv.Itoa(spatial.SRID))
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Type: ErrorTypeInvalidRequest, Message: "building search request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &Error{Type: ErrorTypeDecode, StatusCode: resp.StatusCode, Message: "decoding search response", Err: err}
	}

	if len(sr.Results) == 0 {
		return nil, nil
	}

	attrs := sr.Results[0].Attrs

	egid, ok := parseEGID(attrs.FeatureID)
	if !ok {
		zap.L().Debug("search result is not a building",
			zap.String("text", text),
			zap.String("origin", attrs.Origin),
			zap.String("feature_id", attrs.FeatureID))

		return nil, nil
	}

	return &geocode.RemoteMatch{
		EGID:  egid,
		Point: spatial.Point{E: attrs.Y, N: attrs.X},
		Label: stripTags(attrs.Label),
	}, nil
}

// parseEGID reads the building id of a featureId such as "190123_0".
func parseEGID(featureID string) (int64, bool) {
	head, _, _ := strings.Cut(featureID, "_")

	egid, err := strconv.ParseInt(head, 10, 64)
	if err != nil || egid <= 0 {
		return 0, false
	}

	return egid, true
}

// stripTags removes the <b> markup of search labels.
func stripTags(s string) string {
	var sb strings.Builder

	inTag := false

	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}

	return strings.TrimSpace(sb.String())
}

// String describes the client for logs.
func (c *Client) String() string {
	return fmt.Sprintf("geoadmin(%s, retries=%d)", c.baseURL, c.maxRetries)
}

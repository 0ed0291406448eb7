// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides round trippers for outgoing HTTP clients.
package httputils

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TracingRoundTripper logs every exchange at debug level, one entry per
// request and per response.
type TracingRoundTripper struct {
	Transport http.RoundTripper
	Logger    *zap.Logger
	DumpBody  bool
}

const maxLines, maxChars = 256, 512

// abbreviate prefixes and truncates dump lines.
func abbreviate(dump []byte, prefix rune) string {
	lines := strings.Split(strings.TrimRight(string(dump), "\r\n"), "\n")

	truncated := len(lines) > maxLines
	if truncated {
		lines = lines[:maxLines]
	}

	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if len(line) > maxChars {
			line = line[:maxChars] + "…"
		}

		lines[i] = fmt.Sprintf("%c %s", prefix, line)
	}

	if truncated {
		lines = append(lines, "…")
	}

	return strings.Join(lines, "\n")
}

// RoundTrip implements the http.RoundTripper interface.
func (t *TracingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Logger == nil {
		return t.Transport.RoundTrip(req)
	}

	dump, err := httputil.DumpRequestOut(req, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}

	t.Logger.Debug("http request", zap.String("dump", abbreviate(dump, '>')))

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		t.Logger.Debug("http error", zap.String("url", req.URL.String()), zap.Error(err))

		return nil, err
	}

	dump, err = httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}

	t.Logger.Debug("http response",
		zap.Duration("duration", time.Since(start)),
		zap.String("dump", abbreviate(dump, '<')))

	return resp, nil
}

// HeadersRoundTripper sets fixed headers on every request.
type HeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *HeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}

// NewClient returns a client sending userAgent on every request, traced
// to the global logger when trace is set.
func NewClient(timeout time.Duration, userAgent string, trace bool) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport

	if trace {
		transport = &TracingRoundTripper{Transport: transport, Logger: zap.L(), DumpBody: true}
	}

	transport = &HeadersRoundTripper{
		Transport: transport,
		Headers:   map[string]string{"User-Agent": userAgent},
	}

	return &http.Client{Timeout: timeout, Transport: transport}
}

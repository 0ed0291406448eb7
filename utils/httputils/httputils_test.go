// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// dummyRoundTripper is useful to simulate a response.
type dummyRoundTripper struct {
	response *http.Response
	request  *http.Request
}

func (d *dummyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.request = req

	return d.response, nil
}

func okResponse() *http.Response {
	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("response body")),
	}
}

func TestTracingRoundTripper(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	rt := &TracingRoundTripper{
		Transport: &dummyRoundTripper{response: okResponse()},
		Logger:    zap.New(core),
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/abc", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "response body", string(body))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].ContextMap()["dump"], "> GET /abc")
	assert.Contains(t, entries[1].ContextMap()["dump"], "< response body")
}

func TestTracingRoundTripperWithoutLogger(t *testing.T) {
	drt := &dummyRoundTripper{response: okResponse()}
	rt := &TracingRoundTripper{Transport: drt}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Same(t, req, drt.request)
}

func TestAbbreviate(t *testing.T) {
	long := strings.Repeat("x", maxChars+10)
	got := abbreviate([]byte("first\r\n"+long+"\n"), '>')

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "> first", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "…"))

	many := strings.Repeat("line\n", maxLines+5)
	assert.True(t, strings.HasSuffix(abbreviate([]byte(many), '<'), "\n…"))
}

func TestHeadersRoundTripper(t *testing.T) {
	drt := &dummyRoundTripper{response: okResponse()}
	rt := &HeadersRoundTripper{
		Transport: drt,
		Headers:   map[string]string{"User-Agent": "geosan-test"},
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "geosan-test", drt.request.Header.Get("User-Agent"))
	assert.Empty(t, req.Header.Get("User-Agent"))
}

func TestNewClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.UserAgent())
	}))
	defer srv.Close()

	client := NewClient(time.Second, "geosan/1.0", true)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "geosan/1.0", string(body))
}

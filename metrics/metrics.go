// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes the geocoder's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geosan",
			Name:      "geocode_results_total",
			Help:      "Geocoded records by provenance.",
		},
		[]string{"provenance"},
	)
	RecordErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geosan",
			Name:      "geocode_record_errors_total",
			Help:      "Geocoded records that met a non-fatal error.",
		},
	)
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geosan",
			Name:      "remote_requests_total",
			Help:      "Remote search requests by outcome.",
		},
		[]string{"outcome"},
	)
	RemoteRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "geosan",
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of remote search requests, retries included.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(ResultsTotal)
	prometheus.MustRegister(RecordErrorsTotal)
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteRequestDuration)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

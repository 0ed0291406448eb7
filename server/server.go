// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the geocoder over HTTP.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/geosan/geosan/geocode"
	"github.com/geosan/geosan/metrics"
	"github.com/geosan/geosan/registry"
	"github.com/geosan/geosan/spatial"
	"github.com/geosan/geosan/store"
)

// MaxBatchSize bounds the number of queries of one batch request.
const MaxBatchSize = 1000

type Server struct {
	cascade     *geocode.Cascade
	results     store.Repository
	concurrency int
}

// NewServer serves cascade. results may be nil, in which case the stored
// results are not exposed.
func NewServer(cascade *geocode.Cascade, results store.Repository, concurrency int) *Server {
	return &Server{
		cascade:     cascade,
		results:     results,
		concurrency: concurrency,
	}
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/api/geocode", s.geocodeOne)
	r.POST("/api/geocode/batch", s.geocodeBatch)
	r.GET("/api/locality", s.locality)
	r.GET("/api/buildings/:egid", s.building)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if s.results != nil {
		r.GET("/api/results", s.listResults)
		r.GET("/api/results/summary", s.resultsSummary)
	}

	return r
}

func (s *Server) Run(listen string) error {
	zap.L().Info("serving geocoder", zap.String("listen", listen))

	return s.Router().Run(listen)
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		zap.L().Debug("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
		)
	}
}

type ResultResponse struct {
	ID         string          `json:"id,omitempty"`
	Query      *geocode.Query  `json:"query,omitempty"`
	Point      *spatial.Point  `json:"point"`
	WGS84      *spatial.LatLng `json:"wgs84,omitempty"`
	EGID       int64           `json:"egid,omitempty"`
	Provenance string          `json:"provenance"`
	Confidence string          `json:"confidence"`
	Error      string          `json:"error,omitempty"`
}

func newResultResponse(r geocode.Result) ResultResponse {
	resp := ResultResponse{
		Point:      r.Point,
		EGID:       r.EGID,
		Provenance: string(r.Provenance),
		Confidence: string(r.Confidence()),
	}

	if r.Point != nil {
		ll := r.Point.ToWGS84()
		resp.WGS84 = &ll
	}

	if r.Err != nil {
		resp.Error = r.Err.Error()
	}

	return resp
}

// QueryRequest is one address. Either Address (street and number on one
// line) or Street and Number are given.
type QueryRequest struct {
	ID           string `json:"id" form:"id"`
	Address      string `json:"address" form:"address"`
	Street       string `json:"street" form:"street"`
	Number       string `json:"number" form:"number"`
	PostalCode   string `json:"postal_code" form:"postal_code"`
	Municipality string `json:"municipality" form:"municipality"`
}

func (q QueryRequest) query() geocode.Query {
	if q.Address != "" {
		return geocode.ParseQuery(q.ID, q.Address, q.PostalCode, q.Municipality)
	}

	return geocode.NewQuery(q.ID, q.Street, q.Number, q.PostalCode, q.Municipality)
}

func (q QueryRequest) valid() bool {
	return q.PostalCode != "" || q.Municipality != ""
}

func (s *Server) geocodeOne(ctx *gin.Context) {
	var req QueryRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if !req.valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "postal_code or municipality query parameter is required"})

		return
	}

	q := req.query()
	res := s.cascade.Geocode(ctx.Request.Context(), q)
	metrics.ResultsTotal.WithLabelValues(string(res.Provenance)).Inc()

	resp := newResultResponse(res)
	resp.ID, resp.Query = q.ID, &q

	ctx.JSON(http.StatusOK, resp)
}

type BatchRequest struct {
	Queries []QueryRequest `json:"queries"`
}

type BatchResponse struct {
	Results []ResultResponse `json:"results"`
	Counts  map[string]int   `json:"counts"`
	Total   int              `json:"total"`
	Errors  int              `json:"errors"`
}

func (s *Server) geocodeBatch(ctx *gin.Context) {
	var req BatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if len(req.Queries) > MaxBatchSize {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many queries"})

		return
	}

	queries := make([]geocode.Query, len(req.Queries))
	for i, q := range req.Queries {
		queries[i] = q.query()
	}

	records, err := geocode.NewBatch(s.cascade, s.concurrency).Quiet().Run(ctx.Request.Context(), queries)
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

		return
	}

	report := geocode.NewReport(records)
	resp := BatchResponse{
		Results: make([]ResultResponse, len(records)),
		Counts:  make(map[string]int, len(report.Counts)),
		Total:   report.Total,
		Errors:  report.Errors,
	}

	for i, rec := range records {
		resp.Results[i] = newResultResponse(rec.Result)
		resp.Results[i].ID = rec.Query.ID
	}

	for p, n := range report.Counts {
		resp.Counts[string(p)] = n
	}

	ctx.JSON(http.StatusOK, resp)
}

func (s *Server) locality(ctx *gin.Context) {
	municipality := ctx.Query("municipality")
	postalCode := ctx.Query("postal_code")

	if municipality == "" && postalCode == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "postal_code or municipality query parameter is required"})

		return
	}

	ctx.JSON(http.StatusOK, newResultResponse(s.cascade.Locate(municipality, postalCode)))
}

func (s *Server) building(ctx *gin.Context) {
	egid, err := strconv.ParseInt(ctx.Param("egid"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid egid"})

		return
	}

	a, err := s.cascade.Building(egid)
	if errors.Is(err, registry.ErrBuildingNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, a)
}

func (s *Server) listResults(ctx *gin.Context) {
	page := 1
	perPage := 50

	if p, err := strconv.Atoi(ctx.Query("page")); err == nil && p > 0 {
		page = p
	}

	if pp, err := strconv.Atoi(ctx.Query("per_page")); err == nil && pp > 0 {
		perPage = pp
	}

	var provenance *string
	if p := ctx.Query("provenance"); p != "" {
		provenance = &p
	}

	results, err := s.results.ListResults(provenance, perPage, (page-1)*perPage)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"results":  results,
		"page":     page,
		"per_page": perPage,
	})
}

func (s *Server) resultsSummary(ctx *gin.Context) {
	counts, err := s.results.CountByProvenance()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, counts)
}

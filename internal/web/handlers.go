package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/OrderImport/internal/core"
	"github.com/JonMunkholm/OrderImport/internal/ingest"
)

// maxRequestBody bounds the JSON body of an import request.
const maxRequestBody = 64 << 10

// handleRunImport runs one import synchronously and returns its summary.
//
//	POST /api/imports {"format":"delimited","file":"2024-01/report.csv"}
func (s *Server) handleRunImport(w http.ResponseWriter, r *http.Request) {
	var req core.ImportRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, &ingest.ConfigError{Option: "request", Reason: fmt.Sprintf("invalid JSON body: %v", err)}, nil)
		return
	}

	res, err := s.service.RunImport(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, res)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type listImportsResponse struct {
	Imports []*ingest.Result         `json:"imports"`
	Limiter core.ImportLimiterStatus `json:"limiter"`
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listImportsResponse{
		Imports: s.service.Runs(),
		Limiter: s.service.LimiterStatus(),
	})
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Run(chi.URLParam(r, "importID"))
	if err != nil {
		s.respondError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.service.FindOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.respondError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type healthResponse struct {
	Status string `json:"status"`
	Orders int64  `json:"orders"`
}

// handleHealth reports ok when the order store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.CountOrders(r.Context())
	if err != nil {
		s.respondError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Orders: n})
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ideagraph/semnet/internal/graph"
	"ideagraph/semnet/internal/network"
)

// StatusClientClosedRequest is reported when the caller went away mid-build.
const StatusClientClosedRequest = 499

type buildRequest struct {
	Type              string `json:"type" validate:"required"`
	ID                string `json:"id" validate:"required"`
	Depth             int    `json:"depth" validate:"omitempty,min=1"`
	GenerateSummaries bool   `json:"generateSummaries"`
	IncludeHierarchy  bool   `json:"includeHierarchy"`
}

type analysisResponse struct {
	Success  bool                  `json:"success"`
	Analysis *graph.AnalysisReport `json:"analysis"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	cfg := s.builder.Config()
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"thresholds": cfg.Thresholds,
		"max_depth":  cfg.MaxDepth,
	})
}

// buildFromPath handles GET /api/network/{type}/{id}?depth=&summaries=&hierarchy=
func (s *Server) buildFromPath(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestFromQuery(r)
	if err != nil {
		s.respondResult(w, network.Failure(err), err)
		return
	}
	res, err := s.builder.Build(r.Context(), req)
	s.respondResult(w, res, err)
}

// buildFromBody handles POST /api/network with a JSON body.
func (s *Server) buildFromBody(w http.ResponseWriter, r *http.Request) {
	var body buildRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		err = fmt.Errorf("%w: invalid request body: %v", network.ErrConfiguration, err)
		s.respondResult(w, network.Failure(err), err)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		err = fmt.Errorf("%w: %v", network.ErrConfiguration, err)
		s.respondResult(w, network.Failure(err), err)
		return
	}
	depth := body.Depth
	if depth == 0 {
		depth = s.opts.DefaultDepth
	}
	res, err := s.builder.Build(r.Context(), network.Request{
		Seed:              network.ObjectRef{Type: body.Type, ID: body.ID},
		Depth:             depth,
		GenerateSummaries: body.GenerateSummaries,
		IncludeHierarchy:  body.IncludeHierarchy,
	})
	s.respondResult(w, res, err)
}

// analyze handles GET /api/network/{type}/{id}/analysis.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestFromQuery(r)
	if err != nil {
		s.respondResult(w, network.Failure(err), err)
		return
	}
	req.GenerateSummaries = false
	res, err := s.builder.Build(r.Context(), req)
	if err != nil {
		s.respondResult(w, res, err)
		return
	}
	report := graph.Analyze(graph.FromResult(res), s.analyzer)
	s.respondJSON(w, http.StatusOK, analysisResponse{Success: true, Analysis: report})
}

func (s *Server) requestFromQuery(r *http.Request) (network.Request, error) {
	q := r.URL.Query()
	req := network.Request{
		Seed:  network.ObjectRef{Type: chi.URLParam(r, "type"), ID: chi.URLParam(r, "id")},
		Depth: s.opts.DefaultDepth,
	}
	if v := q.Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: depth %q is not an integer", network.ErrConfiguration, v)
		}
		req.Depth = d
	}
	var err error
	if req.GenerateSummaries, err = boolParam(q.Get("summaries")); err != nil {
		return req, err
	}
	if req.IncludeHierarchy, err = boolParam(q.Get("hierarchy")); err != nil {
		return req, err
	}
	return req, nil
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", network.ErrConfiguration, v)
	}
	return b, nil
}

func (s *Server) respondResult(w http.ResponseWriter, res *network.Result, err error) {
	if err == nil {
		s.respondJSON(w, http.StatusOK, res)
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("network build failed", zap.Error(err))
	}
	if res == nil {
		res = network.Failure(err)
	}
	s.respondJSON(w, status, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, network.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, network.ErrSeedUnresolvable):
		return http.StatusNotFound
	case errors.Is(err, network.ErrCanceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

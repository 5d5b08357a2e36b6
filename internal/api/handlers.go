package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"newsvendor-lab/internal/domain"
	"newsvendor-lab/internal/metrics"
	"newsvendor-lab/internal/orchestrator"
	"newsvendor-lab/internal/reporting"
	"newsvendor-lab/internal/search"
	"newsvendor-lab/internal/simulation"
	"newsvendor-lab/internal/storage"
)

const (
	maxBodyBytes = 1 << 20
	studyTimeout = 2 * time.Minute
	readTimeout  = 5 * time.Second
	listLimitMax = 500
)

var errBadRequest = errors.New("bad request")

// SimulateRequest is the body of POST /api/v1/simulate.
// Scenario fields that are omitted keep their defaults.
type SimulateRequest struct {
	Scenario json.RawMessage `json:"scenario,omitempty"`
	Q        int             `json:"Q"`
	N        *int            `json:"n,omitempty"`
	Seed     *int64          `json:"seed,omitempty"`
	Traces   bool            `json:"traces,omitempty"`
}

// GridRequest is the body of POST /api/v1/grid and the first WebSocket frame of /ws/grid.
type GridRequest struct {
	Scenario    json.RawMessage `json:"scenario,omitempty"`
	QMin        int             `json:"Qmin"`
	QMax        int             `json:"Qmax"`
	Step        int             `json:"step"`
	QValues     []int           `json:"Q_values,omitempty"`
	Refine      bool            `json:"refine,omitempty"`
	RefineWidth int             `json:"refine_width,omitempty"`
	RefineStep  int             `json:"refine_step,omitempty"`
	N           *int            `json:"n,omitempty"`
	Seed        *int64          `json:"seed,omitempty"`
	Traces      bool            `json:"traces,omitempty"`
}

// Default refine parameters, used when refine is set without them.
const (
	DefaultRefineWidth = 2000
	DefaultRefineStep  = 100
)

// StudyResponse is returned by the simulate and grid endpoints.
type StudyResponse struct {
	RunID       string               `json:"run_id"`
	ShortID     string               `json:"short_id"`
	Mode        string               `json:"mode"`
	Best        *domain.Summary      `json:"best"`
	Summaries   []*domain.Summary    `json:"summaries"`
	Concessions *metrics.Concessions `json:"concessions,omitempty"`
	Notes       []string             `json:"notes,omitempty"`
	Cached      bool                 `json:"cached"`
	Persisted   bool                 `json:"persisted"`
}

// RunResponse is returned by GET /api/v1/runs/{id}.
type RunResponse struct {
	Run       *domain.Run        `json:"run"`
	Summaries []*domain.Summary  `json:"summaries"`
	Grid      *metrics.GridStats `json:"grid"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "newsvendor-lab",
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	sc, err := s.scenario(req.Scenario)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.runStudy(w, r, orchestrator.Request{
		Scenario: sc,
		Mode:     domain.RunModeSingle,
		Q:        req.Q,
		Sim:      simOptions(req.N, req.Seed),
		Traces:   req.Traces,
	})
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	var req GridRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	oreq, err := s.gridRequest(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.runStudy(w, r, oreq)
}

func (s *Server) runStudy(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), studyTimeout)
	defer cancel()

	res, err := s.orch.Run(ctx, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, StudyResponse{
		RunID:       res.Run.RunID,
		ShortID:     res.ShortID,
		Mode:        res.Run.Mode,
		Best:        res.Best,
		Summaries:   res.Summaries,
		Concessions: res.Concessions,
		Notes:       metrics.Notes(res.Best, res.Concessions),
		Cached:      res.Cached,
		Persisted:   res.Persisted,
	})
}

// handleListRuns returns the most recent runs.
// Query params: limit (default 50, max 500)
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	limit := parseIntParam(r, "limit", 50)
	if limit <= 0 || limit > listLimitMax {
		limit = listLimitMax
	}

	runs, err := s.runStore.List(ctx, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
		"limit": limit,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	runID := chi.URLParam(r, "id")
	run, err := s.runStore.GetByID(ctx, runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	stored, err := s.summaryStore.GetByRunID(ctx, runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	summaries := make([]*domain.Summary, len(stored))
	for i, rs := range stored {
		sum := rs.Summary
		summaries[i] = &sum
	}

	resp := RunResponse{Run: run, Summaries: summaries}
	if len(summaries) > 0 {
		grid, err := metrics.ComputeGridStats(summaries, metrics.DefaultBandTolerance)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		grid.RunID = runID
		resp.Grid = grid
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleRunReport renders a stored run.
// Query params: format (md, csv, xlsx; default md)
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		respondErrorMessage(w, http.StatusNotImplemented, "reports are not enabled")
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "":
		format = "md"
	case "md", "csv", "xlsx":
	default:
		s.respondError(w, r, fmt.Errorf("%w: unknown format %q", errBadRequest, format))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), studyTimeout)
	defer cancel()

	report, err := s.reports.Generate(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	switch format {
	case "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, reporting.RenderMarkdown(report))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, reporting.RenderCSV(report.Summaries))
	case "xlsx":
		var buf bytes.Buffer
		if err := reporting.WriteXLSX(&buf, report); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "run_"+report.ShortID+".xlsx"))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

// scenario overlays the request's scenario fields on the defaults.
func (s *Server) scenario(raw json.RawMessage) (domain.Scenario, error) {
	m := s.runner.Model()
	sc := domain.DefaultScenario(m)
	if len(raw) == 0 {
		return sc, nil
	}
	if err := json.Unmarshal(raw, &sc); err != nil {
		return domain.Scenario{}, fmt.Errorf("%w: scenario: %v", errBadRequest, err)
	}
	if sc.Indoor {
		sc = sc.WithIndoor(true, m)
	}
	return sc, nil
}

func (s *Server) gridRequest(req GridRequest) (orchestrator.Request, error) {
	sc, err := s.scenario(req.Scenario)
	if err != nil {
		return orchestrator.Request{}, err
	}
	width, step := req.RefineWidth, req.RefineStep
	if req.Refine && width == 0 && step == 0 {
		width, step = DefaultRefineWidth, DefaultRefineStep
	}
	return orchestrator.Request{
		Scenario:    sc,
		Mode:        domain.RunModeGrid,
		QMin:        req.QMin,
		QMax:        req.QMax,
		Step:        req.Step,
		QValues:     req.QValues,
		Refine:      req.Refine,
		RefineWidth: width,
		RefineStep:  step,
		Sim:         simOptions(req.N, req.Seed),
		Traces:      req.Traces,
	}, nil
}

func simOptions(n *int, seed *int64) simulation.Options {
	return simulation.Options{N: n, Seed: seed}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidScenario),
		errors.Is(err, domain.ErrInvalidTrialCount),
		errors.Is(err, domain.ErrNegativeQuantity),
		errors.Is(err, search.ErrInvalidRange),
		errors.Is(err, search.ErrGridTooLarge),
		errors.Is(err, orchestrator.ErrInvalidRefine):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reporting.ErrNoSummaries):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("request failed")
		respondErrorMessage(w, code, http.StatusText(code))
		return
	}
	respondErrorMessage(w, code, err.Error())
}

func respondErrorMessage(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func parseIntParam(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

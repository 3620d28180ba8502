package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/seantiz/loadlab/internal/model"
	"github.com/seantiz/loadlab/internal/simulator"
)

const maxBodySize = 1 << 20 // 1 MB

// Failure messages for jobs cut short by their context.
const (
	msgJobTimedOut = "job timed out"
	msgJobCanceled = "request canceled"
)

type boundedResponse struct {
	JobID string `json:"jobId"`
	simulator.BoundedResult
}

type unstableResponse struct {
	JobID string `json:"jobId"`
	simulator.UnstableResult
}

type batchResponse struct {
	JobID string `json:"jobId"`
	simulator.BatchResult
}

// jobErrorResponse is returned when a job stops before completing.
type jobErrorResponse struct {
	JobID          string    `json:"jobId"`
	Error          string    `json:"error"`
	ProcessingTime string    `json:"processingTime"`
	Timestamp      time.Time `json:"timestamp"`
}

// batchRequest is the JSON body for POST /api/batch-process. ProcessingDelay
// accepts a number or a numeric string.
type batchRequest struct {
	Items           []string `json:"items"`
	ProcessingDelay any      `json:"processingDelay"`
}

// jobRun tracks one job from acceptance to its ledger entry.
type jobRun struct {
	id        string
	kind      string
	createdAt time.Time
}

func (s *Server) handleHeavyProcess(w http.ResponseWriter, r *http.Request) {
	p := simulator.NewBoundedParams(queryFloat(r, "duration"), queryFloat(r, "iterations"))

	s.liftWriteDeadline(w)
	run := s.beginJob(model.KindBounded)
	ctx, cancel := s.jobContext(r.Context())
	defer cancel()

	res, err := s.sim.RunBounded(ctx, p)
	if err != nil {
		s.writeJobError(w, r, run, res.Elapsed, nil, err)
		return
	}

	s.finishJob(r.Context(), run, model.StatusCompleted, res.Elapsed, nil, "")
	s.writeJSON(w, http.StatusOK, boundedResponse{JobID: run.id, BoundedResult: res})
}

func (s *Server) handleUnstableProcess(w http.ResponseWriter, r *http.Request) {
	p := simulator.NewUnstableParams(queryFloat(r, "duration"), queryFloat(r, "failRate"))

	s.liftWriteDeadline(w)
	run := s.beginJob(model.KindUnstable)
	ctx, cancel := s.jobContext(r.Context())
	defer cancel()

	res, err := s.sim.RunUnstable(ctx, p)
	if err != nil {
		s.writeJobError(w, r, run, res.Elapsed, nil, err)
		return
	}

	if res.Failed {
		s.finishJob(r.Context(), run, model.StatusFailed, res.Elapsed, nil, res.Error)
		s.writeJSON(w, http.StatusInternalServerError, unstableResponse{JobID: run.id, UnstableResult: res})
		return
	}

	s.finishJob(r.Context(), run, model.StatusCompleted, res.Elapsed, nil, "")
	s.writeJSON(w, http.StatusOK, unstableResponse{JobID: run.id, UnstableResult: res})
}

func (s *Server) handleBatchProcess(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p := simulator.NewBatchParams(req.Items, numberFrom(req.ProcessingDelay))

	s.liftWriteDeadline(w)
	run := s.beginJob(model.KindBatch)
	ctx, cancel := s.jobContext(r.Context())
	defer cancel()

	progress := func(processed, total int) {
		s.logger.Info("batch progress",
			"job_id", run.id,
			"processed", processed,
			"total", total,
		)
	}

	res, err := s.sim.RunBatch(ctx, p, progress)
	s.metrics.RecordBatchItems(res.ItemsProcessed)
	items := res.ItemsProcessed
	if err != nil {
		s.writeJobError(w, r, run, res.Elapsed, &items, err)
		return
	}

	s.finishJob(r.Context(), run, model.StatusCompleted, res.Elapsed, &items, "")
	s.writeJSON(w, http.StatusOK, batchResponse{JobID: run.id, BatchResult: res})
}

// liftWriteDeadline removes the server write timeout for this response. A
// job may outlast it and is bounded by jobContext instead.
func (s *Server) liftWriteDeadline(w http.ResponseWriter) {
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("clear write deadline", "error", err)
	}
}

func (s *Server) beginJob(kind string) jobRun {
	return jobRun{id: model.NewID(), kind: kind, createdAt: time.Now().UTC()}
}

// jobContext derives the context a job runs under, applying the configured
// job timeout when set.
func (s *Server) jobContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.jobTimeout > 0 {
		return context.WithTimeout(parent, s.jobTimeout)
	}
	return context.WithCancel(parent)
}

// finishJob records a finished job in the metrics registry and the ledger.
// Ledger failures are logged and never change the response.
func (s *Server) finishJob(ctx context.Context, run jobRun, status string, elapsed time.Duration, items *int, errMsg string) {
	s.metrics.RecordJob(run.kind, status, elapsed)

	if s.store == nil {
		return
	}

	j := &model.Job{
		ID:         run.id,
		Kind:       run.kind,
		Status:     status,
		DurationMS: elapsed.Milliseconds(),
		Items:      items,
		Error:      errMsg,
		CreatedAt:  run.createdAt,
		FinishedAt: time.Now().UTC(),
	}
	// The ledger write outlives a disconnected client.
	if err := s.store.CreateJob(context.WithoutCancel(ctx), j); err != nil {
		s.logger.Error("record job", "job_id", run.id, "kind", run.kind, "error", err)
	}
}

// writeJobError answers for a job stopped by its context: 504 when the job
// timeout fired, 503 when the client went away.
func (s *Server) writeJobError(w http.ResponseWriter, r *http.Request, run jobRun, elapsed time.Duration, items *int, err error) {
	status, code, msg := model.StatusCanceled, http.StatusServiceUnavailable, msgJobCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		status, code, msg = model.StatusTimedOut, http.StatusGatewayTimeout, msgJobTimedOut
	}

	if status == model.StatusCanceled {
		s.logger.Debug("job canceled", "job_id", run.id, "kind", run.kind, "error", err)
	} else {
		s.logger.Warn("job timed out", "job_id", run.id, "kind", run.kind, "timeout", s.jobTimeout.String())
	}

	s.finishJob(r.Context(), run, status, elapsed, items, msg)
	s.writeJSON(w, code, jobErrorResponse{
		JobID:          run.id,
		Error:          msg,
		ProcessingTime: simulator.FormatElapsed(elapsed),
		Timestamp:      time.Now().UTC(),
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// queryFloat parses a numeric query parameter. It returns nil when the
// parameter is absent or not a number so the caller applies its default.
func queryFloat(r *http.Request, key string) *float64 {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// numberFrom converts a decoded JSON value to a number when it is one, or a
// string holding one.
func numberFrom(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

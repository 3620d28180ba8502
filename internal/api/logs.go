package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/seantiz/loadlab/internal/ingest"
)

// ingestLogRequest is the JSON body for POST /api/logs. Any client timestamp
// is ignored; the server stamps entries on receipt.
type ingestLogRequest struct {
	Level   string          `json:"level"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Source  string          `json:"source"`
}

type ingestLogResponse struct {
	Success   bool         `json:"success"`
	Received  ingest.Entry `json:"received"`
	Timestamp time.Time    `json:"timestamp"`
}

func (s *Server) handleIngestLog(w http.ResponseWriter, r *http.Request) {
	var req ingestLogRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entry := ingest.Entry{
		Level:   req.Level,
		Message: req.Message,
		Data:    req.Data,
		Source:  req.Source,
	}
	if err := entry.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry.ApplyDefaults(time.Now())

	s.sink.Ingest(entry)

	s.writeJSON(w, http.StatusOK, ingestLogResponse{
		Success:   true,
		Received:  entry,
		Timestamp: time.Now().UTC(),
	})
}

// handleStreamLogs streams ingested entries as Server-Sent Events until the
// client disconnects or the broker closes. ?level= restricts the stream to
// one normalized level.
func (s *Server) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	level := strings.ToLower(r.URL.Query().Get("level"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.liftWriteDeadline(w)

	ch, unsub := s.broker.Subscribe()
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				_ = writeSSEEvent(w, "done", "stream closed")
				if canFlush {
					flusher.Flush()
				}
				return
			}
			if level != "" && e.NormalizedLevel() != level {
				continue
			}
			payload, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("encode stream entry", "error", err)
				continue
			}
			if err := writeSSEData(w, string(payload)); err != nil {
				return // Write failed (e.g. client gone).
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// writeSSEData writes one SSE data event. Multi-line strings are split so
// that each segment gets its own "data:" prefix.
func writeSSEData(w http.ResponseWriter, data string) error {
	for seg := range strings.SplitSeq(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", seg); err != nil {
			return err
		}
	}
	// Blank line terminates the event.
	_, err := fmt.Fprint(w, "\n")
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type helloResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type timeResponse struct {
	Time time.Time `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, helloResponse{Message: "Hello World!", Timestamp: time.Now().UTC()})
}

func (s *Server) handleTime(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, timeResponse{Time: time.Now().UTC()})
}

package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"

	"github.com/zucenko/hanzo/server"
	"github.com/zucenko/hanzo/transport"
)

const URI_WS = transport.PlayPath
const URI_RESULTS = "/results"
const URI_SESSIONS = "/sessions"

const defaultResults = 20

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", URI_WS, s.GameServer.HandleHttpCall())
	s.router.HandleFunc("GET", URI_RESULTS, s.handleResults())
	s.router.HandleFunc("GET", URI_SESSIONS, s.handleSessions())
}

func (s *Server) handleResults() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultResults
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 1 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		records, err := s.GameServer.Results(r.Context(), limit)
		if err != nil {
			log.Errorf("handleResults %v", err)
			http.Error(w, "results unavailable", server.HTTP_SERVER_ERR)
			return
		}
		respond(w, records)
	}
}

func (s *Server) handleSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, s.GameServer.Sessions())
	}
}

func respond(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("respond %v", err)
	}
}

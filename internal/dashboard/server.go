package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"BranchRadar/internal/model"
	"BranchRadar/internal/store"
)

// Server is the read-only query surface over the sink backing the mobile
// dashboard. It never writes; the batch jobs own the data.
type Server struct {
	store store.Store
	watch model.Watchlist
}

// NewServer creates the dashboard API server.
func NewServer(st store.Store, watch model.Watchlist) *Server {
	return &Server{store: st, watch: watch}
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/screen", s.handleScreen)
	mux.HandleFunc("GET /api/tickers/{id}/chart", s.handleChart)
	mux.HandleFunc("GET /api/watchlist", s.handleWatchlist)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start blocks serving the API on addr.
func (s *Server) Start(addr string) error {
	log.Printf("[INFO] dashboard API listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[INFO] %s %s (%v)", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

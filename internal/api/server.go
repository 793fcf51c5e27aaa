// Package api serves the derived tables over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bostonweather/pipeline/internal/metrics"
	"github.com/bostonweather/pipeline/internal/models"
	"github.com/bostonweather/pipeline/internal/store"
)

const defaultDays = 30

type Server struct {
	store *store.Store
	addr  string
	log   *zap.Logger
}

func NewServer(st *store.Store, addr string, log *zap.Logger) *Server {
	return &Server{store: st, addr: addr, log: log.Named("api")}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)
	r.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/trends", s.handleTrends).Methods(http.MethodGet)
	r.HandleFunc("/api/report", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/api/runs", s.handleRuns).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info("http server listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.APIRequests.WithLabelValues(route, strconv.Itoa(rec.status/100)+"xx").Inc()
	})
}

// daysParam reads ?days=N, clamped to something sane.
func daysParam(r *http.Request) int {
	days := defaultDays
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	if days > 365 {
		days = 365
	}
	return days
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.GetDailySummaries(daysParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]summaryView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toSummaryView(row))
	}
	s.writeJSON(w, views)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.GetTrends(daysParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]trendView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toTrendView(row))
	}
	s.writeJSON(w, views)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.GetReport(daysParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]reportView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toReportView(row))
	}
	s.writeJSON(w, views)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.GetRecentPipelineRuns(daysParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]runView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toRunView(row))
	}
	s.writeJSON(w, views)
}

type healthStatus struct {
	Status        string     `json:"status"`
	LatestRaw     *time.Time `json:"latest_raw_observation"`
	MigrationsVer int        `json:"schema_version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.writeJSON(w, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	health := healthStatus{Status: "ok"}
	if ver, err := s.store.MigrationVersion(); err == nil {
		health.MigrationsVer = ver
	}
	if latest, err := s.store.GetLatestCurrentWeather(); err == nil && latest != nil {
		health.LatestRaw = latestTimestamp(latest)
	}
	s.writeJSON(w, health)
}

func latestTimestamp(cw *models.CurrentWeather) *time.Time {
	t := cw.Timestamp
	return &t
}

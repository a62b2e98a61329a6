// Package api serves the monitoring results over HTTP when riverwatch
// runs as a long-lived service: latest conditions as JSON, the gauge
// roster, health, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/riverwatch/internal/models"
	"github.com/lox/riverwatch/internal/store"
)

type Server struct {
	store *store.Store
	port  string

	mu         sync.RWMutex
	conditions []models.SiteCondition
	updatedAt  time.Time
}

func NewServer(st *store.Store, port string) *Server {
	return &Server{
		store: st,
		port:  port,
	}
}

// SetConditions publishes the results of a completed monitoring pass.
func (s *Server) SetConditions(conditions []models.SiteCondition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditions = conditions
	s.updatedAt = time.Now().UTC()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/conditions", s.handleConditions)
	mux.HandleFunc("/api/sites", s.handleSites)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// conditionView adds the nullable percentile to the JSON shape.
type conditionView struct {
	models.SiteCondition
	PercentileValue *float64 `json:"percentile"`
}

type conditionsResponse struct {
	UpdatedAt  time.Time       `json:"updated_at"`
	Conditions []conditionView `json:"conditions"`
}

func (s *Server) handleConditions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	conditions := s.conditions
	updatedAt := s.updatedAt
	s.mu.RUnlock()

	if updatedAt.IsZero() {
		http.Error(w, "no monitoring pass has completed yet", http.StatusServiceUnavailable)
		return
	}

	resp := conditionsResponse{
		UpdatedAt:  updatedAt,
		Conditions: make([]conditionView, 0, len(conditions)),
	}
	for _, c := range conditions {
		view := conditionView{SiteCondition: c}
		if c.Percentile.Valid {
			p := c.Percentile.Float64
			view.PercentileValue = &p
		}
		resp.Conditions = append(resp.Conditions, view)
	}

	writeJSON(w, resp)
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.store.GetActiveSites()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type siteView struct {
		SiteNo    string  `json:"site_no"`
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}

	views := make([]siteView, 0, len(sites))
	for _, site := range sites {
		views = append(views, siteView{
			SiteNo:    site.SiteNo,
			Name:      site.Name,
			Latitude:  site.Latitude,
			Longitude: site.Longitude,
		})
	}

	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

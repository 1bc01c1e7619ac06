// Package server exposes station listings and tide predictions over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ngmaloney/tide-terminal/internal/harmonics"
	"github.com/ngmaloney/tide-terminal/internal/logging"
	"github.com/ngmaloney/tide-terminal/internal/predictor"
	"github.com/ngmaloney/tide-terminal/internal/report"
	"github.com/ngmaloney/tide-terminal/internal/stations"
	"github.com/ngmaloney/tide-terminal/internal/tidetime"
)

const apiPrefix = "/api/v1"

// Predictor is the part of predictor.Service used by the handlers.
type Predictor interface {
	Stations() ([]stations.Station, error)
	Predict(code, begin, end string) (*predictor.Prediction, error)
	Curve(code, begin string) ([]report.Point, error)
}

type cachedResponse struct {
	contentType string
	body        []byte
}

// Server serves the HTTP API.
type Server struct {
	httpServer *http.Server
	predictor  Predictor
	cache      *cache.Cache
	metrics    *Metrics
	logger     *slog.Logger
}

// Options configures New.
type Options struct {
	Addr     string
	CacheTTL time.Duration
	// Registry receives the metrics; nil uses a private registry.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// New builds a Server with the routes
//
//	GET /api/v1/stations
//	GET /api/v1/stations/{code}/extrema?begin=&end=&f=
//	GET /api/v1/stations/{code}/curve?begin=
//	GET /healthz
//	GET /metrics
func New(p Predictor, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	s := &Server{
		predictor: p,
		cache:     cache.New(ttl, 2*ttl),
		metrics:   NewMetrics(reg),
		logger:    logger,
	}

	r := mux.NewRouter().StrictSlash(true)
	r.Use(s.metrics.instrument)
	// Full paths on the root router; a PathPrefix subrouter answers a wrong
	// method with 404 instead of 405.
	r.HandleFunc(apiPrefix+"/stations", s.handleStations).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/stations/{code}/extrema", s.handleExtrema).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/stations/{code}/curve", s.handleCurve).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start listens until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	list, err := s.predictor.Stations()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []stations.Station{}
	}
	writeJSON(w, list)
}

func (s *Server) handleExtrema(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	q := r.URL.Query()
	begin := q.Get("begin")

	format, err := report.ParseFormat(q.Get("f"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Requests without a begin time depend on the clock and are not cached.
	key := fmt.Sprintf("%s %s", r.Method, r.URL)
	if begin != "" {
		if v, ok := s.cache.Get(key); ok {
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			resp := v.(cachedResponse)
			w.Header().Set("Content-Type", resp.contentType)
			w.WriteHeader(http.StatusOK)
			w.Write(resp.body)
			return
		}
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	pred, err := s.predictor.Predict(code, begin, q.Get("end"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.Predictions.Inc()

	var buf bytes.Buffer
	if err := report.Write(&buf, format, pred.Data, pred.Location); err != nil {
		s.fail(w, r, err)
		return
	}
	if begin != "" {
		s.cache.Set(key, cachedResponse{contentType: format.ContentType(), body: buf.Bytes()}, cache.DefaultExpiration)
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

type curvePoint struct {
	Time   time.Time `json:"time"`
	Height float64   `json:"height"`
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	pts, err := s.predictor.Curve(mux.Vars(r)["code"], r.URL.Query().Get("begin"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]curvePoint, len(pts))
	for i, p := range pts {
		out[i] = curvePoint{Time: p.Time, Height: p.Height}
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, predictor.ErrNoHarmonics),
		errors.Is(err, stations.ErrStationNotFound):
		return http.StatusNotFound
	case errors.Is(err, tidetime.ErrInvalidTimeFormat),
		errors.Is(err, harmonics.ErrInvalidWindow),
		errors.Is(err, report.ErrUnknownFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "url", r.URL.String(), "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "url", r.URL.String(), "status", status, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/radiusdt/metasync/internal/cache"
	"github.com/radiusdt/metasync/internal/config"
	"github.com/radiusdt/metasync/internal/insights"
	"github.com/radiusdt/metasync/internal/metrics"
	"github.com/radiusdt/metasync/internal/middleware"
	"github.com/radiusdt/metasync/internal/models"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Orchestrator *insights.Orchestrator
	SyncJob      *insights.SyncJob
	Gaps         *insights.GapDetector
	Cache        cache.ResponseCache
	HealthChecks map[string]HealthCheck
	Clock        clock.Clock
}

// Server wraps HTTP handlers around the insights services.
type Server struct {
	orchestrator *insights.Orchestrator
	syncJob      *insights.SyncJob
	gaps         *insights.GapDetector
	cache        cache.ResponseCache
	cacheTTL     time.Duration
	health       map[string]HealthCheck
	clock        clock.Clock
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// NewServer constructs the http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	respCache := deps.Cache
	if respCache == nil {
		respCache = cache.Noop{}
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.WallClock
	}

	s := &Server{
		orchestrator: deps.Orchestrator,
		syncJob:      deps.SyncJob,
		gaps:         deps.Gaps,
		cache:        respCache,
		cacheTTL:     deps.Config.ResponseCache.TTL,
		health:       deps.HealthChecks,
		clock:        clk,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger).Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics).Handler)
	r.Use(middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger, deps.Metrics).Handler)
	r.Use(middleware.NewAuthMiddleware(deps.Config.Auth, deps.Logger).Handler)

	r.Get("/health", s.handleHealth)

	if deps.Config.Metrics.Enabled && deps.Gatherer != nil {
		r.Handle(deps.Config.Metrics.Path, metrics.Handler(deps.Gatherer))
	}

	r.Route("/api/meta", func(r chi.Router) {
		r.Use(middleware.Tenant)
		r.Get("/metrics", s.handleMetrics)
		r.Post("/sync", s.handleSync)
		r.Post("/resync", s.handleResync)
		r.Get("/coverage", s.handleCoverage)
	})

	return r
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.health {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("health check failed", zap.Any("checks", failed))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "degraded", "checks": failed})
		return
	}
	s.jsonResponse(w, map[string]string{"status": "ok"})
}

// ---- Metrics ----

type dateRange struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

type metricsResponse struct {
	Success         bool                     `json:"success"`
	DateRange       dateRange                `json:"dateRange"`
	Metrics         *models.AggregateMetrics `json:"metrics"`
	Source          insights.Source          `json:"source"`
	Cached          bool                     `json:"cached"`
	DaysCount       int                      `json:"daysCount,omitempty"`
	HadMissingDates int                      `json:"hadMissingDates,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	q := r.URL.Query()

	since, until, err := insights.ParseRange(q.Get("since"), q.Get("until"))
	if err != nil {
		s.insightsError(w, r, err)
		return
	}
	forceRefresh, _ := strconv.ParseBool(q.Get("forceRefresh"))

	// Ranges reaching today are always served live.
	cacheable := !forceRefresh && s.cacheTTL > 0 && until.Before(models.DayUTC(s.clock.Now()))
	key := metricsCachePrefix(tenant) + models.FormatDay(since) + ":" + models.FormatDay(until)
	if cacheable {
		body, hit, err := s.cache.Get(r.Context(), key)
		if err != nil {
			s.logger.Warn("response cache read failed", zap.Error(err))
		}
		s.metrics.RecordResponseCache(hit)
		if hit {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			_, _ = w.Write(body)
			return
		}
	}

	res, err := s.orchestrator.GetMetrics(r.Context(), insights.MetricsRequest{
		Tenant:       tenant,
		Since:        since,
		Until:        until,
		ForceRefresh: forceRefresh,
	})
	if err != nil {
		s.insightsError(w, r, err)
		return
	}

	body, err := json.Marshal(metricsResponse{
		Success:         true,
		DateRange:       dateRange{Since: models.FormatDay(res.Since), Until: models.FormatDay(res.Until)},
		Metrics:         res.Metrics,
		Source:          res.Source,
		Cached:          res.Cached,
		DaysCount:       res.DaysCount,
		HadMissingDates: res.HadMissingDates,
	})
	if err != nil {
		s.errorResponse(w, "INTERNAL", "failed to encode response", http.StatusInternalServerError)
		return
	}

	if cacheable {
		if err := s.cache.Set(r.Context(), key, body, s.cacheTTL); err != nil {
			s.logger.Warn("response cache write failed", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// ---- Sync ----

type syncBody struct {
	Since           string `json:"since"`
	Until           string `json:"until"`
	SyncMissingOnly *bool  `json:"syncMissingOnly"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeSyncBody(w, r)
	if !ok {
		return
	}
	since, until, err := insights.ParseRange(body.Since, body.Until)
	if err != nil {
		s.insightsError(w, r, err)
		return
	}

	missingOnly := true
	if body.SyncMissingOnly != nil {
		missingOnly = *body.SyncMissingOnly
	}

	tenant := middleware.TenantFromContext(r.Context())
	report, err := s.syncJob.Run(r.Context(), insights.SyncRequest{
		Tenant:      tenant,
		Since:       since,
		Until:       until,
		MissingOnly: missingOnly,
	})
	s.invalidateMetrics(r.Context(), tenant)
	if err != nil {
		s.insightsError(w, r, err)
		return
	}

	s.jsonResponse(w, struct {
		Success bool `json:"success"`
		*insights.SyncReport
	}{true, report})
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeSyncBody(w, r)
	if !ok {
		return
	}
	since, until, err := insights.ParseRange(body.Since, body.Until)
	if err != nil {
		s.insightsError(w, r, err)
		return
	}

	tenant := middleware.TenantFromContext(r.Context())
	report, err := s.syncJob.Resync(r.Context(), tenant, since, until)
	s.invalidateMetrics(r.Context(), tenant)
	if err != nil {
		s.insightsError(w, r, err)
		return
	}

	s.jsonResponse(w, struct {
		Success bool `json:"success"`
		*insights.ResyncReport
	}{true, report})
}

func (s *Server) decodeSyncBody(w http.ResponseWriter, r *http.Request) (syncBody, bool) {
	var body syncBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		s.errorResponse(w, "INVALID_REQUEST", "invalid json", http.StatusBadRequest)
		return body, false
	}
	return body, true
}

// ---- Coverage ----

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since, until, err := insights.ParseRange(q.Get("since"), q.Get("until"))
	if err != nil {
		s.insightsError(w, r, err)
		return
	}

	report, err := s.gaps.Coverage(r.Context(), middleware.TenantFromContext(r.Context()), since, until)
	if err != nil {
		s.insightsError(w, r, err)
		return
	}

	s.jsonResponse(w, struct {
		Success bool `json:"success"`
		*insights.CoverageReport
	}{true, report})
}

// ---- Helpers ----

func metricsCachePrefix(tenant string) string {
	return "metrics:" + tenant + ":"
}

// invalidateMetrics drops the tenant's cached metrics responses after the
// day cache may have changed.
func (s *Server) invalidateMetrics(ctx context.Context, tenant string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.cache.DeletePrefix(ctx, metricsCachePrefix(tenant)); err != nil {
		s.logger.Warn("response cache invalidation failed", zap.String("tenant", tenant), zap.Error(err))
	}
}

// statusFor maps an insights error code to its HTTP status.
func statusFor(e *insights.Error) int {
	switch e.Code {
	case insights.CodeNotConfigured:
		return http.StatusNotFound
	case insights.CodeNotConnected:
		return http.StatusBadRequest
	case insights.CodeTokenExpired:
		return http.StatusUnauthorized
	case insights.CodeFetchFailed:
		return http.StatusBadGateway
	case insights.CodeStoreError:
		return http.StatusServiceUnavailable
	}
	if e.Kind == insights.KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) insightsError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := insights.AsError(err)
	if !ok {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
		s.errorResponse(w, "INTERNAL", "internal server error", http.StatusInternalServerError)
		return
	}

	status := statusFor(e)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			zap.String("code", e.Code),
			zap.String("tenant", middleware.TenantFromContext(r.Context())),
			zap.Error(err),
		)
	}

	message := e.Message
	if e.Kind == insights.KindUpstream && e.Err != nil {
		message = e.Message + ": " + e.Err.Error()
	}
	s.errorResponse(w, e.Code, message, status)
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, code, message string, status int) {
	middleware.WriteError(w, status, code, message)
}

package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/api/middleware"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/insider"
)

// RouterConfig wires the HTTP surface. Service is required.
type RouterConfig struct {
	Service insider.Service
	// Events serves the websocket stream; /ws is not registered when nil.
	Events http.Handler
	// Health defaults to a service with only the model check.
	Health  *HealthService
	Metrics http.Handler
	Logger  *slog.Logger
	Version string

	RateLimitRPS   int
	RateLimitBurst int
}

// NewRouter builds the mux and the global middleware chain.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("router requires a service")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}
	if cfg.Health == nil {
		cfg.Health = NewHealthService(cfg.Service, 0)
		cfg.Health.RegisterChecker(NewModelHealthChecker(cfg.Service))
	}

	doc, err := LoadOpenAPI(context.Background())
	if err != nil {
		return nil, err
	}
	docs, err := openAPIHandler(doc, cfg.Version)
	if err != nil {
		return nil, err
	}

	h := NewHandler(cfg.Service, cfg.Logger, cfg.Version)
	mux := http.NewServeMux()

	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, middleware.Instrument(pattern, fn))
	}

	route("GET /risky_users", h.handleRiskyUsers)
	route("GET /risky_users/table", h.handleRiskyUsersTable)
	route("GET /user/features", h.handleUserFeatures)
	route("GET /user/raw", h.handleUserRaw)
	route("POST /refresh", h.handleRefresh)
	route("GET /runs", h.handleRuns)
	route("GET /health", h.handleHealth(cfg.Health))
	route("GET /healthz", h.handleLiveness)
	route("GET /openapi.json", docs)
	mux.Handle("GET /metrics", cfg.Metrics)
	if cfg.Events != nil {
		mux.Handle("GET /ws", cfg.Events)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	return middleware.Chain(mux,
		middleware.RequestID(),
		middleware.Logging(cfg.Logger),
		middleware.Recovery(cfg.Logger),
		limiter.Middleware(),
	), nil
}

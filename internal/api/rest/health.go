package rest

import (
	"context"
	"database/sql"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/insider"
)

// HealthChecker checks one dependency.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) HealthCheckResult
}

type HealthStatus string

const (
	HealthStatusPass HealthStatus = "pass"
	HealthStatusWarn HealthStatus = "warn"
	HealthStatusFail HealthStatus = "fail"
)

type HealthCheckResult struct {
	Status       HealthStatus   `json:"status"`
	Message      string         `json:"message,omitempty"`
	Error        string         `json:"error,omitempty"`
	ResponseTime time.Duration  `json:"response_time"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// HealthResponse is the data of GET /health.
type HealthResponse struct {
	Status        HealthStatus                 `json:"status"`
	Model         insider.Status               `json:"model"`
	Checks        map[string]HealthCheckResult `json:"checks,omitempty"`
	UptimeSeconds float64                      `json:"uptime_seconds"`
}

// HealthService aggregates dependency checks. Only a failing check turns
// the response into a 503; warnings are informational.
type HealthService struct {
	svc       insider.Service
	checkers  []HealthChecker
	timeout   time.Duration
	tracer    trace.Tracer
	startTime time.Time
}

func NewHealthService(svc insider.Service, timeout time.Duration) *HealthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthService{
		svc:       svc,
		timeout:   timeout,
		tracer:    otel.Tracer("api.rest.health"),
		startTime: time.Now(),
	}
}

func (h *HealthService) RegisterChecker(c HealthChecker) {
	if c != nil {
		h.checkers = append(h.checkers, c)
	}
}

// Check runs every checker concurrently and folds the results.
func (h *HealthService) Check(ctx context.Context) HealthResponse {
	ctx, span := h.tracer.Start(ctx, "health.check")
	defer span.End()

	checks := make(map[string]HealthCheckResult, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()
			res := c.Check(checkCtx)
			mu.Lock()
			checks[c.Name()] = res
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	status := HealthStatusPass
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch checks[name].Status {
		case HealthStatusFail:
			status = HealthStatusFail
		case HealthStatusWarn:
			if status == HealthStatusPass {
				status = HealthStatusWarn
			}
		}
	}

	span.SetAttributes(
		attribute.String("health.status", string(status)),
		attribute.Int("health.checks_count", len(checks)),
	)

	return HealthResponse{
		Status:        status,
		Model:         h.svc.Status(ctx),
		Checks:        checks,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
}

func (h *Handler) handleHealth(health *HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := health.Check(r.Context())
		status := http.StatusOK
		if res.Status == HealthStatusFail {
			status = http.StatusServiceUnavailable
		}
		h.writeJSON(w, r, status, ResponseEnvelope{
			Success: status == http.StatusOK,
			Data:    res,
			Meta:    h.meta(r),
		})
	}
}

func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, r, map[string]string{"status": string(HealthStatusPass)})
}

// ModelHealthChecker warns until a model has been trained.
type ModelHealthChecker struct {
	svc insider.Service
}

func NewModelHealthChecker(svc insider.Service) *ModelHealthChecker {
	return &ModelHealthChecker{svc: svc}
}

func (m *ModelHealthChecker) Name() string { return "model" }

func (m *ModelHealthChecker) Check(ctx context.Context) HealthCheckResult {
	start := time.Now()
	st := m.svc.Status(ctx)
	res := HealthCheckResult{
		Status: HealthStatusPass,
		Metadata: map[string]any{
			"users":     st.Users,
			"anomalies": st.Anomalies,
		},
	}
	switch {
	case !st.Loaded:
		res.Status = HealthStatusWarn
		res.Message = "no data loaded"
	case !st.Trained:
		res.Status = HealthStatusWarn
		res.Message = "data loaded but model not trained"
	default:
		res.Message = "model trained"
	}
	res.ResponseTime = time.Since(start)
	return res
}

// DatabaseHealthChecker pings the run-history database.
type DatabaseHealthChecker struct {
	db *sql.DB
}

func NewDatabaseHealthChecker(db *sql.DB) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db}
}

func (d *DatabaseHealthChecker) Name() string { return "database" }

func (d *DatabaseHealthChecker) Check(ctx context.Context) HealthCheckResult {
	start := time.Now()
	if err := d.db.PingContext(ctx); err != nil {
		return HealthCheckResult{
			Status:       HealthStatusFail,
			Error:        err.Error(),
			ResponseTime: time.Since(start),
		}
	}
	stats := d.db.Stats()
	return HealthCheckResult{
		Status:       HealthStatusPass,
		ResponseTime: time.Since(start),
		Metadata: map[string]any{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
	}
}

// CheckerFunc adapts a plain error-returning probe.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) error
	// warnOnly downgrades a failure to a warning.
	warnOnly bool
}

func NewCheckerFunc(name string, warnOnly bool, fn func(ctx context.Context) error) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn, warnOnly: warnOnly}
}

func (c *CheckerFunc) Name() string { return c.name }

func (c *CheckerFunc) Check(ctx context.Context) HealthCheckResult {
	start := time.Now()
	if err := c.fn(ctx); err != nil {
		status := HealthStatusFail
		if c.warnOnly {
			status = HealthStatusWarn
		}
		return HealthCheckResult{Status: status, Error: err.Error(), ResponseTime: time.Since(start)}
	}
	return HealthCheckResult{Status: HealthStatusPass, ResponseTime: time.Since(start)}
}

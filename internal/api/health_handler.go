package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/adoptimizer/internal/pkg/httputil"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded", "disabled"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Pinger is anything that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports on the audit store, the result cache and the run
// archive. The database is critical; the others only degrade the service.
type HealthChecker struct {
	db        Pinger
	cache     Pinger
	archive   Pinger
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker.
// Any dependency can be nil; the check will report "disabled" for nil deps.
func NewHealthChecker(db, cache, archive Pinger) *HealthChecker {
	return &HealthChecker{
		db:        db,
		cache:     cache,
		archive:   archive,
		startTime: time.Now(),
	}
}

const healthVersion = "1.0.0"

// HandleHealth returns the health status of all components.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())

	// Always return 200 for the general health endpoint.
	// Use /health/ready for probes that need HTTP 503 on failure.
	httputil.OK(w, HealthStatus{
		Status:  determineOverallStatus(checks),
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness always returns 200 while the process is running.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness returns 200 only when critical dependencies are up.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := determineOverallStatus(checks)

	ready := overall != "unhealthy"
	httpStatus := http.StatusOK
	if !ready {
		httpStatus = http.StatusServiceUnavailable
	}

	httputil.JSON(w, httpStatus, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

// ---------------------------------------------------------------------------
// Individual component checks
// ---------------------------------------------------------------------------

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	checks := make(map[string]ComponentCheck, 3)

	// Run checks concurrently for minimal total latency.
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, 3)

	go func() { ch <- result{"database", ping(ctx, hc.db, 3*time.Second, time.Second)} }()
	go func() { ch <- result{"redis", ping(ctx, hc.cache, 2*time.Second, 500*time.Millisecond)} }()
	go func() { ch <- result{"storage", ping(ctx, hc.archive, 3*time.Second, time.Second)} }()

	for i := 0; i < 3; i++ {
		r := <-ch
		checks[r.name] = r.check
	}

	return checks
}

// ping runs one check with a timeout; responses slower than slow are degraded.
func ping(ctx context.Context, p Pinger, timeout, slow time.Duration) ComponentCheck {
	if p == nil {
		return ComponentCheck{Status: "disabled", Message: "not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(pingCtx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: safeErrorMessage(http.StatusServiceUnavailable, err),
		}
	}

	status := "up"
	msg := "connected"
	if latency > slow {
		status = "degraded"
		msg = fmt.Sprintf("slow response (%s)", latency)
	}
	return ComponentCheck{Status: status, Latency: latency.String(), Message: msg}
}

// determineOverallStatus: database down is unhealthy, anything else down or
// degraded is degraded.
func determineOverallStatus(checks map[string]ComponentCheck) string {
	overall := "healthy"
	for name, c := range checks {
		switch c.Status {
		case "down":
			if name == "database" {
				return "unhealthy"
			}
			overall = "degraded"
		case "degraded":
			overall = "degraded"
		}
	}
	return overall
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

package ginserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus is the status of the service or of one health check.
type HealthStatus string

const (
	// HealthOK means the check passed.
	HealthOK HealthStatus = "ok"
	// HealthDegraded means an optional capability is down or disabled; the
	// service still works.
	HealthDegraded HealthStatus = "degraded"
	// HealthUnhealthy means a required dependency is down.
	HealthUnhealthy HealthStatus = "unhealthy"
)

// CheckResult is the outcome of one named health check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker performs one health check.
type HealthChecker func() CheckResult

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// HealthOptions configures the health endpoints.
type HealthOptions struct {
	ServiceName    string
	ServiceVersion string
	Checks         map[string]HealthChecker
}

// healthState tracks server start time for uptime reporting.
var healthState = struct {
	sync.Once
	startTime time.Time
}{}

// RegisterHealthRoutes adds GET /health and a lightweight HEAD /health for
// load balancers.
func RegisterHealthRoutes(router *gin.Engine, opts HealthOptions) {
	healthState.Do(func() {
		healthState.startTime = time.Now()
	})

	router.GET("/health", healthHandler(opts))
	router.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
}

func healthHandler(opts HealthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:  HealthOK,
			Service: opts.ServiceName,
			Version: opts.ServiceVersion,
			Uptime:  time.Since(healthState.startTime).Round(time.Second).String(),
		}

		if len(opts.Checks) > 0 {
			response.Checks = make(map[string]CheckResult, len(opts.Checks))
			for name, checker := range opts.Checks {
				result := checker()
				response.Checks[name] = result

				switch result.Status {
				case HealthUnhealthy:
					response.Status = HealthUnhealthy
				case HealthDegraded:
					if response.Status == HealthOK {
						response.Status = HealthDegraded
					}
				case HealthOK:
				}
			}
		}

		statusCode := http.StatusOK
		if response.Status == HealthUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}

// DatabaseChecker builds a checker that marks the service unhealthy when the
// database cannot be reached.
func DatabaseChecker(ping func() error) HealthChecker {
	return func() CheckResult {
		start := time.Now()
		pingErr := ping()
		latency := time.Since(start)

		if pingErr != nil {
			return CheckResult{
				Status:  HealthUnhealthy,
				Message: "database connection failed",
				Latency: latency.String(),
			}
		}

		return CheckResult{
			Status:  HealthOK,
			Message: "database connection OK",
			Latency: latency.String(),
		}
	}
}

// ElasticsearchChecker builds a checker that marks the service degraded when
// Elasticsearch cannot be reached. The vector capability is optional, so the
// service keeps serving without it.
func ElasticsearchChecker(ping func() error) HealthChecker {
	return func() CheckResult {
		start := time.Now()
		pingErr := ping()
		latency := time.Since(start)

		if pingErr != nil {
			return CheckResult{
				Status:  HealthDegraded,
				Message: "elasticsearch connection failed",
				Latency: latency.String(),
			}
		}

		return CheckResult{
			Status:  HealthOK,
			Message: "elasticsearch connection OK",
			Latency: latency.String(),
		}
	}
}

// CapabilityChecker builds a checker for an optional capability that is
// degraded when not configured.
func CapabilityChecker(enabled func() bool, disabledMessage string) HealthChecker {
	return func() CheckResult {
		if !enabled() {
			return CheckResult{Status: HealthDegraded, Message: disabledMessage}
		}
		return CheckResult{Status: HealthOK}
	}
}

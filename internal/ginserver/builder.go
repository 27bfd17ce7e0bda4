package ginserver

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novaiq/backend/internal/logger"
)

// Builder assembles a Server with health checks and routes.
type Builder struct {
	cfg          *Config
	log          logger.Logger
	setupRoutes  func(*gin.Engine)
	healthChecks map[string]HealthChecker
}

// NewBuilder creates a server builder for the named service.
func NewBuilder(serviceName string, port int) *Builder {
	return &Builder{
		cfg:          NewConfig(serviceName, port),
		healthChecks: make(map[string]HealthChecker),
	}
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(log logger.Logger) *Builder {
	b.log = log
	return b
}

// WithDebug enables or disables debug mode.
func (b *Builder) WithDebug(debug bool) *Builder {
	b.cfg.Debug = debug
	return b
}

// WithVersion sets the service version reported by /health.
func (b *Builder) WithVersion(version string) *Builder {
	b.cfg.ServiceVersion = version
	return b
}

// WithCORS configures CORS settings.
func (b *Builder) WithCORS(cfg CORSConfig) *Builder {
	b.cfg.CORS = cfg
	return b
}

// WithTimeouts sets the HTTP server timeouts.
func (b *Builder) WithTimeouts(read, write, idle time.Duration) *Builder {
	b.cfg.ReadTimeout = read
	b.cfg.WriteTimeout = write
	b.cfg.IdleTimeout = idle
	return b
}

// WithHealthCheck adds a named health check.
func (b *Builder) WithHealthCheck(name string, checker HealthChecker) *Builder {
	b.healthChecks[name] = checker
	return b
}

// WithDatabaseHealthCheck adds the database health check.
func (b *Builder) WithDatabaseHealthCheck(ping func() error) *Builder {
	b.healthChecks["database"] = DatabaseChecker(ping)
	return b
}

// WithElasticsearchHealthCheck adds the Elasticsearch health check.
func (b *Builder) WithElasticsearchHealthCheck(ping func() error) *Builder {
	b.healthChecks["elasticsearch"] = ElasticsearchChecker(ping)
	return b
}

// WithRoutes sets the route setup function.
func (b *Builder) WithRoutes(setupRoutes func(*gin.Engine)) *Builder {
	b.setupRoutes = setupRoutes
	return b
}

// Build creates the server with health routes registered ahead of the
// service routes.
func (b *Builder) Build() *Server {
	log := b.log
	if log == nil {
		log = logger.Nop()
	}

	wrappedSetup := func(router *gin.Engine) {
		RegisterHealthRoutes(router, HealthOptions{
			ServiceName:    b.cfg.ServiceName,
			ServiceVersion: b.cfg.ServiceVersion,
			Checks:         b.healthChecks,
		})

		if b.setupRoutes != nil {
			b.setupRoutes(router)
		}
	}

	return NewServer(b.cfg, log, wrappedSetup)
}

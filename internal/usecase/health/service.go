// Package health aggregates dependency checks for the /health endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates at least one failing component.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultTimeout bounds each component check.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Component is one named dependency check.
type Component struct {
	Name string
	Ping func(ctx context.Context) error
}

// Database wraps a DBPinger as the "database" component.
func Database(db DBPinger) Component {
	return Component{Name: "database", Ping: db.Ping}
}

// Provider wraps a Checker under name. A nil checker yields a zero Component, which is skipped.
func Provider(name string, c Checker) Component {
	if c == nil {
		return Component{}
	}
	return Component{Name: name, Ping: c.HealthCheck}
}

// Service coordinates health checks.
type Service struct {
	components []Component
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a Service. Components with no check func are ignored.
func New(logger *zap.Logger, components ...Component) *Service {
	kept := make([]Component, 0, len(components))
	for _, c := range components {
		if c.Ping != nil {
			kept = append(kept, c)
		}
	}
	return &Service{components: kept, timeout: DefaultTimeout, logger: logger}
}

// Check runs all component checks concurrently, each under its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.components))
	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	for _, c := range s.components {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := c.Ping(pctx); err != nil {
				s.logger.Warn("Health check failed", zap.String("component", c.Name), zap.Error(err))
				res = CheckError
			}
			mu.Lock()
			checks[c.Name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

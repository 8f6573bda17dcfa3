// Package health aggregates component probes (entity store, persistence
// backlog, memory) into a readiness report.
package health

import (
	"context"
	"time"
)

// DefaultTimeout bounds a full round of checks.
const DefaultTimeout = 5 * time.Second

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		started: time.Now(),
		now:     time.Now,
	}
}

// Register adds or replaces a named check.
func (hc *Checker) Register(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// Names lists the registered checks.
func (hc *Checker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for n := range hc.checks {
		names = append(names, n)
	}
	return names
}

// Check runs every registered check.
func (hc *Checker) Check(ctx context.Context) Response {
	hc.mu.RLock()
	checks := make(map[string]CheckFunc, len(hc.checks))
	for n, fn := range hc.checks {
		checks[n] = fn
	}
	hc.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	now := hc.now()
	response := Response{
		Status:    StatusHealthy,
		Timestamp: now,
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    now.Sub(hc.started).Seconds(),
	}

	for name, checkFunc := range checks {
		start := time.Now()
		check := checkFunc(ctx)
		if check.Name == "" {
			check.Name = name
		}
		check.Duration = time.Since(start)
		check.LastChecked = start
		response.Checks[name] = check

		if check.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && response.Status != StatusUnhealthy {
			response.Status = StatusDegraded
		}
	}

	return response
}

package health

import (
	"context"
	"runtime"
)

// PingCheck reports unhealthy when ping fails.
func PingCheck(name string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: name}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Connected"
		return check
	}
}

// BacklogCheck watches the pending persistence writes. The check degrades
// once the backlog reaches degradedAt.
func BacklogCheck(pending func() int, degradedAt int) CheckFunc {
	return func(context.Context) Check {
		n := pending()
		check := Check{
			Name:    "persistence_backlog",
			Details: map[string]any{"pending": n, "degraded_at": degradedAt},
		}
		if degradedAt > 0 && n >= degradedAt {
			check.Status = StatusDegraded
			check.Message = "Persistence backlog growing"
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Persistence keeping up"
		return check
	}
}

// MemoryCheck degrades when the heap uses more than 90% of memory obtained
// from the OS. A nil usage reads runtime.MemStats.
func MemoryCheck(usage func() (alloc, sys uint64)) CheckFunc {
	if usage == nil {
		usage = func() (uint64, uint64) {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			return ms.Alloc, ms.Sys
		}
	}
	return func(context.Context) Check {
		alloc, sys := usage()
		check := Check{
			Name:    "memory",
			Details: map[string]any{"alloc_bytes": alloc, "sys_bytes": sys},
		}
		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Memory usage normal"
		return check
	}
}

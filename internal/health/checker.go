package health

import (
	"context"
)

// Checker reports whether a dependency is usable
type Checker interface {
	// HealthCheck returns nil when the dependency is available
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function such as a store's Ping to Checker
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f
func (f CheckerFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

package ports

import "context"

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}

type namedCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewCheck adapts a ping function into a HealthChecker.
func NewCheck(name string, ping func(ctx context.Context) error) HealthChecker {
	return namedCheck{name: name, ping: ping}
}

func (c namedCheck) Ping(ctx context.Context) error { return c.ping(ctx) }

func (c namedCheck) Name() string { return c.name }

package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks a remote provider (embedding, chat).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

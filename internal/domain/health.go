package domain

import "context"

// Pinger is anything with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthUsecase interface {
	// Check reports the state of each dependency under its name, plus an
	// overall "status" entry.
	Check(ctx context.Context) (map[string]string, bool)
}

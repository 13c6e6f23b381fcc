package usecase

import (
	"context"
	"sync"
	"time"
	"ura-backend/internal/domain"

	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 2 * time.Second

type healthUsecase struct {
	checks map[string]domain.Pinger
}

// NewHealthUsecase probes each named dependency. Nil pingers are reported as
// "disabled" and do not fail the check.
func NewHealthUsecase(checks map[string]domain.Pinger) domain.HealthUsecase {
	return &healthUsecase{checks: checks}
}

func (u *healthUsecase) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		healthy = true
		result  = make(map[string]string, len(u.checks)+1)
	)
	for name, p := range u.checks {
		if p == nil {
			result[name] = "disabled"
		}
	}
	for name, p := range u.checks {
		if p == nil {
			continue
		}
		name, p := name, p
		g.Go(func() error {
			state := "ok"
			if err := p.Ping(ctx); err != nil {
				state = "down"
			}
			mu.Lock()
			defer mu.Unlock()
			result[name] = state
			if state != "ok" {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()

	if healthy {
		result["status"] = "ok"
	} else {
		result["status"] = "degraded"
	}
	return result, healthy
}

package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Proton-105/users-backend/internal/domain"
)

// StatusSource reports the health of named components.
type StatusSource interface {
	Check(ctx context.Context) domain.AppStatus
}

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes answers liveness from the process itself and readiness from the
// components registered in the status source.
type Probes struct {
	log       *slog.Logger
	readiness StatusSource
}

// NewProbes creates a new Probes instance. A nil readiness source makes the
// service ready as soon as it is live.
func NewProbes(log *slog.Logger, readiness StatusSource) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, readiness: readiness}
}

// Liveness reports success while the process can serve requests.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.DebugContext(ctx, "liveness probe called")
	return nil
}

// Readiness fails while any dependency reports down.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.readiness == nil {
		return nil
	}

	status := p.readiness.Check(ctx)
	if status.Healthy() {
		return nil
	}

	var down []string
	for name, ok := range status {
		if !ok {
			down = append(down, name)
		}
	}
	sort.Strings(down)
	p.log.WarnContext(ctx, "readiness probe failed", slog.Any("down", down))
	return fmt.Errorf("not ready: %s", strings.Join(down, ", "))
}

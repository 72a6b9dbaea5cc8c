package workers

import (
	"github.com/consultamed/auth-core/internal/config"
	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
)

type Workers struct {
	workers []Worker
}

// NewWorkers assembles the background workers of the authentication core.
func NewWorkers(records *kvstore.Records, cfg *config.StructuredConfig, log *logger.Logger) *Workers {
	return &Workers{
		workers: []Worker{
			NewExpirySweeper(records, cfg.Workers.SweepSchedule, cfg.RateLimits, log),
		},
	}
}

func (w *Workers) Run() {
	for _, worker := range w.workers {
		worker.Run()
	}
}

package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/service"
)

const sweepBatchSize = 200

// SweepWorker periodically scans open complaints for breached and
// approaching SLA deadlines.
type SweepWorker struct {
	sla      *service.SlaService
	metrics  *observability.Metrics
	logger   *zap.Logger
	interval time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewSweepWorker constructs the worker.
func NewSweepWorker(sla *service.SlaService, metrics *observability.Metrics, logger *zap.Logger, cfg config.SlaConfig) *SweepWorker {
	return &SweepWorker{
		sla:      sla,
		metrics:  metrics,
		logger:   logger,
		interval: cfg.SweepInterval(),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It runs one sweep immediately and then on
// every tick until Stop is called.
func (w *SweepWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		w.sweep(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.sweep(ctx)
			case <-w.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	w.logger.Info("sla sweep worker started", zap.Duration("interval", w.interval))
}

// Stop signals the loop to exit and waits for it to finish.
func (w *SweepWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.done
	w.logger.Info("sla sweep worker stopped")
}

func (w *SweepWorker) sweep(ctx context.Context) {
	breached, err := w.sla.SweepBreached(ctx, sweepBatchSize)
	if err != nil {
		w.logger.Error("sla breach sweep failed", zap.Error(err))
	} else {
		w.metrics.RecordJob("sla_sweep_breached", breached)
	}

	approaching, err := w.sla.SweepApproaching(ctx, sweepBatchSize)
	if err != nil {
		w.logger.Error("sla approach sweep failed", zap.Error(err))
	} else {
		w.metrics.RecordJob("sla_sweep_approaching", approaching)
	}
}

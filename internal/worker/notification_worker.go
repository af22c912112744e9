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

// NotificationWorker drains the pending notification queue on a fixed cadence.
type NotificationWorker struct {
	notifications *service.NotificationService
	metrics       *observability.Metrics
	logger        *zap.Logger
	interval      time.Duration
	batchSize     int

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(notifications *service.NotificationService, metrics *observability.Metrics, logger *zap.Logger, cfg config.NotificationConfig) *NotificationWorker {
	batch := cfg.DeliverBatchSize
	if batch <= 0 {
		batch = 100
	}
	return &NotificationWorker{
		notifications: notifications,
		metrics:       metrics,
		logger:        logger,
		interval:      cfg.DeliverInterval(),
		batchSize:     batch,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the delivery loop.
func (w *NotificationWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.drain(ctx)
			case <-w.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	w.logger.Info("notification worker started",
		zap.Duration("interval", w.interval),
		zap.Int("batch_size", w.batchSize))
}

// Stop signals the loop to exit and waits for it to finish.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.done
	w.logger.Info("notification worker stopped")
}

func (w *NotificationWorker) drain(ctx context.Context) {
	delivered, err := w.notifications.Deliver(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("notification drain failed", zap.Error(err))
		return
	}
	if delivered > 0 {
		w.metrics.RecordJob("notifications_delivered", delivered)
	}
}

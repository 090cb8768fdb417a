package worker

import (
	"context"
	"sync"
	"time"

	"github.com/bitpal/wallet-service/internal/observability"
	"github.com/bitpal/wallet-service/internal/service"
	"go.uber.org/zap"
)

// KeySweeper periodically flips expired API keys inactive so stale
// credentials stop authenticating even if never used again.
type KeySweeper struct {
	svc      *service.APIKeyService
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKeySweeper constructs a sweeper with a default hourly interval.
func NewKeySweeper(svc *service.APIKeyService) *KeySweeper {
	return &KeySweeper{
		svc:      svc,
		interval: time.Hour,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the sweep interval.
func (w *KeySweeper) WithInterval(interval time.Duration) *KeySweeper {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *KeySweeper) Start(ctx context.Context) {
	zap.L().Info("api key sweeper starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately at startup.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("api key sweeper context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("api key sweeper stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running sweep loop.
func (w *KeySweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the sweeper in a goroutine and returns a stop function.
func (w *KeySweeper) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *KeySweeper) runOnce(ctx context.Context) {
	swept, err := w.svc.SweepExpired(ctx)
	if err != nil {
		observability.IncrementWorkerRun("key_sweeper", "failed")
		zap.L().Error("api key sweep failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("key_sweeper", "success")
	if swept > 0 {
		zap.L().Info("expired api keys deactivated", zap.Int64("count", swept))
	}
}

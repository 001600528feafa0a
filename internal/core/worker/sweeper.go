package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
)

// StartOverdueSweeper runs the scheduled sweep that moves pending bills
// past their due date to overdue. It polls on the given interval until ctx
// is cancelled.
func StartOverdueSweeper(ctx context.Context, store storage.Store, interval time.Duration) {
	go func() {
		slog.Info("👷 Overdue sweeper started", "interval", interval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Overdue sweeper stopped")
				return
			case <-ticker.C:
				SweepOnce(ctx, store)
			}
		}
	}()
}

// SweepOnce marks everything currently past due as overdue.
func SweepOnce(ctx context.Context, store storage.Store) {
	swept, err := store.MarkOverdue(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("Overdue sweep failed", "error", err)
		return
	}
	if swept > 0 {
		slog.Info("Overdue sweep complete", "bills_marked", swept)
	}
}

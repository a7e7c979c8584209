package history

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Recorder writes trades reported by the watcher straight to the store.
type Recorder struct {
	trades domain.TradeHistoryStore
}

// NewRecorder creates a Recorder over trades.
func NewRecorder(trades domain.TradeHistoryStore) *Recorder {
	return &Recorder{trades: trades}
}

// Record upserts rec.
func (r *Recorder) Record(ctx context.Context, rec domain.TradeRecord) error {
	if err := r.trades.UpsertBatch(ctx, []domain.TradeRecord{rec}); err != nil {
		return fmt.Errorf("history: record trade %d: %w", rec.TradeID, err)
	}
	return nil
}

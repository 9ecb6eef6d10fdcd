package syncer

import (
	"context"
	"time"

	"dag-syncer/client"
	"dag-syncer/logger"
	"dag-syncer/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrStopped is returned when a fetch is abandoned because the task's
// context was cancelled. Callers treat it as a graceful stop, not a failure.
var ErrStopped = errors.New("syncer stopped")

const fetchRetryInterval = 1 * time.Second

// BatchFetcher retries a single "get blocks forward of this hash" call
// against a flaky connection. Disconnects and timeouts are retried forever
// with a fixed backoff; any other remote error is fatal for the task.
type BatchFetcher struct {
	source client.BlockSource
}

// NewBatchFetcher creates a fetcher over the given block source
func NewBatchFetcher(source client.BlockSource) *BatchFetcher {
	return &BatchFetcher{source: source}
}

// FetchBatch returns the next ordered batch of blocks strictly forward of
// lowHash, possibly empty. The context is checked at every retry boundary so
// a fetch mid-backoff still observes cancellation promptly.
func (f *BatchFetcher) FetchBatch(ctx context.Context, lowHash string) ([]*models.Block, error) {
	for {
		if ctx.Err() != nil {
			return nil, ErrStopped
		}

		if !f.source.IsConnected() {
			logger.Logger.Warn("Node connection is down, waiting before retry",
				zap.String("low_hash", lowHash))
			if !sleepOrDone(ctx, fetchRetryInterval) {
				return nil, ErrStopped
			}
			continue
		}

		blocks, err := f.source.GetBlocks(ctx, lowHash, true, true)
		if err == nil {
			return blocks, nil
		}
		if ctx.Err() != nil {
			// The call was abandoned by cancellation, not by the remote side.
			return nil, ErrStopped
		}

		if errors.Is(err, client.ErrDisconnected) || errors.Is(err, client.ErrTimeout) {
			logger.Logger.Warn("Transient RPC failure, retrying",
				zap.String("low_hash", lowHash), zap.Error(err))
			if !sleepOrDone(ctx, fetchRetryInterval) {
				return nil, ErrStopped
			}
			continue
		}

		return nil, errors.Wrapf(err, "get blocks after %s", lowHash)
	}
}

// sleepOrDone waits for the interval, returning false if the context was
// cancelled first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

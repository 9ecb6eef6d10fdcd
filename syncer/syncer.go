package syncer

import (
	"context"
	"sync"

	"dag-syncer/client"
	"dag-syncer/dag"
	"dag-syncer/logger"
	"dag-syncer/models"
	"dag-syncer/repository"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Progress is logged once every progressLogInterval batches.
const progressLogInterval = 100

// BlockSink is the downstream consumer of synced batches. Deliver blocking
// on backpressure is fine; a sink that has gone away must return an error,
// which is fatal for the task.
type BlockSink interface {
	Deliver(ctx context.Context, blocks []*models.Block) error
}

// Stats is a point-in-time snapshot of one syncer's progress.
type Stats struct {
	FromCursor           models.Cursor `json:"from_cursor"`
	CurrentCursor        models.Cursor `json:"current_cursor"`
	TargetCursor         models.Cursor `json:"target_cursor"`
	BatchesProcessed     uint64        `json:"batches_processed"`
	TotalBlocksProcessed uint64        `json:"total_blocks_processed"`
	AnticoneCandidates   int           `json:"anticone_candidates"`
	ProgressPercent      uint64        `json:"progress_percent"`
}

// HistoricalSyncer walks the DAG forward from a start cursor toward a target
// cursor, streaming every visited batch downstream. It owns its traversal
// state exclusively; the range ledger and the sink are shared collaborators.
type HistoricalSyncer struct {
	resolver *dag.TargetResolver
	fetcher  *BatchFetcher
	ranges   repository.RangeRepositoryInterface
	sink     BlockSink
	shutdown <-chan struct{}

	mu    sync.Mutex
	stats Stats
}

// New creates a historical syncer for the range [start, target). The
// shutdown channel is single-use: closing it asks the syncer to stop at its
// next suspension point.
func New(
	source client.BlockSource,
	start, target models.Cursor,
	sink BlockSink,
	shutdown <-chan struct{},
	ranges repository.RangeRepositoryInterface,
) *HistoricalSyncer {
	logger.Logger.Info("Initializing historical syncer",
		zap.Uint64("start_daa_score", start.DAAScore),
		zap.Uint64("target_daa_score", target.DAAScore),
		zap.String("start_hash", start.Hash),
		zap.String("target_hash", target.Hash))

	return &HistoricalSyncer{
		resolver: dag.NewTargetResolver(start, target),
		fetcher:  NewBatchFetcher(source),
		ranges:   ranges,
		sink:     sink,
		shutdown: shutdown,
		stats: Stats{
			FromCursor:    start,
			CurrentCursor: start,
			TargetCursor:  target,
		},
	}
}

type fetchResult struct {
	blocks []*models.Block
	err    error
}

// Sync runs the task to completion, graceful stop, or fatal error. On
// completion the task's original ledger range is removed; on stop the
// recorded gap is narrowed to the not-yet-visited remainder.
func (s *HistoricalSyncer) Sync(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Logger.Info("Starting historical synchronization",
		zap.String("target_hash", s.resolver.TargetCursor().Hash))

	for {
		// Shutdown wins over a fetch that is also ready.
		select {
		case <-s.shutdown:
			logger.Logger.Info("Shutdown signal received, stopping sync")
			return s.stop()
		default:
		}

		resultCh := make(chan fetchResult, 1)
		go func(lowHash string) {
			blocks, err := s.fetcher.FetchBatch(ctx, lowHash)
			resultCh <- fetchResult{blocks: blocks, err: err}
		}(s.resolver.CurrentCursor().Hash)

		var result fetchResult
		select {
		case <-s.shutdown:
			logger.Logger.Info("Shutdown signal received, stopping sync")
			cancel()
			return s.stop()
		case result = <-resultCh:
		}

		if result.err != nil {
			if errors.Is(result.err, ErrStopped) {
				return s.stop()
			}
			return errors.Wrap(result.err, "fetch next batch")
		}

		status := s.resolver.ProcessBatch(result.blocks)

		// The whole batch goes downstream, terminal outcome or not.
		if err := s.sink.Deliver(ctx, result.blocks); err != nil {
			logger.Logger.Error("Failed to deliver blocks downstream", zap.Error(err))
			return errors.Wrap(err, "deliver blocks downstream")
		}

		s.recordBatch(len(result.blocks))

		if s.snapshot().BatchesProcessed%progressLogInterval == 0 {
			s.logProgress()
		}

		if status.IsTerminal() {
			return s.complete(status)
		}
	}
}

// Stats returns a concurrency-safe snapshot of the syncer's progress
func (s *HistoricalSyncer) Stats() Stats {
	return s.snapshot()
}

func (s *HistoricalSyncer) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *HistoricalSyncer) recordBatch(blockCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.BatchesProcessed++
	s.stats.TotalBlocksProcessed += uint64(blockCount)
	s.stats.CurrentCursor = s.resolver.CurrentCursor()
	s.stats.AnticoneCandidates = s.resolver.CandidateCount()
	s.stats.ProgressPercent = s.resolver.ProgressPercent()
}

func (s *HistoricalSyncer) logProgress() {
	stats := s.snapshot()
	logger.Logger.Info("Sync progress",
		zap.Uint64("batches_processed", stats.BatchesProcessed),
		zap.Uint64("total_blocks_processed", stats.TotalBlocksProcessed),
		zap.Uint64("progress_percent", stats.ProgressPercent),
		zap.Uint64("current_daa_score", stats.CurrentCursor.DAAScore),
		zap.Uint64("target_daa_score", stats.TargetCursor.DAAScore))
}

// stop narrows the persisted gap so a restart resumes from the current
// cursor instead of re-walking visited history. The add-then-remove pair is
// not atomic; a crash in between leaves both records and only costs a
// redundant re-walk.
func (s *HistoricalSyncer) stop() error {
	original := models.SyncRange{From: s.resolver.FromCursor(), To: s.resolver.TargetCursor()}
	remaining := models.SyncRange{From: s.resolver.CurrentCursor(), To: s.resolver.TargetCursor()}

	if remaining.Equal(original) {
		logger.Logger.Info("Stopped before making progress, ledger unchanged",
			zap.String("from_hash", original.From.Hash),
			zap.String("to_hash", original.To.Hash))
		return nil
	}

	if err := s.ranges.AddRange(&remaining); err != nil {
		return errors.Wrap(err, "persist narrowed sync range")
	}
	if err := s.ranges.RemoveRange(&original); err != nil {
		return errors.Wrap(err, "remove original sync range")
	}

	logger.Logger.Info("Narrowed persisted sync range",
		zap.String("new_from_hash", remaining.From.Hash),
		zap.String("to_hash", remaining.To.Hash))
	return nil
}

// complete removes the task's original ledger range and records final stats.
func (s *HistoricalSyncer) complete(status dag.SyncTargetStatus) error {
	original := models.SyncRange{From: s.resolver.FromCursor(), To: s.resolver.TargetCursor()}
	if err := s.ranges.RemoveRange(&original); err != nil {
		return errors.Wrap(err, "remove completed sync range")
	}

	stats := s.snapshot()
	logger.Logger.Info("Synchronization completed",
		zap.String("status", status.String()),
		zap.Uint64("total_blocks_processed", stats.TotalBlocksProcessed),
		zap.Uint64("batches_processed", stats.BatchesProcessed),
		zap.Int("anticone_candidates", stats.AnticoneCandidates),
		zap.String("final_hash", stats.CurrentCursor.Hash))
	return nil
}

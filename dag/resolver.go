package dag

import (
	"math/big"

	"dag-syncer/logger"
	"dag-syncer/models"

	"go.uber.org/zap"
)

// SyncTargetStatus is the outcome of resolving one batch against the target.
type SyncTargetStatus int

const (
	// SyncTargetNotReached means the traversal has not passed the target yet
	SyncTargetNotReached SyncTargetStatus = iota
	// SyncTargetFoundDirectly means the target block itself appeared in a batch
	SyncTargetFoundDirectly
	// SyncTargetFoundViaAnticone means a selected-chain block's merge set
	// absorbed the target or a work-dominant relative of it
	SyncTargetFoundViaAnticone
)

// IsTerminal reports whether this status ends the sync task
func (s SyncTargetStatus) IsTerminal() bool {
	return s == SyncTargetFoundDirectly || s == SyncTargetFoundViaAnticone
}

func (s SyncTargetStatus) String() string {
	switch s {
	case SyncTargetNotReached:
		return "not reached"
	case SyncTargetFoundDirectly:
		return "found directly"
	case SyncTargetFoundViaAnticone:
		return "found via anticone"
	default:
		return "unknown"
	}
}

// TargetResolver decides, batch by batch, whether a forward DAG traversal
// has reached its target block.
//
// The subtle case is a target that never makes it onto the selected chain:
// its hash then only ever shows up inside the merge set of some later chain
// block. To catch the case where even that never happens, every non-chain
// block whose blue work already meets or exceeds the target's is recorded as
// an anticone candidate; once any chain block's merge set absorbs one of
// those candidates, the target is provably in the consensus past as well.
type TargetResolver struct {
	fromCursor    models.Cursor
	currentCursor models.Cursor
	targetCursor  models.Cursor

	// append-only for the lifetime of the task, never pruned
	anticoneCandidates []models.Cursor
}

// NewTargetResolver creates a resolver for one sync task. The start and
// target cursors are immutable for the task's lifetime.
func NewTargetResolver(start, target models.Cursor) *TargetResolver {
	return &TargetResolver{
		fromCursor:    start,
		currentCursor: start,
		targetCursor:  target,
	}
}

// FromCursor returns the original start position of the task
func (r *TargetResolver) FromCursor() models.Cursor {
	return r.fromCursor
}

// CurrentCursor returns the last visited position
func (r *TargetResolver) CurrentCursor() models.Cursor {
	return r.currentCursor
}

// TargetCursor returns the task's target position
func (r *TargetResolver) TargetCursor() models.Cursor {
	return r.targetCursor
}

// CandidateCount returns the number of recorded anticone candidates
func (r *TargetResolver) CandidateCount() int {
	return len(r.anticoneCandidates)
}

// ProcessBatch folds over one batch of blocks, ordered by non-decreasing
// blue work, and returns the resulting sync target status. The current
// cursor advances to the last visited block whether or not the outcome is
// terminal. An empty batch is a transient stall, not an error.
func (r *TargetResolver) ProcessBatch(blocks []*models.Block) SyncTargetStatus {
	if len(blocks) == 0 {
		logger.Logger.Warn("Received empty block batch",
			zap.String("current_hash", r.currentCursor.Hash))
		return SyncTargetNotReached
	}

	status := SyncTargetNotReached
	lastCursor := r.currentCursor

	for _, block := range blocks {
		lastCursor = block.Cursor()

		if block.Header.Hash == r.targetCursor.Hash {
			logger.Logger.Debug("Target block found directly",
				zap.String("hash", block.Header.Hash))
			status = SyncTargetFoundDirectly
			break
		}

		verbose := block.VerboseData
		if verbose == nil {
			logger.Logger.Warn("Block missing verbose data",
				zap.String("hash", block.Header.Hash),
				zap.Uint64("daa_score", block.Header.DAAScore))
			continue
		}

		if verbose.IsChainBlock {
			if r.mergeSetAbsorbsTarget(verbose) {
				logger.Logger.Debug("Target found via anticone",
					zap.String("chain_block_hash", block.Header.Hash),
					zap.Uint64("daa_score", block.Header.DAAScore))
				status = SyncTargetFoundViaAnticone
				break
			}
		} else if block.Header.BlueWork.Cmp(r.targetCursor.BlueWork) >= 0 {
			r.anticoneCandidates = append(r.anticoneCandidates, block.Cursor())
		}
	}

	r.currentCursor = lastCursor
	return status
}

// mergeSetAbsorbsTarget checks whether a chain block's merge set (blues and
// reds) contains the target hash or any previously recorded candidate.
func (r *TargetResolver) mergeSetAbsorbsTarget(verbose *models.BlockVerboseData) bool {
	mergeSet := make(map[string]struct{}, len(verbose.MergeSetBluesHashes)+len(verbose.MergeSetRedsHashes))
	for _, hash := range verbose.MergeSetBluesHashes {
		mergeSet[hash] = struct{}{}
	}
	for _, hash := range verbose.MergeSetRedsHashes {
		mergeSet[hash] = struct{}{}
	}

	if _, ok := mergeSet[r.targetCursor.Hash]; ok {
		return true
	}
	for _, candidate := range r.anticoneCandidates {
		if _, ok := mergeSet[candidate.Hash]; ok {
			return true
		}
	}
	return false
}

// ProgressPercent reports how far the traversal has come, in blue work
// terms. big.Int intermediates keep the 192-bit multiplication safe. A zero
// span (start and target carry identical work) reports 100.
func (r *TargetResolver) ProgressPercent() uint64 {
	span := new(big.Int).Sub(&r.targetCursor.BlueWork.Int, &r.fromCursor.BlueWork.Int)
	if span.Sign() <= 0 {
		return 100
	}
	done := new(big.Int).Sub(&r.currentCursor.BlueWork.Int, &r.fromCursor.BlueWork.Int)
	if done.Sign() < 0 {
		return 0
	}
	done.Mul(done, big.NewInt(100))
	done.Div(done, span)
	return done.Uint64()
}

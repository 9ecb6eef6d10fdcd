package processor

import (
	"context"
	"sync/atomic"

	"dag-syncer/fifoset"
	"dag-syncer/logger"
	"dag-syncer/models"
	"dag-syncer/repository"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrClosed is returned by Deliver once the processor has exited.
var ErrClosed = errors.New("block processor closed")

// Historical and live ranges can overlap at their seam; recently seen
// hashes are tracked to avoid rewriting the same blocks.
const seenSetCapacity = 4096

// BlockProcessor drains batches produced by syncers and persists them. It
// is the load-bearing downstream consumer: if it dies, delivery fails and
// the producing tasks abort rather than silently dropping data.
type BlockProcessor struct {
	repo repository.BlockRepositoryInterface
	seen *fifoset.FIFOSet

	in   chan []*models.Block
	done chan struct{}

	blocksStored atomic.Uint64
}

// NewBlockProcessor creates a processor with the given channel buffer
func NewBlockProcessor(repo repository.BlockRepositoryInterface, bufferSize int) *BlockProcessor {
	return &BlockProcessor{
		repo: repo,
		seen: fifoset.New(seenSetCapacity),
		in:   make(chan []*models.Block, bufferSize),
		done: make(chan struct{}),
	}
}

// Deliver hands one batch to the processor. It blocks on backpressure and
// fails if the processor has exited or the context is cancelled.
func (p *BlockProcessor) Deliver(ctx context.Context, blocks []*models.Block) error {
	select {
	case p.in <- blocks:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "deliver blocks")
	}
}

// Run consumes batches until the context is cancelled. A storage failure
// stops the processor, which in turn fails every producer's next Deliver.
func (p *BlockProcessor) Run(ctx context.Context) error {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("Block processor stopping",
				zap.Uint64("blocks_stored", p.blocksStored.Load()))
			return nil
		case blocks := <-p.in:
			if err := p.storeBatch(blocks); err != nil {
				logger.Logger.Error("Failed to store block batch", zap.Error(err))
				return err
			}
		}
	}
}

// BlocksStored returns the number of blocks persisted so far
func (p *BlockProcessor) BlocksStored() uint64 {
	return p.blocksStored.Load()
}

func (p *BlockProcessor) storeBatch(blocks []*models.Block) error {
	for _, block := range blocks {
		if !p.seen.Add(block.Header.Hash) {
			continue
		}
		if err := p.repo.PutBlock(block); err != nil {
			return errors.Wrapf(err, "store block %s", block.Header.Hash)
		}
		p.blocksStored.Add(1)
	}
	return nil
}

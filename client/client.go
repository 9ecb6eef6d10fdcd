package client

import (
	"context"

	"dag-syncer/models"

	"github.com/pkg/errors"
)

// Sentinel errors used by callers to classify remote failures. Anything not
// wrapping one of these is treated as fatal by the retry layer.
var (
	// ErrDisconnected means the connection to the node is down
	ErrDisconnected = errors.New("node connection is down")
	// ErrTimeout means a call did not complete within the client timeout
	ErrTimeout = errors.New("rpc call timed out")
)

// BlockSource is the node-side interface the syncer consumes.
type BlockSource interface {
	// GetBlocks returns the ordered batch of blocks strictly forward of
	// lowHash, non-decreasing in blue work. The batch may be empty.
	GetBlocks(ctx context.Context, lowHash string, includeBlocks, includeVerboseData bool) ([]*models.Block, error)

	// IsConnected reports connectivity without blocking.
	IsConnected() bool
}

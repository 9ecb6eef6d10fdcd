package repository

import (
	"encoding/json"

	"dag-syncer/db"
	"dag-syncer/models"

	"github.com/pkg/errors"
)

const blockKeyPrefix = "block:"

// BlockRepositoryInterface persists blocks streamed out of the syncer
type BlockRepositoryInterface interface {
	PutBlock(b *models.Block) error
	GetBlock(hash string) (*models.Block, error)
	HasBlock(hash string) (bool, error)
}

// BlockRepository implements block storage on top of LevelDB
type BlockRepository struct {
	db *db.LevelDB
}

// NewBlockRepository creates and returns a new BlockRepository instance
func NewBlockRepository(db *db.LevelDB) *BlockRepository {
	return &BlockRepository{db: db}
}

func blockKey(hash string) []byte {
	return []byte(blockKeyPrefix + hash)
}

// PutBlock stores a block keyed by its hash
func (r *BlockRepository) PutBlock(b *models.Block) error {
	data, err := json.Marshal(b)
	if err != nil {
		return errors.Wrapf(err, "marshal block %s", b.Header.Hash)
	}
	return r.db.Put(blockKey(b.Header.Hash), data)
}

// GetBlock retrieves a block by its hash
func (r *BlockRepository) GetBlock(hash string) (*models.Block, error) {
	data, err := r.db.Get(blockKey(hash))
	if err != nil {
		return nil, err
	}
	var b models.Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrapf(err, "unmarshal block %s", hash)
	}
	return &b, nil
}

// HasBlock reports whether a block is already stored
func (r *BlockRepository) HasBlock(hash string) (bool, error) {
	return r.db.Has(blockKey(hash))
}

package repository

import (
	"encoding/json"

	"dag-syncer/db"
	"dag-syncer/models"

	"github.com/pkg/errors"
)

// ErrRangeNotFound is returned when removing a range that is not persisted.
var ErrRangeNotFound = errors.New("sync range not found")

const rangeKeyPrefix = "range:"

// RangeRepositoryInterface is the ledger of un-synced history gaps. Each
// operation is individually atomic; callers must not assume atomicity across
// an add-then-remove pair.
type RangeRepositoryInterface interface {
	AddRange(r *models.SyncRange) error
	RemoveRange(r *models.SyncRange) error
	GetAllRanges() ([]*models.SyncRange, error)
}

// RangeRepository implements the range ledger on top of LevelDB
type RangeRepository struct {
	db *db.LevelDB
}

// NewRangeRepository creates and returns a new RangeRepository instance
func NewRangeRepository(db *db.LevelDB) *RangeRepository {
	return &RangeRepository{db: db}
}

// Records are keyed by the exact (from, to) hash pair so removal only ever
// touches the record for the same span.
func rangeKey(r *models.SyncRange) []byte {
	return []byte(rangeKeyPrefix + r.From.Hash + ":" + r.To.Hash)
}

// AddRange persists a gap record
func (r *RangeRepository) AddRange(sr *models.SyncRange) error {
	data, err := json.Marshal(sr)
	if err != nil {
		return errors.Wrap(err, "marshal sync range")
	}
	return r.db.Put(rangeKey(sr), data)
}

// RemoveRange deletes the gap record keyed by the exact (from, to) pair.
// The stored record is checked structurally before deletion so a key that
// happens to collide on hashes but differs elsewhere is never removed.
func (r *RangeRepository) RemoveRange(sr *models.SyncRange) error {
	key := rangeKey(sr)
	data, err := r.db.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return errors.Wrapf(ErrRangeNotFound, "from %s to %s", sr.From.Hash, sr.To.Hash)
		}
		return err
	}
	var stored models.SyncRange
	if err := json.Unmarshal(data, &stored); err != nil {
		return errors.Wrap(err, "unmarshal stored sync range")
	}
	if !stored.Equal(*sr) {
		return errors.Wrapf(ErrRangeNotFound, "stored range under key %s differs structurally", key)
	}
	return r.db.Delete(key)
}

// GetAllRanges returns every persisted gap record
func (r *RangeRepository) GetAllRanges() ([]*models.SyncRange, error) {
	iter := r.db.NewPrefixIterator([]byte(rangeKeyPrefix))
	defer iter.Release()

	var ranges []*models.SyncRange
	for iter.Next() {
		var sr models.SyncRange
		if err := json.Unmarshal(iter.Value(), &sr); err != nil {
			return nil, errors.Wrap(err, "unmarshal sync range")
		}
		ranges = append(ranges, &sr)
	}
	return ranges, iter.Error()
}

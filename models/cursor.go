package models

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"
)

// BlueWork is the cumulative proof-of-work accumulator of a block. It is a
// 192-bit unsigned integer on the wire, hex-encoded in RPC JSON, so it is
// backed by big.Int rather than a fixed-width type.
type BlueWork struct {
	big.Int
}

// NewBlueWork builds a BlueWork from a uint64. Mostly useful in tests and
// for genesis-adjacent cursors; real values exceed 64 bits quickly.
func NewBlueWork(v uint64) *BlueWork {
	bw := new(BlueWork)
	bw.SetUint64(v)
	return bw
}

// BlueWorkFromHex parses the RPC hex representation.
func BlueWorkFromHex(s string) (*BlueWork, error) {
	bw := new(BlueWork)
	if _, ok := bw.SetString(s, 16); !ok {
		return nil, errors.Errorf("invalid blue work value %q", s)
	}
	return bw, nil
}

// Cmp compares two blue work values, returning -1, 0 or +1.
func (bw *BlueWork) Cmp(other *BlueWork) int {
	return bw.Int.Cmp(&other.Int)
}

// MarshalJSON encodes blue work as a hex string, matching the node RPC.
func (bw *BlueWork) MarshalJSON() ([]byte, error) {
	return json.Marshal(bw.Text(16))
}

// UnmarshalJSON decodes the hex string representation.
func (bw *BlueWork) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if _, ok := bw.SetString(s, 16); !ok {
		return errors.Errorf("invalid blue work value %q", s)
	}
	return nil
}

// Cursor is an immutable position in the DAG traversal. BlueWork is the
// authoritative ordering key; DAAScore is kept for diagnostics only.
type Cursor struct {
	DAAScore uint64    `json:"daa_score"`
	BlueWork *BlueWork `json:"blue_work"`
	Hash     string    `json:"hash"`
}

// NewCursor creates a cursor from its three components.
func NewCursor(daaScore uint64, blueWork *BlueWork, hash string) Cursor {
	return Cursor{DAAScore: daaScore, BlueWork: blueWork, Hash: hash}
}

// Equal reports structural equality over all cursor fields.
func (c Cursor) Equal(other Cursor) bool {
	return c.DAAScore == other.DAAScore &&
		c.Hash == other.Hash &&
		c.BlueWork.Cmp(other.BlueWork) == 0
}

// SyncRange is a persisted interval [From, To) of history known to be
// un-synced. One record exists per in-flight historical sync task; it is
// narrowed on cancellation and deleted on completion.
type SyncRange struct {
	From Cursor `json:"from"`
	To   Cursor `json:"to"`
}

// Equal reports structural equality over both endpoint cursors.
func (r SyncRange) Equal(other SyncRange) bool {
	return r.From.Equal(other.From) && r.To.Equal(other.To)
}

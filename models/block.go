package models

// BlockHeader carries the header fields the syncer needs. Hashes are the
// node's hex string encoding.
type BlockHeader struct {
	Hash      string    `json:"hash"`
	DAAScore  uint64    `json:"daa_score"`
	BlueWork  *BlueWork `json:"blue_work"`
	Timestamp int64     `json:"timestamp"` // unix timestamp in ms
}

// BlockVerboseData is the consensus metadata attached to a block when the
// node is asked for verbose responses. It may be missing on blocks the node
// has not fully resolved yet.
type BlockVerboseData struct {
	IsChainBlock        bool     `json:"is_chain_block"`
	SelectedParentHash  string   `json:"selected_parent_hash"`
	MergeSetBluesHashes []string `json:"merge_set_blues_hashes"`
	MergeSetRedsHashes  []string `json:"merge_set_reds_hashes"`
}

// Block is one block as returned by the node RPC.
type Block struct {
	Header      BlockHeader       `json:"header"`
	VerboseData *BlockVerboseData `json:"verbose_data,omitempty"`
}

// Cursor derives the traversal cursor for this block.
func (b *Block) Cursor() Cursor {
	return NewCursor(b.Header.DAAScore, b.Header.BlueWork, b.Header.Hash)
}

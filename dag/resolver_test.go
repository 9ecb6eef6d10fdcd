package dag_test

import (
	"fmt"
	"os"
	"testing"

	"go.uber.org/zap"

	"dag-syncer/dag"
	"dag-syncer/logger"
	"dag-syncer/models"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	os.Exit(m.Run())
}

func testCursor(blueWork uint64, hash string) models.Cursor {
	return models.NewCursor(blueWork, models.NewBlueWork(blueWork), hash)
}

func testBlock(blueWork uint64, hash string, verbose *models.BlockVerboseData) *models.Block {
	return &models.Block{
		Header: models.BlockHeader{
			Hash:     hash,
			DAAScore: blueWork,
			BlueWork: models.NewBlueWork(blueWork),
		},
		VerboseData: verbose,
	}
}

func nonChain() *models.BlockVerboseData {
	return &models.BlockVerboseData{IsChainBlock: false}
}

func chainBlock(mergeSetBlues, mergeSetReds []string) *models.BlockVerboseData {
	return &models.BlockVerboseData{
		IsChainBlock:        true,
		MergeSetBluesHashes: mergeSetBlues,
		MergeSetRedsHashes:  mergeSetReds,
	}
}

func TestProcessBatch_EmptyBatch(t *testing.T) {
	r := dag.NewTargetResolver(testCursor(10, "start"), testCursor(50, "target"))

	status := r.ProcessBatch(nil)
	if status != dag.SyncTargetNotReached {
		t.Fatalf("expected not reached, got %v", status)
	}
	if !r.CurrentCursor().Equal(testCursor(10, "start")) {
		t.Fatalf("expected cursor unchanged, got %+v", r.CurrentCursor())
	}
}

func TestProcessBatch_TargetFoundDirectly(t *testing.T) {
	r := dag.NewTargetResolver(testCursor(10, "start"), testCursor(50, "target"))

	batch := []*models.Block{
		testBlock(30, "a", nonChain()),
		testBlock(50, "target", nonChain()),
		testBlock(55, "b", nonChain()),
	}
	status := r.ProcessBatch(batch)
	if status != dag.SyncTargetFoundDirectly {
		t.Fatalf("expected found directly, got %v", status)
	}
	// first match wins, fold stops at the target block
	if r.CurrentCursor().Hash != "target" {
		t.Fatalf("expected cursor at target, got %s", r.CurrentCursor().Hash)
	}
}

func TestProcessBatch_TargetInMergeSet(t *testing.T) {
	r := dag.NewTargetResolver(testCursor(10, "start"), testCursor(50, "target"))

	batch := []*models.Block{
		testBlock(55, "chain1", chainBlock([]string{"other"}, []string{"target"})),
	}
	if status := r.ProcessBatch(batch); status != dag.SyncTargetFoundViaAnticone {
		t.Fatalf("expected found via anticone, got %v", status)
	}
}

func TestProcessBatch_AnticoneCandidateAcrossBatches(t *testing.T) {
	r := dag.NewTargetResolver(testCursor(10, "start"), testCursor(50, "target"))

	// Non-chain block with blue work past the target becomes a candidate.
	first := []*models.Block{testBlock(55, "c1", nonChain())}
	if status := r.ProcessBatch(first); status != dag.SyncTargetNotReached {
		t.Fatalf("expected not reached, got %v", status)
	}
	if r.CandidateCount() != 1 {
		t.Fatalf("expected 1 candidate, got %d", r.CandidateCount())
	}

	// A later chain block absorbing the candidate resolves the target.
	second := []*models.Block{testBlock(60, "c2", chainBlock([]string{"c1"}, nil))}
	if status := r.ProcessBatch(second); status != dag.SyncTargetFoundViaAnticone {
		t.Fatalf("expected found via anticone, got %v", status)
	}
	if r.CurrentCursor().Hash != "c2" {
		t.Fatalf("expected cursor at c2, got %s", r.CurrentCursor().Hash)
	}
}

func TestProcessBatch_NonChainBelowTargetIsNotCandidate(t *testing.T) {
	r := dag.NewTargetResolver(testCursor(10, "start"), testCursor(50, "target"))

	batch := []*models.Block{testBlock(40, "low", nonChain())}
	if status := r.ProcessBatch(batch); status != dag.SyncTargetNotReached {
		t.Fatalf("expected not reached, got %v", status)
	}
	if r.CandidateCount() != 0 {
		t.Fatalf("expected no candidates, got %d", r.CandidateCount())
	}
}

func TestProcessBatch_MissingVerboseDataStillAdvances(t *testing.T) {
	r := dag.NewTargetResolver(testCursor(10, "start"), testCursor(50, "target"))

	batch := []*models.Block{testBlock(20, "anomalous", nil)}
	if status := r.ProcessBatch(batch); status != dag.SyncTargetNotReached {
		t.Fatalf("expected not reached, got %v", status)
	}
	if r.CurrentCursor().Hash != "anomalous" {
		t.Fatalf("expected cursor advanced past anomalous block, got %s", r.CurrentCursor().Hash)
	}
	if r.CandidateCount() != 0 {
		t.Fatalf("expected no candidates, got %d", r.CandidateCount())
	}
}

func TestProcessBatch_CursorMonotonic(t *testing.T) {
	r := dag.NewTargetResolver(testCursor(10, "start"), testCursor(1000, "target"))

	prev := r.CurrentCursor()
	for i := 0; i < 5; i++ {
		base := uint64(20 + i*10)
		batch := []*models.Block{
			testBlock(base, fmt.Sprintf("b%d-1", i), nonChain()),
			testBlock(base+5, fmt.Sprintf("b%d-2", i), nonChain()),
		}
		if status := r.ProcessBatch(batch); status != dag.SyncTargetNotReached {
			t.Fatalf("batch %d: expected not reached, got %v", i, status)
		}
		cur := r.CurrentCursor()
		if cur.BlueWork.Cmp(prev.BlueWork) < 0 {
			t.Fatalf("batch %d: cursor blue work decreased from %v to %v", i, prev.BlueWork, cur.BlueWork)
		}
		prev = cur
	}
}

func TestProgressPercent(t *testing.T) {
	r := dag.NewTargetResolver(testCursor(10, "start"), testCursor(110, "target"))

	if pct := r.ProgressPercent(); pct != 0 {
		t.Fatalf("expected 0%% before any batch, got %d", pct)
	}

	prev := uint64(0)
	for _, bw := range []uint64{35, 60, 85, 110} {
		r.ProcessBatch([]*models.Block{testBlock(bw, fmt.Sprintf("h%d", bw), nonChain())})
		pct := r.ProgressPercent()
		if pct < prev {
			t.Fatalf("progress decreased from %d to %d", prev, pct)
		}
		prev = pct
	}
	if prev != 100 {
		t.Fatalf("expected 100%% at target blue work, got %d", prev)
	}
}

func TestProgressPercent_ZeroSpan(t *testing.T) {
	r := dag.NewTargetResolver(testCursor(42, "only"), testCursor(42, "target"))
	if pct := r.ProgressPercent(); pct != 100 {
		t.Fatalf("expected 100%% for zero blue work span, got %d", pct)
	}
}

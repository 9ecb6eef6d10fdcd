package repository_test

import (
	"testing"

	"github.com/pkg/errors"

	"dag-syncer/db"
	"dag-syncer/models"
	"dag-syncer/repository"
)

func openTestDB(t *testing.T) *db.LevelDB {
	t.Helper()
	ldb, err := db.NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open leveldb: %v", err)
	}
	t.Cleanup(func() { ldb.Close() })
	return ldb
}

func testCursor(blueWork uint64, hash string) models.Cursor {
	return models.NewCursor(blueWork, models.NewBlueWork(blueWork), hash)
}

func TestRangeRepository_AddGetRemove(t *testing.T) {
	repo := repository.NewRangeRepository(openTestDB(t))

	r1 := &models.SyncRange{From: testCursor(0, "a"), To: testCursor(50, "t")}
	r2 := &models.SyncRange{From: testCursor(60, "b"), To: testCursor(90, "u")}

	if err := repo.AddRange(r1); err != nil {
		t.Fatal(err)
	}
	if err := repo.AddRange(r2); err != nil {
		t.Fatal(err)
	}

	ranges, err := repo.GetAllRanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(ranges))
	}

	if err := repo.RemoveRange(r1); err != nil {
		t.Fatal(err)
	}
	ranges, err = repo.GetAllRanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(ranges) != 1 || !ranges[0].Equal(*r2) {
		t.Fatalf("expected only the second range to remain, got %+v", ranges)
	}
}

func TestRangeRepository_RemoveMissing(t *testing.T) {
	repo := repository.NewRangeRepository(openTestDB(t))

	missing := &models.SyncRange{From: testCursor(0, "a"), To: testCursor(50, "t")}
	err := repo.RemoveRange(missing)
	if !errors.Is(err, repository.ErrRangeNotFound) {
		t.Fatalf("expected ErrRangeNotFound, got %v", err)
	}
}

func TestRangeRepository_RemoveIsKeyedStructurally(t *testing.T) {
	repo := repository.NewRangeRepository(openTestDB(t))

	stored := &models.SyncRange{From: testCursor(0, "a"), To: testCursor(50, "t")}
	if err := repo.AddRange(stored); err != nil {
		t.Fatal(err)
	}

	// Same hash pair, different daa score: must not remove the stored record.
	impostor := &models.SyncRange{
		From: models.NewCursor(99, models.NewBlueWork(0), "a"),
		To:   stored.To,
	}
	if err := repo.RemoveRange(impostor); !errors.Is(err, repository.ErrRangeNotFound) {
		t.Fatalf("expected structural mismatch to fail, got %v", err)
	}

	ranges, err := repo.GetAllRanges()
	if err != nil {
		t.Fatal(err)
	}
	if len(ranges) != 1 {
		t.Fatalf("expected stored range to survive, got %d ranges", len(ranges))
	}
}

func TestBlockRepository_RoundTrip(t *testing.T) {
	repo := repository.NewBlockRepository(openTestDB(t))

	block := &models.Block{
		Header: models.BlockHeader{
			Hash:     "h1",
			DAAScore: 7,
			BlueWork: models.NewBlueWork(1234),
		},
		VerboseData: &models.BlockVerboseData{
			IsChainBlock:        true,
			MergeSetBluesHashes: []string{"m1", "m2"},
		},
	}

	has, err := repo.HasBlock("h1")
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Fatal("expected block to be absent")
	}

	if err := repo.PutBlock(block); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetBlock("h1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Cursor().Equal(block.Cursor()) {
		t.Fatalf("cursor mismatch after round trip: %+v", got.Cursor())
	}
	if got.VerboseData == nil || !got.VerboseData.IsChainBlock {
		t.Fatalf("verbose data lost in round trip: %+v", got.VerboseData)
	}
}

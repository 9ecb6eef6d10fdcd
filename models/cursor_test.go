package models_test

import (
	"encoding/json"
	"testing"

	"dag-syncer/models"
)

func TestBlueWorkHexJSON(t *testing.T) {
	bw, err := models.BlueWorkFromHex("8ad2c2ba6a8ff965cf3e")
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(bw)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"8ad2c2ba6a8ff965cf3e"` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var decoded models.BlueWork
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Cmp(bw) != 0 {
		t.Fatalf("round trip changed value: %s != %s", decoded.Text(16), bw.Text(16))
	}
}

func TestBlueWorkFromHex_Invalid(t *testing.T) {
	if _, err := models.BlueWorkFromHex("not hex"); err == nil {
		t.Fatal("expected error for invalid hex")
	}
}

func TestCursorEqual(t *testing.T) {
	a := models.NewCursor(7, models.NewBlueWork(100), "h")
	b := models.NewCursor(7, models.NewBlueWork(100), "h")
	c := models.NewCursor(8, models.NewBlueWork(100), "h")

	if !a.Equal(b) {
		t.Fatal("expected equal cursors")
	}
	if a.Equal(c) {
		t.Fatal("expected daa score difference to break equality")
	}
}

func TestSyncRangeEqual(t *testing.T) {
	from := models.NewCursor(0, models.NewBlueWork(0), "f")
	to := models.NewCursor(9, models.NewBlueWork(50), "t")

	r1 := models.SyncRange{From: from, To: to}
	r2 := models.SyncRange{From: from, To: to}
	if !r1.Equal(r2) {
		t.Fatal("expected equal ranges")
	}

	r3 := models.SyncRange{From: models.NewCursor(1, models.NewBlueWork(5), "x"), To: to}
	if r1.Equal(r3) {
		t.Fatal("expected differing from cursors to break equality")
	}
}

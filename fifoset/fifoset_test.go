package fifoset_test

import (
	"testing"

	"dag-syncer/fifoset"
)

func TestAddAndContains(t *testing.T) {
	s := fifoset.New(3)

	if !s.Add("a") {
		t.Fatal("expected first add to succeed")
	}
	if s.Add("a") {
		t.Fatal("expected duplicate add to be rejected")
	}
	if !s.Contains("a") {
		t.Fatal("expected set to contain a")
	}
	if s.Len() != 1 {
		t.Fatalf("expected length 1, got %d", s.Len())
	}
}

func TestEvictionOrder(t *testing.T) {
	s := fifoset.New(2)

	s.Add("a")
	s.Add("b")
	s.Add("c") // evicts a

	if s.Contains("a") {
		t.Fatal("expected oldest entry to be evicted")
	}
	if !s.Contains("b") || !s.Contains("c") {
		t.Fatal("expected newer entries to survive")
	}
	if s.Len() != 2 {
		t.Fatalf("expected length 2, got %d", s.Len())
	}

	// An evicted key can be re-added.
	if !s.Add("a") {
		t.Fatal("expected re-add of evicted key to succeed")
	}
}

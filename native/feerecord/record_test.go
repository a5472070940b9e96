package feerecord

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestRecordLifecycle(t *testing.T) {
	r := NewRecord()
	if _, _, err := r.PeekCheapest(); !errors.Is(err, ErrEmptyRecord) {
		t.Fatalf("expected ErrEmptyRecord, got %v", err)
	}
	if err := r.Insert(1, NewWeight(uint256.NewInt(300))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := r.Insert(2, NewWeight(uint256.NewInt(100))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := r.Insert(1, NewWeight(uint256.NewInt(1))); !errors.Is(err, ErrDuplicateAsset) {
		t.Fatalf("expected ErrDuplicateAsset, got %v", err)
	}
	id, w, err := r.PeekCheapest()
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if id != 2 || w.Fee.Uint64() != 100 {
		t.Fatalf("expected (2,100), got (%d,%s)", id, w.Fee.Dec())
	}
	if err := r.Update(2, NewWeight(uint256.NewInt(1000))); err != nil {
		t.Fatalf("update: %v", err)
	}
	if id, _, _ := r.PeekCheapest(); id != 1 {
		t.Fatalf("expected 1 after update, got %d", id)
	}
	if err := r.Update(9, NewWeight(nil)); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
	if _, err := r.Get(9); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestPeekCheapestExcluding(t *testing.T) {
	r := NewRecord()
	for id, fee := range map[uint64]uint64{1: 300, 2: 100, 3: 200} {
		if err := r.Insert(id, NewWeight(uint256.NewInt(fee))); err != nil {
			t.Fatalf("insert %d: %v", id, err)
		}
	}
	id, w, err := r.PeekCheapestExcluding(map[uint64]struct{}{2: {}})
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if id != 3 || w.Fee.Uint64() != 200 {
		t.Fatalf("expected (3,200), got (%d,%s)", id, w.Fee.Dec())
	}
	exhausted := map[uint64]struct{}{1: {}, 2: {}, 3: {}}
	if _, _, err := r.PeekCheapestExcluding(exhausted); !errors.Is(err, ErrEmptyRecord) {
		t.Fatalf("expected ErrEmptyRecord, got %v", err)
	}
}

func TestPendingEntriesSortLast(t *testing.T) {
	r := NewRecord()
	if err := r.Insert(1, Weight{Fee: uint256.NewInt(5), Pending: true}); err != nil {
		t.Fatalf("insert pending: %v", err)
	}
	if err := r.Insert(2, NewWeight(uint256.NewInt(1_000_000))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	id, _, err := r.PeekCheapest()
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if id != 2 {
		t.Fatalf("pending entry leaked into cheapest lookup: got %d", id)
	}
}

func TestConfirmedSortsAboveLiveWeights(t *testing.T) {
	r := NewRecord()
	if err := r.Insert(1, ConfirmedWeight()); err != nil {
		t.Fatalf("insert confirmed: %v", err)
	}
	if err := r.Insert(2, Weight{Fee: new(uint256.Int).Set(MaxFee)}); err != nil {
		t.Fatalf("insert max: %v", err)
	}
	if id, _, _ := r.PeekCheapest(); id != 2 {
		t.Fatal("confirmed entry outranked a live max-fee entry")
	}
}

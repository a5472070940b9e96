package feerecord

import (
	"errors"

	"harberger/storage/ordered"
)

var (
	// ErrUnknownAsset is returned for reads and updates on absent ids.
	ErrUnknownAsset = errors.New("feerecord: unknown asset")
	// ErrDuplicateAsset is returned when inserting an id twice.
	ErrDuplicateAsset = errors.New("feerecord: asset already recorded")
	// ErrEmptyRecord is returned by PeekCheapest on an empty record.
	ErrEmptyRecord = errors.New("feerecord: no live assets")
)

// Record owns one weight per live asset id, ordered by the packed weight key.
// Because every weight on the record prices through the same curve shape, the
// packed order equals the price order at every future instant, which is what
// makes PeekCheapest trustworthy. Callers must never write a weight produced
// under a different curve.
type Record struct {
	entries *ordered.Map
}

// NewRecord returns an empty fee record.
func NewRecord() *Record {
	return &Record{entries: ordered.NewMap()}
}

// Len reports the number of live entries.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return r.entries.Len()
}

// Has reports whether the asset id is recorded.
func (r *Record) Has(id uint64) bool {
	if r == nil {
		return false
	}
	_, ok := r.entries.Get(id)
	return ok
}

// Get returns the decoded weight for the asset id.
func (r *Record) Get(id uint64) (Weight, error) {
	if r == nil {
		return Weight{}, ErrUnknownAsset
	}
	packed, ok := r.entries.Get(id)
	if !ok {
		return Weight{}, ErrUnknownAsset
	}
	return Unpack(packed), nil
}

// Insert records a weight for a new asset id.
func (r *Record) Insert(id uint64, w Weight) error {
	packed, err := w.Pack()
	if err != nil {
		return err
	}
	if err := r.entries.Insert(id, packed); err != nil {
		if errors.Is(err, ordered.ErrDuplicateKey) {
			return ErrDuplicateAsset
		}
		return err
	}
	return nil
}

// Update replaces the weight of an existing asset id.
func (r *Record) Update(id uint64, w Weight) error {
	packed, err := w.Pack()
	if err != nil {
		return err
	}
	if err := r.entries.Update(id, packed); err != nil {
		if errors.Is(err, ordered.ErrKeyNotFound) {
			return ErrUnknownAsset
		}
		return err
	}
	return nil
}

// Delete removes an asset id from the record. Only asset destruction deletes
// an entry; ordinary transfers and purchases mutate in place.
func (r *Record) Delete(id uint64) error {
	if err := r.entries.Delete(id); err != nil {
		if errors.Is(err, ordered.ErrKeyNotFound) {
			return ErrUnknownAsset
		}
		return err
	}
	return nil
}

// PeekCheapest returns the asset id with the smallest packed weight. Pending
// and confirmed entries sort above every live weight, so they are only
// returned when nothing else is left.
func (r *Record) PeekCheapest() (uint64, Weight, error) {
	if r == nil {
		return 0, Weight{}, ErrEmptyRecord
	}
	id, packed, err := r.entries.Min()
	if err != nil {
		if errors.Is(err, ordered.ErrEmpty) {
			return 0, Weight{}, ErrEmptyRecord
		}
		return 0, Weight{}, err
	}
	return id, Unpack(packed), nil
}

// PeekCheapestExcluding returns the cheapest entry whose id is not in the
// exclusion set. Lets one batch resolve several wildcards against the same
// record snapshot without rewriting any weights.
func (r *Record) PeekCheapestExcluding(exclude map[uint64]struct{}) (uint64, Weight, error) {
	if r == nil {
		return 0, Weight{}, ErrEmptyRecord
	}
	id, packed, err := r.entries.MinWhere(func(key uint64) bool {
		_, skip := exclude[key]
		return !skip
	})
	if err != nil {
		if errors.Is(err, ordered.ErrEmpty) {
			return 0, Weight{}, ErrEmptyRecord
		}
		return 0, Weight{}, err
	}
	return id, Unpack(packed), nil
}

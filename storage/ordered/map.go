package ordered

import (
	"container/heap"
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrDuplicateKey is returned by Insert when the key is already present.
	ErrDuplicateKey = errors.New("ordered: duplicate key")
	// ErrKeyNotFound is returned by Update and Delete for absent keys.
	ErrKeyNotFound = errors.New("ordered: key not found")
	// ErrEmpty is returned by Min when the map holds no entries.
	ErrEmpty = errors.New("ordered: empty")
)

type item struct {
	key      uint64
	priority uint256.Int
	index    int
}

// Map maintains uint64 keys ordered by an unsigned 256-bit priority with O(1)
// minimum lookup and O(log n) insert, update and delete. Equal priorities tie
// break on the key so iteration order is deterministic.
type Map struct {
	items minHeap
	byKey map[uint64]*item
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{byKey: make(map[uint64]*item)}
}

// Len reports the number of live entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// Get returns a copy of the priority stored for key.
func (m *Map) Get(key uint64) (*uint256.Int, bool) {
	if m == nil {
		return nil, false
	}
	it, ok := m.byKey[key]
	if !ok {
		return nil, false
	}
	return new(uint256.Int).Set(&it.priority), true
}

// Insert adds a new key with the supplied priority.
func (m *Map) Insert(key uint64, priority *uint256.Int) error {
	if _, ok := m.byKey[key]; ok {
		return ErrDuplicateKey
	}
	it := &item{key: key}
	if priority != nil {
		it.priority.Set(priority)
	}
	m.byKey[key] = it
	heap.Push(&m.items, it)
	return nil
}

// Update replaces the priority of an existing key and restores heap order.
func (m *Map) Update(key uint64, priority *uint256.Int) error {
	it, ok := m.byKey[key]
	if !ok {
		return ErrKeyNotFound
	}
	if priority != nil {
		it.priority.Set(priority)
	} else {
		it.priority.Clear()
	}
	heap.Fix(&m.items, it.index)
	return nil
}

// Delete removes a key from the map.
func (m *Map) Delete(key uint64) error {
	it, ok := m.byKey[key]
	if !ok {
		return ErrKeyNotFound
	}
	heap.Remove(&m.items, it.index)
	delete(m.byKey, key)
	return nil
}

// Min returns the key with the smallest priority and a copy of that priority.
func (m *Map) Min() (uint64, *uint256.Int, error) {
	if m == nil || len(m.items) == 0 {
		return 0, nil, ErrEmpty
	}
	it := m.items[0]
	return it.key, new(uint256.Int).Set(&it.priority), nil
}

// MinWhere returns the smallest-priority entry whose key the filter accepts.
// A nil filter accepts every key. Linear in the map size; callers that only
// need the unconditional minimum should use Min.
func (m *Map) MinWhere(accept func(uint64) bool) (uint64, *uint256.Int, error) {
	if m == nil || len(m.items) == 0 {
		return 0, nil, ErrEmpty
	}
	if accept == nil {
		return m.Min()
	}
	var best *item
	for _, it := range m.items {
		if !accept(it.key) {
			continue
		}
		if best == nil {
			best = it
			continue
		}
		switch it.priority.Cmp(&best.priority) {
		case -1:
			best = it
		case 0:
			if it.key < best.key {
				best = it
			}
		}
	}
	if best == nil {
		return 0, nil, ErrEmpty
	}
	return best.key, new(uint256.Int).Set(&best.priority), nil
}

type minHeap []*item

func (h minHeap) Len() int { return len(h) }

func (h minHeap) Less(i, j int) bool {
	switch h[i].priority.Cmp(&h[j].priority) {
	case -1:
		return true
	case 1:
		return false
	default:
		return h[i].key < h[j].key
	}
}

func (h minHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *minHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

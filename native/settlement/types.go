package settlement

import (
	"github.com/holiman/uint256"

	"harberger/core/types"
)

// ItemRequest names one asset wanted by a settlement batch. A wildcard
// request resolves to the cheapest live asset at generate time.
type ItemRequest struct {
	Wildcard bool
	AssetID  uint64
}

// ResolvedItem is one concrete line of a generated order: the asset, the
// price owed for it, and who receives that payment.
type ResolvedItem struct {
	AssetID   uint64
	Price     *uint256.Int
	Recipient types.Address
}

// Clone returns an independent copy of the item.
func (i ResolvedItem) Clone() ResolvedItem {
	clone := i
	if i.Price != nil {
		clone.Price = new(uint256.Int).Set(i.Price)
	} else {
		clone.Price = new(uint256.Int)
	}
	return clone
}

// FeeItem is the single aggregate fee line of an order.
type FeeItem struct {
	Amount    *uint256.Int
	Recipient types.Address
}

// Order is the resolved response handed back to the settlement engine.
type Order struct {
	ID    [32]byte
	Items []ResolvedItem
	Fee   FeeItem
}

// Metadata describes the adapter to the settlement engine.
type Metadata struct {
	Name       string
	Version    string
	InstanceID string
	Adapter    types.Address
}

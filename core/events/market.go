package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"harberger/core/types"
)

const (
	// TypeAssetMinted marks the creation of a new asset and its fee entry.
	TypeAssetMinted = "harberger.minted"
	// TypeAssetPurchased marks a completed compulsory purchase.
	TypeAssetPurchased = "harberger.purchased"
	// TypeFeeToppedUp marks a voluntary fee top-up by the current owner.
	TypeFeeToppedUp = "harberger.fee_topped_up"
	// TypeFeeOverridden marks an administrative weight override.
	TypeFeeOverridden = "harberger.fee_overridden"
	// TypeAssetConfirmed marks an ephemeral asset being locked out of auction.
	TypeAssetConfirmed = "harberger.confirmed"
	// TypeWeightReset marks a transfer-triggered fee reset.
	TypeWeightReset = "harberger.weight_reset"
)

// AssetMinted records the birth of an asset fee entry.
type AssetMinted struct {
	AssetID uint64
	Owner   types.Address
}

// EventType satisfies the events.Event interface.
func (AssetMinted) EventType() string { return TypeAssetMinted }

// Event converts the structured payload into a broadcastable event.
func (e AssetMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeAssetMinted,
		Attributes: map[string]string{
			"assetId": strconv.FormatUint(e.AssetID, 10),
			"owner":   e.Owner.Hex(),
		},
	}
}

// AssetPurchased records a completed forced sale.
type AssetPurchased struct {
	AssetID   uint64
	Buyer     types.Address
	Displaced types.Address
	Price     *uint256.Int
	Fee       *uint256.Int
	NewWeight *uint256.Int
}

// EventType satisfies the events.Event interface.
func (AssetPurchased) EventType() string { return TypeAssetPurchased }

// Event converts the structured payload into a broadcastable event.
func (e AssetPurchased) Event() *types.Event {
	attrs := map[string]string{
		"assetId":   strconv.FormatUint(e.AssetID, 10),
		"buyer":     e.Buyer.Hex(),
		"displaced": e.Displaced.Hex(),
	}
	if e.Price != nil {
		attrs["price"] = e.Price.Dec()
	}
	if e.Fee != nil {
		attrs["fee"] = e.Fee.Dec()
	}
	if e.NewWeight != nil {
		attrs["newWeight"] = e.NewWeight.Dec()
	}
	return &types.Event{Type: TypeAssetPurchased, Attributes: attrs}
}

// FeeToppedUp records an owner adding to an asset's self-assessed fee.
type FeeToppedUp struct {
	AssetID   uint64
	Payer     types.Address
	Amount    *uint256.Int
	NewWeight *uint256.Int
}

// EventType satisfies the events.Event interface.
func (FeeToppedUp) EventType() string { return TypeFeeToppedUp }

// Event converts the structured payload into a broadcastable event.
func (e FeeToppedUp) Event() *types.Event {
	attrs := map[string]string{
		"assetId": strconv.FormatUint(e.AssetID, 10),
		"payer":   e.Payer.Hex(),
	}
	if e.Amount != nil {
		attrs["amount"] = e.Amount.Dec()
	}
	if e.NewWeight != nil {
		attrs["newWeight"] = e.NewWeight.Dec()
	}
	return &types.Event{Type: TypeFeeToppedUp, Attributes: attrs}
}

// FeeOverridden records a privileged replacement of an asset's weight.
type FeeOverridden struct {
	AssetID   uint64
	NewWeight *uint256.Int
}

// EventType satisfies the events.Event interface.
func (FeeOverridden) EventType() string { return TypeFeeOverridden }

// Event converts the structured payload into a broadcastable event.
func (e FeeOverridden) Event() *types.Event {
	attrs := map[string]string{"assetId": strconv.FormatUint(e.AssetID, 10)}
	if e.NewWeight != nil {
		attrs["newWeight"] = e.NewWeight.Dec()
	}
	return &types.Event{Type: TypeFeeOverridden, Attributes: attrs}
}

// AssetConfirmed records an owner exercising the one-way auction opt-out.
type AssetConfirmed struct {
	AssetID uint64
	Owner   types.Address
}

// EventType satisfies the events.Event interface.
func (AssetConfirmed) EventType() string { return TypeAssetConfirmed }

// Event converts the structured payload into a broadcastable event.
func (e AssetConfirmed) Event() *types.Event {
	return &types.Event{
		Type: TypeAssetConfirmed,
		Attributes: map[string]string{
			"assetId": strconv.FormatUint(e.AssetID, 10),
			"owner":   e.Owner.Hex(),
		},
	}
}

// WeightReset records a non-exempt transfer zeroing an asset's weight.
type WeightReset struct {
	AssetID uint64
	From    types.Address
	To      types.Address
}

// EventType satisfies the events.Event interface.
func (WeightReset) EventType() string { return TypeWeightReset }

// Event converts the structured payload into a broadcastable event.
func (e WeightReset) Event() *types.Event {
	return &types.Event{
		Type: TypeWeightReset,
		Attributes: map[string]string{
			"assetId": strconv.FormatUint(e.AssetID, 10),
			"from":    e.From.Hex(),
			"to":      e.To.Hex(),
		},
	}
}

package events

import (
	"encoding/hex"
	"strconv"
	"strings"

	"harberger/core/types"
)

const (
	// TypeSettlementGenerated marks a settlement batch being opened.
	TypeSettlementGenerated = "settlement.generated"
	// TypeSettlementRatified marks a settlement batch closing cleanly.
	TypeSettlementRatified = "settlement.ratified"
)

// SettlementGenerated records the assets escrowed into one settlement batch.
type SettlementGenerated struct {
	OrderID   [32]byte
	Fulfiller types.Address
	AssetIDs  []uint64
}

// EventType satisfies the events.Event interface.
func (SettlementGenerated) EventType() string { return TypeSettlementGenerated }

// Event converts the structured payload into a broadcastable event.
func (e SettlementGenerated) Event() *types.Event {
	return &types.Event{
		Type: TypeSettlementGenerated,
		Attributes: map[string]string{
			"orderId":   hex.EncodeToString(e.OrderID[:]),
			"fulfiller": e.Fulfiller.Hex(),
			"assetIds":  joinIDs(e.AssetIDs),
		},
	}
}

// SettlementRatified records a settlement batch passing the fee-evasion check.
type SettlementRatified struct {
	AssetIDs []uint64
}

// EventType satisfies the events.Event interface.
func (SettlementRatified) EventType() string { return TypeSettlementRatified }

// Event converts the structured payload into a broadcastable event.
func (e SettlementRatified) Event() *types.Event {
	return &types.Event{
		Type:       TypeSettlementRatified,
		Attributes: map[string]string{"assetIds": joinIDs(e.AssetIDs)},
	}
}

func joinIDs(ids []uint64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(id, 10))
	}
	return strings.Join(parts, ",")
}

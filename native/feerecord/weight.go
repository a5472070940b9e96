package feerecord

import (
	"errors"

	"github.com/holiman/uint256"
)

// Packed weight layout, 160 bits carried in a uint256:
//
//	bit 159      pending flag (settlement escrow in flight)
//	bits 0..158  weight; the all-ones 159-bit value is the confirmed sentinel
//
// Legal fee weights stop at 152 bits so the sentinel range can never collide
// with a real fee. Anything between MaxFee and the sentinel is rejected at the
// codec boundary.
const (
	pendingBit   = 159
	sentinelBits = 159
	feeBits      = 152
)

var (
	// MaxFee is the largest legal fee weight (2^152 - 1).
	MaxFee = maskBits(feeBits)
	// ConfirmedSentinel is the reserved weight meaning "locked out of
	// auction, price = infinity" (2^159 - 1).
	ConfirmedSentinel = maskBits(sentinelBits)

	pendingMask = new(uint256.Int).Lsh(uint256.NewInt(1), pendingBit)

	// ErrFeeRange rejects fees in the reserved gap above MaxFee.
	ErrFeeRange = errors.New("feerecord: fee exceeds maximum weight")
)

func maskBits(n uint) *uint256.Int {
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), n)
	return mask.SubUint64(mask, 1)
}

// Weight is the decoded form of a packed fee entry. Business logic operates on
// this struct only; the packed integer exists at the record boundary.
type Weight struct {
	Fee       *uint256.Int
	Pending   bool
	Confirmed bool
}

// NewWeight builds a plain, unconfirmed weight from a fee value.
func NewWeight(fee *uint256.Int) Weight {
	if fee == nil {
		fee = new(uint256.Int)
	}
	return Weight{Fee: new(uint256.Int).Set(fee)}
}

// ConfirmedWeight returns the sentinel weight for a confirmed asset.
func ConfirmedWeight() Weight {
	return Weight{Fee: new(uint256.Int).Set(ConfirmedSentinel), Confirmed: true}
}

// Clone returns an independent copy of the weight.
func (w Weight) Clone() Weight {
	clone := w
	if w.Fee != nil {
		clone.Fee = new(uint256.Int).Set(w.Fee)
	} else {
		clone.Fee = new(uint256.Int)
	}
	return clone
}

// Pack encodes the weight into its ordering key. Confirmed weights encode to
// the sentinel; the pending flag occupies the top reserved bit so pending
// entries sort after every live one.
func (w Weight) Pack() (*uint256.Int, error) {
	packed := new(uint256.Int)
	switch {
	case w.Confirmed:
		packed.Set(ConfirmedSentinel)
	case w.Fee == nil:
		// zero fee
	case w.Fee.Cmp(MaxFee) > 0:
		return nil, ErrFeeRange
	default:
		packed.Set(w.Fee)
	}
	if w.Pending {
		packed.Or(packed, pendingMask)
	}
	return packed, nil
}

// Unpack decodes a packed ordering key back into named fields.
func Unpack(packed *uint256.Int) Weight {
	w := Weight{Fee: new(uint256.Int)}
	if packed == nil {
		return w
	}
	value := new(uint256.Int).Set(packed)
	if value.Cmp(pendingMask) >= 0 {
		w.Pending = true
		value.Sub(value, pendingMask)
	}
	if value.Eq(ConfirmedSentinel) {
		w.Confirmed = true
	}
	w.Fee.Set(value)
	return w
}

package pricing

import (
	"errors"

	"github.com/holiman/uint256"
)

// BpsDenominator is the basis-point scale used by every fee rate.
const BpsDenominator = 10_000

var (
	// ErrInvalidFeeBps rejects rates outside (0, 10000].
	ErrInvalidFeeBps = errors.New("pricing: fee bps must be in (0, 10000]")
	// ErrOverflow rejects conversions whose intermediate product does not fit
	// 256 bits. Overflow is a hard failure, never a silent wrap.
	ErrOverflow = errors.New("pricing: arithmetic overflow")
)

// MaxPrice is the sentinel price meaning "unpurchasable".
var MaxPrice = func() *uint256.Int {
	max := new(uint256.Int)
	return max.Not(max)
}()

var bpsDenom = uint256.NewInt(BpsDenominator)

// ValidateFeeBps reports whether the rate is usable.
func ValidateFeeBps(feeBps uint32) error {
	if feeBps == 0 || feeBps > BpsDenominator {
		return ErrInvalidFeeBps
	}
	return nil
}

// FeeFromPrice computes price * feeBps / 10000, truncating.
func FeeFromPrice(price *uint256.Int, feeBps uint32) (*uint256.Int, error) {
	if err := ValidateFeeBps(feeBps); err != nil {
		return nil, err
	}
	if price == nil {
		return new(uint256.Int), nil
	}
	product, overflow := new(uint256.Int).MulOverflow(price, uint256.NewInt(uint64(feeBps)))
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, bpsDenom), nil
}

// PriceFromFee computes fee * 10000 / feeBps, truncating. The round trip
// through FeeFromPrice is lossy by construction.
func PriceFromFee(fee *uint256.Int, feeBps uint32) (*uint256.Int, error) {
	if err := ValidateFeeBps(feeBps); err != nil {
		return nil, err
	}
	if fee == nil {
		return new(uint256.Int), nil
	}
	product, overflow := new(uint256.Int).MulOverflow(fee, bpsDenom)
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, uint256.NewInt(uint64(feeBps))), nil
}

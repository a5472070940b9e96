package pricing

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestValidateFeeBps(t *testing.T) {
	for _, bps := range []uint32{0, 10_001, 65_000} {
		if err := ValidateFeeBps(bps); !errors.Is(err, ErrInvalidFeeBps) {
			t.Fatalf("bps %d: expected ErrInvalidFeeBps, got %v", bps, err)
		}
	}
	for _, bps := range []uint32{1, 100, 10_000} {
		if err := ValidateFeeBps(bps); err != nil {
			t.Fatalf("bps %d: unexpected error %v", bps, err)
		}
	}
}

func TestConversionScenario(t *testing.T) {
	// feeBps = 100 (1%), price = 1234e9.
	price := uint256.NewInt(1_234_000_000_000)
	fee, err := FeeFromPrice(price, 100)
	if err != nil {
		t.Fatalf("FeeFromPrice: %v", err)
	}
	if fee.Uint64() != 12_340_000_000 {
		t.Fatalf("expected fee 12.34e9, got %s", fee.Dec())
	}
	back, err := PriceFromFee(uint256.NewInt(1_234_000_000_000), 100)
	if err != nil {
		t.Fatalf("PriceFromFee: %v", err)
	}
	if back.Uint64() != 123_400_000_000_000 {
		t.Fatalf("expected 1234e9*10000/100, got %s", back.Dec())
	}
}

func TestRoundTripTruncationBound(t *testing.T) {
	// priceFromFee(feeFromPrice(p)) loses less than 10000/feeBps.
	for _, feeBps := range []uint32{1, 3, 100, 250, 9_999, 10_000} {
		for _, p := range []uint64{0, 1, 999, 10_000, 123_456_789, 1 << 40} {
			price := uint256.NewInt(p)
			fee, err := FeeFromPrice(price, feeBps)
			if err != nil {
				t.Fatalf("FeeFromPrice(%d,%d): %v", p, feeBps, err)
			}
			back, err := PriceFromFee(fee, feeBps)
			if err != nil {
				t.Fatalf("PriceFromFee: %v", err)
			}
			if back.Cmp(price) > 0 {
				t.Fatalf("round trip gained value: %d -> %s", p, back.Dec())
			}
			diff := new(uint256.Int).Sub(price, back)
			bound := uint64(BpsDenominator/feeBps) + 1
			if diff.Uint64() >= bound {
				t.Fatalf("bps %d price %d: loss %s >= bound %d", feeBps, p, diff.Dec(), bound)
			}
		}
	}
}

func TestFeeFromPriceOverflow(t *testing.T) {
	huge := new(uint256.Int).Not(new(uint256.Int))
	if _, err := FeeFromPrice(huge, 9_999); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if _, err := PriceFromFee(huge, 100); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

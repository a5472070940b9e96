package pricing

import (
	"github.com/holiman/uint256"

	"harberger/native/feerecord"
)

// Curve maps a decoded fee weight (and a timestamp) to a compulsory resale
// price. The two implementations are parallel and monotonic in the fee, which
// is what keeps packed-weight order identical to price order at every future
// instant. Mixing curve variants over one fee record would break that
// invariant, so a record is bound to exactly one Curve at construction.
type Curve interface {
	// Price returns the compulsory resale price of the weight at the given
	// unix timestamp. Confirmed or pending weights price at MaxPrice.
	Price(weight feerecord.Weight, now int64) (*uint256.Int, error)
	// FeeBps returns the configured continuous royalty rate.
	FeeBps() uint32
}

// StaticCurve prices an asset proportionally to its fee weight, independent of
// time.
type StaticCurve struct {
	feeBps uint32
}

// NewStaticCurve validates the rate and returns the curve.
func NewStaticCurve(feeBps uint32) (*StaticCurve, error) {
	if err := ValidateFeeBps(feeBps); err != nil {
		return nil, err
	}
	return &StaticCurve{feeBps: feeBps}, nil
}

// FeeBps returns the configured royalty rate.
func (c *StaticCurve) FeeBps() uint32 { return c.feeBps }

// Price implements Curve.
func (c *StaticCurve) Price(weight feerecord.Weight, _ int64) (*uint256.Int, error) {
	if weight.Confirmed || weight.Pending {
		return new(uint256.Int).Set(MaxPrice), nil
	}
	return PriceFromFee(weight.Fee, c.feeBps)
}

// EphemeralCurve prices an asset along the time-boxed auction schedule: static
// until the confirmation deadline, linearly decaying to zero by the auction
// deadline, pinned at zero until the final deadline, unpurchasable after.
type EphemeralCurve struct {
	feeBps   uint32
	schedule Schedule
}

// NewEphemeralCurve validates the rate and binds the curve to a schedule.
func NewEphemeralCurve(feeBps uint32, schedule Schedule) (*EphemeralCurve, error) {
	if err := ValidateFeeBps(feeBps); err != nil {
		return nil, err
	}
	return &EphemeralCurve{feeBps: feeBps, schedule: schedule}, nil
}

// FeeBps returns the configured royalty rate.
func (c *EphemeralCurve) FeeBps() uint32 { return c.feeBps }

// Schedule returns the immutable deadline set the curve was built with.
func (c *EphemeralCurve) Schedule() Schedule { return c.schedule }

// Price implements Curve.
func (c *EphemeralCurve) Price(weight feerecord.Weight, now int64) (*uint256.Int, error) {
	if weight.Confirmed || weight.Pending {
		return new(uint256.Int).Set(MaxPrice), nil
	}
	s := c.schedule
	switch {
	case now > s.FinalDeadline:
		return new(uint256.Int).Set(MaxPrice), nil
	case now >= s.AuctionDeadline:
		return new(uint256.Int), nil
	case now < s.ConfirmationDeadline:
		return PriceFromFee(weight.Fee, c.feeBps)
	}
	// Linear decay across [confirmationDeadline, auctionDeadline).
	static, err := PriceFromFee(weight.Fee, c.feeBps)
	if err != nil {
		return nil, err
	}
	remaining := uint256.NewInt(uint64(s.AuctionDeadline - now))
	duration := uint256.NewInt(uint64(s.AuctionDeadline - s.ConfirmationDeadline))
	if duration.IsZero() {
		return new(uint256.Int), nil
	}
	scaled, overflow := new(uint256.Int).MulOverflow(static, remaining)
	if overflow {
		return nil, ErrOverflow
	}
	return scaled.Div(scaled, duration), nil
}

package purchase

import (
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"harberger/core/events"
	"harberger/core/types"
	"harberger/native/feerecord"
	"harberger/native/pricing"
	"harberger/native/registry"
)

var (
	// ErrNilState flags an engine used before its collaborators were wired.
	ErrNilState = errors.New("purchase engine: state not configured")
	// ErrUnknownAsset is returned for operations on unrecorded ids.
	ErrUnknownAsset = errors.New("purchase engine: token does not exist")
	// ErrInvalidPayment is returned when a payment does not cover fee+price.
	ErrInvalidPayment = errors.New("purchase engine: payment below fee plus price")
	// ErrUnpurchasable is returned when the asset prices at the unreachable
	// maximum (confirmed, mid-settlement or expired).
	ErrUnpurchasable = errors.New("purchase engine: token is not purchasable")
	// ErrPayoutOverflow is returned when a payout would wrap a recipient
	// balance.
	ErrPayoutOverflow = errors.New("purchase engine: payout would overflow recipient balance")
	// ErrUnauthorized is returned for privileged calls by the wrong address.
	ErrUnauthorized = errors.New("purchase engine: caller not authorized")
	// ErrNotEphemeral is returned for confirm calls on a static deployment.
	ErrNotEphemeral = errors.New("purchase engine: confirmation requires the ephemeral curve")
	// ErrConfirmClosed is returned for confirm calls outside the window.
	ErrConfirmClosed = errors.New("purchase engine: confirmation window closed")
	// ErrAlreadyConfirmed is returned when re-confirming an asset.
	ErrAlreadyConfirmed = errors.New("purchase engine: asset already confirmed")
)

// Ledger is the balance backend purchases settle against. A failed credit to
// the displaced owner aborts the whole purchase; funds are never dropped.
type Ledger interface {
	BalanceOf(addr types.Address) *uint256.Int
	Debit(addr types.Address, amount *uint256.Int) error
	Credit(addr types.Address, amount *uint256.Int) error
}

// Engine orchestrates compulsory purchases over one fee record, one registry
// and one price curve. All mutating entry points update the fee record before
// any ownership transfer or payout, so reentrant observers only ever see
// consistent pricing.
type Engine struct {
	record    *feerecord.Record
	registry  *registry.Registry
	curve     pricing.Curve
	ledger    Ledger
	authority types.Address
	collector types.Address
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine wires a purchase engine and registers its weight-reset hook on
// the registry. The authority address gates privileged operations; the
// collector receives royalties and retained fees.
func NewEngine(record *feerecord.Record, reg *registry.Registry, curve pricing.Curve, ledger Ledger, authority, collector types.Address) (*Engine, error) {
	if record == nil || reg == nil || curve == nil || ledger == nil {
		return nil, ErrNilState
	}
	e := &Engine{
		record:    record,
		registry:  reg,
		curve:     curve,
		ledger:    ledger,
		authority: authority,
		collector: collector,
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
	}
	reg.SetResetFunc(e.resetWeight)
	return e, nil
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 { return e.nowFn() }

// Record exposes the fee record for the settlement adapter.
func (e *Engine) Record() *feerecord.Record { return e.record }

// Registry exposes the asset registry for the settlement adapter.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Curve exposes the price curve for the settlement adapter.
func (e *Engine) Curve() pricing.Curve { return e.curve }

// Collector returns the royalty and fee recipient.
func (e *Engine) Collector() types.Address { return e.collector }

// resetWeight is the registry hook zeroing an asset's fee on a non-exempt
// transfer. It clears the pending bit along with the fee.
func (e *Engine) resetWeight(id uint64) error {
	if err := e.record.Update(id, feerecord.NewWeight(nil)); err != nil {
		if errors.Is(err, feerecord.ErrUnknownAsset) {
			return ErrUnknownAsset
		}
		return err
	}
	return nil
}

// Mint creates an asset owned by `to` with a not-for-sale fee entry.
// Authority only.
func (e *Engine) Mint(caller, to types.Address, id uint64) error {
	if caller != e.authority {
		return ErrUnauthorized
	}
	if err := e.registry.Mint(to, id); err != nil {
		return err
	}
	// Fresh assets carry the maximum weight so nobody can force a sale
	// before the owner prices the asset themselves.
	if err := e.record.Insert(id, feerecord.Weight{Fee: new(uint256.Int).Set(feerecord.MaxFee)}); err != nil {
		return err
	}
	e.emitter.Emit(events.AssetMinted{AssetID: id, Owner: to})
	return nil
}

// SetNumFreeTransfers pre-authorizes `count` reset-exempt transfers.
// Authority only.
func (e *Engine) SetNumFreeTransfers(caller types.Address, id uint64, count uint8) error {
	if caller != e.authority {
		return ErrUnauthorized
	}
	return e.registry.SetFreeTransfers(id, count)
}

// CurrentFeeAndPrice returns the asset's continuous fee and compulsory price
// at the current time. Unknown ids fail explicitly.
func (e *Engine) CurrentFeeAndPrice(id uint64) (*uint256.Int, *uint256.Int, error) {
	return e.feeAndPriceAt(id, e.now())
}

func (e *Engine) feeAndPriceAt(id uint64, now int64) (*uint256.Int, *uint256.Int, error) {
	w, err := e.record.Get(id)
	if err != nil {
		return nil, nil, ErrUnknownAsset
	}
	price, err := e.curve.Price(w, now)
	if err != nil {
		return nil, nil, err
	}
	if price.Eq(pricing.MaxPrice) {
		// Unpurchasable assets owe no reachable fee either.
		return new(uint256.Int).Set(pricing.MaxPrice), price, nil
	}
	fee, err := pricing.FeeFromPrice(price, e.curve.FeeBps())
	if err != nil {
		return nil, nil, err
	}
	return fee, price, nil
}

// ResalePrice returns the compulsory price of the asset at the current time.
func (e *Engine) ResalePrice(id uint64) (*uint256.Int, error) {
	_, price, err := e.CurrentFeeAndPrice(id)
	return price, err
}

// AuctionPriceFromFee prices a raw fee value on the configured curve at the
// supplied timestamp; a nil timestamp means now. Pure, touches no state.
func (e *Engine) AuctionPriceFromFee(fee *uint256.Int, at *int64) (*uint256.Int, error) {
	now := e.now()
	if at != nil {
		now = *at
	}
	return e.curve.Price(feerecord.NewWeight(fee), now)
}

// RoyaltyInfo implements the standard royalty query against the configured
// rate: the collector receives feeBps of any sale price.
func (e *Engine) RoyaltyInfo(salePrice *uint256.Int) (types.Address, *uint256.Int, error) {
	amount, err := pricing.FeeFromPrice(salePrice, e.curve.FeeBps())
	if err != nil {
		return types.Address{}, nil, err
	}
	return e.collector, amount, nil
}

// PurchaseToken forces the sale of the asset to the buyer. The payment must
// cover the continuous fee plus the current price; the surplus over the price
// becomes the buyer's new self-assessed fee weight. The record is updated
// before ownership moves or funds flow.
func (e *Engine) PurchaseToken(buyer types.Address, id uint64, payment *uint256.Int) error {
	now := e.now()
	fee, price, err := e.feeAndPriceAt(id, now)
	if err != nil {
		return err
	}
	if price.Eq(pricing.MaxPrice) {
		return ErrUnpurchasable
	}
	if payment == nil {
		return ErrInvalidPayment
	}
	total, overflow := new(uint256.Int).AddOverflow(fee, price)
	if overflow || payment.Cmp(total) < 0 {
		return ErrInvalidPayment
	}
	newWeight := new(uint256.Int).Sub(payment, price)
	if newWeight.Cmp(feerecord.MaxFee) > 0 {
		return feerecord.ErrFeeRange
	}
	displaced, err := e.registry.OwnerOf(id)
	if err != nil {
		return err
	}
	// Both payout legs are headroom-checked up front so no credit can fail
	// on overflow after the record and ownership have changed.
	retained := new(uint256.Int).Sub(payment, price)
	if displaced == e.collector {
		if _, overflow := new(uint256.Int).AddOverflow(e.ledger.BalanceOf(displaced), payment); overflow {
			return ErrPayoutOverflow
		}
	} else {
		if _, overflow := new(uint256.Int).AddOverflow(e.ledger.BalanceOf(e.collector), retained); overflow {
			return ErrPayoutOverflow
		}
		if _, overflow := new(uint256.Int).AddOverflow(e.ledger.BalanceOf(displaced), price); overflow {
			return ErrPayoutOverflow
		}
	}
	if err := e.ledger.Debit(buyer, payment); err != nil {
		return err
	}
	if err := e.record.Update(id, feerecord.NewWeight(newWeight)); err != nil {
		return err
	}
	if err := e.registry.Transfer(buyer, displaced, buyer, id, true); err != nil {
		return err
	}
	if err := e.ledger.Credit(e.collector, retained); err != nil {
		return err
	}
	// Paying the displaced owner is the last interaction; a failure here
	// aborts the purchase rather than silently dropping the proceeds.
	if err := e.ledger.Credit(displaced, price); err != nil {
		return fmt.Errorf("purchase engine: paying displaced owner: %w", err)
	}
	e.emitter.Emit(events.AssetPurchased{
		AssetID:   id,
		Buyer:     buyer,
		Displaced: displaced,
		Price:     price,
		Fee:       fee,
		NewWeight: newWeight,
	})
	return nil
}

// PurchaseCheapest forces the sale of the lowest-priced live asset.
func (e *Engine) PurchaseCheapest(buyer types.Address, payment *uint256.Int) (uint64, error) {
	id, _, err := e.record.PeekCheapest()
	if err != nil {
		return 0, ErrUnknownAsset
	}
	if err := e.PurchaseToken(buyer, id, payment); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateFeePaid adds the payment to the asset's fee weight.
func (e *Engine) UpdateFeePaid(caller types.Address, id uint64, payment *uint256.Int) error {
	w, err := e.record.Get(id)
	if err != nil {
		return ErrUnknownAsset
	}
	if w.Confirmed {
		return ErrAlreadyConfirmed
	}
	if payment == nil || payment.IsZero() {
		return ErrInvalidPayment
	}
	next, overflow := new(uint256.Int).AddOverflow(w.Fee, payment)
	if overflow || next.Cmp(feerecord.MaxFee) > 0 {
		return feerecord.ErrFeeRange
	}
	if _, overflow := new(uint256.Int).AddOverflow(e.ledger.BalanceOf(e.collector), payment); overflow {
		return ErrPayoutOverflow
	}
	if err := e.ledger.Debit(caller, payment); err != nil {
		return err
	}
	w.Fee = next
	if err := e.record.Update(id, w); err != nil {
		return err
	}
	if err := e.ledger.Credit(e.collector, payment); err != nil {
		return err
	}
	e.emitter.Emit(events.FeeToppedUp{AssetID: id, Payer: caller, Amount: payment, NewWeight: next})
	return nil
}

// OverrideFeePaid replaces the asset's fee weight unconditionally.
// Authority only.
func (e *Engine) OverrideFeePaid(caller types.Address, id uint64, newWeight *uint256.Int) error {
	if caller != e.authority {
		return ErrUnauthorized
	}
	if !e.record.Has(id) {
		return ErrUnknownAsset
	}
	w := feerecord.NewWeight(newWeight)
	if err := e.record.Update(id, w); err != nil {
		return err
	}
	e.emitter.Emit(events.FeeOverridden{AssetID: id, NewWeight: w.Fee})
	return nil
}

// Confirm permanently locks the asset out of the auction. Only the current
// owner may confirm, only on the ephemeral curve, and only while the
// confirmation window is open. There is no unconfirm.
func (e *Engine) Confirm(caller types.Address, id uint64) error {
	ephemeral, ok := e.curve.(*pricing.EphemeralCurve)
	if !ok {
		return ErrNotEphemeral
	}
	if !ephemeral.Schedule().ConfirmableAt(e.now()) {
		return ErrConfirmClosed
	}
	owner, err := e.registry.OwnerOf(id)
	if err != nil {
		return ErrUnknownAsset
	}
	if caller != owner {
		return ErrUnauthorized
	}
	w, err := e.record.Get(id)
	if err != nil {
		return ErrUnknownAsset
	}
	if w.Confirmed {
		return ErrAlreadyConfirmed
	}
	if err := e.record.Update(id, feerecord.ConfirmedWeight()); err != nil {
		return err
	}
	e.emitter.Emit(events.AssetConfirmed{AssetID: id, Owner: owner})
	return nil
}

// IsConfirmed reports whether the asset holds the confirmed sentinel.
func (e *Engine) IsConfirmed(id uint64) (bool, error) {
	w, err := e.record.Get(id)
	if err != nil {
		return false, ErrUnknownAsset
	}
	return w.Confirmed, nil
}

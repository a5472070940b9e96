package purchase

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"harberger/core/state"
	"harberger/core/types"
	"harberger/native/feerecord"
	"harberger/native/pricing"
	"harberger/native/registry"
)

var (
	authority = addr(0x01)
	collector = addr(0x02)
	alice     = addr(0xA1)
	bob       = addr(0xB2)
	stranger  = addr(0xEE)
)

func addr(fill byte) types.Address {
	var a types.Address
	for i := range a {
		a[i] = fill
	}
	return a
}

type fixture struct {
	engine   *Engine
	record   *feerecord.Record
	registry *registry.Registry
	ledger   *state.Ledger
}

func newStaticFixture(t *testing.T, feeBps uint32) *fixture {
	t.Helper()
	curve, err := pricing.NewStaticCurve(feeBps)
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	return newFixture(t, curve)
}

func newFixture(t *testing.T, curve pricing.Curve) *fixture {
	t.Helper()
	f := &fixture{
		record:   feerecord.NewRecord(),
		registry: registry.New(),
		ledger:   state.NewLedger(),
	}
	engine, err := NewEngine(f.record, f.registry, curve, f.ledger, authority, collector)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	engine.SetNowFunc(func() int64 { return 0 })
	f.engine = engine
	return f
}

func (f *fixture) mintPriced(t *testing.T, owner types.Address, id, weight uint64) {
	t.Helper()
	if err := f.engine.Mint(authority, owner, id); err != nil {
		t.Fatalf("mint %d: %v", id, err)
	}
	if err := f.engine.OverrideFeePaid(authority, id, uint256.NewInt(weight)); err != nil {
		t.Fatalf("override %d: %v", id, err)
	}
}

func fund(f *fixture, a types.Address, amount uint64) {
	_ = f.ledger.Credit(a, uint256.NewInt(amount))
}

func TestMintRequiresAuthority(t *testing.T) {
	f := newStaticFixture(t, 100)
	if err := f.engine.Mint(stranger, alice, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.engine.Mint(authority, alice, 1); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// A fresh mint is effectively not for sale.
	w, err := f.record.Get(1)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !w.Fee.Eq(feerecord.MaxFee) {
		t.Fatalf("expected max weight on mint, got %s", w.Fee.Dec())
	}
}

func TestPurchaseToken(t *testing.T) {
	f := newStaticFixture(t, 100)
	f.mintPriced(t, alice, 1, 10_000) // price = 1_000_000, fee = 10_000
	fund(f, bob, 2_000_000)

	if err := f.engine.PurchaseToken(bob, 99, uint256.NewInt(1)); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
	if err := f.engine.PurchaseToken(bob, 1, uint256.NewInt(1_009_999)); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("expected ErrInvalidPayment, got %v", err)
	}
	if err := f.engine.PurchaseToken(bob, 1, uint256.NewInt(1_020_000)); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	owner, _ := f.registry.OwnerOf(1)
	if owner != bob {
		t.Fatalf("ownership did not move, owner %s", owner)
	}
	// New weight is the payment minus the price.
	w, _ := f.record.Get(1)
	if w.Fee.Uint64() != 20_000 {
		t.Fatalf("expected new weight 20000, got %s", w.Fee.Dec())
	}
	// Displaced owner received exactly the price.
	if got := f.ledger.BalanceOf(alice).Uint64(); got != 1_000_000 {
		t.Fatalf("displaced owner got %d", got)
	}
	// The collector retains the rest of the payment as the fee deposit.
	if got := f.ledger.BalanceOf(collector).Uint64(); got != 20_000 {
		t.Fatalf("collector got %d", got)
	}
	if got := f.ledger.BalanceOf(bob).Uint64(); got != 980_000 {
		t.Fatalf("buyer left with %d", got)
	}
}

func TestPurchaseRequiresFunds(t *testing.T) {
	f := newStaticFixture(t, 100)
	f.mintPriced(t, alice, 1, 100)
	if err := f.engine.PurchaseToken(bob, 1, uint256.NewInt(20_000)); !errors.Is(err, state.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

type creditRejectingLedger struct {
	*state.Ledger
	reject types.Address
}

func (l *creditRejectingLedger) Credit(addr types.Address, amount *uint256.Int) error {
	if addr == l.reject {
		return errors.New("recipient rejected payment")
	}
	return l.Ledger.Credit(addr, amount)
}

func TestFailedPayoutAbortsPurchase(t *testing.T) {
	record := feerecord.NewRecord()
	reg := registry.New()
	ledger := &creditRejectingLedger{Ledger: state.NewLedger(), reject: alice}
	curve, err := pricing.NewStaticCurve(100)
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	engine, err := NewEngine(record, reg, curve, ledger, authority, collector)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	engine.SetNowFunc(func() int64 { return 0 })
	if err := engine.Mint(authority, alice, 1); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.OverrideFeePaid(authority, 1, uint256.NewInt(100)); err != nil {
		t.Fatalf("override: %v", err)
	}
	_ = ledger.Ledger.Credit(bob, uint256.NewInt(1_000_000))
	if err := engine.PurchaseToken(bob, 1, uint256.NewInt(20_000)); err == nil {
		t.Fatal("expected payout failure to abort the purchase")
	}
}

func TestPurchaseRejectsUnpurchasable(t *testing.T) {
	f := newStaticFixture(t, 100)
	f.mintPriced(t, alice, 1, 100)
	fund(f, bob, 1_000_000)
	// Mid-settlement assets price at the unreachable maximum.
	if err := f.record.Update(1, feerecord.Weight{Fee: uint256.NewInt(100), Pending: true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := f.engine.PurchaseToken(bob, 1, uint256.NewInt(1_000_000)); !errors.Is(err, ErrUnpurchasable) {
		t.Fatalf("expected ErrUnpurchasable, got %v", err)
	}
}

func TestPurchaseRejectsExpiredAsset(t *testing.T) {
	schedule, err := pricing.NewSchedule(1_000, 2_000, 3_000, 4_000)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	curve, err := pricing.NewEphemeralCurve(100, schedule)
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	f := newFixture(t, curve)
	f.mintPriced(t, alice, 1, 100)
	fund(f, bob, 1_000_000)
	f.engine.SetNowFunc(func() int64 { return 4_001 })
	if err := f.engine.PurchaseToken(bob, 1, uint256.NewInt(1_000_000)); !errors.Is(err, ErrUnpurchasable) {
		t.Fatalf("expected ErrUnpurchasable, got %v", err)
	}
}

func TestPayoutOverflowPreChecked(t *testing.T) {
	f := newStaticFixture(t, 100)
	f.mintPriced(t, alice, 1, 100) // price 10_000
	fund(f, bob, 1_000_000)
	max := new(uint256.Int).Not(new(uint256.Int))
	if err := f.ledger.Credit(alice, max); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := f.engine.PurchaseToken(bob, 1, uint256.NewInt(20_000)); !errors.Is(err, ErrPayoutOverflow) {
		t.Fatalf("expected ErrPayoutOverflow, got %v", err)
	}
	// The rejected purchase mutated nothing.
	owner, _ := f.registry.OwnerOf(1)
	if owner != alice {
		t.Fatal("ownership moved on rejected payout")
	}
	w, _ := f.record.Get(1)
	if w.Fee.Uint64() != 100 {
		t.Fatalf("weight rewritten to %s on rejected payout", w.Fee.Dec())
	}
	if got := f.ledger.BalanceOf(bob).Uint64(); got != 1_000_000 {
		t.Fatalf("buyer debited %d on rejected payout", 1_000_000-got)
	}
}

func TestTopUpOverflowPreChecked(t *testing.T) {
	f := newStaticFixture(t, 100)
	f.mintPriced(t, alice, 1, 100)
	fund(f, alice, 1_000)
	max := new(uint256.Int).Not(new(uint256.Int))
	if err := f.ledger.Credit(collector, max); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := f.engine.UpdateFeePaid(alice, 1, uint256.NewInt(400)); !errors.Is(err, ErrPayoutOverflow) {
		t.Fatalf("expected ErrPayoutOverflow, got %v", err)
	}
	w, _ := f.record.Get(1)
	if w.Fee.Uint64() != 100 {
		t.Fatalf("weight rewritten to %s on rejected top-up", w.Fee.Dec())
	}
	if got := f.ledger.BalanceOf(alice).Uint64(); got != 1_000 {
		t.Fatalf("payer debited on rejected top-up, left %d", got)
	}
}

func TestPurchaseCheapest(t *testing.T) {
	f := newStaticFixture(t, 10_000) // price == weight at 100%
	f.mintPriced(t, alice, 1, 500)
	f.mintPriced(t, alice, 2, 100)
	f.mintPriced(t, alice, 3, 900)
	fund(f, bob, 10_000)
	id, err := f.engine.PurchaseCheapest(bob, uint256.NewInt(1_000))
	if err != nil {
		t.Fatalf("purchaseCheapest: %v", err)
	}
	if id != 2 {
		t.Fatalf("expected cheapest asset 2, got %d", id)
	}
}

func TestPurchaseCheapestEmptyRecord(t *testing.T) {
	f := newStaticFixture(t, 100)
	if _, err := f.engine.PurchaseCheapest(bob, uint256.NewInt(1)); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestUpdateFeePaid(t *testing.T) {
	f := newStaticFixture(t, 100)
	f.mintPriced(t, alice, 1, 100)
	fund(f, alice, 1_000)
	if err := f.engine.UpdateFeePaid(alice, 1, uint256.NewInt(400)); err != nil {
		t.Fatalf("topUp: %v", err)
	}
	w, _ := f.record.Get(1)
	if w.Fee.Uint64() != 500 {
		t.Fatalf("expected weight 500, got %s", w.Fee.Dec())
	}
	if err := f.engine.UpdateFeePaid(alice, 42, uint256.NewInt(1)); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestUpdateFeePaidOverflow(t *testing.T) {
	f := newStaticFixture(t, 100)
	if err := f.engine.Mint(authority, alice, 1); err != nil {
		t.Fatalf("mint: %v", err)
	}
	fund(f, alice, 10)
	// The mint weight is already at MaxFee; any top-up overruns the range.
	if err := f.engine.UpdateFeePaid(alice, 1, uint256.NewInt(1)); !errors.Is(err, feerecord.ErrFeeRange) {
		t.Fatalf("expected ErrFeeRange, got %v", err)
	}
}

func TestOverrideFeePaidAuthority(t *testing.T) {
	f := newStaticFixture(t, 100)
	f.mintPriced(t, alice, 1, 100)
	if err := f.engine.OverrideFeePaid(stranger, 1, uint256.NewInt(5)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.engine.OverrideFeePaid(authority, 42, uint256.NewInt(5)); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestTransferResetIntegration(t *testing.T) {
	f := newStaticFixture(t, 100)
	f.mintPriced(t, alice, 1, 9_000)
	// A stranger-driven transfer with no override resets the weight to zero.
	if err := f.registry.Transfer(stranger, alice, bob, 1, false); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	w, _ := f.record.Get(1)
	if !w.Fee.IsZero() {
		t.Fatalf("weight not reset, got %s", w.Fee.Dec())
	}
	// With an override in place, the weight survives.
	f.mintPriced(t, alice, 2, 9_000)
	if err := f.engine.SetNumFreeTransfers(authority, 2, 1); err != nil {
		t.Fatalf("setNumFreeTransfers: %v", err)
	}
	if err := f.registry.Transfer(stranger, alice, bob, 2, false); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	w, _ = f.record.Get(2)
	if w.Fee.Uint64() != 9_000 {
		t.Fatalf("override transfer reset the weight to %s", w.Fee.Dec())
	}
}

func TestRoyaltyInfo(t *testing.T) {
	f := newStaticFixture(t, 250)
	recipient, amount, err := f.engine.RoyaltyInfo(uint256.NewInt(40_000))
	if err != nil {
		t.Fatalf("royaltyInfo: %v", err)
	}
	if recipient != collector {
		t.Fatalf("wrong recipient %s", recipient)
	}
	if amount.Uint64() != 1_000 {
		t.Fatalf("expected royalty 1000, got %s", amount.Dec())
	}
}

func TestConfirmLifecycle(t *testing.T) {
	schedule, err := pricing.NewSchedule(1_000, 2_000, 3_000, 4_000)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	curve, err := pricing.NewEphemeralCurve(100, schedule)
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	f := newFixture(t, curve)
	f.mintPriced(t, alice, 1, 100)

	now := int64(0)
	f.engine.SetNowFunc(func() int64 { return now })

	if err := f.engine.Confirm(alice, 1); !errors.Is(err, ErrConfirmClosed) {
		t.Fatalf("expected ErrConfirmClosed before the window, got %v", err)
	}
	now = 1_500
	if err := f.engine.Confirm(bob, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-owner, got %v", err)
	}
	if err := f.engine.Confirm(alice, 1); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := f.engine.Confirm(alice, 1); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
	confirmed, err := f.engine.IsConfirmed(1)
	if err != nil || !confirmed {
		t.Fatalf("isConfirmed: %v %v", confirmed, err)
	}
	// Confirmed assets stay unpurchasable at every future time.
	for _, at := range []int64{2_500, 3_000, 4_000, 4_001, 1 << 40} {
		now = at
		_, price, err := f.engine.CurrentFeeAndPrice(1)
		if err != nil {
			t.Fatalf("price at %d: %v", at, err)
		}
		if !price.Eq(pricing.MaxPrice) {
			t.Fatalf("confirmed asset purchasable at %d", at)
		}
	}
}

func TestConfirmRequiresEphemeralCurve(t *testing.T) {
	f := newStaticFixture(t, 100)
	f.mintPriced(t, alice, 1, 100)
	if err := f.engine.Confirm(alice, 1); !errors.Is(err, ErrNotEphemeral) {
		t.Fatalf("expected ErrNotEphemeral, got %v", err)
	}
}

func TestAuctionPriceFromFeeScenario(t *testing.T) {
	// open=+1h, confDeadline=+2h, auctionDeadline=+3h, finalDeadline=+4h.
	base := int64(1_000_000)
	schedule, err := pricing.NewSchedule(base+3_600, base+7_200, base+10_800, base+14_400)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	curve, err := pricing.NewEphemeralCurve(100, schedule)
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	f := newFixture(t, curve)
	f.engine.SetNowFunc(func() int64 { return base })

	at := func(ts int64) *int64 { return &ts }
	fee := uint256.NewInt(100)

	price, err := f.engine.AuctionPriceFromFee(fee, at(base+14_401))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !price.Eq(pricing.MaxPrice) {
		t.Fatal("expected MaxPrice past the final deadline")
	}
	price, err = f.engine.AuctionPriceFromFee(fee, at(base+10_800))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !price.IsZero() {
		t.Fatalf("expected 0 at the auction deadline, got %s", price.Dec())
	}
	price, err = f.engine.AuctionPriceFromFee(fee, at(base+7_200))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.Uint64() != 10_000 {
		t.Fatalf("expected static 10000 at the confirmation deadline, got %s", price.Dec())
	}
	// Omitted timestamp prices at the current time (sale phase, static).
	price, err = f.engine.AuctionPriceFromFee(fee, nil)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.Uint64() != 10_000 {
		t.Fatalf("expected static price now, got %s", price.Dec())
	}
}

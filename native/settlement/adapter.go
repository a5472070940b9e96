package settlement

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"harberger/core/events"
	"harberger/core/types"
	"harberger/native/feerecord"
	"harberger/native/pricing"
	"harberger/native/purchase"
)

const (
	adapterName    = "harberger-settlement"
	adapterVersion = "1.0"
)

var (
	// ErrOnlySettlement is returned when a mutating call does not come from
	// the configured settlement engine.
	ErrOnlySettlement = errors.New("settlement: caller is not the settlement engine")
	// ErrFeeEvasion is returned by ratify when an asset saw more transfers
	// than the batch pre-authorized.
	ErrFeeEvasion = errors.New("settlement: free transfer flag consumed, fee evasion suspected")
	// ErrEmptyBatch rejects orders with no wanted items.
	ErrEmptyBatch = errors.New("settlement: empty batch")
	// ErrDuplicateItem rejects batches naming the same asset twice.
	ErrDuplicateItem = errors.New("settlement: duplicate asset in batch")
	// ErrUnpurchasable rejects batches containing a confirmed, pending or
	// expired asset.
	ErrUnpurchasable = errors.New("settlement: asset is not purchasable")
)

// Adapter folds compulsory purchases into an external atomic multi-asset
// settlement. One enclosing settlement transaction drives the three-call
// protocol: GenerateOrder escrows assets and rewrites their weights,
// the settlement engine executes the transfers, and RatifyOrder verifies the
// free-transfer accounting and clears the per-batch transient state. A
// rejected generate mutates nothing; once a batch is open, an abort of the
// enclosing settlement transaction rolls back generate's effects so the
// transient state never leaks across batches.
type Adapter struct {
	engine       *purchase.Engine
	adapterAddr  types.Address
	settlement   types.Address
	lastFeePayer map[uint64]types.Address
	instanceID   string
	emitter      events.Emitter
	nowFn        func() int64
}

// NewAdapter binds the adapter to a purchase engine. adapterAddr is the
// escrow address assets are parked under mid-settlement; settlement is the
// only caller allowed to mutate.
func NewAdapter(engine *purchase.Engine, adapterAddr, settlement types.Address) (*Adapter, error) {
	if engine == nil {
		return nil, errors.New("settlement: purchase engine not configured")
	}
	if adapterAddr.IsZero() || settlement.IsZero() {
		return nil, errors.New("settlement: adapter and settlement addresses required")
	}
	return &Adapter{
		engine:       engine,
		adapterAddr:  adapterAddr,
		settlement:   settlement,
		lastFeePayer: make(map[uint64]types.Address),
		instanceID:   uuid.NewString(),
		emitter:      events.NoopEmitter{},
		nowFn:        func() int64 { return time.Now().Unix() },
	}, nil
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (a *Adapter) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		a.emitter = events.NoopEmitter{}
		return
	}
	a.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
func (a *Adapter) SetNowFunc(now func() int64) {
	if now == nil {
		a.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	a.nowFn = now
}

// GetMetadata identifies the adapter to the settlement engine.
func (a *Adapter) GetMetadata() Metadata {
	return Metadata{
		Name:       adapterName,
		Version:    adapterVersion,
		InstanceID: a.instanceID,
		Adapter:    a.adapterAddr,
	}
}

// resolvedAsset pairs one order line with the owner it was resolved against.
type resolvedAsset struct {
	item  ResolvedItem
	owner types.Address
}

// GenerateOrder resolves the wanted items, escrows them under the adapter,
// rewrites their weights to an even split of totalFee and records the
// transient per-asset state consumed later by RatifyOrder. The whole batch is
// validated before any state is touched, so a rejected call leaves no trace.
// Settlement engine only.
func (a *Adapter) GenerateOrder(caller, fulfiller types.Address, requests []ItemRequest, totalFee *uint256.Int) (*Order, error) {
	if caller != a.settlement {
		return nil, ErrOnlySettlement
	}
	now := a.nowFn()
	order, resolved, split, err := a.resolveBatch(fulfiller, requests, totalFee, now)
	if err != nil {
		return nil, err
	}
	record := a.engine.Record()
	reg := a.engine.Registry()
	ids := make([]uint64, 0, len(resolved))
	for _, ra := range resolved {
		id := ra.item.AssetID
		// Escrow the asset under the adapter. Internal transfers never
		// consume overrides or reset fees.
		if ra.owner != a.adapterAddr {
			if err := reg.Transfer(a.adapterAddr, ra.owner, a.adapterAddr, id, true); err != nil {
				return nil, err
			}
		}
		// Pre-authorize the settlement transfer out of escrow.
		if err := reg.AddFreeTransfers(id, 1); err != nil {
			return nil, err
		}
		// Park the new weight with the pending bit raised so the asset
		// drops out of cheapest lookup until ratification.
		if err := record.Update(id, feerecord.Weight{Fee: new(uint256.Int).Set(split), Pending: true}); err != nil {
			return nil, err
		}
		a.lastFeePayer[id] = fulfiller
		ids = append(ids, id)
	}
	a.emitter.Emit(events.SettlementGenerated{OrderID: order.ID, Fulfiller: fulfiller, AssetIDs: ids})
	return order, nil
}

// PreviewOrder computes the response GenerateOrder would produce without
// mutating any state.
func (a *Adapter) PreviewOrder(fulfiller types.Address, requests []ItemRequest, totalFee *uint256.Int) (*Order, error) {
	order, _, _, err := a.resolveBatch(fulfiller, requests, totalFee, a.nowFn())
	return order, err
}

// resolveBatch validates and prices the whole batch without mutating any
// state. Wildcards resolve in price order, each excluding the earlier picks,
// so the resolution matches what the mutating pass will escrow.
func (a *Adapter) resolveBatch(fulfiller types.Address, requests []ItemRequest, totalFee *uint256.Int, now int64) (*Order, []resolvedAsset, *uint256.Int, error) {
	if len(requests) == 0 {
		return nil, nil, nil, ErrEmptyBatch
	}
	if totalFee == nil {
		totalFee = new(uint256.Int)
	}
	split := new(uint256.Int).Div(totalFee, uint256.NewInt(uint64(len(requests))))
	if split.Cmp(feerecord.MaxFee) > 0 {
		return nil, nil, nil, feerecord.ErrFeeRange
	}
	reg := a.engine.Registry()
	order := &Order{
		Items: make([]ResolvedItem, 0, len(requests)),
		Fee:   FeeItem{Amount: new(uint256.Int).Set(totalFee), Recipient: a.engine.Collector()},
	}
	resolved := make([]resolvedAsset, 0, len(requests))
	seen := make(map[uint64]struct{}, len(requests))
	ids := make([]uint64, 0, len(requests))
	for _, req := range requests {
		id, price, recipient, err := a.resolveItem(req, seen, now)
		if err != nil {
			return nil, nil, nil, err
		}
		owner, err := reg.OwnerOf(id)
		if err != nil {
			return nil, nil, nil, err
		}
		meta, err := reg.Meta(id)
		if err != nil {
			return nil, nil, nil, err
		}
		if meta.FreeTransferCount == 0xFF {
			return nil, nil, nil, fmt.Errorf("settlement: free transfer count exhausted for asset %d", id)
		}
		item := ResolvedItem{AssetID: id, Price: price, Recipient: recipient}
		seen[id] = struct{}{}
		ids = append(ids, id)
		order.Items = append(order.Items, item)
		resolved = append(resolved, resolvedAsset{item: item, owner: owner})
	}
	order.ID = a.orderID(fulfiller, ids, now)
	return order, resolved, split, nil
}

func (a *Adapter) resolveItem(req ItemRequest, seen map[uint64]struct{}, now int64) (uint64, *uint256.Int, types.Address, error) {
	record := a.engine.Record()
	id := req.AssetID
	var w feerecord.Weight
	var err error
	if req.Wildcard {
		id, w, err = record.PeekCheapestExcluding(seen)
		if err != nil {
			return 0, nil, types.Address{}, err
		}
	} else {
		w, err = record.Get(id)
		if err != nil {
			return 0, nil, types.Address{}, err
		}
		if _, dup := seen[id]; dup {
			return 0, nil, types.Address{}, fmt.Errorf("%w: asset %d", ErrDuplicateItem, id)
		}
	}
	price, err := a.engine.Curve().Price(w, now)
	if err != nil {
		return 0, nil, types.Address{}, err
	}
	if w.Confirmed || w.Pending || price.Eq(pricing.MaxPrice) {
		return 0, nil, types.Address{}, fmt.Errorf("%w: asset %d", ErrUnpurchasable, id)
	}
	recipient, ok := a.lastFeePayer[id]
	if !ok {
		recipient, err = a.engine.Registry().OwnerOf(id)
		if err != nil {
			return 0, nil, types.Address{}, err
		}
	}
	return id, price, recipient, nil
}

// RatifyOrder closes the batch after the settlement engine executed the
// transfers. Every asset must still hold its free-transfer flag: a cleared
// flag means an untracked transfer burned through the pre-authorization, and
// the whole enclosing settlement transaction is rejected as fee evasion. On
// success the flag, the pending bit and the transient lastFeePayer entry are
// all cleared.
func (a *Adapter) RatifyOrder(caller types.Address, ids []uint64) error {
	if caller != a.settlement {
		return ErrOnlySettlement
	}
	reg := a.engine.Registry()
	record := a.engine.Record()
	for _, id := range ids {
		meta, err := reg.Meta(id)
		if err != nil {
			return err
		}
		if !meta.FreeTransferFlag {
			return fmt.Errorf("%w: asset %d", ErrFeeEvasion, id)
		}
	}
	for _, id := range ids {
		if err := reg.ClearFreeTransfers(id); err != nil {
			return err
		}
		w, err := record.Get(id)
		if err != nil {
			return err
		}
		if w.Pending {
			w.Pending = false
			if err := record.Update(id, w); err != nil {
				return err
			}
		}
		delete(a.lastFeePayer, id)
	}
	a.emitter.Emit(events.SettlementRatified{AssetIDs: ids})
	return nil
}

// LastFeePayer exposes the transient recipient override for tests and RPC
// introspection.
func (a *Adapter) LastFeePayer(id uint64) (types.Address, bool) {
	payer, ok := a.lastFeePayer[id]
	return payer, ok
}

func (a *Adapter) orderID(fulfiller types.Address, ids []uint64, now int64) [32]byte {
	buf := make([]byte, 0, len(fulfiller)+8*len(ids)+8)
	buf = append(buf, fulfiller[:]...)
	for _, id := range ids {
		buf = binary.BigEndian.AppendUint64(buf, id)
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(now))
	return ethcrypto.Keccak256Hash(buf)
}

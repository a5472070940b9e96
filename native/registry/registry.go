package registry

import (
	"errors"
	"fmt"

	"harberger/core/events"
	"harberger/core/types"
)

var (
	// ErrUnknownAsset is returned for operations on unminted ids.
	ErrUnknownAsset = errors.New("registry: unknown asset")
	// ErrAlreadyMinted is returned when minting an existing id.
	ErrAlreadyMinted = errors.New("registry: asset already minted")
	// ErrNotOwner is returned when a transfer names the wrong current owner.
	ErrNotOwner = errors.New("registry: from address is not the owner")
	// ErrZeroAddress rejects mints and transfers to the zero address.
	ErrZeroAddress = errors.New("registry: zero address")
)

// Metadata is the small per-asset record gating transfer-triggered fee
// resets. The flag stays raised while pre-authorized transfers remain; it is
// cleared either by an explicit settlement ratify or by the first non-exempt
// transfer that finds the count exhausted.
type Metadata struct {
	FreeTransferFlag  bool
	FreeTransferCount uint8
}

// ResetFunc is invoked when a non-exempt transfer must zero the asset's fee
// weight. A failing reset aborts the transfer.
type ResetFunc func(id uint64) error

// Registry tracks ownership and auxiliary metadata for uniquely identified
// assets. Transfers feed the free-transfer override accounting: a change of
// beneficial owner normally resets the asset's self-assessed fee, unless the
// transfer is a mint, engine-internal, owner-initiated, or covered by a
// pre-authorized override.
type Registry struct {
	owners  map[uint64]types.Address
	meta    map[uint64]Metadata
	emitter events.Emitter
	resetFn ResetFunc
}

// New returns an empty registry with a no-op emitter.
func New() *Registry {
	return &Registry{
		owners:  make(map[uint64]types.Address),
		meta:    make(map[uint64]Metadata),
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetResetFunc installs the weight-reset callback. The purchase engine owns
// the fee record and registers itself here.
func (r *Registry) SetResetFunc(fn ResetFunc) { r.resetFn = fn }

// Mint assigns a fresh id to the recipient. Mints never trigger a fee reset.
func (r *Registry) Mint(to types.Address, id uint64) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	if _, ok := r.owners[id]; ok {
		return ErrAlreadyMinted
	}
	r.owners[id] = to
	r.meta[id] = Metadata{}
	return nil
}

// OwnerOf returns the current owner of the asset.
func (r *Registry) OwnerOf(id uint64) (types.Address, error) {
	owner, ok := r.owners[id]
	if !ok {
		return types.Address{}, ErrUnknownAsset
	}
	return owner, nil
}

// Exists reports whether the id has been minted.
func (r *Registry) Exists(id uint64) bool {
	_, ok := r.owners[id]
	return ok
}

// Meta returns the free-transfer metadata for the asset.
func (r *Registry) Meta(id uint64) (Metadata, error) {
	if _, ok := r.owners[id]; !ok {
		return Metadata{}, ErrUnknownAsset
	}
	return r.meta[id], nil
}

// SetFreeTransfers replaces the pre-authorized override count.
func (r *Registry) SetFreeTransfers(id uint64, count uint8) error {
	if _, ok := r.owners[id]; !ok {
		return ErrUnknownAsset
	}
	r.meta[id] = Metadata{FreeTransferFlag: count > 0, FreeTransferCount: count}
	return nil
}

// AddFreeTransfers raises the override count, saturating at the counter
// width.
func (r *Registry) AddFreeTransfers(id uint64, count uint8) error {
	if _, ok := r.owners[id]; !ok {
		return ErrUnknownAsset
	}
	meta := r.meta[id]
	next := uint16(meta.FreeTransferCount) + uint16(count)
	if next > 0xFF {
		return fmt.Errorf("registry: free transfer count overflow for asset %d", id)
	}
	meta.FreeTransferCount = uint8(next)
	meta.FreeTransferFlag = meta.FreeTransferCount > 0
	r.meta[id] = meta
	return nil
}

// ClearFreeTransfers drops the override flag and any remaining count.
func (r *Registry) ClearFreeTransfers(id uint64) error {
	if _, ok := r.owners[id]; !ok {
		return ErrUnknownAsset
	}
	r.meta[id] = Metadata{}
	return nil
}

// Transfer moves ownership from `from` to `to` on behalf of `caller`.
// Internal transfers are those initiated by the purchase or settlement
// engines themselves and never consume overrides or reset fees. For all other
// callers, a positive override count is consumed instead of resetting; an
// exhausted count resets the fee weight and clears the override flag.
func (r *Registry) Transfer(caller, from, to types.Address, id uint64, internal bool) error {
	owner, ok := r.owners[id]
	if !ok {
		return ErrUnknownAsset
	}
	if owner != from {
		return ErrNotOwner
	}
	if to.IsZero() {
		return ErrZeroAddress
	}
	exempt := internal || caller == owner
	if !exempt {
		meta := r.meta[id]
		if meta.FreeTransferCount > 0 {
			meta.FreeTransferCount--
			r.meta[id] = meta
		} else {
			if r.resetFn != nil {
				if err := r.resetFn(id); err != nil {
					return fmt.Errorf("registry: fee reset for asset %d: %w", id, err)
				}
			}
			meta.FreeTransferFlag = false
			meta.FreeTransferCount = 0
			r.meta[id] = meta
			r.emitter.Emit(events.WeightReset{AssetID: id, From: from, To: to})
		}
	}
	r.owners[id] = to
	return nil
}

package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address identifies a participant account. The engine treats addresses as
// opaque 20-byte values; derivation and signature checking live with callers.
type Address [20]byte

// ZeroAddress is the unset address value.
var ZeroAddress = Address{}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool { return a == ZeroAddress }

// Hex returns the 0x-prefixed lowercase hex form of the address.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// ParseAddress decodes a 0x-prefixed or bare 40-character hex string.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("address: invalid hex: %w", err)
	}
	if len(raw) != 20 {
		return Address{}, fmt.Errorf("address: expected 20 bytes, got %d", len(raw))
	}
	var addr Address
	copy(addr[:], raw)
	return addr, nil
}

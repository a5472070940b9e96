package state

import (
	"errors"

	"github.com/holiman/uint256"

	"harberger/core/types"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrBalanceOverflow is returned when a credit would wrap the balance.
	ErrBalanceOverflow = errors.New("ledger: balance overflow")
)

// Ledger is the in-process balance book backing purchase payouts. The engine
// treats it through a narrow interface so chains or custodial backends can be
// substituted.
type Ledger struct {
	balances map[types.Address]*uint256.Int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[types.Address]*uint256.Int)}
}

// BalanceOf returns a copy of the address balance.
func (l *Ledger) BalanceOf(addr types.Address) *uint256.Int {
	if bal, ok := l.balances[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// Credit adds funds to the address.
func (l *Ledger) Credit(addr types.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	bal, ok := l.balances[addr]
	if !ok {
		bal = new(uint256.Int)
		l.balances[addr] = bal
	}
	next, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	bal.Set(next)
	return nil
}

// Debit removes funds from the address.
func (l *Ledger) Debit(addr types.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	bal, ok := l.balances[addr]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	bal.Sub(bal, amount)
	return nil
}

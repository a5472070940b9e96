package state

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"harberger/core/types"
)

func testAddr(fill byte) types.Address {
	var a types.Address
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestCreditDebit(t *testing.T) {
	l := NewLedger()
	alice := testAddr(0xA1)
	if err := l.Credit(alice, uint256.NewInt(500)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Debit(alice, uint256.NewInt(200)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := l.BalanceOf(alice).Uint64(); got != 300 {
		t.Fatalf("expected 300, got %d", got)
	}
	if err := l.Debit(alice, uint256.NewInt(301)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := l.Debit(testAddr(0xB2), uint256.NewInt(1)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds for unknown account, got %v", err)
	}
}

func TestCreditOverflow(t *testing.T) {
	l := NewLedger()
	alice := testAddr(0xA1)
	max := new(uint256.Int).Not(new(uint256.Int))
	if err := l.Credit(alice, max); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Credit(alice, uint256.NewInt(1)); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
}

func TestBalanceOfReturnsCopy(t *testing.T) {
	l := NewLedger()
	alice := testAddr(0xA1)
	_ = l.Credit(alice, uint256.NewInt(7))
	bal := l.BalanceOf(alice)
	bal.Clear()
	if got := l.BalanceOf(alice).Uint64(); got != 7 {
		t.Fatal("BalanceOf returned an aliased balance")
	}
}

package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Serial funnels every submitting call through one slot so the house nonce
// is acquired sequentially across concurrent settlements. Withdraw checks
// the house balance while holding the slot.
type Serial struct {
	slot chan struct{}
	next Ledger
}

// NewSerial wraps l.
func NewSerial(l Ledger) *Serial {
	return &Serial{slot: make(chan struct{}, 1), next: l}
}

func (s *Serial) acquire(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for ledger: %v", ErrConfirmTimeout, ctx.Err())
	}
}

func (s *Serial) release() { <-s.slot }

func (s *Serial) HouseAddress() string { return s.next.HouseAddress() }

func (s *Serial) Deposit(ctx context.Context, secret string, amount decimal.Decimal) (string, error) {
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()
	return s.next.Deposit(ctx, secret, amount)
}

// Withdraw pays amount when the house holds at least that much, and fails
// with ErrInsufficientFunds otherwise.
func (s *Serial) Withdraw(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	house, err := s.next.BalanceOf(ctx, s.next.HouseAddress())
	if err != nil {
		return "", fmt.Errorf("failed to read house balance: %w", err)
	}
	if house.LessThan(amount) {
		return "", ErrInsufficientFunds
	}
	return s.next.Withdraw(ctx, to, amount)
}

func (s *Serial) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	return s.next.BalanceOf(ctx, address)
}

func (s *Serial) TransactionStatus(ctx context.Context, txID string) (TxStatus, error) {
	return s.next.TransactionStatus(ctx, txID)
}

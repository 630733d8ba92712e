// Package ledger moves stakes and winnings on the settlement contract.
//
// Deposits are signed by the staking user's custodial key. Payouts and
// refunds are always signed by the single house identity: the house
// withdraws from the contract and forwards the amount to the user's address.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrLedger is the kind every ledger failure wraps.
var ErrLedger = errors.New("ledger failure")

type ledgerError struct{ msg string }

func (e *ledgerError) Error() string { return e.msg }
func (e *ledgerError) Unwrap() error { return ErrLedger }

// Ledger errors.
var (
	ErrInsufficientFunds = &ledgerError{"insufficient funds"}
	ErrTxFailed          = &ledgerError{"transaction failed"}
	ErrConfirmTimeout    = &ledgerError{"transaction confirmation timed out"}
	ErrInvalidKey        = &ledgerError{"invalid signing key"}
)

// TxStatus is the on-chain state of a submitted transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// Ledger is the settlement collaborator.
type Ledger interface {
	// HouseAddress is the address payouts are signed by.
	HouseAddress() string
	// Deposit moves amount from the wallet owning secret into the contract.
	Deposit(ctx context.Context, secret string, amount decimal.Decimal) (string, error)
	// Withdraw pays amount from the house balance to address.
	Withdraw(ctx context.Context, to string, amount decimal.Decimal) (string, error)
	// BalanceOf returns the contract balance credited to address.
	BalanceOf(ctx context.Context, address string) (decimal.Decimal, error)
	// TransactionStatus reports the state of a submitted transaction.
	TransactionStatus(ctx context.Context, txID string) (TxStatus, error)
}

// WaitConfirmed polls until txID is confirmed, fails, or timeout elapses.
func WaitConfirmed(ctx context.Context, l Ledger, txID string, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := l.TransactionStatus(ctx, txID)
		if err != nil {
			log.Debug().Err(err).Str("tx_hash", txID).Msg("Transaction status lookup failed, retrying")
		} else {
			switch status {
			case TxConfirmed:
				return nil
			case TxFailed:
				return ErrTxFailed
			}
		}

		select {
		case <-ctx.Done():
			return ErrConfirmTimeout
		case <-ticker.C:
		}
	}
}

// weiPerEther is the decimal exponent between ETH and wei.
const weiPerEther = 18

// ToWei converts an ETH amount to wei, truncating below one wei.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(weiPerEther).BigInt()
}

// FromWei converts wei to ETH.
func FromWei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -weiPerEther)
}

package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is an in-process Ledger used when no chain is configured.
// Every transaction confirms immediately.
type Memory struct {
	mu       sync.Mutex
	house    string
	contract map[string]decimal.Decimal // contract balances by address
	wallets  map[string]decimal.Decimal // native balances by address
	txs      map[string]TxStatus
	seq      int
}

// NewMemory creates a ledger whose house holds houseBalance in the contract.
func NewMemory(house string, houseBalance decimal.Decimal) *Memory {
	return &Memory{
		house:    house,
		contract: map[string]decimal.Decimal{strings.ToLower(house): houseBalance},
		wallets:  map[string]decimal.Decimal{},
		txs:      map[string]TxStatus{},
	}
}

// Fund credits a wallet's native balance.
func (m *Memory) Fund(address string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(address)
	m.wallets[key] = m.wallets[key].Add(amount)
}

// WalletBalance returns a wallet's native balance.
func (m *Memory) WalletBalance(address string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallets[strings.ToLower(address)]
}

func (m *Memory) HouseAddress() string { return m.house }

func (m *Memory) record(status TxStatus) string {
	m.seq++
	id := fmt.Sprintf("0x%064x", m.seq)
	m.txs[id] = status
	return id
}

// Deposit moves amount from the wallet into the house's contract balance.
func (m *Memory) Deposit(_ context.Context, secret string, amount decimal.Decimal) (string, error) {
	from, err := AddressOf(secret)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(from)
	if m.wallets[key].LessThan(amount) {
		return "", ErrInsufficientFunds
	}
	m.wallets[key] = m.wallets[key].Sub(amount)
	house := strings.ToLower(m.house)
	m.contract[house] = m.contract[house].Add(amount)
	return m.record(TxConfirmed), nil
}

// Withdraw pays amount from the house's contract balance to the wallet.
func (m *Memory) Withdraw(_ context.Context, to string, amount decimal.Decimal) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	house := strings.ToLower(m.house)
	if m.contract[house].LessThan(amount) {
		return "", ErrInsufficientFunds
	}
	m.contract[house] = m.contract[house].Sub(amount)
	key := strings.ToLower(to)
	m.wallets[key] = m.wallets[key].Add(amount)
	return m.record(TxConfirmed), nil
}

func (m *Memory) BalanceOf(_ context.Context, address string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contract[strings.ToLower(address)], nil
}

func (m *Memory) TransactionStatus(_ context.Context, txID string) (TxStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.txs[txID]
	if !ok {
		return TxPending, nil
	}
	return status, nil
}

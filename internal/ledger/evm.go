package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/config"
)

// escrowABI covers the three contract methods the bot calls.
const escrowABI = `[
	{"inputs":[],"name":"deposit","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"balances","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const transferGas uint64 = 21000

// EVM is a Ledger backed by the escrow contract on an Ethereum-compatible chain.
type EVM struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	houseKey *ecdsa.PrivateKey
	house    common.Address
	chainID  *big.Int
	gasLimit uint64
}

// Dial connects to the RPC endpoint and binds the escrow contract.
func Dial(ctx context.Context, cfg *config.LedgerConfig) (*EVM, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse house key: %w", ErrInvalidKey)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query chain id: %w", err)
		}
	}

	address := common.HexToAddress(cfg.ContractAddress)
	e := &EVM{
		client:   client,
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		houseKey: key,
		house:    crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		gasLimit: cfg.GasLimit,
	}

	log.Info().
		Str("contract", address.Hex()).
		Str("house", e.house.Hex()).
		Str("chain_id", chainID.String()).
		Msg("Connected to settlement contract")

	return e, nil
}

// Close releases the RPC connection.
func (e *EVM) Close() {
	e.client.Close()
}

// HouseAddress returns the house signer address.
func (e *EVM) HouseAddress() string {
	return e.house.Hex()
}

func (e *EVM) transactor(ctx context.Context, key *ecdsa.PrivateKey) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, e.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = e.gasLimit
	return opts, nil
}

// Deposit calls deposit() from the user's wallet with amount attached.
func (e *EVM) Deposit(ctx context.Context, secret string, amount decimal.Decimal) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secret, "0x"))
	if err != nil {
		return "", ErrInvalidKey
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	wei := ToWei(amount)
	balance, err := e.client.BalanceAt(ctx, from, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read wallet balance: %w", err)
	}
	if balance.Cmp(wei) < 0 {
		return "", ErrInsufficientFunds
	}

	opts, err := e.transactor(ctx, key)
	if err != nil {
		return "", err
	}
	opts.Value = wei

	tx, err := e.contract.Transact(opts, "deposit")
	if err != nil {
		return "", fmt.Errorf("%w: deposit: %v", ErrTxFailed, err)
	}
	return tx.Hash().Hex(), nil
}

// Withdraw pulls amount out of the contract into the house account, waits
// for it to be mined, then forwards amount to the recipient.
func (e *EVM) Withdraw(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("%w: bad recipient %q", ErrTxFailed, to)
	}
	wei := ToWei(amount)

	opts, err := e.transactor(ctx, e.houseKey)
	if err != nil {
		return "", err
	}
	withdrawTx, err := e.contract.Transact(opts, "withdraw", wei)
	if err != nil {
		return "", fmt.Errorf("%w: withdraw: %v", ErrTxFailed, err)
	}
	receipt, err := bind.WaitMined(ctx, e.client, withdrawTx)
	if err != nil {
		return "", fmt.Errorf("%w: waiting for withdraw: %v", ErrConfirmTimeout, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: withdraw reverted", ErrTxFailed)
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.house)
	if err != nil {
		return "", fmt.Errorf("failed to get house nonce: %w", err)
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to suggest gas price: %w", err)
	}

	recipient := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &recipient,
		Value:    wei,
		Gas:      transferGas,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.chainID), e.houseKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transfer: %w", err)
	}
	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("%w: transfer: %v", ErrTxFailed, err)
	}
	return signed.Hash().Hex(), nil
}

// BalanceOf reads balances(address) from the contract.
func (e *EVM) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	var out []interface{}
	err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balances", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read contract balance: %w", err)
	}
	if len(out) != 1 {
		return decimal.Zero, fmt.Errorf("unexpected balances() result length %d", len(out))
	}
	wei, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balances() result type %T", out[0])
	}
	return FromWei(wei), nil
}

// TransactionStatus looks up the receipt of txID.
func (e *EVM) TransactionStatus(ctx context.Context, txID string) (TxStatus, error) {
	receipt, err := e.client.TransactionReceipt(ctx, common.HexToHash(txID))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return TxPending, nil
		}
		return "", fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return TxConfirmed, nil
	}
	return TxFailed, nil
}

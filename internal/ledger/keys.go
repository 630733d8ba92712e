package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Keypair is a freshly generated custodial wallet.
type Keypair struct {
	Address string
	Secret  string
}

// GenerateKeypair creates a new secp256k1 key and its address.
func GenerateKeypair() (Keypair, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to generate key: %w", err)
	}
	return Keypair{
		Address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Secret:  hex.EncodeToString(crypto.FromECDSA(key)),
	}, nil
}

// AddressOf derives the address controlled by a hex secret.
func AddressOf(secret string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secret, "0x"))
	if err != nil {
		return "", ErrInvalidKey
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

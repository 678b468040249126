// Package ethereum contains the chain-facing collaborators of the
// execution context: wallet resolution, calldata encoding, balance
// reads, and transaction submission.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dexter-bot/dexter/business/execution/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/config"
)

// WalletResolver resolves the agent-wallet placeholder and validates
// recipient addresses. The private key is read from the environment
// on first use and never logged.
type WalletResolver struct {
	cfg config.WalletConfig

	mu      sync.Mutex
	key     *ecdsa.PrivateKey
	address common.Address
	loaded  bool
}

// NewWalletResolver creates a resolver from wallet configuration.
func NewWalletResolver(cfg config.WalletConfig) *WalletResolver {
	return &WalletResolver{cfg: cfg}
}

// Resolve maps a recipient string to a checksummed address. The
// placeholder resolves to the agent's own wallet.
func (w *WalletResolver) Resolve(_ context.Context, recipient string) (common.Address, error) {
	if strings.EqualFold(recipient, domain.WalletPlaceholder) {
		return w.ownAddress()
	}
	if !common.IsHexAddress(recipient) {
		return common.Address{}, apperror.New(apperror.CodeUnresolvedRecipient,
			apperror.WithContext(fmt.Sprintf("recipient %q is not a valid address", recipient)))
	}
	return common.HexToAddress(recipient), nil
}

// OwnAddress returns the agent's wallet address, from config or derived
// from the private key.
func (w *WalletResolver) OwnAddress(_ context.Context) (common.Address, error) {
	return w.ownAddress()
}

// PrivateKey returns the signing key for submission.
func (w *WalletResolver) PrivateKey() (*ecdsa.PrivateKey, error) {
	if _, err := w.ownAddress(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key == nil {
		return nil, apperror.New(apperror.CodeWalletNotConfigured,
			apperror.WithContext("wallet address configured without a private key"))
	}
	return w.key, nil
}

func (w *WalletResolver) ownAddress() (common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loaded {
		return w.address, nil
	}

	raw := os.Getenv(w.cfg.PrivateKeyEnv)
	if raw != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return common.Address{}, apperror.New(apperror.CodeInvalidPrivateKey,
				apperror.WithContext(fmt.Sprintf("invalid key in %s", w.cfg.PrivateKeyEnv)))
		}
		w.key = key
		w.address = crypto.PubkeyToAddress(key.PublicKey)
		w.loaded = true
		return w.address, nil
	}

	if common.IsHexAddress(w.cfg.Address) {
		w.address = common.HexToAddress(w.cfg.Address)
		w.loaded = true
		return w.address, nil
	}

	return common.Address{}, apperror.New(apperror.CodeWalletNotConfigured,
		apperror.WithContext(fmt.Sprintf("no wallet address configured and %s not set", w.cfg.PrivateKeyEnv)))
}

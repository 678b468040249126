package ethereum

import (
	"context"
	"errors"
	"testing"

	"github.com/dexter-bot/dexter/business/execution/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/config"
)

// Address derived from the private key 0x...01.
const (
	keyOne        = "0000000000000000000000000000000000000000000000000000000000000001"
	keyOneAddress = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
)

func TestResolve_PlaceholderUsesOwnWallet(t *testing.T) {
	t.Setenv("TEST_WALLET_KEY", keyOne)
	w := NewWalletResolver(config.WalletConfig{PrivateKeyEnv: "TEST_WALLET_KEY"})

	for _, recipient := range []string{
		"0xYourWalletAddress",
		"0xyourwalletaddress",
		"0xYOURWALLETADDRESS",
	} {
		addr, err := w.Resolve(context.Background(), recipient)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", recipient, err)
		}
		if addr.Hex() != keyOneAddress {
			t.Errorf("Resolve(%q) = %s, want %s", recipient, addr.Hex(), keyOneAddress)
		}
	}
}

func TestResolve_HexAddressPassesThrough(t *testing.T) {
	w := NewWalletResolver(config.WalletConfig{PrivateKeyEnv: "TEST_WALLET_KEY_UNSET"})

	addr, err := w.Resolve(context.Background(), keyOneAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Hex() != keyOneAddress {
		t.Errorf("got %s, want %s", addr.Hex(), keyOneAddress)
	}
}

func TestResolve_RejectsGarbage(t *testing.T) {
	w := NewWalletResolver(config.WalletConfig{PrivateKeyEnv: "TEST_WALLET_KEY_UNSET"})

	_, err := w.Resolve(context.Background(), "vitalik.eth")
	if err == nil {
		t.Fatal("expected error for non-hex recipient")
	}
	if !errors.Is(err, apperror.New(apperror.CodeUnresolvedRecipient)) {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeUnresolvedRecipient)
	}
}

func TestOwnAddress_KeyWithHexPrefix(t *testing.T) {
	t.Setenv("TEST_WALLET_KEY", "0x"+keyOne)
	w := NewWalletResolver(config.WalletConfig{PrivateKeyEnv: "TEST_WALLET_KEY"})

	addr, err := w.OwnAddress(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Hex() != keyOneAddress {
		t.Errorf("got %s, want %s", addr.Hex(), keyOneAddress)
	}
}

func TestOwnAddress_InvalidKey(t *testing.T) {
	t.Setenv("TEST_WALLET_KEY", "not-a-key")
	w := NewWalletResolver(config.WalletConfig{PrivateKeyEnv: "TEST_WALLET_KEY"})

	_, err := w.OwnAddress(context.Background())
	if apperror.GetCode(err) != apperror.CodeInvalidPrivateKey {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeInvalidPrivateKey)
	}
}

func TestOwnAddress_FallsBackToConfiguredAddress(t *testing.T) {
	w := NewWalletResolver(config.WalletConfig{
		Address:       keyOneAddress,
		PrivateKeyEnv: "TEST_WALLET_KEY_UNSET",
	})

	addr, err := w.OwnAddress(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Hex() != keyOneAddress {
		t.Errorf("got %s, want %s", addr.Hex(), keyOneAddress)
	}

	// Address-only configuration can observe but not sign.
	if _, err := w.PrivateKey(); apperror.GetCode(err) != apperror.CodeWalletNotConfigured {
		t.Errorf("PrivateKey code = %s, want %s", apperror.GetCode(err), apperror.CodeWalletNotConfigured)
	}
}

func TestOwnAddress_Unconfigured(t *testing.T) {
	w := NewWalletResolver(config.WalletConfig{PrivateKeyEnv: "TEST_WALLET_KEY_UNSET"})

	_, err := w.OwnAddress(context.Background())
	if apperror.GetCode(err) != apperror.CodeWalletNotConfigured {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeWalletNotConfigured)
	}
}

func TestWalletPlaceholderConstant(t *testing.T) {
	if domain.WalletPlaceholder != "0xYourWalletAddress" {
		t.Errorf("placeholder = %q", domain.WalletPlaceholder)
	}
}

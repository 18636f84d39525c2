package main

import (
	"errors"
	"fmt"

	"github.com/krause-dao/krause-contract/internal/config"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
)

// openAccount reads NEP-6 wallet and returns the configured account, or the
// first one if no account is configured. The account is decrypted only if
// unlock is set.
func openAccount(cfg config.Wallet, unlock bool) (*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}

	var acc *wallet.Account

	if cfg.Account != "" {
		h, err := address.StringToUint160(cfg.Account)
		if err != nil {
			return nil, fmt.Errorf("decode account address: %w", err)
		}

		acc = w.GetAccount(h)
		if acc == nil {
			return nil, fmt.Errorf("account %s not found in the wallet", cfg.Account)
		}
	} else {
		if len(w.Accounts) == 0 {
			return nil, errors.New("wallet has no accounts")
		}

		acc = w.Accounts[0]
	}

	if unlock {
		err = acc.Decrypt(cfg.Password, w.Scrypt)
		if err != nil {
			return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
		}
	}

	return acc, nil
}

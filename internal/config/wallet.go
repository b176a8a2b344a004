package config

import "os"

// WalletConfig holds the embedded signing key. When unset the engine only
// serves the external signing path.
type WalletConfig struct {
	// PrivateKey is the base58-encoded embedded wallet key.
	PrivateKey string
}

func (wc *WalletConfig) Key() string {
	return WALLET_CONFIG_KEY
}

func (wc *WalletConfig) Load() error {
	wc.PrivateKey = os.Getenv("WALLET_PRIVATE_KEY")
	return nil
}

func (wc *WalletConfig) Validate() error {
	return nil
}

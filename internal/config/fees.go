package config

import (
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

// FeeConfig tunes priority-fee pricing and confirmation polling.
type FeeConfig struct {
	// BaseFeeMicroLamports is the static fallback base unit price used
	// when the recent-fee RPC is unavailable.
	BaseFeeMicroLamports uint64

	// ConfirmTimeout is the default confirmation-poll bound for requests
	// that do not set their own.
	ConfirmTimeout time.Duration
}

func (fc *FeeConfig) Key() string {
	return FEE_CONFIG_KEY
}

func (fc *FeeConfig) Load() error {
	fc.BaseFeeMicroLamports = uint64(common.GetEnvOrDefaultInt("BASE_FEE_MICROLAMPORTS", 1000))
	fc.ConfirmTimeout = time.Duration(common.GetEnvOrDefaultInt("CONFIRM_TIMEOUT_SEC", 60)) * time.Second
	return nil
}

func (fc *FeeConfig) Validate() error {
	return nil
}

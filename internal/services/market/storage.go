package market

import (
	"fmt"
	"os"
	"path/filepath"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

const (
	TokensBucket = "tokens"

	DefaultDBPath = "./data/trade-engine.db"
)

// StoredToken is the on-disk shape of a resolved token.
type StoredToken struct {
	Mint         string `json:"mint"`
	Decimals     uint8  `json:"decimals"`
	TokenProgram string `json:"tokenProgram"`
	Supply       uint64 `json:"supply,omitempty"`
}

// TokenStore persists resolved token metadata so restarts do not re-resolve
// every mint over RPC. It never stores trades.
type TokenStore struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewTokenStore(dbPath string) (*TokenStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[tokenStore] opened database")

	return &TokenStore{db: db, dbPath: dbPath}, nil
}

func (s *TokenStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *TokenStore) Save(info *TokenInfo) error {
	stored := &StoredToken{
		Mint:         info.Mint.String(),
		Decimals:     info.Decimals,
		TokenProgram: info.TokenProgram.String(),
		Supply:       info.Supply,
	}
	data, err := sonic.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	return s.db.Set(TokensBucket, []byte(stored.Mint), data)
}

func (s *TokenStore) LoadAll() ([]*TokenInfo, error) {
	data, err := s.db.List(TokensBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	infos := make([]*TokenInfo, 0, len(data))
	skipped := 0
	for key, value := range data {
		var stored StoredToken
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Warn().Str("mint", key).Err(err).Msg("[tokenStore] failed to unmarshal token, skipping")
			skipped++
			continue
		}

		mint, err := solana.PublicKeyFromBase58(stored.Mint)
		if err != nil {
			log.Warn().Str("mint", stored.Mint).Err(err).Msg("[tokenStore] invalid mint address, skipping")
			skipped++
			continue
		}
		program, err := solana.PublicKeyFromBase58(stored.TokenProgram)
		if err != nil {
			log.Warn().Str("mint", stored.Mint).Err(err).Msg("[tokenStore] invalid token program, skipping")
			skipped++
			continue
		}

		infos = append(infos, &TokenInfo{
			Mint:         mint,
			Decimals:     stored.Decimals,
			TokenProgram: program,
			Supply:       stored.Supply,
		})
	}

	log.Info().Int("loaded", len(infos)).Int("skipped", skipped).Msg("[tokenStore] token loading completed")
	return infos, nil
}

package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/endorhq/endor/internal/database"
	"github.com/endorhq/endor/pkg/crypto"
)

const (
	jwtSecretBytes   = 48
	vaultSecretBytes = 32
)

// SecretResolver returns configured when non-empty, otherwise a persisted value for key,
// calling generate the first time. The boolean reports whether generate ran.
type SecretResolver func(ctx context.Context, key, configured string, generate func() (string, error)) (string, bool, error)

// ResolveRuntimeSecrets fills the JWT secret and vault master key so a fresh install
// boots without a configuration file and keeps the same secrets across restarts. It
// returns the keys that were generated so callers can log the event without exposing
// values.
func ResolveRuntimeSecrets(ctx context.Context, cfg *Config, resolve SecretResolver) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if resolve == nil {
		return nil, fmt.Errorf("secret resolver is nil")
	}

	generated := make(map[string]bool)

	secret, created, err := resolve(ctx, database.JWTSecretSetting, cfg.Auth.JWT.Secret, func() (string, error) {
		return crypto.GenerateToken(jwtSecretBytes)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve jwt secret: %w", err)
	}
	cfg.Auth.JWT.Secret = secret
	if created {
		generated[database.JWTSecretSetting] = true
	}

	key, created, err := resolve(ctx, database.VaultMasterKeySetting, cfg.Vault.MasterKey, func() (string, error) {
		return generateHexKey(vaultSecretBytes)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve vault master key: %w", err)
	}
	cfg.Vault.MasterKey = key
	if created {
		generated[database.VaultMasterKeySetting] = true
	}

	return generated, nil
}

func generateHexKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

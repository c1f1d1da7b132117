package app

import (
	"github.com/endorhq/endor/internal/auth"
	"github.com/endorhq/endor/internal/vault"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// KDFParams converts the configured Argon2id costs, falling back to the vault defaults
// for any zero value.
func (c VaultConfig) KDFParams() vault.KDFParams {
	params := vault.DefaultKDFParams()
	if c.KDF.Time > 0 {
		params.Time = c.KDF.Time
	}
	if c.KDF.MemoryKiB > 0 {
		params.Memory = c.KDF.MemoryKiB
	}
	if c.KDF.Threads > 0 {
		params.Threads = c.KDF.Threads
	}
	return params
}

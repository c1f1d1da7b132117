package vault

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/endorhq/endor/pkg/crypto"
)

const minSaltLength = 16

// KDFParams controls the Argon2id cost factors used to derive the token key.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams returns the parameters used when none are configured.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:    2,
		Memory:  64 * 1024,
		Threads: 4,
	}
}

func (p KDFParams) validate() error {
	if p.Time == 0 {
		return errors.New("vault: kdf time cost must be greater than zero")
	}
	if p.Threads == 0 {
		return errors.New("vault: kdf parallelism must be greater than zero")
	}
	if p.Memory < 8*uint32(p.Threads) {
		return errors.New("vault: kdf memory cost must be at least 8 * threads")
	}
	return nil
}

// Cipher encrypts integration tokens at rest. Each ciphertext is bound to a scope
// (owner and provider) so a stored token cannot be replayed onto another row.
type Cipher struct {
	key []byte
}

type cipherConfig struct {
	params KDFParams
	salt   []byte
}

// Option configures the Cipher.
type Option func(*cipherConfig)

// WithSalt overrides the salt used for key derivation.
func WithSalt(salt []byte) Option {
	cp := append([]byte(nil), salt...)
	return func(cfg *cipherConfig) {
		cfg.salt = cp
	}
}

// WithKDFParams overrides the Argon2id parameters.
func WithKDFParams(params KDFParams) Option {
	return func(cfg *cipherConfig) {
		cfg.params = params
	}
}

// NewCipher derives a 256-bit AES key from the master key.
func NewCipher(masterKey []byte, opts ...Option) (*Cipher, error) {
	if len(masterKey) == 0 {
		return nil, errors.New("vault: master key is required")
	}

	cfg := cipherConfig{params: DefaultKDFParams()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.params.validate(); err != nil {
		return nil, err
	}
	if len(cfg.salt) == 0 {
		sum := sha256.Sum256(masterKey)
		cfg.salt = sum[:minSaltLength]
	} else if len(cfg.salt) < minSaltLength {
		return nil, fmt.Errorf("vault: salt must be at least %d bytes (got %d)", minSaltLength, len(cfg.salt))
	}

	key := argon2.IDKey(masterKey, cfg.salt, cfg.params.Time, cfg.params.Memory, cfg.params.Threads, 32)
	return &Cipher{key: key}, nil
}

// EncryptToken seals a token for the given scope.
func (c *Cipher) EncryptToken(token, scope string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", errors.New("vault: token is required")
	}
	return crypto.EncryptWithAAD([]byte(token), c.key, []byte(scope))
}

// DecryptToken opens a token sealed with EncryptToken for the same scope.
func (c *Cipher) DecryptToken(ciphertext, scope string) (string, error) {
	plain, err := crypto.DecryptWithAAD(ciphertext, c.key, []byte(scope))
	if err != nil {
		return "", fmt.Errorf("vault: decrypt token: %w", err)
	}
	return string(plain), nil
}

// Scope builds the associated-data label for a user's provider credential.
func Scope(userID, provider string) string {
	return userID + ":" + provider
}

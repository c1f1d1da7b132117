package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/endorhq/endor/internal/models"
)

// Keys for secrets generated on first boot and reused afterwards.
const (
	VaultMasterKeySetting = "vault.master_key"
	JWTSecretSetting      = "auth.jwt.secret"
)

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", errors.New("system settings: db is nil")
	}

	var setting models.SystemSetting
	// Struct conditions keep the column quoted; "key" is reserved in MySQL.
	err := db.WithContext(ctx).Where(&models.SystemSetting{Key: key}).Take(&setting).Error
	switch {
	case err == nil:
		return setting.Value, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	default:
		return "", fmt.Errorf("system settings: get %q: %w", key, err)
	}
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return errors.New("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("system settings: key is required")
	}

	record := models.SystemSetting{Key: key, Value: value}
	if err := db.WithContext(ctx).
		Where(&models.SystemSetting{Key: key}).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}
	return nil
}

// ResolveSecret returns configured when set. Otherwise it returns the value persisted
// under key, generating and storing a fresh one on first use. The boolean reports
// whether a new secret was generated.
func ResolveSecret(ctx context.Context, db *gorm.DB, key, configured string, generate func() (string, error)) (string, bool, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured, false, nil
	}

	stored, err := GetSystemSetting(ctx, db, key)
	if err != nil {
		return "", false, err
	}
	if stored = strings.TrimSpace(stored); stored != "" {
		return stored, false, nil
	}

	if generate == nil {
		return "", false, fmt.Errorf("system settings: no value for %q", key)
	}
	secret, err := generate()
	if err != nil {
		return "", false, fmt.Errorf("system settings: generate %q: %w", key, err)
	}
	if err := UpsertSystemSetting(ctx, db, key, secret); err != nil {
		return "", false, err
	}
	return secret, true, nil
}

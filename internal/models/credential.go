package models

import "time"

// Credential stores an encrypted third-party access token for a user.
type Credential struct {
	BaseModel

	UserID           string     `gorm:"type:uuid;not null;uniqueIndex:idx_credentials_user_provider" json:"user_id"`
	Provider         string     `gorm:"size:32;not null;uniqueIndex:idx_credentials_user_provider" json:"provider"`
	EncryptedToken   string     `gorm:"type:text;not null" json:"-"`
	ExternalUsername string     `json:"external_username,omitempty"`
	ConnectedAt      time.Time  `json:"connected_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

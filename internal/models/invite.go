package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InviteStatus is the lifecycle state of an invite. Open is the only non-terminal state.
type InviteStatus string

const (
	InviteOpen      InviteStatus = "open"
	InviteAccepted  InviteStatus = "accepted"
	InviteDeclined  InviteStatus = "declined"
	InviteRescinded InviteStatus = "rescinded"
	InviteExpired   InviteStatus = "expired"
)

// DefaultInviteExpirationDays applies when a request omits the expiration window.
const DefaultInviteExpirationDays = 30

var inviteStatuses = []InviteStatus{InviteOpen, InviteAccepted, InviteDeclined, InviteRescinded, InviteExpired}

// InviteStatuses returns every recognised status in lifecycle order.
func InviteStatuses() []InviteStatus {
	out := make([]InviteStatus, len(inviteStatuses))
	copy(out, inviteStatuses)
	return out
}

// InviteStatusList renders the valid statuses as a comma separated list.
func InviteStatusList() string {
	names := make([]string, len(inviteStatuses))
	for i, s := range inviteStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Valid reports whether s is one of the five recognised statuses.
func (s InviteStatus) Valid() bool {
	for _, candidate := range inviteStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are permitted from s.
func (s InviteStatus) Terminal() bool {
	return s != InviteOpen
}

// ParseInviteStatus converts raw input into an InviteStatus. Matching is exact.
func ParseInviteStatus(raw string) (InviteStatus, error) {
	status := InviteStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("invalid invite status %q", raw)
	}
	return status, nil
}

// Invite offers a user a contributor seat on a project.
type Invite struct {
	ID                              string       `gorm:"primaryKey;type:uuid" json:"id"`
	ProjectInvitedToID              string       `gorm:"type:uuid;not null;index" json:"project_invited_to_id"`
	UserInvitedID                   string       `gorm:"type:uuid;not null;index" json:"user_invited_id"`
	ProjectName                     string       `gorm:"not null" json:"project_name"`
	Status                          InviteStatus `gorm:"size:16;not null;index;check:chk_invites_status,status IN ('open','accepted','declined','rescinded','expired')" json:"status"`
	DaysFromCreationUntilExpiration int          `gorm:"not null" json:"days_from_creation_until_expiration"`
	CreatedAt                       time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt                       time.Time    `json:"updated_at"`

	ProjectInvitedTo *Project `gorm:"foreignKey:ProjectInvitedToID;constraint:OnDelete:CASCADE" json:"-"`
	UserInvited      *User    `gorm:"foreignKey:UserInvitedID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when none was supplied.
func (i *Invite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// ExpiresAt returns the instant the invite window closes.
func (i *Invite) ExpiresAt() time.Time {
	return i.CreatedAt.UTC().AddDate(0, 0, i.DaysFromCreationUntilExpiration)
}

package handlers

import (
	"time"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/services"
)

type userDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func mapUser(user *models.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
	}
}

func mapUsers(users []models.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for i := range users {
		out = append(out, mapUser(&users[i]))
	}
	return out
}

type inviteDTO struct {
	models.Invite
	ExpirationDate string    `json:"expiration_date"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func mapInvite(invite *models.Invite) inviteDTO {
	return inviteDTO{
		Invite:         *invite,
		ExpirationDate: services.ComputeExpirationDate(invite.CreatedAt, invite.DaysFromCreationUntilExpiration),
		ExpiresAt:      invite.ExpiresAt(),
	}
}

func mapInvites(invites []models.Invite) []inviteDTO {
	out := make([]inviteDTO, 0, len(invites))
	for i := range invites {
		out = append(out, mapInvite(&invites[i]))
	}
	return out
}

type credentialDTO struct {
	Provider         string     `json:"provider"`
	ExternalUsername string     `json:"external_username,omitempty"`
	ConnectedAt      time.Time  `json:"connected_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

func mapCredential(credential *models.Credential) credentialDTO {
	return credentialDTO{
		Provider:         credential.Provider,
		ExternalUsername: credential.ExternalUsername,
		ConnectedAt:      credential.ConnectedAt,
		ExpiresAt:        credential.ExpiresAt,
	}
}

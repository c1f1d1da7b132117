package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))
	require.NotEmpty(t, base.ID)

	base.ID = "fixed"
	require.NoError(t, base.BeforeCreate(nil))
	require.Equal(t, "fixed", base.ID)
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"user", func() *BaseModel { u := &User{}; return &u.BaseModel }},
		{"project", func() *BaseModel { p := &Project{}; return &p.BaseModel }},
		{"credential", func() *BaseModel { c := &Credential{}; return &c.BaseModel }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := tc.model()
			require.NoError(t, model.BeforeCreate(nil))
			require.NotEmpty(t, model.ID)
		})
	}
}

func TestInviteBeforeCreateGeneratesID(t *testing.T) {
	invite := &Invite{}
	require.NoError(t, invite.BeforeCreate(nil))
	require.NotEmpty(t, invite.ID)
}

func TestInviteStatusValid(t *testing.T) {
	for _, status := range InviteStatuses() {
		require.True(t, status.Valid(), status)
	}
	for _, raw := range []string{"", "OPEN", "pending", "closed"} {
		require.False(t, InviteStatus(raw).Valid(), raw)
	}
}

func TestInviteStatusTerminal(t *testing.T) {
	require.False(t, InviteOpen.Terminal())
	for _, status := range []InviteStatus{InviteAccepted, InviteDeclined, InviteRescinded, InviteExpired} {
		require.True(t, status.Terminal(), status)
	}
}

func TestParseInviteStatus(t *testing.T) {
	status, err := ParseInviteStatus("rescinded")
	require.NoError(t, err)
	require.Equal(t, InviteRescinded, status)

	_, err = ParseInviteStatus("Rescinded")
	require.Error(t, err)
}

func TestInviteStatusList(t *testing.T) {
	require.Equal(t, "open, accepted, declined, rescinded, expired", InviteStatusList())
}

func TestInviteStatusesReturnsCopy(t *testing.T) {
	statuses := InviteStatuses()
	statuses[0] = "mutated"
	require.Equal(t, InviteOpen, InviteStatuses()[0])
}

func TestInviteExpiresAt(t *testing.T) {
	created := time.Date(2016, 2, 14, 9, 0, 0, 0, time.UTC)
	invite := &Invite{CreatedAt: created, DaysFromCreationUntilExpiration: 15}
	require.Equal(t, time.Date(2016, 2, 29, 9, 0, 0, 0, time.UTC), invite.ExpiresAt())
}

func TestProjectRoleTables(t *testing.T) {
	require.Equal(t, "project_owners", RoleOwner.JoinTable())
	require.Equal(t, "project_contributors", RoleContributor.JoinTable())
}

func TestProjectToolIDsSkipsEmpty(t *testing.T) {
	ci := "travis"
	empty := ""
	project := &Project{CIToolID: &ci, ORMToolID: &empty}
	require.Equal(t, map[string]string{"ci_tool_id": "travis"}, project.ToolIDs())
}

func TestUserMatchesAndDisplayName(t *testing.T) {
	user := &User{BaseModel: BaseModel{ID: "a1"}, Username: "leo", FirstName: "Leonardo"}
	require.True(t, user.Matches("a1"))
	require.True(t, user.Matches("leo"))
	require.False(t, user.Matches("Leo"))
	require.False(t, user.Matches(""))
	require.Equal(t, "Leonardo", user.DisplayName())

	user.LastName = "Turtle"
	require.Equal(t, "Leonardo Turtle", user.DisplayName())

	var nilUser *User
	require.False(t, nilUser.Matches("a1"))
}

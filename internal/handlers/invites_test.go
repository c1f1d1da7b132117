package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/endorhq/endor/internal/handlers/testutil"
	"github.com/endorhq/endor/internal/models"
)

type invitePayload struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_invited_to_id"`
	UserID         string    `json:"user_invited_id"`
	ProjectName    string    `json:"project_name"`
	Status         string    `json:"status"`
	Days           int       `json:"days_from_creation_until_expiration"`
	CreatedAt      time.Time `json:"created_at"`
	ExpirationDate string    `json:"expiration_date"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func decodeInvite(t *testing.T, env *testutil.Env, method, path string, body any, token string, status int) invitePayload {
	t.Helper()
	w := env.Request(method, path, body, token)
	require.Equal(t, status, w.Code, w.Body.String())

	var invite invitePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &invite)
	return invite
}

func createInvite(t *testing.T, env *testutil.Env, token, projectID, userID string, days any) invitePayload {
	t.Helper()
	body := map[string]any{
		"project_invited_to_id": projectID,
		"user_invited_id":       userID,
	}
	if days != nil {
		body["days_from_creation_until_expiration"] = days
	}
	return decodeInvite(t, env, http.MethodPost, "/api/invites", body, token, http.StatusCreated)
}

func TestInviteHandler_CreateDefaultsProjectNameAndWindow(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")
	project := createProject(t, env, alice.AccessToken, "observatory")

	invite := createInvite(t, env, alice.AccessToken, project.ID, bob.User.ID, nil)
	require.Equal(t, "observatory", invite.ProjectName)
	require.Equal(t, "open", invite.Status)
	require.Equal(t, 30, invite.Days)
	require.Equal(t, invite.CreatedAt.UTC().AddDate(0, 0, 30).Format("2 January 2006"), invite.ExpirationDate)
	require.True(t, invite.ExpiresAt.Equal(invite.CreatedAt.AddDate(0, 0, 30)))

	expired := createInvite(t, env, alice.AccessToken, project.ID, bob.User.ID, 0)
	require.Equal(t, "expired", expired.Status)
}

func TestInviteHandler_CreateValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")
	project := createProject(t, env, alice.AccessToken, "observatory")

	cases := []struct {
		name   string
		body   map[string]any
		token  string
		status int
		code   string
	}{
		{
			name:   "string days",
			body:   map[string]any{"project_invited_to_id": project.ID, "user_invited_id": bob.User.ID, "days_from_creation_until_expiration": "7"},
			token:  alice.AccessToken,
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "negative days",
			body:   map[string]any{"project_invited_to_id": project.ID, "user_invited_id": bob.User.ID, "days_from_creation_until_expiration": -1},
			token:  alice.AccessToken,
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "missing user",
			body:   map[string]any{"project_invited_to_id": project.ID},
			token:  alice.AccessToken,
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "unknown user",
			body:   map[string]any{"project_invited_to_id": project.ID, "user_invited_id": "00000000-0000-0000-0000-000000000000"},
			token:  alice.AccessToken,
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "unknown project",
			body:   map[string]any{"project_invited_to_id": "00000000-0000-0000-0000-000000000000", "user_invited_id": bob.User.ID},
			token:  alice.AccessToken,
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "caller not owner",
			body:   map[string]any{"project_invited_to_id": project.ID, "user_invited_id": bob.User.ID},
			token:  bob.AccessToken,
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.Request(http.MethodPost, "/api/invites", tc.body, tc.token)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			require.Equal(t, tc.code, testutil.ErrorCode(t, w))
		})
	}
}

func TestInviteHandler_AcceptAddsContributor(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")
	project := createProject(t, env, alice.AccessToken, "observatory")
	invite := createInvite(t, env, alice.AccessToken, project.ID, bob.User.ID, 7)

	fetched := decodeInvite(t, env, http.MethodGet, "/api/invites/"+invite.ID, nil, bob.AccessToken, http.StatusOK)
	require.Equal(t, invite.ID, fetched.ID)

	w := env.Request(http.MethodPatch, "/api/invites/"+invite.ID, map[string]string{"status": "accepted"}, alice.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code, "only the invitee accepts")

	accepted := decodeInvite(t, env, http.MethodPatch, "/api/invites/"+invite.ID,
		map[string]string{"status": "accepted"}, bob.AccessToken, http.StatusOK)
	require.Equal(t, "accepted", accepted.Status)

	require.Equal(t, []string{"bob"}, members(t, env, "/api/projects/"+project.ID+"/contributors", alice.AccessToken))

	w = env.Request(http.MethodPatch, "/api/invites/"+invite.ID, map[string]string{"status": "declined"}, bob.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code, "terminal invites cannot move")
	require.Equal(t, "INVALID_REQUEST", testutil.ErrorCode(t, w))
}

func TestInviteHandler_AcceptOnDeletedProjectLeavesInviteOpen(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")
	project := createProject(t, env, alice.AccessToken, "observatory")
	invite := createInvite(t, env, alice.AccessToken, project.ID, bob.User.ID, 7)

	w := env.Request(http.MethodDelete, "/api/projects/"+project.ID, nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPatch, "/api/invites/"+invite.ID, map[string]string{"status": "accepted"}, bob.AccessToken)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	require.Equal(t, "INVITE_NOT_FOUND", testutil.ErrorCode(t, w))

	w = env.Request(http.MethodGet, "/api/invites/"+invite.ID, nil, bob.AccessToken)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodGet, "/api/users/"+bob.User.ID+"/invites", nil, bob.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listed []invitePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &listed)
	require.Empty(t, listed)

	var stored models.Invite
	require.NoError(t, env.DB.Take(&stored, "id = ?", invite.ID).Error)
	require.Equal(t, models.InviteOpen, stored.Status)

	var seats int64
	require.NoError(t, env.DB.Table(models.RoleContributor.JoinTable()).
		Where("project_id = ? AND user_id = ?", project.ID, bob.User.ID).
		Count(&seats).Error)
	require.Zero(t, seats)
}

func TestInviteHandler_DeclineAndRescind(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")
	carol := env.Register("carol")
	project := createProject(t, env, alice.AccessToken, "observatory")

	declined := createInvite(t, env, alice.AccessToken, project.ID, bob.User.ID, 7)
	out := decodeInvite(t, env, http.MethodPatch, "/api/invites/"+declined.ID,
		map[string]string{"status": "declined"}, bob.AccessToken, http.StatusOK)
	require.Equal(t, "declined", out.Status)
	require.Empty(t, members(t, env, "/api/projects/"+project.ID+"/contributors", alice.AccessToken))

	rescinded := createInvite(t, env, alice.AccessToken, project.ID, carol.User.ID, 7)

	w := env.Request(http.MethodPatch, "/api/invites/"+rescinded.ID, map[string]string{"status": "rescinded"}, carol.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code, "invitees cannot rescind")

	w = env.Request(http.MethodGet, "/api/invites/"+rescinded.ID, nil, bob.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code, "outsiders cannot read")

	out = decodeInvite(t, env, http.MethodPatch, "/api/invites/"+rescinded.ID,
		map[string]string{"status": "rescinded"}, alice.AccessToken, http.StatusOK)
	require.Equal(t, "rescinded", out.Status)
}

func TestInviteHandler_UpdateValidatesStatus(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")
	project := createProject(t, env, alice.AccessToken, "observatory")
	invite := createInvite(t, env, alice.AccessToken, project.ID, bob.User.ID, 7)

	w := env.Request(http.MethodPatch, "/api/invites/"+invite.ID, map[string]string{"status": "maybe"}, bob.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, "status", resp.Error.Details[0].Field)

	w = env.Request(http.MethodPatch, "/api/invites/"+invite.ID, map[string]any{}, bob.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodPatch, "/api/invites/00000000-0000-0000-0000-000000000000", map[string]string{"status": "accepted"}, bob.AccessToken)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "INVITE_NOT_FOUND", testutil.ErrorCode(t, w))
}

func TestInviteHandler_Listings(t *testing.T) {
	env := testutil.NewEnv(t)
	alice := env.Register("alice")
	bob := env.Register("bob")
	project := createProject(t, env, alice.AccessToken, "observatory")

	open := createInvite(t, env, alice.AccessToken, project.ID, bob.User.ID, 7)
	createInvite(t, env, alice.AccessToken, project.ID, bob.User.ID, 0)

	list := func(path, token string) []invitePayload {
		t.Helper()
		w := env.Request(http.MethodGet, path, nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var invites []invitePayload
		testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &invites)
		return invites
	}

	require.Len(t, list("/api/projects/"+project.ID+"/invites", alice.AccessToken), 2)

	openOnly := list("/api/users/bob/invites?status=open", bob.AccessToken)
	require.Len(t, openOnly, 1)
	require.Equal(t, open.ID, openOnly[0].ID)

	w := env.Request(http.MethodGet, "/api/projects/"+project.ID+"/invites", nil, bob.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodGet, "/api/projects/"+project.ID+"/invites?status=bogus", nil, alice.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

package invitectl

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteIssue(t *testing.T) {
	svc := newFakeService(t, map[string]cannedResponse{
		"POST /v1/invites": {http.StatusCreated, `{"ok":true,"invite_id":"01JTINVITE","token":"ABCDEFGHJKLMNPQR","expires_at":"2026-05-11T10:00:00Z","max_uses":3}`},
	})

	out, err := run(t, "--server", svc.URL, "--token", "owner", "invite", "issue", "prop-fitzroy",
		"--ttl", "48h", "--max-uses", "3", "--email", "sam@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "token:    ABCDEFGHJKLMNPQR")

	body := svc.last(t).Body
	assert.Equal(t, "prop-fitzroy", body["property_id"])
	assert.EqualValues(t, 48*3600, body["ttl_seconds"])
	assert.EqualValues(t, 3, body["max_uses"])
	assert.Equal(t, "sam@example.com", body["intended_email"])
}

func TestInviteIssue_FractionalTTL(t *testing.T) {
	_, err := run(t, "--server", "http://127.0.0.1:0", "invite", "issue", "prop-fitzroy", "--ttl", "1500ms")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestInviteList(t *testing.T) {
	svc := newFakeService(t, map[string]cannedResponse{
		"GET /v1/properties/prop-fitzroy/invites": {http.StatusOK, `{"ok":true,"invites":[
			{"id":"01JTA","status":"active","max_uses":2,"use_count":1,"remaining":1,"bound":false,"created_at":"2026-05-01T10:00:00Z","expires_at":"2026-05-08T10:00:00Z"},
			{"id":"01JTB","status":"revoked","max_uses":1,"use_count":0,"remaining":1,"bound":true,"created_at":"2026-05-02T10:00:00Z","expires_at":"2026-05-09T10:00:00Z"}
		]}`},
	})

	out, err := run(t, "--server", svc.URL, "invite", "list", "prop-fitzroy")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "01JTA")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "revoked")
}

func TestInviteRevoke(t *testing.T) {
	svc := newFakeService(t, map[string]cannedResponse{
		"POST /v1/invites/revoke": {http.StatusOK, `{"ok":true}`},
	})

	out, err := run(t, "--server", svc.URL, "invite", "revoke", "01JTA")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked 01JTA")
	assert.Equal(t, "01JTA", svc.last(t).Body["token_id"])
}

func TestInviteValidate_Expired(t *testing.T) {
	svc := newFakeService(t, map[string]cannedResponse{
		"POST /v1/invites/validate": {http.StatusGone, `{"ok":false,"reason":"expired"}`},
	})

	_, err := run(t, "--server", svc.URL, "invite", "validate", "ABCDEFGHJKLMNPQR")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Empty(t, svc.last(t).Auth)
}

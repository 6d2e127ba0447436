package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RejectsMissingAndInvalidTokens(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": studentUser.ID,
		"exp":    time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": studentUser.ID,
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	unknownUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "ghost",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"unknown user", "Bearer " + unknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/sessions?courseId="+testCourseID, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	body := env.do(http.MethodGet, "/api/chats/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, body.status)
	assert.Equal(t, "Please authenticate", body.object(t)["message"])
}

func TestAuth_AdminGuard(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := env.do(http.MethodGet, "/api/chats", studentUser, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "Access denied. Admin only.", resp.object(t)["message"])

	resp = env.do(http.MethodGet, "/api/chats", adminUser, nil)
	assert.Equal(t, http.StatusOK, resp.status)
}

func TestAuthenticator_RejectsOtherAlgorithms(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	a := NewAuthenticator(testSecret, env.store)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"userId": studentUser.ID,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = a.Authenticate(t.Context(), token)
	assert.Error(t, err)

	user, err := a.Authenticate(t.Context(), tokenFor(t, studentUser.ID))
	require.NoError(t, err)
	assert.Equal(t, studentUser.ID, user.ID)
}

func TestAuthenticator_NoSecretRejectsEverything(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	a := NewAuthenticator("", env.store)

	_, err := a.Authenticate(t.Context(), tokenFor(t, studentUser.ID))
	assert.Error(t, err)
}

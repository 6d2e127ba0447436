package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveacademy/pkg/types"
)

func TestServer_ChatFlow(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	mine := env.do(http.MethodGet, "/api/chats/me", studentUser, nil)
	require.Equal(t, http.StatusOK, mine.status)
	assert.Equal(t, studentUser.ID, mine.object(t)["userId"])

	resp := env.do(http.MethodPost, "/api/chats/me/message", studentUser, map[string]string{"text": "I cannot join"})
	require.Equal(t, http.StatusOK, resp.status, "body: %s", resp.raw)
	messages := resp.object(t)["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]interface{})["sender"])

	assert.Equal(t, []string{
		studentUser.ID + " chat:message",
		"* chat:updated",
	}, env.broadcaster.snapshot())

	resp = env.do(http.MethodPost, "/api/chats/"+studentUser.ID+"/message", adminUser, map[string]string{"text": "Try again now"})
	require.Equal(t, http.StatusOK, resp.status)
	messages = resp.object(t)["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "admin", messages[1].(map[string]interface{})["sender"])

	list := env.do(http.MethodGet, "/api/chats", adminUser, nil).list(t)
	require.Len(t, list, 1)
	assert.Equal(t, "Sita", list[0]["user"].(map[string]interface{})["name"])

	got := env.do(http.MethodGet, "/api/chats/"+studentUser.ID, adminUser, nil)
	assert.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/chats/nobody", adminUser, nil).status)
}

func TestServer_ChatPermissions(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/chats/me/message", studentUser, map[string]string{"text": "helo"}).status)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/chats/"+studentUser.ID+"/message", adminUser, map[string]string{"text": "hi"}).status)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		want   int
	}{
		{"owner edits own message", http.MethodPut, "/api/chats/me/message/0", "student", map[string]string{"text": "hello"}, http.StatusOK},
		{"owner cannot edit admin message", http.MethodPut, "/api/chats/me/message/1", "student", map[string]string{"text": "x"}, http.StatusForbidden},
		{"other chat needs admin", http.MethodPut, "/api/chats/" + studentUser.ID + "/message/0", "teacher", map[string]string{"text": "x"}, http.StatusForbidden},
		{"bad index", http.MethodPut, "/api/chats/me/message/abc", "student", map[string]string{"text": "x"}, http.StatusBadRequest},
		{"missing index", http.MethodPut, "/api/chats/me/message/9", "student", map[string]string{"text": "x"}, http.StatusNotFound},
		{"empty edit", http.MethodPut, "/api/chats/me/message/0", "student", map[string]string{"text": ""}, http.StatusBadRequest},
		{"admin edits admin message", http.MethodPut, "/api/chats/" + studentUser.ID + "/message/1", "admin", map[string]string{"text": "hi!"}, http.StatusOK},
		{"owner cannot delete admin message", http.MethodDelete, "/api/chats/me/message/1", "student", nil, http.StatusForbidden},
		{"admin deletes any message", http.MethodDelete, "/api/chats/" + studentUser.ID + "/message/1", "admin", nil, http.StatusOK},
		{"chat without thread", http.MethodDelete, "/api/chats/me/message/0", "teacher", nil, http.StatusNotFound},
		{"empty post", http.MethodPost, "/api/chats/me/message", "student", map[string]string{"text": " "}, http.StatusBadRequest},
	}

	users := map[string]*types.User{"student": studentUser, "teacher": teacherUser, "admin": adminUser}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(tt.method, tt.path, users[tt.user], tt.body)
			assert.Equal(t, tt.want, resp.status, "body: %s", resp.raw)
		})
	}

	final := env.do(http.MethodGet, "/api/chats/me", studentUser, nil).object(t)
	messages := final["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].(map[string]interface{})["text"])
}

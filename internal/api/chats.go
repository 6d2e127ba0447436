package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"liveacademy/pkg/types"
)

type messageRequest struct {
	Text        string   `json:"text"`
	Attachments []string `json:"attachments"`
}

// GET /api/chats (admin)
func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.deps.Chats.List(r.Context())
	if err != nil {
		sendDomainError(w, r, err, "Failed to list chats")
		return
	}
	sendJSON(w, http.StatusOK, chats)
}

// GET /api/chats/me
func (s *Server) myChat(w http.ResponseWriter, r *http.Request) {
	chat, err := s.deps.Chats.GetOrCreate(r.Context(), UserFromContext(r.Context()).ID)
	if err != nil {
		sendDomainError(w, r, err, "Failed to get chat")
		return
	}
	sendJSON(w, http.StatusOK, chat)
}

// GET /api/chats/{userId} (admin)
func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	chat, err := s.deps.Chats.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		sendDomainError(w, r, err, "Failed to get chat")
		return
	}
	sendJSON(w, http.StatusOK, chat)
}

// POST /api/chats/me/message
func (s *Server) postMyMessage(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	sender := types.SenderUser
	if user.IsAdmin() {
		sender = types.SenderAdmin
	}
	s.postMessage(w, r, user.ID, sender)
}

// POST /api/chats/{userId}/message (admin)
func (s *Server) postAdminMessage(w http.ResponseWriter, r *http.Request) {
	s.postMessage(w, r, chi.URLParam(r, "userId"), types.SenderAdmin)
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request, userID, sender string) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	chat, err := s.deps.Chats.PostMessage(r.Context(), userID, sender, req.Text, req.Attachments)
	if err != nil {
		sendDomainError(w, r, err, "Failed to post message")
		return
	}
	sendJSON(w, http.StatusOK, chat)
}

// chatTarget resolves {userId}, where "me" is the caller. Any other id needs
// an admin caller.
func chatTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := UserFromContext(r.Context())
	target := chi.URLParam(r, "userId")
	if target == "me" {
		return user.ID, true
	}
	if !user.IsAdmin() {
		sendJSON(w, http.StatusForbidden, messageResponse{Message: "Access denied"})
		return "", false
	}
	return target, true
}

func messageIndex(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		return 0, ErrInvalidIndex
	}
	return idx, nil
}

// PUT /api/chats/{userId}/message/{idx}
func (s *Server) editMessage(w http.ResponseWriter, r *http.Request) {
	target, ok := chatTarget(w, r)
	if !ok {
		return
	}
	idx, err := messageIndex(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	chat, err := s.deps.Chats.EditMessage(r.Context(), target, idx, req.Text, UserFromContext(r.Context()))
	if err != nil {
		sendDomainError(w, r, err, "Failed to edit message")
		return
	}
	sendJSON(w, http.StatusOK, chat)
}

// DELETE /api/chats/{userId}/message/{idx}
func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	target, ok := chatTarget(w, r)
	if !ok {
		return
	}
	idx, err := messageIndex(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	chat, err := s.deps.Chats.DeleteMessage(r.Context(), target, idx, UserFromContext(r.Context()))
	if err != nil {
		sendDomainError(w, r, err, "Failed to delete message")
		return
	}
	sendJSON(w, http.StatusOK, chat)
}

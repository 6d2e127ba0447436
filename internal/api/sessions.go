package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"liveacademy/internal/logging"
	"liveacademy/internal/zoom"
	"liveacademy/pkg/types"
)

// zoomErrorBody explains why a created session has no meeting
type zoomErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ErrInvalidJSON
	}
	return nil
}

// GET /api/sessions?courseId=
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.deps.Sessions.ListSessions(r.Context(), r.URL.Query().Get("courseId"))
	if err != nil {
		sendDomainError(w, r, err, "Failed to list sessions")
		return
	}
	sendJSON(w, http.StatusOK, sessions)
}

// GET /api/sessions/{id}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Sessions.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendDomainError(w, r, err, "Failed to get session")
		return
	}
	sendJSON(w, http.StatusOK, session)
}

// POST /api/sessions
// FUNCTIONAL DISCOVERY: The session is committed before the provider is
// called; a provisioning failure is reported next to a 201, never instead of it
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var in types.Session
	if err := decodeBody(r, &in); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := s.deps.Sessions.CreateSession(r.Context(), &in)
	if err != nil {
		sendDomainError(w, r, err, "Failed to create session")
		return
	}

	extras := map[string]interface{}{}
	result, err := s.provisionFor(r.Context(), session)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).
			Str("session_id", session.ID).
			Str("kind", zoom.Kind(err)).
			Msg("meeting provisioning failed for new session")
		extras["zoomError"] = zoomErrorBody{Kind: zoom.Kind(err), Message: err.Error()}
	} else {
		meeting := result.MeetingData()
		session.MeetingData = &meeting
		extras["zoomData"] = result
	}

	body, err := mergeJSON(session, extras)
	if err != nil {
		sendError(w, "Failed to encode session", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusCreated, body)
}

// provisionFor runs provisioning detached from the client's cancellation so
// a disconnect cannot leave a meeting created but unattached
func (s *Server) provisionFor(ctx context.Context, session *types.Session) (*types.MeetingResult, error) {
	if s.deps.Provisioner == nil {
		return nil, zoom.ErrMissingCredentials
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*s.requestTimeout())
	defer cancel()

	return s.deps.Provisioner.CreateMeeting(ctx, types.MeetingRequest{
		SessionID: session.ID,
		Topic:     session.Title,
		StartTime: session.DateLabel,
		Timezone:  s.deps.Config.Zoom.DefaultTimezone,
	})
}

// mergeJSON flattens v into an object and adds extra keys on top
func mergeJSON(v interface{}, extras map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	for k, val := range extras {
		out[k] = val
	}
	return out, nil
}

// PUT /api/sessions/{id}
func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) {
	var update types.SessionUpdate
	if err := decodeBody(r, &update); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := s.deps.Sessions.UpdateSession(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		sendDomainError(w, r, err, "Failed to update session")
		return
	}
	sendJSON(w, http.StatusOK, session)
}

// DELETE /api/sessions/{id}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.deps.Sessions.GetSession(r.Context(), id)
	if err != nil {
		sendDomainError(w, r, err, "Failed to delete session")
		return
	}

	user := UserFromContext(r.Context())
	if !user.IsAdmin() && user.ID != session.HostID {
		sendError(w, "Only an admin or the session host can delete a session", http.StatusForbidden)
		return
	}

	if err := s.deps.Sessions.DeleteSession(r.Context(), id); err != nil {
		sendDomainError(w, r, err, "Failed to delete session")
		return
	}
	sendJSON(w, http.StatusOK, messageResponse{Message: "Session deleted"})
}

// GET /api/sessions/{id}/participants
func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := s.deps.Participants.ListParticipants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendDomainError(w, r, err, "Failed to list participants")
		return
	}
	sendJSON(w, http.StatusOK, participants)
}

type participantReport struct {
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	Email         string `json:"email"`
}

// POST /api/sessions/{id}/participants/join
// FUNCTIONAL DISCOVERY: Missing identity fields default to the caller
func (s *Server) reportJoin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Sessions.GetSession(r.Context(), id); err != nil {
		sendDomainError(w, r, err, "Failed to record join")
		return
	}

	var report participantReport
	if err := decodeBody(r, &report); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	user := UserFromContext(r.Context())
	if report.UserID == "" {
		report.UserID = user.ID
	}
	if report.ParticipantID == "" {
		report.ParticipantID = report.UserID
	}
	if report.Name == "" {
		report.Name = user.Name
	}
	if report.Email == "" {
		report.Email = user.Email
	}

	p, err := s.deps.Participants.RecordJoin(r.Context(), id, types.JoinEvent{
		ParticipantKey: report.ParticipantID,
		UserID:         report.UserID,
		Name:           report.Name,
		Email:          report.Email,
	})
	if err != nil {
		sendDomainError(w, r, err, "Failed to record join")
		return
	}
	sendJSON(w, http.StatusCreated, p)
}

// POST /api/sessions/{id}/participants/leave
func (s *Server) reportLeave(w http.ResponseWriter, r *http.Request) {
	var report participantReport
	if err := decodeBody(r, &report); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if report.ParticipantID == "" && report.Name == "" {
		report.ParticipantID = UserFromContext(r.Context()).ID
	}

	closed, err := s.deps.Participants.RecordLeave(r.Context(), chi.URLParam(r, "id"), report.ParticipantID, report.Name)
	if err != nil {
		sendDomainError(w, r, err, "Failed to record leave")
		return
	}
	sendJSON(w, http.StatusOK, map[string]bool{"closed": closed})
}

// requestTimeout bounds handler work that talks to the provider
func (s *Server) requestTimeout() time.Duration {
	if s.deps.Config.Zoom.RequestTimeout > 0 {
		return s.deps.Config.Zoom.RequestTimeout
	}
	return 10 * time.Second
}

package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"liveacademy/internal/logging"
	"liveacademy/internal/webhook"
	"liveacademy/internal/zoom"
	"liveacademy/pkg/types"
)

const maxWebhookBody = 1 << 20

// POST /api/zoom/create-meeting
func (s *Server) createMeeting(w http.ResponseWriter, r *http.Request) {
	var req types.MeetingRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		sendError(w, ErrSessionIDRequired.Error(), http.StatusBadRequest)
		return
	}
	if s.deps.Provisioner == nil {
		sendDomainError(w, r, zoom.ErrMissingCredentials, "Failed to create Zoom meeting")
		return
	}

	result, err := s.deps.Provisioner.CreateMeeting(r.Context(), req)
	if err != nil {
		sendDomainError(w, r, err, "Failed to create Zoom meeting")
		return
	}

	body, err := mergeJSON(result, map[string]interface{}{"message": "Meeting created"})
	if err != nil {
		sendError(w, "Failed to encode meeting", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusOK, body)
}

type signatureResponse struct {
	MeetingID string `json:"meetingId"`
	Role      int    `json:"role"`
	AppKey    string `json:"appKey"`
	Signature string `json:"signature"`
}

// POST /api/zoom/signature
// FUNCTIONAL DISCOVERY: meetingNumber and role arrive as either JSON numbers
// or strings depending on the client
func (s *Server) signature(w http.ResponseWriter, r *http.Request) {
	signer := s.deps.Signer
	if signer == nil || !signer.Configured() {
		sendDomainError(w, r, zoom.ErrMissingSigningKey, "signature generation failed")
		return
	}

	var body map[string]interface{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		sendError(w, ErrInvalidJSON.Error(), http.StatusBadRequest)
		return
	}

	meetingNumber := scalarString(body["meetingNumber"])
	roleRaw := scalarString(body["role"])
	if meetingNumber == "" || roleRaw == "" {
		sendError(w, ErrSignatureInput.Error(), http.StatusBadRequest)
		return
	}
	role, err := strconv.Atoi(roleRaw)
	if err != nil {
		sendError(w, zoom.ErrInvalidRole.Error(), http.StatusBadRequest)
		return
	}

	token, err := signer.Sign(meetingNumber, role)
	if err != nil {
		sendDomainError(w, r, err, "signature generation failed")
		return
	}
	sendJSON(w, http.StatusOK, signatureResponse{
		MeetingID: meetingNumber,
		Role:      role,
		AppKey:    signer.AppKey(),
		Signature: token,
	})
}

// scalarString renders a JSON string or number, or "" for anything else
func scalarString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// POST /api/zoom/webhook
// FUNCTIONAL DISCOVERY: The sender only ever sees 400 for an envelope without
// an event; every other delivery is acknowledged so the provider stops retrying
// Deliveries are not authenticated; the provider signature is not checked
func (s *Server) ingestWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		sendError(w, "Invalid webhook body", http.StatusBadRequest)
		return
	}

	if _, err := s.deps.Webhooks.Ingest(r.Context(), bytes.TrimSpace(body)); err != nil {
		if errors.Is(err, webhook.ErrMalformedEnvelope) {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("webhook ingestion failed")
	}
	sendJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type zoomHealthResponse struct {
	SDKKeyLoaded    bool `json:"sdkKeyLoaded"`
	SDKSecretLoaded bool `json:"sdkSecretLoaded"`
}

func (s *Server) signerHealth() zoomHealthResponse {
	if s.deps.Signer == nil {
		return zoomHealthResponse{}
	}
	return zoomHealthResponse{
		SDKKeyLoaded:    s.deps.Signer.KeyLoaded(),
		SDKSecretLoaded: s.deps.Signer.SecretLoaded(),
	}
}

// GET /api/zoom/health
func (s *Server) zoomHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, s.signerHealth())
}

// Package api is the REST surface of the academy backend.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"liveacademy/internal/chat"
	"liveacademy/internal/config"
	"liveacademy/internal/participant"
	"liveacademy/internal/session"
	"liveacademy/internal/webhook"
	"liveacademy/internal/zoom"
	"liveacademy/pkg/interfaces"
)

// Stats reports realtime counts for the health endpoint
type Stats interface {
	GetStats() map[string]int
}

// Dependencies are the components the server exposes. WebSocket and Stats
// may be nil.
type Dependencies struct {
	Config       *config.Config
	Sessions     *session.Manager
	Provisioner  interfaces.MeetingProvisioner
	Signer       *zoom.Signer
	Participants *participant.Tracker
	Webhooks     *webhook.Ingestor
	Chats        *chat.Service
	Users        interfaces.UserDirectory
	Health       interfaces.HealthChecker
	Stats        Stats
	WebSocket    http.Handler
}

// Server routes HTTP requests to the domain components
// ARCHITECTURAL DISCOVERY: HTTP API layer serves as pure interface between
// external clients and internal components; the one orchestration it owns is
// provisioning a meeting right after a session is created
type Server struct {
	deps   Dependencies
	auth   *Authenticator
	router chi.Router
}

// NewServer builds the router
func NewServer(deps Dependencies) *Server {
	s := &Server{
		deps: deps,
		auth: NewAuthenticator(deps.Config.Auth.JWTSecret, deps.Users),
	}
	s.router = s.routes()
	return s
}

// FUNCTIONAL DISCOVERY: Implement http.Handler interface for integration with standard HTTP server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(corsMiddleware(s.deps.Config.Security))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("hi"))
	})
	r.Get("/health", s.healthCheck)
	r.Handle("/metrics", promhttp.Handler())
	if s.deps.WebSocket != nil {
		r.Handle("/ws", s.deps.WebSocket)
	}

	// the same surface answers with and without the /api prefix; both share one
	// webhook limiter
	api := s.apiRoutes(rateLimitByIP(s.deps.Config.Security.WebhookRateLimit))
	r.Route("/api", api)
	r.Group(api)

	return r
}

func (s *Server) apiRoutes(limit func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Use(s.auth.RequireAuth)
			r.Get("/", s.listSessions)
			r.Post("/", s.createSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Put("/", s.updateSession)
				r.Delete("/", s.deleteSession)
				r.Get("/participants", s.listParticipants)
				r.Post("/participants/join", s.reportJoin)
				r.Post("/participants/leave", s.reportLeave)
			})
		})

		r.Route("/zoom", func(r chi.Router) {
			r.Post("/create-meeting", s.createMeeting)
			r.With(limit).Post("/signature", s.signature)
			r.With(limit).Post("/webhook", s.ingestWebhook)
			r.Get("/health", s.zoomHealth)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Use(s.auth.RequireAuth)
			r.With(RequireAdmin).Get("/", s.listChats)
			r.Get("/me", s.myChat)
			r.Post("/me/message", s.postMyMessage)
			r.With(RequireAdmin).Get("/{userId}", s.getChat)
			r.With(RequireAdmin).Post("/{userId}/message", s.postAdminMessage)
			r.Put("/{userId}/message/{idx}", s.editMessage)
			r.Delete("/{userId}/message/{idx}", s.deleteMessage)
		})
	}
}

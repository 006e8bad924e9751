package server

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/gatepass/gatepass/internal/admin"
	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/dismissal"
	"github.com/gatepass/gatepass/internal/notify"
	"github.com/gatepass/gatepass/internal/store"
)

// Server wires the HTTP surface: the lifecycle API, the websocket subscribe
// endpoint and the pull reconciliation query.
type Server struct {
	engine      *dismissal.Engine
	provisioner *admin.Provisioner
	registry    *notify.Registry
	verifier    *auth.Verifier
	principals  store.PrincipalStore
	orgs        store.OrganizationStore
	corsOrigins []string

	log zerolog.Logger
}

// NewServer creates a server around an engine and a connection registry.
func NewServer(
	engine *dismissal.Engine,
	provisioner *admin.Provisioner,
	registry *notify.Registry,
	verifier *auth.Verifier,
	principals store.PrincipalStore,
	orgs store.OrganizationStore,
	corsOrigins []string,
	log zerolog.Logger,
) *Server {
	return &Server{
		engine:      engine,
		provisioner: provisioner,
		registry:    registry,
		verifier:    verifier,
		principals:  principals,
		orgs:        orgs,
		corsOrigins: corsOrigins,
		log:         log,
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("POST /v1/dismissals/scan", s.handleScan)
	mux.HandleFunc("POST /v1/dismissals/request", s.handleRequest)
	mux.HandleFunc("POST /v1/dismissals/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /v1/dismissals/{id}/confirm", s.handleConfirm)
	mux.HandleFunc("GET /v1/dismissals/active", s.handleActive)
	mux.HandleFunc("GET /v1/events", s.handleEvents)

	mux.HandleFunc("POST /v1/students", s.handleCreateStudent)
	mux.HandleFunc("POST /v1/staff", s.handleCreateStaff)
	mux.HandleFunc("POST /v1/classes", s.handleCreateClass)
	mux.HandleFunc("POST /v1/gates", s.handleCreateGate)

	var handler http.Handler = mux
	handler = auth.Middleware(s.verifier, s.principals, s.orgs)(handler)

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(handler)
}

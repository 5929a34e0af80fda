package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Shoaibashk/serialmonitor/config"
	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/Shoaibashk/serialmonitor/internal/decode"
	"github.com/Shoaibashk/serialmonitor/internal/eventbus"
	"github.com/Shoaibashk/serialmonitor/internal/macro"
	"github.com/Shoaibashk/serialmonitor/internal/store"
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
)

// Version information (set at build time, mirroring the teacher's pattern).
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Server is the HTTP facade: it owns nothing in the channel runtime, only
// references it, and multiplexes the WebSocket endpoint and REST surface
// of spec.md §6 over it.
type Server struct {
	cfg          *config.Config
	manager      *channel.Manager
	scanner      *channel.Scanner
	registry     *decode.Registry
	bus          *eventbus.Bus
	macroStore   *store.MacroStore
	profileStore *store.ProfileStore
	executor     *macro.Executor
	logger       *log.Logger
	startedAt    time.Time

	httpServer *http.Server
	shutdownCh chan struct{}
}

// Deps bundles the already-constructed components a Server multiplexes.
// Built once by the serve command and handed to NewServer.
type Deps struct {
	Config       *config.Config
	Manager      *channel.Manager
	Scanner      *channel.Scanner
	Registry     *decode.Registry
	Bus          *eventbus.Bus
	MacroStore   *store.MacroStore
	ProfileStore *store.ProfileStore
	Executor     *macro.Executor
	Logger       *log.Logger
}

// NewServer builds a Server and its routed http.Server, but does not start
// listening.
func NewServer(deps Deps) *Server {
	s := &Server{
		cfg:          deps.Config,
		manager:      deps.Manager,
		scanner:      deps.Scanner,
		registry:     deps.Registry,
		bus:          deps.Bus,
		macroStore:   deps.MacroStore,
		profileStore: deps.ProfileStore,
		executor:     deps.Executor,
		logger:       deps.Logger,
		startedAt:    time.Now(),
		shutdownCh:   make(chan struct{}, 1),
	}

	router := s.routes()
	var handler http.Handler = router
	handler = basicAuth(s.cfg.Server.AuthEnabled, s.cfg.Server.AuthUsername, s.cfg.Server.AuthPassword, handler)
	handler = accessLog(s.logger, handler)

	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.cfg.Server.ConnectionTimeout) * time.Second,
		WriteTimeout: 0, // the WebSocket endpoint holds connections open indefinitely
	}

	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.HandleWS)

	r.HandleFunc("/ports", s.handleListPorts).Methods(http.MethodGet)
	r.HandleFunc("/connect", s.handleConnect).Methods(http.MethodPost)
	r.HandleFunc("/disconnect", s.handleDisconnect).Methods(http.MethodPost)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/clear", s.handleClear).Methods(http.MethodPost)
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodPost)
	r.HandleFunc("/plugins", s.handlePlugins).Methods(http.MethodGet)
	r.HandleFunc("/shutdown", s.handleShutdown).Methods(http.MethodPost)

	r.HandleFunc("/macros", s.handleMacrosList).Methods(http.MethodGet)
	r.HandleFunc("/macros", s.handleMacroCreate).Methods(http.MethodPost)
	r.HandleFunc("/macros/{id}", s.handleMacroGet).Methods(http.MethodGet)
	r.HandleFunc("/macros/{id}", s.handleMacroUpdate).Methods(http.MethodPut)
	r.HandleFunc("/macros/{id}", s.handleMacroDelete).Methods(http.MethodDelete)
	r.HandleFunc("/macros/{id}/run", s.handleMacroRun).Methods(http.MethodPost)

	r.HandleFunc("/profiles", s.handleProfilesList).Methods(http.MethodGet)
	r.HandleFunc("/profiles", s.handleProfileCreate).Methods(http.MethodPost)
	r.HandleFunc("/profiles/{id}", s.handleProfileGet).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{id}", s.handleProfileUpdate).Methods(http.MethodPut)
	r.HandleFunc("/profiles/{id}", s.handleProfileDelete).Methods(http.MethodDelete)

	return r
}

// ListenAndServe starts the HTTP server, selecting TLS per config. It blocks
// until the server stops (error, Shutdown, or a /shutdown request).
func (s *Server) ListenAndServe() error {
	if s.cfg.TLS.Enabled {
		return s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ShutdownRequested receives a value when a client calls POST /shutdown, letting
// the process entry point trigger the same graceful path as an OS signal.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

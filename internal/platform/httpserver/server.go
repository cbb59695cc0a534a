package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	decisionengine "quorum/contexts/decision-governance/decision-engine"
	domainerrors "quorum/contexts/decision-governance/decision-engine/domain/errors"
	enginehttp "quorum/contexts/decision-governance/decision-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "quorum/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	engine decisionengine.Module
}

func New(
	engine decisionengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		engine: engine,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the configured mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/v1/decisions", s.handleSubmitDecision)
	s.mux.HandleFunc("GET /api/v1/decisions/lookup", s.handleLookupDecision)
	s.mux.HandleFunc("GET /api/v1/decisions/{decision_id}/anchor", s.handleDecisionAnchor)
	s.mux.HandleFunc("GET /api/v1/polls/{poll_id}/tally", s.handlePollTally)
}

func (s *Server) handleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	var req enginehttp.SubmitDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEngineError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.engine.Handler.SubmitDecisionHandler(r.Context(), req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.IsUpdate || resp.AlreadyDecided {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleLookupDecision(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resp, err := s.engine.Handler.LookupDecisionHandler(
		r.Context(),
		query.Get("identity_token"),
		query.Get("evaluator_email"),
		query.Get("poll_id"),
	)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDecisionAnchor(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	resp, err := s.engine.Handler.DecisionAnchorHandler(r.Context(), decisionID)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollTally(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("poll_id")
	resp, err := s.engine.Handler.PollTallyHandler(r.Context(), pollID)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeEngineDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrPollNotFound):
		writeEngineError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrDecisionNotFound):
		writeEngineError(w, http.StatusNotFound, "decision_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrCredentialNotFound):
		writeEngineError(w, http.StatusUnauthorized, "credential_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrCredentialUsed):
		writeEngineError(w, http.StatusConflict, "credential_used", err.Error())
	case errors.Is(err, domainerrors.ErrEvaluatorNotAllowed):
		writeEngineError(w, http.StatusForbidden, "evaluator_not_allowed", err.Error())
	case errors.Is(err, domainerrors.ErrNotPermitted):
		writeEngineError(w, http.StatusForbidden, "not_permitted", err.Error())
	case errors.Is(err, domainerrors.ErrVotingNotOpen):
		writeEngineError(w, http.StatusUnprocessableEntity, "voting_not_open", err.Error())
	case errors.Is(err, domainerrors.ErrVotingClosed):
		writeEngineError(w, http.StatusUnprocessableEntity, "voting_closed", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyDecided):
		writeEngineError(w, http.StatusConflict, "already_decided", err.Error())
	case errors.Is(err, domainerrors.ErrSelfDecisionForbidden):
		writeEngineError(w, http.StatusUnprocessableEntity, "self_decision_forbidden", err.Error())
	case errors.Is(err, domainerrors.ErrUnknownTarget):
		writeEngineError(w, http.StatusUnprocessableEntity, "unknown_target", err.Error())
	case errors.Is(err, domainerrors.ErrDuplicateTarget),
		errors.Is(err, domainerrors.ErrRankCollision),
		errors.Is(err, domainerrors.ErrInvalidRank),
		errors.Is(err, domainerrors.ErrTooManyRanks),
		errors.Is(err, domainerrors.ErrEmptyBallot):
		writeEngineError(w, http.StatusUnprocessableEntity, "invalid_ballot", err.Error())
	case errors.Is(err, domainerrors.ErrIdentitySelector),
		errors.Is(err, domainerrors.ErrInvalidDecisionInput):
		writeEngineError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domainerrors.ErrConflict):
		writeEngineError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeEngineError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeEngineError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, enginehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

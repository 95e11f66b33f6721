// Package api exposes the session engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/logger"
	"github.com/abhisek/tierloop/internal/session"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server serves the session API.
type Server struct {
	svc     *session.Service
	log     *logger.Logger
	timeout time.Duration
}

// NewServer creates a Server. A positive timeout bounds each request.
func NewServer(svc *session.Service, log *logger.Logger, timeout time.Duration) *Server {
	return &Server{svc: svc, log: logger.OrNop(log), timeout: timeout}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	if s.timeout > 0 {
		r.Use(timeoutMiddleware(s.timeout))
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Get("/report", s.handleReport)
			r.Post("/bundle/answers", s.handleSubmitBundle)

			r.Post("/tiers/{tier}/start", s.handleStartTier)
			r.Get("/tiers/{tier}/review", s.handleReview)
			r.Post("/tiers/{tier}/continue", s.handleContinue)

			r.Post("/rounds/{round}/answers", s.handleSubmitRound)
			r.Get("/rounds/{round}/review", s.handleRoundReview)
			r.Post("/rounds/{round}/continue", s.handleContinueRound)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": len(s.svc.Sessions())})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	sess, err := s.svc.Create(r.Context(), session.Identity{Name: req.Name, Grade: req.Grade})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleStartTier(w http.ResponseWriter, r *http.Request) {
	tier, err := tierParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	out, err := s.svc.StartTier(r.Context(), chi.URLParam(r, "id"), tier)
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleSubmitBundle(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decode(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	out, err := s.svc.SubmitBundle(r.Context(), chi.URLParam(r, "id"), req.submissions())
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	tier, err := tierParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	rev, err := s.svc.Review(r.Context(), chi.URLParam(r, "id"), tier)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	tier, err := tierParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	out, err := s.svc.Continue(r.Context(), chi.URLParam(r, "id"), tier)
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleSubmitRound(w http.ResponseWriter, r *http.Request) {
	n, err := roundParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	var req answersRequest
	if err := decode(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	out, err := s.svc.SubmitRound(r.Context(), chi.URLParam(r, "id"), n, req.submissions())
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleRoundReview(w http.ResponseWriter, r *http.Request) {
	n, err := roundParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	rev, err := s.svc.RoundReview(r.Context(), chi.URLParam(r, "id"), n)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleContinueRound(w http.ResponseWriter, r *http.Request) {
	n, err := roundParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	out, err := s.svc.ContinueRound(r.Context(), chi.URLParam(r, "id"), n)
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, out session.Outcome, err error) {
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOutcomeView(out))
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func tierParam(r *http.Request) (curriculum.Tier, error) {
	tier, err := curriculum.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		return 0, badRequest("%v", err)
	}
	return tier, nil
}

func roundParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "round")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest("invalid round %q", raw)
	}
	return n, nil
}

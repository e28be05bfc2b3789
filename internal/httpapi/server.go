// Package httpapi exposes the retrieval subsystem over HTTP for whatever
// renders the page. One live session per server: a new summary request
// supersedes the previous one, and a dropped connection cancels it.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/topicsum/internal/render"
	"github.com/briangreenhill/topicsum/internal/session"
	"github.com/briangreenhill/topicsum/internal/summary"
)

type Server struct {
	Router   *chi.Mux
	sessions *session.Manager
	log      zerolog.Logger
}

type ServerOptions struct {
	Sessions *session.Manager
	Logger   zerolog.Logger
}

// summaryResponse is the façade's reply. HTML carries the sanitized summary
// on completion; Message carries plain status text otherwise.
type summaryResponse struct {
	Status  string `json:"status"`
	HTML    string `json:"html,omitempty"`
	Message string `json:"message,omitempty"`
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, sessions: opts.Sessions, log: opts.Logger}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			s.log.Warn().Err(err).Msg("writing health check response")
		}
	})
	r.Get("/summary", s.handleGetSummary)
	r.Delete("/summary", s.handleCancel)

	return s
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	topicID := r.URL.Query().Get("topic_id")
	day := r.URL.Query().Get("date")

	if topicID == "" || day == "" {
		s.writeJSON(w, http.StatusBadRequest, summaryResponse{
			Status:  "failed",
			Message: "topic_id and date query parameters are required",
		})
		return
	}
	if _, err := summary.ParseID(topicID); err != nil {
		s.writeJSON(w, http.StatusBadRequest, summaryResponse{
			Status:  "failed",
			Message: err.Error(),
		})
		return
	}

	// The request context ties the session to the connection: a client that
	// gives up cancels its session.
	o := s.sessions.Fetch(r.Context(), topicID, day)

	switch o.Kind {
	case session.OutcomeCompleted:
		s.writeJSON(w, http.StatusOK, summaryResponse{
			Status: string(session.OutcomeCompleted),
			HTML:   render.Sanitize(o.Summary),
		})
	case session.OutcomeCancelled:
		// Superseded or disconnected; nobody is listening for a body.
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeJSON(w, http.StatusOK, summaryResponse{
			Status:  string(o.Kind),
			Message: render.StatusText(o),
		})
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.sessions.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn().Err(err).Msg("writing response")
	}
}

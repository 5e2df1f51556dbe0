package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aakarsh-hub/pmcopilot/internal/copilot"
	"github.com/aakarsh-hub/pmcopilot/internal/gemini"
	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
	"github.com/aakarsh-hub/pmcopilot/internal/schema"
	"github.com/aakarsh-hub/pmcopilot/internal/store"
)

type Server struct {
	orc    *copilot.Orchestrator
	db     store.MeetingStore
	router chi.Router
	port   int

	mu       sync.Mutex
	sessions map[string]*copilot.Session // meetingID -> chat session, per process
}

func NewServer(orc *copilot.Orchestrator, db store.MeetingStore, port int) *Server {
	srv := &Server{
		orc:      orc,
		db:       db,
		port:     port,
		sessions: make(map[string]*copilot.Session),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
		r.Post("/meetings", srv.handleIngestNotes)
		r.Post("/meetings/audio", srv.handleIngestAudio)
		r.Get("/meetings", srv.handleListMeetings)
		r.Get("/meetings/{meetingID}", srv.handleGetMeeting)
		r.Post("/meetings/{meetingID}/prd", srv.handleDerivePRD)
		r.Post("/meetings/{meetingID}/roadmap", srv.handleDeriveRoadmap)
		r.Post("/meetings/{meetingID}/email", srv.handleDeriveEmail)
		r.Post("/meetings/{meetingID}/chat", srv.handleChat)
	})

	srv.router = r
	return srv
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("starting HTTP API", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// session returns the meeting's chat session, creating it lazily. Sessions
// are ephemeral: a restart drops every conversation log.
func (s *Server) session(meetingID string) *copilot.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[meetingID]
	if !ok {
		sess = copilot.NewSession(meetingID)
		s.sessions[meetingID] = sess
	}
	return sess
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "pmcopilot",
	})
}

type ingestNotesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleIngestNotes(w http.ResponseWriter, r *http.Request) {
	var body ingestNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	m, err := s.orc.Ingest(r.Context(), copilot.IngestInput{
		Content: []byte(body.Notes),
		Source:  meeting.SourceNotes,
	})
	s.respondIngest(w, m, err)
}

func (s *Server) handleIngestAudio(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading upload"})
		return
	}

	m, err := s.orc.Ingest(r.Context(), copilot.IngestInput{
		Content:  content,
		Source:   meeting.SourceAudio,
		MIMEType: header.Header.Get("Content-Type"),
	})
	s.respondIngest(w, m, err)
}

// respondIngest maps the ingest contract: a failed extraction still yields an
// Error-flagged meeting shell, returned alongside the error kind.
func (s *Server) respondIngest(w http.ResponseWriter, m *meeting.Meeting, err error) {
	if err == nil {
		writeJSON(w, http.StatusCreated, m)
		return
	}
	status, kind := classify(err)
	if m == nil {
		writeJSON(w, status, map[string]string{"error": err.Error(), "error_kind": kind})
		return
	}
	slog.Warn("ingest returned error shell", "meeting_id", m.ID, "error", err)
	writeJSON(w, status, map[string]any{
		"error":      err.Error(),
		"error_kind": kind,
		"meeting":    m,
	})
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.db.List(r.Context())
	if err != nil {
		slog.Error("list meetings failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if meetings == nil {
		meetings = []*meeting.Meeting{}
	}
	writeJSON(w, http.StatusOK, meetings)
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := s.db.Get(r.Context(), chi.URLParam(r, "meetingID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDerivePRD(w http.ResponseWriter, r *http.Request) {
	prd, err := s.orc.DerivePRD(r.Context(), chi.URLParam(r, "meetingID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prd)
}

func (s *Server) handleDeriveRoadmap(w http.ResponseWriter, r *http.Request) {
	rm, err := s.orc.DeriveRoadmap(r.Context(), chi.URLParam(r, "meetingID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

type emailRequest struct {
	Tone meeting.Tone `json:"tone"`
}

func (s *Server) handleDeriveEmail(w http.ResponseWriter, r *http.Request) {
	var body emailRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	draft, err := s.orc.DeriveEmail(r.Context(), chi.URLParam(r, "meetingID"), body.Tone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": draft})
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	meetingID := chi.URLParam(r, "meetingID")
	reply, err := s.orc.AnswerQuestion(r.Context(), s.session(meetingID), body.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// classify maps core error kinds to HTTP status codes and stable kind tags.
func classify(err error) (int, string) {
	var malformed *schema.MalformedError
	switch {
	case errors.Is(err, copilot.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, copilot.ErrEmptyQuestion):
		return http.StatusBadRequest, "empty_question"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, gemini.ErrUnavailable):
		return http.StatusBadGateway, "gateway_unavailable"
	case errors.As(err, &malformed):
		return http.StatusBadGateway, "malformed_artifact"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error", "error_kind": kind})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "error_kind": kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Package copilot sequences artifact derivations: assemble context, call the
// gateway, merge the typed result into the target Meeting, persist.
package copilot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aakarsh-hub/pmcopilot/internal/gemini"
	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
	"github.com/aakarsh-hub/pmcopilot/internal/prompt"
	"github.com/aakarsh-hub/pmcopilot/internal/schema"
	"github.com/aakarsh-hub/pmcopilot/internal/store"
)

var (
	// ErrInvalidInput rejects empty or oversized ingestion content before
	// any gateway call is made.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyQuestion rejects blank chat input before any gateway call.
	ErrEmptyQuestion = errors.New("empty question")
)

// Gateway abstracts the generative service for the orchestrator. The
// concrete implementation is *gemini.Client.
type Gateway interface {
	Complete(ctx context.Context, req gemini.Request) (string, error)
}

// Config carries model selection and input limits.
type Config struct {
	FlashModel    string // extraction, email, chat
	ProModel      string // PRD, roadmap
	MaxInputBytes int
}

// Orchestrator exposes one operation per artifact derivation.
type Orchestrator struct {
	gw  Gateway
	db  store.MeetingStore
	cfg Config
}

func New(gw Gateway, db store.MeetingStore, cfg Config) *Orchestrator {
	if cfg.FlashModel == "" {
		cfg.FlashModel = "gemini-2.5-flash"
	}
	if cfg.ProModel == "" {
		cfg.ProModel = "gemini-3-pro-preview"
	}
	if cfg.MaxInputBytes == 0 {
		cfg.MaxInputBytes = 20 << 20
	}
	return &Orchestrator{gw: gw, db: db, cfg: cfg}
}

// IngestInput is the raw meeting content handed to Ingest.
type IngestInput struct {
	Content  []byte
	Source   meeting.SourceKind
	MIMEType string // audio only
}

// Ingest creates a Meeting from raw content and runs the extraction pass.
// The Meeting is created before the gateway call and kept even when the call
// fails (status ERROR), so the caller never loses committed input. On such a
// failure both the Error-flagged Meeting and the error are returned.
func (o *Orchestrator) Ingest(ctx context.Context, in IngestInput) (*meeting.Meeting, error) {
	if len(bytes.TrimSpace(in.Content)) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidInput)
	}
	if len(in.Content) > o.cfg.MaxInputBytes {
		return nil, fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidInput, o.cfg.MaxInputBytes)
	}
	if in.Source != meeting.SourceAudio && in.Source != meeting.SourceNotes {
		return nil, fmt.Errorf("%w: unknown source kind %q", ErrInvalidInput, in.Source)
	}

	transcript := string(in.Content)
	if in.Source == meeting.SourceAudio {
		// No verbatim transcript is guaranteed for audio input; the
		// extraction pass consumes the recording directly.
		transcript = "Audio transcript processed internally for context."
	}

	m := &meeting.Meeting{
		ID:           uuid.New().String(),
		Title:        "Untitled Meeting",
		Date:         time.Now().UTC(),
		Participants: []string{},
		Source:       in.Source,
		Transcript:   transcript,
		Decisions:    []meeting.Decision{},
		ActionItems:  []meeting.ActionItem{},
		Status:       meeting.StatusProcessing,
	}
	if err := o.db.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("ingest: create meeting: %w", err)
	}

	req := prompt.Extraction(in.Content, in.Source, in.MIMEType)
	req.Model = o.cfg.FlashModel

	raw, err := o.gw.Complete(ctx, req)
	if err != nil {
		return o.failIngest(ctx, m, err)
	}
	ext, err := schema.DecodeExtraction(raw)
	if err != nil {
		return o.failIngest(ctx, m, err)
	}

	m.Title = ext.Title
	m.Participants = ext.Participants
	m.Summary = &meeting.Summary{
		Overview: ext.Overview,
		Agenda:   ext.Agenda,
		Risks:    ext.Risks,
	}
	// Fresh ids regardless of anything the model produced.
	m.Decisions = ext.Decisions
	for i := range m.Decisions {
		m.Decisions[i].ID = uuid.New().String()
	}
	m.ActionItems = ext.ActionItems
	for i := range m.ActionItems {
		m.ActionItems[i].ID = uuid.New().String()
	}
	m.Status = meeting.StatusCompleted

	if err := o.db.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("ingest: store meeting: %w", err)
	}

	slog.Info("ingest: meeting processed",
		"meeting_id", m.ID,
		"source", m.Source,
		"decisions", len(m.Decisions),
		"action_items", len(m.ActionItems),
	)
	return m, nil
}

// failIngest flags the meeting ERROR and returns it with the cause. The
// shell survives so the user can inspect or retry.
func (o *Orchestrator) failIngest(ctx context.Context, m *meeting.Meeting, cause error) (*meeting.Meeting, error) {
	m.Status = meeting.StatusError
	if err := o.db.Update(ctx, m); err != nil {
		slog.Error("ingest: failed to flag meeting", "meeting_id", m.ID, "error", err)
	}
	slog.Warn("ingest: extraction failed", "meeting_id", m.ID, "error", cause)
	return m, fmt.Errorf("ingest: %w", cause)
}

// DerivePRD derives a Product Requirement Document from the meeting's summary
// and transcript excerpt, replacing any prior PRD wholesale. Failure leaves
// the stored Meeting untouched.
func (o *Orchestrator) DerivePRD(ctx context.Context, meetingID string) (*meeting.PRD, error) {
	m, err := o.db.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	req := prompt.PRDContext(m)
	req.Model = o.cfg.ProModel

	raw, err := o.gw.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("derive prd: %w", err)
	}
	prd, err := schema.DecodePRD(raw)
	if err != nil {
		return nil, fmt.Errorf("derive prd: %w", err)
	}

	m.PRD = prd
	if err := o.db.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("derive prd: store meeting: %w", err)
	}
	slog.Info("derive: prd stored", "meeting_id", m.ID, "user_stories", len(prd.UserStories))
	return prd, nil
}

// DeriveRoadmap derives a roadmap from the meeting's summary and decisions,
// replacing any prior roadmap wholesale. Failure leaves the stored Meeting
// untouched.
func (o *Orchestrator) DeriveRoadmap(ctx context.Context, meetingID string) (*meeting.Roadmap, error) {
	m, err := o.db.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	req := prompt.RoadmapContext(m)
	req.Model = o.cfg.ProModel

	raw, err := o.gw.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("derive roadmap: %w", err)
	}
	rm, err := schema.DecodeRoadmap(raw)
	if err != nil {
		return nil, fmt.Errorf("derive roadmap: %w", err)
	}

	m.Roadmap = rm
	if err := o.db.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("derive roadmap: store meeting: %w", err)
	}
	slog.Info("derive: roadmap stored", "meeting_id", m.ID, "epics", len(rm.Epics))
	return rm, nil
}

// DeriveEmail drafts a stakeholder email in the requested tone. The draft is
// returned to the caller and never stored on the Meeting; re-invoking with a
// different tone needs no re-derivation of the summary.
func (o *Orchestrator) DeriveEmail(ctx context.Context, meetingID string, tone meeting.Tone) (string, error) {
	if !meeting.ValidTone(tone) {
		return "", fmt.Errorf("%w: unknown tone %q", ErrInvalidInput, tone)
	}
	m, err := o.db.Get(ctx, meetingID)
	if err != nil {
		return "", err
	}

	req := prompt.EmailContext(m, tone)
	req.Model = o.cfg.FlashModel

	draft, err := o.gw.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("derive email: %w", err)
	}
	slog.Info("derive: email drafted", "meeting_id", m.ID, "tone", tone)
	return draft, nil
}

// AnswerQuestion runs one question-answering turn against the session's
// meeting. Turns are strictly sequential per session: turn n+1 is not
// dispatched before turn n's response is merged. On failure nothing is
// appended, so the log stays an alternating user/model sequence.
func (o *Orchestrator) AnswerQuestion(ctx context.Context, sess *Session, question string) (*meeting.ChatMessage, error) {
	if isBlank(question) {
		return nil, ErrEmptyQuestion
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	m, err := o.db.Get(ctx, sess.MeetingID)
	if err != nil {
		return nil, err
	}

	req := prompt.Chat(m, sess.messages, question)
	req.Model = o.cfg.FlashModel

	answer, err := o.gw.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}

	now := time.Now().UTC()
	sess.messages = append(sess.messages,
		meeting.ChatMessage{ID: uuid.New().String(), Role: "user", Content: question, Timestamp: now},
	)
	reply := meeting.ChatMessage{
		ID:        uuid.New().String(),
		Role:      "model",
		Content:   answer,
		Timestamp: time.Now().UTC(),
	}
	sess.messages = append(sess.messages, reply)

	slog.Debug("chat: turn answered", "meeting_id", m.ID, "turns", len(sess.messages))
	return &reply, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

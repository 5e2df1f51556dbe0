// Package notify republishes meeting updates to observers over NATS. The
// publisher is optional; when no NATS URL is configured the store simply has
// no observer hook. Publish failures are logged, never surfaced to callers.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
)

// SubjectMeetingUpdated carries every meeting mutation, including ingestion.
const SubjectMeetingUpdated = "pmcopilot.meeting.updated"

// Publisher holds the NATS connection used for update events.
type Publisher struct {
	nc *nats.Conn
}

// New connects to NATS. The connection retries forever in the background, so
// a NATS outage never blocks a derivation.
func New(natsURL string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}

// updateEvent is the wire payload for meeting update notifications.
type updateEvent struct {
	MeetingID string         `json:"meeting_id"`
	Title     string         `json:"title"`
	Status    meeting.Status `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MeetingUpdated publishes a meeting mutation to observers. Satisfies
// store.PublishFunc.
func (p *Publisher) MeetingUpdated(m *meeting.Meeting) {
	payload, err := json.Marshal(updateEvent{
		MeetingID: m.ID,
		Title:     m.Title,
		Status:    m.Status,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("notify: failed to marshal update event", "meeting_id", m.ID, "error", err)
		return
	}
	if err := p.nc.Publish(SubjectMeetingUpdated, payload); err != nil {
		slog.Warn("notify: failed to publish update event", "meeting_id", m.ID, "error", err)
		return
	}
	slog.Debug("notify: update published", "meeting_id", m.ID, "status", m.Status)
}

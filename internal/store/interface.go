package store

import (
	"context"

	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
)

// MeetingStore is the interface consumed by the orchestrator and the API.
// The concrete implementation is *Store (SQLite-backed).
type MeetingStore interface {
	Create(ctx context.Context, m *meeting.Meeting) error
	Update(ctx context.Context, m *meeting.Meeting) error
	Get(ctx context.Context, id string) (*meeting.Meeting, error)
	List(ctx context.Context) ([]*meeting.Meeting, error)
	Close()
}

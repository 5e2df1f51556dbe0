package copilot

import (
	"sync"

	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
)

// Session is the explicit conversation context for one meeting's
// question-answering session. It owns the ephemeral chat log; the log is
// never persisted with the Meeting. The mutex serializes turns so each
// call's context sees all prior turns in order.
type Session struct {
	MeetingID string

	mu       sync.Mutex
	messages []meeting.ChatMessage
}

// NewSession starts an empty conversation scoped to one meeting.
func NewSession(meetingID string) *Session {
	return &Session{MeetingID: meetingID}
}

// Messages returns a copy of the conversation log in turn order.
func (s *Session) Messages() []meeting.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]meeting.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of turns recorded so far.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

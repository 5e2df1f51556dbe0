package meeting

import "time"

// Status tracks where a meeting is in its processing lifecycle.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

// SourceKind distinguishes how the meeting content arrived.
type SourceKind string

const (
	SourceAudio SourceKind = "Audio"
	SourceNotes SourceKind = "Notes"
)

// Tone selects the register of a stakeholder email draft.
type Tone string

const (
	ToneExecutive Tone = "Executive"
	ToneTeam      Tone = "Team"
	ToneInvestor  Tone = "Investor"
)

// ValidTone reports whether t is one of the supported email tones.
func ValidTone(t Tone) bool {
	switch t {
	case ToneExecutive, ToneTeam, ToneInvestor:
		return true
	}
	return false
}

// Decision is extracted once at ingestion and never edited afterwards.
type Decision struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
	Owner       string `json:"owner"`
	Status      string `json:"status"` // DECIDED | PENDING
}

// ActionItem is extracted once at ingestion and never edited afterwards.
type ActionItem struct {
	ID       string `json:"id"`
	Task     string `json:"task"`
	Owner    string `json:"owner"`
	DueDate  string `json:"due_date"`
	Priority string `json:"priority"` // High | Medium | Low
	Status   string `json:"status"`   // Open | In Progress | Done
}

// Summary is the overview block produced by the extraction pass.
type Summary struct {
	Overview string   `json:"overview"`
	Agenda   []string `json:"agenda"`
	Risks    []string `json:"risks"`
}

// UserStory is one story inside a PRD.
type UserStory struct {
	Role               string   `json:"role"`
	Capability         string   `json:"capability"`
	Outcome            string   `json:"outcome"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

// PRD is replaced wholesale on every derivation; there is no field-level merge.
type PRD struct {
	ProblemStatement      string      `json:"problem_statement"`
	Personas              []string    `json:"personas"`
	UserStories           []UserStory `json:"user_stories"`
	TechnicalRequirements []string    `json:"technical_requirements"`
}

// Epic is one roadmap entry. Dependencies are free-text references to other
// epic titles, not structural ids.
type Epic struct {
	Title        string   `json:"title"`
	Phase        string   `json:"phase"` // Now | Next | Later
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
}

// Roadmap is replaced wholesale on every derivation, like PRD.
type Roadmap struct {
	StrategicTheme string `json:"strategic_theme"`
	Epics          []Epic `json:"epics"`
}

// Meeting is the aggregate root. The transcript is set exactly once at
// ingestion; derived artifacts only ever go from absent to present.
type Meeting struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Date         time.Time    `json:"date"`
	Participants []string     `json:"participants"`
	Source       SourceKind   `json:"source"`
	Transcript   string       `json:"transcript"`
	Summary      *Summary     `json:"summary,omitempty"`
	Decisions    []Decision   `json:"decisions"`
	ActionItems  []ActionItem `json:"action_items"`
	PRD          *PRD         `json:"prd,omitempty"`
	Roadmap      *Roadmap     `json:"roadmap,omitempty"`
	Status       Status       `json:"status"`
}

// ChatMessage is one turn in a meeting's question-answering session. The log
// is ephemeral per session and never persisted with the Meeting.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user | model
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

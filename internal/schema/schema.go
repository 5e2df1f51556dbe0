// Package schema defines the structural contracts enforced on generative
// model output: the responseSchema descriptors sent with each structured
// request, and the fail-closed decoders that turn raw model JSON into typed
// artifacts.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
)

// Node is one node of a generateContent responseSchema. It marshals to the
// JSON shape the Gemini API accepts.
type Node struct {
	Type        string           `json:"type"`
	Description string           `json:"description,omitempty"`
	Properties  map[string]*Node `json:"properties,omitempty"`
	Items       *Node            `json:"items,omitempty"`
	Enum        []string         `json:"enum,omitempty"`
	Required    []string         `json:"required,omitempty"`
}

func str(desc string) *Node        { return &Node{Type: "STRING", Description: desc} }
func strEnum(vals ...string) *Node { return &Node{Type: "STRING", Enum: vals} }
func strArray() *Node              { return &Node{Type: "ARRAY", Items: &Node{Type: "STRING"}} }
func objArray(item *Node) *Node    { return &Node{Type: "ARRAY", Items: item} }

// Extraction is the schema for the ingestion pass: meeting metadata, summary,
// decisions, and action items in a single structured response.
var Extraction = &Node{
	Type: "OBJECT",
	Properties: map[string]*Node{
		"title":        str("A concise title for the meeting"),
		"participants": strArray(),
		"overview":     str("A 2-3 sentence executive summary"),
		"agenda":       strArray(),
		"risks":        strArray(),
		"decisions": objArray(&Node{
			Type: "OBJECT",
			Properties: map[string]*Node{
				"description": str(""),
				"rationale":   str(""),
				"owner":       str(""),
				"status":      strEnum("DECIDED", "PENDING"),
			},
		}),
		"actionItems": objArray(&Node{
			Type: "OBJECT",
			Properties: map[string]*Node{
				"task":     str(""),
				"owner":    str(""),
				"dueDate":  str(""),
				"priority": strEnum("High", "Medium", "Low"),
				"status":   strEnum("Open", "In Progress", "Done"),
			},
		}),
	},
	Required: []string{"title", "overview", "decisions", "actionItems"},
}

// PRDDoc is the schema for Product Requirement Document derivation.
var PRDDoc = &Node{
	Type: "OBJECT",
	Properties: map[string]*Node{
		"problemStatement": str(""),
		"personas":         strArray(),
		"userStories": objArray(&Node{
			Type: "OBJECT",
			Properties: map[string]*Node{
				"role":               str(""),
				"capability":         str(""),
				"outcome":            str(""),
				"acceptanceCriteria": strArray(),
			},
		}),
		"technicalRequirements": strArray(),
	},
	Required: []string{"problemStatement", "userStories"},
}

// RoadmapDoc is the schema for roadmap derivation.
var RoadmapDoc = &Node{
	Type: "OBJECT",
	Properties: map[string]*Node{
		"strategicTheme": str(""),
		"epics": objArray(&Node{
			Type: "OBJECT",
			Properties: map[string]*Node{
				"title":        str(""),
				"phase":        strEnum("Now", "Next", "Later"),
				"description":  str(""),
				"dependencies": strArray(),
			},
		}),
	},
	Required: []string{"strategicTheme", "epics"},
}

// MalformedError reports model output that failed structural validation. The
// caller gets no partial data alongside it.
type MalformedError struct {
	Artifact string
	Reason   string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s artifact: %s", e.Artifact, e.Reason)
}

func malformed(artifact, format string, args ...any) error {
	return &MalformedError{Artifact: artifact, Reason: fmt.Sprintf(format, args...)}
}

// Extracted is the validated result of the ingestion pass. Decision and
// action-item ids are left empty; the orchestrator assigns fresh ones.
type Extracted struct {
	Title        string
	Participants []string
	Overview     string
	Agenda       []string
	Risks        []string
	Decisions    []meeting.Decision
	ActionItems  []meeting.ActionItem
}

type decisionWire struct {
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
	Owner       string `json:"owner"`
	Status      string `json:"status"`
}

type actionItemWire struct {
	Task     string `json:"task"`
	Owner    string `json:"owner"`
	DueDate  string `json:"dueDate"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
}

type extractionWire struct {
	Title        *string           `json:"title"`
	Participants []string          `json:"participants"`
	Overview     *string           `json:"overview"`
	Agenda       []string          `json:"agenda"`
	Risks        []string          `json:"risks"`
	Decisions    *[]decisionWire   `json:"decisions"`
	ActionItems  *[]actionItemWire `json:"actionItems"`
}

// DecodeExtraction validates raw model output against the extraction
// contract. Structurally required fields (title, overview, decisions,
// actionItems) must be present; only the non-critical list fields
// (participants, agenda, risks) default to empty when absent.
func DecodeExtraction(raw string) (*Extracted, error) {
	var w extractionWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, malformed("extraction", "invalid JSON: %v", err)
	}
	if w.Title == nil || *w.Title == "" {
		return nil, malformed("extraction", "missing required field title")
	}
	if w.Overview == nil {
		return nil, malformed("extraction", "missing required field overview")
	}
	if w.Decisions == nil {
		return nil, malformed("extraction", "missing required field decisions")
	}
	if w.ActionItems == nil {
		return nil, malformed("extraction", "missing required field actionItems")
	}

	out := &Extracted{
		Title:        *w.Title,
		Participants: orEmpty(w.Participants),
		Overview:     *w.Overview,
		Agenda:       orEmpty(w.Agenda),
		Risks:        orEmpty(w.Risks),
		Decisions:    make([]meeting.Decision, 0, len(*w.Decisions)),
		ActionItems:  make([]meeting.ActionItem, 0, len(*w.ActionItems)),
	}

	for i, d := range *w.Decisions {
		if d.Status != "DECIDED" && d.Status != "PENDING" {
			return nil, malformed("extraction", "decisions[%d].status %q outside enum", i, d.Status)
		}
		out.Decisions = append(out.Decisions, meeting.Decision{
			Description: d.Description,
			Rationale:   d.Rationale,
			Owner:       d.Owner,
			Status:      d.Status,
		})
	}
	for i, a := range *w.ActionItems {
		switch a.Priority {
		case "High", "Medium", "Low":
		default:
			return nil, malformed("extraction", "actionItems[%d].priority %q outside enum", i, a.Priority)
		}
		switch a.Status {
		case "Open", "In Progress", "Done":
		default:
			return nil, malformed("extraction", "actionItems[%d].status %q outside enum", i, a.Status)
		}
		out.ActionItems = append(out.ActionItems, meeting.ActionItem{
			Task:     a.Task,
			Owner:    a.Owner,
			DueDate:  a.DueDate,
			Priority: a.Priority,
			Status:   a.Status,
		})
	}
	return out, nil
}

type userStoryWire struct {
	Role               string   `json:"role"`
	Capability         string   `json:"capability"`
	Outcome            string   `json:"outcome"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
}

type prdWire struct {
	ProblemStatement      *string          `json:"problemStatement"`
	Personas              []string         `json:"personas"`
	UserStories           *[]userStoryWire `json:"userStories"`
	TechnicalRequirements []string         `json:"technicalRequirements"`
}

// DecodePRD validates raw model output against the PRD contract.
func DecodePRD(raw string) (*meeting.PRD, error) {
	var w prdWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, malformed("prd", "invalid JSON: %v", err)
	}
	if w.ProblemStatement == nil || *w.ProblemStatement == "" {
		return nil, malformed("prd", "missing required field problemStatement")
	}
	if w.UserStories == nil {
		return nil, malformed("prd", "missing required field userStories")
	}

	prd := &meeting.PRD{
		ProblemStatement:      *w.ProblemStatement,
		Personas:              orEmpty(w.Personas),
		UserStories:           make([]meeting.UserStory, 0, len(*w.UserStories)),
		TechnicalRequirements: orEmpty(w.TechnicalRequirements),
	}
	for _, s := range *w.UserStories {
		prd.UserStories = append(prd.UserStories, meeting.UserStory{
			Role:               s.Role,
			Capability:         s.Capability,
			Outcome:            s.Outcome,
			AcceptanceCriteria: orEmpty(s.AcceptanceCriteria),
		})
	}
	return prd, nil
}

type epicWire struct {
	Title        string   `json:"title"`
	Phase        string   `json:"phase"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
}

type roadmapWire struct {
	StrategicTheme *string     `json:"strategicTheme"`
	Epics          *[]epicWire `json:"epics"`
}

// DecodeRoadmap validates raw model output against the roadmap contract.
// Epic order and phase values are preserved exactly as returned.
func DecodeRoadmap(raw string) (*meeting.Roadmap, error) {
	var w roadmapWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, malformed("roadmap", "invalid JSON: %v", err)
	}
	if w.StrategicTheme == nil || *w.StrategicTheme == "" {
		return nil, malformed("roadmap", "missing required field strategicTheme")
	}
	if w.Epics == nil {
		return nil, malformed("roadmap", "missing required field epics")
	}

	rm := &meeting.Roadmap{
		StrategicTheme: *w.StrategicTheme,
		Epics:          make([]meeting.Epic, 0, len(*w.Epics)),
	}
	for i, e := range *w.Epics {
		switch e.Phase {
		case "Now", "Next", "Later":
		default:
			return nil, malformed("roadmap", "epics[%d].phase %q outside enum", i, e.Phase)
		}
		rm.Epics = append(rm.Epics, meeting.Epic{
			Title:        e.Title,
			Phase:        e.Phase,
			Description:  e.Description,
			Dependencies: orEmpty(e.Dependencies),
		})
	}
	return rm, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

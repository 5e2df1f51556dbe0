// Package prompt assembles the bounded textual context sent to the gateway
// for each artifact kind. Transcript-bearing contexts keep only the leading
// portion of the transcript; answers about material past the cutoff are
// unreliable, which is a documented limitation rather than a bug.
package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/aakarsh-hub/pmcopilot/internal/gemini"
	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
	"github.com/aakarsh-hub/pmcopilot/internal/schema"
)

const (
	// maxTranscriptExcerpt bounds the transcript excerpt in PRD context.
	maxTranscriptExcerpt = 5000
	// maxChatTranscript bounds the grounding transcript for chat turns.
	maxChatTranscript = 30000
)

const extractionSystem = "You are an expert Product Manager assistant. Analyze the meeting content to extract key product artifacts."

// Extraction builds the ingestion request: the raw notes text, or the binary
// audio payload plus a fixed instruction describing the extraction task.
func Extraction(content []byte, kind meeting.SourceKind, mimeType string) gemini.Request {
	var parts []gemini.Part
	if kind == meeting.SourceAudio {
		if mimeType == "" {
			mimeType = "audio/mp3"
		}
		parts = []gemini.Part{
			{Data: content, MIMEType: mimeType},
			{Text: "Analyze this meeting recording. Provide a full transcript if possible, then extract the structured data requested in the schema."},
		}
	} else {
		parts = []gemini.Part{
			{Text: "Analyze these meeting notes:\n\n" + string(content)},
		}
	}
	return gemini.Request{
		System: extractionSystem,
		Parts:  parts,
		Schema: schema.Extraction,
	}
}

// PRDContext builds the PRD derivation request from the meeting's summary and
// the leading transcript excerpt, never the full transcript.
func PRDContext(m *meeting.Meeting) gemini.Request {
	ctx := fmt.Sprintf("%s\n\nTranscript excerpt: %s",
		asJSON(m.Summary), head(m.Transcript, maxTranscriptExcerpt))
	return gemini.Request{
		Parts: []gemini.Part{
			{Text: "Based on the following meeting context, generate a detailed Product Requirement Document (PRD).\n\nContext:\n" + ctx},
		},
		Schema: schema.PRDDoc,
	}
}

// RoadmapContext builds the roadmap derivation request from the meeting's
// summary and decisions.
func RoadmapContext(m *meeting.Meeting) gemini.Request {
	ctx := fmt.Sprintf("%s\n\nDecisions: %s", asJSON(m.Summary), asJSON(m.Decisions))
	return gemini.Request{
		Parts: []gemini.Part{
			{Text: "Based on the following meeting context, suggest a product roadmap with Epics clustered into Now, Next, and Later.\n\nContext:\n" + ctx},
		},
		Schema: schema.RoadmapDoc,
	}
}

// EmailContext builds the stakeholder email request from the summary and
// action items. The tone varies register only, never the factual content.
func EmailContext(m *meeting.Meeting, tone meeting.Tone) gemini.Request {
	ctx := fmt.Sprintf("%s\nActions: %s", asJSON(m.Summary), asJSON(m.ActionItems))
	return gemini.Request{
		Parts: []gemini.Part{
			{Text: fmt.Sprintf("Write a stakeholder update email based on this meeting.\n\nTone: %s\n\nMeeting Context:\n%s", tone, ctx)},
		},
	}
}

// Chat builds one question-answering turn. The system framing carries the
// grounding contract: answer only from the supplied context, and say so when
// the answer is absent from it.
func Chat(m *meeting.Meeting, history []meeting.ChatMessage, question string) gemini.Request {
	grounding := fmt.Sprintf("Summary: %s\nDecisions: %s\nFull Content: %s",
		asJSON(m.Summary), asJSON(m.Decisions), head(m.Transcript, maxChatTranscript))

	system := "You are a helpful PM assistant. You have access to the transcript/notes of a specific meeting. " +
		"Answer the user's question based ONLY on the provided context. If the answer isn't in the context, say so.\n\n" +
		"MEETING CONTEXT:\n" + grounding

	turns := make([]gemini.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, gemini.Turn{Role: msg.Role, Content: msg.Content})
	}
	return gemini.Request{
		System:  system,
		History: turns,
		Parts:   []gemini.Part{{Text: question}},
	}
}

func asJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

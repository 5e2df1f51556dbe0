// Package gemini wraps the Gemini generateContent API behind a single
// Complete call: ordered prompt parts in, raw text out. Structural validation
// of structured responses belongs to the schema package; this client only
// guarantees one result or one error, never partial delivery.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aakarsh-hub/pmcopilot/internal/schema"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// ErrUnavailable indicates the generative service call could not complete.
var ErrUnavailable = errors.New("generative service unavailable")

// Part is one ordered segment of a prompt: plain text, or inline binary
// content tagged with a media type (audio ingestion).
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// Turn is one prior conversation turn supplied as chat history.
type Turn struct {
	Role    string // "user" or "model"
	Content string
}

// Request describes a single completion call.
type Request struct {
	Model   string
	System  string       // optional system instruction
	History []Turn       // optional prior turns, oldest first
	Parts   []Part       // the new message
	Schema  *schema.Node // when set, constrains output to JSON of this shape
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a client. baseURL overrides the production endpoint when
// non-empty (tests point it at a local server).
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inline_data,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	ResponseMIMEType string       `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema.Node `json:"responseSchema,omitempty"`
}

type wireRequest struct {
	SystemInstruction *wireContent          `json:"system_instruction,omitempty"`
	Contents          []wireContent         `json:"contents"`
	GenerationConfig  *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete performs one generateContent call and returns the concatenated
// text of the first candidate. Exactly one result or one error.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY not set", ErrUnavailable)
	}

	body := wireRequest{}
	if req.System != "" {
		body.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.System}}}
	}
	for _, t := range req.History {
		body.Contents = append(body.Contents, wireContent{
			Role:  t.Role,
			Parts: []wirePart{{Text: t.Content}},
		})
	}
	msg := wireContent{Role: "user"}
	for _, p := range req.Parts {
		if p.Data != nil {
			msg.Parts = append(msg.Parts, wirePart{InlineData: &wireInlineData{
				MIMEType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		msg.Parts = append(msg.Parts, wirePart{Text: p.Text})
	}
	body.Contents = append(body.Contents, msg)

	if req.Schema != nil {
		body.GenerationConfig = &wireGenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, truncate(respBody, 512))
	}

	var parsed wireResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", ErrUnavailable, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s: %s", ErrUnavailable, parsed.Error.Status, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrUnavailable)
	}

	var text string
	for _, p := range parsed.Candidates[0].Content.Parts {
		text += p.Text
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrUnavailable)
	}
	return text, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

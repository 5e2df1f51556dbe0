package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aakarsh-hub/pmcopilot/internal/schema"
)

func candidateResponse(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(b)
}

func TestComplete_StructuredRequest(t *testing.T) {
	var captured wireRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(candidateResponse(`{"ok": true}`)))
	}))
	defer ts.Close()

	c := NewClient("test-key", ts.URL)
	out, err := c.Complete(context.Background(), Request{
		Model:  "gemini-2.5-flash",
		System: "You are an assistant.",
		Parts:  []Part{{Text: "analyze this"}},
		Schema: schema.Extraction,
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if out != `{"ok": true}` {
		t.Errorf("unexpected output %q", out)
	}

	if captured.SystemInstruction == nil {
		t.Error("system instruction not sent")
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Error("structured requests must constrain output to JSON")
	}
	if captured.GenerationConfig.ResponseSchema == nil {
		t.Error("responseSchema not sent")
	}
	if len(captured.Contents) != 1 || captured.Contents[0].Parts[0].Text != "analyze this" {
		t.Errorf("unexpected contents: %+v", captured.Contents)
	}
}

func TestComplete_BinaryPartAndHistory(t *testing.T) {
	var captured wireRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(candidateResponse("answer")))
	}))
	defer ts.Close()

	c := NewClient("test-key", ts.URL)
	_, err := c.Complete(context.Background(), Request{
		Model: "gemini-2.5-flash",
		History: []Turn{
			{Role: "user", Content: "first question"},
			{Role: "model", Content: "first answer"},
		},
		Parts: []Part{
			{Data: []byte{0x00, 0x01}, MIMEType: "audio/wav"},
			{Text: "transcribe"},
		},
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if len(captured.Contents) != 3 {
		t.Fatalf("expected 2 history turns + 1 message, got %d", len(captured.Contents))
	}
	if captured.Contents[0].Role != "user" || captured.Contents[1].Role != "model" {
		t.Error("history roles must pass through in order")
	}
	msg := captured.Contents[2]
	if msg.Parts[0].InlineData == nil || msg.Parts[0].InlineData.MIMEType != "audio/wav" {
		t.Errorf("binary part must carry inline data: %+v", msg.Parts[0])
	}
	if msg.Parts[0].InlineData.Data == "" {
		t.Error("binary payload must be base64 encoded")
	}
	if msg.Parts[1].Text != "transcribe" {
		t.Error("part order must be preserved")
	}
}

func TestComplete_FailureModes(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": {"code": 500, "message": "boom", "status": "INTERNAL"}}`, http.StatusInternalServerError)
		}},
		{"api error body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error": {"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"}}`))
		}},
		{"no candidates", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates": []}`))
		}},
		{"empty candidate text", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates": [{"content": {"parts": []}}]}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(tc.handler)
			defer ts.Close()

			c := NewClient("test-key", ts.URL)
			out, err := c.Complete(context.Background(), Request{
				Model: "gemini-2.5-flash",
				Parts: []Part{{Text: "hi"}},
			})
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
			if out != "" {
				t.Error("no partial output may accompany a failure")
			}
		})
	}
}

func TestComplete_MissingAPIKey(t *testing.T) {
	c := NewClient("", "http://localhost:0")
	_, err := c.Complete(context.Background(), Request{Model: "m", Parts: []Part{{Text: "hi"}}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestComplete_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("test-key", ts.URL)
	_, err := c.Complete(ctx, Request{Model: "m", Parts: []Part{{Text: "hi"}}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("abandoned calls surface as unavailable, got %v", err)
	}
}

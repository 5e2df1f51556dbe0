package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aakarsh-hub/pmcopilot/internal/copilot"
	"github.com/aakarsh-hub/pmcopilot/internal/gemini"
	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
	"github.com/aakarsh-hub/pmcopilot/internal/testutil"
)

const extractionResponse = `{
	"title": "Q3 Launch Planning",
	"overview": "Agreed to launch in Q3.",
	"decisions": [],
	"actionItems": []
}`

func setupServer(gw *testutil.MockGateway) (*Server, *testutil.MockStore) {
	db := testutil.NewMockStore()
	orc := copilot.New(gw, db, copilot.Config{})
	return NewServer(orc, db, 8600), db
}

func seed(db *testutil.MockStore) *meeting.Meeting {
	m := &meeting.Meeting{
		ID:         "m-1",
		Title:      "Planning",
		Source:     meeting.SourceNotes,
		Transcript: "notes",
		Summary:    &meeting.Summary{Overview: "short", Agenda: []string{}, Risks: []string{}},
		Status:     meeting.StatusCompleted,
	}
	db.Seed(m)
	return m
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupServer(&testutil.MockGateway{})

	w := do(srv, "GET", "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["service"] != "pmcopilot" {
		t.Errorf("expected service pmcopilot, got %v", body["service"])
	}
}

func TestIngestNotes(t *testing.T) {
	srv, db := setupServer(&testutil.MockGateway{Responses: []string{extractionResponse}})

	w := do(srv, "POST", "/api/v1/meetings", `{"notes": "Decided to launch in Q3."}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var m meeting.Meeting
	json.NewDecoder(w.Body).Decode(&m)
	if m.Title != "Q3 Launch Planning" || m.Status != meeting.StatusCompleted {
		t.Errorf("unexpected meeting: %+v", m)
	}
	if len(db.Meetings) != 1 {
		t.Errorf("expected 1 stored meeting, got %d", len(db.Meetings))
	}
}

func TestIngestNotes_EmptyContent(t *testing.T) {
	srv, _ := setupServer(&testutil.MockGateway{})

	w := do(srv, "POST", "/api/v1/meetings", `{"notes": "   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["error_kind"] != "invalid_input" {
		t.Errorf("error_kind = %q", body["error_kind"])
	}
}

func TestIngestNotes_GatewayFailureReturnsShell(t *testing.T) {
	gw := &testutil.MockGateway{Err: fmt.Errorf("%w: down", gemini.ErrUnavailable)}
	srv, _ := setupServer(gw)

	w := do(srv, "POST", "/api/v1/meetings", `{"notes": "some notes"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var body struct {
		ErrorKind string           `json:"error_kind"`
		Meeting   *meeting.Meeting `json:"meeting"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.ErrorKind != "gateway_unavailable" {
		t.Errorf("error_kind = %q", body.ErrorKind)
	}
	if body.Meeting == nil || body.Meeting.Status != meeting.StatusError {
		t.Errorf("error shell must be returned, got %+v", body.Meeting)
	}
}

func TestGetMeeting_NotFound(t *testing.T) {
	srv, _ := setupServer(&testutil.MockGateway{})

	w := do(srv, "GET", "/api/v1/meetings/missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListMeetings(t *testing.T) {
	srv, db := setupServer(&testutil.MockGateway{})
	seed(db)

	w := do(srv, "GET", "/api/v1/meetings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []meeting.Meeting
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != "m-1" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestDerivePRD_MalformedMapsTo502(t *testing.T) {
	srv, db := setupServer(&testutil.MockGateway{Responses: []string{`{"not": "a prd"}`}})
	seed(db)

	w := do(srv, "POST", "/api/v1/meetings/m-1/prd", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["error_kind"] != "malformed_artifact" {
		t.Errorf("error_kind = %q", body["error_kind"])
	}
}

func TestDeriveEmail(t *testing.T) {
	srv, db := setupServer(&testutil.MockGateway{Responses: []string{"Hello investors."}})
	seed(db)

	w := do(srv, "POST", "/api/v1/meetings/m-1/email", `{"tone": "Investor"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["email"] != "Hello investors." {
		t.Errorf("unexpected draft %q", body["email"])
	}

	w = do(srv, "POST", "/api/v1/meetings/m-1/email", `{"tone": "Casual"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid tone must map to 400, got %d", w.Code)
	}
}

func TestChat_SessionPersistsAcrossTurns(t *testing.T) {
	gw := &testutil.MockGateway{Responses: []string{"Bob owns it.", "By Friday."}}
	srv, db := setupServer(gw)
	seed(db)

	for i, q := range []string{"Who owns pricing?", "When is it due?"} {
		w := do(srv, "POST", "/api/v1/meetings/m-1/chat", fmt.Sprintf(`{"question": %q}`, q))
		if w.Code != http.StatusOK {
			t.Fatalf("turn %d: expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
		var reply meeting.ChatMessage
		json.NewDecoder(w.Body).Decode(&reply)
		if reply.Role != "model" {
			t.Errorf("turn %d role = %q", i, reply.Role)
		}
	}

	// The second turn must carry the first as history.
	last := gw.LastRequest()
	if len(last.History) != 2 {
		t.Fatalf("expected 2 prior turns in history, got %d", len(last.History))
	}
	if last.History[0].Content != "Who owns pricing?" {
		t.Errorf("history out of order: %+v", last.History)
	}
}

func TestChat_EmptyQuestion(t *testing.T) {
	srv, db := setupServer(&testutil.MockGateway{})
	seed(db)

	w := do(srv, "POST", "/api/v1/meetings/m-1/chat", `{"question": ""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["error_kind"] != "empty_question" {
		t.Errorf("error_kind = %q", body["error_kind"])
	}
}

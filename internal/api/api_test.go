package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/korsky/hearth/internal/orchestrator"
	"github.com/korsky/hearth/internal/pipeline"
	"github.com/korsky/hearth/internal/registry"
)

// echoStep — шаг, публикующий одно событие.
type echoStep struct {
	name    string
	message string
}

func (s *echoStep) Name() string { return s.name }

func (s *echoStep) Run(_ context.Context, _ *pipeline.Context, emit pipeline.EmitFunc) error {
	emit(s.message)
	return nil
}

func testHandler() *Handler {
	reg := registry.New([]registry.Device{
		{ID: "living_room_lamp", Name: "Living room lamp", Zone: "living_room", Type: "light", Capabilities: []string{"onoff"}},
	})

	orch := orchestrator.New([]pipeline.Step{
		&echoStep{name: "intent", message: "intent resolved"},
		&echoStep{name: "action", message: "action dispatched"},
	}, nil, 8, nil)

	return NewHandler(Config{
		Orchestrator: orch,
		Registry:     reg,
	})
}

func testServer(h *Handler) *httptest.Server {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

// readSSE читает события из SSE ответа до закрытия потока.
func readSSE(t *testing.T, body *bufio.Scanner) []orchestrator.ProgressEvent {
	t.Helper()

	var events []orchestrator.ProgressEvent
	for body.Scan() {
		line := body.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev orchestrator.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad event payload %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestCreateCommand_AcceptedWithClaimableStream(t *testing.T) {
	h := testHandler()
	srv := testServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/commands", "application/json",
		strings.NewReader(`{"text":"turn on the light"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var accepted struct {
		Data CommandAccepted `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}

	events, err := http.Get(srv.URL + "/api/v1/commands/" + accepted.Data.RequestID.String() + "/events")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer events.Body.Close()

	if ct := events.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %s", ct)
	}

	got := readSSE(t, bufio.NewScanner(events.Body))
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if !got[len(got)-1].Terminal {
		t.Error("last event must be terminal")
	}

	// Поток выдаётся один раз
	again, err := http.Get(srv.URL + "/api/v1/commands/" + accepted.Data.RequestID.String() + "/events")
	if err != nil {
		t.Fatalf("get events again: %v", err)
	}
	defer again.Body.Close()
	if again.StatusCode != http.StatusNotFound {
		t.Errorf("second claim status = %d, want 404", again.StatusCode)
	}
}

func TestStreamCommand_OneShot(t *testing.T) {
	h := testHandler()
	srv := testServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/commands/stream", "application/json",
		strings.NewReader(`{"text":"turn on the light"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	events := readSSE(t, bufio.NewScanner(resp.Body))
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Sequence != uint64(i+1) {
			t.Errorf("event %d sequence = %d", i, ev.Sequence)
		}
	}
}

func TestCreateCommand_EmptyTextRejected(t *testing.T) {
	h := testHandler()
	srv := testServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/commands", "application/json",
		strings.NewReader(`{"text":"  "}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListDevices(t *testing.T) {
	h := testHandler()
	srv := testServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/devices")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var list struct {
		Data  []DeviceResponse `json:"data"`
		Total int              `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 1 || list.Data[0].ID != "living_room_lamp" {
		t.Fatalf("devices = %+v", list)
	}
}

func TestListRequests_DisabledHistory(t *testing.T) {
	h := testHandler()
	srv := testServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/requests")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestStreamTable_ExpiredStreamCancelled(t *testing.T) {
	table := newStreamTable(time.Millisecond)

	orch := orchestrator.New(nil, nil, 4, nil)
	stream, err := orch.Handle(context.Background(), orchestrator.Request{Text: "x"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	table.put(stream)
	time.Sleep(5 * time.Millisecond)

	if _, ok := table.claim(stream.RequestID); ok {
		t.Fatal("expired stream should not be claimable")
	}
	if !stream.Cancelled() {
		t.Fatal("expired stream should be cancelled")
	}
}

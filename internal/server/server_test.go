package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/storyflow/pkg/cache"
	apperrors "github.com/matzehuels/storyflow/pkg/errors"
	"github.com/matzehuels/storyflow/pkg/flow"
	"github.com/matzehuels/storyflow/pkg/observability"
	"github.com/matzehuels/storyflow/pkg/pipeline"
	"github.com/matzehuels/storyflow/pkg/simulate"
)

const storyJSON = `{
  "title": "test",
  "fragments": [
    {"fragment_id": "start", "content": "hi", "character": "Lucien", "level": 1,
     "decisions": [{"text": "go", "next_fragment": "vip"}, {"text": "broken", "next_fragment": "nowhere"}]},
    {"fragment_id": "vip", "content": "secret", "character": "Diana", "level": 2,
     "required_role": "vip", "required_besitos": 10, "decisions": []},
    {"fragment_id": "lonely", "content": "orphan", "character": "Diana", "level": 1, "decisions": []}
  ]
}`

const validStoryJSON = `{
  "title": "ok",
  "fragments": [
    {"fragment_id": "start", "content": "hi", "decisions": [{"text": "go", "next_fragment": "end"}]},
    {"fragment_id": "end", "content": "bye", "decisions": []}
  ]
}`

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	t.Cleanup(observability.Reset)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(c, nil, nil)
	s := New(runner, cfg, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRequestIDReachesPipelineLogs(t *testing.T) {
	t.Cleanup(observability.Reset)
	var out lockedBuffer
	logger := log.New(&out)
	runner := pipeline.NewRunner(nil, nil, log.New(io.Discard))
	ts := httptest.NewServer(New(runner, Config{}, logger).Handler())
	t.Cleanup(ts.Close)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/validate", strings.NewReader(validStoryJSON))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "trace-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	logs := out.String()
	if !strings.Contains(logs, "validated story") || !strings.Contains(logs, "request_id=trace-42") {
		t.Errorf("pipeline log lines lack the request ID:\n%s", logs)
	}
}

func TestValidate(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp := post(t, ts.URL+"/api/validate", storyJSON)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("first X-Cache = %q, want MISS", got)
	}
	res := decode[flow.ValidationResult](t, resp)
	if res.IsValid {
		t.Error("story with a broken connection reported valid")
	}
	if res.Stats.BrokenConnections != 1 || res.Stats.OrphanedFragments != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}

	resp = post(t, ts.URL+"/api/validate", storyJSON)
	if got := resp.Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", got)
	}
	resp = post(t, ts.URL+"/api/validate?refresh=true", storyJSON)
	if got := resp.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("refresh X-Cache = %q, want MISS", got)
	}
}

func TestValidateYAMLBody(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	body := "title: y\nfragments:\n  - fragment_id: start\n    content: hi\n    decisions: []\n"
	resp, err := http.Post(ts.URL+"/api/validate", "application/yaml", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if res := decode[flow.ValidationResult](t, resp); !res.IsValid {
		t.Errorf("errors = %v", res.ErrorMessages())
	}
}

func TestErrors(t *testing.T) {
	_, ts := newTestServer(t, Config{MaxBodyBytes: 64})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   apperrors.Code
	}{
		{"bad json", "/api/validate", "{", http.StatusBadRequest, apperrors.ErrCodeInvalidStory},
		{"no fragments", "/api/analyze", `{"title":"x"}`, http.StatusBadRequest, apperrors.ErrCodeInvalidStory},
		{"too large", "/api/validate", validStoryJSON, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"bad max_paths", "/api/paths?max_paths=-1", `{}`, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"bad story format", "/api/validate?format=xml", `{}`, http.StatusBadRequest, apperrors.ErrCodeInvalidFormat},
		{"unknown route", "/api/nope", `{}`, http.StatusNotFound, apperrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decode[errorResponse](t, resp)
			if body.Error.Code != tt.code {
				t.Errorf("code = %q, want %q (%s)", body.Error.Code, tt.code, body.Error.Message)
			}
		})
	}
}

func TestAnalysisEndpoints(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	t.Run("analyze", func(t *testing.T) {
		rep := decode[flow.FlowReport](t, post(t, ts.URL+"/api/analyze", storyJSON))
		if rep.TotalFragments != 3 || rep.TerminalFragments != 2 {
			t.Errorf("report = %+v", rep)
		}
	})
	t.Run("reachability", func(t *testing.T) {
		rep := decode[flow.ReachabilityReport](t, post(t, ts.URL+"/api/reachability", storyJSON))
		if rep.IsReachable("lonely") || !rep.IsReachable("vip") {
			t.Errorf("report = %+v", rep)
		}
	})
	t.Run("cycles", func(t *testing.T) {
		set := decode[flow.CycleSet](t, post(t, ts.URL+"/api/cycles", validStoryJSON))
		if len(set.Cycles) != 0 {
			t.Errorf("cycles = %v", set.Cycles)
		}
	})
	t.Run("paths", func(t *testing.T) {
		stats := decode[flow.PathStats](t, post(t, ts.URL+"/api/paths", validStoryJSON))
		if stats.TotalPaths != 1 {
			t.Errorf("total paths = %d", stats.TotalPaths)
		}
	})
}

func TestSimulate(t *testing.T) {
	_, ts := newTestServer(t, Config{Preview: simulate.State{Besitos: 50, Role: "normal", Level: 1}})

	t.Run("blocked by role", func(t *testing.T) {
		resp := decode[simulateResponse](t, post(t, ts.URL+"/api/simulate?path=start,vip", storyJSON))
		if resp.Result == nil || resp.Result.Success {
			t.Fatalf("result = %+v", resp.Result)
		}
		if resp.Start.Besitos != 50 {
			t.Errorf("start besitos = %d, want configured 50", resp.Start.Besitos)
		}
	})
	t.Run("role override", func(t *testing.T) {
		resp := decode[simulateResponse](t, post(t, ts.URL+"/api/simulate?path=start,vip&role=vip", storyJSON))
		if resp.Result == nil || !resp.Result.Success {
			t.Fatalf("result = %+v", resp.Result)
		}
		if got := resp.Result.Final.Besitos; got != 40 {
			t.Errorf("final besitos = %d, want 40", got)
		}
	})
	t.Run("playthroughs", func(t *testing.T) {
		resp := decode[simulateResponse](t, post(t, ts.URL+"/api/simulate", validStoryJSON))
		if len(resp.Playthroughs) != 1 || resp.Entry != "start" {
			t.Errorf("response = %+v", resp)
		}
	})
	t.Run("bad role", func(t *testing.T) {
		resp := post(t, ts.URL+"/api/simulate?role=admin", validStoryJSON)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestRender(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp := post(t, ts.URL+"/api/render?output=dot&direction=LR", storyJSON)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/vnd.graphviz") {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"digraph", "rankdir=LR", "missing:nowhere"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("dot missing %q", want)
		}
	}

	resp = post(t, ts.URL+"/api/render?output=gif", storyJSON)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("gif status = %d", resp.StatusCode)
	}
}

func TestGetStory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "act1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "act1", "intro.json"), []byte(validStoryJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	_, ts := newTestServer(t, Config{StoriesDir: dir})

	tests := []struct {
		path   string
		status int
	}{
		{"act1/intro.json", http.StatusOK},
		{"act1/missing.json", http.StatusNotFound},
		{"act1/..%2F..%2Fetc/passwd.json", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/stories/" + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	post(t, ts.URL+"/api/validate", validStoryJSON)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"storyflow_http_requests_total", "storyflow_pipeline_analyses_total"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestWebsocketReceivesValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")
	if err := os.WriteFile(path, []byte(storyJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	s, ts := newTestServer(t, Config{})
	defer s.hub.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Notify(context.Background(), path)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "validation" || ev.Result == nil || ev.Result.IsValid {
		t.Errorf("event = %+v", ev)
	}

	s.Notify(context.Background(), filepath.Join(t.TempDir(), "gone.json"))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "error" || ev.Error == nil || ev.Error.Code != apperrors.ErrCodeFileNotFound {
		t.Errorf("event = %+v", ev)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[apperrors.Code]int{
		apperrors.ErrCodeInvalidStory: http.StatusBadRequest,
		apperrors.ErrCodeFileNotFound: http.StatusNotFound,
		apperrors.ErrCodeBlocked:      http.StatusUnprocessableEntity,
		apperrors.ErrCodeUnsupported:  http.StatusNotImplemented,
		apperrors.ErrCodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

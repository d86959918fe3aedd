package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mlerrors "github.com/matzehuels/mermaidlive/pkg/errors"
	"github.com/matzehuels/mermaidlive/pkg/observability"
	"github.com/matzehuels/mermaidlive/pkg/render"
	"github.com/matzehuels/mermaidlive/pkg/session"
)

var fakeRenderer = render.RendererFunc(func(_ context.Context, _ string, source string) ([]byte, error) {
	if strings.Contains(source, "bad") {
		return nil, errors.New("Parse error on line 1")
	}
	return []byte(`<svg viewBox="0 0 10 10"><text>` + source + `</text></svg>`), nil
})

var fakeMarkup = render.MarkupFunc(func(doc string) (string, error) {
	return "<article>" + doc + "</article>", nil
})

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithStats(t, nil)
}

func newTestServerWithStats(t *testing.T, stats *observability.Stats) *testServer {
	t.Helper()
	store := session.NewStore(session.DefaultTTL)
	s := New(Config{
		Stats: stats,
		Store: store,
		Session: session.Config{
			Renderer: fakeRenderer,
			Markup:   fakeMarkup,
			Debounce: time.Millisecond,
		},
		PollTimeout: 200 * time.Millisecond,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return &testServer{t: t, srv: srv}
}

func (ts *testServer) do(method, path string, body any) *http.Response {
	ts.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatal(err)
		}
		r = strings.NewReader(string(data))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, r)
	if err != nil {
		ts.t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		ts.t.Fatal(err)
	}
	ts.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func (ts *testServer) create() sessionPayload {
	ts.t.Helper()
	resp := ts.do(http.MethodPost, "/api/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		ts.t.Fatalf("create status = %d", resp.StatusCode)
	}
	return decodeBody[sessionPayload](ts.t, resp)
}

// waitRender polls until a result satisfying ok arrives.
func (ts *testServer) waitRender(id string, ok func(resultPayload) bool) resultPayload {
	ts.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var after uint64
	for time.Now().Before(deadline) {
		resp := ts.do(http.MethodGet, "/api/sessions/"+id+"/render?after="+itoa(after), nil)
		if resp.StatusCode == http.StatusNoContent {
			continue
		}
		if resp.StatusCode != http.StatusOK {
			ts.t.Fatalf("render status = %d", resp.StatusCode)
		}
		res := decodeBody[resultPayload](ts.t, resp)
		if ok(res) {
			return res
		}
		after = res.Token
	}
	ts.t.Fatal("no matching render result")
	return resultPayload{}
}

type sessionPayload struct {
	ID    string `json:"id"`
	State struct {
		Mode             string `json:"mode"`
		StandaloneSource string `json:"standalone_source"`
		DocumentSource   string `json:"document_source"`
		SelectedIndex    int    `json:"selected_index"`
		DisplayName      string `json:"display_name"`
		Diagrams         []struct {
			Title string `json:"title"`
			Kind  string `json:"kind"`
		} `json:"diagrams"`
	} `json:"state"`
	View struct {
		Zoom    float64 `json:"zoom"`
		Percent int     `json:"percent"`
		CSS     string  `json:"css"`
	} `json:"view"`
	Latest  uint64 `json:"latest"`
	Changed *bool  `json:"changed"`
}

type resultPayload struct {
	Token       uint64 `json:"token"`
	Mode        string `json:"mode"`
	Status      string `json:"status"`
	Artifact    string `json:"artifact"`
	Message     string `json:"message"`
	Placeholder bool   `json:"placeholder"`
}

func itoa(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestHealthAndIndex(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	resp = ts.do(http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("index status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("index Content-Type = %q", ct)
	}
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create()

	if s.ID == "" {
		t.Fatal("empty session id")
	}
	if s.State.Mode != "standalone" {
		t.Errorf("mode = %q, want standalone", s.State.Mode)
	}
	if len(s.State.Diagrams) != 2 || s.State.SelectedIndex != 0 {
		t.Errorf("diagrams = %d, selected = %d; want 2, 0", len(s.State.Diagrams), s.State.SelectedIndex)
	}
	if s.View.Percent != 100 {
		t.Errorf("zoom percent = %d, want 100", s.View.Percent)
	}

	res := ts.waitRender(s.ID, func(resultPayload) bool { return true })
	if res.Status != "success" || !strings.Contains(res.Artifact, "<svg") {
		t.Errorf("initial render = %+v", res)
	}
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(http.MethodGet, "/api/sessions/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	body := decodeBody[errorResponse](t, resp)
	if body.Code != mlerrors.ErrCodeSessionNotFound {
		t.Errorf("code = %s, want SESSION_NOT_FOUND", body.Code)
	}
}

func TestEditAndRender(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create()

	resp := ts.do(http.MethodPut, "/api/sessions/"+s.ID+"/standalone", map[string]string{"text": "graph LR\n  X-->Y"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit status = %d", resp.StatusCode)
	}
	edited := decodeBody[sessionPayload](t, resp)
	if edited.Changed == nil || !*edited.Changed {
		t.Error("edit not reported as changed")
	}

	res := ts.waitRender(s.ID, func(r resultPayload) bool { return strings.Contains(r.Artifact, "X--&gt;Y") || strings.Contains(r.Artifact, "X-->Y") })
	if res.Status != "success" {
		t.Errorf("status = %q", res.Status)
	}

	ts.do(http.MethodPut, "/api/sessions/"+s.ID+"/standalone", map[string]string{"text": "bad"})
	res = ts.waitRender(s.ID, func(r resultPayload) bool { return r.Status == "failure" })
	if !strings.Contains(res.Message, "Parse error") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestEditInactiveBuffer(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create()

	resp := ts.do(http.MethodPut, "/api/sessions/"+s.ID+"/document", map[string]string{"text": "# nope"})
	got := decodeBody[sessionPayload](t, resp)
	if got.Changed == nil || *got.Changed {
		t.Error("document edit in standalone mode reported as changed")
	}
	if got.State.DocumentSource == "# nope" {
		t.Error("document buffer changed in standalone mode")
	}
}

func TestModeAndSelect(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create()

	resp := ts.do(http.MethodPost, "/api/sessions/"+s.ID+"/select", map[string]int{"index": 1})
	got := decodeBody[sessionPayload](t, resp)
	if got.State.SelectedIndex != 1 {
		t.Errorf("selected = %d, want 1", got.State.SelectedIndex)
	}

	resp = ts.do(http.MethodPost, "/api/sessions/"+s.ID+"/select", map[string]int{"index": 9})
	got = decodeBody[sessionPayload](t, resp)
	if got.State.SelectedIndex != 1 || *got.Changed {
		t.Errorf("out of range select: selected = %d, changed = %v", got.State.SelectedIndex, *got.Changed)
	}

	resp = ts.do(http.MethodPost, "/api/sessions/"+s.ID+"/mode", map[string]bool{"embedded": true})
	got = decodeBody[sessionPayload](t, resp)
	if got.State.Mode != "embedded" {
		t.Errorf("mode = %q, want embedded", got.State.Mode)
	}

	res := ts.waitRender(s.ID, func(r resultPayload) bool { return r.Mode == "embedded" })
	if !strings.Contains(res.Artifact, "<article>") {
		t.Errorf("embedded artifact = %q", res.Artifact)
	}
}

func TestView(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create()
	path := "/api/sessions/" + s.ID + "/view"

	got := decodeBody[sessionPayload](t, ts.do(http.MethodPost, path, map[string]string{"action": "zoom_in"}))
	if got.View.Percent != 120 {
		t.Errorf("zoom_in percent = %d, want 120", got.View.Percent)
	}

	got = decodeBody[sessionPayload](t, ts.do(http.MethodPost, path, map[string]string{"action": "reset"}))
	if got.View.Percent != 100 {
		t.Errorf("reset percent = %d, want 100", got.View.Percent)
	}

	got = decodeBody[sessionPayload](t, ts.do(http.MethodPost, path, map[string]any{"action": "wheel", "delta": 100}))
	if got.View.Percent != 90 {
		t.Errorf("wheel percent = %d, want 90", got.View.Percent)
	}

	resp := ts.do(http.MethodPost, path, map[string]string{"action": "spin"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown action status = %d, want 400", resp.StatusCode)
	}

	resp = ts.do(http.MethodPost, path, map[string]string{"action": "drag_start"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("drag_start without point status = %d, want 400", resp.StatusCode)
	}
}

func TestLoadAndSave(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create()

	doc := "# Notes\n\n## Flow\n\n```mermaid\nsequenceDiagram\n  A->>B: hi\n```\n"
	resp := ts.do(http.MethodPost, "/api/sessions/"+s.ID+"/load", map[string]string{"name": "notes.md", "text": doc})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load status = %d", resp.StatusCode)
	}
	got := decodeBody[sessionPayload](t, resp)
	if got.State.Mode != "embedded" || got.State.DisplayName != "notes.md" {
		t.Errorf("after load: mode = %q, name = %q", got.State.Mode, got.State.DisplayName)
	}
	if len(got.State.Diagrams) != 1 || got.State.Diagrams[0].Title != "Flow" {
		t.Errorf("diagrams = %+v", got.State.Diagrams)
	}

	resp = ts.do(http.MethodGet, "/api/sessions/"+s.ID+"/save", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="notes.md"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != doc {
		t.Errorf("saved content = %q, want document", body)
	}

	resp = ts.do(http.MethodPost, "/api/sessions/"+s.ID+"/load", map[string]string{"name": "../x.md", "text": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid name status = %d, want 400", resp.StatusCode)
	}
}

func TestExport(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create()

	resp := ts.do(http.MethodGet, "/api/sessions/"+s.ID+"/export?format=svg", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="diagram.svg"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	resp = ts.do(http.MethodGet, "/api/sessions/"+s.ID+"/export?format=gif", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad format status = %d, want 400", resp.StatusCode)
	}

	ts.do(http.MethodPost, "/api/sessions/"+s.ID+"/mode", map[string]bool{"embedded": true})
	resp = ts.do(http.MethodGet, "/api/sessions/"+s.ID+"/export?format=svg", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("embedded export status = %d, want 409", resp.StatusCode)
	}
	if body := decodeBody[errorResponse](t, resp); body.Code != mlerrors.ErrCodeUnsupported {
		t.Errorf("code = %s, want UNSUPPORTED", body.Code)
	}
}

func TestRenderLongPollTimeout(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create()
	res := ts.waitRender(s.ID, func(resultPayload) bool { return true })

	resp := ts.do(http.MethodGet, "/api/sessions/"+s.ID+"/render?after="+itoa(res.Token), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	resp = ts.do(http.MethodGet, "/api/sessions/"+s.ID+"/render?after=x", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad token status = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create()

	resp := ts.do(http.MethodDelete, "/api/sessions/"+s.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp = ts.do(http.MethodGet, "/api/sessions/"+s.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code mlerrors.Code
		want int
	}{
		{mlerrors.ErrCodeInvalidInput, http.StatusBadRequest},
		{mlerrors.ErrCodeInvalidFormat, http.StatusBadRequest},
		{mlerrors.ErrCodeSessionNotFound, http.StatusNotFound},
		{mlerrors.ErrCodeNoDiagram, http.StatusConflict},
		{mlerrors.ErrCodeUnsupported, http.StatusConflict},
		{mlerrors.ErrCodeRenderFailed, http.StatusUnprocessableEntity},
		{mlerrors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{mlerrors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := statusFor(tt.code); got != tt.want {
				t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	if resp := newTestServer(t).do(http.MethodGet, "/api/stats", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("stats without Stats configured = %d, want 404", resp.StatusCode)
	}

	stats := observability.NewStats()
	observability.SetPipelineHooks(stats)
	defer observability.Reset()

	ts := newTestServerWithStats(t, stats)
	sess := ts.create()
	ts.waitRender(sess.ID, func(resultPayload) bool { return true })

	resp := ts.do(http.MethodGet, "/api/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", resp.StatusCode)
	}
	snap := decodeBody[observability.StatsSnapshot](t, resp)
	if snap.Renders < 1 || snap.Extractions < 1 {
		t.Errorf("stats = %+v, want at least one render and extraction", snap)
	}
}

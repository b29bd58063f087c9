package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/pipeline"
	"github.com/vinayprograms/growwit/internal/session"
)

// fakePipeline writes canned chunks and then returns err.
type fakePipeline struct {
	chunks []string
	err    error
	block  bool

	gotRun   campaign.Request
	gotCraft campaign.CraftRequest
}

func (p *fakePipeline) write(ctx context.Context, w io.Writer) error {
	for _, c := range p.chunks {
		if _, err := io.WriteString(w, c); err != nil {
			return err
		}
	}
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.err
}

func (p *fakePipeline) Run(ctx context.Context, req campaign.Request, w io.Writer) (*pipeline.Result, error) {
	p.gotRun = req
	sess := session.New(session.KindCampaign, req.ProductName)
	return &pipeline.Result{Session: sess, Step: 5}, p.write(ctx, w)
}

func (p *fakePipeline) Craft(ctx context.Context, req campaign.CraftRequest, w io.Writer) (*pipeline.CraftResult, error) {
	p.gotCraft = req
	sess := session.New(session.KindCraft, req.ProductName)
	return &pipeline.CraftResult{Session: sess, Framed: len(p.chunks)}, p.write(ctx, w)
}

const validCampaign = `{"productName":"Prepd","productDescription":"Meal prep planner","userGoal":"traffic"}`

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q is not JSON: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	h := New(Config{}, &fakePipeline{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" || body["message"] != "Growwit Backend is live" {
		t.Errorf("body = %v", body)
	}
}

func TestPing(t *testing.T) {
	h := New(Config{}, &fakePipeline{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("status = %d, body = %v", rec.Code, body)
	}
	if _, err := time.Parse(time.RFC3339, body["time"]); err != nil {
		t.Errorf("time = %q: %v", body["time"], err)
	}
}

func TestGenerate_Streams(t *testing.T) {
	p := &fakePipeline{chunks: []string{"[STEP:1]\n", "### 🔍 ANALYZING PRODUCT: Prepd\n"}}
	rec := post(t, New(Config{}, p).Handler(), "/api/generate-campaign", validCampaign)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if te := rec.Header().Get("Transfer-Encoding"); te != "chunked" {
		t.Errorf("Transfer-Encoding = %q", te)
	}
	if rec.Body.String() != "[STEP:1]\n### 🔍 ANALYZING PRODUCT: Prepd\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if !rec.Flushed {
		t.Error("stream was not flushed")
	}
	if p.gotRun.ProductName != "Prepd" || p.gotRun.UserGoal != "traffic" {
		t.Errorf("request = %+v", p.gotRun)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing request id")
	}
}

func TestGenerate_MissingFields(t *testing.T) {
	p := &fakePipeline{}
	for _, body := range []string{
		`{}`,
		`{"productName":"Prepd","productDescription":"","userGoal":"traffic"}`,
		`{"productName":"  ","productDescription":"x","userGoal":"traffic"}`,
	} {
		rec := post(t, New(Config{}, p).Handler(), "/api/generate-campaign", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rec.Code)
			continue
		}
		if got := errorBody(t, rec); got != "Missing required fields" {
			t.Errorf("%s: error = %q", body, got)
		}
	}
	if p.gotRun.ProductName != "" {
		t.Error("pipeline ran for an invalid request")
	}
}

func TestGenerate_InvalidJSON(t *testing.T) {
	rec := post(t, New(Config{}, &fakePipeline{}).Handler(), "/api/generate-campaign", `{"productName":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := errorBody(t, rec); !strings.HasPrefix(got, "Invalid request body") {
		t.Errorf("error = %q", got)
	}
}

func TestGenerate_BodyTooLarge(t *testing.T) {
	body := `{"productName":"` + strings.Repeat("x", 200) + `"}`
	rec := post(t, New(Config{MaxBodyBytes: 64}, &fakePipeline{}).Handler(), "/api/generate-campaign", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGenerate_ErrorBeforeStream(t *testing.T) {
	p := &fakePipeline{err: errors.New("strategize: model unavailable")}
	rec := post(t, New(Config{}, p).Handler(), "/api/generate-campaign", validCampaign)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "strategize: model unavailable" {
		t.Errorf("error = %q", got)
	}
}

func TestGenerate_ErrorMidStream(t *testing.T) {
	p := &fakePipeline{chunks: []string{"[STEP:1]\n"}, err: errors.New("write: boom")}
	rec := post(t, New(Config{}, p).Handler(), "/api/generate-campaign", validCampaign)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "[STEP:1]\n\n\n[ERROR]: write: boom" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestGenerate_ClientGone(t *testing.T) {
	p := &fakePipeline{chunks: []string{"[STEP:1]\n"}, block: true}
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/generate-campaign", strings.NewReader(validCampaign)).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		New(Config{}, p).Handler().ServeHTTP(rec, req)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after cancel")
	}
	if strings.Contains(rec.Body.String(), "[ERROR]") {
		t.Errorf("error marker written to a gone client: %q", rec.Body.String())
	}
}

func TestCraft(t *testing.T) {
	p := &fakePipeline{chunks: []string{"[POST_START]\n[SUBREDDIT]: MealPrepSunday\nbody\n[POST_END]\n"}}
	body := `{"aiOutput":"strategy","postsPerMonth":"4","productName":"Prepd","productDescription":"x"}`
	rec := post(t, New(Config{}, p).Handler(), "/api/craft-real-posts", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "[SUBREDDIT]: MealPrepSunday") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if p.gotCraft.PostsPerMonth != 4 || p.gotCraft.AIOutput != "strategy" {
		t.Errorf("request = %+v", p.gotCraft)
	}
}

func TestCraft_Validation(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"postsPerMonth":4}`, "Missing required fields"},
		{`{"aiOutput":"x","postsPerMonth":0}`, "Missing required fields"},
		{`{"aiOutput":"x","postsPerMonth":-2}`, "invalid request: postsPerMonth must be positive"},
	}
	for _, tt := range tests {
		rec := post(t, New(Config{}, &fakePipeline{}).Handler(), "/api/craft-real-posts", tt.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", tt.body, rec.Code)
			continue
		}
		if got := errorBody(t, rec); got != tt.want {
			t.Errorf("%s: error = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(Config{}, &fakePipeline{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generate-campaign", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := New(Config{CORSOrigin: "https://app.growwit.io"}, &fakePipeline{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/generate-campaign", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.growwit.io" {
		t.Errorf("origin = %q", got)
	}

	rec = httptest.NewRecorder()
	New(Config{}, &fakePipeline{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("default origin = %q", got)
	}
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/generate-campaign"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, final string) []ServerMessage {
	t.Helper()
	var msgs []ServerMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (got %+v)", err, msgs)
		}
		msgs = append(msgs, msg)
		if msg.Type == final || msg.Type == MessageError {
			return msgs
		}
	}
}

func TestWebSocket_RoundTrip(t *testing.T) {
	p := &fakePipeline{chunks: []string{"[STEP:1]\n", "done\n"}}
	srv := httptest.NewServer(New(Config{}, p).Handler())
	defer srv.Close()
	conn := dialWS(t, srv)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(validCampaign)); err != nil {
		t.Fatal(err)
	}
	msgs := readUntil(t, conn, MessageComplete)
	if len(msgs) != 3 {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Type != MessageChunk || msgs[0].Content != "[STEP:1]\n" || msgs[1].Content != "done\n" {
		t.Errorf("chunks = %+v", msgs[:2])
	}
	if msgs[2].Type != MessageComplete || msgs[2].SessionID == "" {
		t.Errorf("final = %+v", msgs[2])
	}
}

func TestWebSocket_Errors(t *testing.T) {
	tests := []struct {
		name string
		p    *fakePipeline
		send string
		want string
	}{
		{"bad json", &fakePipeline{}, `not json`, "Invalid message format"},
		{"missing fields", &fakePipeline{}, `{"productName":"Prepd"}`, "Missing required fields"},
		{"pipeline", &fakePipeline{err: errors.New("strategize: down")}, validCampaign, "strategize: down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(New(Config{}, tt.p).Handler())
			defer srv.Close()
			conn := dialWS(t, srv)
			defer conn.Close()

			conn.WriteMessage(websocket.TextMessage, []byte(tt.send))
			msgs := readUntil(t, conn, MessageComplete)
			last := msgs[len(msgs)-1]
			if last.Type != MessageError || last.Content != tt.want {
				t.Errorf("last message = %+v", last)
			}
		})
	}
}

func TestServe_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(Config{MaxConnections: 4, ShutdownTimeout: time.Second}, &fakePipeline{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/health", ln.Addr())
	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

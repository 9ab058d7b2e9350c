package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"govline/internal/config"
	"govline/internal/db"
	"govline/internal/engine"
	"govline/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("test")
	e := engine.New(conn, cfg)
	e.Now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{AllowLegacyActorHeader: true}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func actor(id string) map[string]string {
	return map[string]string{"X-Actor-Id": id}
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, data []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error envelope %q: %v", data, err)
	}
	return env
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/requests", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d body=%s", res.StatusCode, data)
	}
	if env := decodeError(t, data); env.Error.Code != "unauthorized" {
		t.Fatalf("code = %q", env.Error.Code)
	}
}

func TestCreateRequestIdempotent(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	body := map[string]any{
		"requester_agent": "chat-bot",
		"type":            "best-practice-suggestion",
		"title":           "Cache the expensive lookup",
	}
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/requests", body, actor("chat-bot"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d body=%s", res.StatusCode, data)
	}
	var first struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Created bool   `json:"created"`
	}
	if err := json.Unmarshal(data, &first); err != nil {
		t.Fatal(err)
	}
	if !first.Created || first.Status != "pending" {
		t.Fatalf("first submission: %+v", first)
	}

	_, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/requests", body, actor("chat-bot"))
	var second struct {
		ID      string `json:"id"`
		Created bool   `json:"created"`
	}
	if err := json.Unmarshal(data, &second); err != nil {
		t.Fatal(err)
	}
	if second.Created || second.ID != first.ID {
		t.Fatalf("duplicate submission: %+v vs %+v", second, first)
	}
}

func TestGetRequestNotFound(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/requests/nope", nil, actor("tester"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d body=%s", res.StatusCode, data)
	}
	if env := decodeError(t, data); env.Error.Code != "not_found" {
		t.Fatalf("code = %q", env.Error.Code)
	}
}

func TestLedgerSignPrecondition(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/ledger", map[string]any{
		"bot_name": "design-bot",
		"task":     "swap literals for tokens",
	}, actor("design-bot"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("record status = %d body=%s", res.StatusCode, data)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatal(err)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/ledger/"+created.ID+"/sign", nil, actor("master-bot"))
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("sign status = %d body=%s", res.StatusCode, data)
	}
	if env := decodeError(t, data); env.Error.Code != "precondition_failed" {
		t.Fatalf("code = %q", env.Error.Code)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/ledger/"+created.ID+"/validate", map[string]any{
		"passed": true,
	}, actor("quality-bot"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("validate status = %d", res.StatusCode)
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/ledger/"+created.ID+"/sign", nil, actor("master-bot"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("sign status = %d body=%s", res.StatusCode, data)
	}
	var signed struct {
		SignedBy *string `json:"signed_by"`
	}
	if err := json.Unmarshal(data, &signed); err != nil {
		t.Fatal(err)
	}
	if signed.SignedBy == nil || *signed.SignedBy != "master-bot" {
		t.Fatalf("signed_by = %v", signed.SignedBy)
	}
}

func TestCheckEndpoint(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/check", map[string]any{
		"text": "this build is do not ship material",
	}, actor("quality-bot"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%s", res.StatusCode, data)
	}
	var report struct {
		Compliant bool `json:"compliant"`
		Summary   struct {
			Errors int `json:"errors"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Compliant || report.Summary.Errors != 1 {
		t.Fatalf("report: %+v", report)
	}
}

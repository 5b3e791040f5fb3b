package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cfgpkg "github.com/rzbill/smq/internal/config"
	"github.com/rzbill/smq/internal/runtime"
	logpkg "github.com/rzbill/smq/pkg/log"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	rt, err := runtime.Open(cfgpkg.Default())
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	return New(rt, logger)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, w.Body.String())
	}
	return env
}

type wireMessage struct {
	ID         string `json:"id"`
	Body       string `json:"body"`
	State      string `json:"state"`
	RetryCount int    `json:"retry_count"`
}

func TestHelloHandler(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/hello", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	var msg string
	if err := json.Unmarshal(env.Data, &msg); err != nil || msg != "Hello World" {
		t.Fatalf("unexpected payload: %s", env.Data)
	}
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/v1/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestAddGetDeleteRoundTrip(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/add", `{"body":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("add status: %d body %s", w.Code, w.Body.String())
	}
	var added wireMessage
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &added); err != nil {
		t.Fatalf("decode added: %v", err)
	}
	if added.ID == "" || added.Body != "hello" || added.State != "Ready" {
		t.Fatalf("unexpected message: %+v", added)
	}

	w = do(t, s, http.MethodPost, "/get", `{"count":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("get status: %d", w.Code)
	}
	var leased []wireMessage
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &leased); err != nil {
		t.Fatalf("decode leased: %v", err)
	}
	if len(leased) != 1 || leased[0].ID != added.ID || leased[0].State != "Processing" {
		t.Fatalf("unexpected lease: %+v", leased)
	}

	w = do(t, s, http.MethodPost, "/delete", `{"ids":["`+added.ID+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status: %d body %s", w.Code, w.Body.String())
	}
}

func TestGetDefaultsCountToOne(t *testing.T) {
	s := newTestServer(t)
	for _, b := range []string{"a", "b"} {
		do(t, s, http.MethodPost, "/add", `{"body":"`+b+`"}`)
	}

	w := do(t, s, http.MethodPost, "/get", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status: %d", w.Code)
	}
	var leased []wireMessage
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &leased); err != nil {
		t.Fatalf("decode leased: %v", err)
	}
	if len(leased) != 1 || leased[0].Body != "a" {
		t.Fatalf("default count not 1: %+v", leased)
	}
}

func TestGetEmptyQueueReturnsEmptyList(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/get", `{"count":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"data":[]}` {
		t.Fatalf("expected empty list envelope, got %s", got)
	}
}

func TestDeleteWithoutIDsIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/delete", `{"ids":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Error == "" {
		t.Fatalf("missing error message: %s", w.Body.String())
	}
}

func TestRetryWithMalformedIDIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/retry", `{"ids":["nope"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestAddOversizedBodyIsBadRequest(t *testing.T) {
	rt, err := runtime.Open(func() cfgpkg.Config {
		c := cfgpkg.Default()
		c.MaxMessageSize = 4
		return c
	}())
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	defer rt.Close()
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	s := New(rt, logger)

	w := do(t, s, http.MethodPost, "/add", `{"body":"way too big"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/add", `{"body":"x"}`)

	for i := 0; i < 2; i++ {
		w := do(t, s, http.MethodPost, "/peek", `{"count":1}`)
		if w.Code != http.StatusOK {
			t.Fatalf("peek status: %d", w.Code)
		}
		var msgs []wireMessage
		if err := json.Unmarshal(decodeEnvelope(t, w).Data, &msgs); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(msgs) != 1 || msgs[0].State != "Ready" {
			t.Fatalf("peek %d: %+v", i, msgs)
		}
	}
}

func TestPeekWithBadFilterIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/peek", `{"count":1,"filter":"body >"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestPurgeAndStats(t *testing.T) {
	s := newTestServer(t)
	for _, b := range []string{"a", "b", "c"} {
		do(t, s, http.MethodPost, "/add", `{"body":"`+b+`"}`)
	}
	do(t, s, http.MethodPost, "/get", `{"count":1}`)

	w := do(t, s, http.MethodGet, "/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats status: %d", w.Code)
	}
	var st struct {
		Ready    int `json:"ready"`
		InFlight int `json:"in_flight"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.Ready != 2 || st.InFlight != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	w = do(t, s, http.MethodPost, "/purge", "")
	if w.Code != http.StatusOK {
		t.Fatalf("purge status: %d", w.Code)
	}
	w = do(t, s, http.MethodGet, "/stats", "")
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.Ready != 0 || st.InFlight != 0 {
		t.Fatalf("purge left messages: %+v", st)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/add", `{"body":"x"}`)

	w := do(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "smq_messages_added_total") {
		t.Fatalf("counter missing from exposition")
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodOptions, "/add", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status: %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

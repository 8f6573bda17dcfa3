package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dd0wney/strategy-canvas/pkg/logging"
)

// --- BodySizeLimit Tests ---

func TestBodySizeLimit_AllowsSmallRequest(t *testing.T) {
	handler := BodySizeLimit(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader("small body")))

	if rr.Code != http.StatusOK || rr.Body.String() != "small body" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}
}

func TestBodySizeLimit_RejectsLargeContentLength(t *testing.T) {
	handler := BodySizeLimit(100)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called for oversized request")
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader(""))
	req.ContentLength = 1000

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
	}
}

func TestBodySizeLimit_LimitsActualBody(t *testing.T) {
	handler := BodySizeLimit(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, "Body too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 100)))
	req.ContentLength = -1

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
	}
}

// --- RequestID Tests ---

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   func(string) bool
	}{
		{"generated", "", func(id string) bool { return len(id) == 36 }},
		{"client id kept", "abc-123", func(id string) bool { return id == "abc-123" }},
		{"client id sanitized", "ab<script>c", func(id string) bool { return id == "abscriptc" }},
		{"client id truncated", strings.Repeat("a", 100), func(id string) bool { return len(id) == maxRequestIDLength }},
		{"all invalid replaced", "<<>>", func(id string) bool { return len(id) == 36 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r)
			}))
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if !tt.want(seen) {
				t.Errorf("request id = %q", seen)
			}
			if rr.Header().Get(RequestIDHeader) != seen {
				t.Errorf("header %q != context %q", rr.Header().Get(RequestIDHeader), seen)
			}
		})
	}
}

// --- PanicRecovery Tests ---

func TestPanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.DebugLevel)
	handler := PanicRecovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("secret internal detail")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/boom", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret") {
		t.Error("panic value leaked to client")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log entry: %v (%s)", err, buf.String())
	}
	if entry["panic"] != "secret internal detail" || entry["path"] != "/boom" {
		t.Errorf("log entry = %v", entry)
	}
}

// --- Logging Tests ---

func TestLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.DebugLevel)
	handler := RequestID()(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/canvases/a", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log entry: %v", err)
	}
	if entry["status"] != float64(http.StatusTeapot) || entry["bytes"] != float64(5) {
		t.Errorf("entry = %v", entry)
	}
	if entry["request_id"] == nil || entry["request_id"] == "" {
		t.Error("request id missing")
	}
	if entry["level"] != "debug" {
		t.Errorf("level = %v", entry["level"])
	}
}

// --- SecurityHeaders Tests ---

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	SecurityHeaders(nil)(next).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	for _, h := range []string{"X-Frame-Options", "X-Content-Type-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("%s not set", h)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set without TLS")
	}

	rr = httptest.NewRecorder()
	SecurityHeaders(&SecurityHeadersConfig{TLSEnabled: true})(next).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing with TLS")
	}
}

// --- Metrics Tests ---

type fakeRecorder struct {
	method, route, status string
	size                  float64
	inFlight, maxInFlight int
}

func (f *fakeRecorder) RecordHTTPRequest(method, route, status string, _ time.Duration) {
	f.method, f.route, f.status = method, route, status
}
func (f *fakeRecorder) RecordResponseSize(_, _ string, size float64) { f.size = size }
func (f *fakeRecorder) IncHTTPRequestsInFlight() {
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
}
func (f *fakeRecorder) DecHTTPRequestsInFlight() { f.inFlight-- }

func TestMetricsUsesRoutePattern(t *testing.T) {
	rec := &fakeRecorder{}
	handler := Metrics(rec, "GET /canvases/{id}")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/canvases/abc", nil))

	if rec.route != "GET /canvases/{id}" || rec.status != "404" || rec.method != "GET" {
		t.Errorf("recorded %+v", rec)
	}
	if rec.size == 0 {
		t.Error("response size not recorded")
	}
	if rec.inFlight != 0 || rec.maxInFlight != 1 {
		t.Errorf("in flight = %d (max %d)", rec.inFlight, rec.maxInFlight)
	}
}

func TestMetricsNilRecorder(t *testing.T) {
	called := false
	handler := Metrics(nil, "x")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Error("handler not called")
	}
}

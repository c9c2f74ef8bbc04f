package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "refguard/internal/platform/errors"
	pnet "refguard/internal/platform/net"
	phttp "refguard/internal/platform/net/http"
)

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestRecoverJSON(t *testing.T) {
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://half.example.com/")
		panic("boom")
	}), RequestID(), RecoverJSON)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/track", nil)
	req.Header.Set("X-Request-ID", "rid-7")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Fatal("location leaked from a panicking handler")
	}
	if rec.Header().Get("X-Request-ID") != "rid-7" {
		t.Fatalf("request id header = %q", rec.Header().Get("X-Request-ID"))
	}
	var body phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RequestID != "rid-7" || body.StatusCode != http.StatusInternalServerError || body.Code != perr.ErrorCodePanic {
		t.Fatalf("body = %+v", body)
	}
}

func TestRecoverJSONHead(t *testing.T) {
	h := RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	if rec.Code != http.StatusInternalServerError || rec.Body.Len() != 0 {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestAccessLogCapturesStatusAndBytes(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = pnet.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	chain(inner, RequestID(), AccessLog(AccessLogOptions{})).ServeHTTP(cw, httptest.NewRequest(http.MethodGet, "/x", nil))

	if cw.status != http.StatusTeapot || cw.bytes != len("short and stout") {
		t.Fatalf("status=%d bytes=%d", cw.status, cw.bytes)
	}
	if seen == "" {
		t.Fatal("request id not set before the handler ran")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(CORSOptions{AllowedOrigins: []string{"https://deals.example.com"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)

	req := httptest.NewRequest(http.MethodOptions, "/api/track", nil)
	req.Header.Set("Origin", "https://deals.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://deals.example.com" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/track", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Mutter0815/mailflow/pkg/logx"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	t.Cleanup(logx.Replace(zap.New(core)))
	return logs
}

func TestAccessLog_TaggedWithRequestID(t *testing.T) {
	logs := observe(t)
	srv := NewHTTPServer(":0", &Handlers{Store: &fakeStore{}, Pub: &fakePublisher{}})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	req.Header.Set("X-Request-ID", "rid-42")
	srv.Handler.ServeHTTP(rr, req)

	entries := logs.FilterMessage("http_access").All()
	if len(entries) != 1 {
		t.Fatalf("want 1 access log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["rid"] != "rid-42" {
		t.Fatalf("want rid-42, got %v", fields["rid"])
	}
	if fields["route"] != "/api/v1/campaigns" {
		t.Fatalf("unexpected route: %v", fields["route"])
	}
}

func TestAccessLog_QuietAndUnmatchedRoutes(t *testing.T) {
	logs := observe(t)
	srv := NewHTTPServer(":0", &Handlers{Store: &fakeStore{}, Pub: &fakePublisher{}})

	srv.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if n := logs.FilterMessage("http_access").Len(); n != 0 {
		t.Fatalf("healthz must not be access-logged, got %d lines", n)
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	entries := logs.FilterMessage("http_access").All()
	if len(entries) != 1 || entries[0].ContextMap()["route"] != unmatchedRoute {
		t.Fatalf("unmatched request should be labelled %q: %+v", unmatchedRoute, entries)
	}
}

func TestSendValidationFailure_Logged(t *testing.T) {
	logs := observe(t)
	rr := send(t, &Handlers{Store: &fakeStore{}, Pub: &fakePublisher{}}, `[]`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if logs.FilterMessage("send_validation_failed").Len() != 1 {
		t.Fatal("validation failure not logged")
	}
}

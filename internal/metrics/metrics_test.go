package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLLMRequest(t *testing.T) {
	before := testutil.ToFloat64(llmRequests.WithLabelValues("metrics-test", "m", "error"))
	ObserveLLMRequest("metrics-test", "m", false, 5*time.Millisecond, 10, 4)
	after := testutil.ToFloat64(llmRequests.WithLabelValues("metrics-test", "m", "error"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestAttemptRecorded(t *testing.T) {
	before := testutil.ToFloat64(attempts.WithLabelValues("hard", "true"))
	AttemptRecorded("hard", true)
	AttemptRecorded("hard", true)
	if got := testutil.ToFloat64(attempts.WithLabelValues("hard", "true")) - before; got != 2 {
		t.Fatalf("expected +2, got %v", got)
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	c := httpRequests.WithLabelValues("GET", "/agents/{cellID}", "404")
	before := testutil.ToFloat64(c)
	ObserveHTTPRequest("GET", "/agents/{cellID}", 404, time.Millisecond)
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Fatalf("expected +1, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	Transition("idle", "explaining")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "celltutor_session_transitions_total") {
		t.Fatalf("transition counter missing from exposition:\n%s", body)
	}
}

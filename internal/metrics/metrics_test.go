package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRegistered(t *testing.T) {
	DedupeDecisions.WithLabelValues("admit").Inc()
	RotationSelections.WithLabelValues("metrics-test").Inc()

	if got := testutil.ToFloat64(RotationSelections.WithLabelValues("metrics-test")); got != 1 {
		t.Errorf("RotationSelections = %v, want 1", got)
	}

	n, err := testutil.GatherAndCount(Registry, "devkit_dedupe_decisions_total")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n == 0 {
		t.Error("devkit_dedupe_decisions_total not gathered")
	}
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	RetryAttempts.WithLabelValues("success").Inc()

	if err := Push(context.Background(), srv.URL, "devkit-test"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if gotPath != "/metrics/job/devkit-test" {
		t.Errorf("push path = %q", gotPath)
	}
	if gotBody == "" {
		t.Error("push body empty")
	}
}

func TestPush_NoURL(t *testing.T) {
	if err := Push(context.Background(), "", ""); err != nil {
		t.Errorf("Push with empty url = %v, want nil", err)
	}
}

func TestPush_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Push(context.Background(), srv.URL, "devkit")
	if err == nil || !strings.Contains(err.Error(), "failed to push metrics") {
		t.Errorf("Push error = %v", err)
	}
}

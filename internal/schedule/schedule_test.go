package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"0 3 * * *", false},
		{"*/15 * * * *", false},
		{"@daily", false},
		{"0 3 * *", true},
		{"every day", true},
	}

	for _, tt := range tests {
		_, err := Parse(tt.spec)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
		}
	}
}

func newTestRunner(t *testing.T, spec string, clock *time.Time, job Job) *Runner {
	t.Helper()

	r, err := NewRunner(spec, time.UTC, job)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	r.now = func() time.Time { return *clock }
	r.status.NextRun = r.sched.Next(*clock)
	return r
}

func TestRunnerFiresWhenDue(t *testing.T) {
	clock := time.Date(2024, 5, 1, 2, 59, 0, 0, time.UTC)
	calls := 0

	r := newTestRunner(t, "0 3 * * *", &clock, func(ctx context.Context) error {
		calls++
		return nil
	})

	if r.check(context.Background()) {
		t.Fatal("job should not fire before 03:00")
	}

	clock = time.Date(2024, 5, 1, 3, 0, 5, 0, time.UTC)
	if !r.check(context.Background()) {
		t.Fatal("job should fire at 03:00")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}

	if r.check(context.Background()) {
		t.Error("job should not fire twice for the same slot")
	}

	st := r.Status()
	want := time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC)
	if !st.NextRun.Equal(want) {
		t.Errorf("next run = %v, want %v", st.NextRun, want)
	}
	if st.Runs != 1 || st.Running {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestRunnerRecordsLastError(t *testing.T) {
	clock := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	fail := true

	r := newTestRunner(t, "*/5 * * * *", &clock, func(ctx context.Context) error {
		if fail {
			return errors.New("2 datasets failed")
		}
		return nil
	})
	r.status.NextRun = clock

	r.check(context.Background())
	if got := r.Status().LastError; got != "2 datasets failed" {
		t.Errorf("LastError = %q", got)
	}

	fail = false
	clock = clock.Add(5 * time.Minute)
	r.check(context.Background())
	if got := r.Status().LastError; got != "" {
		t.Errorf("LastError should clear after a good run, got %q", got)
	}
}

func TestRouterHealthz(t *testing.T) {
	clock := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	r := newTestRunner(t, "0 3 * * *", &clock, func(ctx context.Context) error { return nil })

	metrics := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("graphcol_triples_written_total 0\n"))
	})
	h := NewRouter(r, metrics, func(ctx context.Context) bool { return true })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if st.Schedule != "0 3 * * *" {
		t.Errorf("schedule = %q", st.Schedule)
	}
	if !strings.Contains(rec.Body.String(), `"sink":"ok"`) {
		t.Errorf("healthz should report the sink: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("metrics: code %d, body %q", rec.Code, rec.Body.String())
	}
}

func TestRouterHealthzReportsFailure(t *testing.T) {
	clock := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	r := newTestRunner(t, "0 3 * * *", &clock, func(ctx context.Context) error {
		return errors.New("sink unreachable")
	})
	r.status.NextRun = clock
	r.check(context.Background())

	rec := httptest.NewRecorder()
	NewRouter(r, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestRouterHealthzReportsUnreachableSink(t *testing.T) {
	clock := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	r := newTestRunner(t, "0 3 * * *", &clock, func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	NewRouter(r, nil, func(ctx context.Context) bool { return false }).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"sink":"unreachable"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

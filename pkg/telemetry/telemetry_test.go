package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "empty service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{
			name: "otlp without endpoint",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "otlp"
			},
			wantErr: true,
		},
		{
			name: "unknown exporter",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "zipkin"
			},
			wantErr: true,
		},
		{name: "sampling rate", mutate: func(c *Config) { c.Tracing.SamplingRate = 2 }, wantErr: true},
		{
			name: "async without buffer",
			mutate: func(c *Config) {
				c.Events.EnableAsync = true
				c.Events.BufferSize = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LoggingConfig{Level: "info", Format: "json"})

	logger.NewComponentLogger("checker").
		WithRunID("run-1").
		WithFile("main.go").
		WithTemplate("option", "--out <FILE").
		Warn("bad template")
	logger.Debug("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	want := map[string]any{
		"level":     "warn",
		"component": "checker",
		"run_id":    "run-1",
		"file":      "main.go",
		"grammar":   "option",
		"template":  "--out <FILE",
		"message":   "bad template",
	}
	delete(entry, "time")
	if diff := cmp.Diff(want, entry); diff != "" {
		t.Errorf("log entry mismatch (-want +got):\n%s", diff)
	}
}

func TestLogger_FromContext(t *testing.T) {
	logger := NewNopLogger()
	ctx := logger.WithContext(context.Background())
	if got := FromContext(ctx); got != logger {
		t.Errorf("FromContext() returned a different logger")
	}
	if FromContext(context.Background()) == nil {
		t.Errorf("FromContext() on empty context returned nil")
	}
}

func TestMetrics_Record(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordTemplateParsed("option", "", time.Millisecond)
	m.RecordTemplateParsed("option", "unterminated_value_name", time.Millisecond)
	m.RecordTemplateParsed("argument", "unterminated_value_name", time.Millisecond)
	m.RecordFileChecked("go")
	m.RecordFinding("error")
	m.RecordFinding("error")
	m.RecordCheckStarted()
	m.RecordCheckCompleted("ok", time.Second)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"parsed ok", testutil.ToFloat64(m.templatesParsed.WithLabelValues("option", ResultOK)), 1},
		{"parsed error", testutil.ToFloat64(m.templatesParsed.WithLabelValues("option", ResultError)), 1},
		{"error code", testutil.ToFloat64(m.templateErrors.WithLabelValues("unterminated_value_name")), 2},
		{"files", testutil.ToFloat64(m.filesChecked.WithLabelValues("go")), 1},
		{"findings", testutil.ToFloat64(m.findings.WithLabelValues("error")), 2},
		{"runs", testutil.ToFloat64(m.checkRuns.WithLabelValues("ok")), 1},
		{"active", testutil.ToFloat64(m.activeChecks), 0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if n := testutil.CollectAndCount(m.parseDuration); n != 2 {
		t.Errorf("parse duration series = %d, want 2", n)
	}
}

func TestMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	// must not panic
	m.RecordTemplateParsed("option", "option_without_name", time.Millisecond)
	m.RecordFileChecked("go")
	m.RecordFinding("error")
	m.RecordCheckStarted()
	m.RecordCheckCompleted("ok", time.Second)

	if m.registry != nil {
		t.Errorf("registry = non-nil for disabled metrics")
	}
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("WriteTextfile() error = %v", err)
	}
}

func TestMetrics_HandlerAndTextfile(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordFileChecked("cue")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `clitmpl_check_files_total{kind="cue"} 1`) {
		t.Errorf("handler output missing files counter:\n%s", rec.Body.String())
	}

	path := filepath.Join(t.TempDir(), "clitmpl.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "clitmpl_check_files_total") {
		t.Errorf("textfile missing files counter:\n%s", data)
	}
}

func TestEventPublisher_Sync(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: true})
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}

	var all, warnings []string
	ep.Subscribe(func(e Event) { all = append(all, e.Type) }, nil)
	ep.Subscribe(func(e Event) { warnings = append(warnings, e.Level) }, FilterByLevel(EventLevelWarning))

	_ = ep.PublishCheckStarted("run-1", []string{"."})
	_ = ep.PublishFinding("run-1", "a.go", "option_without_name", "error", "Options without name are not allowed.")
	_ = ep.PublishFinding("run-1", "a.go", "POLICY", "warning", "long option names should be kebab-case")
	_ = ep.PublishFinding("run-1", "a.go", "POLICY", "info", "note")
	_ = ep.PublishCheckCompleted("run-1", 1, 3, time.Second)

	want := []string{EventTypeCheckStarted, EventTypeFindingReported, EventTypeFindingReported, EventTypeFindingReported, EventTypeCheckCompleted}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{EventLevelError, EventLevelWarning}, warnings); diff != "" {
		t.Errorf("filtered levels mismatch (-want +got):\n%s", diff)
	}
	if err := ep.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestJSONSubscriber(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: true})
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}

	var buf bytes.Buffer
	ep.Subscribe(NewJSONSubscriber(&buf), FilterByType(EventTypeCheckStarted, EventTypeCheckFailed))

	_ = ep.PublishCheckStarted("run-1", []string{"./cmd"})
	_ = ep.PublishFinding("run-1", "a.go", "POLICY", "warning", "ignored")
	_ = ep.PublishCheckFailed("run-1", "walk: permission denied")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got:\n%s", buf.String())
	}
	var types []string
	for _, line := range lines {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		if e.RunID != "run-1" || e.ID == "" {
			t.Errorf("unexpected event: %+v", e)
		}
		types = append(types, e.Type)
	}
	if diff := cmp.Diff([]string{EventTypeCheckStarted, EventTypeCheckFailed}, types); diff != "" {
		t.Errorf("event types mismatch (-want +got):\n%s", diff)
	}

	if !ValidEventLevel(EventLevelWarning) || ValidEventLevel("fatal") {
		t.Errorf("ValidEventLevel() accepted the wrong levels")
	}
}

func TestEventPublisher_Async(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: true, EnableAsync: true, BufferSize: 16})
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}

	var got []Event
	ep.Subscribe(func(e Event) { got = append(got, e) }, FilterByType(EventTypeCheckFailed))

	_ = ep.PublishCheckStarted("run-1", nil)
	_ = ep.PublishCheckFailed("run-1", "walk: permission denied")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ep.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].ID == "" || got[0].Timestamp.IsZero() {
		t.Errorf("event missing ID or timestamp: %+v", got[0])
	}
	if got[0].Level != EventLevelError {
		t.Errorf("Level = %q, want %q", got[0].Level, EventLevelError)
	}
	if err := ep.Publish(Event{Type: "late"}); err == nil {
		t.Errorf("Publish() after Shutdown succeeded")
	}
}

func TestTracer_None(t *testing.T) {
	tr, err := NewTracer(TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1}, "clitmpl", "test", "local")
	if err != nil {
		t.Fatalf("NewTracer() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	ctx, span := tr.StartCheckSpan(context.Background(), "run-1", 2)
	if TraceID(ctx) == "" {
		t.Errorf("TraceID() is empty inside a sampled span")
	}
	_, child := tr.StartFileSpan(ctx, "main.go", "go")
	AddTemplateEvent(child, "option", "--out <FILE", "unterminated_value_name")
	child.End()
	RecordSuccess(span)
	span.End()

	if _, err := NewTracer(TracingConfig{Enabled: true, Exporter: "zipkin"}, "clitmpl", "test", "local"); err == nil {
		t.Errorf("NewTracer() accepted unknown exporter")
	}
}

func TestStartOperation(t *testing.T) {
	op := StartOperation(context.Background(), "noop")
	if op.Span != nil {
		t.Errorf("Span = non-nil without telemetry in context")
	}
	op.End(nil)

	tel := NewNopTelemetry()
	ctx := tel.WithContext(context.Background())
	if FromTelemetryContext(ctx) != tel {
		t.Fatalf("FromTelemetryContext() returned a different bundle")
	}
	op = StartOperation(ctx, "manifest.parse")
	if op.Span == nil {
		t.Fatalf("Span = nil with telemetry in context")
	}
	op.End(os.ErrNotExist)

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

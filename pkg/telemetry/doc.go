// Package telemetry provides observability for clitmpl.
//
// It bundles structured logging (zerolog), tracing (OpenTelemetry), metrics
// (Prometheus) and check lifecycle events into a single Telemetry value that
// travels through a context.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Logging
//
//	logger := tel.Logger.NewComponentLogger("checker")
//	logger.WithRunID(runID).WithFile(path).Info("file checked")
//
// Log levels: trace, debug, info, warn, error, fatal.
//
// # Tracing
//
// A check run opens a "check.run" span with one "check.file" child per
// checked file. Malformed templates are recorded as "template.invalid"
// span events. Exporters: otlp (gRPC), stdout (written to stderr) and none.
//
// # Metrics
//
// All metrics share the configured namespace (default "clitmpl"):
//
//	templates_parsed_total{grammar,result}
//	template_errors_total{code}
//	template_parse_duration_seconds{grammar}
//	check_files_total{kind}
//	check_findings_total{severity}
//	check_runs_total{status}
//	check_duration_seconds
//	active_checks
//
// Metrics are served over HTTP in watch mode, and can be written to a node
// exporter textfile after one-shot runs.
//
// # Events
//
// The publisher emits check.started, finding.reported, check.completed and
// check.failed. Delivery is synchronous unless async is configured.
package telemetry

package checker

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/clitmpl/pkg/analyzer"
	"github.com/openfroyo/clitmpl/pkg/cli"
	"github.com/openfroyo/clitmpl/pkg/config"
	"github.com/openfroyo/clitmpl/pkg/policy"
	"github.com/openfroyo/clitmpl/pkg/stores"
	"github.com/openfroyo/clitmpl/pkg/telemetry"
	"github.com/openfroyo/clitmpl/pkg/template"
)

// Config configures a Checker. Every field is optional.
type Config struct {
	// Workers bounds the files checked concurrently; 0 uses GOMAXPROCS.
	Workers int

	// Exclude lists directory names that are never walked. Paths given
	// explicitly are always checked.
	Exclude []string

	// Manifests also checks .cue, .yaml and .yml files that declare
	// commands.
	Manifests bool

	// Debounce is the quiet period Watch waits for before re-checking.
	Debounce time.Duration

	// Policy evaluates naming policies against every template that parses.
	Policy *policy.Engine

	// Store records every run and its findings.
	Store stores.Store

	Telemetry *telemetry.Telemetry
}

// Checker finds malformed templates in Go sources and command manifests.
type Checker struct {
	cfg     Config
	tel     *telemetry.Telemetry
	log     *telemetry.Logger
	parser  *config.ManifestParser
	exclude map[string]bool
}

// New creates a Checker.
func New(cfg Config) *Checker {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	tel := cfg.Telemetry
	if tel == nil {
		tel = telemetry.NewNopTelemetry()
	}

	exclude := make(map[string]bool, len(cfg.Exclude))
	for _, name := range cfg.Exclude {
		exclude[name] = true
	}

	return &Checker{
		cfg:     cfg,
		tel:     tel,
		log:     tel.Logger.NewComponentLogger("checker"),
		parser:  config.NewManifestParser(),
		exclude: exclude,
	}
}

// Check checks every file below paths. Findings do not make Check fail; the
// error result is for runs that could not complete.
func (c *Checker) Check(ctx context.Context, paths []string) (*Report, error) {
	runID := uuid.NewString()
	log := c.log.WithRunID(runID)
	timer := telemetry.NewTimer()

	ctx, span := c.tel.Tracer.StartCheckSpan(ctx, runID, len(paths))
	defer span.End()

	c.tel.Metrics.RecordCheckStarted()
	if err := c.tel.Events.PublishCheckStarted(runID, paths); err != nil {
		log.WithError(err).Warn("failed to publish check started")
	}

	if c.cfg.Store != nil {
		run := &stores.CheckRun{ID: runID, Paths: paths, StartedAt: time.Now()}
		if err := c.cfg.Store.CreateRun(ctx, run); err != nil {
			return nil, c.fail(ctx, span, runID, timer, fmt.Errorf("failed to record run: %w", err))
		}
	}

	report, err := c.run(ctx, runID, paths)
	if err != nil {
		return nil, c.fail(ctx, span, runID, timer, err)
	}
	report.Duration = timer.Duration()

	if c.cfg.Store != nil {
		if err := c.record(ctx, report); err != nil {
			return nil, c.fail(ctx, span, runID, timer, err)
		}
	}

	status := report.Status()
	for _, f := range report.Findings {
		c.tel.Metrics.RecordFinding(f.Severity)
		if err := c.tel.Events.PublishFinding(runID, f.File, f.Code, f.Severity, f.Message); err != nil {
			log.WithError(err).Warn("failed to publish finding")
		}
	}
	c.tel.Metrics.RecordCheckCompleted(string(status), report.Duration)
	if err := c.tel.Events.PublishCheckCompleted(runID, report.Files, len(report.Findings), report.Duration); err != nil {
		log.WithError(err).Warn("failed to publish check completed")
	}
	c.writeTextfile(log)
	telemetry.RecordSuccess(span)

	log.WithFields(map[string]interface{}{
		"files":    report.Files,
		"findings": len(report.Findings),
		"status":   status,
		"duration": report.Duration.String(),
	}).Info("check completed")

	return report, nil
}

func (c *Checker) record(ctx context.Context, report *Report) error {
	findings := make([]stores.Finding, len(report.Findings))
	for i, f := range report.Findings {
		findings[i] = f.toStore()
	}
	if err := c.cfg.Store.AddFindings(ctx, report.RunID, findings); err != nil {
		return fmt.Errorf("failed to record findings: %w", err)
	}
	if err := c.cfg.Store.FinishRun(ctx, report.RunID, report.Status(), report.Files, len(report.Findings), nil); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// fail records a run that could not complete and returns err.
func (c *Checker) fail(ctx context.Context, span trace.Span, runID string, timer *telemetry.Timer, err error) error {
	log := c.log.WithRunID(runID)
	telemetry.RecordError(span, err)
	c.tel.Metrics.RecordCheckCompleted(string(stores.RunStatusErrored), timer.Duration())
	if perr := c.tel.Events.PublishCheckFailed(runID, err.Error()); perr != nil {
		log.WithError(perr).Warn("failed to publish check failed")
	}
	if c.cfg.Store != nil {
		msg := err.Error()
		// The run context may be the reason for the failure.
		if serr := c.cfg.Store.FinishRun(context.WithoutCancel(ctx), runID, stores.RunStatusErrored, 0, 0, &msg); serr != nil && !errors.Is(serr, stores.ErrRunNotFound) {
			log.WithError(serr).Warn("failed to finish run")
		}
	}
	c.writeTextfile(log)
	log.WithError(err).Error("check failed")
	return err
}

func (c *Checker) writeTextfile(log *telemetry.Logger) {
	path := c.tel.Config.Metrics.TextfilePath
	if path == "" {
		return
	}
	if err := c.tel.Metrics.WriteTextfile(path); err != nil {
		log.WithError(err).Warn("failed to write metrics textfile")
	}
}

type fileResult struct {
	checked  bool
	findings []Finding
}

func (c *Checker) run(ctx context.Context, runID string, paths []string) (*Report, error) {
	files, err := c.Files(paths)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, file := range files {
		g.Go(func() error {
			res, err := c.checkFile(gctx, file)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{RunID: runID, Paths: paths, Findings: []Finding{}}
	for _, res := range results {
		if res.checked {
			report.Files++
		}
		report.Findings = append(report.Findings, res.findings...)
	}
	sortFindings(report.Findings)
	return report, nil
}

func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// Files lists the files Check would look at below paths, sorted.
func (c *Checker) Files(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if c.fileKind(root) == "" {
				return nil, fmt.Errorf("unsupported file %s", root)
			}
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && c.exclude[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if c.fileKind(path) != "" {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (c *Checker) fileKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return FileGo
	case ".cue":
		if c.cfg.Manifests {
			return FileCUE
		}
	case ".yaml", ".yml":
		if c.cfg.Manifests {
			return FileYAML
		}
	}
	return ""
}

// CheckFile checks a single Go source or manifest. A CUE or YAML file that
// does not declare commands yields no findings.
func (c *Checker) CheckFile(ctx context.Context, path string) ([]Finding, error) {
	res, err := c.checkFile(ctx, path)
	if err != nil {
		return nil, err
	}
	sortFindings(res.findings)
	return res.findings, nil
}

func (c *Checker) checkFile(ctx context.Context, path string) (fileResult, error) {
	if err := ctx.Err(); err != nil {
		return fileResult{}, err
	}

	kind := c.fileKind(path)
	ctx, span := c.tel.Tracer.StartFileSpan(ctx, path, kind)
	defer span.End()

	var (
		res fileResult
		err error
	)
	switch kind {
	case FileGo:
		res, err = c.checkGo(ctx, span, path)
	case FileCUE, FileYAML:
		res, err = c.checkManifest(ctx, span, path)
	default:
		err = fmt.Errorf("unsupported file %s", path)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return fileResult{}, err
	}

	if res.checked {
		c.tel.Metrics.RecordFileChecked(kind)
	}
	telemetry.RecordSuccess(span)
	return res, nil
}

func (c *Checker) checkGo(ctx context.Context, span trace.Span, path string) (fileResult, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		// Not ours to report; the compiler will.
		c.log.WithFile(path).WithError(err).Debug("skipping file with syntax errors")
		return fileResult{}, nil
	}

	res := fileResult{checked: true}
	for _, group := range analyzer.FileTemplates(file) {
		for _, p := range group.Problems {
			res.findings = append(res.findings, goFinding(fset, p))
		}

		var (
			options    []*template.OptionResult
			optionTpl  []analyzer.Occurrence
			shortNames []string
		)
		for _, occ := range group.Occurrences {
			timer := telemetry.NewTimer()
			parsed, p := occ.Check()
			if p != nil {
				code := errorCode(p.Err)
				c.tel.Metrics.RecordTemplateParsed(string(occ.Grammar), code, timer.Duration())
				telemetry.AddTemplateEvent(span, string(occ.Grammar), occ.Template, code)
				c.log.WithFile(path).WithTemplate(string(occ.Grammar), occ.Template).Debug(p.Err.Error())
				res.findings = append(res.findings, goFinding(fset, *p))
				continue
			}
			c.tel.Metrics.RecordTemplateParsed(string(occ.Grammar), "", timer.Duration())

			switch v := parsed.(type) {
			case *template.OptionResult:
				options = append(options, v)
				optionTpl = append(optionTpl, occ)
				shortNames = append(shortNames, v.ShortNames...)
			case *template.ArgumentResult:
				input := policy.ArgumentInput(occ.Template, v)
				findings, err := c.evaluate(ctx, input, path, fset.Position(occ.Pos))
				if err != nil {
					return fileResult{}, err
				}
				res.findings = append(res.findings, findings...)
			}
		}

		for i, opt := range options {
			input := policy.OptionInput(optionTpl[i].Template, opt, shortNames)
			findings, err := c.evaluate(ctx, input, path, fset.Position(optionTpl[i].Pos))
			if err != nil {
				return fileResult{}, err
			}
			res.findings = append(res.findings, findings...)
		}
	}
	return res, nil
}

// goFinding converts a problem found in Go source. Tag problems are warnings:
// the program still compiles, but binding the struct will fail at run time.
func goFinding(fset *token.FileSet, p analyzer.Problem) Finding {
	pos := fset.Position(p.Pos)
	f := Finding{
		File:     pos.Filename,
		Line:     pos.Line,
		Column:   pos.Column,
		Kind:     KindTemplate,
		Message:  p.Err.Error(),
		Severity: SeverityWarning,
		Source:   p.Template,
		Code:     errorCode(p.Err),
	}
	if errors.Is(p.Err, cli.ErrInvalidArgumentTag) {
		f.Code = CodeInvalidArgumentTag
	}
	if end := fset.Position(p.End); end.IsValid() && end.Line == pos.Line {
		f.EndColumn = end.Column
	}
	return f
}

func errorCode(err error) string {
	if kind, ok := template.KindOf(err); ok {
		return kind.Code()
	}
	return ""
}

func (c *Checker) checkManifest(ctx context.Context, span trace.Span, path string) (fileResult, error) {
	pm, err := c.parser.ParseFile(ctx, path)
	if errors.Is(err, config.ErrNotManifest) {
		return fileResult{}, nil
	}
	if err != nil {
		return fileResult{}, err
	}

	res := fileResult{checked: true}
	for _, ve := range pm.Errors {
		f := manifestFinding(path, ve)
		if f.Kind == KindTemplate {
			grammar := pathGrammar(ve.Path)
			c.tel.Metrics.RecordTemplateParsed(string(grammar), ve.Code, 0)
			telemetry.AddTemplateEvent(span, string(grammar), "", ve.Code)
		}
		res.findings = append(res.findings, f)
	}

	for _, ref := range pm.Templates {
		c.tel.Metrics.RecordTemplateParsed(string(ref.Grammar), "", 0)

		var input *policy.Input
		switch {
		case ref.Option != nil:
			input = policy.OptionInput(ref.Template, ref.Option, pm.ShortNames(ref.Command))
		case ref.Argument != nil:
			input = policy.ArgumentInput(ref.Template, ref.Argument)
		default:
			continue
		}
		pos := token.Position{Filename: ref.File, Line: ref.Line, Column: ref.Column}
		if pos.Filename == "" {
			pos.Filename = path
		}
		findings, err := c.evaluate(ctx, input, path, pos)
		if err != nil {
			return fileResult{}, err
		}
		res.findings = append(res.findings, findings...)
	}
	return res, nil
}

// pathGrammar tells which grammar the template at a manifest path uses.
func pathGrammar(path string) template.Grammar {
	if strings.LastIndex(path, "arguments[") > strings.LastIndex(path, "options[") {
		return template.ArgumentGrammar
	}
	return template.OptionGrammar
}

var templateCodes = func() map[string]bool {
	codes := make(map[string]bool)
	for _, k := range template.Kinds() {
		codes[k.Code()] = true
	}
	return codes
}()

func manifestFinding(path string, ve config.ValidationError) Finding {
	f := Finding{
		File:     ve.File,
		Line:     ve.Line,
		Column:   ve.Column,
		Code:     ve.Code,
		Kind:     KindManifest,
		Message:  ve.Message,
		Severity: ve.Severity,
	}
	if f.File == "" {
		f.File = path
	}
	if f.Severity == "" {
		f.Severity = SeverityError
	}
	if templateCodes[ve.Code] {
		f.Kind = KindTemplate
	}
	return f
}

// evaluate runs the policies against one parsed template.
func (c *Checker) evaluate(ctx context.Context, input *policy.Input, file string, pos token.Position) ([]Finding, error) {
	if c.cfg.Policy == nil {
		return nil, nil
	}
	input.File = file
	input.Line = pos.Line

	result, err := c.cfg.Policy.Evaluate(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policies for %s:%d: %w", file, pos.Line, err)
	}
	for _, w := range result.Warnings {
		c.log.WithFile(file).Warn(w)
	}

	findings := make([]Finding, 0, len(result.Violations))
	for _, v := range result.Violations {
		findings = append(findings, Finding{
			File:     file,
			Line:     pos.Line,
			Column:   pos.Column,
			Code:     CodePolicy,
			Kind:     KindPolicy,
			Message:  fmt.Sprintf("%s (%s)", v.Message, v.Policy),
			Severity: string(v.Severity),
			Source:   input.Template,
		})
	}
	return findings, nil
}

func (c *Checker) relevant(path string) bool {
	return c.fileKind(path) != ""
}

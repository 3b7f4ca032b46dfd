package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"github.com/go-playground/validator/v10"

	"github.com/openfroyo/clitmpl/pkg/cli"
	"github.com/openfroyo/clitmpl/pkg/template"
)

// ErrNotManifest is returned by ParseFile for CUE or YAML files that do not
// declare commands.
var ErrNotManifest = errors.New("not a command manifest")

// Manifest formats.
const (
	FormatCUE  = "cue"
	FormatYAML = "yaml"
)

// FormatOf returns the manifest format of path by extension, or "".
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// ManifestParser parses command manifests written in CUE or YAML and checks
// every template they declare. Calls are serialized since a cue.Context is
// not safe for concurrent use.
type ManifestParser struct {
	mu             sync.Mutex
	ctx            *cue.Context
	schemaRegistry *SchemaRegistry
	validator      *validator.Validate
}

// NewManifestParser creates a new manifest parser.
func NewManifestParser() *ManifestParser {
	ctx := cuecontext.New()
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &ManifestParser{
		ctx:            ctx,
		schemaRegistry: newSchemaRegistry(ctx),
		validator:      v,
	}
}

// SchemaRegistry returns the schema registry.
func (mp *ManifestParser) SchemaRegistry() *SchemaRegistry {
	return mp.schemaRegistry
}

// Parse parses manifest files and directories. Problems found in the
// manifests are returned in ParsedManifest.Errors; the error result is for
// sources that cannot be read at all.
func (mp *ManifestParser) Parse(ctx context.Context, sources []string) (*ParsedManifest, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	var units []*unit
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %s: %w", source, err)
		}

		if info.IsDir() {
			loaded, err := mp.loadDirectory(source)
			if err != nil {
				return nil, err
			}
			units = append(units, loaded...)
			continue
		}

		u, err := mp.loadFile(source)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}

	return mp.assemble(units), nil
}

// ParseFile parses a single manifest file. It returns ErrNotManifest when the
// file does not declare commands, so callers scanning a tree can skip
// unrelated CUE and YAML files.
func (mp *ManifestParser) ParseFile(ctx context.Context, path string) (*ParsedManifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	u, err := mp.loadFile(path)
	if err != nil {
		return nil, err
	}
	if !u.hasCommands {
		return nil, ErrNotManifest
	}
	return mp.assemble([]*unit{u}), nil
}

// ParseInline parses manifest content given in format.
func (mp *ManifestParser) ParseInline(ctx context.Context, content, format string) (*ParsedManifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if format != FormatCUE && format != FormatYAML {
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.assemble([]*unit{mp.decode("inline", format, []byte(content))}), nil
}

// unit is one independently decoded piece of a manifest: a file or a CUE
// package.
type unit struct {
	manifest    ManifestConfig
	files       []string
	hasCommands bool
	positions   map[string]position
	errors      []ValidationError

	// commandPaths maps space separated command paths to manifest paths.
	commandPaths map[string]string
}

func newUnit(files ...string) *unit {
	return &unit{
		files:        files,
		positions:    make(map[string]position),
		commandPaths: make(map[string]string),
	}
}

func (u *unit) file() string {
	if len(u.files) == 0 {
		return ""
	}
	return u.files[0]
}

// position locates a value in its source.
type position struct {
	file   string
	line   int
	column int

	// prefix is the width of the opening delimiter of a string literal, or
	// -1 when columns inside the literal cannot be derived.
	prefix int
}

// at returns the line and column of byte offset within the literal's value.
func (p position) at(offset int) (int, int) {
	if p.column == 0 || p.prefix < 0 {
		return p.line, p.column
	}
	return p.line, p.column + p.prefix + offset
}

// locate finds the position of path, falling back to its closest located
// parent.
func (u *unit) locate(path string) position {
	for p := path; p != ""; p = parentPath(p) {
		if pos, ok := u.positions[p]; ok {
			if p != path {
				pos.prefix = -1
			}
			return pos
		}
	}
	return position{file: u.file(), prefix: -1}
}

func parentPath(path string) string {
	i := strings.LastIndexAny(path, ".[")
	if i < 0 {
		return ""
	}
	return path[:i]
}

func joinPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

func indexPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

// loadFile reads and decodes one manifest file.
func (mp *ManifestParser) loadFile(path string) (*unit, error) {
	format := FormatOf(path)
	if format == "" {
		return nil, fmt.Errorf("unsupported manifest file %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return mp.decode(path, format, data), nil
}

func (mp *ManifestParser) decode(file, format string, data []byte) *unit {
	if format == FormatYAML {
		return mp.decodeYAML(file, data)
	}
	return mp.decodeCUE(mp.ctx.CompileString(string(data), cue.Filename(file)), file)
}

// loadDirectory loads the CUE files of dir as one package and every YAML
// file that declares commands as a unit of its own. It does not recurse.
func (mp *ManifestParser) loadDirectory(dir string) ([]*unit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var (
		units  []*unit
		hasCUE bool
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch FormatOf(entry.Name()) {
		case FormatCUE:
			hasCUE = true
		case FormatYAML:
			u, err := mp.loadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			if u.hasCommands || len(u.errors) > 0 {
				units = append(units, u)
			}
		}
	}

	if hasCUE {
		units = append([]*unit{mp.loadPackage(dir)}, units...)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no manifest files found in %s", dir)
	}
	return units, nil
}

// loadPackage loads the CUE package in dir.
func (mp *ManifestParser) loadPackage(dir string) *unit {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		u := newUnit(dir)
		u.errors = []ValidationError{{File: dir, Code: CodeSyntax, Message: "no CUE files found", Severity: "error"}}
		return u
	}

	inst := instances[0]
	if inst.Err != nil {
		u := newUnit(dir)
		u.errors = convertCUEErrors(inst.Err, CodeSyntax, u)
		return u
	}

	var files []string
	for _, f := range inst.Files {
		if f.Filename != "" {
			files = append(files, f.Filename)
		}
	}
	u := mp.decodeCUE(mp.ctx.BuildInstance(inst), files...)
	if len(u.files) == 0 {
		u.files = []string{dir}
	}
	return u
}

// assemble merges units into one manifest and checks every command. The
// first unit that names the manifest provides its name and version.
func (mp *ManifestParser) assemble(units []*unit) *ParsedManifest {
	pm := &ParsedManifest{ParsedAt: time.Now()}
	declared := make(map[string]string)

	for _, u := range units {
		pm.SourceFiles = append(pm.SourceFiles, u.files...)
		if len(u.errors) > 0 {
			pm.Errors = append(pm.Errors, u.errors...)
			continue
		}

		if err := mp.validator.Struct(u.manifest); err != nil {
			pm.Errors = append(pm.Errors, fieldErrors(err, u)...)
			continue
		}

		if pm.Manifest.Name == "" {
			pm.Manifest.Name = u.manifest.Name
			pm.Manifest.Version = u.manifest.Version
			pm.Manifest.Description = u.manifest.Description
		}

		for i, cmd := range u.manifest.Commands {
			path := indexPath("commands", i)
			if prev, dup := declared[cmd.Name]; dup {
				pos := u.locate(joinPath(path, "name"))
				pm.Errors = append(pm.Errors, ValidationError{
					File:     pos.file,
					Line:     pos.line,
					Column:   pos.column,
					Path:     joinPath(path, "name"),
					Code:     CodeDuplicateCommand,
					Message:  fmt.Sprintf("command %q is already declared in %s", cmd.Name, prev),
					Severity: "error",
				})
				continue
			}
			declared[cmd.Name] = u.file()

			before := len(pm.Errors)
			checkTemplates(pm, u, cmd, path, cmd.Name)
			if len(pm.Errors) == before {
				checkCommand(pm, u, cmd)
			}
			pm.Manifest.Commands = append(pm.Manifest.Commands, cmd)
		}
	}

	return pm
}

// checkTemplates parses every template of cmd and its subcommands.
func checkTemplates(pm *ParsedManifest, u *unit, cmd CommandConfig, path, cmdPath string) {
	u.commandPaths[cmdPath] = path

	for i, a := range cmd.Arguments {
		p := joinPath(indexPath(joinPath(path, "arguments"), i), "template")
		res, err := template.ParseArgumentTemplate(a.Template)
		if err != nil {
			pm.Errors = append(pm.Errors, templateError(u, p, err))
			continue
		}
		pm.Templates = append(pm.Templates, templateRef(u, p, cmdPath, template.ArgumentGrammar, a.Template, nil, res))
	}

	for i, o := range cmd.Options {
		p := joinPath(indexPath(joinPath(path, "options"), i), "template")
		res, err := template.ParseOptionTemplate(o.Template)
		if err != nil {
			pm.Errors = append(pm.Errors, templateError(u, p, err))
			continue
		}
		pm.Templates = append(pm.Templates, templateRef(u, p, cmdPath, template.OptionGrammar, o.Template, res, nil))
	}

	for i, sub := range cmd.Commands {
		checkTemplates(pm, u, sub, indexPath(joinPath(path, "commands"), i), cmdPath+" "+sub.Name)
	}
}

func templateRef(u *unit, path, cmdPath string, g template.Grammar, tmpl string, opt *template.OptionResult, arg *template.ArgumentResult) TemplateRef {
	pos := u.locate(path)
	line, col := pos.at(0)
	return TemplateRef{
		File:     pos.file,
		Line:     line,
		Column:   col,
		Path:     path,
		Command:  cmdPath,
		Grammar:  g,
		Template: tmpl,
		Option:   opt,
		Argument: arg,
	}
}

// templateError locates a template error at the offending token.
func templateError(u *unit, path string, err error) ValidationError {
	pos := u.locate(path)
	ve := ValidationError{
		File:     pos.file,
		Line:     pos.line,
		Column:   pos.column,
		Path:     path,
		Message:  err.Error(),
		Severity: "error",
	}

	var te *template.Error
	if errors.As(err, &te) {
		ve.Code = te.Kind.Code()
		ve.Line, ve.Column = pos.at(te.Position())
	}
	return ve
}

// checkCommand registers cmd to catch templates that parse but conflict.
func checkCommand(pm *ParsedManifest, u *unit, cmd CommandConfig) {
	_, err := cli.Compile(cmd.ToSpec())
	if err == nil {
		return
	}

	var re *cli.RegistrationError
	if !errors.As(err, &re) {
		pm.Errors = append(pm.Errors, ValidationError{File: u.file(), Code: CodeInvalidCommand, Message: err.Error(), Severity: "error"})
		return
	}

	path := u.commandPaths[re.Command]
	switch {
	case strings.HasPrefix(re.Field, "arguments["), strings.HasPrefix(re.Field, "options["):
		path = joinPath(joinPath(path, re.Field), "template")
	case strings.HasPrefix(re.Field, "position "):
		// argument rules are reported by position after sorting
		path = joinPath(path, "arguments")
	case re.Field != "":
		path = joinPath(path, re.Field)
	}

	msg := re.Err.Error()
	if re.Template != "" {
		msg = fmt.Sprintf("%s: %s", re.Template, msg)
	}

	pos := u.locate(path)
	line, col := pos.at(0)
	pm.Errors = append(pm.Errors, ValidationError{
		File:     pos.file,
		Line:     line,
		Column:   col,
		Path:     path,
		Code:     CodeInvalidCommand,
		Message:  msg,
		Severity: "error",
	})
}

// fieldErrors converts validator errors; paths use the json field names.
func fieldErrors(err error, u *unit) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{File: u.file(), Code: CodeInvalidField, Message: err.Error(), Severity: "error"}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		pos := u.locate(path)
		out = append(out, ValidationError{
			File:     pos.file,
			Line:     pos.line,
			Column:   pos.column,
			Path:     path,
			Code:     CodeInvalidField,
			Message:  fmt.Sprintf("field %s failed on the '%s' tag", fe.Field(), fe.Tag()),
			Severity: "error",
		})
	}
	return out
}

// convertCUEErrors converts CUE errors to ValidationErrors. Errors without a
// source position are located through the unit's positions.
func convertCUEErrors(err error, code string, u *unit) []ValidationError {
	var out []ValidationError

	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		ve := ValidationError{
			Path:     cuePath(e.Path()),
			Code:     code,
			Message:  fmt.Sprintf(format, args...),
			Severity: "error",
		}

		if pos := cueerrors.Positions(e); len(pos) > 0 && pos[0].Line() > 0 {
			ve.File = pos[0].Filename()
			ve.Line = pos[0].Line()
			ve.Column = pos[0].Column()
		} else {
			p := u.locate(ve.Path)
			ve.File, ve.Line, ve.Column = p.file, p.line, p.column
		}

		out = append(out, ve)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// cuePath renders a CUE error path as "commands[0].name".
func cuePath(segments []string) string {
	var b strings.Builder
	for _, s := range segments {
		if s != "" && strings.Trim(s, "0123456789") == "" {
			b.WriteString("[" + s + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}

package builder

import (
	"context"
	stdErrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/blogbuilder/internal/assetcache"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/extension"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/markup"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/modules"
	"git.home.luguber.info/inful/blogbuilder/internal/observability"
	"git.home.luguber.info/inful/blogbuilder/internal/programs"
	"git.home.luguber.info/inful/blogbuilder/internal/templating"
	"git.home.luguber.info/inful/blogbuilder/internal/workspace"
)

// DefaultIgnorePatterns are never built, whatever ignore_files says.
var DefaultIgnorePatterns = []string{".*", "_*"}

// Builder builds one project. It is not safe for concurrent use; serve
// mode runs one build at a time.
type Builder struct {
	projectFolder string
	outputFolder  string
	root          *config.Config
	settings      *config.Settings
	ignore        []string

	env       *document.Environment
	registry  *extension.Registry
	hooks     *extension.Hooks
	programs  *programs.Registry
	assets    *assetcache.Cache
	recorder  metrics.Recorder
	workspace *workspace.Manager
	clean     bool
}

// Load reads the root config.yml of projectFolder and creates a Builder.
func Load(projectFolder string, opts ...Option) (*Builder, error) {
	root, err := config.LoadRoot(projectFolder)
	if err != nil {
		return nil, err
	}
	return New(projectFolder, root, opts...)
}

// New creates a Builder for projectFolder with the given root config. Active
// modules are set up and every configured program is validated here, so
// configuration mistakes surface before any file is touched.
func New(projectFolder string, root *config.Config, opts ...Option) (*Builder, error) {
	abs, err := filepath.Abs(projectFolder)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve project folder").
			WithContext("path", projectFolder).
			Build()
	}
	if root == nil {
		root = config.Empty()
	}
	settings, err := config.DecodeSettings(root)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		projectFolder: abs,
		outputFolder:  filepath.Join(abs, filepath.FromSlash(settings.OutputFolder)),
		root:          root.Root(),
		settings:      settings,
		ignore:        append(append([]string(nil), DefaultIgnorePatterns...), settings.IgnoreFiles...),
		registry:      extension.NewRegistry(),
		hooks:         extension.NewHooks(),
		recorder:      metrics.NoopRecorder{},
		workspace:     workspace.NewManager(""),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, pattern := range b.ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.ConfigError("invalid ignore_files pattern: " + pattern).
				WithSource(config.FileName).
				Build()
		}
	}
	b.assets = assetcache.New(b, b.workspace, b.recorder)

	if err := b.setupModules(); err != nil {
		return nil, err
	}
	if b.programs, err = programs.NewRegistry(settings.Programs); err != nil {
		return nil, errors.WrapError(err, errors.GetCategory(err), "invalid programs configuration").
			WithSource(config.FileName).
			Build()
	}

	templates, err := templating.New(filepath.Join(abs, filepath.FromSlash(settings.TemplatePath)), b.registry.TemplateFuncs())
	if err != nil {
		return nil, err
	}
	b.env = &document.Environment{
		ProjectFolder: abs,
		OutputFolder:  b.outputFolder,
		URLRoot:       settings.URLRoot,
		Templates:     templates,
		Markup:        markup.New(b.registry),
		Static:        b,
	}
	return b, nil
}

func (b *Builder) setupModules() error {
	for _, name := range b.settings.ActiveModules {
		mod, err := modules.Lookup(name)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "cannot enable module").
				WithSource(config.FileName).
				Build()
		}
		sc := &extension.SetupContext{
			Config:   b.root,
			Registry: b.registry,
			Hooks:    b.hooks,
			Assets:   b.assets,
			Static:   b,
		}
		if err := mod.Setup(sc); err != nil {
			return errors.WrapError(err, errors.GetCategory(err), "failed to set up module "+name).
				WithSource(config.FileName).
				WithContext(logfields.KeyModule, name).
				Build()
		}
		slog.Debug("Module enabled", logfields.Module(name))
	}
	return nil
}

// ProjectFolder returns the absolute project root.
func (b *Builder) ProjectFolder() string { return b.projectFolder }

// OutputFolder returns the absolute output root.
func (b *Builder) OutputFolder() string { return b.outputFolder }

// Settings returns the decoded root settings.
func (b *Builder) Settings() *config.Settings { return b.settings }

// Registry returns the extension registry modules populated.
func (b *Builder) Registry() *extension.Registry { return b.registry }

// FullStaticFilename returns the absolute path of a static asset.
func (b *Builder) FullStaticFilename(rel string) string {
	return filepath.Join(b.outputFolder, filepath.FromSlash(b.settings.StaticFolder), filepath.FromSlash(rel))
}

// StaticURL returns the public URL of a static asset.
func (b *Builder) StaticURL(rel string) string {
	return b.settings.URLRoot + strings.Trim(b.settings.StaticFolder, "/") + "/" + strings.TrimPrefix(rel, "/")
}

// OpenStaticFile creates or truncates a static asset for writing.
func (b *Builder) OpenStaticFile(rel string) (io.WriteCloser, error) {
	full := b.FullStaticFilename(rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create static folder").
			WithContext("path", filepath.Dir(full)).
			Build()
	}
	f, err := os.Create(full) // #nosec G304 -- path below the output folder
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open static file").
			WithContext("path", full).
			Build()
	}
	return f, nil
}

// Run performs one full build. The context only carries log fields; a
// started build always runs to completion or to its first error. Any error
// names the source file it occurred in.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	ctx = context.WithoutCancel(ctx)
	report := newReport(uuid.NewString())
	ctx = observability.WithBuildID(ctx, report.BuildID)

	observability.InfoContext(ctx, "Build started",
		logfields.Path(b.projectFolder),
		slog.String("output", b.outputFolder))

	err := b.run(ctx, report)
	report.finish(err)

	b.recorder.ObserveBuildDuration(report.Duration)
	if err != nil {
		b.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
		observability.ErrorContext(ctx, "Build failed",
			logfields.Source(errors.SourceOf(err)),
			logfields.Error(err))
		return report, err
	}
	b.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	observability.InfoContext(ctx, "Build finished",
		logfields.Files(len(report.Files)),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

func (b *Builder) run(ctx context.Context, report *Report) error {
	if b.clean {
		if err := os.RemoveAll(b.outputFolder); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to clean output folder").
				WithContext("path", b.outputFolder).
				Build()
		}
		observability.DebugContext(ctx, "Output folder removed", logfields.Path(b.outputFolder))
	}
	if err := b.walk(ctx, "", b.root, report); err != nil {
		return err
	}
	if err := b.hooks.FireBeforeBuildFinished(b); err != nil {
		return errors.WrapError(err, errors.GetCategory(err), "build finalization failed").Build()
	}
	return nil
}

// walk processes dir (slash-separated, relative to the project) with cfg as
// the inherited configuration.
func (b *Builder) walk(ctx context.Context, dir string, cfg *config.Config, report *Report) error {
	entries, err := os.ReadDir(filepath.Join(b.projectFolder, filepath.FromSlash(dir)))
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to read folder").
			WithSource(dir).
			Build()
	}

	for _, entry := range entries {
		name := entry.Name()
		rel := path.Join(dir, name)
		if b.Ignored(rel) {
			continue
		}
		info, err := os.Stat(filepath.Join(b.projectFolder, filepath.FromSlash(rel)))
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to stat file").
				WithSource(rel).
				Build()
		}

		switch {
		case info.IsDir():
			if b.isOutput(rel) {
				continue
			}
			sub, err := b.folderConfig(rel, cfg)
			if err != nil {
				return err
			}
			if err := b.walk(ctx, rel, sub, report); err != nil {
				return err
			}
		case name == config.FileName:
			// Folder configuration, consumed by the cascade.
		case info.Mode().IsRegular():
			if err := b.processFile(ctx, rel, cfg, report); err != nil {
				return err
			}
		}
	}
	return nil
}

// folderConfig layers dir's config.yml over cfg when there is one.
func (b *Builder) folderConfig(dir string, cfg *config.Config) (*config.Config, error) {
	file := filepath.Join(b.projectFolder, filepath.FromSlash(dir), config.FileName)
	if _, err := os.Stat(file); err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to stat folder config").
			WithSource(path.Join(dir, config.FileName)).
			Build()
	}
	next, err := cfg.AddFromFile(file)
	if err != nil {
		return nil, errors.WrapError(err, errors.GetCategory(err), "invalid folder config").
			WithSource(path.Join(dir, config.FileName)).
			Build()
	}
	return next, nil
}

// Ignored reports whether rel is excluded from the build. Patterns are
// matched against the base name and against the relative path.
func (b *Builder) Ignored(rel string) bool {
	base := path.Base(rel)
	for _, pattern := range b.ignore {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (b *Builder) isOutput(rel string) bool {
	return path.Clean(rel) == path.Clean(filepath.ToSlash(b.settings.OutputFolder))
}

// processFile runs the program lifecycle for one file. The Context and the
// Program live exactly as long as this call.
func (b *Builder) processFile(ctx context.Context, rel string, cfg *config.Config, report *Report) error {
	start := time.Now()
	ctx = observability.WithSource(ctx, rel)

	doc := document.New(b.env, rel, cfg)
	prog, spec, err := b.programs.Select(doc)
	if err != nil {
		return fileError(err, rel)
	}
	kind := string(spec.Kind)
	ctx = observability.WithProgram(ctx, kind)

	err = b.runProgram(ctx, doc, prog)
	elapsed := time.Since(start)
	b.recorder.ObserveProgramDuration(kind, elapsed)
	if err != nil {
		b.recorder.IncFileResult(kind, metrics.ResultFailed)
		return fileError(err, rel)
	}
	b.recorder.IncFileResult(kind, metrics.ResultSuccess)

	report.add(FileResult{
		Source:      rel,
		Destination: doc.DestinationFilename,
		Program:     kind,
		Duration:    elapsed,
	})
	observability.DebugContext(ctx, "File processed",
		logfields.Destination(doc.DestinationFilename),
		logfields.DurationMS(float64(elapsed.Milliseconds())))
	return nil
}

func (b *Builder) runProgram(ctx context.Context, doc *document.Context, prog programs.Program) error {
	if err := prog.Prepare(); err != nil {
		return err
	}
	if !doc.HasDestination() {
		dest, err := prog.DesiredFilename()
		if err != nil {
			return err
		}
		doc.DestinationFilename = dest
	}
	if err := b.hooks.FireBeforeFileProcessed(doc); err != nil {
		return err
	}
	return prog.Run(ctx)
}

// fileError makes sure err names source.
func fileError(err error, source string) error {
	if errors.SourceOf(err) != "" {
		return err
	}
	return errors.WrapError(err, errors.GetCategory(err), "failed to build "+source).
		WithSource(source).
		Build()
}

// Package render composes jobname derivation, source persistence, template
// expansion, and compiler invocation into the two end-to-end render
// operations.
package render

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devroopsaha744/TexMCP/internal/latex"
	"github.com/devroopsaha744/TexMCP/internal/logfields"
	"github.com/devroopsaha744/TexMCP/internal/metrics"
	"github.com/devroopsaha744/TexMCP/internal/template"
)

// Invoker is the compiler boundary the service depends on.
type Invoker interface {
	Available() bool
	Compile(ctx context.Context, sourcePath string, runs int) (string, error)
}

// Expander is the template-resolver boundary. Expand must return
// template.ErrTemplateNotFound (wrapped or not) when the name does not resolve.
type Expander interface {
	Expand(name string, context map[string]any) (string, error)
}

// Request describes one render-from-source call.
type Request struct {
	Source  string // raw LaTeX body, treated as an opaque blob
	Jobname string // optional; sanitized, generated when empty
	Compile bool
	Runs    int
}

// TemplateRequest describes one render-from-template call.
type TemplateRequest struct {
	Template string
	Context  map[string]any
	Jobname  string
	Compile  bool
	Runs     int
}

// Result is the value produced by a successful render. ArtifactPath is empty
// unless a compile was requested and succeeded.
type Result struct {
	Jobname      string
	SourcePath   string
	ArtifactPath string
}

// Service owns the render pipeline for one work directory. The work directory
// is injected at construction; nothing here reads ambient global state, so
// tests can give every case an isolated root.
type Service struct {
	workDir  string
	compiler Invoker
	engine   Expander
	recorder metrics.Recorder
}

// NewService builds a Service. engine may be nil when template rendering is
// not exposed.
func NewService(workDir string, compiler Invoker, engine Expander) *Service {
	return &Service{
		workDir:  workDir,
		compiler: compiler,
		engine:   engine,
		recorder: metrics.NoopRecorder{},
	}
}

// SetRecorder injects a metrics recorder (optional).
func (s *Service) SetRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	s.recorder = r
}

// WorkDir returns the directory render jobs write into.
func (s *Service) WorkDir() string { return s.workDir }

// CompilerAvailable reports whether a compile can possibly succeed.
func (s *Service) CompilerAvailable() bool { return s.compiler.Available() }

// RenderSource persists the source and optionally compiles it. Failures beyond
// the write are propagated unchanged; the caller decides whether a missing
// compiler warrants a degraded retry (see the server layer).
func (s *Service) RenderSource(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	jobname := req.Jobname
	if jobname == "" {
		jobname = latex.GenerateJobname()
	} else {
		jobname = latex.SanitizeJobname(jobname)
	}

	sourcePath, err := latex.WriteSource(s.workDir, jobname, req.Source)
	if err != nil {
		s.recorder.IncRenderOutcome(metrics.OutcomeError)
		return Result{}, err
	}

	res := Result{Jobname: jobname, SourcePath: sourcePath}

	if !req.Compile {
		s.finish(start, metrics.OutcomeSourceOnly)
		slog.Info("Rendered LaTeX source without compiling", logfields.Jobname(jobname), logfields.Path(sourcePath))
		return res, nil
	}

	artifact, err := s.compiler.Compile(ctx, sourcePath, req.Runs)
	if err != nil {
		s.finish(start, outcomeLabel(err))
		slog.Warn("Compilation failed", logfields.Jobname(jobname), logfields.Error(err))
		return Result{}, err
	}

	res.ArtifactPath = artifact
	s.finish(start, metrics.OutcomeSuccess)
	s.recorder.ObserveCompilePasses(max(req.Runs, 1))
	slog.Info("Rendered LaTeX document",
		logfields.Jobname(jobname),
		logfields.Path(artifact),
		logfields.Passes(max(req.Runs, 1)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return res, nil
}

// RenderTemplate expands the named template and hands the result to
// RenderSource. A not-found template surfaces immediately and is never subject
// to the degraded retry.
func (s *Service) RenderTemplate(ctx context.Context, req TemplateRequest) (Result, error) {
	if s.engine == nil {
		return Result{}, errors.New("no template engine configured")
	}

	source, err := s.engine.Expand(req.Template, req.Context)
	if err != nil {
		if errors.Is(err, template.ErrTemplateNotFound) {
			s.recorder.IncRenderOutcome(metrics.OutcomeTemplateMissing)
		} else {
			s.recorder.IncRenderOutcome(metrics.OutcomeError)
		}
		return Result{}, err
	}

	slog.Debug("Expanded template", logfields.Template(req.Template), slog.Int("bytes", len(source)))
	return s.RenderSource(ctx, Request{
		Source:  source,
		Jobname: req.Jobname,
		Compile: req.Compile,
		Runs:    req.Runs,
	})
}

func (s *Service) finish(start time.Time, outcome string) {
	s.recorder.ObserveRenderDuration(time.Since(start))
	s.recorder.IncRenderOutcome(outcome)
}

// outcomeLabel maps a compile error to its metrics label.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, latex.ErrCompilerNotFound):
		return metrics.OutcomeMissingCompiler
	case errors.Is(err, latex.ErrArtifactMissing):
		return metrics.OutcomeArtifactMissing
	default:
		var ce *latex.CompileError
		if errors.As(err, &ce) {
			return metrics.OutcomeCompileFailed
		}
		return metrics.OutcomeError
	}
}

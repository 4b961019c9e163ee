package latex

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/devroopsaha744/TexMCP/internal/logfields"
)

// ArtifactExt is the extension of compiled artifacts.
const ArtifactExt = ".pdf"

// DefaultBinary is the compiler invoked when none is configured.
const DefaultBinary = "pdflatex"

// Compiler invokes the external LaTeX toolchain. Binary availability is probed
// once in NewCompiler and never re-checked; construct a new Compiler to
// re-probe.
type Compiler struct {
	binary    string
	texInputs []string
	timeout   time.Duration
	available bool
}

// Option configures a Compiler before the availability probe runs.
type Option func(*Compiler)

// WithBinary overrides the compiler executable name or path.
func WithBinary(binary string) Option {
	return func(c *Compiler) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithTexInputs adds extra directories the compiler searches for include files.
func WithTexInputs(paths []string) Option {
	return func(c *Compiler) { c.texInputs = paths }
}

// WithTimeout bounds each individual pass. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Compiler) { c.timeout = d }
}

// NewCompiler builds a Compiler and probes the execution search path for the
// configured binary.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{binary: DefaultBinary}
	for _, opt := range opts {
		opt(c)
	}
	_, err := exec.LookPath(c.binary)
	c.available = err == nil
	if !c.available {
		slog.Debug("LaTeX compiler not found on PATH", logfields.Binary(c.binary))
	}
	return c
}

// Available reports whether the binary resolved when this Compiler was built.
func (c *Compiler) Available() bool { return c.available }

// Binary returns the configured compiler executable.
func (c *Compiler) Binary() string { return c.binary }

// Compile runs the compiler over sourcePath for max(runs, 1) sequential passes
// and returns the artifact path. Failure modes: ErrCompilerNotFound before any
// spawn, *CompileError on the first non-zero exit (remaining passes are
// skipped), ErrArtifactMissing when all passes succeed but no PDF exists.
func (c *Compiler) Compile(ctx context.Context, sourcePath string, runs int) (string, error) {
	if !c.available {
		return "", fmt.Errorf("%w: %q", ErrCompilerNotFound, c.binary)
	}
	if runs < 1 {
		runs = 1
	}

	var env []string
	if len(c.texInputs) > 0 {
		env = append(os.Environ(), "TEXINPUTS="+joinTexInputs(c.texInputs))
	}

	dir := filepath.Dir(sourcePath)
	name := filepath.Base(sourcePath)

	for pass := 1; pass <= runs; pass++ {
		log, err := c.runPass(ctx, dir, name, env)
		if err != nil {
			return "", &CompileError{Source: name, Pass: pass, Log: log, Err: err}
		}
		slog.Debug("Compiler pass completed", logfields.Pass(pass), logfields.Passes(runs), logfields.Path(sourcePath))
	}

	artifact := strings.TrimSuffix(sourcePath, SourceExt) + ArtifactExt
	if _, err := os.Stat(artifact); err != nil {
		return "", fmt.Errorf("%w: %s", ErrArtifactMissing, filepath.Base(artifact))
	}
	return artifact, nil
}

// runPass executes one compiler invocation and returns its combined output.
func (c *Compiler) runPass(ctx context.Context, dir, name string, env []string) (string, error) {
	passCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// #nosec G204 -- binary comes from configuration, arguments are fixed flags
	// plus a sanitized jobname-derived file name.
	cmd := exec.CommandContext(passCtx, c.binary, "-halt-on-error", "-interaction=nonstopmode", name)
	cmd.Dir = dir
	cmd.Env = env

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}

// joinTexInputs builds the TEXINPUTS value: the extra roots, an empty entry so
// the compiler keeps its default search locations, and the system temp
// directory, joined with the platform list separator.
func joinTexInputs(paths []string) string {
	entries := make([]string, 0, len(paths)+2)
	entries = append(entries, paths...)
	entries = append(entries, "", os.TempDir())
	return strings.Join(entries, string(os.PathListSeparator))
}

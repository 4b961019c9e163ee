package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devroopsaha744/TexMCP/internal/latex"
	"github.com/devroopsaha744/TexMCP/internal/template"
)

// fakeInvoker records calls and returns a scripted outcome.
type fakeInvoker struct {
	available bool
	err       error
	calls     int
	lastRuns  int
	lastPath  string
}

func (f *fakeInvoker) Available() bool { return f.available }

func (f *fakeInvoker) Compile(_ context.Context, sourcePath string, runs int) (string, error) {
	f.calls++
	f.lastRuns = runs
	f.lastPath = sourcePath
	if f.err != nil {
		return "", f.err
	}
	artifact := strings.TrimSuffix(sourcePath, latex.SourceExt) + latex.ArtifactExt
	return artifact, nil
}

type fakeExpander struct {
	out string
	err error
}

func (f *fakeExpander) Expand(string, map[string]any) (string, error) { return f.out, f.err }

func TestRenderSourceWithoutCompile(t *testing.T) {
	workDir := t.TempDir()
	inv := &fakeInvoker{available: true}
	svc := NewService(workDir, inv, nil)

	tex := "\\documentclass{article}"
	res, err := svc.RenderSource(context.Background(), Request{Source: tex, Jobname: "j", Compile: false})
	require.NoError(t, err)

	assert.Equal(t, "j", res.Jobname)
	assert.Empty(t, res.ArtifactPath)
	assert.Zero(t, inv.calls, "source-only mode must never invoke the compiler")

	content, err := os.ReadFile(res.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, tex, string(content))
}

func TestRenderSourceCompiles(t *testing.T) {
	workDir := t.TempDir()
	inv := &fakeInvoker{available: true}
	svc := NewService(workDir, inv, nil)

	res, err := svc.RenderSource(context.Background(), Request{Source: "x", Jobname: "doc", Compile: true, Runs: 2})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(workDir, "doc.pdf"), res.ArtifactPath)
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, 2, inv.lastRuns)
	assert.Equal(t, res.SourcePath, inv.lastPath)
}

func TestRenderSourceSanitizesJobname(t *testing.T) {
	svc := NewService(t.TempDir(), &fakeInvoker{available: true}, nil)

	res, err := svc.RenderSource(context.Background(), Request{Source: "x", Jobname: "My Doc!"})
	require.NoError(t, err)
	assert.Equal(t, "My_Doc", res.Jobname)
	assert.Equal(t, "My_Doc.tex", filepath.Base(res.SourcePath))
}

func TestRenderSourceGeneratesJobname(t *testing.T) {
	svc := NewService(t.TempDir(), &fakeInvoker{available: true}, nil)

	res, err := svc.RenderSource(context.Background(), Request{Source: "x"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Jobname, latex.GeneratedPrefix), "got %s", res.Jobname)
}

func TestRenderSourcePropagatesCompileFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"missing binary", fmt.Errorf("wrap: %w", latex.ErrCompilerNotFound)},
		{"compile failure", &latex.CompileError{Source: "j.tex", Pass: 1, Log: "boom", Err: errors.New("exit status 1")}},
		{"artifact missing", latex.ErrArtifactMissing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := &fakeInvoker{available: false, err: tc.err}
			svc := NewService(t.TempDir(), inv, nil)

			_, err := svc.RenderSource(context.Background(), Request{Source: "x", Jobname: "j", Compile: true})
			// The service performs no retry or degradation of its own.
			require.ErrorIs(t, err, tc.err)
			assert.Equal(t, 1, inv.calls)
		})
	}
}

func TestRenderSourceOverwrite(t *testing.T) {
	workDir := t.TempDir()
	svc := NewService(workDir, &fakeInvoker{available: true}, nil)
	ctx := context.Background()

	_, err := svc.RenderSource(ctx, Request{Source: "first", Jobname: "same"})
	require.NoError(t, err)
	res, err := svc.RenderSource(ctx, Request{Source: "second", Jobname: "same"})
	require.NoError(t, err)

	content, err := os.ReadFile(res.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content), "second call must fully replace the first")
}

func TestRenderTemplate(t *testing.T) {
	workDir := t.TempDir()
	svc := NewService(workDir, &fakeInvoker{available: true}, &fakeExpander{out: `\section*{ Example }`})

	res, err := svc.RenderTemplate(context.Background(), TemplateRequest{Template: "simple", Jobname: "t"})
	require.NoError(t, err)

	content, err := os.ReadFile(res.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, `\section*{ Example }`, string(content))
}

func TestRenderTemplateExpandsAgainstRealEngine(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "simple"+template.Ext), []byte(`\section*{ {{ title }} }`), 0o600))
	engine, err := template.NewEngine(root)
	require.NoError(t, err)

	svc := NewService(t.TempDir(), &fakeInvoker{available: true}, engine)
	res, err := svc.RenderTemplate(context.Background(), TemplateRequest{
		Template: "simple",
		Context:  map[string]any{"title": "Example"},
		Jobname:  "t",
	})
	require.NoError(t, err)

	content, err := os.ReadFile(res.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, `\section*{ Example }`, string(content))
}

func TestRenderTemplateNotFound(t *testing.T) {
	root := t.TempDir()
	engine, err := template.NewEngine(root)
	require.NoError(t, err)

	inv := &fakeInvoker{available: true}
	svc := NewService(t.TempDir(), inv, engine)

	_, err = svc.RenderTemplate(context.Background(), TemplateRequest{Template: "nope", Compile: true})
	require.ErrorIs(t, err, template.ErrTemplateNotFound)
	// The pipeline must stop before writing or compiling anything.
	assert.Zero(t, inv.calls)
	entries, err := os.ReadDir(svc.WorkDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenderTemplateWithoutEngine(t *testing.T) {
	svc := NewService(t.TempDir(), &fakeInvoker{available: true}, nil)
	_, err := svc.RenderTemplate(context.Background(), TemplateRequest{Template: "x"})
	require.Error(t, err)
}

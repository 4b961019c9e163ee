package latex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// installFakeCompiler writes a shell script named pdflatex into its own
// directory, prepends that directory to PATH, and returns a work directory
// containing source.tex. The script body decides the fake compiler's behavior.
func installFakeCompiler(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler script requires a POSIX shell")
	}

	binDir := t.TempDir()
	scriptPath := filepath.Join(binDir, "pdflatex")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+script), 0o700))
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "source.tex"), []byte("\\relax"), 0o600))
	return workDir
}

// succeedScript counts invocations and emits the expected PDF.
const succeedScript = `for last; do :; done
base="${last%.tex}"
echo run >> "$base.count"
printf 'PDF' > "$base.pdf"
`

func TestCompileMissingBinary(t *testing.T) {
	c := NewCompiler(WithBinary("texmcp-no-such-compiler"))
	require.False(t, c.Available())

	_, err := c.Compile(context.Background(), "/tmp/whatever.tex", 1)
	require.ErrorIs(t, err, ErrCompilerNotFound)
}

func TestCompileSuccess(t *testing.T) {
	workDir := installFakeCompiler(t, succeedScript)
	c := NewCompiler()
	require.True(t, c.Available())

	artifact, err := c.Compile(context.Background(), filepath.Join(workDir, "source.tex"), 1)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(workDir, "source.pdf"), artifact)
}

func TestCompileMultiplePasses(t *testing.T) {
	workDir := installFakeCompiler(t, succeedScript)
	c := NewCompiler()

	_, err := c.Compile(context.Background(), filepath.Join(workDir, "source.tex"), 3)
	require.NoError(t, err)

	count, err := os.ReadFile(filepath.Join(workDir, "source.count"))
	require.NoError(t, err)
	require.Len(t, strings.Fields(string(count)), 3, "expected exactly 3 passes")
}

func TestCompileRunsFloor(t *testing.T) {
	workDir := installFakeCompiler(t, succeedScript)
	c := NewCompiler()

	// Zero or negative runs still compile once.
	_, err := c.Compile(context.Background(), filepath.Join(workDir, "source.tex"), 0)
	require.NoError(t, err)

	count, err := os.ReadFile(filepath.Join(workDir, "source.count"))
	require.NoError(t, err)
	require.Len(t, strings.Fields(string(count)), 1)
}

func TestCompileFailureAbortsRemainingPasses(t *testing.T) {
	workDir := installFakeCompiler(t, `for last; do :; done
base="${last%.tex}"
echo run >> "$base.count"
echo "! Undefined control sequence."
exit 1
`)
	c := NewCompiler()

	_, err := c.Compile(context.Background(), filepath.Join(workDir, "source.tex"), 3)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, 1, ce.Pass)
	require.Contains(t, ce.Log, "Undefined control sequence")

	count, readErr := os.ReadFile(filepath.Join(workDir, "source.count"))
	require.NoError(t, readErr)
	require.Len(t, strings.Fields(string(count)), 1, "failing pass must abort the rest")
}

func TestCompileArtifactMissing(t *testing.T) {
	// Exits zero but never writes the PDF.
	workDir := installFakeCompiler(t, "exit 0\n")
	c := NewCompiler()

	_, err := c.Compile(context.Background(), filepath.Join(workDir, "source.tex"), 1)
	require.ErrorIs(t, err, ErrArtifactMissing)
}

func TestCompileTexInputs(t *testing.T) {
	workDir := installFakeCompiler(t, `for last; do :; done
base="${last%.tex}"
printf '%s' "$TEXINPUTS" > "$base.env"
printf 'PDF' > "$base.pdf"
`)
	c := NewCompiler(WithTexInputs([]string{"/extra/sty"}))

	_, err := c.Compile(context.Background(), filepath.Join(workDir, "source.tex"), 1)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(workDir, "source.env"))
	require.NoError(t, err)

	sep := string(os.PathListSeparator)
	want := strings.Join([]string{"/extra/sty", "", os.TempDir()}, sep)
	require.Equal(t, want, string(got))
}

func TestCompileNoTexInputsLeavesEnvAlone(t *testing.T) {
	workDir := installFakeCompiler(t, `for last; do :; done
base="${last%.tex}"
printf '%s' "${TEXINPUTS:-unset}" > "$base.env"
printf 'PDF' > "$base.pdf"
`)
	c := NewCompiler()

	_, err := c.Compile(context.Background(), filepath.Join(workDir, "source.tex"), 1)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(workDir, "source.env"))
	require.NoError(t, err)
	require.Equal(t, "unset", string(got))
}

func TestCompileErrorUnwraps(t *testing.T) {
	inner := errors.New("exit status 1")
	ce := &CompileError{Source: "x.tex", Pass: 2, Log: "log", Err: inner}
	require.ErrorIs(t, ce, inner)
	require.Contains(t, ce.Error(), "pass 2")
}

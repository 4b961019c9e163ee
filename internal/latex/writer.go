package latex

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/devroopsaha744/TexMCP/internal/logfields"
)

// SourceExt is the extension of persisted LaTeX sources.
const SourceExt = ".tex"

// WriteSource persists tex verbatim as {jobname}.tex under workDir, creating
// the directory if needed and overwriting any previous source with the same
// jobname. It returns the absolute path of the written file.
func WriteSource(workDir, jobname, tex string) (string, error) {
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}

	path, err := filepath.Abs(filepath.Join(workDir, jobname+SourceExt))
	if err != nil {
		return "", fmt.Errorf("resolve source path: %w", err)
	}

	if err := os.WriteFile(path, []byte(tex), 0o600); err != nil {
		return "", fmt.Errorf("write source: %w", err)
	}

	slog.Debug("Wrote LaTeX source", logfields.Jobname(jobname), logfields.Path(path), slog.Int("bytes", len(tex)))
	return path, nil
}

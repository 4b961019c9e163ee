package latex

import (
	"errors"
	"fmt"
)

// Sentinel errors for compiler outcomes. Callers distinguish them via errors.Is
// so the protocol layer can apply its degradation policy to the missing-binary
// case only.
var (
	// ErrCompilerNotFound indicates the compiler binary did not resolve on PATH
	// when the Compiler was constructed. It is returned before any process is
	// spawned, so it is never conflated with a crash of a present binary.
	ErrCompilerNotFound = errors.New("latex compiler not found on PATH")

	// ErrArtifactMissing indicates every pass exited zero but the expected PDF
	// was not on disk afterwards.
	ErrArtifactMissing = errors.New("compiler exited successfully but produced no artifact")
)

// CompileError reports a compiler pass that exited non-zero. Log holds the
// combined stdout/stderr of the failing pass verbatim; subsequent passes are
// never attempted, so the log belongs to exactly one invocation.
type CompileError struct {
	Source string // base name of the source file
	Pass   int    // 1-based pass that failed
	Log    string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s failed on pass %d: %v", e.Source, e.Pass, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

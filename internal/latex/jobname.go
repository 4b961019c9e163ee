package latex

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultJobname is used when sanitization leaves nothing of the input.
const DefaultJobname = "document"

// GeneratedPrefix starts every auto-generated jobname.
const GeneratedPrefix = "doc_"

// SanitizeJobname maps an arbitrary caller-supplied name to a filesystem-safe
// jobname. Every rune outside [A-Za-z0-9_-] becomes an underscore, then leading
// and trailing dots and underscores are stripped. The result is never empty and
// contains no path separators, so jobnames cannot escape the work directory.
func SanitizeJobname(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		return DefaultJobname
	}
	return name
}

// GenerateJobname returns a fresh jobname for callers that did not supply one.
// The suffix is taken from a UUID rather than a small random pool so repeated
// anonymous renders into a shared work directory do not overwrite each other.
func GenerateJobname() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return GeneratedPrefix + id[:8]
}

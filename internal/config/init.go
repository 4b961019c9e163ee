package config

import (
	"fmt"
	"os"
)

const starterConfig = `# TexMCP configuration
work_dir: ./artifacts
template_dir: ./templates

compiler:
  path: pdflatex
  # tex_inputs:
  #   - /usr/local/share/texmf
  # timeout: 2m

server:
  max_concurrent: 2
  max_runs: 10
  # metrics_listen: ":9464"
  retention:
    # max_age: 168h
    interval: 1h
`

// Init writes a starter configuration file. It refuses to overwrite an
// existing file unless force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Package template resolves named LaTeX templates from a directory root and
// expands them with a data context. Templates use pongo2 (Jinja-style) syntax
// and are stored as {name}.tex.tpl files.
package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// Ext is the naming suffix that marks a file as a renderable template.
const Ext = ".tex.tpl"

// ErrTemplateNotFound indicates the requested name does not resolve to a
// stored template. Callers must treat it as a caller error, never as a
// compiler problem.
var ErrTemplateNotFound = errors.New("template not found")

// Engine loads and caches templates from a single root directory.
type Engine struct {
	root string
	set  *pongo2.TemplateSet

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

// NewEngine creates an Engine over root, creating the directory if absent.
func NewEngine(root string) (*Engine, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create template directory: %w", err)
	}

	loader, err := pongo2.NewLocalFileSystemLoader(root)
	if err != nil {
		return nil, fmt.Errorf("create template loader: %w", err)
	}

	return &Engine{
		root:  root,
		set:   pongo2.NewSet("texmcp", loader),
		cache: make(map[string]*pongo2.Template),
	}, nil
}

// Root returns the template root directory.
func (e *Engine) Root() string { return e.root }

// Expand renders the named template with the provided context. The name may be
// given bare ("invoice") or with the full suffix ("invoice.tex.tpl").
func (e *Engine) Expand(name string, context map[string]any) (string, error) {
	tpl, err := e.lookup(name)
	if err != nil {
		return "", err
	}

	out, err := tpl.Execute(pongo2.Context(context))
	if err != nil {
		return "", fmt.Errorf("execute template %q: %w", name, err)
	}
	return out, nil
}

// List returns the sorted file names of all stored templates.
func (e *Engine) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(e.root, "*"+Ext))
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}

// Invalidate drops a cached template so the next Expand reparses it from disk.
func (e *Engine) Invalidate(fileName string) {
	e.mu.Lock()
	delete(e.cache, fileName)
	e.mu.Unlock()
}

func (e *Engine) lookup(name string) (*pongo2.Template, error) {
	fileName := name
	if !strings.HasSuffix(fileName, Ext) {
		fileName += Ext
	}

	// Names must stay inside the root: no separators, no "..".
	if !filepath.IsLocal(fileName) || strings.ContainsAny(fileName, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	e.mu.RLock()
	tpl, ok := e.cache[fileName]
	e.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	if _, err := os.Stat(filepath.Join(e.root, fileName)); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	tpl, err := e.set.FromFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}

	e.mu.Lock()
	e.cache[fileName] = tpl
	e.mu.Unlock()
	return tpl, nil
}

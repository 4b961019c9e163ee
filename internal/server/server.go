// Package server exposes the render pipeline as MCP tools over stdio. The
// missing-compiler degradation policy lives here: it is a protocol-boundary
// decision, not a pipeline one.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/semaphore"

	"github.com/devroopsaha744/TexMCP/internal/latex"
	"github.com/devroopsaha744/TexMCP/internal/logfields"
	"github.com/devroopsaha744/TexMCP/internal/markdown"
	"github.com/devroopsaha744/TexMCP/internal/render"
	"github.com/devroopsaha744/TexMCP/internal/template"
	"github.com/devroopsaha744/TexMCP/internal/version"
)

// Options tunes the tool surface.
type Options struct {
	// MaxConcurrent caps simultaneous render calls so one slow compile does not
	// absorb every caller.
	MaxConcurrent int
	// MaxRuns caps the compiler pass count accepted from clients.
	MaxRuns int
}

// Server wires the render service into an MCP stdio server.
type Server struct {
	svc     *render.Service
	engine  *template.Engine
	mcp     *mcpserver.MCPServer
	sem     *semaphore.Weighted
	workers int
	maxRuns int
}

// New builds the MCP server and registers the render tools.
func New(svc *render.Service, engine *template.Engine, opts Options) *Server {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.MaxRuns <= 0 {
		opts.MaxRuns = 10
	}

	s := &Server{
		svc:     svc,
		engine:  engine,
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		workers: opts.MaxConcurrent,
		maxRuns: opts.MaxRuns,
	}

	s.mcp = mcpserver.NewMCPServer(
		"texmcp",
		version.Version,
		mcpserver.WithInstructions(
			"Generate LaTeX sources and render them to PDF. "+
				"Use render_latex_document for raw LaTeX, render_template_document "+
				"to populate a stored template, or render_markdown_document for Markdown input.",
		),
		mcpserver.WithRecovery(),
	)
	s.registerTools()
	return s
}

// ServeStdio blocks, serving tool calls until stdin closes.
func (s *Server) ServeStdio() error {
	slog.Info("Serving MCP tools on stdio",
		logfields.Workers(s.workers),
		slog.Bool("compiler_available", s.svc.CompilerAvailable()))
	return mcpserver.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("render_latex_document",
		mcp.WithDescription("Write LaTeX to disk and optionally compile it to PDF."),
		mcp.WithString("tex", mcp.Required(), mcp.Description("Raw LaTeX source to render.")),
		mcp.WithString("jobname", mcp.Description("Optional job name; sanitized for the filesystem, generated when omitted.")),
		mcp.WithBoolean("compile_pdf", mcp.DefaultBool(true), mcp.Description("Compile the source to PDF after writing it.")),
		mcp.WithNumber("runs", mcp.DefaultNumber(1), mcp.Description("Compiler passes; use 2+ when cross-references must stabilize.")),
	), s.handleRenderLatex)

	s.mcp.AddTool(mcp.NewTool("render_template_document",
		mcp.WithDescription("Render a stored template with context and optionally compile to PDF."),
		mcp.WithString("template_name", mcp.Required(), mcp.Description("Name of a stored template, with or without the .tex.tpl suffix.")),
		mcp.WithObject("context", mcp.Description("Values substituted into the template.")),
		mcp.WithString("jobname", mcp.Description("Optional job name.")),
		mcp.WithBoolean("compile_pdf", mcp.DefaultBool(true), mcp.Description("Compile the expanded source to PDF.")),
		mcp.WithNumber("runs", mcp.DefaultNumber(1), mcp.Description("Compiler passes.")),
	), s.handleRenderTemplate)

	s.mcp.AddTool(mcp.NewTool("render_markdown_document",
		mcp.WithDescription("Convert Markdown to a standalone LaTeX document and optionally compile to PDF."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown body to convert and render.")),
		mcp.WithString("jobname", mcp.Description("Optional job name.")),
		mcp.WithBoolean("compile_pdf", mcp.DefaultBool(true), mcp.Description("Compile the converted source to PDF.")),
		mcp.WithNumber("runs", mcp.DefaultNumber(1), mcp.Description("Compiler passes.")),
	), s.handleRenderMarkdown)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List available LaTeX templates."),
	), s.handleListTemplates)
}

func (s *Server) handleRenderLatex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tex, err := req.RequireString("tex")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, advisory, err := s.renderSource(ctx, render.Request{
		Source:  tex,
		Jobname: req.GetString("jobname", ""),
		Compile: req.GetBool("compile_pdf", true),
		Runs:    s.clampRuns(req.GetInt("runs", 1)),
	})
	if err != nil {
		return s.toolError(err), nil
	}

	summary := "LaTeX rendered successfully."
	if advisory != "" {
		summary = advisory
	}
	return s.toolResult(summary, res), nil
}

func (s *Server) handleRenderTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("template_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var tplContext map[string]any
	if raw, ok := req.GetArguments()["context"]; ok {
		tplContext, ok = raw.(map[string]any)
		if !ok {
			return mcp.NewToolResultError("context must be an object"), nil
		}
	}

	tReq := render.TemplateRequest{
		Template: name,
		Context:  tplContext,
		Jobname:  req.GetString("jobname", ""),
		Compile:  req.GetBool("compile_pdf", true),
		Runs:     s.clampRuns(req.GetInt("runs", 1)),
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, rErr := s.svc.RenderTemplate(ctx, tReq)
	s.sem.Release(1)

	advisory := ""
	if rErr != nil {
		// Template resolution failures surface immediately; only a missing
		// compiler earns the source-only retry.
		if !tReq.Compile || !errors.Is(rErr, latex.ErrCompilerNotFound) {
			return s.toolError(rErr), nil
		}
		slog.Warn("LaTeX compiler unavailable; returning template source only", logfields.Template(name))
		tReq.Compile = false
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, rErr = s.svc.RenderTemplate(ctx, tReq)
		s.sem.Release(1)
		if rErr != nil {
			return s.toolError(rErr), nil
		}
		advisory = "Template rendered, but the LaTeX compiler was unavailable."
	}

	summary := "Template rendered successfully."
	if advisory != "" {
		summary = advisory
	}
	return s.toolResult(summary, res), nil
}

func (s *Server) handleRenderMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tex, err := markdown.ToDocument([]byte(body))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, advisory, rErr := s.renderSource(ctx, render.Request{
		Source:  tex,
		Jobname: req.GetString("jobname", ""),
		Compile: req.GetBool("compile_pdf", true),
		Runs:    s.clampRuns(req.GetInt("runs", 1)),
	})
	if rErr != nil {
		return s.toolError(rErr), nil
	}

	summary := "Markdown rendered successfully."
	if advisory != "" {
		summary = advisory
	}
	return s.toolResult(summary, res), nil
}

func (s *Server) handleListTemplates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.engine.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("No templates available."), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

// renderSource dispatches one render through the bounded pool and applies the
// degradation policy: a missing compiler downgrades to a source-only result
// with an advisory instead of failing the call.
func (s *Server) renderSource(ctx context.Context, req render.Request) (render.Result, string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return render.Result{}, "", err
	}
	res, err := s.svc.RenderSource(ctx, req)
	s.sem.Release(1)

	if err == nil {
		return res, "", nil
	}
	if !req.Compile || !errors.Is(err, latex.ErrCompilerNotFound) {
		return render.Result{}, "", err
	}

	slog.Warn("LaTeX compiler unavailable; returning source only", logfields.Jobname(req.Jobname))
	req.Compile = false
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return render.Result{}, "", err
	}
	res, err = s.svc.RenderSource(ctx, req)
	s.sem.Release(1)
	if err != nil {
		return render.Result{}, "", err
	}
	return res, "LaTeX saved, but the compiler was unavailable.", nil
}

func (s *Server) clampRuns(runs int) int {
	if runs < 1 {
		return 1
	}
	if runs > s.maxRuns {
		return s.maxRuns
	}
	return runs
}

type renderPayload struct {
	Jobname string  `json:"jobname"`
	TexPath string  `json:"tex_path"`
	PdfPath *string `json:"pdf_path"`
}

// toolResult encodes the summary plus the structured payload callers script against.
func (s *Server) toolResult(summary string, res render.Result) *mcp.CallToolResult {
	payload := renderPayload{Jobname: res.Jobname, TexPath: res.SourcePath}
	if res.ArtifactPath != "" {
		payload.PdfPath = &res.ArtifactPath
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(summary + "\n" + string(data))
}

func (s *Server) toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, template.ErrTemplateNotFound):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, latex.ErrArtifactMissing):
		return mcp.NewToolResultError(err.Error())
	default:
		var ce *latex.CompileError
		if errors.As(err, &ce) {
			// Surface the compiler log verbatim so callers can debug their source.
			return mcp.NewToolResultError(fmt.Sprintf("%v\n%s", ce, ce.Log))
		}
		return mcp.NewToolResultError(err.Error())
	}
}

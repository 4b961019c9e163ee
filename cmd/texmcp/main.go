package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/devroopsaha744/TexMCP/internal/config"
	"github.com/devroopsaha744/TexMCP/internal/latex"
	"github.com/devroopsaha744/TexMCP/internal/logfields"
	"github.com/devroopsaha744/TexMCP/internal/metrics"
	"github.com/devroopsaha744/TexMCP/internal/render"
	"github.com/devroopsaha744/TexMCP/internal/server"
	"github.com/devroopsaha744/TexMCP/internal/template"
	"github.com/devroopsaha744/TexMCP/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"texmcp.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" help:"Serve render tools over MCP stdio"`

	Render struct {
		File      string `arg:"" help:"LaTeX source file to render"`
		Jobname   string `short:"j" help:"Job name (defaults to a sanitized form of the file name)"`
		NoCompile bool   `help:"Write the source into the work directory without compiling"`
		Runs      int    `short:"r" help:"Compiler passes" default:"1"`
	} `cmd:"" help:"Render a LaTeX file from disk"`

	Templates struct{} `cmd:"" help:"List available templates"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	kctx := kong.Parse(&CLI)

	// Logs go to stderr: in serve mode stdout carries the MCP protocol.
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	switch kctx.Command() {
	case "serve":
		err = runServe()
	case "render <file>":
		err = runRender()
	case "templates":
		err = runTemplates()
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	case "version":
		fmt.Printf("texmcp %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}
	if err != nil {
		slog.Error("Command failed", logfields.Error(err))
		os.Exit(1)
	}
}

// buildPipeline assembles the render service and template engine from config.
func buildPipeline(cfg *config.Config) (*render.Service, *template.Engine, error) {
	engine, err := template.NewEngine(cfg.TemplateDir)
	if err != nil {
		return nil, nil, err
	}

	compiler := latex.NewCompiler(
		latex.WithBinary(cfg.Compiler.Path),
		latex.WithTexInputs(cfg.Compiler.TexInputs),
		latex.WithTimeout(cfg.Compiler.TimeoutDuration()),
	)
	if !compiler.Available() {
		slog.Warn("LaTeX compiler not found on PATH; renders will degrade to source-only",
			logfields.Binary(cfg.Compiler.Path))
	}

	return render.NewService(cfg.WorkDir, compiler, engine), engine, nil
}

func runServe() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	svc, engine, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Optional Prometheus exposition.
	if addr := cfg.Server.MetricsListen; addr != "" {
		registry := prom.NewRegistry()
		svc.SetRecorder(metrics.NewPrometheusRecorder(registry))

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(registry))
		metricsSrv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("Serving metrics", logfields.Addr(addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics listener failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	// Optional work-directory retention.
	if maxAge := cfg.Server.Retention.MaxAgeDuration(); maxAge > 0 {
		janitor, err := server.NewJanitor(cfg.WorkDir, maxAge, cfg.Server.Retention.IntervalDuration())
		if err != nil {
			return err
		}
		janitor.Start()
		defer func() {
			if err := janitor.Stop(); err != nil {
				slog.Warn("Failed to stop janitor", logfields.Error(err))
			}
		}()
	}

	// Keep template edits visible to a long-running server.
	go func() {
		if err := engine.Watch(ctx); err != nil {
			slog.Warn("Template watcher stopped", logfields.Error(err))
		}
	}()

	srv := server.New(svc, engine, server.Options{
		MaxConcurrent: cfg.Server.MaxConcurrent,
		MaxRuns:       cfg.Server.MaxRuns,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ServeStdio()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
		return nil
	}
}

func runRender() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	svc, _, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(CLI.Render.File)
	if err != nil {
		return fmt.Errorf("read source file: %w", err)
	}

	jobname := CLI.Render.Jobname
	if jobname == "" {
		jobname = strings.TrimSuffix(filepath.Base(CLI.Render.File), latex.SourceExt)
	}

	req := render.Request{
		Source:  string(source),
		Jobname: latex.SanitizeJobname(jobname),
		Compile: !CLI.Render.NoCompile,
		Runs:    CLI.Render.Runs,
	}

	res, err := svc.RenderSource(context.Background(), req)
	if err != nil && req.Compile && errors.Is(err, latex.ErrCompilerNotFound) {
		// Same degradation the protocol layer applies: missing toolchain is an
		// environment problem, not a reason to fail the render.
		slog.Warn("LaTeX compiler unavailable; writing source only", logfields.Binary(cfg.Compiler.Path))
		req.Compile = false
		res, err = svc.RenderSource(context.Background(), req)
	}
	if err != nil {
		var ce *latex.CompileError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.Log)
		}
		return err
	}

	fmt.Println(res.SourcePath)
	if res.ArtifactPath != "" {
		fmt.Println(res.ArtifactPath)
	}
	return nil
}

func runTemplates() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	engine, err := template.NewEngine(cfg.TemplateDir)
	if err != nil {
		return err
	}

	names, err := engine.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

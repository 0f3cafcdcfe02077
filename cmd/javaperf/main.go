package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func newApp() *cli.App {
	return &cli.App{
		Name:     "javaperf",
		Usage:    "Static analysis for Java performance and concurrency anti-patterns",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `javaperf parses Java sources with tree-sitter, builds a project-wide
symbol table and call graph, and reports N+1 queries, lock misuse,
ThreadLocal leaks, blocking reactive calls and similar problems.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"JAVAPERF_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, json, yaml, toon (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the index cache",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging on stderr",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level on stderr: debug, info, warn, error",
				EnvVars: []string{"JAVAPERF_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Log as JSON",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Write CPU and heap profiles to <prefix>.cpu.pprof and <prefix>.mem.pprof",
			},
		},
		Before: startProfile,
		After:  stopProfile,
		Commands: []*cli.Command{
			scanCmd(),
			analyzeCmd(),
			rulesCmd(),
			watchCmd(),
			configCmd(),
		},
		// Exit codes are decided in main.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func startProfile(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}
	cpuFile, err := os.Create(prefix + ".cpu.pprof")
	if err != nil {
		return fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		cpuFile.Close()
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	c.App.Metadata["pprofCPU"] = cpuFile
	return nil
}

func stopProfile(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}
	pprof.StopCPUProfile()
	if cpuFile, ok := c.App.Metadata["pprofCPU"].(*os.File); ok {
		cpuFile.Close()
		color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "CPU profile written to %s.cpu.pprof\n", prefix)
	}

	memFile, err := os.Create(prefix + ".mem.pprof")
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer memFile.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "Memory profile written to %s.mem.pprof\n", prefix)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp().RunContext(ctx, os.Args)
	if err == nil {
		return
	}

	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		if msg := exit.Error(); msg != "" {
			color.Yellow("%s", msg)
		}
		os.Exit(exit.ExitCode())
	}
	color.Red("Error: %v", err)
	os.Exit(1)
}

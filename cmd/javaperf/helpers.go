package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/javaperf/internal/cache"
	"github.com/panbanda/javaperf/internal/logging"
	"github.com/panbanda/javaperf/internal/output"
	"github.com/panbanda/javaperf/pkg/config"
)

// getPath returns the first positional argument, defaulting to ".".
func getPath(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

// loadConfig loads --config when given, otherwise searches dir.
func loadConfig(c *cli.Context, dir string) (*config.Config, error) {
	opts := []config.LoadOption{config.WithDir(dir)}
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

func newLogger(c *cli.Context) *slog.Logger {
	return logging.New(c.App.ErrWriter, logging.Options{
		Level:   c.String("log-level"),
		Verbose: c.Bool("verbose"),
		JSON:    c.Bool("log-json"),
	})
}

// openCache returns nil when caching is off. Relative cache dirs live under
// the project root.
func openCache(c *cli.Context, cfg *config.Config, root string) (*cache.Cache, error) {
	if c.Bool("no-cache") || !cfg.Cache.Enabled {
		return nil, nil
	}
	dir := cfg.Cache.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	cc, err := cache.New(dir, cfg.Cache.TTL, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return cc, nil
}

// newFormatter honors --format over the configured format, and --output
// over the app writer.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := cfg.Output.Format
	if c.IsSet("format") {
		format = c.String("format")
	}
	colored := cfg.Output.Color && !color.NoColor
	if path := c.String("output"); path != "" {
		return output.NewFormatter(output.ParseFormat(format), path, false)
	}
	return output.NewFormatterTo(c.App.Writer, output.ParseFormat(format), colored), nil
}

func stderr(c *cli.Context) io.Writer {
	return c.App.ErrWriter
}

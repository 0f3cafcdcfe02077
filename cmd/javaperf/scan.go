package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/javaperf/internal/output"
	"github.com/panbanda/javaperf/internal/progress"
	"github.com/panbanda/javaperf/pkg/config"
	"github.com/panbanda/javaperf/pkg/engine"
	"github.com/panbanda/javaperf/pkg/models"
)

// exitIssuesFound is returned when --fail-on matches.
const exitIssuesFound = 2

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Aliases:   []string{"s"},
		Usage:     "Scan a Java project for performance and concurrency issues",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "List only P0 issues",
			},
			&cli.IntFlag{
				Name:  "max-secondary",
				Usage: "Maximum P1 issues listed in full mode (default from config)",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Parallel workers (default 2x CPUs)",
			},
			&cli.IntFlag{
				Name:  "depth",
				Usage: "Call-graph trace depth (default from config)",
			},
			&cli.StringFlag{
				Name:  "fail-on",
				Value: "none",
				Usage: "Exit with status 2 when issues of this severity or worse are found: P0, P1, none",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide progress bars",
			},
		},
		Action: runScanCmd,
	}
}

func runScanCmd(c *cli.Context) error {
	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	failOn, err := parseFailOn(c.String("fail-on"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c, root)
	if err != nil {
		return err
	}
	report, err := scanProject(c, cfg, root, !c.Bool("no-progress"))
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	if err := formatter.Output(output.ReportView{Report: report}); err != nil {
		return err
	}

	return checkFailOn(report.Summary, failOn)
}

// scanProject runs one full scan with the CLI's engine options.
func scanProject(c *cli.Context, cfg *config.Config, root string, showProgress bool) (*models.Report, error) {
	logger := newLogger(c)
	cc, err := openCache(c, cfg, root)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithLogger(logger),
		engine.WithCache(cc),
		engine.WithWorkers(c.Int("workers")),
		engine.WithTraceDepth(c.Int("depth")),
	}
	if showProgress {
		opts = append(opts, engine.WithProgress(progress.NewPhasesTo(stderr(c))))
	}
	eng, err := engine.New(opts...)
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	compact := cfg.Scan.Compact || c.Bool("compact")
	maxSecondary := cfg.Scan.MaxSecondary
	if c.IsSet("max-secondary") {
		maxSecondary = c.Int("max-secondary")
	}
	return eng.Scan(c.Context, root, compact, maxSecondary)
}

// parseFailOn returns "" for none.
func parseFailOn(s string) (models.Severity, error) {
	if strings.EqualFold(s, "none") || s == "" {
		return "", nil
	}
	sev, ok := models.ParseSeverity(s)
	if !ok {
		return "", fmt.Errorf("--fail-on must be P0, P1 or none (got %q)", s)
	}
	return sev, nil
}

func checkFailOn(s models.Summary, failOn models.Severity) error {
	switch failOn {
	case models.SeverityP0:
		if s.P0 > 0 {
			return cli.Exit(fmt.Sprintf("%d P0 issue(s) found", s.P0), exitIssuesFound)
		}
	case models.SeverityP1:
		if s.P0+s.P1 > 0 {
			return cli.Exit(fmt.Sprintf("%d issue(s) found", s.P0+s.P1), exitIssuesFound)
		}
	}
	return nil
}

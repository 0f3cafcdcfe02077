package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/javaperf/internal/output"
	"github.com/panbanda/javaperf/pkg/engine"
	"github.com/panbanda/javaperf/pkg/models"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Analyze individual Java files without project context",
		ArgsUsage: "<file.java>...",
		Description: `Each file is analyzed on its own: no symbol table and no call graph,
so N+1 findings rely on naming conventions and report low confidence.
Use scan for project-wide analysis.`,
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return cli.Exit("analyze needs at least one file", 1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c, cwd)
	if err != nil {
		return err
	}
	eng, err := engine.New(engine.WithConfig(cfg), engine.WithLogger(newLogger(c)))
	if err != nil {
		return err
	}
	defer eng.Close()

	var issues []models.Issue
	for _, path := range c.Args().Slice() {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		found, err := eng.ScanOne(src, filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("failed to analyze %s: %w", path, err)
		}
		issues = append(issues, found...)
	}
	models.SortIssues(issues)

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.IssuesView(issues))
}

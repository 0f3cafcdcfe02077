package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/javaperf/internal/output"
	"github.com/panbanda/javaperf/internal/progress"
	"github.com/panbanda/javaperf/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Rescan the project whenever Java files change",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before rescanning",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "List only P0 issues",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	cfg, err := loadConfig(c, root)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	rescan := func() {
		spinner := progress.NewSpinner(stderr(c), "Scanning...")
		report, err := scanProject(c, cfg, root, false)
		if err != nil {
			spinner.FinishError(err)
			return
		}
		spinner.FinishSuccess()
		if err := formatter.Output(output.ReportView{Report: report}); err != nil {
			formatter.Error("Output failed: %v", err)
		}
	}

	watcher, err := watch.NewWatcher(root, cfg, c.Duration("debounce"), newLogger(c))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	watcher.SetCallback(func(_ context.Context, changed []string) {
		formatter.Info("\nChanged: %s", strings.Join(changed, ", "))
		fmt.Fprintln(formatter.Writer(), strings.Repeat("-", 40))
		rescan()
	})

	rescan()
	color.New(color.FgCyan).Fprintf(stderr(c), "Watching %s for changes. Press Ctrl+C to stop.\n", root)

	err = watcher.Start(c.Context)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr(c), "\nStopping watch...")
		return nil
	}
	return err
}

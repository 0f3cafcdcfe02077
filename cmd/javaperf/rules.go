package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/javaperf/internal/output"
	"github.com/panbanda/javaperf/pkg/engine"
	"github.com/panbanda/javaperf/pkg/rules"
)

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "List the built-in rules by category",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Only list rules in this category",
			},
			&cli.BoolFlag{
				Name:  "effective",
				Usage: "Apply the config's enabled, disabled and severity settings",
			},
		},
		Action: runRulesCmd,
	}
}

func runRulesCmd(c *cli.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c, cwd)
	if err != nil {
		return err
	}

	reg := rules.Default()
	if c.Bool("effective") {
		eng, err := engine.New(engine.WithConfig(cfg), engine.WithLogger(newLogger(c)))
		if err != nil {
			return err
		}
		reg = rules.NewRegistry(eng.Rules())
		eng.Close()
	}

	groups := reg.ByCategory()
	if name := c.String("category"); name != "" {
		cat := rules.Category(strings.ToLower(name))
		if _, ok := groups[cat]; !ok {
			return fmt.Errorf("unknown category %q", name)
		}
		groups = map[rules.Category][]*rules.Rule{cat: groups[cat]}
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.RulesView{Groups: groups})
}

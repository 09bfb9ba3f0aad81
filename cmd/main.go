package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "wellai",
		Usage: "WellAI - medical report analyzer and medical chatbot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				Sources: cli.EnvVars("WELLAI_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log at debug level with a console encoder",
			},
		},
		Commands: []*cli.Command{
			cmdServe,
			cmdChat,
			cmdIngest,
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

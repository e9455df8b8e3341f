// Command macpepdb is the thin CLI shim around the database, statistics,
// and precursor-range packages, per spec.md §6. Argument parsing itself is
// out of the core's scope; this file and its neighbors are the
// collaborator layer the spec describes.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

func main() {
	run(os.Args)
}

func run(args []string) {
	app := application()
	if err := app.Run(args); err != nil {
		color.Red("macpepdb: %v", err)
		log.Fatal(err)
	}
}

func application() *cli.App {
	return &cli.App{
		Name:  "macpepdb",
		Usage: "Build and query a partitioned tryptic peptide catalog.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to a YAML configuration file.",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored terminal output.",
			},
		},
		Before: func(c *cli.Context) error {
			color.NoColor = c.Bool("no-color")
			return nil
		},
		Commands: []*cli.Command{
			databaseCommand(),
			precursorRangeCommand(),
			statisticsCommand(),
			taxonomyCommand(),
			serveCommand(),
		},
	}
}

func bannerf(format string, args ...interface{}) {
	fmt.Fprintln(color.Output, color.CyanString(format, args...))
}

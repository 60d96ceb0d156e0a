package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/serialforbreakfast/tsds/internal/app/publish"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/configurator"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/extractor"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/renderer"
	"github.com/urfave/cli/v2"
)

const (
	defaultInput     string = "forImporting/Episodes.html"
	defaultSummaryMD string = ""
)

func main() {
	app := &cli.App{
		Name:  "tsds",
		Usage: "Build the Too Scary; Didn't Stream site: extract episodes, fetch streaming availability, cache posters, render and publish.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   configurator.DefaultSiteFile,
				Usage:   "Site configuration file, optional unless given explicitly",
			},
			&cli.StringFlag{
				Name:  "env",
				Value: configurator.DefaultDotFile,
				Usage: "Dotfile with TMDB_API_KEY and WATCHMODE_API_KEY, the environment takes precedence",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log at debug level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "Extract episodes from an HTML export of the episode list and prepend them to the catalog",
				Action: extract,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Value:   defaultInput,
						Usage:   "HTML export to read",
					},
					&cli.IntFlag{
						Name:  "start",
						Value: extractor.DefaultStartNumber,
						Usage: "Episode number of the first (newest) title in the export",
					},
				},
			},
			{
				Name:   "fix",
				Usage:  "Apply the title and year correction table to the catalog",
				Action: fix,
			},
			{
				Name:   "clean",
				Usage:  "De-duplicate, normalise, sort oldest to newest and renumber the catalog",
				Action: clean,
			},
			{
				Name:   "fetch",
				Usage:  "Fetch streaming availability for every movie not fetched within the cache window",
				Action: fetch,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Refetch every movie regardless of the cache window",
					},
				},
			},
			{
				Name:   "posters",
				Usage:  "Download missing TMDB posters, expire old ones and write the poster manifest",
				Action: posters,
			},
			{
				Name:   "render",
				Usage:  "Render the static site page",
				Action: render,
				Flags: []cli.Flag{
					layoutFlag(),
				},
			},
			{
				Name:   "build",
				Usage:  "Run fix, clean, fetch, posters and render in sequence",
				Action: build,
				Flags: []cli.Flag{
					layoutFlag(),
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Refetch every movie regardless of the cache window",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show the cache state of every movie",
				Action: status,
			},
			{
				Name:   "publish",
				Usage:  "Upload the output directory to the configured S3 bucket",
				Action: publishSite,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Do not ask whether to upload, just do it",
					},
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"n"},
						Usage:   "Show the diff of " + publish.IndexFile + " and answer no",
					},
				},
			},
			{
				Name:   "pr-summary",
				Usage:  "Summarise working tree changes as Markdown for a pull request",
				Action: prSummary,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "template",
						Usage: "Print the full pull request template instead",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   defaultSummaryMD,
						Usage:   "Write to this file instead of stdout",
					},
				},
			},
			{
				Name:  "setup",
				Usage: "Interactive setup wizards",
				Subcommands: []*cli.Command{
					{
						Name:   "keys",
						Usage:  "Prompt for the API keys, validate them and write them to the dotfile",
						Action: setupKeys,
					},
					{
						Name:   "environments",
						Usage:  "Write the staging and production deployment environment files",
						Action: setupEnvironments,
					},
					{
						Name:   "config",
						Usage:  "Write the effective configuration to the site configuration file",
						Action: setupConfig,
					},
				},
			},
		},
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		log.Fatalf("ERROR: %v", err)
	}
}

func layoutFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "layout",
		Aliases: []string{"l"},
		Usage:   "Page layout, " + renderer.LayoutBrowser + " or " + renderer.LayoutEpisodes + " (defaults to the configured layout)",
	}
}

// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "debug",
		Usage: "Log at debug level",
	}
}

// serveCommand runs the HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the curation HTTP service",
		Flags: []cli.Flag{
			configFlag(),
			debugFlag(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// curateCommand runs the pipeline once from the terminal
func curateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "curate",
		Usage: "Curate a playlist once and print the result",
		Flags: []cli.Flag{
			configFlag(),
			debugFlag(),
			&cli.StringFlag{
				Name:     "token",
				Aliases:  []string{"t"},
				Usage:    "Spotify user access token",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "playlist",
				Usage:    "Source playlist ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "genre",
				Usage: "Comma-separated genre substrings, e.g. house,disco",
			},
			&cli.StringFlag{
				Name:  "mood",
				Usage: "Comma-separated mood names, e.g. happy,chill",
			},
			&cli.StringFlag{
				Name:  "bpm",
				Usage: "Tempo range, e.g. 120-130",
			},
			&cli.IntFlag{
				Name:  "length",
				Usage: "Target length in minutes",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum candidates sent to the model (50-400)",
			},
			&cli.BoolFlag{
				Name:  "no-create",
				Usage: "Skip creating the new playlist",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the result to a file instead of stdout",
			},
		},
		Action: r.Curate,
	}
}

// setupCommand prepares local configuration and storage
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create configuration and session storage",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "db",
				Usage:  "Create the sqlite session database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand reports credential state
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Check app credentials and the saved user token",
				Action: r.AuthStatus,
			},
		},
	}
}

// spotifyCommand handles Spotify account operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "playlists",
				Usage: "List Spotify playlists",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:  "top",
				Usage: "List your top tracks",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of tracks",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "range",
						Usage: "Time range: short_term, medium_term or long_term",
						Value: "medium_term",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SpotifyTopTracks,
			},
			{
				Name:      "create-playlist",
				Usage:     "Create a playlist from track ids",
				ArgsUsage: "<track-id...>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Playlist name",
					},
				},
				Action: r.SpotifyCreatePlaylist,
			},
		},
	}
}

// similarCommand runs the recommendation engine for one seed track
func similarCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "similar",
		Aliases: []string{"sim"},
		Usage:   "Find tracks similar to a seed track (id, URI or open.spotify.com link)",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "track",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown or csv",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the result to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Write the result to similar_<id>.<ext>",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Hide progress output",
			},
		},
		Action: r.Similar,
	}
}

// searchCommand runs a free-text track search
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search for tracks to use as a seed",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 10,
			},
			&cli.StringFlag{
				Name:  "market",
				Usage: "Market code (defaults to recommend.default_market)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// favoritesCommand manages the favorites playlist
func favoritesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "favorites",
		Aliases: []string{"fav"},
		Usage:   "Manage your favorites playlist",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List favorite tracks",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.FavoritesList,
			},
			{
				Name:  "add",
				Usage: "Add a track to favorites",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Action: r.FavoritesAdd,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove a track from favorites",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Action: r.FavoritesRemove,
			},
		},
	}
}

// serveCommand runs the JSON API for the web frontend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
			&cli.DurationFlag{
				Name:  "session-ttl",
				Usage: "Purge sessions idle for longer than this at startup (0 keeps all)",
				Value: 30 * 24 * time.Hour,
			},
		},
		Action: r.Serve,
	}
}

// sessionsCommand handles stored browser sessions
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Inspect and prune stored browser sessions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored sessions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "authenticated",
						Usage: "Only show logged-in sessions",
					},
				},
				Action: r.SessionsList,
			},
			{
				Name:  "purge",
				Usage: "Delete logged-out sessions and sessions idle for longer than --older-than",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Idle time after which a session is purged",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: r.SessionsPurge,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive recommendations.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for finding similar tracks",
		Action:  r.TUI,
	}
}

package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songsim/internal/services"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/desertthunder/songsim/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
//
// Favorites are enabled only when a user token has been saved by `spotify auth`.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/songsim-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	if _, ok := r.clients.(*services.Factory); ok {
		r.clients = newFactory(r.config, fileLogger)
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	deps := ui.Deps{
		Engine: engine,
		Market: r.config.Recommend.DefaultMarket,
	}

	if catalog, err := r.searchCatalog(ctx); err == nil {
		deps.Catalog = catalog
	}

	if r.config.Credentials.Spotify.Token() != nil {
		if manager, err := r.favorites(ctx); err == nil {
			deps.Favorites = manager
		} else {
			r.logger.Warn("favorites disabled", "error", err)
		}
	}

	p := tea.NewProgram(ui.NewModel(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

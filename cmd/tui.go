package main

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jammming/internal/auth"
	"github.com/desertthunder/jammming/internal/shared"
	"github.com/desertthunder/jammming/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playlist builder.
//
// One callback listener serves the whole session so consent can happen mid-session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if r.navigator == nil {
		// the model shows the consent URL itself
		r.navigator = auth.NewBrowserNavigator(io.Discard, r.logger)
	}

	if err := r.connect(); err != nil {
		return err
	}

	srv, handler, err := r.listen()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	model := ui.NewModel(ctx, ui.Options{
		Service:   r.spotify,
		Tokens:    r.controller,
		Callbacks: handler.Results(),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

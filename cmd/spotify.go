package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/jammming/internal/formatter"
	"github.com/desertthunder/jammming/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search looks up tracks matching the joined positional arguments.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrInvalidInput)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if _, err := r.authorize(ctx); err != nil {
		return err
	}

	tracks := r.spotify.Search(ctx, query)
	title := fmt.Sprintf("Results for %q", query)

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, format, title, tracks); err != nil {
			return err
		}
		r.writePlain("✓ Wrote %d tracks to %s\n", len(tracks), path)
		return nil
	}

	return formatter.Write(r.output, format, title, tracks)
}

// Save creates a playlist from the --uri flags.
func (r *Runner) Save(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.String("name"))
	uris := make([]string, 0, len(cmd.StringSlice("uri")))
	for _, uri := range cmd.StringSlice("uri") {
		if uri = strings.TrimSpace(uri); uri != "" {
			uris = append(uris, uri)
		}
	}

	if name == "" || len(uris) == 0 {
		r.writePlain("Nothing to save: a playlist name and at least one --uri are required\n")
		return nil
	}

	if _, err := r.authorize(ctx); err != nil {
		return err
	}

	ok, err := r.spotify.SavePlaylist(ctx, name, uris)
	if err != nil {
		return fmt.Errorf("failed to save playlist: %w", err)
	}
	if !ok {
		r.writePlain("Nothing to save\n")
		return nil
	}

	r.writePlain("✓ Saved %q with %d tracks\n", name, len(uris))
	return nil
}

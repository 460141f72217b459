package auth

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jammming/internal/shared"
)

// Navigator sends the user to the consent screen.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// BrowserNavigator opens the system browser and falls back to printing the URL.
type BrowserNavigator struct {
	out    io.Writer
	logger *log.Logger
	open   func(string) error
}

// NewBrowserNavigator creates a [BrowserNavigator] writing fallback instructions to out.
func NewBrowserNavigator(out io.Writer, logger *log.Logger) *BrowserNavigator {
	return &BrowserNavigator{out: out, logger: logger, open: shared.OpenBrowser}
}

func (b *BrowserNavigator) Navigate(ctx context.Context, url string) error {
	b.logger.Debug("authorize URL", "url", url)

	fmt.Fprintf(b.out, "→ Opening browser for Spotify authorization...\n")
	if err := b.open(url); err != nil {
		b.logger.Warnf("failed to open browser automatically %v", err)
		fmt.Fprintf(b.out, "⚠ Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", url)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

type statusReport struct {
	SessionID       string `json:"session_id"`
	Storage         string `json:"storage"`
	HasAccessToken  bool   `json:"has_access_token"`
	HasRefreshToken bool   `json:"has_refresh_token"`
	ExpiresIn       int64  `json:"expires_in"`
}

// AuthLogin runs the authorization flow and reports the resulting session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.authorize(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Authorization successful\n")
	return r.printStatus(false)
}

// AuthStatus shows whether the session holds credentials. Token values are never printed.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}
	return r.printStatus(cmd.Bool("json"))
}

func (r *Runner) printStatus(asJSON bool) error {
	status, err := r.controller.Status()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	storage := r.config.Session.Storage
	if storage == "" {
		storage = "memory"
	}

	report := statusReport{
		SessionID:       r.sessionID,
		Storage:         storage,
		HasAccessToken:  status.HasAccessToken,
		HasRefreshToken: status.HasRefreshToken,
		ExpiresIn:       int64(status.ExpiresIn / time.Second),
	}

	if asJSON {
		return r.writeJSON(report, true)
	}

	r.writePlainHeader("Session")
	r.writePlain("ID:            %s\n", report.SessionID)
	r.writePlain("Storage:       %s\n", report.Storage)
	r.writePlain("Access token:  %s\n", presence(report.HasAccessToken))
	r.writePlain("Refresh token: %s\n", presence(report.HasRefreshToken))
	if report.HasAccessToken {
		r.writePlain("Expires in:    %s\n", status.ExpiresIn.Round(time.Second))
	}
	return nil
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "absent"
}

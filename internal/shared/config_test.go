package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Setenv(ClientIDEnv, "")

	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("expected default redirect URI, got %s", config.Credentials.Spotify.RedirectURI)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if len(config.Credentials.Spotify.Scopes) != 1 || config.Credentials.Spotify.Scopes[0] != "playlist-modify-public" {
			t.Errorf("expected playlist-modify-public scope, got %v", config.Credentials.Spotify.Scopes)
		}
		if config.Playlist.Description != "Created with Jammming" {
			t.Errorf("unexpected playlist description %q", config.Playlist.Description)
		}
		if !config.Playlist.Public {
			t.Error("expected playlists to default to public")
		}
		if config.Session.Storage != "memory" {
			t.Errorf("expected memory session storage, got %s", config.Session.Storage)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Spotify.TokenURL != DefaultConfig().Spotify.TokenURL {
			t.Errorf("created config token URL doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[credentials.spotify]
client_id = "test_client_id"
redirect_uri = "http://localhost:4000/cb"

[session]
storage = "sqlite"

[client]
rate_limit = 0.0
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Session.Storage != "sqlite" {
			t.Errorf("expected sqlite storage, got %s", config.Session.Storage)
		}
		if config.Spotify.APIURL != "https://api.spotify.com/v1" {
			t.Errorf("expected api_url to keep its default, got %s", config.Spotify.APIURL)
		}
		if config.CallbackAddr() != "localhost:4000" {
			t.Errorf("expected callback addr localhost:4000, got %s", config.CallbackAddr())
		}
		if config.CallbackPath() != "/cb" {
			t.Errorf("expected callback path /cb, got %s", config.CallbackPath())
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Env Override", func(t *testing.T) {
		t.Setenv(ClientIDEnv, "from_env")

		config := DefaultConfig()
		if config.Credentials.Spotify.ClientID != "from_env" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tt := []struct {
			name    string
			mutate  func(*Config)
			wantErr error
		}{
			{name: "placeholder client id", mutate: func(c *Config) {}, wantErr: ErrMissingCredentials},
			{name: "valid", mutate: func(c *Config) { c.Credentials.Spotify.ClientID = "abc" }},
			{
				name: "relative redirect",
				mutate: func(c *Config) {
					c.Credentials.Spotify.ClientID = "abc"
					c.Credentials.Spotify.RedirectURI = "/callback"
				},
				wantErr: ErrInvalidConfig,
			},
			{
				name: "no scopes",
				mutate: func(c *Config) {
					c.Credentials.Spotify.ClientID = "abc"
					c.Credentials.Spotify.Scopes = nil
				},
				wantErr: ErrInvalidConfig,
			},
			{
				name: "unknown storage",
				mutate: func(c *Config) {
					c.Credentials.Spotify.ClientID = "abc"
					c.Session.Storage = "redis"
				},
				wantErr: ErrInvalidConfig,
			},
			{
				name: "negative rate limit",
				mutate: func(c *Config) {
					c.Credentials.Spotify.ClientID = "abc"
					c.Client.RateLimit = -1
				},
				wantErr: ErrInvalidConfig,
			},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				config := DefaultConfig()
				tc.mutate(config)

				err := config.Validate()
				if tc.wantErr == nil && err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
			})
		}
	})
}

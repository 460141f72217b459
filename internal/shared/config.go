package shared

import (
	_ "embed"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// ClientIDEnv overrides credentials.spotify.client_id when set.
const ClientIDEnv = "JAM_CLIENT_ID"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     EndpointsConfig   `toml:"spotify"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Client      ClientConfig      `toml:"client"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the public client registration. There is no client secret.
type SpotifyConfig struct {
	ClientID    string   `toml:"client_id"`
	RedirectURI string   `toml:"redirect_uri"`
	Scopes      []string `toml:"scopes"`
}

// EndpointsConfig contains the accounts and Web API base URLs.
type EndpointsConfig struct {
	AuthURL  string `toml:"auth_url"`
	TokenURL string `toml:"token_url"`
	APIURL   string `toml:"api_url"`
}

// ServerConfig contains callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SessionConfig selects the session storage backend.
type SessionConfig struct {
	Storage string `toml:"storage"`
}

// ClientConfig contains outbound HTTP settings.
type ClientConfig struct {
	RateLimit float64 `toml:"rate_limit"`
}

// PlaylistConfig contains defaults applied to created playlists.
type PlaylistConfig struct {
	Description string `toml:"description"`
	Public      bool   `toml:"public"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports configuration that would make the authorization flow unusable.
func (c *Config) Validate() error {
	id := c.Credentials.Spotify.ClientID
	if id == "" || id == "your_spotify_client_id" {
		return fmt.Errorf("%w: credentials.spotify.client_id must be set (or %s)", ErrMissingCredentials, ClientIDEnv)
	}

	u, err := url.Parse(c.Credentials.Spotify.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q is not an absolute URL", ErrInvalidConfig, c.Credentials.Spotify.RedirectURI)
	}

	if len(c.Credentials.Spotify.Scopes) == 0 {
		return fmt.Errorf("%w: at least one scope is required", ErrInvalidConfig)
	}

	switch c.Session.Storage {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("%w: unknown session storage %q", ErrInvalidConfig, c.Session.Storage)
	}

	if c.Client.RateLimit < 0 {
		return fmt.Errorf("%w: client.rate_limit must not be negative", ErrInvalidConfig)
	}

	return nil
}

// CallbackAddr returns the listen address for the callback server.
//
// The redirect URI's host and port win over [server] so the two cannot disagree.
func (c *Config) CallbackAddr() string {
	if u, err := url.Parse(c.Credentials.Spotify.RedirectURI); err == nil && u.Host != "" {
		host, port := u.Hostname(), u.Port()
		if port == "" {
			port = "80"
		}
		return net.JoinHostPort(host, port)
	}
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// CallbackPath returns the path component of the redirect URI.
func (c *Config) CallbackPath() string {
	u, err := url.Parse(c.Credentials.Spotify.RedirectURI)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func (c *Config) applyEnv() {
	if id := strings.TrimSpace(os.Getenv(ClientIDEnv)); id != "" {
		c.Credentials.Spotify.ClientID = id
	}
}

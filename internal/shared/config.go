package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Generator   GeneratorConfig   `toml:"generator"`
	Client      ClientConfig      `toml:"client"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the persisted OAuth token.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	TokenType    string `toml:"token_type"`
	Expiry       string `toml:"expiry"` // RFC 3339
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// GeneratorConfig holds playlist generation defaults.
type GeneratorConfig struct {
	TrackCount          int     `toml:"track_count"`           // Tracks in the generated playlist (10-50)
	Bias                float64 `toml:"bias"`                  // Artist weight exponent (1.0-3.0)
	MaxPerArtist        int     `toml:"max_per_artist"`        // Per-artist cap (1-5)
	PlaylistName        string  `toml:"playlist_name"`         // Target playlist name
	Public              bool    `toml:"public"`                // Visibility of newly created playlists
	SeedArtists         int     `toml:"seed_artists"`          // Artists drawn by weighted sampling
	AlbumsPerArtist     int     `toml:"albums_per_artist"`     // Album sample budget per artist
	TracksPerAlbum      int     `toml:"tracks_per_album"`      // Track sample budget per album
	BatchSize           int     `toml:"batch_size"`            // Artists per neighbor/fallback batch
	SourceTrackLimit    int     `toml:"source_track_limit"`    // Max tracks read from the source playlist
	NeighborSearchLimit int     `toml:"neighbor_search_limit"` // Playlists searched per seed artist
	NeighborTrackLimit  int     `toml:"neighbor_track_limit"`  // Tracks read per neighboring playlist
	DefaultMarket       string  `toml:"default_market"`        // Used when the profile has no country
}

// ClientConfig tunes the catalog HTTP client.
type ClientConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	MaxRetries        int     `toml:"max_retries"`
	BackoffMS         int     `toml:"backoff_ms"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	Concurrency       int     `toml:"concurrency"`
}

// Recommended bounds for user-facing generator settings.
const (
	MinTrackCount   = 10
	MaxTrackCount   = 50
	MinBias         = 1.0
	MaxBias         = 3.0
	MinPerArtist    = 1
	MaxPerArtist    = 5
	DefaultPlaylist = "Fresh Weekly"
)

// Validate checks the user-facing generator settings against their recommended bounds.
func (g GeneratorConfig) Validate() error {
	if g.TrackCount < MinTrackCount || g.TrackCount > MaxTrackCount {
		return fmt.Errorf("%w: track_count must be between %d and %d, got %d", ErrInvalidConfig, MinTrackCount, MaxTrackCount, g.TrackCount)
	}
	if g.Bias < MinBias || g.Bias > MaxBias {
		return fmt.Errorf("%w: bias must be between %.1f and %.1f, got %.2f", ErrInvalidConfig, MinBias, MaxBias, g.Bias)
	}
	if g.MaxPerArtist < MinPerArtist || g.MaxPerArtist > MaxPerArtist {
		return fmt.Errorf("%w: max_per_artist must be between %d and %d, got %d", ErrInvalidConfig, MinPerArtist, MaxPerArtist, g.MaxPerArtist)
	}
	return nil
}

// Map returns the credentials in the form accepted by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// HasToken reports whether an access or refresh token is stored.
func (s SpotifyConfig) HasToken() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// Token converts the stored credentials into an [oauth2.Token].
func (s SpotifyConfig) Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
	}
	if s.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339, s.Expiry); err == nil {
			token.Expiry = expiry
		}
	}
	return token
}

// Update stores the given token in the credentials.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrInvalidCredentials)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrInvalidCredentials)
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenType = token.TokenType
	s.Expiry = ""
	if !token.Expiry.IsZero() {
		s.Expiry = token.Expiry.UTC().Format(time.RFC3339)
	}
	return nil
}

// Clear removes the stored token.
func (s *SpotifyConfig) Clear() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.TokenType = ""
	s.Expiry = ""
}

// PlaylistNameOrDefault trims the configured name, falling back to [DefaultPlaylist].
func PlaylistNameOrDefault(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return DefaultPlaylist
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
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// LoadConfigOrDefault loads the config at path when it exists and returns the defaults otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// SaveConfig writes the configuration to path as TOML with owner-only permissions.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

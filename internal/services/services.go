package services

import (
	"context"

	"github.com/desertthunder/freshweekly/internal/models"
	"golang.org/x/oauth2"
)

// MaxURIsPerWrite is the most track URIs a single playlist write request may carry.
const MaxURIsPerWrite = 100

// Catalog is the music catalog capability consumed by the generation engine.
//
// Implementations are expected to be authorized already and safe for concurrent use.
type Catalog interface {
	// CurrentUser returns the authenticated user's profile.
	CurrentUser(ctx context.Context) (*models.User, error)

	// AllPlaylists returns every playlist owned or followed by the user, following pagination.
	AllPlaylists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks returns at most maxTracks tracks of a playlist in playlist order.
	PlaylistTracks(ctx context.Context, playlistID string, maxTracks int) ([]models.Track, error)

	// ArtistAlbums returns the albums and singles of an artist available in market.
	ArtistAlbums(ctx context.Context, artistID, market string) ([]models.AlbumRef, error)

	// AlbumTracks returns every track on an album.
	AlbumTracks(ctx context.Context, albumID string) ([]models.Track, error)

	// SearchPlaylists returns up to limit playlists matching query.
	SearchPlaylists(ctx context.Context, query string, limit int) ([]models.Playlist, error)

	// CreatePlaylist creates an empty playlist owned by ownerID.
	CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.Playlist, error)

	// ReplacePlaylistTracks overwrites a playlist with at most [MaxURIsPerWrite] URIs.
	ReplacePlaylistTracks(ctx context.Context, playlistID string, uris []string) error

	// AddTracksToPlaylist appends at most [MaxURIsPerWrite] URIs to a playlist.
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error
}

// OAuthService extends a catalog with the OAuth2 authorization code flow used by the CLI.
type OAuthService interface {
	// GetAuthURL returns the authorization URL (with PKCE challenge) for the given state.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the oauth2 configuration for the callback handler's code exchange.
	GetOAuthConfig() *oauth2.Config

	// Verifier returns the PKCE code verifier paired with [OAuthService.GetAuthURL].
	Verifier() string

	// OAuthenticate installs a token, refreshing it transparently as it expires.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error

	// SetTokenRefreshCallback registers fn to be called whenever a new token is issued.
	SetTokenRefreshCallback(fn func(*oauth2.Token))
}

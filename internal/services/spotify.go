package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshweekly/internal/models"
	"github.com/desertthunder/freshweekly/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:3000/callback"
)

// Scopes requested during authorization.
var Scopes = []string{
	"user-read-private",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-private",
	"playlist-modify-public",
}

// SpotifyService implements [Catalog] and [OAuthService] for the Spotify Web API.
type SpotifyService struct {
	config   *oauth2.Config
	verifier string

	mu             sync.RWMutex
	token          *oauth2.Token
	httpClient     *http.Client
	onTokenRefresh func(*oauth2.Token)

	baseURL     string
	baseClient  *http.Client
	timeout     time.Duration
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *log.Logger
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithBaseURL points the service at a different API root, such as an [httptest.Server].
func WithBaseURL(baseURL string) Option {
	return func(s *SpotifyService) { s.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient sets the transport client that authenticated requests are layered on.
func WithHTTPClient(client *http.Client) Option {
	return func(s *SpotifyService) { s.baseClient = client }
}

// WithRateLimit limits outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithRetry sets the attempt budget and base backoff for retryable responses.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(s *SpotifyService) {
		s.maxRetries = maxRetries
		s.baseBackoff = backoff
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(s *SpotifyService) { s.timeout = timeout }
}

// WithLogger sets the logger used for retries and request tracing.
func WithLogger(logger *log.Logger) Option {
	return func(s *SpotifyService) { s.logger = logger }
}

// WithClientConfig applies the [shared.ClientConfig] tuning.
func WithClientConfig(cfg shared.ClientConfig) Option {
	return func(s *SpotifyService) {
		WithRateLimit(cfg.RequestsPerSecond, cfg.Burst)(s)
		WithRetry(cfg.MaxRetries, time.Duration(cfg.BackoffMS)*time.Millisecond)(s)
		if cfg.TimeoutSeconds > 0 {
			s.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// client_id is required. Without client_secret the service relies on PKCE alone.
func NewSpotifyService(credentials map[string]string, opts ...Option) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	clientSecret := credentials["client_secret"]
	authStyle := oauth2.AuthStyleInHeader
	if clientSecret == "" {
		authStyle = oauth2.AuthStyleInParams
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: authStyle,
			},
		},
		verifier:    oauth2.GenerateVerifier(),
		baseURL:     spotifyBaseURL,
		timeout:     30 * time.Second,
		limiter:     rate.NewLimiter(rate.Limit(8), 4),
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBackoff,
		logger:      shared.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login, carrying the PKCE challenge.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(s.verifier))
}

// GetOAuthConfig returns the underlying [oauth2.Config].
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// Verifier returns the PKCE code verifier.
func (s *SpotifyService) Verifier() string {
	return s.verifier
}

// SetTokenRefreshCallback registers fn to receive every newly issued token.
//
// It applies to tokens installed after the call.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

// Authenticate installs credentials. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		return s.OAuthenticate(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		})
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.config.Exchange(s.clientContext(ctx), authCode, oauth2.VerifierOption(s.verifier))
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code in credentials", shared.ErrMissingCredentials)
}

// OAuthenticate installs token behind a refreshing token source.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: no token available", shared.ErrNotAuthenticated)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cctx := s.clientContext(context.WithoutCancel(ctx))
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(cctx, token),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}

	client := oauth2.NewClient(cctx, source)
	client.Timeout = s.timeout

	s.token = token
	s.httpClient = client
	return nil
}

// clientContext carries the configured base client into oauth2 calls.
func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	if s.baseClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
}

// doRequest performs an authenticated JSON request against the Spotify API.
//
// endpoint is either a path below the base URL or an absolute next-page URL.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	s.mu.RLock()
	client := s.httpClient
	s.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.logger.Debug("spotify request", "method", method, "path", req.URL.Path)

	resp, err := s.doWithRetry(client, req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Endpoint: req.URL.Path, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// paginate follows next links from endpoint, stopping once limit items are collected when limit is positive.
func paginate[T any](ctx context.Context, s *SpotifyService, endpoint string, limit int) ([]T, error) {
	var items []T
	next := endpoint
	for next != "" {
		var page Paging[T]
		if err := s.doRequest(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}

		items = append(items, page.Items...)
		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return items, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser implements [Catalog].
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.User, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return nil, err
	}
	return mapUser(*user), nil
}

// AllPlaylists implements [Catalog].
func (s *SpotifyService) AllPlaylists(ctx context.Context) ([]models.Playlist, error) {
	items, err := paginate[*SpotifySimplePlaylist](ctx, s, "/me/playlists?limit=50", 0)
	if err != nil {
		return nil, err
	}
	return mapPlaylists(items), nil
}

// PlaylistTracks implements [Catalog].
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, maxTracks int) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrInvalidArgument)
	}

	pageSize := 100
	if maxTracks > 0 && maxTracks < pageSize {
		pageSize = maxTracks
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), pageSize)
	items, err := paginate[SpotifyPlaylistTrack](ctx, s, endpoint, maxTracks)
	if err != nil {
		return nil, err
	}
	return mapPlaylistItems(items), nil
}

// ArtistAlbums implements [Catalog]. Only albums and singles are requested.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, artistID, market string) ([]models.AlbumRef, error) {
	query := url.Values{}
	query.Set("include_groups", "album,single")
	query.Set("limit", "50")
	if market != "" {
		query.Set("market", market)
	}

	endpoint := fmt.Sprintf("/artists/%s/albums?%s", url.PathEscape(artistID), query.Encode())
	items, err := paginate[SpotifyAlbum](ctx, s, endpoint, 0)
	if err != nil {
		return nil, err
	}
	return mapAlbums(items), nil
}

// AlbumTracks implements [Catalog].
func (s *SpotifyService) AlbumTracks(ctx context.Context, albumID string) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/albums/%s/tracks?limit=50", url.PathEscape(albumID))
	items, err := paginate[SpotifyTrack](ctx, s, endpoint, 0)
	if err != nil {
		return nil, err
	}
	return mapTracks(items), nil
}

// SearchPlaylists implements [Catalog] with a single page of results.
func (s *SpotifyService) SearchPlaylists(ctx context.Context, query string, limit int) ([]models.Playlist, error) {
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, 50)

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "playlist")
	params.Set("limit", fmt.Sprint(limit))

	var response searchPlaylistsResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return mapPlaylists(response.Playlists.Items), nil
}

// CreatePlaylist implements [Catalog].
func (s *SpotifyService) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.Playlist, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", shared.ErrInvalidArgument)
	}

	var created SpotifySimplePlaylist
	body := createPlaylistRequest{Name: name, Description: description, Public: public}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(ownerID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	playlist := mapPlaylist(created)
	if created.Public == nil {
		playlist.Public = public
	}
	return &playlist, nil
}

// ReplacePlaylistTracks implements [Catalog].
func (s *SpotifyService) ReplacePlaylistTracks(ctx context.Context, playlistID string, uris []string) error {
	return s.writeTracks(ctx, http.MethodPut, playlistID, uris)
}

// AddTracksToPlaylist implements [Catalog].
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	return s.writeTracks(ctx, http.MethodPost, playlistID, uris)
}

func (s *SpotifyService) writeTracks(ctx context.Context, method, playlistID string, uris []string) error {
	if len(uris) > MaxURIsPerWrite {
		return fmt.Errorf("%w: at most %d URIs per request, got %d", shared.ErrInvalidArgument, MaxURIsPerWrite, len(uris))
	}
	if uris == nil {
		uris = []string{}
	}

	var snapshot snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, method, endpoint, tracksRequest{URIs: uris}, &snapshot)
}

// refreshableTokenSource reports every token that differs from the last one it served.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTokenExpired, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if token.AccessToken != r.last {
		r.last = token.AccessToken
		if r.callback != nil {
			r.callback(token)
		}
	}
	return token, nil
}

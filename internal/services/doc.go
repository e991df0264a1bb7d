// Package services implements the music catalog collaborator used by the generation engine.
//
// # Catalog Interface
//
// [Catalog] is the narrow set of read and write calls the engine needs: the user profile, playlists,
// artist albums, album tracks, playlist search and playlist writes. Responses are narrowed into the
// immutable value types of the models package on ingestion so no loosely shaped JSON leaks past this package.
//
// # Spotify Implementation
//
// [SpotifyService] implements [Catalog] and [OAuthService] against the Spotify Web API.
//
// Authentication uses the authorization code flow with PKCE (S256). The client secret is optional;
// without it the token exchange sends the client id in the request body. Tokens are wrapped in a
// refreshing [oauth2.TokenSource] that reports every newly issued token through the callback set with
// [SpotifyService.SetTokenRefreshCallback] so the CLI can persist it.
//
// Every request waits on a [rate.Limiter], and 429 or 5xx responses are retried with exponential
// backoff or the server's Retry-After delay. Paginated endpoints are followed through their next links.
//
// # Error Handling
//
// Non-2xx responses surface as [*APIError], which matches:
//   - [shared.ErrAPIRequest] : any failed request
//   - [shared.ErrTokenExpired] : 401 responses and token refresh failures
//   - [shared.ErrRateLimited] : 429 responses that outlived every retry
//   - [shared.ErrPlaylistNotFound] : 404 responses
//   - [shared.ErrServiceUnavailable] : 5xx responses
//
// [rate.Limiter]: https://pkg.go.dev/golang.org/x/time/rate#Limiter
package services

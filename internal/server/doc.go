// Package server provides the localhost OAuth callback used by `freshweekly auth login`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// [http.ServeMux] method patterns; [Middleware] added first wraps outermost. [Logging] and
// [Recover] are the stock middleware, both logging through charmbracelet/log.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter (CSRF protection), exchanges the authorization code
// for tokens with the PKCE verifier, and sends the result through a channel. It only processes one
// callback to prevent replay attacks.
//
// # Callback Server
//
// [CallbackServer] binds the configured host and port, serves until the handler reports a result
// or the login times out, then shuts down. Nothing else in freshweekly listens on a port.
package server

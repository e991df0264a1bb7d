package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/freshweekly/internal/server"
	"github.com/desertthunder/freshweekly/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 authorization code flow with PKCE.
//
// Starts a local HTTP server, opens the browser for user authorization and stores the exchanged token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.oauth == nil {
		return fmt.Errorf("%w: set credentials.spotify.client_id in %s", shared.ErrMissingCredentials, r.configPath)
	}

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if err := r.oauth.OAuthenticate(ctx, token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	return r.writePlain("You can now use: freshweekly generate --source <playlist>\n")
}

// AuthStatus reports the signed-in account and token expiry.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if !creds.HasToken() {
		return r.writePlain("✗ Not authenticated. Run 'freshweekly auth login'.\n")
	}

	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	user, err := catalog.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	r.writePlain("✓ Authenticated as %s (%s)\n", name, user.ID)
	if user.Country != "" {
		r.writePlain("Market: %s\n", user.Country)
	}
	if expiry := creds.Token().Expiry; !expiry.IsZero() {
		r.writePlain("Access token expires %s\n", humanize.Time(expiry))
	}
	return nil
}

// AuthLogout clears the stored token from the config file.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if !r.config.Credentials.Spotify.HasToken() {
		return r.writePlain("Already signed out\n")
	}

	r.config.Credentials.Spotify.Clear()
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.catalog = nil

	return r.writePlain("✓ Signed out, token removed from %s\n", r.configPath)
}

// doOAuth runs the browser authorization against a local callback server.
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := r.oauth.GetAuthURL(state)
	handler := server.NewOAuthHandler(r.oauth.GetOAuthConfig(), state, r.oauth.Verifier())

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	callback := server.NewCallbackServer(addr, handler, shared.WithLogger(r.logger, "component", "oauth"))
	if err := callback.Start(); err != nil {
		return nil, err
	}

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)
	return callback.Wait(ctx, authTimeout)
}

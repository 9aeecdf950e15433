package services

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// Factory builds Spotify clients that share one set of app credentials and options.
//
// The app client is created once and reused so its limiter and breaker see every public catalog call.
// User clients are created per token.
type Factory struct {
	credentials map[string]string
	opts        []Option

	mu  sync.Mutex
	app *SpotifyService
}

// NewFactory creates a [Factory]. Credentials are validated lazily so a server can start without them.
func NewFactory(credentials map[string]string, opts ...Option) *Factory {
	return &Factory{credentials: credentials, opts: opts}
}

// App returns the client-credentials catalog client.
func (f *Factory) App(ctx context.Context) (Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.app != nil {
		return f.app, nil
	}

	svc, err := NewSpotifyService(f.credentials, f.opts...)
	if err != nil {
		return nil, err
	}
	if err := svc.AuthenticateApp(ctx); err != nil {
		return nil, err
	}

	f.app = svc
	return svc, nil
}

// User returns a client authenticated with token. onRefresh, when set, receives refreshed tokens.
func (f *Factory) User(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) (UserService, error) {
	svc, err := NewSpotifyService(f.credentials, f.opts...)
	if err != nil {
		return nil, err
	}
	if onRefresh != nil {
		svc.SetTokenRefreshCallback(onRefresh)
	}
	if err := svc.OAuthenticate(ctx, token); err != nil {
		return nil, err
	}
	return svc, nil
}

// OAuth returns an unauthenticated client for the authorization code flow.
func (f *Factory) OAuth() (OAuthService, error) {
	return NewSpotifyService(f.credentials, f.opts...)
}

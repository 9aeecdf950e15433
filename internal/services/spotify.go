// Spotify API implementation of [Catalog], [Library] and [OAuthService]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:5000/api/callback"
)

// Scopes requested by the authorization code flow.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-top-read",
	"playlist-modify-public",
	"playlist-modify-private",
}

// SpotifyService implements [Catalog], [Library] and [OAuthService] against the Spotify Web API.
// Uses [oauth2] for authentication, a token bucket for pacing and a circuit breaker to shed load while Spotify is unhealthy.
type SpotifyService struct {
	config         *oauth2.Config
	baseURL        string
	baseClient     *http.Client
	httpClient     *http.Client
	source         oauth2.TokenSource
	token          *oauth2.Token
	onTokenRefresh func(*oauth2.Token)
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker[[]byte]
	tripAfter      uint32
	openFor        time.Duration
	logger         *log.Logger
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithBaseURL points the service at a different API root (tests use an httptest server).
func WithBaseURL(u string) Option {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithAuthURLs overrides the OAuth authorize and token endpoints.
func WithAuthURLs(authURL, tokenURL string) Option {
	return func(s *SpotifyService) {
		s.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	}
}

// WithHTTPClient sets the client used for API and token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyService) { s.baseClient = c }
}

// WithRateLimit paces outgoing requests. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker configures the circuit breaker to open after failures consecutive upstream failures
// and probe again after timeout.
func WithBreaker(failures uint32, timeout time.Duration) Option {
	return func(s *SpotifyService) {
		s.tripAfter = failures
		s.openFor = timeout
	}
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *SpotifyService) { s.logger = l }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...Option) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint:     oauth2.Endpoint{AuthURL: spotifyAuthURL, TokenURL: spotifyTokenURL},
		},
		baseURL:    spotifyBaseURL,
		baseClient: http.DefaultClient,
		tripAfter:  5,
		openFor:    30 * time.Second,
		logger:     log.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.breaker = newBreaker(s.tripAfter, s.openFor, s.logger)
	return s, nil
}

// OAuthenticate authenticates as a user with a stored token. Refreshed tokens are passed to the callback
// set by [SpotifyService.SetTokenRefreshCallback].
func (s *SpotifyService) OAuthenticate(_ context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrNotAuthenticated)
	}

	octx := s.oauthContext()
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(octx, token),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}

	s.token = token
	s.source = source
	s.httpClient = oauth2.NewClient(octx, source)
	return nil
}

// AuthenticateApp authenticates with the client credentials grant.
// App tokens can read the public catalog but not user libraries.
func (s *SpotifyService) AuthenticateApp(_ context.Context) error {
	cc := &clientcredentials.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		TokenURL:     s.config.Endpoint.TokenURL,
	}

	octx := s.oauthContext()
	s.token = nil
	s.source = oauth2.ReuseTokenSource(nil, appTokenSource{source: cc.TokenSource(octx)})
	s.httpClient = oauth2.NewClient(octx, s.source)
	return nil
}

// Authenticated reports whether OAuthenticate or AuthenticateApp has been called.
func (s *SpotifyService) Authenticated() bool {
	return s.httpClient != nil
}

// SetTokenRefreshCallback registers fn to receive tokens issued by automatic refresh.
// Must be set before authenticating to take effect.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Token returns the current token, refreshing it when expired.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	token, err := s.source.Token()
	if err != nil {
		return nil, classifyTransportError(context.Background(), err)
	}
	return token, nil
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the authorization code flow configuration.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(context.WithValue(ctx, oauth2.HTTPClient, s.baseClient), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %w", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// oauthContext carries the base client into token refreshes. It is detached from request
// contexts because the token source outlives them.
func (s *SpotifyService) oauthContext() context.Context {
	return context.WithValue(context.Background(), oauth2.HTTPClient, s.baseClient)
}

// doRequest performs an authenticated, paced and circuit-broken request to the Spotify API.
// Non-2xx responses and transport failures are mapped onto the shared sentinel errors.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call OAuthenticate or AuthenticateApp first", shared.ErrNotAuthenticated)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return contextError(ctxErr)
			}
			return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
		}
	}

	data, err := s.breaker.Execute(func() ([]byte, error) {
		return s.send(ctx, method, endpoint, query, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
		return err
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

func (s *SpotifyService) send(ctx context.Context, method, endpoint string, query url.Values, body any) ([]byte, error) {
	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	s.logger.Debug("spotify request", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp, data)
	}
	return data, nil
}

func newBreaker(failures uint32, timeout time.Duration, logger *log.Logger) *gobreaker.CircuitBreaker[[]byte] {
	if failures == 0 {
		failures = 5
	}
	if logger == nil {
		logger = log.Default()
	}

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "spotify",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !(errors.Is(err, shared.ErrServiceUnavailable) || errors.Is(err, shared.ErrTimeout))
		},
	})
}

// refreshableTokenSource wraps a token source and reports every new access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// trackURI converts a bare track id into a Spotify URI.
func trackURI(id string) string {
	if strings.HasPrefix(id, "spotify:") {
		return id
	}
	return "spotify:track:" + id
}

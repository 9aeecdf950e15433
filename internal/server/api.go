package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/services"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/desertthunder/songsim/internal/tasks"
	"golang.org/x/oauth2"
)

const (
	searchLimit    = 10
	topTracksLimit = 10
	topTracksRange = "medium_term"
	maxBodyBytes   = 1 << 20
)

var _ Clients = (*services.Factory)(nil)

// Clients builds catalog clients for a request.
type Clients interface {
	// App returns the shared client-credentials catalog client.
	App(ctx context.Context) (services.Catalog, error)

	// User returns a client authenticated with token; onRefresh receives refreshed tokens.
	User(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) (services.UserService, error)

	// OAuth returns a client for the authorization code flow.
	OAuth() (services.OAuthService, error)
}

// APIConfig configures the JSON API.
type APIConfig struct {
	FrontendURL   string
	SecureCookies bool
	Engine        tasks.Options
}

// API serves the songsim JSON endpoints under /api.
type API struct {
	clients  Clients
	sessions models.Repository[*models.Session]
	cfg      APIConfig
	logger   *log.Logger
}

// NewAPI creates an [API].
func NewAPI(clients Clients, sessions models.Repository[*models.Session], cfg APIConfig, logger *log.Logger) *API {
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3000"
	}
	return &API{clients: clients, sessions: sessions, cfg: cfg, logger: logger}
}

// NewHandler wires the API into a router with the standard middleware stack.
func NewHandler(api *API, cfg shared.ServerConfig, logger *log.Logger) http.Handler {
	router := NewBasicRouter()
	router.Use(RequestID(), Logging(logger), Recover(logger))
	api.Register(router)

	return Chain(router, CORS(cfg.CORSOrigins), RateLimit(cfg.RateLimit))
}

// Register adds every API route to router.
func (a *API) Register(router *BasicRouter) {
	router.HandleFunc(http.MethodGet, "/api/health", a.Health)
	router.HandleFunc(http.MethodGet, "/api/login", a.Login)
	router.HandleFunc(http.MethodGet, "/api/callback", a.Callback)
	router.HandleFunc(http.MethodPost, "/api/logout", a.Logout)
	router.HandleFunc(http.MethodGet, "/api/token", a.Token)
	router.HandleFunc(http.MethodGet, "/api/user", a.User)
	router.HandleFunc(http.MethodGet, "/api/search", a.Search)
	router.HandleFunc(http.MethodGet, "/api/similar-songs", a.SimilarSongs)
	router.HandleFunc(http.MethodGet, "/api/user/top-tracks", a.TopTracks)
	router.HandleFunc(http.MethodPost, "/api/create-playlist", a.CreatePlaylist)
	router.HandleFunc(http.MethodGet, "/api/favorites", a.ListFavorites)
	router.HandleFunc(http.MethodPost, "/api/favorites", a.AddFavorite)
	router.HandleFunc(http.MethodDelete, "/api/favorites", a.RemoveFavorite)
}

// fail writes err with the status from [StatusFor].
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFrom(r.Context()))
	}
	writeError(w, status, message)
}

// Health reports liveness.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Login stores a fresh OAuth state on the session and returns the authorization URL.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	auth, err := a.clients.OAuth()
	if err != nil {
		a.fail(w, r, err)
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		a.fail(w, r, fmt.Errorf("failed to generate state: %w", err))
		return
	}

	session, err := a.ensureSession(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	session.SetState(state)
	if err := a.sessions.Update(session); err != nil {
		a.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"auth_url": auth.GetAuthURL(state)})
}

// Callback completes the authorization code flow and redirects to the frontend dashboard.
func (a *API) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		a.fail(w, r, fmt.Errorf("%w: %s", shared.ErrAuthFailed, errParam))
		return
	}

	code := query.Get("code")
	if code == "" {
		a.fail(w, r, fmt.Errorf("%w: code", shared.ErrMissingArgument))
		return
	}

	session, err := a.loadSession(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if session == nil || session.State() == "" || session.State() != query.Get("state") {
		a.fail(w, r, fmt.Errorf("%w: invalid state parameter", shared.ErrInvalidArgument))
		return
	}

	auth, err := a.clients.OAuth()
	if err != nil {
		a.fail(w, r, err)
		return
	}

	token, err := auth.Exchange(r.Context(), code)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	session.SetState("")
	session.SetToken(token)

	if user, err := a.clients.User(r.Context(), token, nil); err == nil {
		if profile, err := user.CurrentUser(r.Context()); err == nil {
			session.SetUserID(profile.ID)
		} else {
			a.logger.Warn("failed to fetch user after login", "error", err)
		}
	}

	if err := a.sessions.Update(session); err != nil {
		a.fail(w, r, err)
		return
	}

	http.Redirect(w, r, strings.TrimRight(a.cfg.FrontendURL, "/")+"/dashboard", http.StatusFound)
}

// Logout drops the session's token.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := a.loadSession(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if session != nil {
		if err := a.sessions.Delete(session.ID()); err != nil && !errors.Is(err, shared.ErrNotFound) {
			a.fail(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expires_at,omitzero"`
}

// Token returns the session's access token, refreshing it first when expired.
func (a *API) Token(w http.ResponseWriter, r *http.Request) {
	user, err := a.userClient(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	token, err := user.Token()
	if err != nil {
		a.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]tokenResponse{
		"token": {AccessToken: token.AccessToken, TokenType: token.TokenType, Expiry: token.Expiry},
	})
}

// User returns the logged in user's profile.
func (a *API) User(w http.ResponseWriter, r *http.Request) {
	user, err := a.userClient(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	profile, err := user.CurrentUser(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Search runs a track search with the user's token when logged in, else with app credentials.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		a.fail(w, r, fmt.Errorf("%w: No search query provided", shared.ErrMissingArgument))
		return
	}

	var catalog services.Catalog
	if user, err := a.userClient(r); err == nil {
		catalog = user
	} else if app, err := a.clients.App(r.Context()); err == nil {
		catalog = app
	} else {
		a.fail(w, r, err)
		return
	}

	tracks, err := catalog.Search(r.Context(), q, a.market(), searchLimit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": nonNil(tracks)}})
}

// SimilarSongs runs the recommendation engine for track_id with app credentials.
func (a *API) SimilarSongs(w http.ResponseWriter, r *http.Request) {
	trackID := strings.TrimSpace(r.URL.Query().Get("track_id"))
	if trackID == "" {
		a.fail(w, r, fmt.Errorf("%w: No track ID provided", shared.ErrMissingArgument))
		return
	}

	app, err := a.clients.App(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}

	engine := tasks.NewRecommendationEngine(app, a.cfg.Engine, a.logger.With("request_id", RequestIDFrom(r.Context())))
	resp, err := engine.SimilarTracks(r.Context(), trackID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// TopTracks returns the user's top medium-term tracks.
func (a *API) TopTracks(w http.ResponseWriter, r *http.Request) {
	user, err := a.userClient(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	tracks, err := user.TopTracks(r.Context(), topTracksLimit, topTracksRange)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(tracks)})
}

type createPlaylistRequest struct {
	Name     string   `json:"name"`
	TrackIDs []string `json:"track_ids"`
}

// CreatePlaylist creates a public playlist from track_ids.
func (a *API) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	user, err := a.userClient(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var req createPlaylistRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if len(req.TrackIDs) == 0 {
		a.fail(w, r, fmt.Errorf("%w: No tracks provided", shared.ErrMissingArgument))
		return
	}

	playlist, err := a.favorites(user).CreatePlaylist(r.Context(), req.Name, req.TrackIDs)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlist": playlist})
}

type favoriteRequest struct {
	TrackID string `json:"track_id"`
}

// ListFavorites returns the favorites playlist items, creating the playlist on first use.
func (a *API) ListFavorites(w http.ResponseWriter, r *http.Request) {
	user, err := a.userClient(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	items, err := a.favorites(user).List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": map[string]any{"items": items}})
}

// AddFavorite adds track_id to the favorites playlist.
func (a *API) AddFavorite(w http.ResponseWriter, r *http.Request) {
	a.editFavorites(w, r, (*tasks.FavoritesManager).Add)
}

// RemoveFavorite removes every occurrence of track_id from the favorites playlist.
func (a *API) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	a.editFavorites(w, r, (*tasks.FavoritesManager).Remove)
}

func (a *API) editFavorites(w http.ResponseWriter, r *http.Request, op func(*tasks.FavoritesManager, context.Context, string) error) {
	user, err := a.userClient(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	trackID, err := favoriteTrackID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := op(a.favorites(user), r.Context(), trackID); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// favoriteTrackID reads track_id from the JSON body, falling back to the query string.
func favoriteTrackID(r *http.Request) (string, error) {
	var req favoriteRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			return "", err
		}
	}
	if req.TrackID == "" {
		req.TrackID = r.URL.Query().Get("track_id")
	}
	if strings.TrimSpace(req.TrackID) == "" {
		return "", fmt.Errorf("%w: No track ID provided", shared.ErrMissingArgument)
	}
	return strings.TrimSpace(req.TrackID), nil
}

// userClient builds a client for the session's user; refreshed tokens are written back to the session.
func (a *API) userClient(r *http.Request) (services.UserService, error) {
	session, err := a.authedSession(r)
	if err != nil {
		return nil, err
	}
	return a.clients.User(r.Context(), session.Token(), a.persistToken(session))
}

func (a *API) favorites(user services.UserService) *tasks.FavoritesManager {
	return tasks.NewFavoritesManager(user, a.logger)
}

func (a *API) market() string {
	if a.cfg.Engine.DefaultMarket != "" {
		return a.cfg.Engine.DefaultMarket
	}
	return tasks.DefaultOptions().DefaultMarket
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func nonNil(tracks []models.Track) []models.Track {
	if tracks == nil {
		return []models.Track{}
	}
	return tracks
}

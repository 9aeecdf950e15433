// Package server provides HTTP routing, middleware, the JSON API and OAuth handling for the CLI and web frontend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so one path can serve GET, POST and
// DELETE with separate handlers.
//
// # Middleware
//
//   - [RequestID] tags requests with a uuid (or the caller's X-Request-ID)
//   - [Logging] writes one line per request
//   - [Recover] turns panics into JSON 500s
//   - [CORS] (go-chi/cors) allows the frontend origin with credentials
//   - [RateLimit] (go-chi/httprate) caps requests per client IP
//
// # API
//
// [API] serves /api/health, /api/login, /api/callback, /api/logout, /api/token, /api/user, /api/search,
// /api/similar-songs, /api/user/top-tracks, /api/create-playlist and /api/favorites.
//
// Browser sessions are keyed by the songsim-session cookie and stored through a [models.Repository].
// Similar songs always run on app (client credentials) authentication; user endpoints build a client from
// the session token and write refreshed tokens back to the session.
//
// Errors map onto status codes in exactly one place, [StatusFor], and are written as {"error": message}.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the one-shot OAuth2 callback used by `songsim spotify auth`.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

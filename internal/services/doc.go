// Package services defines the [Catalog] and [Library] interfaces consumed by the recommendation engine and
// implements them for Spotify.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates one of two ways:
//   - As a user through the authorization code flow ([SpotifyService.OAuthenticate]). The [oauth2.Client]
//     refreshes expired tokens and reports them through [SpotifyService.SetTokenRefreshCallback].
//   - As the application through the client credentials grant ([SpotifyService.AuthenticateApp]), which is
//     enough for catalog reads.
//
// Every request waits on a token bucket ([rate.Limiter]) and runs inside a circuit breaker. Only upstream
// unavailability and timeouts count against the breaker; a 404 or 429 never opens it.
//
// # Error Handling
//
// HTTP and transport failures are mapped onto sentinels from the shared package:
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrRateLimited] : 429, Retry-After is kept in the message
//   - [shared.ErrUnauthorized] : 401, 403 or a failed user token refresh
//   - [shared.ErrInvalidCredentials] : the client-credentials grant was rejected (bad client id or secret)
//   - [shared.ErrServiceUnavailable] : 5xx, connection failures or an open breaker
//   - [shared.ErrTimeout] : deadline exceeded
//   - [shared.ErrNotAuthenticated] : no OAuthenticate or AuthenticateApp call yet
//
// Caller cancellation surfaces as [context.Canceled] unchanged.
package services

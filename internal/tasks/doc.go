// Package tasks finds tracks similar to a seed track and manages the favorites playlist.
//
// # Recommendation Engine
//
// [RecommendationEngine.SimilarTracks] resolves the seed, then runs three independent strategies against a
// [services.Catalog]:
//
//  1. Artist: the primary artist's top tracks in the seed's region. No fallback.
//  2. Album: the seed album's other tracks, each upgraded to a full track. Stops at the first failure.
//  3. Genre: a three-level search cascade. The next level runs only while fewer than
//     [Options.GenreFloor] tracks have been accepted.
//
// Every acceptance goes through one [DedupSet] seeded with the seed id, so no track appears twice and the
// seed never appears. Strategies run concurrently unless [Options.Sequential] is set; when they race for
// an id the first to mark it keeps it. Sequential runs use artist, album, genre order.
//
// # Partial Failure
//
// Strategy errors are logged and recorded, never returned on their own. The request fails with
// [shared.ErrAllStrategiesFailed] only when no track was accepted anywhere and at least one strategy
// failed. A cancelled context fails the whole request; no partial response is returned.
//
// # Progress Reporting
//
// [RecommendationEngine.Run] emits [ProgressUpdate] values per phase. Updates use select with default to
// prevent blocking.
//
// # Favorites
//
// [FavoritesManager] finds or creates the private playlist named [FavoritesPlaylistName] and adds or
// removes tracks from it.
package tasks

// Package repositories implements SQLite persistence for songsim.
//
// The only persisted entity is the browser [models.Session]: the pending OAuth state during login and the
// user's token afterwards. Catalog data is never stored.
//
// [SessionRepository] implements [models.Repository] with soft deletes via deleted_at timestamps;
// deleted sessions are excluded from queries and removed for good by [SessionRepository.Purge].
package repositories

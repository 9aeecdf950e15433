// Package models defines domain entities and persistence interfaces for songsim.
//
// The package contains two categories of types:
//
// 1. Catalog projections: immutable snapshots of catalog data, fetched per request
//   - [Track] : a playable track with artist and album references and its available markets
//   - [ArtistRef] / [AlbumRef] : minimal identity projections carried by a track
//   - [Artist] : an artist with its ordered genre list
//   - [TrackRef] : the light projection returned by album listings
//   - [CategoryResult] / [AggregateResponse] : the similar-tracks response
//   - [User], [Playlist], [PlaylistItem] : user library data used by favorites
//
// 2. Persistent entities: database-backed models
//   - [Session] : a browser session holding OAuth state and the user's token
//
// Persistent entities implement the [Model] interface and are stored through a [Repository].
package models

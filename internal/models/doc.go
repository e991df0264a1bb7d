// Package models defines the value types exchanged with the music catalog and the persisted entities of freshweekly.
//
// The package contains two categories of types:
//
// 1. Catalog values: immutable structs narrowed from Spotify responses at the service boundary
//   - [Artist] : identifier and display name of a credited artist
//   - [Track] : playable track with its ordered artist credits
//   - [Playlist] : playlist metadata (owner, size, visibility)
//   - [AlbumRef] : album reference returned by artist discography lookups
//   - [User] : the authenticated user's profile (id, market)
//
// 2. Persistent entities: database-backed models with lifecycle management
//   - [Run] : one generation run with its outcome, kept for the history command
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models

package models

import "strings"

// Artist is a credited artist on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a playable catalog track.
//
// Artists keeps the credit order from the catalog; the first entry is the primary artist.
type Track struct {
	ID      string   `json:"id"`
	URI     string   `json:"uri"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
}

// PrimaryArtist returns the first credited artist, if any.
func (t Track) PrimaryArtist() (Artist, bool) {
	if len(t.Artists) == 0 || t.Artists[0].ID == "" {
		return Artist{}, false
	}
	return t.Artists[0], true
}

// ArtistNames joins the credited artist names for display.
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Playlist represents a playlist owned by or visible to the user.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}

// AlbumRef references an album or single in an artist's discography.
type AlbumRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // album, single
}

// User is the authenticated catalog user.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"` // ISO 3166-1 alpha-2 market, may be empty
}

// URIs returns the playable URIs of tracks in order.
func URIs(tracks []Track) []string {
	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		uris = append(uris, t.URI)
	}
	return uris
}

package services

import (
	"github.com/desertthunder/freshweekly/internal/models"
)

func mapUser(u SpotifyUser) *models.User {
	return &models.User{ID: u.ID, DisplayName: u.DisplayName, Country: u.Country}
}

// mapTrack narrows a wire track, dropping artists without an id.
func mapTrack(t SpotifyTrack) models.Track {
	artists := make([]models.Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.ID == "" {
			continue
		}
		artists = append(artists, models.Artist{ID: a.ID, Name: a.Name})
	}
	return models.Track{ID: t.ID, URI: t.URI, Name: t.Name, Artists: artists}
}

// mapPlaylistItems keeps the tracks of playlist items, skipping removed, local and episode entries.
func mapPlaylistItems(items []SpotifyPlaylistTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if item.Track == nil || item.Track.IsLocal {
			continue
		}
		if item.Track.Type != "" && item.Track.Type != "track" {
			continue
		}
		tracks = append(tracks, mapTrack(*item.Track))
	}
	return tracks
}

func mapTracks(items []SpotifyTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, t := range items {
		tracks = append(tracks, mapTrack(t))
	}
	return tracks
}

func mapPlaylist(p SpotifySimplePlaylist) models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.Owner.ID,
		TrackCount:  p.Tracks.Total,
		Public:      p.Public != nil && *p.Public,
	}
}

func mapPlaylists(items []*SpotifySimplePlaylist) []models.Playlist {
	playlists := make([]models.Playlist, 0, len(items))
	for _, p := range items {
		if p == nil || p.ID == "" {
			continue
		}
		playlists = append(playlists, mapPlaylist(*p))
	}
	return playlists
}

func mapAlbums(items []SpotifyAlbum) []models.AlbumRef {
	albums := make([]models.AlbumRef, 0, len(items))
	for _, a := range items {
		if a.ID == "" {
			continue
		}
		kind := a.AlbumGroup
		if kind == "" {
			kind = a.AlbumType
		}
		albums = append(albums, models.AlbumRef{ID: a.ID, Name: a.Name, Type: kind})
	}
	return albums
}

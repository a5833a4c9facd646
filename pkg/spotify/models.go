package spotify

import (
	"context"
	"net/url"
	"strconv"
)

type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	AlbumType   string   `json:"album_type"`
	ReleaseDate string   `json:"release_date"`
	Artists     []Artist `json:"artists"`
	TotalTracks int      `json:"total_tracks"`
}

type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	DurationMS int      `json:"duration_ms"`
	TrackNum   int      `json:"track_number"`
}

// PlaylistTrackItem wraps a track inside a playlist listing
type PlaylistTrackItem struct {
	Track Track `json:"track"`
}

type Playlist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

func listingParams(limit, offset int) url.Values {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	return params
}

// UserPlaylists fetches the first page of a user's playlists
func (h *Handle) UserPlaylists(ctx context.Context, userID string, limit int) (*Page, error) {
	return h.GetPage(ctx, UserPlaylistsURL(userID), listingParams(limit, 0))
}

// PlaylistTracks fetches a page of a playlist's tracks
func (h *Handle) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*Page, error) {
	return h.GetPage(ctx, PlaylistTracksURL(playlistID), listingParams(limit, offset))
}

// ArtistAlbums fetches a page of an artist's albums
func (h *Handle) ArtistAlbums(ctx context.Context, artistID, albumType string, limit, offset int) (*Page, error) {
	params := listingParams(limit, offset)
	if albumType != "" {
		params.Set("album_type", albumType)
	}
	return h.GetPage(ctx, ArtistAlbumsURL(artistID), params)
}

// AlbumTracks fetches a page of an album's tracks
func (h *Handle) AlbumTracks(ctx context.Context, albumID string, limit, offset int) (*Page, error) {
	return h.GetPage(ctx, AlbumTracksURL(albumID), listingParams(limit, offset))
}

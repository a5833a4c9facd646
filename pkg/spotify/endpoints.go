package spotify

import "fmt"

const (
	// DefaultTokenURL is the client-credentials exchange endpoint
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	// APIBaseURL is the root of the Spotify Web API
	APIBaseURL = "https://api.spotify.com/v1"
)

// UserPlaylistsURL returns the listing endpoint for a user's playlists
func UserPlaylistsURL(userID string) string {
	return fmt.Sprintf("%s/users/%s/playlists", APIBaseURL, userID)
}

// PlaylistTracksURL returns the listing endpoint for a playlist's tracks
func PlaylistTracksURL(playlistID string) string {
	return fmt.Sprintf("%s/playlists/%s/tracks", APIBaseURL, playlistID)
}

// ArtistAlbumsURL returns the listing endpoint for an artist's albums
func ArtistAlbumsURL(artistID string) string {
	return fmt.Sprintf("%s/artists/%s/albums", APIBaseURL, artistID)
}

// AlbumTracksURL returns the listing endpoint for an album's tracks
func AlbumTracksURL(albumID string) string {
	return fmt.Sprintf("%s/albums/%s/tracks", APIBaseURL, albumID)
}

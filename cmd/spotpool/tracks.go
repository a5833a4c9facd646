package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spotpool/pkg/spotify"
)

var tracksLimit int

// tracksCmd lists every track of a playlist, walking all pages
var tracksCmd = &cobra.Command{
	Use:   "tracks <playlist-id>",
	Short: "List all tracks of a playlist",
	Long: `Walk every page of a playlist's track listing through the credential
pool and print one line per track. Pages already fetched are printed even
when a later page fails, so partial progress survives mid-listing errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runTracks,
}

func init() {
	tracksCmd.Flags().IntVar(&tracksLimit, "limit", 50, "page size requested from the API")
	rootCmd.AddCommand(tracksCmd)
}

func runTracks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := buildClient(cfg)
	ctx := cmd.Context()

	handle, err := client.Acquire(ctx)
	if err != nil {
		return err
	}

	first, err := handle.PlaylistTracks(ctx, args[0], tracksLimit, 0)
	if err != nil {
		return err
	}

	printed := 0
	cur := handle.Paginate(first)
	for cur.Next(ctx) {
		for _, raw := range cur.Items() {
			var item spotify.PlaylistTrackItem
			if err := json.Unmarshal(raw, &item); err != nil {
				continue
			}
			printed++
			fmt.Printf("%4d  %s - %s\n", printed, item.Track.Name, artistNames(item.Track.Artists))
		}
	}
	if err := cur.Err(); err != nil {
		// Keep what we printed; report how far we got
		return fmt.Errorf("listing stopped after %d tracks: %w", printed, err)
	}

	fmt.Printf("\n%d tracks\n", printed)
	return nil
}

func artistNames(artists []spotify.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

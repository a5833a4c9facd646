// Package spotify implements the HTTP side of the credential pool: token
// issuance, authenticated request execution with rotation-driven retries,
// and cursor pagination over listing endpoints.
//
// The request loop trades pool breadth for latency: the rate-limit budget
// is per credential and externally imposed, so instead of backing off a
// single identity the executor rotates to another one and retries almost
// immediately. Waiting out a Retry-After only happens when the whole pool
// is limited, and even then the wait is capped.
//
// Usage:
//
//	client := spotify.NewClient(p, cfg, log)
//	handle, err := client.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	first, err := handle.PlaylistTracks(ctx, playlistID, 50, 0)
//	if err != nil {
//	    return err
//	}
//	cur := handle.Paginate(first)
//	for cur.Next(ctx) {
//	    for _, item := range cur.Items() {
//	        // decode item
//	    }
//	}
//	if err := cur.Err(); err != nil {
//	    // pages already consumed stay consumed
//	}
package spotify

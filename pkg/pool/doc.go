// Package pool manages a ring of Spotify client-credential pairs and
// presents them as one logical client.
//
// Each credential carries a status (active, rate-limited, or invalid), an
// optional bearer token with its expiry, and usage counters. A single
// rotation cursor selects the credential that serves traffic; all state
// transitions are serialized behind one mutex, so at most one
// select/refresh-token operation runs at a time across the whole pool.
//
// Rotation:
//
// Acquire walks the ring for up to size+2 attempts, skipping invalid
// credentials and reissuing tokens when they are missing, near expiry
// (5 minute buffer), or attached to a rate-limited credential. Rotate
// scans in two passes: first for a credential that can take traffic
// immediately (active with an unexpired token), then for a rate-limited
// credential that has sat idle past the cooldown, which is revived with a
// cleared token.
//
// Invalid is terminal: once the authorization server rejects an id/secret
// pair the credential is excluded from rotation for the rest of the
// process. Bad keys are not worth retrying.
//
// Tokens that survive a run are persisted through a tokencache.Store so a
// restart starts warm. Cache failures are logged and never affect the
// request path.
package pool

// Package tokencache persists bearer tokens across process restarts.
//
// The cache is a warm-start optimization, not a source of truth: every
// backend treats read failures as an empty cache, writes replace the whole
// document (last writer wins), and the file backend replaces atomically via
// a temporary file and rename. Deleting the backing store externally is
// always safe; the pool simply reissues tokens.
package tokencache

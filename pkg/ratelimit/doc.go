// Package ratelimit spaces outbound requests to stay under per-credential
// API budgets.
//
// The Pacer enforces a minimum interval between requests from one handle
// and adds a progressive delay on long runs. It deliberately does not model
// the server's actual limit; hitting a 429 is handled by credential
// rotation, the pacer just keeps a single handle from burning through a
// credential's budget needlessly fast.
package ratelimit

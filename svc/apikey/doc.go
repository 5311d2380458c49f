// Package apikey issues and verifies API keys.
//
// A key is "otto_" followed by 32 hex characters drawn from crypto/rand.
// Verification resolves the key to a principal only when the key is active
// and not expired and its owner is active and holds the api:access
// permission. Every successful verification stamps last_used_at; concurrent
// verifications of one key may race on that stamp.
package apikey

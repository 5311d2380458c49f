// Package redis connects go-redis clients with retry and exposes a health probe.
//
// Redis is optional for otto: when REDIS_URL is empty the caller keeps the
// in-memory implementations (login rate limiting) and never calls Connect.
package redis

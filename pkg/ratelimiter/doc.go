// Package ratelimiter counts attempts per key in fixed time windows.
//
// A Limiter allows at most Config.Limit hits per key within Config.Window.
// State lives in a Store: MemoryStore for single instances and RedisStore when
// several otto processes share a limit. Middleware applies a Limiter to HTTP
// routes and sets the X-RateLimit-* headers.
//
//	limiter, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Limit:  10,
//		Window: 15 * time.Minute,
//	})
package ratelimiter

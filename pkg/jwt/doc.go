// Package jwt signs and verifies HS256 tokens with github.com/golang-jwt/jwt/v5.
//
// Service pins the signing method, requires an expiration claim and checks
// issued-at on every Parse, so a tampered, expired or unsigned token never
// yields claims. Callers define their own claims type by embedding
// RegisteredClaims.
//
//	type Claims struct {
//		jwt.RegisteredClaims
//		Role string `json:"role"`
//	}
//
//	svc, _ := jwt.NewFromString(os.Getenv("JWT_SECRET"))
//	token, _ := svc.Generate(Claims{RegisteredClaims: jwt.Expiring(time.Now(), 24*time.Hour)})
//
//	var c Claims
//	if err := svc.Parse(token, &c); err != nil {
//		// errors.Is(err, jwt.ErrExpiredToken) ...
//	}
//
// Token extractors read the raw token from an Authorization header or a cookie.
package jwt

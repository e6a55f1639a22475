// Package middleware contains the echo middleware shared by the HTTP
// routes: bearer token identity, role checks, the Redis token bucket and
// the Redis response cache.
package middleware

import (
	"net/http" // status codes for rejected requests
	"strings"  // Bearer prefix handling

	"github.com/golang-jwt/jwt/v5" // token parsing and claim validation
	"github.com/labstack/echo/v4"  // middleware signature
)

// JWTAuth validates an HS256 bearer token and stores its subject as the
// holder id and its role claim in the request context.  Tokens are issued
// by the external identity provider; the subject is trusted as opaque.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// The header must look like "Bearer <jwt>".
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse and verify the signature.  WithValidMethods pins HS256
			// so a token signed with "none" or an RSA key is refused, and
			// the library checks exp on the way.
			claims := jwt.MapClaims{}
			tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			// The subject is the holder id every reservation is keyed by.
			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			role, _ := claims["role"].(string)

			// Expose the identity to handlers through HolderID and Role.
			c.Set(holderKey, sub)
			c.Set(roleKey, role)
			return next(c)
		}
	}
}

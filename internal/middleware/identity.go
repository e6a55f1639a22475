package middleware

import "github.com/labstack/echo/v4"

// Roles carried in the "role" claim of access tokens.
const (
	RoleCustomer = "CUSTOMER"
	RolePayment  = "PAYMENT"
)

// Context keys set by JWTAuth.
const (
	holderKey = "holder_id"
	roleKey   = "role"
)

// HolderID returns the authenticated holder id, or "" when the request is
// anonymous.
func HolderID(c echo.Context) string {
	s, _ := c.Get(holderKey).(string)
	return s
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(roleKey).(string)
	return s
}

// principal is the identity used to partition rate limit buckets.
func principal(c echo.Context) string {
	if id := HolderID(c); id != "" {
		return id
	}
	return "anon"
}

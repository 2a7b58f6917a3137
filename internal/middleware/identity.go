package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const identityKey = "identity"

// IdentityFrom returns the identity JWTAuth stored for this request.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	who, ok := c.Get(identityKey).(model.Identity)
	return who, ok && who.UserID != 0
}

// userID is the rate-limit key component for the caller; anonymous
// requests share "anon".
func userID(c echo.Context) string {
	if who, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(who.UserID, 10)
	}
	return "anon"
}

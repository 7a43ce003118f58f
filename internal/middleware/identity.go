package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// UserIDContextKey is where Identity stores the caller's user id.
const UserIDContextKey = "user_id"

const (
	identityCookieName = "qd_session"
	identityMaxAge     = 30 * 24 * 60 * 60
)

// Identity attaches a stable user id to every request. Known users come
// back through the session cookie; first-time visitors get a generated id.
// A reverse proxy that authenticates upstream may override the id with the
// X-User-ID header.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if headerID := c.Request().Header.Get("X-User-ID"); headerID != "" {
				c.Set(UserIDContextKey, headerID)
				return next(c)
			}

			// A decode error still yields a fresh session, so a corrupt
			// cookie cannot lock the client out.
			sess, _ := session.Get(identityCookieName, c)
			if sess == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "could not establish identity")
			}
			userID, _ := sess.Values[UserIDContextKey].(string)
			if userID == "" {
				userID = uuid.New().String()
				sess.Values[UserIDContextKey] = userID
				sess.Options = &sessions.Options{
					Path:     "/",
					MaxAge:   identityMaxAge,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				}
				if err := sess.Save(c.Request(), c.Response()); err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "could not establish identity")
				}
			}
			c.Set(UserIDContextKey, userID)
			return next(c)
		}
	}
}

// GetUserID returns the request's user id, empty when Identity did not run.
func GetUserID(c echo.Context) string {
	userID, _ := c.Get(UserIDContextKey).(string)
	return userID
}

package clubsite

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const sessionName = "club_session"

const (
	flashSuccess = "success"
	flashError   = "error"
)

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// CurrentViewer returns the signed-in account, or nil.
func CurrentViewer(c echo.Context) *Viewer {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return nil
	}
	id, _ := sess.Values["account_id"].(string)
	if id == "" {
		return nil
	}
	email, _ := sess.Values["email"].(string)
	role, _ := sess.Values["role"].(string)
	return &Viewer{ID: id, Email: email, Role: role}
}

// IsAdmin checks if the current session belongs to an administrator.
func IsAdmin(c echo.Context) bool {
	return CurrentViewer(c).IsAdmin()
}

func setViewer(c echo.Context, acc Account) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["account_id"] = acc.ID
	sess.Values["email"] = acc.Email
	sess.Values["role"] = acc.Role
	return sess.Save(c.Request(), c.Response())
}

// clearViewer signs the user out but keeps the session so a flash survives.
func clearViewer(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, "account_id")
	delete(sess.Values, "email")
	delete(sess.Values, "role")
	return sess.Save(c.Request(), c.Response())
}

func addFlash(c echo.Context, kind, msg string) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return
	}
	sess.AddFlash(msg, kind)
	_ = sess.Save(c.Request(), c.Response())
}

// popFlashes consumes pending flashes. It writes the session cookie, so
// call it before the response body is started.
func popFlashes(c echo.Context) []Flash {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return nil
	}
	var out []Flash
	for _, kind := range []string{flashSuccess, flashError} {
		for _, v := range sess.Flashes(kind) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		_ = sess.Save(c.Request(), c.Response())
	}
	return out
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}

// safeNext returns next if it is a local path, otherwise fallback.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	return next
}

// requireAdmin sends anyone without the admin role to the sign-in page.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		v := CurrentViewer(c)
		if v.IsAdmin() {
			return next(c)
		}
		if v != nil {
			addFlash(c, flashError, "Your account does not have admin access.")
			return c.Redirect(http.StatusSeeOther, "/")
		}
		target := "/auth/"
		if c.Request().Method == http.MethodGet {
			target += "?next=" + url.QueryEscape(c.Request().URL.Path)
		}
		return c.Redirect(http.StatusSeeOther, target)
	}
}

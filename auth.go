package clubsite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// EnsureAdmin creates an admin account for email unless one exists. It
// reports whether an account was created. An existing non-admin account
// with the same email is an error.
func EnsureAdmin(ctx context.Context, b Backend, email, password string) (bool, error) {
	acc, err := b.GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		if acc.Role != RoleAdmin {
			return false, fmt.Errorf("account %s exists with role %q", acc.Email, acc.Role)
		}
		return false, nil
	case !errors.Is(err, ErrNotFound):
		return false, fmt.Errorf("look up account: %w", err)
	}
	if len(password) < 6 {
		return false, errors.New("admin password must be at least 6 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	acc = Account{Email: email, PasswordHash: hash, Role: RoleAdmin}
	if err := b.CreateAccount(ctx, &acc); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func (a *App) renderAuth(c echo.Context, code int, p AuthPage) error {
	title := "Sign in"
	if p.Mode == "signup" {
		title = "Sign up"
	}
	p.Next = safeNext(p.Next, "")
	p.Page = a.newPage(c, title, "Sign in to the "+a.Config.Name+" website.")
	return RenderStatus(c, code, a.Views.Auth(p))
}

func (a *App) handleAuth(c echo.Context) error {
	if v := CurrentViewer(c); v != nil {
		if v.IsAdmin() {
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return c.Redirect(http.StatusSeeOther, "/")
	}
	mode := "login"
	if c.QueryParam("mode") == "signup" {
		mode = "signup"
	}
	return a.renderAuth(c, http.StatusOK, AuthPage{Mode: mode, Next: c.QueryParam("next")})
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return a.renderAuth(c, http.StatusTooManyRequests, AuthPage{
			Mode:  "login",
			Error: "Too many sign-in attempts. Try again in a minute.",
		})
	}

	var f AuthForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.Email = strings.TrimSpace(f.Email)
	page := AuthPage{Mode: "login", Email: f.Email, Next: f.Next}
	if err := c.Validate(&f); err != nil {
		page.Errors = fieldErrors(err)
		return a.renderAuth(c, http.StatusUnprocessableEntity, page)
	}

	acc, err := a.Backend.GetAccountByEmail(c.Request().Context(), f.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("look up account: %w", err)
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(f.Password)) != nil {
		a.loginLimiter.Record(ip)
		a.Log.Warn().Str("ip", ip).Msg("failed sign-in")
		page.Error = "Invalid email or password."
		return a.renderAuth(c, http.StatusUnauthorized, page)
	}

	if err := setViewer(c, acc); err != nil {
		return err
	}
	addFlash(c, flashSuccess, "Signed in as "+acc.Email+".")
	fallback := "/"
	if acc.Role == RoleAdmin {
		fallback = "/admin/"
	}
	return c.Redirect(http.StatusSeeOther, safeNext(f.Next, fallback))
}

func (a *App) handleSignup(c echo.Context) error {
	var f AuthForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.Email = strings.TrimSpace(f.Email)
	page := AuthPage{Mode: "signup", Email: f.Email, Next: f.Next}
	if err := c.Validate(&f); err != nil {
		page.Errors = fieldErrors(err)
		return a.renderAuth(c, http.StatusUnprocessableEntity, page)
	}

	hash, err := HashPassword(f.Password)
	if err != nil {
		return err
	}
	acc := Account{Email: f.Email, PasswordHash: hash, Role: RoleMember}
	if err := a.Backend.CreateAccount(c.Request().Context(), &acc); err != nil {
		if errors.Is(err, ErrDuplicate) {
			page.Error = "An account with this email already exists."
			return a.renderAuth(c, http.StatusConflict, page)
		}
		return fmt.Errorf("create account: %w", err)
	}

	if err := setViewer(c, acc); err != nil {
		return err
	}
	addFlash(c, flashSuccess, "Welcome to "+a.Club().Name+"!")
	return c.Redirect(http.StatusSeeOther, safeNext(f.Next, "/"))
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearViewer(c); err != nil {
		return err
	}
	addFlash(c, flashSuccess, "Signed out.")
	return c.Redirect(http.StatusSeeOther, "/")
}

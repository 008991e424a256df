package app

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"recruitment-portal/internal/auth"
)

const (
	identityKey     = "identity"
	sessionCookie   = "session"
	stateCookie     = "oauth_state"
	stateCookieSecs = 600
)

// RequireAuth accepts a session token from the Authorization header
// ("Bearer <token>") or the session cookie.
func (a *App) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		who, err := a.Sessions.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, who)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := identity(c)
		if !ok || !who.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

func bearer(c *gin.Context) (string, bool) {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.Fields(h)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return cookie, true
	}
	return "", true
}

func identity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	who, ok := v.(auth.Identity)
	return who, ok
}

// GET /auth/google/login
func (a *App) GoogleLoginHandler(c *gin.Context) {
	if a.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google sign-in not configured"})
		return
	}
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateCookieSecs, "/", "", a.SecureCookie, true)
	c.Redirect(http.StatusFound, a.Google.AuthURL(state))
}

// GET /oauth2callback
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google sign-in not configured"})
		return
	}

	want, err := c.Cookie(stateCookie)
	if err != nil || want == "" || c.Query("state") != want {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	user, err := a.Google.Exchange(c.Request.Context(), code)
	if err != nil {
		a.Log.Warn("google sign-in failed", slog.String("error", err.Error()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign-in failed"})
		return
	}

	token, who, err := a.Sessions.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		a.fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, "", -1, "/", "", a.SecureCookie, true)
	c.SetCookie(sessionCookie, token, int(a.Sessions.TTL().Seconds()), "/", "", a.SecureCookie, true)

	a.Log.Info("signed in", slog.String("user_id", who.ID), slog.String("role", string(who.Role)))
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: int(a.Sessions.TTL().Seconds()),
		User:      meOf(who),
	})
}

package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	sfsession "github.com/angelmondragon/storefront-backend/internal/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/session"
)

// SessionResolver returns the live session for an id.
type SessionResolver interface {
	Get(ctx context.Context, id string) (*sfsession.Session, error)
}

// Session binds every request to a storefront session. A missing, expired or
// tampered cookie starts a fresh session and re-issues the cookie.
func Session(cfg config.SessionConfig, sessions SessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return sessionMiddleware(cfg, sessions, logg, time.Now)
}

func sessionMiddleware(cfg config.SessionConfig, sessions SessionResolver, logg *logger.Logger, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
				claims, parseErr := session.Parse(cfg, cookie.Value)
				if parseErr == nil {
					sessionID = claims.SessionID
				} else if logg != nil {
					logg.Debug(logg.WithField(ctx, "reason", parseErr.Error()), "session.cookie_rejected")
				}
			}

			if sessionID == "" {
				sessionID = session.NewID()
				token, err := session.Mint(cfg, now(), sessionID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue session"))
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.SecureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sess, err := sessions.Get(ctx, sessionID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithSession(ctx, sess)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sess.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	sfsession "github.com/angelmondragon/storefront-backend/internal/session"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func sessionFrom(r *http.Request) (*sfsession.Session, error) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	return sess, nil
}

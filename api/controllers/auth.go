package controllers

import (
	"net/http"

	"github.com/geoinstrumentos/catalog-backend/api/middleware"
	"github.com/geoinstrumentos/catalog-backend/api/responses"
	"github.com/geoinstrumentos/catalog-backend/api/validators"
	"github.com/geoinstrumentos/catalog-backend/internal/auth"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"github.com/geoinstrumentos/catalog-backend/pkg/redis"
)

// AuthLogin checks the submitted pair and sets the admin cookie. A failed
// attempt answers 401 with the generic incorrect-credentials message.
// limiter may be nil; when set, a successful login clears the caller's window.
func AuthLogin(gate *auth.Gate, limiter redis.RateLimiter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gate == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth gate unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := gate.Login(w, body.Username, body.Password)
		if !result.Success {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, result.Error))
			return
		}

		if limiter != nil {
			if err := limiter.Reset(r.Context(), middleware.LoginScope(r)); err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "auth.rate_limit.reset_failed")
			}
		}
		if logg != nil {
			logg.Info(r.Context(), "auth.login")
		}
		responses.WriteSuccess(w, result)
	}
}

func AuthLogout(gate *auth.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gate == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth gate unavailable"))
			return
		}
		gate.ClearSession(w)
		responses.WriteSuccess(w, auth.SessionStatus{Authenticated: false})
	}
}

func AuthSession(gate *auth.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gate == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth gate unavailable"))
			return
		}
		responses.WriteSuccess(w, auth.SessionStatus{Authenticated: gate.IsSessionValid(r)})
	}
}

package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/geoinstrumentos/catalog-backend/api/responses"
	"github.com/geoinstrumentos/catalog-backend/internal/auth"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
)

const AdminAPIPrefix = "/api/admin"

type sessionChecker interface {
	IsSessionValid(r *http.Request) bool
}

// RouteGuard gates the admin area. Page requests are redirected with 303 See
// Other; the admin JSON API answers 401 instead. Decisions are made on the
// cleaned path, the same one the static site resolves.
func RouteGuard(guard *auth.Guard, sessions sessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clean := path.Clean("/" + r.URL.Path)
			valid := sessions.IsSessionValid(r)

			if isAdminAPI(clean) {
				if !valid {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin session required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			switch guard.Decide(clean, valid) {
			case auth.RedirectToLogin:
				http.Redirect(w, r, guard.LoginPath(), http.StatusSeeOther)
			case auth.RedirectToLanding:
				http.Redirect(w, r, guard.LandingPath(), http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func isAdminAPI(path string) bool {
	return path == AdminAPIPrefix || strings.HasPrefix(path, AdminAPIPrefix+"/")
}

package auth

import (
	"strings"

	"github.com/geoinstrumentos/catalog-backend/pkg/config"
)

// Decision is the outcome of the route guard for one request.
type Decision int

const (
	Pass Decision = iota
	RedirectToLogin
	RedirectToLanding
)

func (d Decision) String() string {
	switch d {
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToLanding:
		return "redirect_to_landing"
	default:
		return "pass"
	}
}

// Guard decides, from the path and session validity alone, whether a request
// may proceed. It holds no state beyond its configured paths.
type Guard struct {
	prefix      string
	loginPath   string
	landingPath string
}

func NewGuard(cfg config.AdminConfig) *Guard {
	return &Guard{
		prefix:      orDefault(cfg.Prefix, "/admin"),
		loginPath:   orDefault(cfg.LoginPath, "/login"),
		landingPath: orDefault(cfg.LandingPath, orDefault(cfg.Prefix, "/admin")),
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// Decide checks the login path first so a login page placed under the admin
// prefix never redirects to itself.
func (g *Guard) Decide(path string, sessionValid bool) Decision {
	if path == g.loginPath {
		if sessionValid {
			return RedirectToLanding
		}
		return Pass
	}
	if g.IsProtected(path) && !sessionValid {
		return RedirectToLogin
	}
	return Pass
}

// IsProtected reports whether path is the admin prefix or below it.
func (g *Guard) IsProtected(path string) bool {
	if path == g.prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimRight(g.prefix, "/")+"/")
}

func (g *Guard) LoginPath() string {
	return g.loginPath
}

func (g *Guard) LandingPath() string {
	return g.landingPath
}

package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/geoinstrumentos/catalog-backend/pkg/config"
)

const (
	SessionCookieName  = "admin_auth"
	SessionCookieValue = "authenticated"

	// IncorrectCredentialsMessage does not reveal which field was wrong.
	IncorrectCredentialsMessage = "incorrect credentials"

	defaultSessionMaxAge = 7 * 24 * time.Hour
)

// Gate checks the single administrator identity and manages the session
// cookie. There is no session store: the cookie value is a fixed sentinel.
type Gate struct {
	username []byte
	password []byte
	maxAge   time.Duration
	secure   bool
}

// NewGate builds the gate from configuration. The cookie is marked Secure
// everywhere except the dev environment.
func NewGate(admin config.AdminConfig, app config.AppConfig) (*Gate, error) {
	if admin.Username == "" || admin.Password == "" {
		return nil, errors.New("admin username and password are required")
	}
	maxAge := admin.SessionMaxAge
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}
	return &Gate{
		username: []byte(admin.Username),
		password: []byte(admin.Password),
		maxAge:   maxAge,
		secure:   !app.IsDev(),
	}, nil
}

// VerifyCredentials is an exact, case-sensitive match against the configured pair.
func (g *Gate) VerifyCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), g.username)
	passOK := subtle.ConstantTimeCompare([]byte(password), g.password)
	return userOK&passOK == 1
}

func (g *Gate) IssueSession(w http.ResponseWriter) {
	http.SetCookie(w, g.cookie(SessionCookieValue, int(g.maxAge/time.Second)))
}

func (g *Gate) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, g.cookie("", -1))
}

func (g *Gate) IsSessionValid(r *http.Request) bool {
	if r == nil {
		return false
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return false
	}
	return cookie.Value == SessionCookieValue
}

// Login verifies the pair and issues the session on success. Failure is a
// result, not an error.
func (g *Gate) Login(w http.ResponseWriter, username, password string) LoginResult {
	if !g.VerifyCredentials(username, password) {
		return LoginResult{Success: false, Error: IncorrectCredentialsMessage}
	}
	g.IssueSession(w)
	return LoginResult{Success: true}
}

func (g *Gate) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

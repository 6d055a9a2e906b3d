package auth

// LoginRequest carries the submitted credential pair. Empty values are not
// rejected up front; they simply fail verification.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the declarative outcome of a login attempt.
type LoginResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SessionStatus reports whether the caller holds a valid admin session.
type SessionStatus struct {
	Authenticated bool `json:"authenticated"`
}

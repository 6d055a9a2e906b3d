package types

// Warning reports a side effect that failed without changing the outcome.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
}

type SuccessEnvelope struct {
	Success  bool      `json:"success"`
	Data     any       `json:"data"`
	Warnings []Warning `json:"warnings,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

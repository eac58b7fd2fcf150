package backend

import "fmt"

// APIError is an application-level failure declared by the backend: a
// non-2xx status, or a 2xx payload whose ok field is missing or false. The
// Message carries the server-supplied error text verbatim when present.
type APIError struct {
	Endpoint   string `json:"endpoint"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message"`
}

// Error formats backend failures for logs and UI.
func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status=%d)", e.Endpoint, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

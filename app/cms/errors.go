package cms

import (
	"errors"
	"net/http"
)

var (
	ErrNotConfigured = errors.New("CMS API configuration missing")
	ErrNotFound      = errors.New("document not found")
	ErrConnection    = errors.New("CMS API connection failed")
	ErrAuth          = errors.New("CMS API authentication failed")
	ErrUpstream      = errors.New("CMS API request failed")
)

type statusEntry struct {
	err     error
	status  int
	message string
}

var statusTable = []statusEntry{
	{ErrNotFound, http.StatusNotFound, "Document not found"},
	{ErrConnection, http.StatusServiceUnavailable, "CMS API connection failed - check PAYLOAD_API_URL"},
	{ErrAuth, http.StatusServiceUnavailable, "CMS API authentication failed"},
	{ErrNotConfigured, http.StatusInternalServerError, "CMS API configuration missing"},
}

// Status maps a client error to the HTTP status and message shown to callers.
func Status(err error) (int, string) {
	for _, entry := range statusTable {
		if errors.Is(err, entry.err) {
			return entry.status, entry.message
		}
	}
	return http.StatusInternalServerError, "Failed to fetch data from CMS"
}

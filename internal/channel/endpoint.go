// internal/channel/endpoint.go
package channel

import (
	"net/url"
	"strings"
)

const notificationsPath = "/notifications/"

// DeriveEndpoint builds the websocket channel URL for a subject from the
// base HTTP(S) service address: scheme swapped to its websocket equivalent,
// host preserved, fixed path segment plus the subject id appended.
func DeriveEndpoint(baseURL, subjectID string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" {
		return fallbackEndpoint(baseURL, subjectID)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + notificationsPath + subjectID
	return u.String()
}

// fallbackEndpoint is a naive prefix substitution for addresses the URL
// parser rejects.
func fallbackEndpoint(baseURL, subjectID string) string {
	s := baseURL
	if strings.HasPrefix(s, "https://") {
		s = "wss://" + strings.TrimPrefix(s, "https://")
	} else if strings.HasPrefix(s, "http://") {
		s = "ws://" + strings.TrimPrefix(s, "http://")
	}
	return strings.TrimSuffix(s, "/") + notificationsPath + subjectID
}

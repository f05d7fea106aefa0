package auth

import "strings"

// State is the computed login state of a session bootstrap. It is
// transient and never persisted.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
	StateLoginFailed
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoginFailed:
		return "login_failed"
	default:
		return "unknown"
	}
}

// ClassifyLanding decides whether a post-navigation location represents
// an authenticated landing. The URL markers and the authenticated-only
// element check are the only heuristics; keeping them here makes the
// substring checks unit-testable in isolation.
func ClassifyLanding(currentURL string, markers []string, hasAuthMarker bool) State {
	for _, m := range markers {
		if m != "" && strings.Contains(currentURL, m) {
			return StateAuthenticated
		}
	}
	if hasAuthMarker {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

package models

import "time"

// Cookie is one cookie record in the persisted credential file. The JSON
// shape matches what browser automation tooling emits so a credential
// captured by hand can be dropped in directly.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // unix seconds, 0 = session cookie
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// SessionCredential is the serialized authentication state reused across
// runs. Invalidated credentials are kept on disk (not deleted) so a stale
// session remains inspectable; the authenticator just won't bootstrap
// from one.
type SessionCredential struct {
	Cookies     []Cookie  `json:"cookies"`
	CapturedAt  time.Time `json:"captured_at"`
	Invalidated bool      `json:"invalidated,omitempty"`
}

// Usable reports whether the credential can seed a session bootstrap.
func (c *SessionCredential) Usable() bool {
	return c != nil && !c.Invalidated && len(c.Cookies) > 0
}

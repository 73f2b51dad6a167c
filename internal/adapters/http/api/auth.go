package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Capability is what a caller may do.
type Capability int

// Capabilities in increasing order; each implies those below it.
const (
	CapGuest Capability = iota
	CapRecruiter
	CapAdmin
)

func (c Capability) String() string {
	switch c {
	case CapAdmin:
		return "admin"
	case CapRecruiter:
		return "recruiter"
	default:
		return "guest"
	}
}

// Authorizer maps bearer tokens to capabilities. An empty token grants
// nothing.
type Authorizer struct {
	adminToken     string
	recruiterToken string
}

// Option configures a Server.
type Option func(*Server)

// WithAdminToken sets the token granting admin capability.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.auth.adminToken = token }
}

// WithRecruiterToken sets the token granting recruiter capability.
func WithRecruiterToken(token string) Option {
	return func(s *Server) { s.auth.recruiterToken = token }
}

// Capability resolves the capability carried by r.
func (a *Authorizer) Capability(r *http.Request) Capability {
	token, ok := bearer(r)
	if !ok {
		return CapGuest
	}
	switch {
	case matches(token, a.adminToken):
		return CapAdmin
	case matches(token, a.recruiterToken):
		return CapRecruiter
	default:
		return CapGuest
	}
}

// Require rejects requests below want with 401 when no token is sent
// and 403 otherwise.
func (a *Authorizer) Require(want Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "api.authorize"
			if a.Capability(r) >= want {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := bearer(r); !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="powerwatch"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
				return
			}
			writeError(w, http.StatusForbidden, "forbidden", NewKind(op+"."+want.String(), ErrForbidden))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

func matches(token, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
}

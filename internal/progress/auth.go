package progress

import (
	"net/http"
	"strings"
)

// Authenticator resolves the learner a request acts for.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// TokenAuth maps static bearer tokens to learner ids.
type TokenAuth map[string]string

func (a TokenAuth) Authenticate(r *http.Request) (string, error) {
	token, ok := bearerToken(r)
	if !ok {
		return "", ErrUnauthorized
	}
	learner, ok := a[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return learner, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

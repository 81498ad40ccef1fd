// Package auth gates the BASP instance's admin HTTP surface
// (internal/observability.AdminServer) behind a bearer token. It
// intentionally avoids policy decisions and storage concerns — the
// engine and broker never consult it; only the read-only admin routes do.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("auth: admin surface unauthorized")

// Validator validates a bearer token presented to the admin surface.
type Validator interface {
	Validate(token string) error
}

// StaticToken validates against the single shared token configured in
// InstanceConfig.AdminAuthToken. It is intended only for development and
// proofs of concept — a real deployment fronts the admin surface with
// something heavier.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(token string) error

func (f FuncValidator) Validate(token string) error {
	return f(token)
}

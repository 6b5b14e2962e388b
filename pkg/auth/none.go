package auth

import "context"

// NoneBackend is the backend for deployments without authentication. The
// pipeline never consults it; it exists so callers always hold a Backend.
type NoneBackend struct{}

func (NoneBackend) Name() string { return "none" }

func (NoneBackend) Authenticate(context.Context, string, string) (*Principal, error) {
	return nil, ErrNoCredentials
}

func (NoneBackend) Close() error { return nil }

// Package storage hands out pre-signed upload targets for media objects.
package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrEmptyKey is returned for blank object keys.
	ErrEmptyKey = errors.New("storage: empty key")
	// ErrBadSignature rejects forged or tampered upload URLs.
	ErrBadSignature = errors.New("storage: invalid signature")
	// ErrExpired rejects upload URLs past their deadline.
	ErrExpired = errors.New("storage: upload url expired")
)

// Target is where a client PUTs an object and where it is served from after.
type Target struct {
	UploadURL string
	PublicURL string
}

// Presigner issues upload targets.
type Presigner interface {
	Presign(ctx context.Context, key, contentType string) (Target, error)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", ErrEmptyKey
	}
	return key, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

package storage

import (
	"context"
	"errors"
	"fmt"
)

// Store is the string-valued key-value medium the cart and profile snapshots live in.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")

func CartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func ProfileKey(sessionID string) string {
	return fmt.Sprintf("profile:%s", sessionID)
}

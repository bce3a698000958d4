package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by repositories when a key does not resolve.
var ErrNotFound = errors.New("record not found")

// NotFound converts pgx.ErrNoRows into ErrNotFound, tagging it with the
// entity kind and key that failed to resolve. Other errors pass through.
func NotFound(err error, entity, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return err
}

// IsNotFound reports whether err (or anything it wraps) is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

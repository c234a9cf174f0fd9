// Package objectstore provides key-value blob stores addressed by slash-separated keys.
//
// Two backends are available:
//   - GormStore keeps objects in a SQL table (sqlite or postgres through gorm)
//   - FSStore keeps objects as files under a root directory
//
// Both list keys in ascending order and return ErrNotFound for absent keys.
package objectstore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates that no object exists under the key.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey indicates a key that cannot address an object.
var ErrInvalidKey = errors.New("invalid object key")

func validateKey(key string) error {
	if key == "" || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

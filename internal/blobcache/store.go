// Package blobcache persists raw JSON responses from remote lookups so that
// each lookup is paid for at most once across runs.
package blobcache

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by Store.Get when no entry exists. It is the only
// error the cache treats as a miss.
var ErrNotFound = eris.New("blobcache: entry not found")

// Namespace partitions the cache by lookup kind.
type Namespace string

// Namespaces used by the resolvers.
const (
	NamespaceGeocode Namespace = "geocode"
	NamespacePlaces  Namespace = "places"
)

// Store is a key to JSON blob persistence backend.
type Store interface {
	// Get returns the payload stored under key or ErrNotFound.
	Get(ctx context.Context, ns Namespace, key string) ([]byte, error)
	// Put stores payload under key. Existing entries are left untouched.
	Put(ctx context.Context, ns Namespace, key string, payload []byte) error
	Close() error
}

// maxAddressKeyLen keeps file-backed keys under common 255-byte name limits
// once the ".json" suffix is added.
const maxAddressKeyLen = 200

// AddressKey encodes a free-text address into a key that is safe as a file
// name. Very long addresses fall back to a SHA-256 digest.
func AddressKey(address string) string {
	key := base64.URLEncoding.EncodeToString([]byte(address))
	if len(key) <= maxAddressKeyLen {
		return key
	}
	return fmt.Sprintf("sha256-%x", sha256.Sum256([]byte(address)))
}

// PlaceKey returns the key for a place id. Place ids are already key-safe.
func PlaceKey(placeID string) string {
	return placeID
}

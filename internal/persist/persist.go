// Package persist provides the durable local blob storage used by the cart
// store. The contract is deliberately small: read and write a named blob.
// Corrupt or missing blobs are reported distinctly so callers can degrade to
// an empty state instead of failing hard.
package persist

import "errors"

// Well-known blob keys. One snapshot for the item list, one for the last
// server-confirmed order form.
const (
	KeyItems     = "minicart.items"
	KeyOrderForm = "minicart.orderform"
)

// ErrNotFound is returned by Read when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// Blobs is the persistence port consumed by the cart store.
// Implementations must allow concurrent Read/Write calls.
type Blobs interface {
	// Read returns the blob stored under key, or ErrNotFound.
	Read(key string) ([]byte, error)

	// Write stores the blob under key, replacing any previous value.
	Write(key string, data []byte) error

	// Close releases underlying resources.
	Close() error
}

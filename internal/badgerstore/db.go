// Package badgerstore keeps rooms and archived chat in an embedded Badger DB.
package badgerstore

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Open opens the database at path, or an in-memory one when inMemory is set.
func Open(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

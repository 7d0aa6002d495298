package db

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"github.com/2beens/blogposts/pkg"
)

// OpenBolt opens (or creates) the bolt database file from a bolt://<path> url.
func OpenBolt(dbURL string) (*bolt.DB, error) {
	path := BoltPath(dbURL)
	if path == "" {
		return nil, fmt.Errorf("bolt path empty in [%s]", dbURL)
	}

	if err := pkg.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("create bolt db dir: %w", err)
	}

	// the file lock is held by a single process, do not wait forever for it
	boltDB, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db %s: %w", path, err)
	}

	return boltDB, nil
}

func BoltPath(dbURL string) string {
	return strings.TrimPrefix(dbURL, "bolt://")
}

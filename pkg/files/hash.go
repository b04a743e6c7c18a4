package files

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// DefaultHashMethod is the content hash used by FileList.Hash.
const DefaultHashMethod = "sha256"

var hashMethods = map[string]func() hash.Hash{
	"sha256":   sha256.New,
	"sha3-256": sha3.New256,
	"blake2b-256": func() hash.Hash {
		h, _ := blake2b.New256(nil)
		return h
	},
}

type hashKey struct {
	method string
	path   string
	size   int64
	mtime  time.Time
}

var hashCache sync.Map

// HashFile returns the lowercase hex digest of the content of path using
// the named method ("sha256", "sha3-256" or "blake2b-256"). Results are
// memoized per path, size and modification time.
func HashFile(path, method string) (string, error) {
	newHash, ok := hashMethods[method]
	if !ok {
		return "", fmt.Errorf("hash method %q not known", method)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	key := hashKey{method: method, path: path, size: info.Size(), mtime: info.ModTime()}
	if sum, ok := hashCache.Load(key); ok {
		return sum.(string), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	hashCache.Store(key, sum)
	return sum, nil
}

package store

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/briangreenhill/topicsum/internal/summary"
)

// keyPrefix namespaces this subsystem's files so a sweep never touches
// unrelated data sharing the cache directory.
const keyPrefix = "summary_"

// FileStore implements Store with one JSON file per entry.
type FileStore struct {
	dir    string
	expiry time.Duration
}

type fileEntry struct {
	StoredAt time.Time      `json:"stored_at"`
	Result   summary.Result `json:"result"`
}

// NewFileStore creates a file-backed store rooted at dir. If dir is empty, a
// per-user default directory is used.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		usr, err := user.Current()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(usr.HomeDir, ".topicsum_cache")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, expiry: DefaultExpiry}, nil
}

// Get implements Store.
func (fs *FileStore) Get(topicID, day string) (summary.Result, bool) {
	path := fs.path(topicID, day)
	data, err := os.ReadFile(path)
	if err != nil {
		return summary.Result{}, false
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry: self-heal by treating it as a miss.
		_ = os.Remove(path)
		return summary.Result{}, false
	}
	if time.Since(entry.StoredAt) > fs.expiry {
		_ = os.Remove(path)
		return summary.Result{}, false
	}
	return entry.Result, true
}

// Put implements Store. An existing entry for the key is overwritten and the
// timestamp restarted.
func (fs *FileStore) Put(topicID, day string, res summary.Result) error {
	entry := fileEntry{StoredAt: time.Now(), Result: res}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temporary file first, then rename (atomic operation)
	path := fs.path(topicID, day)
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// SweepExpired implements Store. Unparseable entries count as expired.
func (fs *FileStore) SweepExpired() (int, error) {
	names, err := os.ReadDir(fs.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, de := range names {
		if de.IsDir() || !strings.HasPrefix(de.Name(), keyPrefix) {
			continue
		}
		path := filepath.Join(fs.dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry fileEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			if os.Remove(path) == nil {
				removed++
			}
			continue
		}
		if time.Since(entry.StoredAt) > fs.expiry {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (fs *FileStore) path(topicID, day string) string {
	return filepath.Join(fs.dir, keyPrefix+sanitizeKey(topicID)+"_"+sanitizeKey(day)+".json")
}

// sanitizeKey makes a key component safe for use as a filename.
func sanitizeKey(s string) string {
	unsafe := []string{"/", "\\", ":", "?", "&", "=", "#", "<", ">", "|", "*", "\"", " "}
	for _, char := range unsafe {
		s = strings.ReplaceAll(s, char, "-")
	}
	return s
}

package cache

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	entryExt   = ".entry"
	tempPrefix = ".tmp-"
)

// FileCache keeps one file per key in a flat directory. The file name is
// the key's SHA-256; the file holds an expiry header line followed by the
// raw value:
//
//	expires 1767225600000000000
//	<value bytes>
//
// An expiry of 0 never expires. Entries are written to a temp file and
// renamed into place, so concurrent renders never observe a partial entry.
type FileCache struct {
	dir string
}

// NewFileCache opens (and creates when needed) a file cache rooted at dir.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the directory the cache lives in.
func (c *FileCache) Dir() string { return c.dir }

// Get reads the entry for key. Expired and unreadable entries are removed
// and reported as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	expires, data, ok := decodeEntry(raw)
	if !ok || (!expires.IsZero() && time.Now().After(expires)) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return data, true, nil
}

// Set writes data under key.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = time.Now().Add(ttl).UnixNano()
	}

	tmp, err := os.CreateTemp(c.dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := fmt.Fprintf(tmp, "expires %d\n", expires); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path(key))
}

// Delete removes the entry for key.
func (c *FileCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close is a no-op.
func (c *FileCache) Close() error { return nil }

// Clear removes every entry and any temp files left by interrupted writes.
// Only entries are counted.
func (c *FileCache) Clear(_ context.Context) (int, error) {
	files, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, f := range files {
		name := f.Name()
		if f.IsDir() {
			continue
		}
		isEntry := strings.HasSuffix(name, entryExt)
		if !isEntry && !strings.HasPrefix(name, tempPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err == nil && isEntry {
			removed++
		}
	}
	return removed, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, Hash([]byte(key))+entryExt)
}

// decodeEntry splits an entry file into its expiry and value.
func decodeEntry(raw []byte) (time.Time, []byte, bool) {
	header, data, found := bytes.Cut(raw, []byte("\n"))
	if !found {
		return time.Time{}, nil, false
	}
	field, ok := strings.CutPrefix(string(header), "expires ")
	if !ok {
		return time.Time{}, nil, false
	}
	nanos, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return time.Time{}, nil, false
	}
	if nanos == 0 {
		return time.Time{}, data, true
	}
	return time.Unix(0, nanos), data, true
}

var (
	_ Cache   = (*FileCache)(nil)
	_ Clearer = (*FileCache)(nil)
)

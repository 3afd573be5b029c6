package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Library keeps each user's current uploaded book file on disk, one file per
// user. The file survives restarts so a session can be rebuilt without a new
// upload, while the paginated pages themselves are never persisted.
type Library struct {
	root string
}

// NewLibrary creates the library directory if needed and returns a Library.
func NewLibrary(root string) (*Library, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}
	return &Library{root: root}, nil
}

// Root returns the library directory.
func (l *Library) Root() string { return l.root }

// Path returns where a user's book file lives.
func (l *Library) Path(userID string) string {
	return filepath.Join(l.root, userID+".epub")
}

// Save writes a user's uploaded book, replacing any previous one, and
// returns the stored path.
func (l *Library) Save(userID string, r io.Reader) (string, error) {
	path := l.Path(userID)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create library file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write library file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// Has reports whether a stored book exists for the user.
func (l *Library) Has(userID string) bool {
	_, err := os.Stat(l.Path(userID))
	return err == nil
}

// Remove deletes a user's stored book. A missing file is not an error.
func (l *Library) Remove(userID string) error {
	err := os.Remove(l.Path(userID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DiskUsage returns the total size in bytes under the given paths. Each path
// may be a file or a directory; missing paths contribute zero.
func DiskUsage(paths ...string) int64 {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		_ = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if fi, err := d.Info(); err == nil {
				total += fi.Size()
			}
			return nil
		})
	}
	return total
}

// UserFromFilename maps a library or inbox filename back to a user ID:
// "<user><ext>" -> "<user>". Returns false when the extension does not match
// or the stem is empty.
func UserFromFilename(name, ext string) (string, bool) {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), ext) {
		return "", false
	}
	user := strings.TrimSuffix(base, filepath.Ext(base))
	if user == "" {
		return "", false
	}
	return user, true
}

package objectstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"conveyor/internal/services"
)

// Scheme prefixes every object URL produced by the store.
const Scheme = "obj"

// ErrObjectExists indicates a Put refused to replace an existing object.
var ErrObjectExists = errors.New("object already exists")

// Store is a filesystem-backed object store. Containers are directories under
// the configured root; objects are addressed as obj://<container>/<key>.
type Store struct {
	root string
}

// New creates a store rooted at dir, creating the root if needed.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "object store", "root directory is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure object store root: %w", err)
	}
	return &Store{root: dir}, nil
}

// URL builds the canonical address for an object.
func URL(container, key string) string {
	return Scheme + "://" + container + "/" + key
}

// ParseURL splits an object URL into container and key.
func ParseURL(url string) (container, key string, err error) {
	trimmed := strings.TrimSpace(url)
	prefix := Scheme + "://"
	if !strings.HasPrefix(trimmed, prefix) {
		return "", "", services.Wrap(services.ErrPayload, "", "object store", fmt.Sprintf("unsupported object URL %q", url), nil)
	}
	rest := strings.TrimPrefix(trimmed, prefix)
	container, key, found := strings.Cut(rest, "/")
	if !found || container == "" || key == "" {
		return "", "", services.Wrap(services.ErrPayload, "", "object store", fmt.Sprintf("malformed object URL %q", url), nil)
	}
	return container, key, nil
}

// EnsureContainer creates the named container if it does not exist.
func (s *Store) EnsureContainer(container string) error {
	path, err := s.containerPath(container)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("ensure container %s: %w", container, err)
	}
	return nil
}

// Put stores body under container/key and returns the object URL. When
// overwrite is false an existing object is left untouched and ErrObjectExists
// is returned.
func (s *Store) Put(container, key string, body []byte, overwrite bool) (string, error) {
	path, err := s.objectPath(container, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ensure object directory: %w", err)
	}

	if !overwrite {
		if _, statErr := os.Stat(path); statErr == nil {
			return "", fmt.Errorf("%w: %s", ErrObjectExists, URL(container, key))
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return "", fmt.Errorf("stat object: %w", statErr)
		}
	}

	// Write-then-rename keeps readers from observing partial objects.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close temp object: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("store object: %w", err)
	}
	return URL(container, key), nil
}

// Get fetches the object addressed by url.
func (s *Store) Get(url string) ([]byte, error) {
	container, key, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	path, err := s.objectPath(container, key)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "", "object store", fmt.Sprintf("object %s", url), err)
		}
		return nil, fmt.Errorf("read object %s: %w", url, err)
	}
	return body, nil
}

// Exists reports whether the object addressed by url is stored.
func (s *Store) Exists(url string) (bool, error) {
	container, key, err := ParseURL(url)
	if err != nil {
		return false, err
	}
	path, err := s.objectPath(container, key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", url, err)
	}
	return true, nil
}

// Keys lists the object keys stored in a container, sorted by name. A
// container that does not exist yet is treated as empty.
func (s *Store) Keys(container string) ([]string, error) {
	path, err := s.containerPath(container)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list container %s: %w", container, err)
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".put-") {
			continue
		}
		keys = append(keys, entry.Name())
	}
	return keys, nil
}

func (s *Store) containerPath(container string) (string, error) {
	if err := validateSegment(container); err != nil {
		return "", err
	}
	return filepath.Join(s.root, container), nil
}

func (s *Store) objectPath(container, key string) (string, error) {
	base, err := s.containerPath(container)
	if err != nil {
		return "", err
	}
	if err := validateSegment(key); err != nil {
		return "", err
	}
	return filepath.Join(base, key), nil
}

// validateSegment rejects names that would escape the store root.
func validateSegment(name string) error {
	if name == "" || name == "." || name == ".." {
		return services.Wrap(services.ErrPayload, "", "object store", fmt.Sprintf("invalid name %q", name), nil)
	}
	if strings.ContainsAny(name, `/\`) {
		return services.Wrap(services.ErrPayload, "", "object store", fmt.Sprintf("name %q must not contain path separators", name), nil)
	}
	return nil
}

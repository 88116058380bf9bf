// Package prompt loads versioned oracle prompt templates. Templates ship
// embedded in the binary; an on-disk directory can override them, in which
// case edits are picked up live via fsnotify.
package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// Store resolves oracle templates by version.
type Store struct {
	dir string // "" means embedded-only

	mu      sync.RWMutex
	cache   map[string]string
	watcher *fsnotify.Watcher
}

// NewStore creates a template store. When dir is non-empty it must exist; its
// files take precedence over the embedded templates and are watched for
// changes.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir, cache: make(map[string]string)}
	if dir == "" {
		return s, nil
	}

	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("prompt directory not usable: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch prompt directory: %w", err)
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

// Oracle returns the oracle template for the given version, e.g. "v1".
func (s *Store) Oracle(version string) (string, error) {
	name := fmt.Sprintf("oracle_%s.txt", version)

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	text, err := s.load(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cache[name] = text
	s.mu.Unlock()
	return text, nil
}

// Close stops the directory watcher, if any.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) load(name string) (string, error) {
	if s.dir != "" {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read prompt template %s: %w", name, err)
		}
		// Fall through to the embedded copy when the override file is absent.
	}

	data, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("oracle prompt template not found: %s", name)
	}
	return string(data), nil
}

func (s *Store) watch() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				name := filepath.Base(event.Name)
				s.mu.Lock()
				delete(s.cache, name)
				s.mu.Unlock()
				log.Debug().Str("template", name).Msg("Prompt template cache invalidated")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Prompt watcher error")
		}
	}
}

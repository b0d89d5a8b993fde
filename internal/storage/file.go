package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"pantry-planner/internal/logger"
)

// FileStore keeps one file per key under basePath. A fsnotify watcher reports
// edits made by other processes (another CLI run, another bot replica) to
// subscribers of the affected key.
type FileStore struct {
	basePath string
	log      *logger.Logger
	*hub

	mu      sync.Mutex
	written map[string]string // last value this process wrote per key

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileStore creates a new FileStore and ensures the base directory exists.
func NewFileStore(basePath string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FileStore{
		basePath: basePath,
		log:      log,
		hub:      newHub(),
		written:  make(map[string]string),
	}, nil
}

// fileName makes the key safe for use as a single path element.
func fileName(key string) string {
	return url.QueryEscape(key) + ".json"
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.basePath, fileName(key))
}

func (s *FileStore) Read(key string) (string, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read storage file", "key", key, "error", err)
		}
		return "", false
	}
	return string(data), true
}

// Write replaces the file atomically (temp file + rename) so readers and the
// watcher never observe a partial value.
func (s *FileStore) Write(key, value string) error {
	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	s.mu.Lock()
	s.written[key] = value
	s.mu.Unlock()

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace storage file for %s: %w", key, err)
	}

	s.notify(key)
	return nil
}

// Watch starts delivering notifications for changes made outside this
// process. It is safe to call once; Close stops it.
func (s *FileStore) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(s.basePath); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", s.basePath, err)
	}
	s.watcher = w
	s.done = make(chan struct{})

	go s.loop()
	return nil
}

func (s *FileStore) loop() {
	defer close(s.done)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) {
				continue
			}
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".tmp-") {
				continue
			}
			for _, key := range s.keys() {
				if fileName(key) == name {
					s.externalChange(key)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("file watcher error", "error", err)
		}
	}
}

// externalChange skips the echo of this process's own writes.
func (s *FileStore) externalChange(key string) {
	current, _ := s.Read(key)

	s.mu.Lock()
	last, wroteIt := s.written[key]
	if wroteIt && last == current {
		s.mu.Unlock()
		return
	}
	s.written[key] = current
	s.mu.Unlock()

	s.log.Debug("storage key changed externally", "key", key)
	s.notify(key)
}

// Close stops the watcher if one was started.
func (s *FileStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	return err
}

package script

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// scriptExtension is the only file type the loader picks up.
const scriptExtension = ".tengo"

// Loader reads rule scripts from a directory and keeps them current. Reads
// go through afero so tests can load from an in-memory filesystem; Watch
// uses fsnotify and therefore only works against the OS filesystem.
type Loader struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	scripts map[string]*Script
}

// NewLoader creates a loader over the given filesystem and directory.
func NewLoader(fs afero.Fs, dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fs:      fs,
		dir:     dir,
		logger:  logger,
		scripts: make(map[string]*Script),
	}
}

// Load scans the directory and (re)loads every script file. Scripts that
// disappeared from disk are dropped.
func (l *Loader) Load() error {
	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		return NewError(ErrorTypeNotFound, "", "reading script directory "+l.dir, err)
	}

	loaded := make(map[string]*Script)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), scriptExtension) {
			continue
		}
		s, err := l.readScript(entry.Name())
		if err != nil {
			l.logger.Warn("skipping unreadable script", "file", entry.Name(), "error", err)
			continue
		}
		loaded[s.Name] = s
	}

	l.mu.Lock()
	l.scripts = loaded
	l.mu.Unlock()

	l.logger.Info("scripts loaded", "dir", l.dir, "count", len(loaded))
	return nil
}

// Get returns a script by name (file name without extension).
func (l *Loader) Get(name string) (*Script, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.scripts[name]
	return s, ok
}

// Names lists the loaded script names.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.scripts))
	for name := range l.scripts {
		names = append(names, name)
	}
	return names
}

// Watch reloads scripts as they change on disk until the context ends.
// Reload failures are logged and the previous version stays active.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return NewError(ErrorTypeExecution, "", "creating filesystem watcher", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return NewError(ErrorTypeNotFound, "", "watching script directory "+l.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				l.handleEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("script watcher error", "error", err)
			}
		}
	}()

	l.logger.Info("script hot reload active", "dir", l.dir)
	return nil
}

func (l *Loader) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, scriptExtension) {
		return
	}
	name := strings.TrimSuffix(base, scriptExtension)

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		l.mu.Lock()
		delete(l.scripts, name)
		l.mu.Unlock()
		l.logger.Info("script removed", "script", name)
	case event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create):
		s, err := l.readScript(base)
		if err != nil {
			l.logger.Warn("script reload failed, keeping previous version",
				"script", name, "error", err)
			return
		}
		l.mu.Lock()
		previous := l.scripts[name]
		l.scripts[name] = s
		l.mu.Unlock()
		if previous == nil || previous.Checksum != s.Checksum {
			l.logger.Info("script reloaded", "script", name, "checksum", s.Checksum)
		}
	}
}

func (l *Loader) readScript(fileName string) (*Script, error) {
	path := filepath.Join(l.dir, fileName)
	content, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(content)
	return &Script{
		Name:       strings.TrimSuffix(fileName, scriptExtension),
		Content:    string(content),
		Checksum:   hex.EncodeToString(sum[:8]),
		ModifiedAt: info.ModTime(),
	}, nil
}

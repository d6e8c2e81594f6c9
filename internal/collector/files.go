package collector

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/aurasync/internal/classifier"
	"github.com/fakeyudi/aurasync/internal/logging"
	"github.com/fakeyudi/aurasync/internal/signal"
)

// IgnoreFiles are read from the watched directory for extra patterns.
var IgnoreFiles = []string{".gitignore", ".aurasyncignore"}

// skipDirs are never watched.
var skipDirs = map[string]bool{
	".git":    true,
	"Library": true,
	"Temp":    true,
	"Logs":    true,
	"obj":     true,
}

// FileWatchSource turns file system changes under WorkDir into raw
// signals. It watches every directory recursively, including ones created
// after Start.
type FileWatchSource struct {
	WorkDir        string
	IgnorePatterns []string
	Logger         *slog.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	patterns []string
	done     chan struct{}
}

// Name implements signal.Source.
func (fw *FileWatchSource) Name() string { return "files" }

// Start implements signal.Source.
func (fw *FileWatchSource) Start(ctx context.Context, emit signal.EmitFunc) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.watcher != nil {
		return fmt.Errorf("file watcher already started")
	}
	if fw.Logger == nil {
		fw.Logger = logging.Discard()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}

	patterns, err := fw.loadIgnorePatterns()
	if err != nil {
		// Non-fatal: continue with configured patterns only.
		fw.Logger.Warn("failed to load ignore patterns", "error", err)
	}
	fw.patterns = patterns

	if err := fw.addTree(watcher, fw.WorkDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", fw.WorkDir, err)
	}

	fw.watcher = watcher
	fw.done = make(chan struct{})
	go fw.loop(ctx, watcher, fw.done, emit)
	return nil
}

// Stop implements signal.Source.
func (fw *FileWatchSource) Stop() {
	fw.mu.Lock()
	w, done := fw.watcher, fw.done
	fw.watcher = nil
	fw.mu.Unlock()
	if w == nil {
		return
	}
	w.Close()
	<-done
}

// addTree walks root and adds a watch for every directory not skipped.
func (fw *FileWatchSource) addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (skipDirs[d.Name()] || fw.isIgnored(path, fw.patterns)) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func (fw *FileWatchSource) loop(ctx context.Context, w *fsnotify.Watcher, done chan struct{}, emit signal.EmitFunc) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if fw.isIgnored(event.Name, fw.patterns) {
				continue
			}
			// New directories are watched too.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addTree(w, event.Name); err != nil {
						fw.Logger.Debug("watching new directory failed", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if sig, ok := fw.translate(event); ok {
				emit(sig)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			// Watcher errors are non-fatal; continue watching.
			fw.Logger.Debug("file watcher error", "error", err)
		}
	}
}

// translate maps one fsnotify event to a raw signal.
func (fw *FileWatchSource) translate(ev fsnotify.Event) (signal.RawSignal, bool) {
	entity := fw.entity(ev.Name)
	ext := strings.ToLower(filepath.Ext(ev.Name))
	switch {
	case ev.Has(fsnotify.Create):
		return signal.RawSignal{Kind: signal.AssetImported, Entity: entity, IsWrite: true}, true
	case ev.Has(fsnotify.Write):
		switch ext {
		case classifier.CodeExt:
			return signal.RawSignal{Kind: signal.CodeSaved, Entity: entity, IsWrite: true}, true
		case classifier.SceneExt:
			return signal.RawSignal{Kind: signal.SceneSaved, Entity: entity, IsWrite: true}, true
		}
		return signal.RawSignal{Kind: signal.ProjectChanged, Entity: entity, IsWrite: true}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return signal.RawSignal{Kind: signal.ProjectChanged, Entity: entity, IsWrite: true, Detail: ev.Op.String()}, true
	}
	return signal.RawSignal{}, false
}

// entity is the slash-separated path relative to WorkDir.
func (fw *FileWatchSource) entity(path string) string {
	if r, err := filepath.Rel(fw.WorkDir, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(path)
}

// isIgnored reports whether path matches any of the given glob patterns.
func (fw *FileWatchSource) isIgnored(path string, patterns []string) bool {
	rel := path
	if fw.WorkDir != "" {
		if r, err := filepath.Rel(fw.WorkDir, path); err == nil {
			rel = r
		}
	}
	base := filepath.Base(path)

	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(strings.TrimPrefix(pattern, "/"), "/")
		if pattern == "" {
			continue
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// loadIgnorePatterns merges the configured patterns with those from the
// ignore files found in the working directory.
func (fw *FileWatchSource) loadIgnorePatterns() ([]string, error) {
	patterns := make([]string, len(fw.IgnorePatterns))
	copy(patterns, fw.IgnorePatterns)

	for _, name := range IgnoreFiles {
		extra, err := readPatternFile(filepath.Join(fw.WorkDir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return patterns, err
		}
		patterns = append(patterns, extra...)
	}
	return patterns, nil
}

// readPatternFile reads a gitignore-style file and returns non-empty, non-comment lines.
func readPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

package collector

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Environment answers questions about the host at the moment a heartbeat
// is assembled.
type Environment interface {
	Branch() string
	HostVersion() string
	Platform() string
	ProductName() string
	SceneName() string
	FocusedWindow() string
	CurrentEntity() string
}

// HostEnv is the Environment for a project on disk. Scene and window come
// from the host through SetScene and SetWindow; the branch comes from git.
type HostEnv struct {
	WorkDir string
	Product string
	Version string
	Runner  GitRunner // if nil, uses the real git subprocess
	Logger  *slog.Logger

	mu        sync.RWMutex
	scenePath string
	window    string
}

// NewHostEnv returns a HostEnv for workDir.
func NewHostEnv(workDir, product, version string, logger *slog.Logger) *HostEnv {
	return &HostEnv{WorkDir: workDir, Product: product, Version: version, Logger: logger}
}

// Branch implements Environment. Lookup failures yield "".
func (e *HostEnv) Branch() string {
	if e.WorkDir == "" {
		return ""
	}
	b, err := LookupBranch(e.WorkDir, e.Runner)
	if err != nil {
		if !errors.Is(err, ErrNotRepository) && e.Logger != nil {
			e.Logger.Warn("git branch lookup failed", "dir", e.WorkDir, "error", err)
		}
		return ""
	}
	return b
}

// HostVersion implements Environment.
func (e *HostEnv) HostVersion() string { return e.Version }

// Platform implements Environment.
func (e *HostEnv) Platform() string {
	return fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
}

// ProductName implements Environment. It falls back to the project
// directory name.
func (e *HostEnv) ProductName() string {
	if e.Product != "" {
		return e.Product
	}
	if e.WorkDir != "" {
		if abs, err := filepath.Abs(e.WorkDir); err == nil {
			return filepath.Base(abs)
		}
	}
	return ""
}

// SceneName implements Environment: the active scene file name without
// its extension.
func (e *HostEnv) SceneName() string {
	e.mu.RLock()
	p := e.scenePath
	e.mu.RUnlock()
	if p == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// FocusedWindow implements Environment.
func (e *HostEnv) FocusedWindow() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.window
}

// CurrentEntity implements Environment: the active scene path, else the
// product name.
func (e *HostEnv) CurrentEntity() string {
	e.mu.RLock()
	p := e.scenePath
	e.mu.RUnlock()
	if p != "" {
		return p
	}
	return e.ProductName()
}

// SetScene records the active scene path.
func (e *HostEnv) SetScene(p string) {
	e.mu.Lock()
	e.scenePath = p
	e.mu.Unlock()
}

// SetWindow records the focused window.
func (e *HostEnv) SetWindow(w string) {
	e.mu.Lock()
	e.window = w
	e.mu.Unlock()
}

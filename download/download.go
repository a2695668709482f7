// Package download manages where downloads are written: files are streamed into a private temporary directory and only
// renamed into the target directory once complete, so a target file that exists is always a whole file.
package download

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var (
	ErrInvalidName = errors.New("target name escapes the target directory")
)

type downloadConfig struct {
	baseTargetDir string
	baseTempDir   string
}

type DownloadConfigOption func(*downloadConfig)

func WithTargetDir(dir string) DownloadConfigOption {
	return func(c *downloadConfig) {
		c.baseTargetDir = dir
	}
}

// WithTempDir sets where the temporary directory is created. It must be on the same filesystem as the target
// directory for renames to be atomic, which is why it defaults to the target directory itself.
func WithTempDir(dir string) DownloadConfigOption {
	return func(c *downloadConfig) {
		c.baseTempDir = dir
	}
}

type DownloadState struct {
	config  downloadConfig
	tempDir string
}

func newDownloadState(config downloadConfig) (*DownloadState, error) {
	// Create target directory
	if err := os.MkdirAll(config.baseTargetDir, 0755); err != nil {
		return nil, err
	}
	if config.baseTempDir == "" {
		config.baseTempDir = config.baseTargetDir
	} else if err := os.MkdirAll(config.baseTempDir, 0755); err != nil {
		return nil, err
	}
	// Create temporary directory
	tempDir, err := os.MkdirTemp(config.baseTempDir, ".tiktok-archiver-*")
	if err != nil {
		return nil, err
	}
	state := &DownloadState{
		config:  config,
		tempDir: tempDir,
	}
	return state, nil
}

func (s *DownloadState) close() {
	// Clean up temporary directory
	if err := os.RemoveAll(s.tempDir); err != nil {
		zap.S().Named("download").Warnf("failed to clean up temporary directory %s: %v", s.tempDir, err)
	}
}

func (s *DownloadState) TargetDir() string {
	return s.config.baseTargetDir
}

// TargetPath resolves a slash-separated name relative to the target directory.
func (s *DownloadState) TargetPath(name string) (string, error) {
	local := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.config.baseTargetDir, local), nil
}

// Exists reports whether the named target file is already present.
func (s *DownloadState) Exists(name string) (bool, error) {
	p, err := s.TargetPath(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err == nil {
		return true, nil
	} else if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else {
		return false, err
	}
}

func (s *DownloadState) CreateTemp(pattern string) (*os.File, error) {
	return os.CreateTemp(s.tempDir, pattern)
}

// Discard closes and deletes a file from CreateTemp.
func (s *DownloadState) Discard(f *os.File) {
	_ = f.Close()
	_ = os.Remove(f.Name())
}

// Commit flushes and closes a file from CreateTemp, then moves it to the named target path, returning that path. The
// temporary file is removed if anything fails.
func (s *DownloadState) Commit(f *os.File, name string) (string, error) {
	target, err := s.TargetPath(name)
	if err != nil {
		s.Discard(f)
		return "", err
	}
	if err := f.Sync(); err != nil {
		s.Discard(f)
		return "", fmt.Errorf("failed to flush %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to close %s: %w", f.Name(), err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := os.Rename(f.Name(), target); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return target, nil
}

// WithDownloadState prepares the target and temporary directories, runs f, and then removes the temporary directory.
func WithDownloadState(f func(state *DownloadState) error, opts ...DownloadConfigOption) error {
	config := downloadConfig{
		baseTargetDir: ".",
	}
	for _, opt := range opts {
		opt(&config)
	}
	if state, err := newDownloadState(config); err != nil {
		return err
	} else {
		defer state.close()
		return f(state)
	}
}

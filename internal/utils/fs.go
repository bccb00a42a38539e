package utils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// DirCheckResult reports whether a directory exists (or could be created)
// and accepts writes.
type DirCheckResult struct {
	Exists   bool
	Writable bool
	Error    error
}

// FileExists reports whether path can be stat'ed.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates dirPath and its parents when missing.
func EnsureDir(dirPath string) error {
	return os.MkdirAll(dirPath, 0o755)
}

// SaveTOMLFile encodes data and replaces filePath with it. The file is
// written next to its destination and renamed, so readers never see a
// half-written config.
func SaveTOMLFile(data any, filePath string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("encoding %s: %w", filePath, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".wordtree-*.toml")
	if err != nil {
		log.Errorf("Failed to create file next to %s: %v", filePath, err)
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

// GetAbsolutePath returns path made absolute, or "unknown" for an empty path.
func GetAbsolutePath(path string) string {
	if path == "" {
		return "unknown"
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// writable probes dirPath with a throwaway file.
func writable(dirPath string) bool {
	f, err := os.CreateTemp(dirPath, ".write_test-*")
	if err != nil {
		log.Warnf("Cannot write to directory %s: %v", dirPath, err)
		return false
	}
	f.Close()
	os.Remove(f.Name())
	return true
}

// GetExecutableDir returns the directory holding the running binary.
// Config and data lookups fall back to it when the home dir is unusable.
func GetExecutableDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(execPath), nil
}

// CheckDirStatus creates dirPath if needed and probes it for writes.
func CheckDirStatus(dirPath string) DirCheckResult {
	if err := EnsureDir(dirPath); err != nil {
		log.Warnf("Cannot create directory %s: %v", dirPath, err)
		return DirCheckResult{Error: err}
	}
	return DirCheckResult{Exists: true, Writable: writable(dirPath)}
}

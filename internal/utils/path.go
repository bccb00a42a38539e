package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver resolves data and config paths relative to the executable,
// the working directory and the user config dir.
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		homeDir:       homeDir,
		configDir:     getConfigDir(homeDir),
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "wordtree")
		}
		return filepath.Join(homeDir, ".config", "wordtree")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "wordtree")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "wordtree")
	default:
		return filepath.Join(homeDir, ".config", "wordtree")
	}
}

// GetDataPath resolves a dictionary file or directory. It tries, in order:
// 1. The path itself (absolute, or relative to the working directory)
// 2. Relative to the executable directory
// 3. Inside the config directory
func (pr *PathResolver) GetDataPath(userSpecifiedPath string) (string, error) {
	candidates := []string{userSpecifiedPath}
	if !filepath.IsAbs(userSpecifiedPath) {
		candidates = append(candidates,
			filepath.Join(pr.executableDir, userSpecifiedPath),
			filepath.Join(pr.configDir, userSpecifiedPath),
		)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			log.Debugf("Found data path: %s", path)
			return path, nil
		}
		log.Debugf("Data path candidate missing: %s", path)
	}
	return "", os.ErrNotExist
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver provides robust path resolution for the nextserve binaries
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	// Resolve any symlinks to get the actual binary location
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}
	execDir := filepath.Dir(execPath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  execDir,
		homeDir:        homeDir,
		configDir:      getConfigDir(homeDir),
	}

	log.Debugf("PathResolver initialized: exec=%s, execDir=%s, configDir=%s",
		execPath, execDir, pr.configDir)

	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, ".config", "nextserve")
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "nextserve")
		}
		return filepath.Join(homeDir, ".config", "nextserve")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "nextserve")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "nextserve")
	default:
		return filepath.Join(homeDir, ".nextserve")
	}
}

// ResolveStorePath finds the n-gram store file.
// Candidates in order: the path as given (absolute or cwd-relative),
// relative to the executable directory, then under the config data dir.
// Returns the first candidate that exists, or the original path so the
// caller can report a sensible "not found" location.
func (pr *PathResolver) ResolveStorePath(path string) string {
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		candidates = append(candidates,
			filepath.Join(pr.executableDir, path),
			filepath.Join(pr.configDir, "data", path),
		)
	}
	for _, candidate := range candidates {
		if FileExists(candidate) {
			log.Debugf("Resolved store path: %s", candidate)
			return candidate
		}
		log.Debugf("Store path candidate not found: %s", candidate)
	}
	return path
}

// ResolveWritablePath places a file the program creates (user dictionary,
// default config). Absolute paths are kept; relative paths land in the
// config data dir when writable, else next to the executable.
func (pr *PathResolver) ResolveWritablePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	dataDir := filepath.Join(pr.configDir, "data")
	if DirWritable(dataDir) {
		return filepath.Join(dataDir, path)
	}
	log.Warnf("Config data dir %s not writable, using executable dir", dataDir)
	return filepath.Join(pr.executableDir, path)
}

// GetConfigPath returns the full path for a config file, with fallbacks when
// the config directory cannot be written.
func (pr *PathResolver) GetConfigPath(filename string) (string, error) {
	if DirWritable(pr.configDir) {
		return filepath.Join(pr.configDir, filename), nil
	}
	fallbackDirs := []string{
		filepath.Join(pr.homeDir, ".nextserve"),
		filepath.Join(os.TempDir(), "nextserve"),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if DirWritable(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path, nil
		}
	}
	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath, nil
}

// GetExecutableDir returns the directory containing the executable
func (pr *PathResolver) GetExecutableDir() string {
	return pr.executableDir
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

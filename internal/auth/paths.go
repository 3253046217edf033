package auth

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
)

const (
	cacheDirName  = "tickmcp"
	tokenFileName = "ticktick.token"
)

// DefaultTokenPath is where the token is stored when no token file is
// configured.
func DefaultTokenPath() string {
	return filepath.Join(userCacheDir(), cacheDirName, tokenFileName)
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return filepath.Join(homeDir(), "AppData", "Local")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	dir, err := homedir.Dir()
	if err != nil {
		return os.TempDir()
	}
	return dir
}

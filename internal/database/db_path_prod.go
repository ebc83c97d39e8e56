//go:build prod

package database

import (
	"log"
	"os"
	"path/filepath"
)

// AppDataDir returns <user config dir>/alignstudio, creating it when needed.
// Falls back to the working directory.
func AppDataDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Printf("Warning: Failed to get user config dir: %v. Using fallback.", err)
		return "."
	}

	appDir := filepath.Join(configDir, "alignstudio")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		log.Printf("Warning: Failed to create app config dir: %v. Using fallback.", err)
		return "."
	}
	return appDir
}

// GetDefaultDBPath returns the database path for production mode.
func GetDefaultDBPath() string {
	return filepath.Join(AppDataDir(), "alignstudio.db")
}

func IsDevelopment() bool {
	return false
}

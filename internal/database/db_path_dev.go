//go:build !prod

package database

import "path/filepath"

// AppDataDir is the directory holding the database and exports.
// In dev mode it is the working directory so files are easy to inspect.
func AppDataDir() string {
	return "."
}

// GetDefaultDBPath returns the database path for development mode.
func GetDefaultDBPath() string {
	return filepath.Join(AppDataDir(), "alignstudio.db")
}

func IsDevelopment() bool {
	return true
}

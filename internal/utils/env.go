package utils

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFileVar names an explicit .env file to load before the defaults.
const EnvFileVar = "ALIGNSTUDIO_ENV_FILE"

// FindProjectRoot walks up from the working directory to the nearest go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// EnvFiles lists candidate .env files in load order: the file named by
// ALIGNSTUDIO_ENV_FILE, the project root's .env and the working directory's.
func EnvFiles() []string {
	var candidates []string
	if explicit := os.Getenv(EnvFileVar); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if root, err := FindProjectRoot(); err == nil {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".env"))
	}

	seen := make(map[string]bool, len(candidates))
	files := candidates[:0]
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		files = append(files, abs)
	}
	return files
}

// LoadEnv loads every existing candidate file. Values already in the
// environment win, and earlier files win over later ones. It returns the
// files that were loaded.
func LoadEnv() ([]string, error) {
	var loaded []string
	for _, path := range EnvFiles() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, err
		}
		loaded = append(loaded, path)
	}
	if len(loaded) == 0 {
		return nil, errors.New("no .env file found")
	}
	return loaded, nil
}

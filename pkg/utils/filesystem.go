package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDirName is the directory holding local state such as the SQLite
// article database.
const DataDirName = ".newsmind"

// EnsureDataDir ensures the data directory exists under basePath and
// returns its path. An empty basePath or "." means the working directory.
func EnsureDataDir(basePath string) (string, error) {
	dir := DataDirName
	if basePath != "" && basePath != "." {
		dir = filepath.Join(basePath, DataDirName)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory at '%s': %w", dir, err)
	}

	return dir, nil
}

package conference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteArchive serializes the conference to its conventional JSON archive
// file under dir, creating the directory if needed. It returns the path of
// the written file.
func WriteArchive(dir string, conf *Conference) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal conference: %w", err)
	}

	path := filepath.Join(dir, conf.ArchiveFilename())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}

	return path, nil
}

// ReadArchive loads a conference from a JSON archive file.
func ReadArchive(path string) (*Conference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	var conf Conference
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse archive %s: %w", filepath.Base(path), err)
	}

	return &conf, nil
}

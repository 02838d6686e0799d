package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LocalFileSystem implements FileSystem rooted at BaseDir; every relative
// path is resolved against it, grounded on the canvas file-system tool's
// _resolve_path helper.
type LocalFileSystem struct {
	BaseDir string
}

var _ FileSystem = (*LocalFileSystem)(nil)

// NewLocalFileSystem builds a LocalFileSystem rooted at baseDir.
func NewLocalFileSystem(baseDir string) (*LocalFileSystem, error) {
	if baseDir == "" {
		return nil, errors.New("tools: file system base directory is required")
	}
	return &LocalFileSystem{BaseDir: baseDir}, nil
}

func (f *LocalFileSystem) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(f.BaseDir, path)
}

// Read implements FileSystem.
func (f *LocalFileSystem) Read(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(f.resolve(path))
	if err != nil {
		return "", fmt.Errorf("tools: read %s: %w", path, err)
	}
	return string(data), nil
}

// Write implements FileSystem.
func (f *LocalFileSystem) Write(_ context.Context, path string, content string) error {
	resolved := f.resolve(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("tools: write %s: %w", path, err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fmt.Errorf("tools: write %s: %w", path, err)
	}
	return nil
}

// Append implements FileSystem.
func (f *LocalFileSystem) Append(_ context.Context, path string, content string) error {
	resolved := f.resolve(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("tools: append %s: %w", path, err)
	}
	file, err := os.OpenFile(resolved, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("tools: append %s: %w", path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("tools: append %s: %w", path, err)
	}
	return nil
}

// Delete implements FileSystem.
func (f *LocalFileSystem) Delete(_ context.Context, path string) error {
	resolved := f.resolve(path)
	info, err := os.Stat(resolved)
	if err != nil {
		return fmt.Errorf("tools: delete %s: %w", path, err)
	}
	if info.IsDir() {
		err = os.RemoveAll(resolved)
	} else {
		err = os.Remove(resolved)
	}
	if err != nil {
		return fmt.Errorf("tools: delete %s: %w", path, err)
	}
	return nil
}

// Exists implements FileSystem.
func (f *LocalFileSystem) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(f.resolve(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("tools: exists %s: %w", path, err)
}

// ListDirectory implements FileSystem.
func (f *LocalFileSystem) ListDirectory(_ context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(f.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("tools: list %s: %w", path, err)
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	return names, nil
}

// ReadJSON implements FileSystem.
func (f *LocalFileSystem) ReadJSON(ctx context.Context, path string, out any) error {
	content, err := f.Read(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("tools: decode json %s: %w", path, err)
	}
	return nil
}

// WriteJSON implements FileSystem.
func (f *LocalFileSystem) WriteJSON(ctx context.Context, path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("tools: encode json %s: %w", path, err)
	}
	return f.Write(ctx, path, string(data))
}

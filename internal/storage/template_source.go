package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TemplateSource loads provider-specific prompt templates. A missing template
// is not an error: implementations return ("", nil) so callers can fall back
// to the built-in default without logging.
type TemplateSource interface {
	Load(ctx context.Context, name string) (string, error)
}

// FileTemplateSource reads templates from a local prompts directory.
type FileTemplateSource struct {
	dir string
}

func NewFileTemplateSource(dir string) *FileTemplateSource {
	return &FileTemplateSource{dir: dir}
}

func (s *FileTemplateSource) Load(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read template %s: %w", name, err)
	}
	return string(data), nil
}

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"capture-relay/internal/capture"
)

type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Save(_ context.Context, rec *Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	data, err := capture.PrettyJSON(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	path := filepath.Join(s.dir, FileName(rec))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	return path, nil
}

// FileName is <timestamp>_<METHOD>_<host><path>.json with ':' and '.' in the
// timestamp and '/' in the path replaced by '-'. Requests sharing a
// millisecond, method, host and path overwrite each other.
func FileName(rec *Record) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(rec.Timestamp)
	path := strings.ReplaceAll(rec.path, "/", "-")
	return fmt.Sprintf("%s_%s_%s%s.json", ts, rec.Method, rec.host, path)
}

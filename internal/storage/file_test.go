package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"capture-relay/internal/capture"
	"capture-relay/internal/geoip"
)

var receivedAt = time.Date(2024, 5, 6, 7, 8, 9, 10000000, time.UTC)

func newRecord(t *testing.T, method, target, body string, info *geoip.Info) *Record {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return NewRecord(capture.FromHTTP(r, 0, receivedAt), info)
}

func TestFileName(t *testing.T) {
	rec := newRecord(t, http.MethodPost, "http://relay.example:3000/hooks/github", "", nil)

	want := "2024-05-06T07-08-09-010Z_POST_relay.example-hooks-github.json"
	if got := FileName(rec); got != want {
		t.Errorf("FileName = %q, want %q", got, want)
	}
}

func TestFileStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store := NewFileStore(dir)
	rec := newRecord(t, http.MethodPost, "http://relay.example/webhook", `{"a":1}`, &geoip.Info{City: "Berlin"})

	path, err := store.Save(context.Background(), rec)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("file written to %q, want dir %q", path, dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read persisted file: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"method\": \"POST\"") {
		t.Errorf("record is not indented with two spaces:\n%s", data)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("persisted file is not JSON: %v", err)
	}
	if got["body"] != "{\n  \"a\": 1\n}" {
		t.Errorf("body = %#v", got["body"])
	}
	if got["timestamp"] != "2024-05-06T07:08:09.010Z" {
		t.Errorf("timestamp = %#v", got["timestamp"])
	}
	if got["ipAddress"] != "unknown" {
		t.Errorf("ipAddress = %#v", got["ipAddress"])
	}
	info, ok := got["ipInfo"].(map[string]any)
	if !ok || info["city"] != "Berlin" {
		t.Errorf("ipInfo = %#v", got["ipInfo"])
	}
}

func TestFileStoreNullFields(t *testing.T) {
	store := NewFileStore(t.TempDir())
	rec := newRecord(t, http.MethodGet, "http://relay.example/ping", "", nil)

	path, err := store.Save(context.Background(), rec)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read persisted file: %v", err)
	}
	for _, want := range []string{`"body": null`, `"ipInfo": null`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("record missing %s:\n%s", want, data)
		}
	}
}

func TestFileStoreExistingDir(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	for i := 0; i < 2; i++ {
		rec := newRecord(t, http.MethodGet, "http://relay.example/ping", "", nil)
		if _, err := store.Save(context.Background(), rec); err != nil {
			t.Fatalf("Save #%d returned error: %v", i, err)
		}
	}
}

func TestFileStoreFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := NewFileStore(blocker).Save(context.Background(), newRecord(t, http.MethodGet, "/", "", nil))
	if err == nil {
		t.Fatal("expected an error when the data dir is a file")
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
}

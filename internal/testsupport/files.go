package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteCorruptStore replaces path with size bytes that no store format can
// parse, creating parent directories as needed.
func WriteCorruptStore(t testing.TB, path string, size int) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	garbage := bytes.Repeat([]byte("not a queue store\x00"), size/18+1)
	if err := os.WriteFile(path, garbage[:size], 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

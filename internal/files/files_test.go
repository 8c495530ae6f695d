package files_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tico/internal/files"
)

func TestPathLayout(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	published := time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC)

	if got := files.MetadataPath("/data", day); got != filepath.Join("/data", "metadata", "2024", "06", "01.json") {
		t.Errorf("unexpected metadata path: %s", got)
	}
	if got := files.ArticlePath("/data", published, 101); got != filepath.Join("/data", "news", "2024-06-01", "10-15-101.md") {
		t.Errorf("unexpected article path: %s", got)
	}
	if got := files.SummaryPath("/data", published, 101, "ru"); got != filepath.Join("/data", "news", "2024-06-01", "10-15-101-sum.ru.txt") {
		t.Errorf("unexpected summary path: %s", got)
	}

	raw := files.RawResponsePath("/raw", "session-1", "classifier", time.Date(2024, 6, 1, 10, 15, 42, 0, time.UTC))
	if raw != filepath.Join("/raw", "session-1", "classifier_2024-06-01_10-15-42.txt") {
		t.Errorf("unexpected raw response path: %s", raw)
	}
}

func TestWriteAtomicCreatesDirectories(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "news", "2024-06-01", "10-15-101.md")

	if err := files.WriteAtomic(path, []byte("# hello\n")); err != nil {
		t.Fatalf("WriteAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "# hello\n" {
		t.Fatalf("unexpected content: %q", data)
	}

	// Overwrites replace content wholesale.
	if err := files.WriteAtomic(path, []byte("replaced")); err != nil {
		t.Fatalf("WriteAtomic overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "replaced" {
		t.Fatalf("unexpected content after overwrite: %q", data)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestAppendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw", "s", "agent.txt")

	if err := files.AppendFile(path, []byte("one\n")); err != nil {
		t.Fatalf("AppendFile failed: %v", err)
	}
	if err := files.AppendFile(path, []byte("two\n")); err != nil {
		t.Fatalf("AppendFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "one\ntwo\n" {
		t.Fatalf("unexpected content: %q", data)
	}
}

package files

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetadataPath returns the location of a saved daily index:
// {data_dir}/metadata/YYYY/MM/DD.json. The day must already be in the
// source timezone.
func MetadataPath(dataDir string, day time.Time) string {
	return filepath.Join(
		dataDir,
		"metadata",
		day.Format("2006"),
		day.Format("01"),
		day.Format("02")+".json",
	)
}

// ArticlePath returns the markdown location for an article body:
// {data_dir}/news/YYYY-MM-DD/HH-MM-{id}.md.
func ArticlePath(dataDir string, published time.Time, id int64) string {
	return filepath.Join(
		dataDir,
		"news",
		published.Format("2006-01-02"),
		fmt.Sprintf("%s-%d.md", published.Format("15-04"), id),
	)
}

// SummaryPath returns the location for a summary in the given language:
// {data_dir}/news/YYYY-MM-DD/HH-MM-{id}-sum.{lang}.txt.
func SummaryPath(dataDir string, published time.Time, id int64, lang string) string {
	return filepath.Join(
		dataDir,
		"news",
		published.Format("2006-01-02"),
		fmt.Sprintf("%s-%d-sum.%s.txt", published.Format("15-04"), id, lang),
	)
}

// RawResponsePath returns the dump location for one raw engine response:
// {raw_dir}/{session}/{agent}_{utc timestamp}.txt.
func RawResponsePath(rawDir, session, agent string, ts time.Time) string {
	return filepath.Join(
		rawDir,
		session,
		fmt.Sprintf("%s_%s.txt", agent, ts.UTC().Format("2006-01-02_15-04-05")),
	)
}

// WriteAtomic writes data to path, creating parent directories as needed.
// The write goes to a temp file in the target directory first and is then
// renamed into place.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// AppendFile appends data to path, creating parent directories as needed.
// Raw engine response dumps use it, so dumps that resolve to the same path
// (same session, agent and UTC second) accumulate in one file.
func AppendFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}

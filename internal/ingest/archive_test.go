package ingest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeZip builds a zip archive on disk from name->content entries.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "odis_json.zip")
	writeZip(t, zipPath, map[string]string{
		"1001.json":  `{"info":{}}`,
		"1002.json":  `{"info":{}}`,
		"README.txt": "notes",
		"sub/x.json": `{}`,
	})

	destRoot := filepath.Join(dir, "unzipped")
	outDir, err := Extract(zipPath, destRoot)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if want := filepath.Join(destRoot, "odis_json"); outDir != want {
		t.Errorf("outDir = %q, want %q", outDir, want)
	}

	body, err := os.ReadFile(filepath.Join(outDir, "1001.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"info":{}}` {
		t.Errorf("1001.json = %q", body)
	}
	if _, err := os.Stat(filepath.Join(outDir, "sub", "x.json")); err != nil {
		t.Errorf("nested entry missing: %v", err)
	}
}

func TestExtractReplacesPreviousRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "a.zip")
	writeZip(t, zipPath, map[string]string{"new.json": "{}"})

	destRoot := filepath.Join(dir, "unzipped")
	stale := filepath.Join(destRoot, "a", "stale.json")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Extract(zipPath, destRoot); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file from a previous extraction survived")
	}
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../escape.json": "{}"})

	_, err := Extract(zipPath, filepath.Join(dir, "unzipped"))
	if err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Fatalf("err = %v, want path escape rejection", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "escape.json")); !os.IsNotExist(statErr) {
		t.Error("escaping entry was written")
	}
}

func TestExtractMissingArchive(t *testing.T) {
	t.Parallel()

	if _, err := Extract(filepath.Join(t.TempDir(), "nope.zip"), t.TempDir()); err == nil {
		t.Fatal("expected error")
	}
}

func TestListMatchFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"2.json", "1.json", "README.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := listMatchFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "1.json"), filepath.Join(dir, "2.json")}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

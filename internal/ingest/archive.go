package ingest

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Extract unpacks the zip archive at zipPath into a directory under destRoot
// named after the archive (without extension), replacing any previous
// extraction. It refuses to start when the destination filesystem has less
// free space than the archive's declared uncompressed size.
func Extract(zipPath, destRoot string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	outDir := filepath.Join(destRoot, name)

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}

	var need uint64
	for _, f := range r.File {
		need += f.UncompressedSize64
	}
	if err := checkFreeSpace(destRoot, need); err != nil {
		return "", err
	}

	if err := os.RemoveAll(outDir); err != nil {
		return "", fmt.Errorf("clear %s: %w", outDir, err)
	}

	for _, f := range r.File {
		if err := extractFile(f, outDir); err != nil {
			return "", fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}

	log.Printf("extracted %q to %q (%d entries)", zipPath, outDir, len(r.File))
	return outDir, nil
}

// extractFile writes one archive entry under outDir, rejecting paths that
// escape it.
func extractFile(f *zip.File, outDir string) error {
	dest := filepath.Join(outDir, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(dest, filepath.Clean(outDir)+string(os.PathSeparator)) {
		return fmt.Errorf("entry path escapes destination")
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// checkFreeSpace verifies the filesystem holding dir can absorb need bytes.
func checkFreeSpace(dir string, need uint64) error {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		// Statfs is advisory; an exotic filesystem should not block extraction.
		log.Printf("statfs %q: %v (skipping free-space check)", dir, err)
		return nil
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < need {
		return fmt.Errorf("not enough disk space in %s: need %d bytes, have %d", dir, need, free)
	}
	return nil
}

// listMatchFiles returns the .json files directly inside dir, sorted by name.
func listMatchFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

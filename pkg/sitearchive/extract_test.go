package sitearchive_test

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitearchive"
	"github.com/ulikunitz/xz"
)

// testEntry describes one file inside a generated test archive.
type testEntry struct {
	name string
	body string
}

// siteEntries mimics a typical hosting-panel export: everything wrapped in a
// single top-level folder, including a hidden file.
var siteEntries = []testEntry{
	{"site/index.php", "<?php echo 'hi';"},
	{"site/wp-content/themes/base/style.css", "body {}"},
	{"site/.htaccess", "RewriteEngine On"},
}

func writeTestArchive(t *testing.T, path string, format sitearchive.Format, entries []testEntry) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive file: %v", err)
	}
	defer f.Close()

	if format == sitearchive.Zip {
		zw := zip.NewWriter(f)
		for _, e := range entries {
			w, err := zw.Create(e.name)
			if err != nil {
				t.Fatalf("failed to create zip entry: %v", err)
			}
			if _, err := w.Write([]byte(e.body)); err != nil {
				t.Fatalf("failed to write zip entry: %v", err)
			}
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("failed to close zip writer: %v", err)
		}
		return
	}

	var w io.Writer = f
	var closers []io.Closer
	switch format {
	case sitearchive.Tar:
		// Uncompressed.
	case sitearchive.TarGz, sitearchive.Tgz:
		gz := gzip.NewWriter(f)
		closers = append(closers, gz)
		w = gz
	case sitearchive.TarZst:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			t.Fatalf("failed to create zstd writer: %v", err)
		}
		closers = append(closers, zw)
		w = zw
	case sitearchive.TarXz:
		xw, err := xz.NewWriter(f)
		if err != nil {
			t.Fatalf("failed to create xz writer: %v", err)
		}
		closers = append(closers, xw)
		w = xw
	default:
		t.Fatalf("unhandled test archive format: %s", format)
	}

	tw := tar.NewWriter(w)
	for _, e := range entries {
		header := &tar.Header{
			Name:     e.name,
			Mode:     0644,
			Size:     int64(len(e.body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("failed to write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatalf("failed to write tar entry: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			t.Fatalf("failed to close compressor: %v", err)
		}
	}
}

func TestExtractAndFlatten(t *testing.T) {
	formats := []sitearchive.Format{
		sitearchive.Zip,
		sitearchive.Tar,
		sitearchive.TarGz,
		sitearchive.Tgz,
		sitearchive.TarZst,
		sitearchive.TarXz,
	}

	for _, format := range formats {
		t.Run(format.String(), func(t *testing.T) {
			workDir := t.TempDir()
			archivePath := filepath.Join(workDir, "mysite"+format.Suffix())
			writeTestArchive(t, archivePath, format, siteEntries)

			x := sitearchive.NewPathExtractor(256)
			plan := &sitearchive.Plan{Format: format, FlattenPolicy: sitearchive.FlattenLenient}
			if err := x.Extract(context.Background(), archivePath, workDir, plan); err != nil {
				t.Fatalf("Extract failed: %v", err)
			}

			// The single wrapping "site/" folder must be gone and its
			// contents, hidden files included, hoisted to the root.
			assertExists(t, filepath.Join(workDir, "index.php"))
			assertExists(t, filepath.Join(workDir, ".htaccess"))
			assertExists(t, filepath.Join(workDir, "wp-content", "themes", "base", "style.css"))
			assertNotExists(t, filepath.Join(workDir, "site"))

			data, err := os.ReadFile(filepath.Join(workDir, "index.php"))
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != "<?php echo 'hi';" {
				t.Errorf("unexpected file contents: %q", string(data))
			}
		})
	}
}

func TestExtractMultiRootNoFlatten(t *testing.T) {
	workDir := t.TempDir()
	archivePath := filepath.Join(workDir, "mysite.tar.gz")
	writeTestArchive(t, archivePath, sitearchive.TarGz, []testEntry{
		{"wp-content/index.php", "<?php"},
		{"wp-admin/index.php", "<?php"},
		{"index.php", "<?php"},
	})

	x := sitearchive.NewPathExtractor(256)
	plan := &sitearchive.Plan{Format: sitearchive.TarGz, FlattenPolicy: sitearchive.FlattenLenient}
	if err := x.Extract(context.Background(), archivePath, workDir, plan); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Two top-level directories: the raw decompression layout stays as-is.
	assertExists(t, filepath.Join(workDir, "wp-content", "index.php"))
	assertExists(t, filepath.Join(workDir, "wp-admin", "index.php"))
	assertExists(t, filepath.Join(workDir, "index.php"))
}

func TestExtractCorruptArchive(t *testing.T) {
	workDir := t.TempDir()
	archivePath := filepath.Join(workDir, "mysite.tar.gz")
	if err := os.WriteFile(archivePath, []byte("this is not gzip data"), 0644); err != nil {
		t.Fatal(err)
	}

	x := sitearchive.NewPathExtractor(256)
	plan := &sitearchive.Plan{Format: sitearchive.TarGz, FlattenPolicy: sitearchive.FlattenLenient}
	if err := x.Extract(context.Background(), archivePath, workDir, plan); err == nil {
		t.Fatal("expected extraction of a corrupt archive to fail")
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	workDir := t.TempDir()
	archivePath := filepath.Join(workDir, "mysite.tar")
	writeTestArchive(t, archivePath, sitearchive.Tar, []testEntry{
		{"../evil.txt", "pwned"},
	})

	x := sitearchive.NewPathExtractor(256)
	plan := &sitearchive.Plan{Format: sitearchive.Tar, FlattenPolicy: sitearchive.FlattenLenient}
	if err := x.Extract(context.Background(), archivePath, workDir, plan); err == nil {
		t.Fatal("expected extraction to reject a path-traversal entry")
	}
	assertNotExists(t, filepath.Join(filepath.Dir(workDir), "evil.txt"))
}

func TestExtractUnsupportedFormat(t *testing.T) {
	workDir := t.TempDir()
	x := sitearchive.NewPathExtractor(256)
	plan := &sitearchive.Plan{Format: sitearchive.Format("rar"), FlattenPolicy: sitearchive.FlattenLenient}
	err := x.Extract(context.Background(), filepath.Join(workDir, "mysite.rar"), workDir, plan)
	if err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
	var unsupported *sitearchive.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedFormatError, got %T: %v", err, err)
	}
}

func TestExtractDryRun(t *testing.T) {
	workDir := t.TempDir()
	archivePath := filepath.Join(workDir, "mysite.tar.gz")
	writeTestArchive(t, archivePath, sitearchive.TarGz, siteEntries)

	x := sitearchive.NewPathExtractor(256)
	plan := &sitearchive.Plan{Format: sitearchive.TarGz, FlattenPolicy: sitearchive.FlattenLenient, DryRun: true}
	if err := x.Extract(context.Background(), archivePath, workDir, plan); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	assertNotExists(t, filepath.Join(workDir, "site"))
	assertNotExists(t, filepath.Join(workDir, "index.php"))
}

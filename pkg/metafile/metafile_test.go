package metafile_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulschiretz/pgl-wp-restore/pkg/metafile"
)

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	want := &metafile.MetafileContent{
		Version:       "1.2.3",
		TimestampUTC:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Project:       "mysite",
		ArchiveFormat: "tar.gz",
		SQLDump:       "db-2026-08-30.sql",
		OldDomain:     "https://old.example.com",
		NewDomain:     "https://new.example.com",
	}

	if err := metafile.Write(dir, want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := metafile.Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != *want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, *want)
	}
}

func TestWriteReplacesPreviousReceipt(t *testing.T) {
	dir := t.TempDir()
	first := &metafile.MetafileContent{Version: "1", Project: "old-run"}
	second := &metafile.MetafileContent{Version: "2", Project: "new-run"}

	if err := metafile.Write(dir, first); err != nil {
		t.Fatal(err)
	}
	if err := metafile.Write(dir, second); err != nil {
		t.Fatal(err)
	}

	got, err := metafile.Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Project != "new-run" {
		t.Errorf("expected the newer receipt, got %+v", got)
	}
}

func TestReadMissing(t *testing.T) {
	_, err := metafile.Read(t.TempDir())
	if !os.IsNotExist(err) {
		t.Fatalf("expected os.IsNotExist error, got %v", err)
	}
}

func TestReadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, metafile.MetaFileName), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := metafile.Read(dir)
	if err == nil {
		t.Fatal("expected an error for a corrupt receipt")
	}
}

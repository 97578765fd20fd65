package engine_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-wp-restore/pkg/cleanup"
	"github.com/paulschiretz/pgl-wp-restore/pkg/config"
	"github.com/paulschiretz/pgl-wp-restore/pkg/engine"
	"github.com/paulschiretz/pgl-wp-restore/pkg/lockfile"
	"github.com/paulschiretz/pgl-wp-restore/pkg/metafile"
	"github.com/paulschiretz/pgl-wp-restore/pkg/planner"
	"github.com/paulschiretz/pgl-wp-restore/pkg/preflight"
	"github.com/paulschiretz/pgl-wp-restore/pkg/sitearchive"
)

type fakeValidator struct {
	err   error
	calls int
}

func (v *fakeValidator) Run(ctx context.Context, p *preflight.Plan) error {
	v.calls++
	return v.err
}

type fakeExtractor struct {
	err        error
	calls      int
	gotArchive string
	gotFormat  sitearchive.Format
}

func (e *fakeExtractor) Extract(ctx context.Context, absArchivePath, absWorkDirPath string, p *sitearchive.Plan) error {
	e.calls++
	e.gotArchive = absArchivePath
	e.gotFormat = p.Format
	return e.err
}

// fakeSite records every call in order and returns configurable errors.
type fakeSite struct {
	calls   []string
	siteURL string
	failOn  string
	failErr error
}

func (s *fakeSite) fail(op string) error {
	if s.failOn == op {
		if s.failErr != nil {
			return s.failErr
		}
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

func (s *fakeSite) ConfigSet(ctx context.Context, name, value string) error {
	s.calls = append(s.calls, "ConfigSet "+name+"="+value)
	return s.fail("ConfigSet")
}

func (s *fakeSite) DBReset(ctx context.Context) error {
	s.calls = append(s.calls, "DBReset")
	return s.fail("DBReset")
}

func (s *fakeSite) DBImport(ctx context.Context, absDumpPath string) error {
	s.calls = append(s.calls, "DBImport "+filepath.Base(absDumpPath))
	return s.fail("DBImport")
}

func (s *fakeSite) SiteURL(ctx context.Context) (string, error) {
	s.calls = append(s.calls, "SiteURL")
	return s.siteURL, s.fail("SiteURL")
}

func (s *fakeSite) SearchReplace(ctx context.Context, oldValue, newValue string) error {
	s.calls = append(s.calls, "SearchReplace "+oldValue+" -> "+newValue)
	return s.fail("SearchReplace")
}

func (s *fakeSite) CacheFlush(ctx context.Context) error {
	s.calls = append(s.calls, "CacheFlush")
	return s.fail("CacheFlush")
}

type fakeCleaner struct {
	err     error
	calls   int
	gotPlan *cleanup.Plan
}

func (c *fakeCleaner) Run(ctx context.Context, p *cleanup.Plan) error {
	c.calls++
	c.gotPlan = p
	return c.err
}

// buildSiteDir creates a minimal site directory: a live config with host
// credentials, the archive and an SQL dump.
func buildSiteDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	liveConfig := `<?php
define( 'DB_NAME', 'host_db' );
define( 'DB_USER', 'host_user' );
define( 'DB_PASSWORD', 'host_pass' );
`
	if err := os.WriteFile(filepath.Join(dir, "wp-config.php"), []byte(liveConfig), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mysite.tar.gz"), []byte("archive"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "db.sql"), []byte("-- dump"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func buildPlan(t *testing.T, dir, newDomain string) *planner.RestorePlan {
	t.Helper()
	cfg := config.NewDefault()
	cfg.WorkDir = dir
	cfg.Runtime.Project = "mysite"
	cfg.Runtime.NewDomain = newDomain
	plan, err := planner.GenerateRestorePlan(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return plan
}

func TestExecuteRestoreHappyPath(t *testing.T) {
	dir := buildSiteDir(t)
	plan := buildPlan(t, dir, "new.example.com")

	v := &fakeValidator{}
	x := &fakeExtractor{}
	s := &fakeSite{siteURL: "https://old.example.com"}
	c := &fakeCleaner{}

	r := engine.NewRunner(v, x, s, c)
	if err := r.ExecuteRestore(context.Background(), plan); err != nil {
		t.Fatalf("ExecuteRestore failed: %v", err)
	}

	if v.calls != 1 {
		t.Errorf("expected 1 preflight run, got %d", v.calls)
	}
	if x.calls != 1 {
		t.Fatalf("expected 1 extraction, got %d", x.calls)
	}
	if filepath.Base(x.gotArchive) != "mysite.tar.gz" {
		t.Errorf("wrong archive extracted: %s", x.gotArchive)
	}
	if x.gotFormat != sitearchive.TarGz {
		t.Errorf("format tag not carried to extraction: %s", x.gotFormat)
	}

	want := []string{
		"ConfigSet DB_NAME=host_db",
		"ConfigSet DB_USER=host_user",
		"ConfigSet DB_PASSWORD=host_pass",
		"DBReset",
		"DBImport db.sql",
		"SiteURL",
		"SearchReplace https://old.example.com -> https://new.example.com",
		"CacheFlush",
	}
	if strings.Join(s.calls, "; ") != strings.Join(want, "; ") {
		t.Errorf("unexpected call sequence:\n got %v\nwant %v", s.calls, want)
	}

	if c.calls != 1 {
		t.Errorf("expected cleanup to run once, got %d", c.calls)
	}
	if c.gotPlan.AbsArchivePath == "" {
		t.Error("archive path not passed to cleanup")
	}

	// The live config must have been preserved.
	if _, err := os.Stat(filepath.Join(dir, "wp-config.php.bak")); err != nil {
		t.Errorf("config backup not created: %v", err)
	}

	// The lock must be released.
	if _, err := os.Stat(filepath.Join(dir, lockfile.LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file not released")
	}

	receipt, err := metafile.Read(dir)
	if err != nil {
		t.Fatalf("restore receipt not written: %v", err)
	}
	if receipt.Project != "mysite" || receipt.ArchiveFormat != "tar.gz" || receipt.SQLDump != "db.sql" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if receipt.NewDomain != "https://new.example.com" {
		t.Errorf("receipt domain mismatch: %+v", receipt)
	}
}

func TestExecuteRestoreWithoutDomain(t *testing.T) {
	dir := buildSiteDir(t)
	plan := buildPlan(t, dir, "")

	s := &fakeSite{siteURL: "https://old.example.com"}
	r := engine.NewRunner(&fakeValidator{}, &fakeExtractor{}, s, &fakeCleaner{})
	if err := r.ExecuteRestore(context.Background(), plan); err != nil {
		t.Fatalf("ExecuteRestore failed: %v", err)
	}

	joined := strings.Join(s.calls, "; ")
	if strings.Contains(joined, "SiteURL") || strings.Contains(joined, "SearchReplace") || strings.Contains(joined, "CacheFlush") {
		t.Errorf("no domain steps expected without a new domain: %v", s.calls)
	}
}

func TestExecuteRestoreMissingArchive(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "wp-config.php"), []byte("<?php"), 0644); err != nil {
		t.Fatal(err)
	}
	plan := buildPlan(t, dir, "")

	x := &fakeExtractor{}
	r := engine.NewRunner(&fakeValidator{}, x, &fakeSite{}, &fakeCleaner{})

	err := r.ExecuteRestore(context.Background(), plan)
	var notFound *sitearchive.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *sitearchive.NotFoundError, got %v", err)
	}
	if x.calls != 0 {
		t.Error("extraction must not run without a located archive")
	}
}

func TestExecuteRestorePreflightFailure(t *testing.T) {
	dir := buildSiteDir(t)
	plan := buildPlan(t, dir, "")

	v := &fakeValidator{err: errors.New("wp not found")}
	x := &fakeExtractor{}
	r := engine.NewRunner(v, x, &fakeSite{}, &fakeCleaner{})

	if err := r.ExecuteRestore(context.Background(), plan); err == nil {
		t.Fatal("expected a preflight error")
	}
	if x.calls != 0 {
		t.Error("nothing may run after a failed preflight")
	}
}

func TestExecuteRestoreExtractionFailure(t *testing.T) {
	dir := buildSiteDir(t)
	plan := buildPlan(t, dir, "")

	x := &fakeExtractor{err: errors.New("corrupt archive")}
	s := &fakeSite{}
	c := &fakeCleaner{}
	r := engine.NewRunner(&fakeValidator{}, x, s, c)

	if err := r.ExecuteRestore(context.Background(), plan); err == nil {
		t.Fatal("expected an extraction error")
	}
	if len(s.calls) != 0 {
		t.Errorf("no database steps may run after a failed extraction: %v", s.calls)
	}
	if c.calls != 0 {
		t.Error("cleanup must not run after a failed extraction")
	}
}

func TestExecuteRestoreImportFailureIsFatal(t *testing.T) {
	dir := buildSiteDir(t)
	plan := buildPlan(t, dir, "")

	s := &fakeSite{failOn: "DBImport"}
	c := &fakeCleaner{}
	r := engine.NewRunner(&fakeValidator{}, &fakeExtractor{}, s, c)

	if err := r.ExecuteRestore(context.Background(), plan); err == nil {
		t.Fatal("expected an import error")
	}
	if c.calls != 0 {
		t.Error("cleanup must not run after a failed import")
	}
}

func TestExecuteRestoreCacheFlushFailureIsFatal(t *testing.T) {
	dir := buildSiteDir(t)
	plan := buildPlan(t, dir, "new.example.com")

	s := &fakeSite{siteURL: "https://old.example.com", failOn: "CacheFlush"}
	c := &fakeCleaner{}
	r := engine.NewRunner(&fakeValidator{}, &fakeExtractor{}, s, c)

	if err := r.ExecuteRestore(context.Background(), plan); err == nil {
		t.Fatal("expected a cache flush error")
	}
	if c.calls != 0 {
		t.Error("cleanup must not run after a failed cache flush")
	}
}

func TestExecuteRestoreActiveLock(t *testing.T) {
	dir := buildSiteDir(t)
	plan := buildPlan(t, dir, "")

	held, err := lockfile.Acquire(dir, "other-run")
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	r := engine.NewRunner(&fakeValidator{}, &fakeExtractor{}, &fakeSite{}, &fakeCleaner{})
	if err := r.ExecuteRestore(context.Background(), plan); err == nil {
		t.Fatal("expected an error while another restore holds the lock")
	}
}

func TestExecuteRestoreCleanupHintIsNotFatal(t *testing.T) {
	dir := buildSiteDir(t)
	plan := buildPlan(t, dir, "")

	c := &fakeCleaner{err: cleanup.ErrNothingToClean}
	r := engine.NewRunner(&fakeValidator{}, &fakeExtractor{}, &fakeSite{}, c)
	if err := r.ExecuteRestore(context.Background(), plan); err != nil {
		t.Fatalf("a cleanup hint must not fail the restore: %v", err)
	}
}

func TestExecuteRestoreKeepsExistingConfigBackup(t *testing.T) {
	dir := buildSiteDir(t)
	original := `<?php
define( 'DB_NAME', 'original_db' );
define( 'DB_USER', 'original_user' );
define( 'DB_PASSWORD', 'original_pass' );
`
	if err := os.WriteFile(filepath.Join(dir, "wp-config.php.bak"), []byte(original), 0644); err != nil {
		t.Fatal(err)
	}
	plan := buildPlan(t, dir, "")

	s := &fakeSite{}
	r := engine.NewRunner(&fakeValidator{}, &fakeExtractor{}, s, &fakeCleaner{})
	if err := r.ExecuteRestore(context.Background(), plan); err != nil {
		t.Fatalf("ExecuteRestore failed: %v", err)
	}

	// The credentials must come from the pre-existing backup, not from the
	// live config of this run.
	if !strings.Contains(strings.Join(s.calls, "; "), "ConfigSet DB_NAME=original_db") {
		t.Errorf("expected credentials from the existing backup: %v", s.calls)
	}
}

func TestExecuteRestoreCanceledContext(t *testing.T) {
	dir := buildSiteDir(t)
	plan := buildPlan(t, dir, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := engine.NewRunner(&fakeValidator{}, &fakeExtractor{}, &fakeSite{}, &fakeCleaner{})
	if err := r.ExecuteRestore(ctx, plan); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wudi/pdf2docx/convert"
)

type fakeConverter struct {
	fn func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error
}

func (f *fakeConverter) Convert(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
	return f.fn(ctx, srcPath, outPath, progress)
}

func newTestManager(t *testing.T, conv Converter, cfg Config) *Manager {
	t.Helper()
	cfg.DataDir = t.TempDir()
	m, err := NewManager(conv, cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func waitStatus(t *testing.T, m *Manager, id string, want Status) Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Snapshot(id)
		if err != nil {
			t.Fatalf("Snapshot(%s) error = %v", id, err)
		}
		if snap.Status == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := m.Snapshot(id)
	t.Fatalf("job %s never reached %s, last snapshot: %+v", id, want, snap)
	return Snapshot{}
}

func TestSubmitAndComplete(t *testing.T) {
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		progress(50, "Processing page 1 of 2...")
		if err := os.WriteFile(outPath, []byte("docx bytes"), 0o644); err != nil {
			return err
		}
		return nil
	}}
	m := newTestManager(t, conv, Config{})

	id, err := m.Submit(strings.NewReader("%PDF-1.7 fake"), "report.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	snap := waitStatus(t, m, id, StatusCompleted)
	if snap.Progress != 100 {
		t.Fatalf("completed progress = %d, want 100", snap.Progress)
	}
	if !snap.HasArtifact {
		t.Fatalf("completed job must expose an artifact")
	}
	if snap.ErrorDetail != "" {
		t.Fatalf("completed job must carry no error detail, got %q", snap.ErrorDetail)
	}

	art, err := m.ArtifactFor(id)
	if err != nil {
		t.Fatalf("ArtifactFor() error = %v", err)
	}
	if art.Filename != "report.docx" {
		t.Fatalf("download name = %q, want report.docx", art.Filename)
	}
	data, err := os.ReadFile(art.Path)
	if err != nil || string(data) != "docx bytes" {
		t.Fatalf("artifact content = %q, err = %v", data, err)
	}
}

func TestProgressMonotonicAndCapped(t *testing.T) {
	release := make(chan struct{})
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		progress(30, "thirty")
		progress(20, "regression")
		progress(150, "overflow")
		<-release
		return os.WriteFile(outPath, []byte("x"), 0o644)
	}}
	m := newTestManager(t, conv, Config{})

	id, err := m.Submit(strings.NewReader("pdf"), "a.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	var snap Snapshot
	for time.Now().Before(deadline) {
		snap, _ = m.Snapshot(id)
		if snap.Progress == 99 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap.Progress != 99 {
		t.Fatalf("in-flight progress = %d, want 99 (capped)", snap.Progress)
	}
	if snap.Message == "regression" {
		t.Fatalf("regressed progress update must be dropped")
	}
	if snap.Status != StatusProcessing {
		t.Fatalf("status = %s, want processing", snap.Status)
	}

	close(release)
	waitStatus(t, m, id, StatusCompleted)
}

func TestFailCarriesErrorDetail(t *testing.T) {
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		return fmt.Errorf("%w: bad header", convert.ErrInvalidInput)
	}}
	m := newTestManager(t, conv, Config{})

	id, err := m.Submit(strings.NewReader("not a pdf"), "junk.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	snap := waitStatus(t, m, id, StatusFailed)
	if !strings.Contains(snap.ErrorDetail, "invalid or unparseable PDF") {
		t.Fatalf("error detail = %q, want invalid-input cause", snap.ErrorDetail)
	}
	if snap.HasArtifact {
		t.Fatalf("failed job must not expose an artifact")
	}
	if _, err := m.ArtifactFor(id); !errors.Is(err, ErrNotReady) {
		t.Fatalf("ArtifactFor on failed job = %v, want ErrNotReady", err)
	}
}

func TestTerminalTransitionsIdempotent(t *testing.T) {
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		return os.WriteFile(outPath, []byte("x"), 0o644)
	}}
	m := newTestManager(t, conv, Config{})

	id, err := m.Submit(strings.NewReader("pdf"), "a.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	first := waitStatus(t, m, id, StatusCompleted)

	// Duplicate terminal signals must be no-ops, not errors.
	m.complete(id, "/elsewhere/other.docx")
	m.fail(id, errors.New("late failure"))

	second, err := m.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if second != first {
		t.Fatalf("terminal job changed: first %+v, second %+v", first, second)
	}
}

func TestWatchdogFailsStuckJobAndIgnoresLateCompletion(t *testing.T) {
	release := make(chan struct{})
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		<-release
		return os.WriteFile(outPath, []byte("late"), 0o644)
	}}
	m := newTestManager(t, conv, Config{MaxJobLifetime: 40 * time.Millisecond})

	id, err := m.Submit(strings.NewReader("pdf"), "slow.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	snap := waitStatus(t, m, id, StatusFailed)
	if !strings.Contains(snap.ErrorDetail, "timed out") {
		t.Fatalf("error detail = %q, want timeout cause", snap.ErrorDetail)
	}

	// The abandoned pipeline eventually finishes; its completion is a no-op.
	close(release)
	time.Sleep(50 * time.Millisecond)
	after, err := m.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if after.Status != StatusFailed || after.HasArtifact {
		t.Fatalf("late completion mutated a terminal job: %+v", after)
	}
}

func TestReapRemovesExpiredJobsAndFiles(t *testing.T) {
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		return os.WriteFile(outPath, []byte("x"), 0o644)
	}}
	m := newTestManager(t, conv, Config{Retention: 20 * time.Millisecond})

	id, err := m.Submit(strings.NewReader("pdf"), "a.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitStatus(t, m, id, StatusCompleted)
	art, err := m.ArtifactFor(id)
	if err != nil {
		t.Fatalf("ArtifactFor() error = %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if got := m.Reap(); got != 1 {
		t.Fatalf("Reap() = %d, want 1", got)
	}
	if _, err := m.Snapshot(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reaped job still visible: %v", err)
	}
	if _, err := os.Stat(art.Path); !os.IsNotExist(err) {
		t.Fatalf("artifact survived reaping")
	}
	if _, err := os.Stat(filepath.Join(m.cfg.recordDir(), id+".json")); !os.IsNotExist(err) {
		t.Fatalf("job record survived reaping")
	}
	if _, err := os.Stat(filepath.Join(m.cfg.uploadDir(), id+".pdf")); !os.IsNotExist(err) {
		t.Fatalf("source file survived reaping")
	}
}

func TestReapRemovesLateArtifactAfterTimeout(t *testing.T) {
	release := make(chan struct{})
	written := make(chan string, 1)
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		<-release
		if err := os.WriteFile(outPath, []byte("late"), 0o644); err != nil {
			return err
		}
		written <- outPath
		return nil
	}}
	m := newTestManager(t, conv, Config{MaxJobLifetime: 40 * time.Millisecond, Retention: 50 * time.Millisecond})

	id, err := m.Submit(strings.NewReader("pdf"), "slow.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitStatus(t, m, id, StatusFailed)

	// The abandoned pipeline finishes after the watchdog fired; the job stays
	// failed and never publishes the artifact, but the file is on disk now.
	close(release)
	var outPath string
	select {
	case outPath = <-written:
	case <-time.After(3 * time.Second):
		t.Fatalf("abandoned pipeline never wrote its output")
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("late output missing before reap: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if got := m.Reap(); got != 1 {
		t.Fatalf("Reap() = %d, want 1", got)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Fatalf("unpublished output survived reaping")
	}
}

func TestReapHoldsUnretrievedArtifact(t *testing.T) {
	release := make(chan struct{})
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		<-release
		return os.WriteFile(outPath, []byte("x"), 0o644)
	}}
	m := newTestManager(t, conv, Config{Retention: 60 * time.Millisecond})

	id, err := m.Submit(strings.NewReader("pdf"), "a.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitStatus(t, m, id, StatusProcessing)
	// Let the record age past retention before the job completes, so the
	// artifact is still fresh when the record first becomes eligible.
	time.Sleep(80 * time.Millisecond)
	close(release)
	waitStatus(t, m, id, StatusCompleted)

	if got := m.Reap(); got != 0 {
		t.Fatalf("Reap() = %d, want 0 while the artifact is unexpired and undownloaded", got)
	}
	if _, err := m.Snapshot(id); err != nil {
		t.Fatalf("held job disappeared: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if got := m.Reap(); got != 1 {
		t.Fatalf("Reap() = %d, want 1 once the artifact expired", got)
	}
	if _, err := m.Snapshot(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired job still visible: %v", err)
	}
}

func TestReapSparesFreshJobs(t *testing.T) {
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		return os.WriteFile(outPath, []byte("x"), 0o644)
	}}
	m := newTestManager(t, conv, Config{Retention: time.Hour})

	id, err := m.Submit(strings.NewReader("pdf"), "a.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitStatus(t, m, id, StatusCompleted)
	if got := m.Reap(); got != 0 {
		t.Fatalf("Reap() = %d, want 0 for fresh jobs", got)
	}
	if _, err := m.Snapshot(id); err != nil {
		t.Fatalf("fresh job was reaped: %v", err)
	}
}

func TestWorkerCapQueuesExcessJobs(t *testing.T) {
	release := make(chan struct{})
	conv := &fakeConverter{fn: func(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error {
		<-release
		return os.WriteFile(outPath, []byte("x"), 0o644)
	}}
	m := newTestManager(t, conv, Config{Workers: 1})

	first, err := m.Submit(strings.NewReader("pdf"), "a.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	second, err := m.Submit(strings.NewReader("pdf"), "b.pdf")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	waitStatus(t, m, first, StatusProcessing)
	time.Sleep(30 * time.Millisecond)
	snap, err := m.Snapshot(second)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Status != StatusQueued {
		t.Fatalf("second job = %s, want queued behind the worker cap", snap.Status)
	}

	close(release)
	waitStatus(t, m, first, StatusCompleted)
	waitStatus(t, m, second, StatusCompleted)
}

func TestSnapshotUnknownJob(t *testing.T) {
	m := newTestManager(t, &fakeConverter{fn: nil}, Config{})
	if _, err := m.Snapshot("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Snapshot(missing) = %v, want ErrNotFound", err)
	}
	if _, err := m.ArtifactFor("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ArtifactFor(missing) = %v, want ErrNotFound", err)
	}
}

func TestDownloadName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"report.pdf", "report.docx"},
		{"archive.tar.pdf", "archive.tar.docx"},
		{"noext", "noext.docx"},
		{"../../etc/passwd.pdf", "passwd.docx"},
		{"", "document.docx"},
		{".pdf", "document.docx"},
	}
	for _, tc := range cases {
		if got := downloadName(tc.in); got != tc.want {
			t.Fatalf("downloadName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

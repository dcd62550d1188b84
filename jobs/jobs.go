// Package jobs owns the registry of in-flight and completed conversions:
// identifier assignment, asynchronous pipeline scheduling with a concurrency
// cap, progress snapshots, watchdog timeouts, and retention-based cleanup.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Status is the lifecycle state of a conversion job. Transitions are
// one-directional: queued → processing → completed|failed. Terminal states
// never change.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Snapshot is an immutable copy of a job's externally visible fields, safe to
// hand to pollers while the pipeline keeps mutating the underlying record.
type Snapshot struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	Status           Status    `json:"status"`
	Progress         int       `json:"progress"`
	Message          string    `json:"message"`
	HasArtifact      bool      `json:"has_artifact"`
	ErrorDetail      string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Artifact identifies a completed job's output for download.
type Artifact struct {
	// Path is the artifact location on durable storage.
	Path string
	// Filename is the download name derived from the original upload.
	Filename string
}

var (
	// ErrNotFound marks an unknown or already-reaped job identifier.
	ErrNotFound = errors.New("job not found")
	// ErrNotReady marks an artifact request before the job completed.
	ErrNotReady = errors.New("job artifact not ready")
)

// job is the registry record. All fields are guarded by the manager's mutex;
// only the pipeline goroutine owning the job mutates it, via the manager's
// update methods.
type job struct {
	id           string
	originalName string
	sourcePath   string
	outPath      string
	artifactPath string
	status       Status
	progress     int
	message      string
	errDetail    string
	createdAt    time.Time
	terminalAt   time.Time
	retrieved    bool
	watchdog     *time.Timer
}

func (j *job) snapshot() Snapshot {
	return Snapshot{
		ID:               j.id,
		OriginalFilename: j.originalName,
		Status:           j.status,
		Progress:         j.progress,
		Message:          j.message,
		HasArtifact:      j.status == StatusCompleted && j.artifactPath != "",
		ErrorDetail:      j.errDetail,
		CreatedAt:        j.createdAt,
	}
}

// record is the durable per-job state written alongside the source and
// artifact files, keyed by job identifier.
type record struct {
	Snapshot
	SourcePath   string `json:"source_path"`
	ArtifactPath string `json:"artifact_path,omitempty"`
}

func writeRecord(dir string, j *job) error {
	rec := record{Snapshot: j.snapshot(), SourcePath: j.sourcePath, ArtifactPath: j.artifactPath}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	path := filepath.Join(dir, j.id+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write job record: %w", err)
	}
	return nil
}

// downloadName maps the uploaded filename onto the artifact download name,
// e.g. "report.pdf" → "report.docx".
func downloadName(originalName string) string {
	base := filepath.Base(originalName)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "document.pdf"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "document"
	}
	return stem + ".docx"
}

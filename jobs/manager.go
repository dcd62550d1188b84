package jobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/wudi/pdf2docx/convert"
	"github.com/wudi/pdf2docx/observability"
)

// Converter runs one conversion from a source file to an output artifact.
// *convert.Pipeline satisfies it; tests substitute fakes.
type Converter interface {
	Convert(ctx context.Context, srcPath, outPath string, progress convert.ProgressFunc) error
}

// Config tunes the manager. Zero values select the defaults.
type Config struct {
	// DataDir is the durable storage root. Uploads, artifacts and job records
	// live in subdirectories keyed by job identifier.
	DataDir string
	// Workers caps concurrently running pipelines. Excess submissions queue.
	Workers int
	// MaxJobLifetime is the watchdog limit: a job still non-terminal past it
	// is failed with a timeout error.
	MaxJobLifetime time.Duration
	// Retention is how long records and their files survive before the
	// reaper removes them.
	Retention time.Duration
	// ReapInterval is the period of the background cleanup schedule.
	ReapInterval time.Duration
	Logger       observability.Logger
}

const (
	DefaultWorkers        = 4
	DefaultMaxJobLifetime = 10 * time.Minute
	DefaultRetention      = time.Hour
	DefaultReapInterval   = 10 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxJobLifetime <= 0 {
		c.MaxJobLifetime = DefaultMaxJobLifetime
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = DefaultReapInterval
	}
	if c.Logger == nil {
		c.Logger = observability.NopLogger{}
	}
	return c
}

// Manager owns the job registry. All mutation — progress updates, terminal
// transitions, reaping — goes through its mutex, so snapshot reads are
// atomic and the reaper can never delete a record mid-update.
type Manager struct {
	cfg  Config
	conv Converter
	log  observability.Logger

	mu   sync.Mutex
	jobs map[string]*job

	sem  chan struct{}
	cron *cron.Cron
}

// NewManager builds a Manager and prepares its storage directories.
func NewManager(conv Converter, cfg Config) (*Manager, error) {
	cfg = cfg.withDefaults()
	for _, dir := range []string{cfg.uploadDir(), cfg.artifactDir(), cfg.recordDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return &Manager{
		cfg:  cfg,
		conv: conv,
		log:  cfg.Logger,
		jobs: make(map[string]*job),
		sem:  make(chan struct{}, cfg.Workers),
	}, nil
}

func (c Config) uploadDir() string   { return filepath.Join(c.DataDir, "uploads") }
func (c Config) artifactDir() string { return filepath.Join(c.DataDir, "converted") }
func (c Config) recordDir() string   { return filepath.Join(c.DataDir, "records") }

// Start launches the background reaper schedule.
func (m *Manager) Start() {
	if m.cron != nil {
		return
	}
	m.cron = cron.New()
	m.cron.AddFunc(fmt.Sprintf("@every %s", m.cfg.ReapInterval), func() { m.Reap() })
	m.cron.Start()
}

// Stop halts the reaper schedule. Running pipelines are not interrupted.
func (m *Manager) Stop() {
	if m.cron != nil {
		m.cron.Stop()
		m.cron = nil
	}
}

// Submit stores the uploaded source, registers a queued job, and schedules
// its conversion without blocking. It returns the fresh job identifier.
// Callers validate file type and size before submitting; malformed content
// surfaces later as a parse failure on the job.
func (m *Manager) Submit(src io.Reader, originalName string) (string, error) {
	id := uuid.NewString()
	sourcePath := filepath.Join(m.cfg.uploadDir(), id+".pdf")

	f, err := os.Create(sourcePath)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(sourcePath)
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(sourcePath)
		return "", fmt.Errorf("store upload: %w", err)
	}

	j := &job{
		id:           id,
		originalName: originalName,
		sourcePath:   sourcePath,
		outPath:      filepath.Join(m.cfg.artifactDir(), id+".docx"),
		status:       StatusQueued,
		message:      "File uploaded successfully",
		createdAt:    time.Now(),
	}
	m.mu.Lock()
	m.jobs[id] = j
	j.watchdog = time.AfterFunc(m.cfg.MaxJobLifetime, func() { m.timeout(id) })
	m.persistLocked(j)
	m.mu.Unlock()

	m.log.Info("job submitted", observability.String("job", id), observability.String("file", originalName))
	go m.run(id)
	return id, nil
}

// Snapshot returns an immutable copy of the job's current state. It never
// blocks on in-progress conversion work.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return j.snapshot(), nil
}

// ArtifactFor returns the artifact reference for a completed job. It returns
// ErrNotReady while the job is still queued, processing, or failed.
func (m *Manager) ArtifactFor(id string) (Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	if j.status != StatusCompleted || j.artifactPath == "" {
		return Artifact{}, ErrNotReady
	}
	j.retrieved = true
	return Artifact{Path: j.artifactPath, Filename: downloadName(j.originalName)}, nil
}

// run executes one job's pipeline on its own goroutine, honoring the worker
// cap. Blocking work happens outside the registry lock.
func (m *Manager) run(id string) {
	m.sem <- struct{}{}
	defer func() { <-m.sem }()

	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok || j.status != StatusQueued {
		// Timed out (or reaped) while waiting for a worker.
		m.mu.Unlock()
		return
	}
	j.status = StatusProcessing
	j.message = "Analyzing PDF structure..."
	srcPath, outPath, deadline := j.sourcePath, j.outPath, j.createdAt.Add(m.cfg.MaxJobLifetime)
	m.mu.Unlock()

	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	err := m.conv.Convert(ctx, srcPath, outPath, func(pct int, msg string) {
		m.reportProgress(id, pct, msg)
	})
	if err != nil {
		m.fail(id, err)
		return
	}
	m.complete(id, outPath)
}

// reportProgress applies a pipeline progress update. Regressions and updates
// to non-processing jobs (late signals after timeout) are dropped. Progress
// is held below 100; only complete publishes 100.
func (m *Manager) reportProgress(id string, pct int, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.status != StatusProcessing {
		return
	}
	if pct > 99 {
		pct = 99
	}
	if pct < j.progress {
		return
	}
	j.progress = pct
	j.message = msg
}

// complete marks the job completed and publishes its artifact. Idempotent: a
// second terminal call is a no-op.
func (m *Manager) complete(id string, artifactPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.status.Terminal() {
		return
	}
	j.watchdog.Stop()
	j.status = StatusCompleted
	j.progress = 100
	j.message = "Conversion completed successfully!"
	j.artifactPath = artifactPath
	j.terminalAt = time.Now()
	m.persistLocked(j)
	m.log.Info("job completed", observability.String("job", id))
}

// fail marks the job failed with a human-readable error detail. Idempotent.
func (m *Manager) fail(id string, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.status.Terminal() {
		return
	}
	m.failLocked(j, cause)
}

func (m *Manager) failLocked(j *job, cause error) {
	j.watchdog.Stop()
	j.status = StatusFailed
	j.errDetail = cause.Error()
	j.message = "Conversion failed"
	j.terminalAt = time.Now()
	m.persistLocked(j)
	m.log.Warn("job failed", observability.String("job", j.id), observability.Error("err", cause))
}

// timeout is the watchdog transition for a job stuck past its maximum
// lifetime. The pipeline goroutine is abandoned, not killed; its late
// completion or failure signals become no-ops.
func (m *Manager) timeout(id string) {
	m.fail(id, fmt.Errorf("%w: job exceeded maximum lifetime of %s", convert.ErrTimeout, m.cfg.MaxJobLifetime))
}

// Reap removes jobs older than the retention window together with their
// source, artifact and record files. Non-terminal stragglers are failed
// first (watchdog backstop) and collected on a later pass. A completed job
// whose artifact was never downloaded is held until the artifact expires:
// one extra retention window counted from completion. Returns the number of
// jobs removed.
func (m *Manager) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	reaped := 0
	for id, j := range m.jobs {
		if now.Sub(j.createdAt) < m.cfg.Retention {
			continue
		}
		if !j.status.Terminal() {
			m.failLocked(j, fmt.Errorf("%w: job exceeded maximum lifetime of %s", convert.ErrTimeout, m.cfg.MaxJobLifetime))
			continue
		}
		if j.status == StatusCompleted && !j.retrieved && now.Sub(j.terminalAt) < m.cfg.Retention {
			continue
		}
		removeIfSet(j.sourcePath)
		// outPath, not artifactPath: a pipeline abandoned by the watchdog can
		// still write the output file without ever publishing it.
		removeIfSet(j.outPath)
		removeIfSet(filepath.Join(m.cfg.recordDir(), id+".json"))
		delete(m.jobs, id)
		reaped++
	}
	if reaped > 0 {
		m.log.Info("reaped expired jobs", observability.Int(observability.MetricJobsReaped, reaped))
	}
	return reaped
}

func (m *Manager) persistLocked(j *job) {
	if err := writeRecord(m.cfg.recordDir(), j); err != nil {
		m.log.Error("persist job record", observability.String("job", j.id), observability.Error("err", err))
	}
}

func removeIfSet(path string) {
	if path != "" {
		os.Remove(path)
	}
}

// Package jobs manages per-run working directories under paths.jobs_dir.
//
// A job directory is named <unix>_<uuid8>_<topic-slug> and holds the segment
// clips, the final video, the report and the job log. While a batch runs the
// directory is locked with an flock on .lock so two runs never write into the
// same place and cleanup leaves it alone.
package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"explainer/internal/logging"
	"explainer/internal/textutil"
)

const (
	SegmentsDirName = "segments"
	LockFileName    = ".lock"
	LogFileName     = "job.log"
	topicSlugLength = 30
	defaultTopic    = "explainer"
)

// ErrLocked reports a job directory held by another run.
var ErrLocked = errors.New("job directory is locked by another run")

// Job is an open, locked job directory.
type Job struct {
	ID        string
	Dir       string
	CreatedAt time.Time
	lock      *flock.Flock
}

// SegmentsDir is where segment clips are written.
func (j *Job) SegmentsDir() string { return filepath.Join(j.Dir, SegmentsDirName) }

// FinalPath is the concatenated video's path.
func (j *Job) FinalPath() string {
	return filepath.Join(j.Dir, fmt.Sprintf("explainer_video_%d.mp4", j.CreatedAt.Unix()))
}

// LogPath is the per-job JSON log.
func (j *Job) LogPath() string { return filepath.Join(j.Dir, LogFileName) }

// Release drops the directory lock. It is safe to call more than once.
func (j *Job) Release() error {
	if j == nil || j.lock == nil {
		return nil
	}
	return j.lock.Unlock()
}

// Info describes a job directory found on disk.
type Info struct {
	ID        string
	Path      string
	Topic     string
	CreatedAt time.Time
	Size      int64
	Locked    bool
}

// Store creates and enumerates job directories.
type Store struct {
	root   string
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDSource overrides the random part of job ids.
func WithIDSource(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLogger sets the logging destination.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logging.NewComponentLogger(logger, "jobs") }
}

// NewStore returns a store rooted at root.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{
		root:   strings.TrimSpace(root),
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logging.NewComponentLogger(nil, "jobs"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the jobs directory.
func (s *Store) Root() string { return s.root }

// NewID builds <unix>_<first 8 of unique>_<slug of topic>.
func NewID(created time.Time, unique, topic string) string {
	unique = strings.ReplaceAll(unique, "-", "")
	if len(unique) > 8 {
		unique = unique[:8]
	}
	slug := textutil.Slug(topic, topicSlugLength)
	if slug == "" {
		slug = defaultTopic
	}
	return fmt.Sprintf("%d_%s_%s", created.Unix(), unique, slug)
}

// ParseID splits a job id into its creation time and topic slug.
func ParseID(id string) (time.Time, string, bool) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 {
		return time.Time{}, "", false
	}
	secs, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || secs <= 0 || len(parts[1]) != 8 {
		return time.Time{}, "", false
	}
	return time.Unix(secs, 0), parts[2], true
}

// Create makes and locks a fresh job directory for topic.
func (s *Store) Create(topic string) (*Job, error) {
	if s.root == "" {
		return nil, errors.New("jobs directory is not configured")
	}
	created := s.now()
	id := NewID(created, s.newID(), topic)
	job, err := s.open(filepath.Join(s.root, id), id, created)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job created",
		logging.String("job_id", id),
		logging.String("path", job.Dir),
		logging.String(logging.FieldEventType, "job_created"),
	)
	return job, nil
}

// Open locks an existing or caller-chosen directory as a job. Re-running a
// batch into the same directory overwrites its outputs.
func (s *Store) Open(dir string) (*Job, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve job dir: %w", err)
	}
	id := filepath.Base(abs)
	created, _, ok := ParseID(id)
	if !ok {
		created = s.now()
	}
	return s.open(abs, id, created)
}

func (s *Store) open(dir, id string, created time.Time) (*Job, error) {
	if err := os.MkdirAll(filepath.Join(dir, SegmentsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock job dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return &Job{ID: id, Dir: dir, CreatedAt: created, lock: lock}, nil
}

// List returns the job directories under the root, newest first.
func (s *Store) List() ([]Info, error) {
	if s.root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var jobs []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		created, topic, ok := ParseID(entry.Name())
		if !ok {
			created = info.ModTime()
			topic = ""
		}
		size, _ := dirSize(path)
		jobs = append(jobs, Info{
			ID:        entry.Name(),
			Path:      path,
			Topic:     topic,
			CreatedAt: created,
			Size:      size,
			Locked:    isLocked(path),
		})
	}
	slices.SortFunc(jobs, func(a, b Info) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return jobs, nil
}

// CleanupResult contains the outcome of a cleanup.
type CleanupResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Cleanup keeps the newest keep jobs and removes the rest. Locked jobs are
// never removed.
func (s *Store) Cleanup(keep int) CleanupResult {
	var result CleanupResult
	if keep < 0 {
		keep = 0
	}
	jobs, err := s.List()
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: s.root, Error: err})
		return result
	}
	if len(jobs) <= keep {
		return result
	}
	for _, job := range jobs[keep:] {
		if job.Locked {
			result.Skipped = append(result.Skipped, job.Path)
			continue
		}
		if err := os.RemoveAll(job.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: job.Path, Error: err})
			s.logger.Warn("failed to remove job directory",
				logging.String("path", job.Path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check jobs_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, job.Path)
		s.logger.Info("removed job directory",
			logging.String("path", job.Path),
			logging.String(logging.FieldEventType, "job_cleanup"),
		)
	}
	return result
}

func isLocked(dir string) bool {
	lockPath := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		return false
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

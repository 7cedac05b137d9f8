package personalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/deusflow/curator/internal/storage"
)

const (
	CacheFileName = "profile_cache.json"
	cacheVersion  = 1
)

// profileCache is what lands in CacheFileName.
type profileCache struct {
	Version        int               `json:"version"`
	ProcessedFiles []string          `json:"processed_files"`
	Fingerprints   map[string]string `json:"fingerprints,omitempty"`
	Aggregate      Aggregate         `json:"aggregate"`
	LastUpdated    time.Time         `json:"last_updated"`
}

// Learner rebuilds the preference profile from record files in dir, reading
// only files it has not seen before.
type Learner struct {
	dir      string
	readFile func(string) ([]byte, error)
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Learner)

func WithLogger(l *slog.Logger) Option {
	return func(lr *Learner) { lr.log = l }
}

// WithReader replaces os.ReadFile for record and cache reads.
func WithReader(read func(string) ([]byte, error)) Option {
	return func(lr *Learner) { lr.readFile = read }
}

func WithClock(now func() time.Time) Option {
	return func(lr *Learner) { lr.now = now }
}

func NewLearner(dir string, opts ...Option) *Learner {
	l := &Learner{dir: dir, readFile: os.ReadFile, now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Learner) cachePath() string {
	return filepath.Join(l.dir, CacheFileName)
}

// Learn returns the current profile. When the record set only grew, just
// the new files are read; when any cached file disappeared or was rewritten
// since it was read, the aggregate is rebuilt from scratch. An unchanged set
// leaves the cache file untouched.
func (l *Learner) Learn() (Profile, error) {
	names, err := storage.ListReviews(l.dir)
	if err != nil {
		return Profile{}, err
	}
	current := make(map[string]string, len(names))
	for _, n := range names {
		current[n] = l.fingerprint(n)
	}

	cached, ok := l.loadCache()
	if !ok && len(names) == 0 {
		return BuildProfile(NewAggregate()), nil
	}
	subset := ok
	if ok {
		for _, n := range cached.ProcessedFiles {
			fp, exists := current[n]
			if !exists {
				subset = false
				l.log.Info("record file removed, rebuilding profile", "file", n)
				break
			}
			if fp == "" || cached.Fingerprints[n] != fp {
				subset = false
				l.log.Info("record file changed, rebuilding profile", "file", n)
				break
			}
		}
	}

	agg := NewAggregate()
	processed := map[string]string{}
	if subset {
		agg.Merge(cached.Aggregate)
		for _, n := range cached.ProcessedFiles {
			processed[n] = cached.Fingerprints[n]
		}
	}

	var fresh []string
	for _, n := range names {
		if _, seen := processed[n]; !seen {
			fresh = append(fresh, n)
		}
	}
	if subset && len(fresh) == 0 {
		l.log.Debug("profile cache up to date", "files", len(names))
		return BuildProfile(agg), nil
	}

	for _, n := range fresh {
		if r, err := l.readReview(n); err != nil {
			l.log.Warn("skipping unreadable record", "file", n, "error", err)
		} else {
			agg.AddReview(r)
		}
		processed[n] = current[n]
	}
	l.log.Info("profile updated", "new_files", len(fresh), "total_files", len(names), "rebuilt", !subset)

	if err := l.saveCache(processed, agg); err != nil {
		return BuildProfile(agg), err
	}
	return BuildProfile(agg), nil
}

// fingerprint identifies one version of a record file by size and
// modification time. An unreadable file has no fingerprint.
func (l *Learner) fingerprint(name string) string {
	info, err := os.Stat(filepath.Join(l.dir, name))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano())
}

func (l *Learner) readReview(name string) (storage.Review, error) {
	data, err := l.readFile(filepath.Join(l.dir, name))
	if err != nil {
		return storage.Review{}, err
	}
	return storage.DecodeReview(data)
}

// loadCache treats a missing, corrupt or foreign-version cache as absent.
func (l *Learner) loadCache() (profileCache, bool) {
	data, err := l.readFile(l.cachePath())
	if err != nil {
		if !os.IsNotExist(err) {
			l.log.Warn("profile cache unreadable, rebuilding", "error", err)
		}
		return profileCache{}, false
	}
	var c profileCache
	if err := json.Unmarshal(data, &c); err != nil {
		l.log.Warn("profile cache corrupt, rebuilding", "error", err)
		return profileCache{}, false
	}
	if c.Version != cacheVersion {
		l.log.Warn("profile cache version mismatch, rebuilding", "version", c.Version)
		return profileCache{}, false
	}
	c.Aggregate.ensure()
	return c, true
}

func (l *Learner) saveCache(processed map[string]string, agg Aggregate) error {
	files := make([]string, 0, len(processed))
	fingerprints := make(map[string]string, len(processed))
	for n, fp := range processed {
		files = append(files, n)
		if fp != "" {
			fingerprints[n] = fp
		}
	}
	sort.Strings(files)

	data, err := json.MarshalIndent(profileCache{
		Version:        cacheVersion,
		ProcessedFiles: files,
		Fingerprints:   fingerprints,
		Aggregate:      agg,
		LastUpdated:    l.now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile cache: %w", err)
	}
	if err := storage.WriteFileAtomic(l.cachePath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to save profile cache: %w", err)
	}
	return nil
}

// Package filestore keeps uploads and results in per-category directories under
// one root, each capped to its N most recently modified files.
package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/metrics"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrUnknownCategory = errors.New("unknown storage category")
	ErrInvalidName     = errors.New("invalid file name")
)

type Category string

const (
	ImageUpload     Category = "images/upload"
	ImageChanged    Category = "images/changed"
	ImageBackground Category = "images/background"
	VideoUpload     Category = "video/upload"
	VideoFrames     Category = "video/changed"
	VideoChanged    Category = "video/changedVideo"
	VideoBackground Category = "video/background"
	VideoRecorded   Category = "video/recorded"
	VideoSnapshots  Category = "video/snapshots"
	VideoThumbnails Category = "video/thumbnails"
	ProgressRecords Category = "progress"
)

const unlimited = 0

// Limits maps each category to the number of files it keeps; 0 keeps everything.
type Limits map[Category]int

type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

type Store struct {
	root   string
	limits Limits
	logger *zap.Logger

	mu     sync.Mutex
	pinned map[string]int
}

// New creates every category directory under root.
func New(root string, limits Limits, logger *zap.Logger) (*Store, error) {
	s := &Store{root: root, limits: limits, logger: logger, pinned: make(map[string]int)}
	for cat := range limits {
		if err := os.MkdirAll(s.Dir(cat), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", cat, err)
		}
	}
	return s, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) Dir(cat Category) string {
	return filepath.Join(s.root, filepath.FromSlash(string(cat)))
}

// NewName returns a unique, time-sortable file name with ext.
func NewName(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ksuid.New().String() + strings.ToLower(ext)
}

// CleanName strips directories from a client-supplied name.
func CleanName(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if base == "/" || base == "." || base == ".." || base == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// Save writes r to cat/name and then applies the category's retention limit.
func (s *Store) Save(cat Category, name string, r io.Reader) (string, error) {
	if _, ok := s.limits[cat]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCategory, cat)
	}
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir(cat), name)

	tmp, err := os.CreateTemp(s.Dir(cat), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename %s: %w", name, err)
	}

	if _, err := s.Enforce(cat); err != nil {
		s.logger.Warn("retention failed", zap.String("category", string(cat)), zap.Error(err))
	}
	return path, nil
}

func (s *Store) SaveBytes(cat Category, name string, data []byte) (string, error) {
	return s.Save(cat, name, bytes.NewReader(data))
}

// Path resolves an existing file in cat.
func (s *Store) Path(cat Category, name string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir(cat), name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, cat, name)
	}
	return path, nil
}

// Reserve returns a path for a file a producer other than Save will write, such
// as ffmpeg output.
func (s *Store) Reserve(cat Category, name string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir(cat), name), nil
}

// List returns the files of cat, newest first.
func (s *Store) List(cat Category) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.Dir(cat))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name > files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

func (s *Store) Remove(cat Category, name string) error {
	path, err := s.Path(cat, name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Pin protects path from retention until the matching Unpin.
func (s *Store) Pin(path string) {
	s.mu.Lock()
	s.pinned[path]++
	s.mu.Unlock()
}

func (s *Store) Unpin(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinned[path] <= 1 {
		delete(s.pinned, path)
		return
	}
	s.pinned[path]--
}

func (s *Store) isPinned(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned[path] > 0
}

// Enforce deletes all but the newest limit files of cat, skipping pinned files.
func (s *Store) Enforce(cat Category) (int, error) {
	limit := s.limits[cat]
	if limit == unlimited {
		return 0, nil
	}
	files, err := s.List(cat)
	if err != nil {
		return 0, err
	}
	if len(files) <= limit {
		return 0, nil
	}

	removed := 0
	for _, f := range files[limit:] {
		path := filepath.Join(s.Dir(cat), f.Name)
		if s.isPinned(path) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("retention delete failed", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		metrics.RetentionDeletedTotal.WithLabelValues(string(cat)).Add(float64(removed))
		s.logger.Debug("retention applied", zap.String("category", string(cat)), zap.Int("removed", removed))
	}
	return removed, nil
}

// Sweep applies retention to every category; scheduled periodically.
func (s *Store) Sweep() {
	for cat := range s.limits {
		if _, err := s.Enforce(cat); err != nil {
			s.logger.Warn("retention sweep failed", zap.String("category", string(cat)), zap.Error(err))
		}
	}
}

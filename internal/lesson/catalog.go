package lesson

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownLesson is returned when a lesson id is not in the catalog.
var ErrUnknownLesson = errors.New("unknown lesson")

// Catalog loads and caches lesson definitions from the filesystem.
type Catalog struct {
	rootDir string
	lessons map[string]*Lesson
	logger  *slog.Logger
	mu      sync.RWMutex
}

// NewCatalog creates a catalog and loads every lesson YAML under rootDir.
// A missing rootDir yields an empty catalog. Skipped files are reported to
// logger, or slog.Default() when nil.
func NewCatalog(rootDir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		rootDir: rootDir,
		lessons: make(map[string]*Lesson),
		logger:  logger,
	}

	if err := c.loadAll(); err != nil {
		return nil, fmt.Errorf("loading lessons: %w", err)
	}
	return c, nil
}

// NewStaticCatalog builds a catalog from lessons already in memory.
func NewStaticCatalog(lessons ...*Lesson) *Catalog {
	c := &Catalog{lessons: make(map[string]*Lesson, len(lessons)), logger: slog.Default()}
	for _, l := range lessons {
		c.lessons[l.ID] = l
	}
	return c
}

// Get returns a lesson by id.
func (c *Catalog) Get(id string) (*Lesson, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lessons[id]
	return l, ok
}

// Lookup is Get with an error for unknown ids.
func (c *Catalog) Lookup(id string) (*Lesson, error) {
	l, ok := c.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLesson, id)
	}
	return l, nil
}

// All returns every loaded lesson ordered by id.
func (c *Catalog) All() []*Lesson {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lessons := make([]*Lesson, 0, len(c.lessons))
	for _, l := range c.lessons {
		lessons = append(lessons, l)
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
	return lessons
}

// Len returns the number of loaded lessons.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lessons)
}

func (c *Catalog) loadAll() error {
	if _, err := os.Stat(c.rootDir); errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("lesson directory not found", "path", c.rootDir)
		return nil
	}

	return filepath.Walk(c.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		return c.loadLesson(path)
	})
}

func (c *Catalog) loadLesson(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	l, err := Parse(data)
	if err != nil {
		c.logger.Warn("skipping invalid lesson YAML", "path", path, "error", err)
		return nil
	}

	c.mu.Lock()
	if _, dup := c.lessons[l.ID]; dup {
		c.logger.Warn("duplicate lesson id, keeping last", "id", l.ID, "path", path)
	}
	c.lessons[l.ID] = l
	c.mu.Unlock()

	return nil
}

// Parse decodes and validates a single lesson document.
func Parse(data []byte) (*Lesson, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode lesson: %w", err)
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	var l Lesson
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode lesson: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lesson %q: %w", l.ID, err)
	}
	return &l, nil
}

package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/lectern/internal/lectern/chunker"
	"github.com/kart-io/lectern/internal/lectern/store"
	"github.com/kart-io/lectern/internal/model"
)

// IngestorConfig configures document ingestion.
type IngestorConfig struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int
	// ChunkOverlap is the overlap between adjacent chunks in runes.
	ChunkOverlap int
	// Workers bounds concurrent course upserts during folder ingestion.
	Workers int
}

// Ingestor parses course documents and writes them to the vector index.
type Ingestor struct {
	index   store.Index
	chunker *chunker.Chunker
	workers int
}

// NewIngestor creates an ingestor over the given index.
func NewIngestor(index store.Index, config *IngestorConfig) *Ingestor {
	if config == nil {
		config = &IngestorConfig{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Ingestor{
		index:   index,
		chunker: chunker.New(config.ChunkSize, config.ChunkOverlap),
		workers: workers,
	}
}

// Ingest parses one raw course document and upserts it. Re-ingesting a
// title already present replaces the prior index entries. Returns the
// course and the number of chunks written.
func (i *Ingestor) Ingest(ctx context.Context, raw string) (*model.Course, int, error) {
	course, chunks, err := i.chunker.Parse(raw)
	if err != nil {
		return nil, 0, err
	}
	if err := i.index.UpsertCourse(ctx, course, chunks); err != nil {
		return nil, 0, fmt.Errorf("index course %q: %w", course.Title, err)
	}
	logger.Infow("course ingested",
		"title", course.Title,
		"lessons", len(course.Lessons),
		"chunks", len(chunks),
	)
	return course, len(chunks), nil
}

// IngestFolder ingests every course document in dir, skipping titles
// already present in the index. Parsing runs sequentially so duplicate
// titles within the folder resolve first-file-wins; upserts of the
// remaining distinct titles run concurrently. Returns the number of
// courses ingested.
func (i *Ingestor) IngestFolder(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read course folder: %w", err)
	}

	existing, err := i.index.ListCourseTitles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list indexed courses: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, title := range existing {
		seen[title] = true
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isCourseFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	type parsed struct {
		course *model.Course
		chunks []model.CourseChunk
	}
	var pending []parsed
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warnw("skipping unreadable course file", "path", path, "error", err)
			continue
		}
		course, chunks, err := i.chunker.Parse(string(raw))
		if err != nil {
			logger.Warnw("skipping malformed course file", "path", path, "error", err)
			continue
		}
		if seen[course.Title] {
			logger.Infow("skipping already indexed course", "title", course.Title, "path", path)
			continue
		}
		seen[course.Title] = true
		pending = append(pending, parsed{course: course, chunks: chunks})
	}
	if len(pending) == 0 {
		return 0, nil
	}

	pool, err := ants.NewPool(i.workers)
	if err != nil {
		return 0, fmt.Errorf("create ingest pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ingested int
		firstErr error
	)
	for _, p := range pending {
		p := p
		wg.Add(1)
		submit := func() {
			defer wg.Done()
			if err := i.index.UpsertCourse(ctx, p.course, p.chunks); err != nil {
				logger.Errorw("course ingestion failed", "title", p.course.Title, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			logger.Infow("course ingested", "title", p.course.Title, "chunks", len(p.chunks))
			mu.Lock()
			ingested++
			mu.Unlock()
		}
		if err := pool.Submit(submit); err != nil {
			// Pool rejected the task; run it inline.
			submit()
		}
	}
	wg.Wait()

	if ingested == 0 && firstErr != nil {
		return 0, firstErr
	}
	return ingested, nil
}

func isCourseFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kart-io/lectern/internal/model"
	"github.com/kart-io/lectern/internal/pkg/textutil"
	"github.com/kart-io/lectern/pkg/llm"
)

// MemoryIndex is an in-memory Index using brute-force cosine scans.
// Intended for tests and single-node deployments without Milvus.
type MemoryIndex struct {
	embedder llm.EmbeddingProvider

	mu      sync.RWMutex
	catalog map[string]*memoryCourse
	chunks  []memoryChunk
}

type memoryCourse struct {
	course    model.Course
	embedding []float32
}

type memoryChunk struct {
	hit       SearchHit
	embedding []float32
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(embedder llm.EmbeddingProvider) *MemoryIndex {
	return &MemoryIndex{
		embedder: embedder,
		catalog:  make(map[string]*memoryCourse),
	}
}

// UpsertCourse replaces all stored data for the course.
func (s *MemoryIndex) UpsertCourse(ctx context.Context, course *model.Course, chunks []model.CourseChunk) error {
	if course == nil || course.Title == "" {
		return fmt.Errorf("course title is required")
	}

	texts := make([]string, 0, len(chunks)+1)
	texts = append(texts, course.Description())
	for _, c := range chunks {
		texts = append(texts, c.Content)
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed course %q: %w", course.Title, err)
	}
	if len(embeddings) != len(texts) {
		return fmt.Errorf("embed course %q: got %d vectors for %d texts", course.Title, len(embeddings), len(texts))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop any previous rows for this title.
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.hit.CourseTitle != course.Title {
			kept = append(kept, c)
		}
	}
	s.chunks = kept

	s.catalog[course.Title] = &memoryCourse{
		course:    *course,
		embedding: embeddings[0],
	}

	for i, c := range chunks {
		hit := SearchHit{
			Content:     c.Content,
			CourseTitle: c.CourseTitle,
			Link:        course.Link,
		}
		if c.LessonNumber != nil {
			n := *c.LessonNumber
			hit.LessonNumber = &n
			hit.Link = course.LessonLink(n)
		}
		s.chunks = append(s.chunks, memoryChunk{
			hit:       hit,
			embedding: embeddings[i+1],
		})
	}

	return nil
}

// Search scans all chunks and returns the best cosine matches.
func (s *MemoryIndex) Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchHit, error) {
	vector, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []SearchHit
	for _, c := range s.chunks {
		if filter != nil {
			if filter.CourseTitle != "" && c.hit.CourseTitle != filter.CourseTitle {
				continue
			}
			if filter.LessonNumber != nil {
				if c.hit.LessonNumber == nil || *c.hit.LessonNumber != *filter.LessonNumber {
					continue
				}
			}
		}
		hit := c.hit
		hit.Score = float32(textutil.CosineSimilarity(vector, c.embedding))
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// ResolveCourseTitle returns the catalog title whose description embedding
// is nearest to the name.
func (s *MemoryIndex) ResolveCourseTitle(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("resolve %q: %w", name, ErrNotFound)
	}

	vector, err := s.embedder.EmbedSingle(ctx, name)
	if err != nil {
		return "", fmt.Errorf("embed course name: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	best := ""
	bestScore := float64(-2)
	for title, entry := range s.catalog {
		score := textutil.CosineSimilarity(vector, entry.embedding)
		if score > bestScore || (score == bestScore && title < best) {
			best = title
			bestScore = score
		}
	}
	if best == "" {
		return "", fmt.Errorf("resolve %q: %w", name, ErrNotFound)
	}
	return best, nil
}

// Outline returns the course metadata for an exact title.
func (s *MemoryIndex) Outline(ctx context.Context, courseTitle string) (*model.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.catalog[courseTitle]
	if !ok {
		return nil, fmt.Errorf("outline %q: %w", courseTitle, ErrNotFound)
	}
	course := entry.course
	return &course, nil
}

// ListCourseTitles returns all catalog titles sorted for determinism.
func (s *MemoryIndex) ListCourseTitles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]string, 0, len(s.catalog))
	for title := range s.catalog {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// CourseCount returns the number of catalog entries.
func (s *MemoryIndex) CourseCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.catalog), nil
}

// Clear removes all courses and chunks.
func (s *MemoryIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = make(map[string]*memoryCourse)
	s.chunks = nil
	return nil
}

// Close is a no-op for the in-memory index.
func (s *MemoryIndex) Close(ctx context.Context) error {
	return nil
}

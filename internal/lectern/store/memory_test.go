package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/lectern/internal/lectern/store"
	"github.com/kart-io/lectern/internal/model"
)

// stubEmbedder maps known texts to fixed vectors so similarity ordering
// is fully deterministic.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *stubEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *stubEmbedder) Name() string { return "stub" }

func (e *stubEmbedder) vector(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return []float32{1, 1, 1}
}

func intPtr(n int) *int { return &n }

func testCourse() *model.Course {
	return &model.Course{
		Title:      "Building RAG Systems",
		Instructor: "Ada Lovelace",
		Link:       "https://example.com/rag",
		Lessons: []model.Lesson{
			{Number: 1, Title: "Introduction", Link: "https://example.com/rag/1"},
			{Number: 2, Title: "Chunking", Link: "https://example.com/rag/2"},
		},
	}
}

func testChunks(title string) []model.CourseChunk {
	return []model.CourseChunk{
		{Content: "welcome to the course", CourseTitle: title, LessonNumber: nil, ChunkIndex: 0},
		{Content: "embeddings turn text into vectors", CourseTitle: title, LessonNumber: intPtr(1), ChunkIndex: 1},
		{Content: "chunk documents with overlap", CourseTitle: title, LessonNumber: intPtr(2), ChunkIndex: 2},
	}
}

func newTestIndex(t *testing.T) *store.MemoryIndex {
	t.Helper()

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"embeddings turn text into vectors": {1, 0, 0},
		"chunk documents with overlap":      {0, 1, 0},
		"welcome to the course":             {0, 0, 1},
		"vector embeddings":                 {0.9, 0.1, 0},
		"how to chunk":                      {0.1, 0.9, 0},
	}}

	idx := store.NewMemoryIndex(embedder)
	require.NoError(t, idx.UpsertCourse(context.Background(), testCourse(), testChunks("Building RAG Systems")))
	return idx
}

func TestMemoryIndexSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	hits, err := idx.Search(ctx, "vector embeddings", 2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, "embeddings turn text into vectors", hits[0].Content)
	assert.Equal(t, "Building RAG Systems", hits[0].CourseTitle)
	require.NotNil(t, hits[0].LessonNumber)
	assert.Equal(t, 1, *hits[0].LessonNumber)
	assert.Equal(t, "https://example.com/rag/1", hits[0].Link)
}

func TestMemoryIndexSearchWithFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	t.Run("lesson filter", func(t *testing.T) {
		hits, err := idx.Search(ctx, "vector embeddings", 5, &store.SearchFilter{LessonNumber: intPtr(2)})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "chunk documents with overlap", hits[0].Content)
	})

	t.Run("course filter excludes other courses", func(t *testing.T) {
		hits, err := idx.Search(ctx, "how to chunk", 5, &store.SearchFilter{CourseTitle: "No Such Course"})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("course-level chunk has no lesson number", func(t *testing.T) {
		hits, err := idx.Search(ctx, "welcome to the course", 1, nil)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Nil(t, hits[0].LessonNumber)
		assert.Equal(t, "https://example.com/rag", hits[0].Link)
	})
}

func TestMemoryIndexUpsertReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// A second upsert of the same title must not duplicate rows.
	require.NoError(t, idx.UpsertCourse(ctx, testCourse(), testChunks("Building RAG Systems")))

	count, err := idx.CourseCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := idx.Search(ctx, "vector embeddings", 100, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestMemoryIndexResolveCourseTitle(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	title, err := idx.ResolveCourseTitle(ctx, "rag course")
	require.NoError(t, err)
	assert.Equal(t, "Building RAG Systems", title)

	_, err = idx.ResolveCourseTitle(ctx, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryIndexResolveEmptyCatalog(t *testing.T) {
	idx := store.NewMemoryIndex(&stubEmbedder{})

	_, err := idx.ResolveCourseTitle(context.Background(), "anything")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryIndexOutline(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	course, err := idx.Outline(ctx, "Building RAG Systems")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", course.Instructor)
	require.Len(t, course.Lessons, 2)
	assert.Equal(t, "Chunking", course.Lessons[1].Title)

	_, err = idx.Outline(ctx, "Unknown Course")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryIndexClear(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Clear(ctx))

	count, err := idx.CourseCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	titles, err := idx.ListCourseTitles(ctx)
	require.NoError(t, err)
	assert.Empty(t, titles)
}

package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/lectern/internal/model"
	"github.com/kart-io/lectern/pkg/component/milvus"
	"github.com/kart-io/lectern/pkg/llm"
	"github.com/kart-io/lectern/pkg/utils/json"
)

// courseLevelLesson marks chunks that belong to the course preamble
// rather than a numbered lesson.
const courseLevelLesson = int64(-1)

// MilvusConfig configures the Milvus-backed index.
type MilvusConfig struct {
	CatalogCollection string
	ContentCollection string
	Dimension         int
}

// MilvusIndex implements Index on top of two Milvus collections.
type MilvusIndex struct {
	client   *milvus.Client
	embedder llm.EmbeddingProvider
	cfg      MilvusConfig
}

var _ Index = (*MilvusIndex)(nil)

// NewMilvusIndex creates a Milvus-backed index, creating and loading both
// collections if they do not exist yet.
func NewMilvusIndex(ctx context.Context, client *milvus.Client, embedder llm.EmbeddingProvider, cfg MilvusConfig) (*MilvusIndex, error) {
	idx := &MilvusIndex{
		client:   client,
		embedder: embedder,
		cfg:      cfg,
	}
	if err := idx.ensureCollections(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *MilvusIndex) ensureCollections(ctx context.Context) error {
	catalog := &milvus.CollectionSchema{
		Name:        s.cfg.CatalogCollection,
		Description: "course metadata keyed by title",
		Dimension:   s.cfg.Dimension,
		PrimaryKey:  &milvus.MetaField{Name: "title", DataType: entity.FieldTypeVarChar, MaxLen: 512},
		MetaFields: []milvus.MetaField{
			{Name: "instructor", DataType: entity.FieldTypeVarChar, MaxLen: 256},
			{Name: "link", DataType: entity.FieldTypeVarChar, MaxLen: 1024},
			{Name: "lessons_json", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: "lesson_count", DataType: entity.FieldTypeInt64},
		},
	}
	if err := s.client.CreateCollection(ctx, catalog); err != nil {
		return fmt.Errorf("create catalog collection: %w", err)
	}

	content := &milvus.CollectionSchema{
		Name:        s.cfg.ContentCollection,
		Description: "embedded course content chunks",
		Dimension:   s.cfg.Dimension,
		MetaFields: []milvus.MetaField{
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: "course_title", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "lesson_number", DataType: entity.FieldTypeInt64},
			{Name: "lesson_link", DataType: entity.FieldTypeVarChar, MaxLen: 1024},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
		},
	}
	if err := s.client.CreateCollection(ctx, content); err != nil {
		return fmt.Errorf("create content collection: %w", err)
	}

	return nil
}

// UpsertCourse replaces all rows for the course in both collections.
func (s *MilvusIndex) UpsertCourse(ctx context.Context, course *model.Course, chunks []model.CourseChunk) error {
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

	titleExpr := strconv.Quote(course.Title)
	if err := s.client.DeleteByExpr(ctx, s.cfg.CatalogCollection, "title == "+titleExpr); err != nil {
		return fmt.Errorf("delete stale catalog rows: %w", err)
	}
	if err := s.client.DeleteByExpr(ctx, s.cfg.ContentCollection, "course_title == "+titleExpr); err != nil {
		return fmt.Errorf("delete stale content rows: %w", err)
	}

	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons for %q: %w", course.Title, err)
	}

	catalogData := &milvus.InsertData{
		Embeddings: embeddings[:1],
		Metadata: map[string][]any{
			"title":        {course.Title},
			"instructor":   {course.Instructor},
			"link":         {course.Link},
			"lessons_json": {string(lessonsJSON)},
			"lesson_count": {int64(len(course.Lessons))},
		},
	}
	if _, err := s.client.Insert(ctx, s.cfg.CatalogCollection, catalogData); err != nil {
		return fmt.Errorf("insert catalog row for %q: %w", course.Title, err)
	}

	if len(chunks) == 0 {
		return nil
	}

	contentData := &milvus.InsertData{
		Embeddings: embeddings[1:],
		Metadata: map[string][]any{
			"content":       make([]any, len(chunks)),
			"course_title":  make([]any, len(chunks)),
			"lesson_number": make([]any, len(chunks)),
			"lesson_link":   make([]any, len(chunks)),
			"chunk_index":   make([]any, len(chunks)),
		},
	}
	for i, c := range chunks {
		lessonNumber := courseLevelLesson
		link := course.Link
		if c.LessonNumber != nil {
			lessonNumber = int64(*c.LessonNumber)
			link = course.LessonLink(*c.LessonNumber)
		}
		contentData.Metadata["content"][i] = c.Content
		contentData.Metadata["course_title"][i] = c.CourseTitle
		contentData.Metadata["lesson_number"][i] = lessonNumber
		contentData.Metadata["lesson_link"][i] = link
		contentData.Metadata["chunk_index"][i] = int64(c.ChunkIndex)
	}
	if _, err := s.client.Insert(ctx, s.cfg.ContentCollection, contentData); err != nil {
		return fmt.Errorf("insert content rows for %q: %w", course.Title, err)
	}

	return nil
}

// Search embeds the query and runs a filtered similarity search over the
// content collection.
func (s *MilvusIndex) Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchHit, error) {
	vector, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	expr := ""
	if filter != nil {
		if filter.CourseTitle != "" {
			expr = "course_title == " + strconv.Quote(filter.CourseTitle)
		}
		if filter.LessonNumber != nil {
			cond := fmt.Sprintf("lesson_number == %d", *filter.LessonNumber)
			if expr != "" {
				expr += " and " + cond
			} else {
				expr = cond
			}
		}
	}

	outputFields := []string{"content", "course_title", "lesson_number", "lesson_link"}
	results, err := s.client.Search(ctx, s.cfg.ContentCollection, vector, limit, expr, outputFields)
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hit := SearchHit{Score: r.Score}

		content, ok := r.Metadata["content"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: content field missing in search result", ErrIndexCorruption)
		}
		hit.Content = content

		if title, ok := r.Metadata["course_title"].(string); ok {
			hit.CourseTitle = title
		}
		if link, ok := r.Metadata["lesson_link"].(string); ok {
			hit.Link = link
		}
		if n, ok := r.Metadata["lesson_number"].(int64); ok && n != courseLevelLesson {
			lesson := int(n)
			hit.LessonNumber = &lesson
		}

		hits = append(hits, hit)
	}

	return hits, nil
}

// ResolveCourseTitle resolves a fuzzy name against the catalog by
// embedding it and taking the nearest course description.
func (s *MilvusIndex) ResolveCourseTitle(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("resolve %q: %w", name, ErrNotFound)
	}

	vector, err := s.embedder.EmbedSingle(ctx, name)
	if err != nil {
		return "", fmt.Errorf("embed course name: %w", err)
	}

	results, err := s.client.Search(ctx, s.cfg.CatalogCollection, vector, 1, "", []string{"title"})
	if err != nil {
		return "", fmt.Errorf("search catalog: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("resolve %q: %w", name, ErrNotFound)
	}

	title, ok := results[0].Metadata["title"].(string)
	if !ok || title == "" {
		return "", fmt.Errorf("%w: title field missing in catalog result", ErrIndexCorruption)
	}
	return title, nil
}

// Outline returns the stored course metadata for an exact title.
func (s *MilvusIndex) Outline(ctx context.Context, courseTitle string) (*model.Course, error) {
	rows, err := s.client.Query(ctx, s.cfg.CatalogCollection,
		"title == "+strconv.Quote(courseTitle),
		[]string{"title", "instructor", "link", "lessons_json"}, 1)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("outline %q: %w", courseTitle, ErrNotFound)
	}

	row := rows[0]
	course := &model.Course{Title: courseTitle}
	if v, ok := row["instructor"].(string); ok {
		course.Instructor = v
	}
	if v, ok := row["link"].(string); ok {
		course.Link = v
	}

	lessonsJSON, ok := row["lessons_json"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: lessons_json missing for %q", ErrIndexCorruption, courseTitle)
	}
	if err := json.Unmarshal([]byte(lessonsJSON), &course.Lessons); err != nil {
		return nil, fmt.Errorf("%w: decode lessons for %q: %v", ErrIndexCorruption, courseTitle, err)
	}

	return course, nil
}

// ListCourseTitles returns all catalog titles.
func (s *MilvusIndex) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.client.Query(ctx, s.cfg.CatalogCollection, `title != ""`, []string{"title"}, 0)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}

	titles := make([]string, 0, len(rows))
	for _, row := range rows {
		if title, ok := row["title"].(string); ok {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// CourseCount returns the number of catalog entries.
func (s *MilvusIndex) CourseCount(ctx context.Context) (int, error) {
	titles, err := s.ListCourseTitles(ctx)
	if err != nil {
		return 0, err
	}
	return len(titles), nil
}

// Clear drops and recreates both collections.
func (s *MilvusIndex) Clear(ctx context.Context) error {
	if err := s.client.DropCollection(ctx, s.cfg.CatalogCollection); err != nil {
		return fmt.Errorf("drop catalog: %w", err)
	}
	if err := s.client.DropCollection(ctx, s.cfg.ContentCollection); err != nil {
		return fmt.Errorf("drop content: %w", err)
	}
	return s.ensureCollections(ctx)
}

// Close closes the Milvus connection.
func (s *MilvusIndex) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

package store

import (
	"context"
	"errors"

	"github.com/kart-io/lectern/internal/model"
)

var (
	// ErrNotFound indicates the requested course does not exist in the
	// catalog, or a resolution query matched nothing.
	ErrNotFound = errors.New("course not found")

	// ErrIndexCorruption indicates stored metadata could not be decoded.
	ErrIndexCorruption = errors.New("index metadata corrupted")
)

// SearchFilter restricts a content search. Zero values leave the
// corresponding dimension unfiltered. CourseTitle must be an exact
// catalog title; callers resolve fuzzy names first.
type SearchFilter struct {
	CourseTitle  string
	LessonNumber *int
}

// SearchHit is a single content search result.
type SearchHit struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Link         string
	Score        float32
}

// Index is the dual-collection vector index over course materials.
// Implementations own the embedding provider: callers pass raw text and
// never see vectors.
type Index interface {
	// UpsertCourse replaces all stored data for a course. A re-run with
	// the same title never duplicates rows.
	UpsertCourse(ctx context.Context, course *model.Course, chunks []model.CourseChunk) error

	// Search finds the chunks most similar to the query, subject to the
	// optional filter. Results are ordered best first.
	Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchHit, error)

	// ResolveCourseTitle resolves a fuzzy course name to the nearest
	// catalog title. Returns ErrNotFound when the catalog is empty or
	// name is blank.
	ResolveCourseTitle(ctx context.Context, name string) (string, error)

	// Outline returns the full course metadata for an exact title.
	Outline(ctx context.Context, courseTitle string) (*model.Course, error)

	// ListCourseTitles returns all catalog titles.
	ListCourseTitles(ctx context.Context) ([]string, error)

	// CourseCount returns the number of courses in the catalog.
	CourseCount(ctx context.Context) (int, error)

	// Clear removes all courses and chunks.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

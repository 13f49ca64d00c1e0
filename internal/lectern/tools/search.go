package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/lectern/internal/lectern/store"
	"github.com/kart-io/lectern/internal/model"
	"github.com/kart-io/lectern/pkg/llm"
)

// SearchTool answers content questions by nearest-neighbor search over
// the content collection, with optional course and lesson scoping.
type SearchTool struct {
	index      store.Index
	maxResults int
}

var _ Tool = (*SearchTool)(nil)

// NewSearchTool creates the content search tool returning up to
// maxResults chunks per call.
func NewSearchTool(index store.Index, maxResults int) *SearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchTool{index: index, maxResults: maxResults}
}

func (t *SearchTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and optional lesson filtering",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title, partial names accepted (e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

type searchArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

func (t *SearchTool) Execute(ctx context.Context, arguments string, rec *SourceRecorder) (string, error) {
	var args searchArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return "", fmt.Errorf("decode search arguments: %w", err)
	}

	filter := &store.SearchFilter{LessonNumber: args.LessonNumber}
	if args.CourseName != "" {
		title, err := t.index.ResolveCourseTitle(ctx, args.CourseName)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("No course found matching '%s'.", args.CourseName), nil
		}
		if err != nil {
			return "", err
		}
		filter.CourseTitle = title
	}

	hits, err := t.index.Search(ctx, args.Query, t.maxResults, filter)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return emptySearchMessage(filter), nil
	}

	blocks := make([]string, 0, len(hits))
	for _, hit := range hits {
		header := "[" + hit.CourseTitle + "]"
		if hit.LessonNumber != nil {
			header = fmt.Sprintf("[%s - Lesson %d]", hit.CourseTitle, *hit.LessonNumber)
		}
		blocks = append(blocks, header+"\n"+hit.Content)

		rec.Record(model.SourceRef{
			CourseTitle:  hit.CourseTitle,
			LessonNumber: hit.LessonNumber,
			Link:         hit.Link,
		})
	}
	return strings.Join(blocks, "\n\n"), nil
}

func emptySearchMessage(filter *store.SearchFilter) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if filter.CourseTitle != "" {
		fmt.Fprintf(&b, " in course '%s'", filter.CourseTitle)
	}
	if filter.LessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *filter.LessonNumber)
	}
	b.WriteString(".")
	return b.String()
}

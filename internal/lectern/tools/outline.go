package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/lectern/internal/lectern/store"
	"github.com/kart-io/lectern/pkg/llm"
)

// OutlineTool returns a course's full lesson list so the model can
// answer structural questions without searching content.
type OutlineTool struct {
	index store.Index
}

var _ Tool = (*OutlineTool)(nil)

// NewOutlineTool creates the course outline tool.
func NewOutlineTool(index store.Index) *OutlineTool {
	return &OutlineTool{index: index}
}

func (t *OutlineTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "get_course_outline",
		Description: "Get the complete outline of a course: its title, link and full ordered lesson list",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title, partial names accepted (e.g. 'MCP', 'Introduction')",
				},
			},
			"required": []string{"course_name"},
		},
	}
}

type outlineArgs struct {
	CourseName string `json:"course_name"`
}

func (t *OutlineTool) Execute(ctx context.Context, arguments string, _ *SourceRecorder) (string, error) {
	var args outlineArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return "", fmt.Errorf("decode outline arguments: %w", err)
	}

	title, err := t.index.ResolveCourseTitle(ctx, args.CourseName)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("No course found matching '%s'.", args.CourseName), nil
	}
	if err != nil {
		return "", err
	}

	course, err := t.index.Outline(ctx, title)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("No course found matching '%s'.", args.CourseName), nil
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course Title: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", course.Link)
	}
	fmt.Fprintf(&b, "Total Lessons: %d\n", len(course.Lessons))
	for _, lesson := range course.Lessons {
		fmt.Fprintf(&b, "\nLesson %d: %s", lesson.Number, lesson.Title)
	}
	return b.String(), nil
}

// Package model provides data models for the Lectern course assistant.
package model

import (
	"fmt"
	"strings"
)

// Lesson represents a single lesson within a course.
type Lesson struct {
	// Number is the lesson number, unique within its course.
	Number int `json:"lesson_number"`
	// Title is the lesson title.
	Title string `json:"lesson_title"`
	// Link is the optional lesson video link.
	Link string `json:"lesson_link,omitempty"`
}

// Course represents a course document with its ordered lessons.
type Course struct {
	// Title uniquely identifies the course.
	Title string `json:"title"`
	// Instructor is the optional course instructor.
	Instructor string `json:"instructor,omitempty"`
	// Link is the optional course page link.
	Link string `json:"course_link,omitempty"`
	// Lessons is the ordered lesson list.
	Lessons []Lesson `json:"lessons"`
}

// LessonLink returns the link of the lesson with the given number,
// or the empty string when the lesson has none or does not exist.
func (c *Course) LessonLink(number int) string {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l.Link
		}
	}
	return ""
}

// Description renders the canonical course description string that is
// embedded into the catalog collection for fuzzy title resolution.
func (c *Course) Description() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course %s", c.Title)
	if c.Instructor != "" {
		fmt.Fprintf(&b, " taught by %s", c.Instructor)
	}
	if len(c.Lessons) > 0 {
		b.WriteString(":")
		for i, l := range c.Lessons {
			if i > 0 {
				b.WriteString(";")
			}
			fmt.Fprintf(&b, " Lesson %d. %s", l.Number, l.Title)
		}
	}
	return b.String()
}

// CourseChunk represents one retrievable span of course text.
type CourseChunk struct {
	// Content is the stored chunk text, already prefixed with its locator.
	Content string `json:"content"`
	// CourseTitle is the owning course title.
	CourseTitle string `json:"course_title"`
	// LessonNumber is the owning lesson number, nil for course-level chunks.
	LessonNumber *int `json:"lesson_number,omitempty"`
	// ChunkIndex is the sequence index within the course, contiguous from 0.
	ChunkIndex int `json:"chunk_index"`
}

// SourceRef is a citation unit attached to a generated answer.
type SourceRef struct {
	// CourseTitle is the cited course.
	CourseTitle string `json:"course_title"`
	// LessonNumber is the cited lesson, nil for course-level citations.
	LessonNumber *int `json:"lesson_number,omitempty"`
	// Link points at the cited lesson or course, when known.
	Link string `json:"link,omitempty"`
}

// Label renders the human-readable citation label ("Course - Lesson N").
func (s SourceRef) Label() string {
	if s.LessonNumber != nil {
		return fmt.Sprintf("%s - Lesson %d", s.CourseTitle, *s.LessonNumber)
	}
	return s.CourseTitle
}

// QueryResult is the outcome of one assistant exchange.
type QueryResult struct {
	Answer    string      `json:"answer"`
	Sources   []SourceRef `json:"sources"`
	SessionID string      `json:"session_id"`
}

// Analytics summarizes the ingested corpus.
type Analytics struct {
	CourseCount  int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

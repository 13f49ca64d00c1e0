// Package chunker parses structured course documents and splits them into
// overlapping content chunks for indexing.
//
// The recognized document format is a header block followed by lesson
// sections:
//
//	Course Title: Building RAG Systems
//	Course Link: https://example.com/rag
//	Course Instructor: Ada Lovelace
//
//	Lesson 1: Introduction
//	Lesson Link: https://example.com/rag/1
//	<lesson body ...>
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kart-io/lectern/internal/model"
	"github.com/kart-io/lectern/internal/pkg/textutil"
)

// ErrMalformedDocument indicates the document has no course title line.
var ErrMalformedDocument = errors.New("malformed course document")

const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Chunker splits course documents into fixed-size overlapping chunks.
// Chunks never span a lesson boundary.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker with the given chunk size and overlap, both in
// Unicode characters.
func New(chunkSize, overlap int) *Chunker {
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

type section struct {
	lessonNumber *int
	body         []string
}

// Parse extracts the course record and its ordered chunks from raw text.
// Chunk indexes are contiguous from 0 across the whole course. Body text
// before the first lesson marker, or the entire body of a lesson-less
// document, becomes course-level chunks.
func (c *Chunker) Parse(raw string) (*model.Course, []model.CourseChunk, error) {
	lines := strings.Split(raw, "\n")

	course := &model.Course{}
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			if course.Title != "" {
				break
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, titlePrefix):
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, titlePrefix))
		case strings.HasPrefix(line, linkPrefix):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, linkPrefix))
		case strings.HasPrefix(line, instructorPrefix):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, instructorPrefix))
		default:
			// First non-header line ends the header block.
			goto body
		}
	}

body:
	if course.Title == "" {
		return nil, nil, fmt.Errorf("%w: no %q line", ErrMalformedDocument, titlePrefix)
	}

	sections := []section{{}}
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if m := lessonMarker.FindStringSubmatch(line); m != nil {
			number, err := strconv.Atoi(m[1])
			if err == nil {
				lesson := model.Lesson{Number: number, Title: strings.TrimSpace(m[2])}

				// An immediately following link line belongs to the lesson.
				if i+1 < len(lines) {
					next := strings.TrimSpace(lines[i+1])
					if strings.HasPrefix(next, lessonLinkPrefix) {
						lesson.Link = strings.TrimSpace(strings.TrimPrefix(next, lessonLinkPrefix))
						i++
					}
				}

				course.Lessons = append(course.Lessons, lesson)
				sections = append(sections, section{lessonNumber: &lesson.Number})
				continue
			}
		}

		last := &sections[len(sections)-1]
		last.body = append(last.body, lines[i])
	}

	var chunks []model.CourseChunk
	for _, sec := range sections {
		body := strings.TrimSpace(strings.Join(sec.body, "\n"))
		if body == "" {
			continue
		}
		for _, piece := range textutil.SplitIntoChunks(body, c.chunkSize, c.overlap) {
			chunks = append(chunks, model.CourseChunk{
				Content:      locatorPrefix(course.Title, sec.lessonNumber) + piece,
				CourseTitle:  course.Title,
				LessonNumber: sec.lessonNumber,
				ChunkIndex:   len(chunks),
			})
		}
	}

	return course, chunks, nil
}

// locatorPrefix builds the human-readable locator stored ahead of each
// chunk's text. It is part of the stored text only, never the metadata.
func locatorPrefix(courseTitle string, lessonNumber *int) string {
	if lessonNumber == nil {
		return fmt.Sprintf("Course %s content: ", courseTitle)
	}
	return fmt.Sprintf("Course %s Lesson %d content: ", courseTitle, *lessonNumber)
}

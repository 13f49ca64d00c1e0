package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/lectern/internal/lectern/chunker"
)

const sampleDoc = `Course Title: Intro to Testing
Course Link: https://example.com/testing
Course Instructor: Grace Hopper

Lesson 1: Why Tests Matter
Lesson Link: https://example.com/testing/1
Tests catch regressions before users do.

Lesson 2: Writing Assertions
Lesson Link: https://example.com/testing/2
Assertions compare actual values with expectations.
`

func TestParseHeader(t *testing.T) {
	c := chunker.New(1000, 200)

	course, chunks, err := c.Parse(sampleDoc)
	require.NoError(t, err)

	assert.Equal(t, "Intro to Testing", course.Title)
	assert.Equal(t, "https://example.com/testing", course.Link)
	assert.Equal(t, "Grace Hopper", course.Instructor)

	require.Len(t, course.Lessons, 2)
	assert.Equal(t, 1, course.Lessons[0].Number)
	assert.Equal(t, "Why Tests Matter", course.Lessons[0].Title)
	assert.Equal(t, "https://example.com/testing/1", course.Lessons[0].Link)
	assert.Equal(t, "Writing Assertions", course.Lessons[1].Title)

	// Each short lesson yields exactly one chunk.
	require.Len(t, chunks, 2)
	require.NotNil(t, chunks[0].LessonNumber)
	assert.Equal(t, 1, *chunks[0].LessonNumber)
	require.NotNil(t, chunks[1].LessonNumber)
	assert.Equal(t, 2, *chunks[1].LessonNumber)
}

func TestParseChunkIndexesContiguous(t *testing.T) {
	var doc strings.Builder
	doc.WriteString("Course Title: Long Course\n\n")
	doc.WriteString("Lesson 1: One\n")
	doc.WriteString(strings.Repeat("a", 2500))
	doc.WriteString("\nLesson 2: Two\n")
	doc.WriteString(strings.Repeat("b", 1500))
	doc.WriteString("\n")

	c := chunker.New(1000, 200)
	_, chunks, err := c.Parse(doc.String())
	require.NoError(t, err)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, "Long Course", chunk.CourseTitle)
	}

	// Lesson 2 starts a fresh chunk run; no chunk mixes lessons.
	for _, chunk := range chunks {
		require.NotNil(t, chunk.LessonNumber)
		switch *chunk.LessonNumber {
		case 1:
			assert.NotContains(t, chunk.Content, "b")
		case 2:
			assert.NotContains(t, chunk.Content, "a")
		}
	}
}

func TestParseLocatorPrefix(t *testing.T) {
	c := chunker.New(1000, 200)

	_, chunks, err := c.Parse(sampleDoc)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(chunks[0].Content, "Course Intro to Testing Lesson 1 content: "))
	assert.Contains(t, chunks[0].Content, "Tests catch regressions")
}

func TestParseNoLessons(t *testing.T) {
	doc := "Course Title: Flat Course\nCourse Instructor: Alan Turing\n\nJust one body of text without lessons.\n"

	c := chunker.New(1000, 200)
	course, chunks, err := c.Parse(doc)
	require.NoError(t, err)

	assert.Empty(t, course.Lessons)
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].LessonNumber)
	assert.True(t, strings.HasPrefix(chunks[0].Content, "Course Flat Course content: "))
}

func TestParseMissingTitle(t *testing.T) {
	c := chunker.New(1000, 200)

	_, _, err := c.Parse("Lesson 1: Orphan\nBody text.\n")
	assert.ErrorIs(t, err, chunker.ErrMalformedDocument)

	_, _, err = c.Parse("")
	assert.ErrorIs(t, err, chunker.ErrMalformedDocument)
}

func TestParseOverlapWithinLesson(t *testing.T) {
	doc := "Course Title: Overlap Course\n\nLesson 1: Big\n" + strings.Repeat("x", 1800) + "\n"

	c := chunker.New(1000, 200)
	_, chunks, err := c.Parse(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// Consecutive chunks of the same lesson share overlapping text.
	first := strings.TrimPrefix(chunks[0].Content, "Course Overlap Course Lesson 1 content: ")
	second := strings.TrimPrefix(chunks[1].Content, "Course Overlap Course Lesson 1 content: ")
	assert.Equal(t, first[len(first)-200:], second[:200])
}

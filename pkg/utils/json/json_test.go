package json

import (
	"bytes"
	stdjson "encoding/json"
	"strings"
	"testing"
)

type sourceRef struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	Link         string `json:"link,omitempty"`
}

type queryResult struct {
	Answer    string      `json:"answer"`
	Sources   []sourceRef `json:"sources,omitempty"`
	SessionID string      `json:"session_id"`
}

func TestMarshal(t *testing.T) {
	lesson := 3
	tests := []struct {
		name string
		data interface{}
	}{
		{
			name: "query result with sources",
			data: queryResult{
				Answer:    "Lesson 3 covers embeddings.",
				SessionID: "session_01ABC",
				Sources: []sourceRef{
					{CourseTitle: "Intro to RAG", LessonNumber: &lesson, Link: "https://example.com/l3"},
				},
			},
		},
		{
			name: "handler envelope",
			data: map[string]interface{}{
				"code":    0,
				"message": "success",
				"data":    map[string]interface{}{"course_count": 2, "course_titles": []string{"a", "b"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.data)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			// The output must be readable by encoding/json regardless of
			// which backend produced it.
			var result interface{}
			if err := stdjson.Unmarshal(got, &result); err != nil {
				t.Errorf("Marshal() produced invalid JSON: %v", err)
			}
		})
	}
}

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		target  interface{}
		wantErr bool
	}{
		{
			name:   "tool arguments",
			json:   `{"query":"what is chunking","course_name":"Intro to RAG","lesson_number":2}`,
			target: &map[string]interface{}{},
		},
		{
			name:   "query result",
			json:   `{"answer":"text","session_id":"session_01ABC"}`,
			target: &queryResult{},
		},
		{
			name:    "invalid json",
			json:    `{invalid}`,
			target:  &queryResult{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Unmarshal([]byte(tt.json), tt.target)
			if (err != nil) != tt.wantErr {
				t.Errorf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncoderDecoderRoundTrip(t *testing.T) {
	in := queryResult{Answer: "answer text", SessionID: "session_01ABC"}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(in); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var out queryResult
	if err := NewDecoder(strings.NewReader(buf.String())).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.Answer != in.Answer || out.SessionID != in.SessionID {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestIsUsingSonic(t *testing.T) {
	t.Logf("sonic backend active: %v", IsUsingSonic())
}

// Session history entries are written concurrently by the Redis store;
// the package-level codec functions must tolerate that.
func TestConcurrentMarshalUnmarshal(t *testing.T) {
	const goroutines = 50
	const iterations = 100

	data := queryResult{Answer: "answer", SessionID: "session_01ABC"}
	errChan := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < iterations; j++ {
				encoded, err := Marshal(data)
				if err != nil {
					errChan <- err
					return
				}
				var result queryResult
				if err := Unmarshal(encoded, &result); err != nil {
					errChan <- err
					return
				}
				if result.SessionID != data.SessionID {
					errChan <- stdjson.Unmarshal(nil, nil)
					return
				}
			}
			errChan <- nil
		}()
	}

	for i := 0; i < goroutines; i++ {
		if err := <-errChan; err != nil {
			t.Errorf("concurrent round trip failed: %v", err)
		}
	}
}

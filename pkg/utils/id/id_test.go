package id_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/kart-io/lectern/pkg/utils/id"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	var ids []string
	for i := 0; i < 1000; i++ {
		v := id.New()
		assert.Len(t, v, 26)
		assert.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
		ids = append(ids, v)
	}

	// Monotonic entropy keeps same-millisecond ids ordered.
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestNewWithPrefix(t *testing.T) {
	v := id.NewWithPrefix("session")
	assert.True(t, strings.HasPrefix(v, "session_"))
	assert.Len(t, v, len("session_")+26)

	assert.Len(t, id.NewWithPrefix(""), 26)
}

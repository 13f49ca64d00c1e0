package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	sessionID, err := store.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)

	require.NoError(t, store.AddExchange(ctx, sessionID, "What is MCP?", "MCP is a protocol."))
	require.NoError(t, store.AddExchange(ctx, sessionID, "Who created it?", "Anthropic."))

	history, err := store.History(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "What is MCP?", history[0].UserMessage)
	assert.Equal(t, "Anthropic.", history[1].AssistantMessage)
}

func TestMemoryStoreUnknownIDIsEmpty(t *testing.T) {
	store := NewMemoryStore(10)

	history, err := store.History(context.Background(), "session_nonexistent")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	sessionID, err := store.Create(ctx)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AddExchange(ctx, sessionID, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
	}

	history, err := store.History(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "q2", history[0].UserMessage)
	assert.Equal(t, "q4", history[2].UserMessage)
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	sessionID, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.AddExchange(ctx, sessionID, "hello", "hi"))
	require.NoError(t, store.Reset(ctx, sessionID))

	history, err := store.History(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	first, err := store.Create(ctx)
	require.NoError(t, err)
	second, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, store.AddExchange(ctx, first, "only here", "yes"))

	history, err := store.History(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFormatHistory(t *testing.T) {
	exchanges := []Exchange{
		{UserMessage: "What is RAG?", AssistantMessage: "Retrieval-augmented generation."},
		{UserMessage: "Give an example.", AssistantMessage: "A course assistant."},
	}

	want := "User: What is RAG?\nAssistant: Retrieval-augmented generation.\n" +
		"User: Give an example.\nAssistant: A course assistant."
	assert.Equal(t, want, FormatHistory(exchanges))
	assert.Empty(t, FormatHistory(nil))
}

package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegraph/notegraph-mcp/internal/storage"
)

func setupTestServer(t *testing.T) *Server {
	server, err := NewServer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.store.Close() })
	return server
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultJSON decodes a tool result's text payload
func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func mcpCode(t *testing.T, err error) int {
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	return mcpErr.Code
}

func TestHandleCreateAndGetLifecycle(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	result, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content":  "Sync with [[Platform Team]]",
		"tags":     []interface{}{"meeting"},
		"contexts": []interface{}{"Platform Team"},
	}))
	require.NoError(t, err)

	note := resultJSON(t, result)
	id, _ := note["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Sync with [[Platform Team]]", note["content"])

	// Update, then delete.
	result, err = server.handleUpdateNote(ctx, callRequest("update_note", map[string]interface{}{
		"id":      id,
		"content": "Synced with [[Platform Team]]",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Synced with [[Platform Team]]", resultJSON(t, result)["content"])

	result, err = server.handleDeleteNote(ctx, callRequest("delete_note", map[string]interface{}{
		"id": id,
	}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["deleted"])
}

func TestHandleCreateNoteMissingContent(t *testing.T) {
	server := setupTestServer(t)

	_, err := server.handleCreateNote(context.Background(),
		callRequest("create_note", map[string]interface{}{}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestHandleCreateNoteInvalidType(t *testing.T) {
	server := setupTestServer(t)

	_, err := server.handleCreateNote(context.Background(),
		callRequest("create_note", map[string]interface{}{
			"content":   "x",
			"note_type": "reminder",
		}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestHandleCreateNoteBadDeadline(t *testing.T) {
	server := setupTestServer(t)

	_, err := server.handleCreateNote(context.Background(),
		callRequest("create_note", map[string]interface{}{
			"content":  "x",
			"deadline": "tomorrow",
		}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestHandleUpdateNoteErrorCodes(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	// Unknown id maps to not-found.
	_, err := server.handleUpdateNote(ctx, callRequest("update_note", map[string]interface{}{
		"id":      "no-such-id",
		"content": "x",
	}))
	assert.Equal(t, ErrorCodeNotFound, mcpCode(t, err))

	// A patch with nothing in it maps to the no-update-fields code.
	result, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content": "present",
	}))
	require.NoError(t, err)
	id := resultJSON(t, result)["id"].(string)

	_, err = server.handleUpdateNote(ctx, callRequest("update_note", map[string]interface{}{
		"id": id,
	}))
	assert.Equal(t, ErrorCodeNoUpdateFields, mcpCode(t, err))
}

func TestHandleUpdateNoteClearsContexts(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	result, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content":  "linked",
		"contexts": []interface{}{"Work"},
	}))
	require.NoError(t, err)
	id := resultJSON(t, result)["id"].(string)

	// An explicit empty array clears links; the patch is still valid.
	result, err = server.handleUpdateNote(ctx, callRequest("update_note", map[string]interface{}{
		"id":       id,
		"contexts": []interface{}{},
	}))
	require.NoError(t, err)
	assert.Nil(t, resultJSON(t, result)["contexts"])
}

func TestHandleFetchNotes(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	_, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content":  "a",
		"contexts": []interface{}{"Work"},
	}))
	require.NoError(t, err)
	_, err = server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content": "b",
	}))
	require.NoError(t, err)

	result, err := server.handleFetchNotes(ctx, callRequest("fetch_notes", map[string]interface{}{
		"contexts": []interface{}{"Work"},
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), resultJSON(t, result)["count"])

	_, err = server.handleFetchNotes(ctx, callRequest("fetch_notes", map[string]interface{}{
		"method": "xor",
	}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestHandleFilterNotes(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	_, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content":   "open todo",
		"note_type": "todo",
		"status":    "open",
	}))
	require.NoError(t, err)
	_, err = server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content":   "done todo",
		"note_type": "todo",
		"status":    "done",
	}))
	require.NoError(t, err)

	result, err := server.handleFilterNotes(ctx, callRequest("filter_notes", map[string]interface{}{
		"note_type": "todo",
		"status":    "open",
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, float64(1), payload["total_count"])
}

func TestHandleSemanticSearchFlow(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	result, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content": "vector me",
	}))
	require.NoError(t, err)
	id := resultJSON(t, result)["id"].(string)

	_, err = server.handleUpsertEmbedding(ctx, callRequest("upsert_embedding", map[string]interface{}{
		"id":        id,
		"embedding": []interface{}{1.0, 0.0},
		"model":     "test-model",
	}))
	require.NoError(t, err)

	result, err = server.handleSemanticSearch(ctx, callRequest("semantic_search", map[string]interface{}{
		"embedding": []interface{}{1.0, 0.0},
		"threshold": 0.5,
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), resultJSON(t, result)["count"])
}

func TestHandleSemanticSearchRequiresEmbedding(t *testing.T) {
	server := setupTestServer(t)

	_, err := server.handleSemanticSearch(context.Background(),
		callRequest("semantic_search", map[string]interface{}{}))
	assert.Equal(t, ErrorCodeEmbeddingRequired, mcpCode(t, err))
}

func TestHandleRenameContext(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	_, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content":  "x",
		"contexts": []interface{}{"old-name"},
	}))
	require.NoError(t, err)

	result, err := server.handleRenameContext(ctx, callRequest("rename_context", map[string]interface{}{
		"old_name": "old-name",
		"new_name": "new-name",
	}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["renamed"])

	// Renaming a missing context maps to not-found.
	_, err = server.handleRenameContext(ctx, callRequest("rename_context", map[string]interface{}{
		"old_name": "ghost",
		"new_name": "anything",
	}))
	assert.Equal(t, ErrorCodeNotFound, mcpCode(t, err))
}

func TestHandleContextExists(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	_, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content":  "x",
		"contexts": []interface{}{"Work"},
	}))
	require.NoError(t, err)

	result, err := server.handleContextExists(ctx, callRequest("context_exists", map[string]interface{}{
		"name": "Work",
	}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["exists"])

	result, err = server.handleContextExists(ctx, callRequest("context_exists", map[string]interface{}{
		"name": "Play",
	}))
	require.NoError(t, err)
	assert.Equal(t, false, resultJSON(t, result)["exists"])
}

func TestHandleContextStatsAndSearch(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	_, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content":  "x",
		"contexts": []interface{}{"Project Alpha", "Project Beta"},
	}))
	require.NoError(t, err)

	result, err := server.handleContextStats(ctx, callRequest("context_stats", map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, float64(2), resultJSON(t, result)["total_count"])

	result, err = server.handleSearchContexts(ctx, callRequest("search_contexts", map[string]interface{}{
		"query": "alpha",
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), resultJSON(t, result)["count"])
}

func TestHandleFilterOptions(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	_, err := server.handleCreateNote(ctx, callRequest("create_note", map[string]interface{}{
		"content":   "x",
		"tags":      []interface{}{"go"},
		"note_type": "todo",
		"contexts":  []interface{}{"Work"},
	}))
	require.NoError(t, err)

	result, err := server.handleFilterOptions(ctx, callRequest("get_filter_options", nil))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, []interface{}{"Work"}, payload["contexts"])
	assert.Equal(t, []interface{}{"go"}, payload["tags"])
}

func TestStoreErrorMapping(t *testing.T) {
	err := storeError("update note", storage.ErrNotFound)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeNotFound, mcpErr.Code)

	err = storeError("update note", storage.ErrNoUpdateFields)
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeNoUpdateFields, mcpErr.Code)

	err = storeError("create note", assert.AnError)
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInternalError, mcpErr.Code)
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"s":     "text",
		"n":     float64(7),
		"f":     0.25,
		"b":     true,
		"list":  []interface{}{"a", "b"},
		"empty": []interface{}{},
		"vec":   []interface{}{1.0, -0.5},
	}

	assert.Equal(t, "text", getStringDefault(args, "s", "d"))
	assert.Equal(t, "d", getStringDefault(args, "missing", "d"))
	assert.Equal(t, 7, getIntDefault(args, "n", 0))
	assert.Equal(t, 3, getIntDefault(args, "missing", 3))
	assert.Equal(t, 0.25, getFloatDefault(args, "f", 0))
	assert.True(t, getBoolDefault(args, "b", false))

	assert.Equal(t, []string{"a", "b"}, stringSlice(args, "list"))
	assert.Nil(t, stringSlice(args, "missing"))

	values, present := optStringSlice(args, "empty")
	assert.True(t, present)
	assert.Empty(t, values)
	_, present = optStringSlice(args, "missing")
	assert.False(t, present)

	assert.Equal(t, []float32{1, -0.5}, float32Slice(args, "vec"))
}

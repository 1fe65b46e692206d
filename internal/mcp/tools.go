package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notegraph/notegraph-mcp/internal/searcher"
	"github.com/notegraph/notegraph-mcp/internal/storage"
	"github.com/notegraph/notegraph-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound          = -32001 // Note or context does not exist
	ErrorCodeNoUpdateFields    = -32002 // Patch carries no changes
	ErrorCodeEmbeddingRequired = -32003 // Semantic search without an embedding
)

// handleCreateNote handles the create_note tool invocation
func (s *Server) handleCreateNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, paramError("content", types.ErrEmptyContent.Error())
	}

	params := storage.CreateNoteParams{
		Content:           content,
		KeyContext:        optString(args, "key_context"),
		Tags:              stringSlice(args, "tags"),
		SuggestedContexts: stringSlice(args, "suggested_contexts"),
		Contexts:          stringSlice(args, "contexts"),
	}

	var err error
	if params.NoteType, err = parseNoteType(args); err != nil {
		return nil, paramError("note_type", err.Error())
	}
	if params.Status, err = parseStatus(args); err != nil {
		return nil, paramError("status", err.Error())
	}
	if params.Deadline, err = parseTimeArg(args, "deadline"); err != nil {
		return nil, paramError("deadline", err.Error())
	}

	note, err := s.store.CreateNote(ctx, params)
	if err != nil {
		return nil, storeError("create note", err)
	}
	return mcp.NewToolResultText(formatAny(note)), nil
}

// handleUpdateNote handles the update_note tool invocation
func (s *Server) handleUpdateNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, paramError("id", "missing or empty")
	}

	params := storage.UpdateNoteParams{
		Content:        optString(args, "content"),
		KeyContext:     optString(args, "key_context"),
		EmbeddingModel: optString(args, "embedding_model"),
	}
	if tags, present := optStringSlice(args, "tags"); present {
		params.Tags = &tags
	}
	if suggested, present := optStringSlice(args, "suggested_contexts"); present {
		params.SuggestedContexts = &suggested
	}
	// Contexts distinguishes absent (links untouched) from an explicit
	// empty array (clear all links).
	if contexts, present := optStringSlice(args, "contexts"); present {
		params.Contexts = &contexts
	}

	var err error
	if params.NoteType, err = parseNoteType(args); err != nil {
		return nil, paramError("note_type", err.Error())
	}
	if params.Status, err = parseStatus(args); err != nil {
		return nil, paramError("status", err.Error())
	}
	if params.Deadline, err = parseTimeArg(args, "deadline"); err != nil {
		return nil, paramError("deadline", err.Error())
	}

	note, err := s.store.UpdateNote(ctx, id, params)
	if err != nil {
		return nil, storeError("update note", err)
	}
	return mcp.NewToolResultText(formatAny(note)), nil
}

// handleDeleteNote handles the delete_note tool invocation
func (s *Server) handleDeleteNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, paramError("id", "missing or empty")
	}

	deleted, err := s.store.DeleteNote(ctx, id)
	if err != nil {
		return nil, storeError("delete note", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"id":      deleted,
	})), nil
}

// handleFetchNotes handles the fetch_notes tool invocation
func (s *Server) handleFetchNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	method := storage.MatchMethod(getStringDefault(args, "method", string(storage.MatchAll)))
	if method != storage.MatchAll && method != storage.MatchAny {
		return nil, paramError("method", "must be and or or")
	}

	notes, err := s.store.FetchNotes(ctx, storage.FetchNotesParams{
		KeyContext: optString(args, "key_context"),
		Contexts:   stringSlice(args, "contexts"),
		Method:     method,
	})
	if err != nil {
		return nil, storeError("fetch notes", err)
	}
	return mcp.NewToolResultText(formatAny(map[string]interface{}{
		"notes": notes,
		"count": len(notes),
	})), nil
}

// handleFilterNotes handles the filter_notes tool invocation
func (s *Server) handleFilterNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	filters := storage.NoteFilters{
		Contexts: stringSlice(args, "contexts"),
		Hashtags: stringSlice(args, "hashtags"),
		Limit:    getIntDefault(args, "limit", 0),
		Offset:   getIntDefault(args, "offset", 0),
	}

	var err error
	if filters.NoteType, err = parseNoteType(args); err != nil {
		return nil, paramError("note_type", err.Error())
	}
	if filters.Status, err = parseStatus(args); err != nil {
		return nil, paramError("status", err.Error())
	}
	for key, dest := range map[string]**time.Time{
		"created_after":   &filters.CreatedAfter,
		"created_before":  &filters.CreatedBefore,
		"deadline_after":  &filters.DeadlineAfter,
		"deadline_before": &filters.DeadlineBefore,
		"deadline_on":     &filters.DeadlineOn,
	} {
		if *dest, err = parseTimeArg(args, key); err != nil {
			return nil, paramError(key, err.Error())
		}
	}

	result, err := s.store.FilterNotes(ctx, filters)
	if err != nil {
		return nil, storeError("filter notes", err)
	}
	return mcp.NewToolResultText(formatAny(result)), nil
}

// handleSemanticSearch handles the semantic_search tool invocation
func (s *Server) handleSemanticSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	embedding := float32Slice(args, "embedding")
	if len(embedding) == 0 {
		return nil, newMCPError(ErrorCodeEmbeddingRequired,
			"a precomputed query embedding is required; this server never generates embeddings", map[string]interface{}{
				"param": "embedding",
			})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Embedding: embedding,
		Threshold: getFloatDefault(args, "threshold", 0),
		Limit:     getIntDefault(args, "limit", 0),
		UseCache:  getBoolDefault(args, "use_cache", false),
	})
	if err != nil {
		return nil, storeError("semantic search", err)
	}
	return mcp.NewToolResultText(formatAny(map[string]interface{}{
		"results":     resp.Results,
		"count":       len(resp.Results),
		"duration_ms": resp.Duration.Milliseconds(),
		"cache_hit":   resp.CacheHit,
	})), nil
}

// handleUpsertEmbedding handles the upsert_embedding tool invocation
func (s *Server) handleUpsertEmbedding(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, paramError("id", "missing or empty")
	}
	model, ok := args["model"].(string)
	if !ok || model == "" {
		return nil, paramError("model", "missing or empty")
	}
	embedding := float32Slice(args, "embedding")
	if len(embedding) == 0 {
		return nil, paramError("embedding", "missing or empty")
	}

	if err := s.store.UpsertNoteEmbedding(ctx, id, embedding, model); err != nil {
		return nil, storeError("upsert embedding", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":        id,
		"model":     model,
		"dimension": len(embedding),
	})), nil
}

// handleRenameContext handles the rename_context tool invocation
func (s *Server) handleRenameContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	oldName, ok := args["old_name"].(string)
	if !ok || oldName == "" {
		return nil, paramError("old_name", "missing or empty")
	}
	newName, ok := args["new_name"].(string)
	if !ok || newName == "" {
		return nil, paramError("new_name", "missing or empty")
	}

	if err := s.store.RenameContext(ctx, oldName, newName); err != nil {
		return nil, storeError("rename context", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"renamed":  true,
		"old_name": oldName,
		"new_name": newName,
	})), nil
}

// handleContextExists handles the context_exists tool invocation
func (s *Server) handleContextExists(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, paramError("name", "missing or empty")
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"name":   name,
		"exists": s.store.ContextExists(ctx, name),
	})), nil
}

// handleSearchContexts handles the search_contexts tool invocation
func (s *Server) handleSearchContexts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, paramError("query", "missing or empty")
	}

	stats, err := s.store.SearchContexts(ctx, query, getIntDefault(args, "limit", 20))
	if err != nil {
		return nil, storeError("search contexts", err)
	}
	return mcp.NewToolResultText(formatAny(map[string]interface{}{
		"contexts": stats,
		"count":    len(stats),
	})), nil
}

// handleContextStats handles the context_stats tool invocation
func (s *Server) handleContextStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	stats, total, err := s.store.ContextStatsPaginated(ctx,
		getIntDefault(args, "limit", 20), getIntDefault(args, "offset", 0))
	if err != nil {
		return nil, storeError("context stats", err)
	}
	return mcp.NewToolResultText(formatAny(map[string]interface{}{
		"contexts":    stats,
		"total_count": total,
	})), nil
}

// handleFilterOptions handles the get_filter_options tool invocation
func (s *Server) handleFilterOptions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := s.store.GetFilterOptions(ctx)
	if err != nil {
		return nil, storeError("get filter options", err)
	}
	return mcp.NewToolResultText(formatAny(opts)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// paramError reports a missing or malformed tool parameter
func paramError(param, reason string) error {
	return newMCPError(ErrorCodeInvalidParams, "invalid parameter", map[string]interface{}{
		"param":  param,
		"reason": reason,
	})
}

// storeError maps storage-layer sentinel errors to MCP error codes
func storeError(op string, err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrContextNotFound):
		return newMCPError(ErrorCodeNotFound, op+" failed", data)
	case errors.Is(err, storage.ErrNoUpdateFields):
		return newMCPError(ErrorCodeNoUpdateFields, op+" failed", data)
	case errors.Is(err, searcher.ErrEmbeddingRequired):
		return newMCPError(ErrorCodeEmbeddingRequired, op+" failed", data)
	case errors.Is(err, searcher.ErrInvalidThreshold), errors.Is(err, searcher.ErrInvalidLimit):
		return newMCPError(ErrorCodeInvalidParams, op+" failed", data)
	}
	return newMCPError(ErrorCodeInternalError, op+" failed", data)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	return formatAny(data)
}

// formatAny formats any value as indented JSON
func formatAny(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// optString extracts an optional string parameter as a pointer
func optString(args map[string]interface{}, key string) *string {
	if val, ok := args[key].(string); ok {
		return &val
	}
	return nil
}

// stringSlice extracts a string array parameter, nil when absent
func stringSlice(args map[string]interface{}, key string) []string {
	values, _ := optStringSlice(args, key)
	return values
}

// optStringSlice extracts a string array parameter and reports whether it
// was present at all, so callers can distinguish absent from empty.
func optStringSlice(args map[string]interface{}, key string) ([]string, bool) {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil, false
	}
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			values = append(values, s)
		}
	}
	return values, true
}

// float32Slice extracts a numeric array parameter as float32s
func float32Slice(args map[string]interface{}, key string) []float32 {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	values := make([]float32, 0, len(raw))
	for _, item := range raw {
		if f, ok := item.(float64); ok {
			values = append(values, float32(f))
		}
	}
	return values
}

// parseTimeArg parses an optional RFC3339 timestamp parameter
func parseTimeArg(args map[string]interface{}, key string) (*time.Time, error) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("must be RFC3339: %v", err)
	}
	return &t, nil
}

// parseNoteType parses and validates an optional note_type parameter
func parseNoteType(args map[string]interface{}) (*types.NoteType, error) {
	raw, ok := args["note_type"].(string)
	if !ok || raw == "" {
		return nil, nil
	}
	nt := types.NoteType(raw)
	if !nt.Valid() {
		return nil, types.ErrInvalidNoteType
	}
	return &nt, nil
}

// parseStatus parses and validates an optional status parameter
func parseStatus(args map[string]interface{}) (*types.NoteStatus, error) {
	raw, ok := args["status"].(string)
	if !ok || raw == "" {
		return nil, nil
	}
	st := types.NoteStatus(raw)
	if !st.Valid() {
		return nil, types.ErrInvalidNoteStatus
	}
	return &st, nil
}

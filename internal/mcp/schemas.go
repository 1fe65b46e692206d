package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// noteFieldProperties are the writable note fields shared by the create
// and update tool schemas.
func noteFieldProperties() map[string]interface{} {
	return map[string]interface{}{
		"content": map[string]interface{}{
			"type":        "string",
			"description": "Note text. May contain [[Context Name]] cross references",
		},
		"key_context": map[string]interface{}{
			"type":        "string",
			"description": "The note's single primary context name",
		},
		"tags": map[string]interface{}{
			"type":        "array",
			"description": "Free-form hashtags",
			"items":       map[string]interface{}{"type": "string"},
		},
		"note_type": map[string]interface{}{
			"type":        "string",
			"description": "Variant of the note",
			"enum":        []string{"note", "todo", "ai-todo", "ai-note"},
		},
		"deadline": map[string]interface{}{
			"type":        "string",
			"description": "RFC3339 deadline timestamp",
		},
		"status": map[string]interface{}{
			"type":        "string",
			"description": "Todo progress",
			"enum":        []string{"open", "in-progress", "done", "archived"},
		},
		"suggested_contexts": map[string]interface{}{
			"type":        "array",
			"description": "Context names suggested but not yet linked",
			"items":       map[string]interface{}{"type": "string"},
		},
		"contexts": map[string]interface{}{
			"type":        "array",
			"description": "Context names to link. On update, an empty array clears all links; omit the field to leave links unchanged",
			"items":       map[string]interface{}{"type": "string"},
		},
	}
}

func createNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_note",
		Description: "Create a note, creating and linking any absent contexts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: noteFieldProperties(),
			Required:   []string{"content"},
		},
	}
}

func updateNoteTool() mcp.Tool {
	props := noteFieldProperties()
	props["id"] = map[string]interface{}{
		"type":        "string",
		"description": "Note id",
	}
	props["embedding_model"] = map[string]interface{}{
		"type":        "string",
		"description": "Model tag to store alongside an embedding written via upsert_embedding",
	}
	return mcp.Tool{
		Name:        "update_note",
		Description: "Apply a partial update to a note. Omitted fields are untouched",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   []string{"id"},
		},
	}
}

func deleteNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_note",
		Description: "Delete a note and all its context links",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Note id",
				},
			},
			Required: []string{"id"},
		},
	}
}

func fetchNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "fetch_notes",
		Description: "List notes newest first, optionally filtered by key context and linked contexts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key_context": map[string]interface{}{
					"type":        "string",
					"description": "Exact key context match",
				},
				"contexts": map[string]interface{}{
					"type":        "array",
					"description": "Context names the notes must be linked to",
					"items":       map[string]interface{}{"type": "string"},
				},
				"method": map[string]interface{}{
					"type":        "string",
					"description": "How multiple contexts combine: and (every name must match) or or (any one suffices)",
					"enum":        []string{"and", "or"},
					"default":     "and",
				},
			},
		},
	}
}

func filterNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "filter_notes",
		Description: "Run a structured, paginated note filter with a total count",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"created_after": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 lower bound on creation time (inclusive)",
				},
				"created_before": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 upper bound on creation time (inclusive)",
				},
				"contexts": map[string]interface{}{
					"type":        "array",
					"description": "Every listed context must be linked",
					"items":       map[string]interface{}{"type": "string"},
				},
				"hashtags": map[string]interface{}{
					"type":        "array",
					"description": "Any one tag match suffices",
					"items":       map[string]interface{}{"type": "string"},
				},
				"note_type": map[string]interface{}{
					"type": "string",
					"enum": []string{"note", "todo", "ai-todo", "ai-note"},
				},
				"deadline_after": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 lower bound on deadline (inclusive)",
				},
				"deadline_before": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 upper bound on deadline (inclusive)",
				},
				"deadline_on": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 timestamp expanded to its full UTC day",
				},
				"status": map[string]interface{}{
					"type": "string",
					"enum": []string{"open", "in-progress", "done", "archived"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Page size (1-50)",
					"default":     20,
					"minimum":     1,
					"maximum":     50,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Page offset",
					"default":     0,
					"minimum":     0,
				},
			},
		},
	}
}

func semanticSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "semantic_search",
		Description: "Rank notes by cosine similarity against a precomputed query embedding",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"embedding": map[string]interface{}{
					"type":        "array",
					"description": "Precomputed query embedding. This server never generates embeddings",
					"items":       map[string]interface{}{"type": "number"},
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum similarity (0.0-1.0)",
					"default":     0.0,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results (1-50)",
					"default":     10,
					"minimum":     1,
					"maximum":     50,
				},
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "Serve repeated identical searches from a short-lived cache",
					"default":     false,
				},
			},
			Required: []string{"embedding"},
		},
	}
}

func upsertEmbeddingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "upsert_embedding",
		Description: "Store or replace a note's embedding vector and its model tag",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Note id",
				},
				"embedding": map[string]interface{}{
					"type":        "array",
					"description": "Embedding vector",
					"items":       map[string]interface{}{"type": "number"},
				},
				"model": map[string]interface{}{
					"type":        "string",
					"description": "Model that produced the embedding",
				},
			},
			Required: []string{"id", "embedding", "model"},
		},
	}
}

func renameContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rename_context",
		Description: "Rename a context, merging into an existing context when the new name is taken. Rewrites [[Wiki Link]] references and key contexts in affected notes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"old_name": map[string]interface{}{
					"type":        "string",
					"description": "Current context name",
				},
				"new_name": map[string]interface{}{
					"type":        "string",
					"description": "New context name",
				},
			},
			Required: []string{"old_name", "new_name"},
		},
	}
}

func contextExistsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "context_exists",
		Description: "Check whether a context with the exact name exists",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Context name (case-sensitive)",
				},
			},
			Required: []string{"name"},
		},
	}
}

func searchContextsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_contexts",
		Description: "Find contexts by case-insensitive substring, ranked by most recent use",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Substring to match against context names",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results",
					"default":     20,
				},
			},
			Required: []string{"query"},
		},
	}
}

func contextStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "context_stats",
		Description: "List contexts ranked by usage count, paginated",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Page size",
					"default":     20,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Page offset",
					"default":     0,
				},
			},
		},
	}
}

func filterOptionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_filter_options",
		Description: "List the distinct context names, tags, note types, and statuses available for filtering",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// Package mcp implements the Model Context Protocol (MCP) server for NoteGraph.
//
// The server exposes the note store, the context graph, the structured
// filter, and semantic search as MCP tools over stdio:
//
//   - create_note, update_note, delete_note, fetch_notes: note CRUD
//   - filter_notes, get_filter_options: structured, paginated filtering
//   - semantic_search, upsert_embedding: vector search over stored embeddings
//   - rename_context, context_exists, search_contexts, context_stats: the
//     context graph
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol messages; all logging goes to stderr.
//
// # Tool: create_note
//
//	Request:
//	{
//	  "name": "create_note",
//	  "arguments": {
//	    "content": "Met with [[Platform Team]] about the rollout",
//	    "key_context": "Platform Team",
//	    "tags": ["meeting"],
//	    "note_type": "note",
//	    "contexts": ["Platform Team", "Q3 Rollout"]
//	  }
//	}
//
// Context names that do not exist yet are created and linked in one call.
//
// # Tool: update_note
//
// Partial update. Omitted fields are untouched. The contexts field is
// tri-state: omitted leaves links alone, an empty array clears every link,
// a non-empty array replaces the full link set.
//
// # Tool: semantic_search
//
// The server never generates embeddings. Callers pass a precomputed query
// vector and get back notes ranked by cosine similarity:
//
//	Request:
//	{
//	  "name": "semantic_search",
//	  "arguments": {
//	    "embedding": [0.12, -0.04, ...],
//	    "threshold": 0.5,
//	    "limit": 10
//	  }
//	}
//
// Embeddings are written via upsert_embedding, one note at a time.
//
// # Tool: rename_context
//
// Renames a context. When the new name already belongs to another context
// the two are merged in a single transaction: note links are repointed,
// duplicate links dropped, and [[Wiki Link]] references plus key contexts
// rewritten in the affected notes.
//
// # Error Handling
//
// Tool failures are standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid parameter",
//	    "data": {"param": "deadline", "reason": "must be RFC3339"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Note or context not found
//   - -32002: Update carried no changes
//   - -32003: Semantic search without a query embedding
//
// # MCP Client Configuration
//
// Configure in an MCP client's settings:
//
//	{
//	  "mcpServers": {
//	    "notegraph": {
//	      "command": "/usr/local/bin/notegraph",
//	      "env": {
//	        "NOTEGRAPH_DB": "~/.notegraph"
//	      }
//	    }
//	  }
//	}
package mcp

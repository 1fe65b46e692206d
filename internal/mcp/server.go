package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/notegraph/notegraph-mcp/internal/searcher"
	"github.com/notegraph/notegraph-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "notegraph-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.notegraph"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	store    *storage.SQLiteStore
	searcher *searcher.Searcher
}

// NewServer creates a new MCP server instance
func NewServer(dbPath string) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".notegraph")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbFile := filepath.Join(dbPath, "notegraph.db")

	store, err := storage.NewSQLiteStore(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	srch := searcher.New(store)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		store:    store,
		searcher: srch,
	}
	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(createNoteTool(), s.handleCreateNote)
	s.mcp.AddTool(updateNoteTool(), s.handleUpdateNote)
	s.mcp.AddTool(deleteNoteTool(), s.handleDeleteNote)
	s.mcp.AddTool(fetchNotesTool(), s.handleFetchNotes)
	s.mcp.AddTool(filterNotesTool(), s.handleFilterNotes)
	s.mcp.AddTool(semanticSearchTool(), s.handleSemanticSearch)
	s.mcp.AddTool(upsertEmbeddingTool(), s.handleUpsertEmbedding)
	s.mcp.AddTool(renameContextTool(), s.handleRenameContext)
	s.mcp.AddTool(contextExistsTool(), s.handleContextExists)
	s.mcp.AddTool(searchContextsTool(), s.handleSearchContexts)
	s.mcp.AddTool(contextStatsTool(), s.handleContextStats)
	s.mcp.AddTool(filterOptionsTool(), s.handleFilterOptions)
}

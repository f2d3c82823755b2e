// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes linkmark tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/linkmark/internal/index"
	"github.com/starford/linkmark/internal/linkservice"
	"github.com/starford/linkmark/internal/models"
	"github.com/starford/linkmark/internal/serialize"
	"github.com/starford/linkmark/internal/storage"
)

const recordFormatURI = "linkmark://record-format"

// Server wraps the MCP server with linkmark tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *linkservice.Service
	store storage.Provider
}

// New creates a new MCP server with all linkmark tools registered.
func New(svc *linkservice.Service, store storage.Provider, version string) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"linkmark",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("extract_links",
		mcp.WithDescription("Extract every link from a Markdown document. "+
			"Returns JSON lines by default; see the get_record_format tool for the record fields."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown source")),
		mcp.WithString("file", mcp.Description("File identifier stamped on the records")),
		mcp.WithString("format", mcp.Description("json-lines (default) or delimited")),
		mcp.WithString("delimiter", mcp.Description("Single-character delimiter for delimited output (default tab)")),
		mcp.WithString("fields", mcp.Description("Comma-separated field order for delimited output")),
		mcp.WithBoolean("dedupe", mcp.Description("Keep only the first record per url")),
	), s.extractLinks)

	s.mcp.AddTool(mcp.NewTool("list_links",
		mcp.WithDescription("List indexed links, optionally filtered."),
		mcp.WithString("path", mcp.Description("Only links in this document")),
		mcp.WithString("kind", mcp.Description("Link kind filter"),
			mcp.Enum(string(models.KindInline), string(models.KindReference), string(models.KindAutolink),
				string(models.KindImage), string(models.KindFootnote))),
		mcp.WithString("url", mcp.Description("Exact URL filter")),
		mcp.WithBoolean("unresolved", mcp.Description("Only references with no definition")),
		mcp.WithNumber("limit", mcp.Description("Max links (default 100)")),
	), s.listLinks)

	s.mcp.AddTool(mcp.NewTool("search_links",
		mcp.WithDescription("Full-text search through link text, URLs and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchLinks)

	s.mcp.AddTool(mcp.NewTool("link_stats",
		mcp.WithDescription("Count indexed documents, links per kind and unresolved references."),
	), s.linkStats)

	s.mcp.AddTool(mcp.NewTool("backlinks",
		mcp.WithDescription("Find all documents that link to the given URL or path."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Link destination exactly as written")),
	), s.backlinks)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List source documents or the documents in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_document_links",
		mcp.WithDescription("Return the title, links and backlinks of one source document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. docs/guide.md)")),
	), s.getDocumentLinks)

	s.mcp.AddTool(mcp.NewTool("get_record_format",
		mcp.WithDescription("Returns the link record format returned by the other tools."),
	), s.getRecordFormat)

	s.mcp.AddResource(
		mcp.NewResource(recordFormatURI, "Link Record Format",
			mcp.WithResourceDescription("Fields, kinds and ordering of extracted link records."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) extractLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	f := serialize.Format{Kind: serialize.JSONLines, Delimiter: '\t', QuoteFields: true}
	if v := req.GetString("format", ""); v != "" {
		if f.Kind, err = serialize.ParseKind(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v := req.GetString("delimiter", ""); v != "" {
		if f.Delimiter, err = serialize.ParseDelimiter(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v := req.GetString("fields", ""); v != "" {
		if f.FieldOrder, err = serialize.ParseFields(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	res, err := s.svc.Extract(ctx, linkservice.ExtractRequest{
		File:        req.GetString("file", ""),
		Content:     []byte(content),
		Format:      f,
		Deduplicate: req.GetBool("dedupe", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Records == 0 {
		return mcp.NewToolResultText("no links found"), nil
	}
	return mcp.NewToolResultText(string(res.Output)), nil
}

func (s *Server) listLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	links, total, err := s.svc.ListLinks(ctx, index.Filter{
		Path:       req.GetString("path", ""),
		Kind:       models.Kind(req.GetString("kind", "")),
		URL:        req.GetString("url", ""),
		Unresolved: req.GetBool("unresolved", false),
		Limit:      req.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"links": links, "total": total})
}

func (s *Server) searchLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) linkStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

func (s *Server) backlinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) listDocuments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.store.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getDocumentLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func (s *Server) getRecordFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      recordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the skill catalog and its documents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/starford/skillview/internal/catalog"
	"github.com/starford/skillview/internal/checksum"
	"github.com/starford/skillview/internal/content"
	"github.com/starford/skillview/internal/fetch"
	"github.com/starford/skillview/internal/locator"
	"github.com/starford/skillview/internal/parser"
)

const (
	catalogURI = "skillview://catalog"
	formatURI  = "skillview://document-format"
)

// Server wraps the MCP server with the catalog tools.
type Server struct {
	mcp     *server.MCPServer
	cat     *catalog.Catalog
	fetcher fetch.Fetcher
	host    *locator.HostContext
}

// New creates a new MCP server with all tools registered. host may be nil
// when documents are served from the local content root.
func New(cat *catalog.Catalog, fetcher fetch.Fetcher, host *locator.HostContext) *Server {
	s := &Server{cat: cat, fetcher: fetcher, host: host}

	s.mcp = server.NewMCPServer(
		"Skillview",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_skills",
		mcp.WithDescription("List every skill in the catalog with its folder, description and reference documents."),
	), s.listSkills)

	s.mcp.AddTool(mcp.NewTool("read_skill_document",
		mcp.WithDescription("Read one document of a skill. Returns its frontmatter, the usage line "+
			"taken from the Overview section, and the Markdown body without the repeated title heading."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Skill folder id (e.g. app-store-changelog)")),
		mcp.WithString("document", mcp.Description("Document id within the skill; defaults to SKILL.md")),
	), s.readSkillDocument)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the skill document format: frontmatter grammar, title heading and Overview rules."),
	), s.getDocumentFormat)

	s.mcp.AddResource(
		mcp.NewResource(catalogURI, "Skill Catalog",
			mcp.WithResourceDescription("The catalog in its YAML file format."),
			mcp.WithMIMEType("application/yaml"),
		),
		s.readCatalogResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Skill Document Format",
			mcp.WithResourceDescription("How skill documents are structured and parsed."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func (s *Server) listSkills(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.cat.Entries(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

// skillDocument is the read_skill_document result.
type skillDocument struct {
	Folder      string            `json:"folder"`
	Document    string            `json:"document"`
	Address     string            `json:"address"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Usage       string            `json:"usage,omitempty"`
	Frontmatter map[string]string `json:"frontmatter"`
	Body        string            `json:"body"`
	Checksum    string            `json:"checksum"`
}

func (s *Server) readSkillDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	document := req.GetString("document", catalog.MainDocument)

	e, err := s.cat.Lookup(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !e.HasDocument(document) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown document %q for %s", document, folder)), nil
	}

	address := locator.ResolveAddress(s.host, e.DocumentPath(document))
	raw, err := s.fetcher.Fetch(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetch %s: %v", address, err)), nil
	}

	doc := parser.Parse(raw)
	title := doc.Get("name")
	if title == "" {
		title = e.Name
	}
	body := content.StripLeadingHeading(doc.Body, title)
	description := doc.Get("description")
	if description == "" {
		description = e.Description
	}
	usage := content.ExtractOverview(body)
	if usage == "" {
		usage = e.Description
	}

	out, _ := json.MarshalIndent(skillDocument{
		Folder:      folder,
		Document:    document,
		Address:     address,
		Title:       title,
		Description: description,
		Usage:       usage,
		Frontmatter: doc.Frontmatter,
		Body:        body,
		Checksum:    checksum.Sum(raw),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocumentFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readCatalogResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := yaml.Marshal(s.cat)
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      catalogURI,
			MIMEType: "application/yaml",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}

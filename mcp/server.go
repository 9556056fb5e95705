// Package mcp provides the MCP (Model Context Protocol) server for notegraph.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/notegraph-go/internal/dot"
	"github.com/Benny93/notegraph-go/internal/graph"
	"github.com/Benny93/notegraph-go/internal/selector"
	"github.com/Benny93/notegraph-go/internal/storage"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Server represents the MCP server.
type Server struct {
	storage    StorageBackend
	serializer *dot.Serializer
	exclude    selector.Predicate
	server     *mcp.Server
}

// StorageBackend defines what the server needs from the note store.
type StorageBackend interface {
	storage.NoteStore
	storage.Searcher
	GetNote(ctx context.Context, id string) (*graph.Note, error)
	NoteCount() int
	LinkCount() int
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server. Whole-graph renders drop the notes
// matched by exclude; component renders do not filter.
func NewServer(store StorageBackend, serializer *dot.Serializer, exclude selector.Predicate) *Server {
	s := &Server{
		storage:    store,
		serializer: serializer,
		exclude:    exclude,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "notegraph",
		Version: Version,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name: "notegraph_dot",
			Description: "Render the note graph as Graphviz DOT. Without a file, every non-excluded note is included; " +
				"with a file, only notes connected to it (optionally within max_hops links).",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file":     {Type: "string", Description: "Canonical path of the origin note"},
					"max_hops": {Type: "integer", Description: "Maximum link distance from the origin; omit for the whole component"},
				},
			},
		},
		{
			Name:        "notegraph_component",
			Description: "List the notes connected to a note, with their titles.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file":     {Type: "string", Description: "Canonical path of the origin note"},
					"max_hops": {Type: "integer", Description: "Maximum link distance from the origin"},
				},
				Required: []string{"file"},
			},
		},
		{
			Name:        "notegraph_note",
			Description: "Look up a single note by its canonical path.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file": {Type: "string", Description: "Canonical path of the note"},
				},
				Required: []string{"file"},
			},
		},
		{
			Name:        "notegraph_search",
			Description: "Find notes whose title or file name contains the query's words. Use it to get the file path for notegraph_dot.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Words to look for"},
					"limit": {Type: "integer", Description: "Maximum number of results (default 20)"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "notegraph_stats",
			Description: "Report how many notes and links the store holds.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "notegraph://overview",
			Name:        "Store Overview",
			Description: "Note and link counts of the store",
			MimeType:    "text/plain",
		},
		{
			URI:         "notegraph://graph.dot",
			Name:        "Note Graph",
			Description: "The whole note graph as Graphviz DOT",
			MimeType:    "text/vnd.graphviz",
		},
		{
			URI:         "notegraph://schema",
			Name:        "Graph Schema",
			Description: "Description of the notegraph data model",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	file, _ := args["file"].(string)
	hops := hopsArg(args)

	switch name {
	case "notegraph_dot":
		return s.handleDot(ctx, file, hops)
	case "notegraph_component":
		return s.handleComponent(ctx, file, hops)
	case "notegraph_note":
		return s.handleNote(ctx, file)
	case "notegraph_search":
		query, _ := args["query"].(string)
		limit := 20
		if l, ok := args["limit"].(float64); ok && l > 0 {
			limit = int(l)
		}
		return s.handleSearch(ctx, query, limit)
	case "notegraph_stats":
		return s.getOverview(), nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "notegraph://overview":
		return s.getOverview(), nil
	case "notegraph://graph.dot":
		return s.handleDot(ctx, "", graph.Unbounded())
	case "notegraph://schema":
		return getSchema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves MCP on the given transport and returns the session.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// hopsArg reads max_hops. JSON numbers arrive as float64; absent or
// negative means no limit.
func hopsArg(args map[string]any) graph.Hops {
	switch v := args["max_hops"].(type) {
	case float64:
		return graph.MaxHops(int(v))
	case int:
		return graph.MaxHops(v)
	default:
		return graph.Unbounded()
	}
}

func (s *Server) subgraph(ctx context.Context, file string, hops graph.Hops) (*graph.Subgraph, error) {
	sel := selector.New(s.storage)

	q := selector.SelectAll(s.exclude)
	if file != "" {
		var err error
		if q, err = sel.SelectComponent(ctx, file, hops); err != nil {
			return nil, err
		}
	}
	return sel.Fetch(ctx, q)
}

func (s *Server) handleDot(ctx context.Context, file string, hops graph.Hops) (string, error) {
	sg, err := s.subgraph(ctx, file, hops)
	if err != nil {
		return "", err
	}
	return string(s.serializer.Bytes(sg)), nil
}

func (s *Server) handleComponent(ctx context.Context, file string, hops graph.Hops) (string, error) {
	if file == "" {
		return "No file provided", nil
	}

	sg, err := s.subgraph(ctx, file, hops)
	if err != nil {
		return "", err
	}
	if len(sg.Nodes) == 0 {
		return fmt.Sprintf("No note found for %s", file), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Component of %s (hops: %s): %d notes, %d links, %d citations\n\n",
		file, hops, len(sg.Nodes), len(sg.Edges), len(sg.CiteEdges))
	for _, n := range sg.Nodes {
		if n.Title != "" {
			fmt.Fprintf(&b, "  %s  %s\n", n.ID, n.Title)
		} else {
			fmt.Fprintf(&b, "  %s\n", n.ID)
		}
	}
	return b.String(), nil
}

func (s *Server) handleNote(ctx context.Context, file string) (string, error) {
	if file == "" {
		return "No file provided", nil
	}

	note, err := s.storage.GetNote(ctx, file)
	if err != nil {
		return "", err
	}
	if note == nil {
		return fmt.Sprintf("No note found for %s", file), nil
	}

	data, err := json.MarshalIndent(note, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) handleSearch(ctx context.Context, query string, limit int) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "No query provided", nil
	}

	results, err := s.storage.SearchTitles(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No notes match %q", query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Notes matching %q:\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s", i+1, r.ID)
		if r.Title != "" {
			fmt.Fprintf(&b, "  %s", r.Title)
		}
		fmt.Fprintf(&b, "  (score: %.0f)\n", r.Score)
	}
	return b.String(), nil
}

func (s *Server) getOverview() string {
	return fmt.Sprintf("Notes: %d\nLinks: %d\n", s.storage.NoteCount(), s.storage.LinkCount())
}

func getSchema() string {
	return `notegraph data model

Note     {file, title?}       file is the canonical path and the note's identity
Link     {from, to, type}     type is file, id or cite; cite links point at a citation key
Ref      {ref, file, type?}   a citation key owned by a note

Edges in a rendered graph:
  plain     from -> to for links between selected notes
  citation  owner -> citing note, when a cite link's key resolves to a ref
`
}

// registerTools registers tools with the MCP server.
func (s *Server) registerTools() {
	for _, tool := range s.ListTools() {
		name := tool.Name
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := map[string]any{}
			if len(req.Params.Arguments) > 0 {
				if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
					return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
				}
			}

			text, err := s.CallTool(ctx, name, args)
			if err != nil {
				return toolError(err), nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: text}},
			}, nil
		})
	}
}

// registerResources registers resources with the MCP server.
func (s *Server) registerResources() {
	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			text, err := s.ReadResource(ctx, res.URI)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{URI: res.URI, MIMEType: res.MimeType, Text: text}},
			}, nil
		})
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

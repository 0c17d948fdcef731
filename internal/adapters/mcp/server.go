package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/core/ports"
)

// Retriever abstracts candidate selection for the search tool.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.DocumentChunk, error)
}

// Deps holds the capabilities the MCP tools call into.
type Deps struct {
	Chat      ports.ChatService
	Retriever Retriever
	Repo      ports.DocumentRepository
}

// NewServer builds an MCP server exposing the handbook corpus to agent hosts.
// ask_handbook runs a full single-shot turn; search_handbook returns raw
// retrieval candidates for hosts that compose their own answers.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"handbook-assistant",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("Question answering over the company handbook corpus."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_handbook",
			mcp.WithDescription("Ask a question about the company handbook and get a grounded answer."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
		),
		askHandbook(deps),
	)

	s.AddTool(
		mcp.NewTool("search_handbook",
			mcp.WithDescription("Semantically search the handbook corpus and return relevant passages."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
		),
		searchHandbook(deps),
	)

	s.AddTool(
		mcp.NewTool("list_sections",
			mcp.WithDescription("List the section headings available in the handbook corpus."),
		),
		listSections(deps),
	)

	return s
}

// askHandbook runs one stateless turn: each call starts from a fresh
// conversation, so there is never a pending follow-up between tool calls.
func askHandbook(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		result, err := deps.Chat.AdvanceTurn(ctx, question, domain.ConversationState{})
		if err != nil {
			return mcpError(fmt.Sprintf("turn aborted: %v", err)), nil
		}
		return mcpText(result.Reply), nil
	}
}

func searchHandbook(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		chunks, err := deps.Retriever.Retrieve(ctx, query)
		if err != nil {
			if domain.IsKind(err, domain.ErrNoContext) {
				return mcpText("[]"), nil
			}
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		type passage struct {
			Text    string `json:"text"`
			Section string `json:"section,omitempty"`
			Source  string `json:"source,omitempty"`
		}
		out := make([]passage, len(chunks))
		for i, chunk := range chunks {
			out[i] = passage{Text: chunk.Content, Section: chunk.Section, Source: chunk.Source}
		}

		payload, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("marshal results: %v", err)), nil
		}
		return mcpText(string(payload)), nil
	}
}

func listSections(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sections, err := deps.Repo.ListSections(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("list sections failed: %v", err)), nil
		}
		payload, err := json.Marshal(sections)
		if err != nil {
			return mcpError(fmt.Sprintf("marshal sections: %v", err)), nil
		}
		return mcpText(string(payload)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find passages"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results    []SearchResultOutput `json:"results"`
	Count      int                  `json:"count"`
	Confidence string               `json:"confidence"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	PassageID  string   `json:"passage_id"`
	DocumentID string   `json:"document_id"`
	Section    string   `json:"section,omitempty"`
	Category   string   `json:"category,omitempty"`
	Score      float64  `json:"score"`
	Signals    []string `json:"signals,omitempty"`
	Text       string   `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed passages"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of context passages (default 5)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string   `json:"answer"`
	Refused    bool     `json:"refused"`
	Citations  []string `json:"citations,omitempty"`
	Confidence string   `json:"confidence"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the indexed passage corpus",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed passages, with citations",
	}, s.handleAsk)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, confidence, err := s.ports.Query.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:    make([]SearchResultOutput, len(results)),
		Count:      len(results),
		Confidence: string(confidence),
	}

	for i := range results {
		p := &results[i].Passage
		out := SearchResultOutput{
			PassageID:  p.ID,
			DocumentID: p.DocumentID,
			Score:      results[i].Score,
			Signals:    results[i].Signals,
			Text:       p.Text,
		}
		if p.Metadata.Section != nil {
			out.Section = *p.Metadata.Section
		}
		if p.Metadata.Category != nil {
			out.Category = *p.Metadata.Category
		}
		output.Results[i] = out
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Query.Ask(ctx, input.Question, input.Limit)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:     answer.Text,
		Refused:    answer.Refused,
		Citations:  answer.CitedPassageIDs,
		Confidence: string(answer.Confidence),
	}, nil
}

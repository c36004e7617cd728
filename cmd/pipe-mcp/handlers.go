package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mvandermeulen/screenpipe/internal/pipe"
)

// searchFramesHandler runs one search against the capture service.
func (a *App) searchFramesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)

	sq := pipe.SearchQuery{
		ContentType: "all",
		Limit:       20,
	}
	if q, _ := args["q"].(string); q != "" {
		sq.Query = q
	}
	if ct, _ := args["content_type"].(string); ct != "" {
		sq.ContentType = ct
	}
	if s, _ := args["start_time"].(string); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid start_time: %v", err)), nil
		}
		sq.StartTime = t
	}
	if s, _ := args["end_time"].(string); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid end_time: %v", err)), nil
		}
		sq.EndTime = t
	}
	if n, ok := args["limit"].(float64); ok && n > 0 {
		sq.Limit = int(n)
	}

	resp, err := a.search.Search(ctx, sq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(resp.Data) == 0 {
		return mcp.NewToolResultText("No captures matched."), nil
	}

	var b strings.Builder
	for _, r := range resp.Data {
		c := r.Content
		fmt.Fprintf(&b, "[%s] %s", c.Timestamp.Format(time.RFC3339), r.Type)
		if c.AppName != "" {
			fmt.Fprintf(&b, " %s", c.AppName)
		}
		if c.WindowName != "" {
			fmt.Fprintf(&b, " (%s)", c.WindowName)
		}
		b.WriteString("\n")
		if c.Text != "" {
			fmt.Fprintf(&b, "  %s\n", c.Text)
		}
		if c.Transcription != "" {
			fmt.Fprintf(&b, "  %s\n", c.Transcription)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// recallQueriesHandler lists recent saved exchanges from the query log.
func (a *App) recallQueriesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if a.queryLog == nil {
		return mcp.NewToolResultError("query log is not available"), nil
	}

	args, _ := request.Params.Arguments.(map[string]any)
	limit := 10
	if n, ok := args["limit"].(float64); ok && n > 0 {
		limit = int(n)
	}

	exchanges, err := a.queryLog.RecentExchanges(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read query log: %v", err)), nil
	}
	if len(exchanges) == 0 {
		return mcp.NewToolResultText("No saved queries."), nil
	}

	var b strings.Builder
	for _, ex := range exchanges {
		fmt.Fprintf(&b, "[%s] %s (%s, %s–%s)\nQ: %s\nA: %s\n\n",
			ex.CreatedAt.Format("2006-01-02 15:04"),
			ex.Agent, ex.Model,
			ex.RangeStart.Format("15:04"), ex.RangeEnd.Format("15:04"),
			ex.Question, ex.Answer)
	}
	return mcp.NewToolResultText(b.String()), nil
}

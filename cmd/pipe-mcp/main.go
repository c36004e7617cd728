// pipe-mcp exposes the capture service's search endpoint and the saved query
// log as MCP tools over stdio.
package main

import (
	"flag"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvandermeulen/screenpipe/internal/config"
	"github.com/mvandermeulen/screenpipe/internal/db"
	"github.com/mvandermeulen/screenpipe/internal/pipe"
)

// App holds the shared dependencies for the tool handlers.
type App struct {
	search   *pipe.SearchClient
	queryLog *db.Store
}

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app := &App{search: pipe.NewSearchClient(cfg.PipeURL)}

	queryLog, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Printf("[mcp] query log unavailable: %v", err)
	} else {
		app.queryLog = queryLog
		defer queryLog.Close()
	}

	s := server.NewMCPServer("screenpipe-timeline", "0.1.0")

	s.AddTool(mcp.NewTool("search_frames",
		mcp.WithDescription("Search captured screen text and audio transcriptions by query and time range."),
		mcp.WithString("q", mcp.Description("Text to search for")),
		mcp.WithString("content_type", mcp.Description("ocr, audio, or all (default all)")),
		mcp.WithString("start_time", mcp.Description("RFC3339 lower bound, UTC")),
		mcp.WithString("end_time", mcp.Description("RFC3339 upper bound, UTC")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), app.searchFramesHandler)

	s.AddTool(mcp.NewTool("recall_queries",
		mcp.WithDescription("List recent timeline questions and their answers."),
		mcp.WithNumber("limit", mcp.Description("Maximum exchanges (default 10)")),
	), app.recallQueriesHandler)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

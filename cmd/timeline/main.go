package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mvandermeulen/screenpipe/internal/app"
	"github.com/mvandermeulen/screenpipe/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Config file path")
	pipeURL := flag.String("pipe", "", "Capture service URL (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *pipeURL != "" {
		cfg.PipeURL = *pipeURL
	}

	// bubbletea owns the terminal; send logs to a file instead.
	if f, err := tea.LogToFile(filepath.Join(os.TempDir(), "screenpipe-timeline.log"), "timeline"); err == nil {
		defer f.Close()
	}

	p := tea.NewProgram(app.New(cfg), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

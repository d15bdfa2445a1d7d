package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/easton-heights/internal/config"
	"github.com/jwebster45206/easton-heights/internal/logger"
	"github.com/jwebster45206/easton-heights/internal/session"
	"github.com/jwebster45206/easton-heights/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The alt screen owns stdout, so logs go to a file.
	logPath := filepath.Join(os.TempDir(), "easton-heights-console.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := logger.SetupTo(logFile, cfg)

	lib := storage.NewLibrary(cfg.DataDir, log)
	cat, err := lib.LoadCatalog(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load event packs from %s: %v\n", cfg.DataDir, err)
		os.Exit(1)
	}
	if len(cat) == 0 {
		fmt.Fprintf(os.Stderr, "No event templates found under %s/packs\n", cfg.DataDir)
		os.Exit(1)
	}

	eng := session.NewEngine(cfg, log)
	ui := NewConsoleUI(lib, cat, eng, cfg.AutoplayDelay, log, clipboard.WriteAll)

	p := tea.NewProgram(ui,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// Package main is the entry point for the ser-sync-pro command.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/config"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/pipeline"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/synclog"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := synclog.New(slog.New(slog.NewTextHandler(os.Stderr, nil)), confirmFromStdin)

	summary, err := pipeline.Run(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf(
		"tracks found: %d, crates built: %d, crates updated: %d, crates skipped: %d, "+
			"tracks added: %d, skipped existing: %d, paths fixed: %d, crates fixed: %d, "+
			"duplicates moved: %d, backup bytes: %d, sessions deleted: %d, history scrubbed: %d\n",
		summary.TracksFound, summary.CratesBuilt, summary.CratesUpdated, summary.CratesSkipped,
		summary.TracksAdded, summary.SkippedExisting, summary.PathsFixed, summary.CratesFixed,
		summary.DuplicatesMoved, summary.BackupBytes, summary.SessionsDeleted, summary.HistoryScrubbed,
	)
}

// confirmFromStdin prompts on stderr and reads a yes/no answer from stdin,
// defaulting to false on EOF or an unreadable terminal.
func confirmFromStdin(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)

	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))

	return answer == "y" || answer == "yes"
}

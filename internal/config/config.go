// Package config parses the command-line options the pipeline orchestrator
// (component O) consumes, per spec §6.3's external-collaborator input list.
// File- and flag-file loading are out of scope (spec §1 Non-goals); only
// command-line flags are recognized.
package config

import (
	"fmt"
	"strings"

	"github.com/alexflint/go-arg"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/dupemove"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/trackindex"
)

// RunMode selects which external logger drives the run: an interactive
// terminal UI or a plain command-line/log-only surface. Spec §6.3 notes
// this "governs the external logger, not the core".
type RunMode int

// Exported constants.
const (
	// ModeCmd runs with plain stdout/stderr logging.
	ModeCmd RunMode = iota
	// ModeGUI runs under a terminal/graphical shell.
	ModeGUI
)

// String implements fmt.Stringer.
func (m RunMode) String() string {
	if m == ModeGUI {
		return "gui"
	}

	return "cmd"
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg.
func (m *RunMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "cmd", "":
		*m = ModeCmd
	case "gui":
		*m = ModeGUI
	default:
		return fmt.Errorf("invalid mode: %s (valid: cmd, gui)", text)
	}

	return nil
}

// DedupSetting wraps trackindex.Mode for command-line parsing.
type DedupSetting struct {
	Mode trackindex.Mode
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg.
func (d *DedupSetting) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "path":
		d.Mode = trackindex.ModePath
	case "filename":
		d.Mode = trackindex.ModeFilename
	case "off", "":
		d.Mode = trackindex.ModeOff
	default:
		return fmt.Errorf("invalid dedup mode: %s (valid: path, filename, off)", text)
	}

	return nil
}

// DupeDetectionSetting wraps dupemove.Mode for command-line parsing.
type DupeDetectionSetting struct {
	Mode dupemove.Mode
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg.
func (d *DupeDetectionSetting) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "name-only":
		d.Mode = dupemove.ModeNameOnly
	case "name-and-size":
		d.Mode = dupemove.ModeNameAndSize
	case "off", "":
		d.Mode = dupemove.ModeOff
	default:
		return fmt.Errorf("invalid dupe-detection mode: %s (valid: name-only, name-and-size, off)", text)
	}

	return nil
}

// DupeMoveSetting wraps dupemove.Policy plus an off state for command-line
// parsing (spec §6.3: "dupe-move: keep-newest/keep-oldest/false").
type DupeMoveSetting struct {
	Enabled bool
	Policy  dupemove.Policy
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg.
func (d *DupeMoveSetting) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "keep-newest":
		d.Enabled, d.Policy = true, dupemove.KeepNewest
	case "keep-oldest":
		d.Enabled, d.Policy = true, dupemove.KeepOldest
	case "off", "false", "":
		d.Enabled = false
	default:
		return fmt.Errorf("invalid dupe-move policy: %s (valid: keep-newest, keep-oldest, off)", text)
	}

	return nil
}

// Config holds every option the orchestrator reads from the command line,
// per spec §6.3.
type Config struct {
	MusicRoot       string               `arg:"--music-root,required" help:"Root of the music tree to scan"`
	Library         string               `arg:"--library,required" help:"Path to the host library directory"`
	ParentCrateName string               `arg:"--parent-crate" help:"Prefix crate name under Subcrates"`
	Mode            RunMode              `arg:"--mode" default:"cmd" help:"External logger: cmd or gui"`
	Backup          bool                 `arg:"--backup" help:"Back up the library before syncing"`
	BackupRoot      string               `arg:"--backup-root" help:"Directory to hold timestamped library backups"`
	ClearBeforeSync bool                 `arg:"--clear-before-sync" help:"Delete existing crates and the index before writing"`
	SkipExisting    bool                 `arg:"--skip-existing" help:"Skip tracks already present per the dedup index"`
	Dedup           DedupSetting         `arg:"--dedup" default:"off" help:"Dedup mode: path, filename, or off"`
	FixBrokenPaths  bool                 `arg:"--fix-broken-paths" help:"Repair broken crate track paths against the scanned tree"`
	Sort            bool                 `arg:"--sort" help:"Write the sidebar-order manifest after syncing"`
	DupeScan        bool                 `arg:"--dupe-scan" help:"Scan the music tree for duplicate files"`
	DupeDetection   DupeDetectionSetting `arg:"--dupe-detection" default:"off" help:"Duplicate fingerprint: name-only, name-and-size, or off"`
	DupeMove        DupeMoveSetting      `arg:"--dupe-move" default:"off" help:"Duplicate move policy: keep-newest, keep-oldest, or off"`
	CleanSessions   bool                 `arg:"--clean-sessions" help:"Delete history sessions shorter than min-session-duration and scrub history.database"`
	MinSessionSecs  uint32               `arg:"--min-session-duration" default:"30" help:"Session duration threshold in seconds for --clean-sessions"`
}

// Description returns the program description for go-arg.
func (Config) Description() string {
	return "Synchronizes a music tree into a DJ library, repairing and deduplicating crate entries"
}

// Version returns the version string for go-arg.
func (Config) Version() string {
	return "ser-sync-pro 1.0.0"
}

// Parse parses command-line flags and returns a validated configuration.
func Parse() (*Config, error) {
	cfg := &Config{Mode: ModeCmd}

	arg.MustParse(cfg)

	return PostProcess(cfg)
}

// PostProcess validates and normalizes a parsed Config. Split out from
// Parse so tests can exercise validation without touching os.Args.
func PostProcess(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the required options and the parent-crate-name
// constraint spec §7's Config error kind names explicitly.
func (cfg *Config) Validate() error {
	if cfg.MusicRoot == "" {
		return fmt.Errorf("music-root path is required")
	}

	if cfg.Library == "" {
		return fmt.Errorf("library path is required")
	}

	if strings.Contains(cfg.ParentCrateName, "%%") {
		return fmt.Errorf("parent crate name must not contain '%%%%': %q", cfg.ParentCrateName)
	}

	if err := validateRemoteURL(cfg.MusicRoot); err != nil {
		return fmt.Errorf("music-root: %w", err)
	}

	if err := validateRemoteURL(cfg.Library); err != nil {
		return fmt.Errorf("library: %w", err)
	}

	return nil
}

// validateRemoteURL checks the shape of an sftp:// path (spec's remote
// network-volume roots, per SPEC_FULL's SFTP wiring), and is a no-op for
// plain local paths.
func validateRemoteURL(path string) error {
	if !strings.HasPrefix(path, "sftp://") {
		return nil
	}

	rest := strings.TrimPrefix(path, "sftp://")

	at := strings.Index(rest, "@")
	if at < 0 {
		return fmt.Errorf("sftp URL must include username: %s", path)
	}

	afterAt := rest[at+1:]
	if !strings.Contains(afterAt, "/") {
		return fmt.Errorf("sftp URL must include path: %s", path)
	}

	return nil
}

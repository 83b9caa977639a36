//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package config_test

import (
	"strings"
	"testing"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/config"
)

// TestValidateSFTPURL tests the unexported validateRemoteURL function
// indirectly through Validate.
//
//nolint:funlen // Comprehensive table-driven test with many URL validation cases
func TestValidateSFTPURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		musicRoot string
		library   string
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "valid SFTP music root and local library",
			musicRoot: "sftp://user@host/path",
			library:   "/local/library",
			wantErr:   false,
		},
		{
			name:      "valid SFTP URL with port",
			musicRoot: "sftp://user@host:22/path/to/dir",
			library:   "/local/library",
			wantErr:   false,
		},
		{
			name:      "valid SFTP URL with subdirectories",
			musicRoot: "sftp://admin@server.com/home/user/files",
			library:   "/local/library",
			wantErr:   false,
		},
		{
			name:      "music root missing username (no @)",
			musicRoot: "sftp://host/path",
			library:   "/local/library",
			wantErr:   true,
			errMsg:    "must include username",
		},
		{
			name:      "music root missing path (only 2 slashes)",
			musicRoot: "sftp://user@host",
			library:   "/local/library",
			wantErr:   true,
			errMsg:    "must include path",
		},
		{
			name:      "music root with trailing slash is considered valid",
			musicRoot: "sftp://user@host/",
			library:   "/local/library",
			wantErr:   false,
		},
		{
			name:      "library missing username",
			musicRoot: "/local/music",
			library:   "sftp://host/dest",
			wantErr:   true,
			errMsg:    "must include username",
		},
		{
			name:      "library missing path",
			musicRoot: "/local/music",
			library:   "sftp://user@host",
			wantErr:   true,
			errMsg:    "must include path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Config{
				MusicRoot: tt.musicRoot,
				Library:   tt.library,
			}

			err := cfg.Validate()

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got nil")
				} else if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Error message %q does not contain %q", err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

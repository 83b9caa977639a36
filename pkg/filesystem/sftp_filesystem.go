package filesystem

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/sftp"
)

// SFTPFileSystem implements FileSystem over a single SFTP client shared by
// every operation. A backup or scan against a network-volume root is a
// bounded, sequential walk (spec §4.N, §4.G), not a worker-pool workload,
// so one connection is enough: it avoids the accounting a resizable pool
// needs for a caller this module does not have.
type SFTPFileSystem struct {
	client *sftp.Client
}

// NewSFTPFileSystem creates an SFTP filesystem using an established
// connection's client.
func NewSFTPFileSystem(conn *SFTPConnection) *SFTPFileSystem {
	return &SFTPFileSystem{client: conn.Client()}
}

// Chtimes changes the access and modification times of a remote file.
func (fs *SFTPFileSystem) Chtimes(path string, atime, mtime time.Time) error {
	if err := fs.client.Chtimes(path, atime, mtime); err != nil {
		return fmt.Errorf("failed to change times for remote file %s: %w", path, err)
	}

	return nil
}

// Close closes the underlying SFTP client.
func (fs *SFTPFileSystem) Close() error {
	if err := fs.client.Close(); err != nil {
		return fmt.Errorf("failed to close SFTP client: %w", err)
	}

	return nil
}

// Create creates a remote file for writing.
func (fs *SFTPFileSystem) Create(path string) (File, error) {
	file, err := fs.client.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote file %s: %w", path, err)
	}

	return newSFTPFile(file, path), nil
}

// MkdirAll creates a remote directory and all necessary parents.
func (fs *SFTPFileSystem) MkdirAll(path string, _ os.FileMode) error {
	if err := fs.client.MkdirAll(path); err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", path, err)
	}

	return nil
}

// Open opens a remote file for reading.
func (fs *SFTPFileSystem) Open(path string) (File, error) {
	file, err := fs.client.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", path, err)
	}

	return newSFTPFile(file, path), nil
}

// Remove removes a remote file or empty directory.
func (fs *SFTPFileSystem) Remove(path string) error {
	if err := fs.client.Remove(path); err != nil {
		return fmt.Errorf("failed to remove remote file %s: %w", path, err)
	}

	return nil
}

// Scan returns an iterator over all files in a remote directory tree.
func (fs *SFTPFileSystem) Scan(path string) FileScanner {
	return newSFTPScanner(fs.client, path)
}

// Stat returns file information for a remote file.
func (fs *SFTPFileSystem) Stat(path string) (os.FileInfo, error) {
	info, err := fs.client.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat remote file %s: %w", path, err)
	}

	return info, nil
}

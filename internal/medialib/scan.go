package medialib

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Options configures a Scan.
type Options struct {
	// Extensions overrides DefaultExtensions() when non-empty.
	Extensions []string

	// Concurrency bounds how many subdirectories of a single directory are
	// scanned in parallel. Defaults to min(4, runtime.NumCPU()).
	Concurrency int

	// OnChildError is called when a subdirectory scan fails; the child is
	// then treated as an empty subtree. Defaults to a no-op.
	OnChildError func(path string, err error)
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}

	if n := runtime.NumCPU(); n < defaultMaxConcurrency {
		return n
	}

	return defaultMaxConcurrency
}

const defaultMaxConcurrency = 4

func (o Options) onChildError(path string, err error) {
	if o.OnChildError != nil {
		o.OnChildError(path, err)
	}
}

func (o Options) matcher() extensionMatcher {
	extensions := o.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions()
	}

	return newExtensionMatcher(extensions)
}

// Scan recursively walks root and builds a MediaNode tree (spec §4.G).
func Scan(root string, opts Options) (*MediaNode, error) {
	return scanDir(root, opts)
}

func scanDir(path string, opts Options) (*MediaNode, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	node := &MediaNode{Name: filepath.Base(path)}

	matcher := opts.matcher()

	var childDirs []string

	for _, e := range entries {
		full := filepath.Join(path, e.Name())

		if e.IsDir() {
			childDirs = append(childDirs, full)
			continue
		}

		if !matcher.Match(e.Name()) {
			continue
		}

		node.Tracks = append(node.Tracks, resolveRealPath(full))
	}

	sort.Strings(node.Tracks)

	node.Children = scanChildren(childDirs, opts)

	return node, nil
}

func scanChildren(childDirs []string, opts Options) []*MediaNode {
	if len(childDirs) == 0 {
		return nil
	}

	children := make([]*MediaNode, len(childDirs))

	if len(childDirs) == 1 {
		children[0] = scanChildOrEmpty(childDirs[0], opts)
	} else {
		g := new(errgroup.Group)
		g.SetLimit(opts.concurrency())

		for i, dir := range childDirs {
			g.Go(func() error {
				children[i] = scanChildOrEmpty(dir, opts)

				return nil
			})
		}

		_ = g.Wait() // scanChildOrEmpty never returns an error to the group
	}

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })

	return children
}

func scanChildOrEmpty(dir string, opts Options) *MediaNode {
	child, err := scanDir(dir, opts)
	if err != nil {
		opts.onChildError(dir, err)

		return &MediaNode{Name: filepath.Base(dir)}
	}

	return child
}

// resolveRealPath follows symlinks to the file's real path, falling back to
// an absolute path if resolution fails (spec §4.G).
func resolveRealPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}

	return path
}

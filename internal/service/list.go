package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blang/semver"
)

// ListService reports the tools present under a tools root.
type ListService struct {
	toolsRoot string
	binRoot   string
}

// NewListService creates a new list service.
func NewListService(toolsRoot, binRoot string) *ListService {
	return &ListService{
		toolsRoot: toolsRoot,
		binRoot:   binRoot,
	}
}

// InstalledTool is one tool directory under the tools root.
type InstalledTool struct {
	Name     string
	Versions []string // ascending
	Active   string   // version a bin root link points into, empty if none
	LinkPath string
}

// List returns installed tools sorted by name.
func (s *ListService) List(ctx context.Context) ([]InstalledTool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names, err := readDirNames(s.toolsRoot)
	if err != nil {
		return nil, fmt.Errorf("read tools root: %w", err)
	}

	links, err := s.activeLinks()
	if err != nil {
		return nil, err
	}

	tools := make([]InstalledTool, 0, len(names))
	for _, name := range names {
		versions, err := readDirNames(filepath.Join(s.toolsRoot, name))
		if err != nil {
			return nil, fmt.Errorf("read versions of %s: %w", name, err)
		}
		if len(versions) == 0 {
			continue
		}
		sortVersions(versions)

		tool := InstalledTool{Name: name, Versions: versions}
		if l, ok := links[name]; ok {
			tool.Active = l.version
			tool.LinkPath = l.path
		}
		tools = append(tools, tool)
	}

	return tools, nil
}

type activeLink struct {
	version string
	path    string
}

// activeLinks maps tool names to the bin root symlink that points into
// <tools_root>/<name>/<version>/. Links pointing elsewhere are ignored.
func (s *ListService) activeLinks() (map[string]activeLink, error) {
	links := make(map[string]activeLink)

	entries, err := os.ReadDir(s.binRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return links, nil
		}
		return nil, fmt.Errorf("read bin root: %w", err)
	}

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		linkPath := filepath.Join(s.binRoot, entry.Name())
		target, err := os.Readlink(linkPath)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(s.toolsRoot, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		parts := strings.SplitN(filepath.ToSlash(rel), "/", 3)
		if len(parts) < 3 {
			continue
		}
		if _, seen := links[parts[0]]; !seen {
			links[parts[0]] = activeLink{version: parts[1], path: linkPath}
		}
	}

	return links, nil
}

// readDirNames lists subdirectories of dir, skipping hidden ones such as
// the lock directory. A missing dir yields no names.
func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// sortVersions orders semantic versions numerically and puts anything
// that does not parse after them, lexically.
func sortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, errI := semver.ParseTolerant(versions[i])
		vj, errJ := semver.ParseTolerant(versions[j])
		switch {
		case errI == nil && errJ == nil:
			return vi.LT(vj)
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return versions[i] < versions[j]
		}
	})
}

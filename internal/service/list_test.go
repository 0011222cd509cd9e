package service

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(p, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", p, err)
		}
	}
}

func TestListService_List(t *testing.T) {
	root := t.TempDir()
	toolsRoot := filepath.Join(root, "tools")
	binRoot := filepath.Join(root, "bin")

	mkdirs(t,
		filepath.Join(toolsRoot, "ripgrep", "14.1.0", "bin"),
		filepath.Join(toolsRoot, "jq", "1.10.0", "bin"),
		filepath.Join(toolsRoot, "jq", "1.7.1", "bin"),
		filepath.Join(toolsRoot, "jq", "1.9.0", "bin"),
		filepath.Join(toolsRoot, "empty"),
		filepath.Join(toolsRoot, ".locks"),
		binRoot,
	)

	rgBinary := filepath.Join(toolsRoot, "ripgrep", "14.1.0", "bin", "rg")
	if err := os.WriteFile(rgBinary, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(rgBinary, filepath.Join(binRoot, "rg")); err != nil {
		t.Fatal(err)
	}
	// Links outside the tools root belong to someone else.
	if err := os.Symlink("/usr/bin/env", filepath.Join(binRoot, "env")); err != nil {
		t.Fatal(err)
	}

	svc := NewListService(toolsRoot, binRoot)
	tools, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []InstalledTool{
		{Name: "jq", Versions: []string{"1.7.1", "1.9.0", "1.10.0"}},
		{Name: "ripgrep", Versions: []string{"14.1.0"}, Active: "14.1.0", LinkPath: filepath.Join(binRoot, "rg")},
	}
	if !reflect.DeepEqual(tools, want) {
		t.Errorf("List() =\n%+v\nwant\n%+v", tools, want)
	}
}

func TestListService_MissingRoots(t *testing.T) {
	root := t.TempDir()
	svc := NewListService(filepath.Join(root, "tools"), filepath.Join(root, "bin"))

	tools, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tools) != 0 {
		t.Errorf("List() = %+v, want empty", tools)
	}
}

func TestListService_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewListService(t.TempDir(), t.TempDir())
	if _, err := svc.List(ctx); err == nil {
		t.Error("List() with cancelled context error = nil")
	}
}

func TestSortVersions(t *testing.T) {
	versions := []string{"2.0.0", "head", "1.10", "1.9.0", "1.2.3-rc1", "1.2.3"}
	sortVersions(versions)

	want := []string{"1.2.3-rc1", "1.2.3", "1.9.0", "1.10", "2.0.0", "head"}
	if !reflect.DeepEqual(versions, want) {
		t.Errorf("sortVersions() = %v, want %v", versions, want)
	}
}

func TestStepClock(t *testing.T) {
	c := &StepClock{Step: 2}
	first, second := c.Now(), c.Now()
	if second.Sub(first) != 2 {
		t.Errorf("step = %v, want 2ns", second.Sub(first))
	}
}

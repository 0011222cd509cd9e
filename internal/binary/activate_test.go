package binary

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/still/internal/testutil"
)

func TestFindBinary(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]os.FileMode
		tool    string
		suffix  string
		want    string
		wantErr error
	}{
		{
			name:  "named binary in bin",
			files: map[string]os.FileMode{"bin/ripgrep": 0o644, "bin/aaa": 0o755},
			tool:  "ripgrep",
			want:  "bin/ripgrep",
		},
		{
			name:  "first executable in bin",
			files: map[string]os.FileMode{"bin/rg": 0o755, "bin/rga": 0o755, "bin/README": 0o644},
			tool:  "ripgrep",
			want:  "bin/rg",
		},
		{
			name:  "nested bin directory",
			files: map[string]os.FileMode{"14.1.0/bin/ripgrep": 0o755, "14.1.0/share/doc": 0o644},
			tool:  "ripgrep",
			want:  "14.1.0/bin/ripgrep",
		},
		{
			name:  "nested bin falls back to first executable",
			files: map[string]os.FileMode{"libexec/bin/rg": 0o755},
			tool:  "ripgrep",
			want:  "libexec/bin/rg",
		},
		{
			name:    "root bin without executables stops the search",
			files:   map[string]os.FileMode{"bin/notes.txt": 0o644, "libexec/bin/ripgrep": 0o755},
			tool:    "ripgrep",
			wantErr: ErrBinaryNotFound,
		},
		{
			name:   "suffixed binary in bin",
			files:  map[string]os.FileMode{"bin/ripgrep.exe": 0o644, "bin/aaa": 0o755},
			tool:   "ripgrep",
			suffix: ".exe",
			want:   "bin/ripgrep.exe",
		},
		{
			name:   "suffix counts as executable",
			files:  map[string]os.FileMode{"bin/README": 0o644, "bin/rg.exe": 0o644},
			tool:   "ripgrep",
			suffix: ".exe",
			want:   "bin/rg.exe",
		},
		{
			name:    "suffix ignored when empty",
			files:   map[string]os.FileMode{"bin/rg.exe": 0o644},
			tool:    "ripgrep",
			wantErr: ErrBinaryNotFound,
		},
		{
			name:    "no bin directory",
			files:   map[string]os.FileMode{"share/man/rg.1": 0o644},
			tool:    "ripgrep",
			wantErr: ErrBinaryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for rel, mode := range tt.files {
				testutil.WriteFile(t, root, rel, "content", mode)
			}

			got, err := FindBinary(root, tt.tool, tt.suffix)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FindBinary() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindBinary() error = %v", err)
			}
			if want := filepath.Join(root, tt.want); got != want {
				t.Errorf("FindBinary() = %q, want %q", got, want)
			}
		})
	}
}

func TestActivator_Activate(t *testing.T) {
	root := t.TempDir()
	binRoot := filepath.Join(t.TempDir(), "bin")
	testutil.WriteFile(t, root, "bin/jq", "#!/bin/sh\n", 0o644)

	binaryPath, linkPath, err := NewActivator(binRoot, "", zerolog.Nop()).Activate(root, "jq")
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	if want := filepath.Join(binRoot, "jq"); linkPath != want {
		t.Errorf("link path = %q, want %q", linkPath, want)
	}
	target, err := os.Readlink(linkPath)
	if err != nil {
		t.Fatalf("read link: %v", err)
	}
	if target != binaryPath {
		t.Errorf("link target = %q, want %q", target, binaryPath)
	}
	if !filepath.IsAbs(target) {
		t.Errorf("link target %q should be absolute", target)
	}

	info, err := os.Stat(binaryPath)
	if err != nil {
		t.Fatalf("stat binary: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("binary mode = %o, want 755", info.Mode().Perm())
	}
}

func TestActivator_ReplacesExistingLink(t *testing.T) {
	binRoot := t.TempDir()
	activator := NewActivator(binRoot, "", zerolog.Nop())

	oldRoot := t.TempDir()
	newRoot := t.TempDir()
	testutil.WriteFile(t, oldRoot, "bin/jq", "old", 0o755)
	testutil.WriteFile(t, newRoot, "bin/jq", "new", 0o755)

	if _, _, err := activator.Activate(oldRoot, "jq"); err != nil {
		t.Fatalf("first Activate() error = %v", err)
	}
	_, linkPath, err := activator.Activate(newRoot, "jq")
	if err != nil {
		t.Fatalf("second Activate() error = %v", err)
	}

	data, err := os.ReadFile(linkPath)
	if err != nil {
		t.Fatalf("read through link: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("link resolves to %q, want new", data)
	}

	entries, err := os.ReadDir(binRoot)
	if err != nil {
		t.Fatalf("read bin root: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("bin root has %d entries, want only the link", len(entries))
	}
}

func TestActivator_ReplacesRegularFile(t *testing.T) {
	binRoot := t.TempDir()
	testutil.WriteFile(t, binRoot, "jq", "stale copy", 0o755)

	root := t.TempDir()
	testutil.WriteFile(t, root, "bin/jq", "fresh", 0o755)

	_, linkPath, err := NewActivator(binRoot, "", zerolog.Nop()).Activate(root, "jq")
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	info, err := os.Lstat(linkPath)
	if err != nil {
		t.Fatalf("lstat link: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("expected the regular file to be replaced by a symlink")
	}
}

func TestActivator_NotFound(t *testing.T) {
	root := t.TempDir()
	binRoot := filepath.Join(t.TempDir(), "bin")
	testutil.WriteFile(t, root, "share/doc/README", "docs", 0o644)

	_, _, err := NewActivator(binRoot, "", zerolog.Nop()).Activate(root, "jq")
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("Activate() error = %v, want ErrBinaryNotFound", err)
	}
	if _, err := os.Stat(binRoot); !os.IsNotExist(err) {
		t.Error("bin root should not be created when nothing is linked")
	}
}

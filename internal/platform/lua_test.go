package platform

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
)

type luaCase struct {
	name string
	code string
	want lua.LValue
}

func runLuaCases(t *testing.T, L *lua.LState, tests []luaCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := L.DoString(tt.code); err != nil {
				t.Fatalf("failed to execute code: %v", err)
			}
			got := L.Get(-1)
			L.Pop(1)

			if got.Type() != tt.want.Type() {
				t.Errorf("type mismatch: got %v, want %v", got.Type(), tt.want.Type())
				return
			}

			if got.String() != tt.want.String() {
				t.Errorf("value mismatch: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInjectPlatformTable_Linux(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{
		OS:       "linux",
		Arch:     "amd64",
		ArchRaw:  "x86_64",
		Platform: "ubuntu",
		Family:   "debian",
		Version:  "22.04",
	}

	if err := InjectPlatformTable(L, info); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	runLuaCases(t, L, []luaCase{
		{"os", `return platform.os`, lua.LString("linux")},
		{"arch", `return platform.arch`, lua.LString("amd64")},
		{"arch_raw", `return platform.arch_raw`, lua.LString("x86_64")},
		{"key", `return platform.key`, lua.LString("x86_64_linux")},
		{"version", `return platform.version`, lua.LString("22.04")},
		{"codename is nil", `return platform.codename`, lua.LNil},
		{"is_linux", `return platform.is_linux`, lua.LTrue},
		{"is_macos", `return platform.is_macos`, lua.LFalse},
		{"is_windows", `return platform.is_windows`, lua.LFalse},
		{"is_amd64", `return platform.is_amd64`, lua.LTrue},
		{"is_arm64", `return platform.is_arm64`, lua.LFalse},
		{"is_apple_silicon", `return platform.is_apple_silicon`, lua.LFalse},
		{"distro.id", `return platform.distro.id`, lua.LString("ubuntu")},
		{"distro.family", `return platform.distro.family`, lua.LString("debian")},
		{"distro.version", `return platform.distro.version`, lua.LString("22.04")},
	})
}

func TestInjectPlatformTable_MacOS(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{
		OS:       "darwin",
		Arch:     "arm64",
		ArchRaw:  "arm64",
		Version:  "15.1",
		Codename: "sequoia",
	}

	if err := InjectPlatformTable(L, info); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	runLuaCases(t, L, []luaCase{
		{"os", `return platform.os`, lua.LString("darwin")},
		{"key", `return platform.key`, lua.LString("arm64_sequoia")},
		{"codename", `return platform.codename`, lua.LString("sequoia")},
		{"is_macos", `return platform.is_macos`, lua.LTrue},
		{"is_apple_silicon", `return platform.is_apple_silicon`, lua.LTrue},
		{"distro is nil", `return platform.distro`, lua.LNil},
	})
}

func TestInjectPlatformTable_Windows(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{OS: "windows", Arch: "amd64", ArchRaw: "amd64"}

	if err := InjectPlatformTable(L, info); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	runLuaCases(t, L, []luaCase{
		{"os", `return platform.os`, lua.LString("windows")},
		{"key", `return platform.key`, lua.LString("x86_64_windows")},
		{"is_windows", `return platform.is_windows`, lua.LTrue},
		{"distro is nil", `return platform.distro`, lua.LNil},
	})
}

func TestPlatformTable_ReadOnly(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Info{OS: "linux", Arch: "amd64"}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		code string
	}{
		{"modify os", `platform.os = "windows"`},
		{"modify key", `platform.key = "arm64_sonoma"`},
		{"add new field", `platform.new_field = "value"`},
		{"replace metatable", `setmetatable(platform, {})`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := L.DoString(tt.code); err == nil {
				t.Error("expected error when modifying read-only table, got nil")
			}
		})
	}
}

func TestPlatformTable_WhenHelper(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Info{OS: "linux", Arch: "amd64"}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	runLuaCases(t, L, []luaCase{
		{"when true returns value", `return platform.when(true, "/opt/tools")`, lua.LString("/opt/tools")},
		{"when false returns nil", `return platform.when(false, "/opt/tools")`, lua.LNil},
		{"when with platform boolean", `return platform.when(platform.is_linux, "linux")`, lua.LString("linux")},
		{"when with false platform boolean", `return platform.when(platform.is_macos, "macos")`, lua.LNil},
	})
}

func TestPlatformTable_ConfigUsage(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{OS: "darwin", Arch: "arm64", Codename: "sonoma"}
	if err := InjectPlatformTable(L, info); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	code := `
		local root = "/opt/still"
		if platform.is_macos then
			root = "/Users/me/.still"
		end
		return root .. "/" .. platform.key
	`
	if err := L.DoString(code); err != nil {
		t.Fatalf("failed to execute usage example: %v", err)
	}

	got := L.Get(-1)
	L.Pop(1)
	if got.String() != "/Users/me/.still/arm64_sonoma" {
		t.Errorf("got %q", got.String())
	}
}

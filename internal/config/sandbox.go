package config

import (
	lua "github.com/yuin/gopher-lua"
)

// blockedGlobals are removed from every config VM. They execute commands,
// touch the filesystem, load external code or reach into the VM itself.
var blockedGlobals = []string{
	"os",
	"io",
	"debug",
	"package",
	"require",
	"module",
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"collectgarbage",
}

// sandboxLuaVM configures a Lua VM to run in a restricted sandbox.
// string, table, math and the basic functions (type, tostring, tonumber,
// pairs, ipairs, next) stay available, so configs remain declarative.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a new Lua VM with sandboxing applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}

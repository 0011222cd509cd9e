// Package config loads still's Lua configuration.
//
// # Overview
//
// The configuration is a single global "still" table evaluated by gopher-lua,
// a pure Go Lua 5.1 VM. Platform information is injected beforehand as a
// read-only "platform" table, so values can depend on the host:
//
//	still = {
//	  tools_root = platform.is_macos and "~/.still/tools" or "/opt/still/tools",
//	  bottles = {
//	    priority = { "sequoia", "sonoma" },
//	  },
//	}
//
// Every field is optional. Missing fields keep the defaults derived from the
// platform Profile (see Defaults), and a missing config file at the default
// location is not an error.
//
// Key components:
//   - Parser: Lua → Config, layered over a base Config
//   - Generator: Config → Lua, used by "still config init"
//   - Sandbox: restricted Lua VM
//   - DetectSensitiveData: warns about credentials written into the file
//
// # Security Model
//
// User Lua code runs in a sandbox that removes:
//   - System command execution (os.execute, os.exit, etc.)
//   - Filesystem access (io.open, io.popen, etc.)
//   - External code loading (require, dofile, loadfile, load, loadstring)
//   - The debug library
//
// string, table and math stay available, as do the basic functions (type,
// tostring, tonumber, pairs, ipairs). Each parse gets a fresh VM, so a
// Parser is safe for concurrent use.
//
// # Location
//
// The file is $STILL_CONFIG_DIR/config.lua when that variable is set, and
// <XDG config home>/still/config.lua otherwise.
//
// # Validation
//
// After evaluation, "~" is expanded in every path and Validate rejects empty
// or relative roots, registry URLs that are not http(s), and negative
// timeouts. Type mismatches (for example tools_root = 5) are reported with
// the dotted field path.
package config

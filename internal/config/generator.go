package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Generator generates Lua configuration code from Go structs.
type Generator struct {
	indent string // Indentation string (default: two spaces)
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ", // Two spaces
	}
}

// Generate generates Lua code from a Config struct.
// The output is formatted and human-readable, and parses back to config.
func (g *Generator) Generate(config *Config) (string, error) {
	if config == nil {
		return "", fmt.Errorf("nil config")
	}

	var buf bytes.Buffer

	buf.WriteString("-- still configuration\n")
	buf.WriteString("-- Generated: ")
	buf.WriteString(time.Now().Format(time.RFC3339))
	buf.WriteString("\n--\n")
	buf.WriteString("-- The read-only `platform` table (platform.os, platform.arch,\n")
	buf.WriteString("-- platform.key, platform.is_macos, platform.when, ...) is available.\n\n")

	buf.WriteString(luaGlobalStill + " = {\n")

	g.writeString(&buf, 1, luaFieldToolsRoot, config.ToolsRoot)
	g.writeString(&buf, 1, luaFieldBinRoot, config.BinRoot)
	buf.WriteString("\n")

	g.writeRegistry(&buf, config.Registry)
	g.writeCatalog(&buf, config.Catalog)
	g.writeBottles(&buf, config.Bottles)
	g.writeInstall(&buf, config.Install)

	buf.WriteString("}\n")

	return buf.String(), nil
}

func (g *Generator) writeRegistry(buf *bytes.Buffer, r Registry) {
	g.open(buf, 1, luaFieldRegistry)
	g.writeString(buf, 2, luaFieldFormulaAPI, r.FormulaAPI)
	g.writeString(buf, 2, luaFieldTokenURL, r.TokenURL)
	g.writeString(buf, 2, luaFieldTokenService, r.TokenService)
	g.writeString(buf, 2, luaFieldNamespace, r.Namespace)
	g.writeString(buf, 2, luaFieldUserAgent, r.UserAgent)
	g.line(buf, 2, fmt.Sprintf("%s = %d,", luaFieldTimeoutSeconds, r.TimeoutSeconds))
	g.close(buf, 1)
}

func (g *Generator) writeCatalog(buf *bytes.Buffer, c Catalog) {
	g.open(buf, 1, luaFieldCatalog)
	g.line(buf, 2, fmt.Sprintf("%s = %t,", luaFieldEnabled, c.Enabled))
	g.writeString(buf, 2, luaFieldPath, c.Path)
	if c.Keyring != "" {
		g.writeString(buf, 2, luaFieldKeyring, c.Keyring)
	}
	g.close(buf, 1)
}

func (g *Generator) writeBottles(buf *bytes.Buffer, b Bottles) {
	g.open(buf, 1, luaFieldBottles)

	if b.PlatformKey != "" {
		g.writeString(buf, 2, luaFieldPlatformKey, b.PlatformKey)
	} else {
		g.line(buf, 2, "-- "+luaFieldPlatformKey+" = \"arm64_sonoma\",")
	}

	quoted := make([]string, 0, len(b.Priority))
	for _, codename := range b.Priority {
		quoted = append(quoted, g.quoteLuaString(codename))
	}
	g.line(buf, 2, luaFieldPriority+" = { "+strings.Join(quoted, ", ")+" },")

	if len(b.Codenames) > 0 {
		versions := make([]string, 0, len(b.Codenames))
		for v := range b.Codenames {
			versions = append(versions, v)
		}
		sort.Strings(versions)

		g.open(buf, 2, luaFieldCodenames)
		for _, v := range versions {
			g.line(buf, 3, fmt.Sprintf("[%s] = %s,", g.quoteLuaString(v), g.quoteLuaString(b.Codenames[v])))
		}
		g.close(buf, 2)
	}

	g.close(buf, 1)
}

func (g *Generator) writeInstall(buf *bytes.Buffer, i Install) {
	g.open(buf, 1, luaFieldInstall)
	g.line(buf, 2, fmt.Sprintf("%s = %t,", luaFieldLock, i.Lock))
	g.close(buf, 1)
}

func (g *Generator) writeString(buf *bytes.Buffer, depth int, field, value string) {
	g.line(buf, depth, field+" = "+g.quoteLuaString(value)+",")
}

func (g *Generator) open(buf *bytes.Buffer, depth int, field string) {
	g.line(buf, depth, field+" = {")
}

func (g *Generator) close(buf *bytes.Buffer, depth int) {
	g.line(buf, depth, "},")
}

func (g *Generator) line(buf *bytes.Buffer, depth int, text string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(text)
	buf.WriteString("\n")
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	// Use double quotes and escape special characters
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"") // Escape double quotes
	s = strings.ReplaceAll(s, "\n", "\\n")  // Escape newlines
	s = strings.ReplaceAll(s, "\r", "\\r")  // Escape carriage returns
	s = strings.ReplaceAll(s, "\t", "\\t")  // Escape tabs
	return "\"" + s + "\""
}

package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/still/internal/platform"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
	logger   zerolog.Logger
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table out.
func NewParser(detector platform.Detector, logger zerolog.Logger) *Parser {
	return &Parser{detector: detector, logger: logger}
}

// ParseFile reads and parses the config file at path over base.
func (p *Parser) ParseFile(ctx context.Context, path string, base Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return p.ParseString(ctx, string(data), base)
}

// ParseString parses a Lua config from a string. Fields the config sets
// replace the corresponding fields of base; everything else is kept.
func (p *Parser) ParseString(ctx context.Context, luaCode string, base Config) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()

	// Detect platform and inject platform table
	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	config := cloneConfig(base)
	if err := p.extractConfig(L, &config); err != nil {
		return nil, err
	}

	if err := config.expandPaths(); err != nil {
		return nil, &ParseError{Message: "config paths", Detail: err.Error()}
	}

	if err := config.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return &config, nil
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global "still" table into config.
func (p *Parser) extractConfig(L *lua.LState, config *Config) error {
	stillTable := L.GetGlobal(luaGlobalStill)
	if stillTable.Type() != lua.LTTable {
		return &ParseError{
			Message: "missing or invalid 'still' table",
			Detail:  fmt.Sprintf("expected table, got %s", stillTable.Type()),
		}
	}
	table := stillTable.(*lua.LTable)

	p.warnUnknown(table, luaGlobalStill, luaFieldToolsRoot, luaFieldBinRoot,
		luaFieldRegistry, luaFieldCatalog, luaFieldBottles, luaFieldInstall)

	if err := setString(table, luaGlobalStill, luaFieldToolsRoot, &config.ToolsRoot); err != nil {
		return err
	}
	if err := setString(table, luaGlobalStill, luaFieldBinRoot, &config.BinRoot); err != nil {
		return err
	}

	sections := []struct {
		name    string
		extract func(*lua.LTable, string) error
	}{
		{luaFieldRegistry, func(t *lua.LTable, path string) error { return p.extractRegistry(t, path, &config.Registry) }},
		{luaFieldCatalog, func(t *lua.LTable, path string) error { return p.extractCatalog(t, path, &config.Catalog) }},
		{luaFieldBottles, func(t *lua.LTable, path string) error { return p.extractBottles(t, path, &config.Bottles) }},
		{luaFieldInstall, func(t *lua.LTable, path string) error { return p.extractInstall(t, path, &config.Install) }},
	}
	for _, section := range sections {
		sub, err := subTable(table, luaGlobalStill, section.name)
		if err != nil {
			return err
		}
		if sub == nil {
			continue
		}
		if err := section.extract(sub, luaGlobalStill+"."+section.name); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) extractRegistry(table *lua.LTable, path string, registry *Registry) error {
	p.warnUnknown(table, path, luaFieldFormulaAPI, luaFieldTokenURL, luaFieldTokenService,
		luaFieldNamespace, luaFieldUserAgent, luaFieldTimeoutSeconds)

	fields := []struct {
		name string
		dst  *string
	}{
		{luaFieldFormulaAPI, &registry.FormulaAPI},
		{luaFieldTokenURL, &registry.TokenURL},
		{luaFieldTokenService, &registry.TokenService},
		{luaFieldNamespace, &registry.Namespace},
		{luaFieldUserAgent, &registry.UserAgent},
	}
	for _, f := range fields {
		if err := setString(table, path, f.name, f.dst); err != nil {
			return err
		}
	}
	return setInt(table, path, luaFieldTimeoutSeconds, &registry.TimeoutSeconds)
}

func (p *Parser) extractCatalog(table *lua.LTable, path string, catalog *Catalog) error {
	p.warnUnknown(table, path, luaFieldEnabled, luaFieldPath, luaFieldKeyring)

	if err := setBool(table, path, luaFieldEnabled, &catalog.Enabled); err != nil {
		return err
	}
	if err := setString(table, path, luaFieldPath, &catalog.Path); err != nil {
		return err
	}
	return setString(table, path, luaFieldKeyring, &catalog.Keyring)
}

func (p *Parser) extractBottles(table *lua.LTable, path string, bottles *Bottles) error {
	p.warnUnknown(table, path, luaFieldPlatformKey, luaFieldPriority, luaFieldCodenames)

	if err := setString(table, path, luaFieldPlatformKey, &bottles.PlatformKey); err != nil {
		return err
	}

	priority, err := subTable(table, path, luaFieldPriority)
	if err != nil {
		return err
	}
	if priority != nil {
		// Skip nil values from platform conditionals like: platform.when(x, "sonoma")
		var codenames []string
		var typeErr error
		priority.ForEach(func(key, value lua.LValue) {
			if typeErr != nil || value.Type() == lua.LTNil {
				return
			}
			if value.Type() != lua.LTString {
				typeErr = typeError(path+"."+luaFieldPriority, "string entries", value)
				return
			}
			codenames = append(codenames, strings.ToLower(value.String()))
		})
		if typeErr != nil {
			return typeErr
		}
		bottles.Priority = codenames
	}

	names, err := subTable(table, path, luaFieldCodenames)
	if err != nil {
		return err
	}
	if names != nil {
		mapping := make(map[string]string)
		var typeErr error
		// Keys may be written as [15] or ["15"].
		names.ForEach(func(key, value lua.LValue) {
			if typeErr != nil {
				return
			}
			if value.Type() != lua.LTString {
				typeErr = typeError(path+"."+luaFieldCodenames, "string values", value)
				return
			}
			mapping[key.String()] = strings.ToLower(value.String())
		})
		if typeErr != nil {
			return typeErr
		}
		bottles.Codenames = mapping
	}

	return nil
}

func (p *Parser) extractInstall(table *lua.LTable, path string, install *Install) error {
	p.warnUnknown(table, path, luaFieldLock)
	return setBool(table, path, luaFieldLock, &install.Lock)
}

// warnUnknown logs keys of table that are not in known.
func (p *Parser) warnUnknown(table *lua.LTable, path string, known ...string) {
	table.ForEach(func(key, _ lua.LValue) {
		name := key.String()
		for _, k := range known {
			if name == k {
				return
			}
		}
		p.logger.Warn().Str("field", path+"."+name).Msg("unknown config field ignored")
	})
}

func subTable(table *lua.LTable, path, field string) (*lua.LTable, error) {
	value := table.RawGetString(field)
	switch value.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTTable:
		return value.(*lua.LTable), nil
	default:
		return nil, typeError(path+"."+field, "table", value)
	}
}

func setString(table *lua.LTable, path, field string, dst *string) error {
	value := table.RawGetString(field)
	switch value.Type() {
	case lua.LTNil:
		return nil
	case lua.LTString:
		*dst = value.String()
		return nil
	default:
		return typeError(path+"."+field, "string", value)
	}
}

func setBool(table *lua.LTable, path, field string, dst *bool) error {
	value := table.RawGetString(field)
	switch value.Type() {
	case lua.LTNil:
		return nil
	case lua.LTBool:
		*dst = bool(value.(lua.LBool))
		return nil
	default:
		return typeError(path+"."+field, "boolean", value)
	}
}

func setInt(table *lua.LTable, path, field string, dst *int) error {
	value := table.RawGetString(field)
	switch value.Type() {
	case lua.LTNil:
		return nil
	case lua.LTNumber:
		n := float64(lua.LVAsNumber(value))
		if n != float64(int(n)) {
			return &ParseError{
				Message: "invalid value for " + path + "." + field,
				Detail:  fmt.Sprintf("expected integer, got %v", n),
			}
		}
		*dst = int(n)
		return nil
	default:
		return typeError(path+"."+field, "number", value)
	}
}

func typeError(field, want string, got lua.LValue) error {
	return &ParseError{
		Message: "invalid value for " + field,
		Detail:  fmt.Sprintf("expected %s, got %s", want, got.Type()),
	}
}

func cloneConfig(c Config) Config {
	c.Bottles.Priority = append([]string(nil), c.Bottles.Priority...)
	if c.Bottles.Codenames != nil {
		codenames := make(map[string]string, len(c.Bottles.Codenames))
		for k, v := range c.Bottles.Codenames {
			codenames[k] = v
		}
		c.Bottles.Codenames = codenames
	}
	return c
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	if parseErr, ok := err.(*ParseError); ok {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		// Extract the most relevant part of the error
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}

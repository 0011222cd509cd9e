package config

// Lua schema field names and globals
const (
	luaGlobalStill = "still"

	luaFieldToolsRoot = "tools_root"
	luaFieldBinRoot   = "bin_root"
	luaFieldRegistry  = "registry"
	luaFieldCatalog   = "catalog"
	luaFieldBottles   = "bottles"
	luaFieldInstall   = "install"

	luaFieldFormulaAPI     = "formula_api"
	luaFieldTokenURL       = "token_url"
	luaFieldTokenService   = "token_service"
	luaFieldNamespace      = "namespace"
	luaFieldUserAgent      = "user_agent"
	luaFieldTimeoutSeconds = "timeout_seconds"

	luaFieldEnabled = "enabled"
	luaFieldPath    = "path"
	luaFieldKeyring = "keyring"

	luaFieldPlatformKey = "platform_key"
	luaFieldPriority    = "priority"
	luaFieldCodenames   = "codenames"

	luaFieldLock = "lock"
)

// ConfigFileName is the file looked up inside the config directory.
const ConfigFileName = "config.lua"

// EnvConfigDir overrides the config directory.
const EnvConfigDir = "STILL_CONFIG_DIR"

// DefaultPriority orders macOS codenames, newest first, for the bottle
// architecture fallback.
var DefaultPriority = []string{"tahoe", "sequoia", "sonoma", "ventura", "monterey", "big_sur"}

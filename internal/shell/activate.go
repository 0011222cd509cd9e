package shell

import (
	"fmt"
	"strings"
)

// PathCommand returns the line that prepends binRoot to PATH in shell.
// The directory is single-quoted so no expansion happens on it.
func PathCommand(shell ShellType, binRoot string) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}
	if binRoot == "" {
		return "", fmt.Errorf("bin root is required")
	}

	switch shell {
	case ShellBash, ShellZsh:
		return fmt.Sprintf(`export PATH=%s:"$PATH"`, posixQuote(binRoot)), nil
	case ShellFish:
		return fmt.Sprintf("set -gx PATH %s $PATH", fishQuote(binRoot)), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// isPathCommand reports whether cmd has the shape PathCommand produces.
func isPathCommand(cmd string) bool {
	if strings.ContainsAny(cmd, "\n\r;&|`") {
		return false
	}
	switch {
	case strings.HasPrefix(cmd, "export PATH='") && strings.HasSuffix(cmd, `':"$PATH"`):
		return true
	case strings.HasPrefix(cmd, "set -gx PATH '") && strings.HasSuffix(cmd, "' $PATH"):
		return true
	default:
		return false
	}
}

func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func fishQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	return "'" + s + "'"
}

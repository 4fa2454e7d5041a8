package util

import (
	"os"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

type requiredFlag struct {
	pointer *string
	cliName string
}

// kept in registration order so missing flags are reported the way they were declared
var requiredFlags []requiredFlag

// RequiredFlag(itemPtr, "--item"), can also use -item and item
func RequiredFlag(flagPointer *string, cliName string) {
	requiredFlags = append(requiredFlags, requiredFlag{pointer: flagPointer, cliName: normalizeFlagName(cliName)})
}

func normalizeFlagName(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "--") {
		return s
	}
	if strings.HasPrefix(s, "-") {
		// single dash → double dash
		return "-" + s
	}
	return "--" + s
}

// MissingFlags returns the cli names of required flags that are still empty.
func MissingFlags() []string {
	missing := make([]string, 0)
	for _, flag := range requiredFlags {
		if flag.pointer == nil || strings.TrimSpace(*flag.pointer) == "" {
			missing = append(missing, flag.cliName)
		}
	}
	return missing
}

// EnsureFlags logs every missing required flag and exits(1) if any were missing.
func EnsureFlags() {
	missing := MissingFlags()
	for _, cliName := range missing {
		tl.Log(tl.Warning, palette.YellowBold, "%s parameter is %s", cliName, "required")
	}
	if len(missing) > 0 {
		os.Exit(1)
	}
}

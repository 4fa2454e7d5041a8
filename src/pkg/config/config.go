// Package config loads the JSON configuration file and .env variables shared by every entrypoint.
package config

import (
	"encoding/json"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

var (
	sectionsMu sync.RWMutex
	sections   = map[string]json.RawMessage{}
)

/*
CheckIfEnvVarsPresent loads ./.env (if present) and warns about every listed
variable that is still empty afterwards.

Missing variables are not fatal here: the package that needs the value decides
whether it can run without it.
*/
func CheckIfEnvVarsPresent(envVarNames ...string) {
	loadErr := godotenv.Load()
	if loadErr != nil && !os.IsNotExist(loadErr) {
		tl.Log(tl.Warning, palette.Yellow, "Unable to load '%s': '%s'", ".env", loadErr)
	}

	for _, name := range envVarNames {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			tl.Log(tl.Warning, palette.YellowBold, "%s environment variable is %s", name, "not set")
		}
	}
}

/*
InitializeConfig reads the configuration file at configPath and keeps every
top-level section so packages can pick theirs up with Section.

A missing file is not an error, all packages fall back to their defaults.
*/
func InitializeConfig(configPath string) {
	e := loadSections(configPath)
	if e != nil {
		e.QuitIf(xerr.ErrorTypeError)
	}
}

func loadSections(configPath string) (e *xerr.Error) {
	fileBytes, readErr := os.ReadFile(configPath)
	if os.IsNotExist(readErr) {
		tl.Log(tl.Info, palette.Purple, "Config file '%s' is %s, keeping %s", configPath, "missing", "defaults")
		return e
	}
	if readErr != nil {
		e = xerr.NewError(readErr, "read config file", configPath)
		return e
	}

	parsed := map[string]json.RawMessage{}
	unmarshalErr := json.Unmarshal(fileBytes, &parsed)
	if unmarshalErr != nil {
		e = xerr.NewError(unmarshalErr, "unmarshal config file", configPath)
		return e
	}

	sectionsMu.Lock()
	sections = parsed
	sectionsMu.Unlock()

	tl.Log(tl.Info1, palette.Green, "Loaded %d config sections from '%s'", len(parsed), configPath)
	return e
}

/*
Section unmarshals the named top-level section into target.

It returns found == false when the section is absent, so the caller can pass
nil to its package InitializeConfig and keep the defaults.
*/
func Section(name string, target any) (found bool, e *xerr.Error) {
	sectionsMu.RLock()
	raw, found := sections[name]
	sectionsMu.RUnlock()
	if !found {
		return false, e
	}

	unmarshalErr := json.Unmarshal(raw, target)
	if unmarshalErr != nil {
		e = xerr.NewError(unmarshalErr, "unmarshal config section", name)
		return false, e
	}
	return true, e
}

// GetPackageName returns the directory name of the calling package, e.g. "echo-middleware".
func GetPackageName() string {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return "unknown"
	}
	funcName := runtime.FuncForPC(pc).Name()

	lastSlash := strings.LastIndex(funcName, "/")
	if lastSlash >= 0 {
		funcName = funcName[lastSlash+1:]
	}
	firstDot := strings.Index(funcName, ".")
	if firstDot >= 0 {
		funcName = funcName[:firstDot]
	}
	return funcName
}

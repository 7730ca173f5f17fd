// Package config resolves Factiva Analytics settings from the process
// environment. Every credential and default in the SDK goes through the
// resolvers here: explicit values always win, environment variables are the
// fallback, and required values that stay unresolved surface an error naming
// the exact variable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Environment variable names recognized by the SDK.
const (
	EnvUserKey        = "FACTIVA_USERKEY"
	EnvClientID       = "FACTIVA_CLIENTID"
	EnvUsername       = "FACTIVA_USERNAME"
	EnvPassword       = "FACTIVA_PASSWORD"
	EnvWhere          = "FACTIVA_WHERE"
	EnvSubscriptionID = "FACTIVA_SUBSCRIPTIONID"
	EnvLogLevel       = "FACTIVA_LOGLEVEL"
	EnvDownloadDir    = "DOWNLOAD_FILES_DIR"
)

var v = newViper()

func newViper() *viper.Viper {
	vp := viper.New()
	vp.AutomaticEnv()
	for _, key := range []string{
		EnvUserKey, EnvClientID, EnvUsername, EnvPassword,
		EnvWhere, EnvSubscriptionID, EnvLogLevel, EnvDownloadDir,
	} {
		vp.BindEnv(key, key)
	}
	return vp
}

// Resolve returns the explicit value when non-empty, otherwise the value of
// the named environment variable. An empty result is an error that names the
// missing variable.
func Resolve(explicit, envVar string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if val := v.GetString(envVar); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("value not provided and environment variable %s not set", envVar)
}

// Lookup returns the value of the named environment variable, or def when the
// variable is unset or empty.
func Lookup(envVar, def string) string {
	if val := v.GetString(envVar); val != "" {
		return val
	}
	return def
}

// DownloadDir returns the directory for extraction and taxonomy downloads.
// Defaults to ./downloads under the current working directory.
func DownloadDir() string {
	if dir := v.GetString(EnvDownloadDir); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return filepath.Join(wd, "downloads")
}

// LogLevel maps FACTIVA_LOGLEVEL onto a zerolog level. Accepted values are
// DEBUG, INFO, WARNING, ERROR and CRITICAL; anything else (including unset)
// resolves to INFO.
func LogLevel() zerolog.Level {
	switch strings.ToUpper(v.GetString(EnvLogLevel)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "CRITICAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

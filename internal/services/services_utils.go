package services

import (
	"os"
	"strings"
)

// resolveEnvVar resolves "${VAR_NAME}" syntax in config values to the
// environment variable's value; anything else passes through unchanged.
func resolveEnvVar(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}"))
	}
	return value
}

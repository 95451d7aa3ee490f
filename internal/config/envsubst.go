package config

import (
	"encoding/json"
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} or ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnvVarsJSON expands environment variable references inside a JSON
// document. Supports two formats:
//   - ${VAR} - replaced with the value of VAR, or empty string if not set
//   - ${VAR:-default} - replaced with VAR's value, or "default" if not set
//
// Substituted values are escaped for a JSON string context so quotes and
// backslashes in the environment cannot break the document.
func ExpandEnvVarsJSON(input []byte) []byte {
	return []byte(expand(string(input), escapeJSONString))
}

func expand(input string, escape func(string) string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		if val, ok := os.LookupEnv(submatches[1]); ok {
			return escape(val)
		}
		if len(submatches) >= 3 {
			return submatches[2]
		}
		return ""
	})
}

func escapeJSONString(s string) string {
	b, err := json.Marshal(s)
	if err != nil || len(b) < 2 {
		return s
	}
	return string(b[1 : len(b)-1])
}

// Package githubauth resolves GitHub credentials once at program entry so the
// rest of the application receives tokens explicitly instead of reading
// ambient environment variables.
package githubauth

import (
	"os"
	"strings"
)

// Environment variable names inspected for a GitHub API token, in order of
// preference.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPreferenceOrder = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// ResolveToken returns the first non-blank token found, consulting the
// provided environment map before the process environment. The boolean
// reports whether any credential was found.
func ResolveToken(environment map[string]string) (string, bool) {
	for _, variableName := range tokenPreferenceOrder {
		if tokenValue, available := normalizeTokenValue(environment[variableName]); available {
			return tokenValue, true
		}
	}
	for _, variableName := range tokenPreferenceOrder {
		rawValue, present := os.LookupEnv(variableName)
		if !present {
			continue
		}
		if tokenValue, available := normalizeTokenValue(rawValue); available {
			return tokenValue, true
		}
	}
	return "", false
}

func normalizeTokenValue(rawValue string) (string, bool) {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		return "", false
	}
	return trimmedValue, true
}

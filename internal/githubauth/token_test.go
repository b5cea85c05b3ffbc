package githubauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gm-pacific/nexahub/internal/githubauth"
)

func TestResolveTokenPrefersProvidedEnvironment(testInstance *testing.T) {
	testCases := []struct {
		name          string
		environment   map[string]string
		processValues map[string]string
		expectedToken string
		expectFound   bool
	}{
		{
			name:          "cli_token_preferred_over_generic_token",
			environment:   map[string]string{githubauth.EnvGitHubCLIToken: "cli-token", githubauth.EnvGitHubToken: "generic-token"},
			expectedToken: "cli-token",
			expectFound:   true,
		},
		{
			name:          "generic_token_used_when_cli_token_blank",
			environment:   map[string]string{githubauth.EnvGitHubCLIToken: "   ", githubauth.EnvGitHubToken: "generic-token"},
			expectedToken: "generic-token",
			expectFound:   true,
		},
		{
			name:          "api_token_used_as_last_preference",
			environment:   map[string]string{githubauth.EnvGitHubAPIToken: "api-token"},
			expectedToken: "api-token",
			expectFound:   true,
		},
		{
			name:          "process_environment_consulted_when_map_empty",
			processValues: map[string]string{githubauth.EnvGitHubToken: "process-token"},
			expectedToken: "process-token",
			expectFound:   true,
		},
		{
			name:        "missing_everywhere",
			expectFound: false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			for _, key := range []string{githubauth.EnvGitHubCLIToken, githubauth.EnvGitHubToken, githubauth.EnvGitHubAPIToken} {
				subtestInstance.Setenv(key, "")
			}
			for key, value := range testCase.processValues {
				subtestInstance.Setenv(key, value)
			}

			resolvedToken, tokenFound := githubauth.ResolveToken(testCase.environment)
			require.Equal(subtestInstance, testCase.expectFound, tokenFound)
			require.Equal(subtestInstance, testCase.expectedToken, resolvedToken)
		})
	}
}

package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gm-pacific/nexahub/internal/gitrepo"
)

func TestParseRemoteURL(testInstance *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    gitrepo.RemoteURL
		expectError bool
	}{
		{
			name:  "ssh_shorthand",
			input: "git@github.com:gm-pacific/payments.git",
			expected: gitrepo.RemoteURL{
				Protocol:   gitrepo.RemoteProtocolSSH,
				Host:       "github.com",
				Owner:      "gm-pacific",
				Repository: "payments",
			},
		},
		{
			name:  "ssh_protocol_prefix",
			input: "ssh://git@bitbucket.org/gm-pacific/payments.git",
			expected: gitrepo.RemoteURL{
				Protocol:   gitrepo.RemoteProtocolSSH,
				Host:       "bitbucket.org",
				Owner:      "gm-pacific",
				Repository: "payments",
			},
		},
		{
			name:  "https_remote",
			input: "https://github.com/gm-pacific/payments.git",
			expected: gitrepo.RemoteURL{
				Protocol:   gitrepo.RemoteProtocolHTTPS,
				Host:       "github.com",
				Owner:      "gm-pacific",
				Repository: "payments",
			},
		},
		{
			name:        "empty_input",
			input:       "   ",
			expectError: true,
		},
		{
			name:        "unsupported_protocol",
			input:       "ftp://github.com/gm-pacific/payments.git",
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			parsedRemote, parseError := gitrepo.ParseRemoteURL(testCase.input)
			if testCase.expectError {
				require.Error(subtestInstance, parseError)
				return
			}
			require.NoError(subtestInstance, parseError)
			require.Equal(subtestInstance, testCase.expected, parsedRemote)
		})
	}
}

func TestBuildRemoteURLs(testInstance *testing.T) {
	primaryRemoteURL, primaryError := gitrepo.BuildPrimaryRemoteURL("gm-pacific", "payments")
	require.NoError(testInstance, primaryError)
	require.Equal(testInstance, "git@github.com:gm-pacific/payments.git", primaryRemoteURL)

	legacyRemoteURL, legacyError := gitrepo.BuildLegacyRemoteURL("gmpacific", "payments")
	require.NoError(testInstance, legacyError)
	require.Equal(testInstance, "git@bitbucket.org:gmpacific/payments.git", legacyRemoteURL)

	_, missingRepositoryError := gitrepo.BuildPrimaryRemoteURL("gm-pacific", "")
	require.Error(testInstance, missingRepositoryError)
}

func TestFormatRemoteURLRoundTrip(testInstance *testing.T) {
	original := gitrepo.RemoteURL{
		Protocol:   gitrepo.RemoteProtocolHTTPS,
		Host:       "github.com",
		Owner:      "gm-pacific",
		Repository: "payments",
	}

	formatted, formatError := gitrepo.FormatRemoteURL(original)
	require.NoError(testInstance, formatError)

	reparsed, parseError := gitrepo.ParseRemoteURL(formatted)
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, original, reparsed)
}

package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gm-pacific/nexahub/internal/utils"
)

func TestParseLogLevel(testInstance *testing.T) {
	testCases := []struct {
		name          string
		candidate     string
		expectedLevel utils.LogLevel
		expectError   bool
	}{
		{name: "debug", candidate: "debug", expectedLevel: utils.LogLevelDebug},
		{name: "info_with_whitespace", candidate: " info ", expectedLevel: utils.LogLevelInfo},
		{name: "warn_uppercase", candidate: "WARN", expectedLevel: utils.LogLevelWarn},
		{name: "error", candidate: "error", expectedLevel: utils.LogLevelError},
		{name: "unsupported", candidate: "verbose", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			parsedLevel, parseError := utils.ParseLogLevel(testCase.candidate)
			if testCase.expectError {
				require.Error(subtestInstance, parseError)
				return
			}
			require.NoError(subtestInstance, parseError)
			require.Equal(subtestInstance, testCase.expectedLevel, parsedLevel)
		})
	}
}

func TestParseLogFormat(testInstance *testing.T) {
	testCases := []struct {
		name           string
		candidate      string
		expectedFormat utils.LogFormat
		expectError    bool
	}{
		{name: "structured", candidate: "structured", expectedFormat: utils.LogFormatStructured},
		{name: "console_uppercase", candidate: "Console", expectedFormat: utils.LogFormatConsole},
		{name: "unsupported", candidate: "plain", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			parsedFormat, parseError := utils.ParseLogFormat(testCase.candidate)
			if testCase.expectError {
				require.Error(subtestInstance, parseError)
				return
			}
			require.NoError(subtestInstance, parseError)
			require.Equal(subtestInstance, testCase.expectedFormat, parsedFormat)
		})
	}
}

func TestLoggerFactoryCreateLogger(testInstance *testing.T) {
	testCases := []struct {
		name        string
		logLevel    utils.LogLevel
		logFormat   utils.LogFormat
		expectError bool
	}{
		{name: "structured_info", logLevel: utils.LogLevelInfo, logFormat: utils.LogFormatStructured},
		{name: "console_debug", logLevel: utils.LogLevelDebug, logFormat: utils.LogFormatConsole},
		{name: "unsupported_level", logLevel: utils.LogLevel("verbose"), logFormat: utils.LogFormatConsole, expectError: true},
		{name: "unsupported_format", logLevel: utils.LogLevelInfo, logFormat: utils.LogFormat("plain"), expectError: true},
	}

	loggerFactory := utils.NewLoggerFactory()
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			createdLogger, creationError := loggerFactory.CreateLogger(testCase.logLevel, testCase.logFormat)
			if testCase.expectError {
				require.Error(subtestInstance, creationError)
				require.Nil(subtestInstance, createdLogger)
				return
			}
			require.NoError(subtestInstance, creationError)
			require.NotNil(subtestInstance, createdLogger)
		})
	}
}

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	decoratedContext := accessor.WithConfigurationFilePath(nil, "/etc/nexahub/config.yaml")
	decoratedContext = accessor.WithGitHubCredential(decoratedContext, "ghp_example")

	configurationFilePath, configurationFilePathAvailable := accessor.ConfigurationFilePath(decoratedContext)
	require.True(testInstance, configurationFilePathAvailable)
	require.Equal(testInstance, "/etc/nexahub/config.yaml", configurationFilePath)

	credential, credentialAvailable := accessor.GitHubCredential(decoratedContext)
	require.True(testInstance, credentialAvailable)
	require.Equal(testInstance, "ghp_example", credential)

	_, missingAvailable := accessor.GitHubCredential(nil)
	require.False(testInstance, missingAvailable)
}

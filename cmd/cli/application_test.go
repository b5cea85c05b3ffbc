package cli_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gm-pacific/nexahub/cmd/cli"
)

type embeddedConfigurationFixture struct {
	Common struct {
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"common"`
	Tools struct {
		Migrate struct {
			Workspace     string `yaml:"workspace"`
			PrimaryBranch string `yaml:"primary_branch"`
		} `yaml:"migrate"`
		BranchCleanup struct {
			Days         int    `yaml:"days"`
			Execute      bool   `yaml:"execute"`
			BranchPrefix string `yaml:"branch_prefix"`
		} `yaml:"branch_cleanup"`
	} `yaml:"tools"`
}

func TestEmbeddedDefaultConfigurationParsesAsYAML(testInstance *testing.T) {
	embeddedContent, configurationType := cli.EmbeddedDefaultConfiguration()
	require.Equal(testInstance, "yaml", configurationType)
	require.NotEmpty(testInstance, embeddedContent)

	var parsedConfiguration embeddedConfigurationFixture
	require.NoError(testInstance, yaml.Unmarshal(embeddedContent, &parsedConfiguration))

	require.Equal(testInstance, "info", parsedConfiguration.Common.LogLevel)
	require.Equal(testInstance, "structured", parsedConfiguration.Common.LogFormat)
	require.Equal(testInstance, 4, parsedConfiguration.Tools.BranchCleanup.Days)
	require.False(testInstance, parsedConfiguration.Tools.BranchCleanup.Execute)
	require.Equal(testInstance, "devin/", parsedConfiguration.Tools.BranchCleanup.BranchPrefix)
	require.Equal(testInstance, "main", parsedConfiguration.Tools.Migrate.PrimaryBranch)
}

func TestEmbeddedDefaultConfigurationReturnsCopies(testInstance *testing.T) {
	firstCopy, _ := cli.EmbeddedDefaultConfiguration()
	firstCopy[0] = '#'

	secondCopy, _ := cli.EmbeddedDefaultConfiguration()
	require.NotEqual(testInstance, byte('#'), secondCopy[0])
}

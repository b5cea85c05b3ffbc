package migrate

import "strings"

const (
	defaultWorkspaceDirectoryConstant = "."
)

// CommandConfiguration captures persisted configuration for repository migration.
type CommandConfiguration struct {
	Organization       string `mapstructure:"organization"`
	LegacyWorkspace    string `mapstructure:"legacy_workspace"`
	WorkspaceDirectory string `mapstructure:"workspace"`
	PrimaryBranch      string `mapstructure:"primary_branch"`
}

// DefaultCommandConfiguration returns baseline configuration values for migration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		WorkspaceDirectory: defaultWorkspaceDirectoryConstant,
		PrimaryBranch:      defaultPrimaryBranchNameConstant,
	}
}

// Sanitize trims configured values and restores defaults for empty entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := CommandConfiguration{
		Organization:       strings.TrimSpace(configuration.Organization),
		LegacyWorkspace:    strings.TrimSpace(configuration.LegacyWorkspace),
		WorkspaceDirectory: strings.TrimSpace(configuration.WorkspaceDirectory),
		PrimaryBranch:      strings.TrimSpace(configuration.PrimaryBranch),
	}
	if len(sanitized.WorkspaceDirectory) == 0 {
		sanitized.WorkspaceDirectory = defaultWorkspaceDirectoryConstant
	}
	if len(sanitized.PrimaryBranch) == 0 {
		sanitized.PrimaryBranch = defaultPrimaryBranchNameConstant
	}
	return sanitized
}

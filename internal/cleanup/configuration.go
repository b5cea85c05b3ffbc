package cleanup

import "strings"

// CommandConfiguration carries the cleanup settings loaded from configuration files.
type CommandConfiguration struct {
	Days         int    `mapstructure:"days"`
	Execute      bool   `mapstructure:"execute"`
	BranchPrefix string `mapstructure:"branch_prefix"`
}

// DefaultCommandConfiguration returns the baseline cleanup configuration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Days:         DefaultThresholdDays,
		Execute:      false,
		BranchPrefix: DefaultAutomationBranchPrefix,
	}
}

// Sanitize trims string fields and restores defaults for unset values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.BranchPrefix = strings.TrimSpace(sanitized.BranchPrefix)
	if sanitized.Days <= 0 {
		sanitized.Days = DefaultThresholdDays
	}
	if len(sanitized.BranchPrefix) == 0 {
		sanitized.BranchPrefix = DefaultAutomationBranchPrefix
	}
	return sanitized
}

package migrate

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gm-pacific/nexahub/internal/execshell"
	"github.com/gm-pacific/nexahub/internal/gitrepo"
)

const (
	commandUseConstant                      = "migrate <repositoryName>"
	commandShortDescriptionConstant         = "Migrate a repository from the legacy host to the primary host"
	commandLongDescriptionConstant          = "migrate clones the repository from GitHub, fetches the full Bitbucket history including large-file objects, merges it into the primary default branch, and publishes the result."
	organizationFlagNameConstant            = "organization"
	organizationFlagUsageConstant           = "GitHub organization receiving the repository"
	legacyWorkspaceFlagNameConstant         = "legacy-workspace"
	legacyWorkspaceFlagUsageConstant        = "Bitbucket workspace the repository migrates from"
	workspaceFlagNameConstant               = "workspace"
	workspaceFlagUsageConstant              = "Local directory receiving working copies"
	migrationFailedErrorTemplateConstant    = "migration failed: %w"
	executorCreationErrorTemplateConstant   = "unable to construct shell executor: %w"
	managerCreationErrorTemplateConstant    = "unable to construct repository manager: %w"
	migrationCompletedMessageConstant       = "Migration completed"
	migrationWarningsFieldConstant          = "warnings"
	migrationStateFieldConstant             = "state"
	migrationRepositoryFieldConstant        = "repository"
	migrationPlaceholderFieldConstant       = "placeholder_committed"
	migrationMergePerformedFieldConstant    = "merge_performed"
	migrationLegacyBranchFieldNameConstant  = "legacy_branch"
	migrationFailureLogMessageConstant      = "Migration failed"
	migrationFailureReasonFieldNameConstant = "reason"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ServiceProvider constructs a migration service from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (*Service, error)

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  gitrepo.GitExecutor
	ServiceProvider              ServiceProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE:          builder.runMigrate,
	}

	command.Flags().String(organizationFlagNameConstant, "", organizationFlagUsageConstant)
	command.Flags().String(legacyWorkspaceFlagNameConstant, "", legacyWorkspaceFlagUsageConstant)
	command.Flags().String(workspaceFlagNameConstant, "", workspaceFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	migrationOptions := MigrationOptions{
		RepositoryName:      arguments[0],
		OrganizationName:    configuration.Organization,
		LegacyWorkspaceName: configuration.LegacyWorkspace,
		WorkspaceDirectory:  configuration.WorkspaceDirectory,
		PrimaryBranchName:   configuration.PrimaryBranch,
	}

	if command.Flags().Changed(organizationFlagNameConstant) {
		flagValue, _ := command.Flags().GetString(organizationFlagNameConstant)
		migrationOptions.OrganizationName = flagValue
	}
	if command.Flags().Changed(legacyWorkspaceFlagNameConstant) {
		flagValue, _ := command.Flags().GetString(legacyWorkspaceFlagNameConstant)
		migrationOptions.LegacyWorkspaceName = flagValue
	}
	if command.Flags().Changed(workspaceFlagNameConstant) {
		flagValue, _ := command.Flags().GetString(workspaceFlagNameConstant)
		migrationOptions.WorkspaceDirectory = flagValue
	}

	gitExecutor, executorError := builder.resolveGitExecutor(logger)
	if executorError != nil {
		return fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(gitExecutor)
	if managerError != nil {
		return fmt.Errorf(managerCreationErrorTemplateConstant, managerError)
	}

	service, serviceError := builder.resolveService(ServiceDependencies{Logger: logger, VersionControl: repositoryManager})
	if serviceError != nil {
		return serviceError
	}

	outcome, migrationError := service.Execute(command.Context(), migrationOptions)
	if migrationError != nil {
		builder.logFailure(logger, outcome, migrationError)
		return fmt.Errorf(migrationFailedErrorTemplateConstant, migrationError)
	}

	logger.Info(
		migrationCompletedMessageConstant,
		zap.String(migrationRepositoryFieldConstant, outcome.RepositoryName),
		zap.String(migrationStateFieldConstant, outcome.State.String()),
		zap.String(migrationLegacyBranchFieldNameConstant, outcome.LegacyBranchName),
		zap.Bool(migrationMergePerformedFieldConstant, outcome.MergePerformed),
		zap.Bool(migrationPlaceholderFieldConstant, outcome.PlaceholderCommitted),
		zap.Strings(migrationWarningsFieldConstant, outcome.Warnings),
	)
	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveGitExecutor(logger *zap.Logger) (gitrepo.GitExecutor, error) {
	if builder.GitExecutor != nil {
		return builder.GitExecutor, nil
	}

	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), humanReadableLogging)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (*Service, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) logFailure(logger *zap.Logger, outcome MigrationOutcome, migrationError error) {
	fields := []zap.Field{
		zap.String(migrationRepositoryFieldConstant, outcome.RepositoryName),
		zap.String(migrationStateFieldConstant, outcome.State.String()),
		zap.Error(migrationError),
	}
	var pipelineFailure PipelineError
	if errors.As(migrationError, &pipelineFailure) {
		fields = append(fields, zap.String(migrationFailureReasonFieldNameConstant, string(pipelineFailure.Reason)))
	}
	logger.Error(migrationFailureLogMessageConstant, fields...)
}

package cleanup

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gm-pacific/nexahub/internal/execshell"
	"github.com/gm-pacific/nexahub/internal/githubcli"
	"github.com/gm-pacific/nexahub/internal/utils"
)

const (
	listReposCommandUseConstant              = "list-repos"
	listReposCommandShortDescriptionConstant = "List repositories and their automation branches"
	listReposCommandLongDescriptionConstant  = "list-repos enumerates every repository visible to the authenticated account, resolves the automation branches of each one with commit timestamps, and prints the catalog as JSON."
	outputFlagNameConstant                   = "output"
	outputFlagUsageConstant                  = "File receiving the catalog snapshot instead of standard output"

	cleanupCommandUseConstant              = "cleanup"
	cleanupCommandShortDescriptionConstant = "Delete stale automation branches across all repositories"
	cleanupCommandLongDescriptionConstant  = "cleanup evaluates every automation branch against the staleness threshold and deletes the stale ones. Runs are previews unless --execute is given."
	executeFlagNameConstant                = "execute"
	executeFlagUsageConstant               = "Perform deletions instead of previewing them"
	daysFlagNameConstant                   = "days"
	daysFlagUsageConstant                  = "Staleness threshold in whole days"
	inputFlagNameConstant                  = "input"
	inputFlagUsageConstant                 = "Catalog snapshot file to evaluate instead of the live account"

	clientCreationErrorTemplateConstant  = "unable to construct github client: %w"
	engineCreationErrorTemplateConstant  = "unable to construct cleanup engine: %w"
	catalogWriteErrorTemplateConstant    = "unable to write catalog: %w"
	cleanupRunErrorTemplateConstant      = "cleanup run failed: %w"
	catalogWrittenMessageConstant        = "Catalog snapshot written"
	cleanupFailuresMessageConstant       = "Cleanup finished with failures"
	snapshotPathFieldNameConstant        = "path"
	snapshotRepositoriesFieldNameConstant = "repositories"
	failureCountFieldNameConstant        = "failures"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// EngineProvider constructs a cleanup engine from dependencies.
type EngineProvider func(dependencies EngineDependencies) (*Engine, error)

// CommandBuilder assembles the list-repos and cleanup Cobra commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitHub                       GitHubOperations
	EngineProvider               EngineProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	ContextAccessor              utils.CommandContextAccessor
}

// BuildListReposCommand constructs the list-repos command.
func (builder *CommandBuilder) BuildListReposCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           listReposCommandUseConstant,
		Short:         listReposCommandShortDescriptionConstant,
		Long:          listReposCommandLongDescriptionConstant,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          builder.runListRepos,
	}

	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)

	return command, nil
}

// BuildCleanupCommand constructs the cleanup command.
func (builder *CommandBuilder) BuildCleanupCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           cleanupCommandUseConstant,
		Short:         cleanupCommandShortDescriptionConstant,
		Long:          cleanupCommandLongDescriptionConstant,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          builder.runCleanup,
	}

	command.Flags().Bool(executeFlagNameConstant, false, executeFlagUsageConstant)
	command.Flags().Int(daysFlagNameConstant, DefaultThresholdDays, daysFlagUsageConstant)
	command.Flags().String(inputFlagNameConstant, "", inputFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runListRepos(command *cobra.Command, _ []string) error {
	logger := builder.resolveLogger()

	engine, engineError := builder.resolveEngine(command, logger)
	if engineError != nil {
		return engineError
	}

	policy := builder.resolvePolicy(command)

	collectedEntries := []RepositoryCatalogEntry{}
	for entry, catalogError := range engine.ListRepositories(command.Context(), policy) {
		if catalogError != nil {
			if isCatalogListingFailure(catalogError) {
				return catalogError
			}
			logger.Warn("Skipping repository after catalog failure", zap.Error(catalogError))
			continue
		}
		collectedEntries = append(collectedEntries, entry)
	}

	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)
	if len(outputPath) > 0 {
		if saveError := SaveCatalogSnapshot(outputPath, collectedEntries); saveError != nil {
			return fmt.Errorf(catalogWriteErrorTemplateConstant, saveError)
		}
		logger.Info(
			catalogWrittenMessageConstant,
			zap.String(snapshotPathFieldNameConstant, outputPath),
			zap.Int(snapshotRepositoriesFieldNameConstant, len(collectedEntries)),
		)
		return nil
	}

	flushingWriter := utils.NewFlushingWriter(command.OutOrStdout())
	if writeError := WriteCatalogSnapshot(flushingWriter, collectedEntries); writeError != nil {
		return fmt.Errorf(catalogWriteErrorTemplateConstant, writeError)
	}
	return nil
}

func (builder *CommandBuilder) runCleanup(command *cobra.Command, _ []string) error {
	logger := builder.resolveLogger()

	engine, engineError := builder.resolveEngine(command, logger)
	if engineError != nil {
		return engineError
	}

	policy := builder.resolvePolicy(command)

	report, runError := engine.Run(command.Context(), policy)
	if runError != nil {
		return fmt.Errorf(cleanupRunErrorTemplateConstant, runError)
	}
	if len(report.Failures) > 0 {
		logger.Warn(cleanupFailuresMessageConstant, zap.Int(failureCountFieldNameConstant, len(report.Failures)))
	}
	return nil
}

func (builder *CommandBuilder) resolvePolicy(command *cobra.Command) CleanupPolicy {
	configuration := builder.resolveConfiguration()

	policy := CleanupPolicy{
		ThresholdDays:          configuration.Days,
		DryRun:                 !configuration.Execute,
		AutomationBranchPrefix: configuration.BranchPrefix,
	}

	if command.Flags().Changed(daysFlagNameConstant) {
		flagValue, _ := command.Flags().GetInt(daysFlagNameConstant)
		policy.ThresholdDays = flagValue
	}
	if command.Flags().Changed(executeFlagNameConstant) {
		flagValue, _ := command.Flags().GetBool(executeFlagNameConstant)
		policy.DryRun = !flagValue
	}
	if command.Flags().Lookup(inputFlagNameConstant) != nil {
		flagValue, _ := command.Flags().GetString(inputFlagNameConstant)
		policy.SnapshotPath = flagValue
	}

	return policy.Normalize()
}

func (builder *CommandBuilder) resolveEngine(command *cobra.Command, logger *zap.Logger) (*Engine, error) {
	githubOperations, clientError := builder.resolveGitHub(command, logger)
	if clientError != nil {
		return nil, fmt.Errorf(clientCreationErrorTemplateConstant, clientError)
	}

	dependencies := EngineDependencies{Logger: logger, GitHub: githubOperations}
	if builder.EngineProvider != nil {
		return builder.EngineProvider(dependencies)
	}
	engine, creationError := NewEngine(dependencies)
	if creationError != nil {
		return nil, fmt.Errorf(engineCreationErrorTemplateConstant, creationError)
	}
	return engine, nil
}

func (builder *CommandBuilder) resolveGitHub(command *cobra.Command, logger *zap.Logger) (GitHubOperations, error) {
	if builder.GitHub != nil {
		return builder.GitHub, nil
	}

	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), humanReadableLogging)
	if executorError != nil {
		return nil, executorError
	}

	credential, _ := builder.ContextAccessor.GitHubCredential(command.Context())
	client, clientError := githubcli.NewClientWithCredential(shellExecutor, credential)
	if clientError != nil {
		return nil, clientError
	}
	return client, nil
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

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

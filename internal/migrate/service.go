package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gm-pacific/nexahub/internal/execshell"
	"github.com/gm-pacific/nexahub/internal/gitrepo"
)

const (
	repositoryNameFieldNameConstant          = "repository_name"
	organizationFieldNameConstant            = "organization"
	legacyWorkspaceFieldNameConstant         = "legacy_workspace"
	workspaceDirectoryFieldNameConstant      = "workspace_directory"
	requiredValueMessageConstant             = "value required"
	versionControlMissingMessageConstant     = "version control client not configured"
	defaultPrimaryRemoteNameConstant         = "origin"
	defaultLegacyRemoteNameConstant          = "upstream"
	defaultPrimaryBranchNameConstant         = "main"
	legacyFallbackBranchNameConstant         = "master"
	legacyBranchCollisionPrefixConstant      = "legacy-"
	remoteReferenceTemplateConstant          = "%s/%s"
	placeholderFileNameConstant              = "README.md"
	placeholderContentTemplateConstant       = "# %s\n"
	placeholderFilePermissionsConstant       = 0o644
	initialCommitMessageConstant             = "Initial commit"
	placeholderWriteErrorTemplateConstant    = "unable to write placeholder file: %w"
	logMessageWorkingCopyReusedConstant      = "Existing working copy reused"
	logMessageClonedConstant                 = "Cloned repository from primary host"
	logMessageRemoteAlreadyPresentConstant   = "Legacy remote already registered"
	logMessageRemoteAddedConstant            = "Registered legacy remote"
	logMessageFetchedConstant                = "Fetched refs from legacy remote"
	logMessageLFSFetchedConstant             = "Fetched large-file objects from legacy remote"
	logMessageTrackingEstablishedConstant    = "Established legacy tracking branch"
	logMessageBranchAlreadyPresentConstant   = "Legacy branch already present"
	logMessagePrimaryBranchReadyConstant     = "Primary default branch ready"
	logMessageMergedConstant                 = "Merged legacy branch into primary default branch"
	logMessagePlaceholderCommittedConstant   = "Committed placeholder file to materialize repository"
	logMessagePublishedConstant              = "Published primary default branch"
	warningLegacyDefaultBranchAbsentConstant = "legacy remote advertises no default branch; created untracked branch instead"
	warningMergeSkippedConstant              = "no legacy tracking branch exists; merge skipped"
	logFieldRepositoryConstant               = "repository"
	logFieldBranchConstant                   = "branch"
	logFieldRemoteConstant                   = "remote"
	logFieldStateConstant                    = "state"
	unexpectedTransitionTemplateConstant     = "unexpected state transition from %s to %s"
)

// InvalidInputError describes migration option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", inputError.FieldName, inputError.Message)
}

// VersionControlClient is the capability surface the orchestrator needs from
// the local git tooling. gitrepo.RepositoryManager satisfies it.
type VersionControlClient interface {
	Clone(executionContext context.Context, remoteURL string, targetDirectory string) error
	AddRemote(executionContext context.Context, repositoryPath string, remoteName string, remoteURL string) error
	ListRemotes(executionContext context.Context, repositoryPath string) ([]string, error)
	Fetch(executionContext context.Context, repositoryPath string, remoteName string) error
	FetchLargeFileObjects(executionContext context.Context, repositoryPath string, remoteName string) error
	LookupRemoteDefaultBranch(executionContext context.Context, repositoryPath string, remoteName string) (gitrepo.RemoteDefaultBranch, error)
	BranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error)
	HasCommits(executionContext context.Context, repositoryPath string) (bool, error)
	CreateTrackingBranch(executionContext context.Context, repositoryPath string, branchName string, remoteReference string) error
	Checkout(executionContext context.Context, repositoryPath string, branchName string) error
	CheckoutNew(executionContext context.Context, repositoryPath string, branchName string) error
	Merge(executionContext context.Context, repositoryPath string, reference string) error
	AbortMerge(executionContext context.Context, repositoryPath string) error
	StageAll(executionContext context.Context, repositoryPath string) error
	Commit(executionContext context.Context, repositoryPath string, commitMessage string) error
	Push(executionContext context.Context, repositoryPath string, remoteName string, branchName string, setUpstream bool) error
}

// ServiceDependencies describes required collaborators for migration.
type ServiceDependencies struct {
	Logger         *zap.Logger
	VersionControl VersionControlClient
}

// MigrationOptions configures a single repository migration.
type MigrationOptions struct {
	RepositoryName      string
	OrganizationName    string
	LegacyWorkspaceName string
	WorkspaceDirectory  string
	PrimaryRemoteName   string
	LegacyRemoteName    string
	PrimaryBranchName   string
}

// MigrationOutcome captures the observable results of one migration run.
type MigrationOutcome struct {
	RepositoryName       string
	RepositoryPath       string
	State                MigrationState
	LegacyBranchName     string
	MergePerformed       bool
	PlaceholderCommitted bool
	Warnings             []string
}

// Service orchestrates the dual-remote repository migration pipeline.
type Service struct {
	logger         *zap.Logger
	versionControl VersionControlClient
}

var errVersionControlMissing = errors.New(versionControlMissingMessageConstant)

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.VersionControl == nil {
		return nil, errVersionControlMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{logger: logger, versionControl: dependencies.VersionControl}, nil
}

// Execute runs the pipeline steps strictly in MigrationState order. Steps
// whose effect is already present are skipped, so re-running a partially
// completed migration is safe.
func (service *Service) Execute(executionContext context.Context, options MigrationOptions) (MigrationOutcome, error) {
	options, validationError := service.normalizeOptions(options)
	if validationError != nil {
		return MigrationOutcome{}, PipelineError{Reason: FailureReasonInvalidOptions, State: StateInitial, Cause: validationError}
	}

	outcome := MigrationOutcome{
		RepositoryName: options.RepositoryName,
		RepositoryPath: filepath.Join(options.WorkspaceDirectory, options.RepositoryName),
		State:          StateInitial,
	}

	primaryRemoteURL, primaryURLError := gitrepo.BuildPrimaryRemoteURL(options.OrganizationName, options.RepositoryName)
	if primaryURLError != nil {
		return outcome, PipelineError{Reason: FailureReasonInvalidOptions, State: StateInitial, Cause: primaryURLError}
	}
	legacyRemoteURL, legacyURLError := gitrepo.BuildLegacyRemoteURL(options.LegacyWorkspaceName, options.RepositoryName)
	if legacyURLError != nil {
		return outcome, PipelineError{Reason: FailureReasonInvalidOptions, State: StateInitial, Cause: legacyURLError}
	}

	if cloneError := service.ensureCloned(executionContext, &outcome, primaryRemoteURL); cloneError != nil {
		return outcome, cloneError
	}
	if remoteError := service.ensureLegacyRemote(executionContext, &outcome, options, legacyRemoteURL); remoteError != nil {
		return outcome, remoteError
	}
	if fetchError := service.fetchLegacyContent(executionContext, &outcome, options); fetchError != nil {
		return outcome, fetchError
	}
	trackingEstablished, branchError := service.establishLegacyBranch(executionContext, &outcome, options)
	if branchError != nil {
		return outcome, branchError
	}
	if primaryError := service.ensurePrimaryBranch(executionContext, &outcome, options); primaryError != nil {
		return outcome, primaryError
	}
	if mergeError := service.mergeLegacyBranch(executionContext, &outcome, trackingEstablished); mergeError != nil {
		return outcome, mergeError
	}
	if materializeError := service.materializeRepository(executionContext, &outcome, options); materializeError != nil {
		return outcome, materializeError
	}
	if publishError := service.publish(executionContext, &outcome, options); publishError != nil {
		return outcome, publishError
	}

	return outcome, nil
}

func (service *Service) normalizeOptions(options MigrationOptions) (MigrationOptions, error) {
	if len(strings.TrimSpace(options.RepositoryName)) == 0 {
		return options, InvalidInputError{FieldName: repositoryNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.OrganizationName)) == 0 {
		return options, InvalidInputError{FieldName: organizationFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.LegacyWorkspaceName)) == 0 {
		return options, InvalidInputError{FieldName: legacyWorkspaceFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.WorkspaceDirectory)) == 0 {
		return options, InvalidInputError{FieldName: workspaceDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(strings.TrimSpace(options.PrimaryRemoteName)) == 0 {
		options.PrimaryRemoteName = defaultPrimaryRemoteNameConstant
	}
	if len(strings.TrimSpace(options.LegacyRemoteName)) == 0 {
		options.LegacyRemoteName = defaultLegacyRemoteNameConstant
	}
	if len(strings.TrimSpace(options.PrimaryBranchName)) == 0 {
		options.PrimaryBranchName = defaultPrimaryBranchNameConstant
	}

	return options, nil
}

func (service *Service) ensureCloned(executionContext context.Context, outcome *MigrationOutcome, primaryRemoteURL string) error {
	if _, statError := os.Stat(outcome.RepositoryPath); statError == nil {
		service.logStep(outcome, logMessageWorkingCopyReusedConstant)
		return service.advance(outcome, StateCloned)
	}

	if cloneError := service.versionControl.Clone(executionContext, primaryRemoteURL, outcome.RepositoryPath); cloneError != nil {
		return PipelineError{Reason: FailureReasonCloneFailed, State: StateCloned, Cause: cloneError}
	}
	service.logStep(outcome, logMessageClonedConstant)
	return service.advance(outcome, StateCloned)
}

func (service *Service) ensureLegacyRemote(executionContext context.Context, outcome *MigrationOutcome, options MigrationOptions, legacyRemoteURL string) error {
	remoteNames, listError := service.versionControl.ListRemotes(executionContext, outcome.RepositoryPath)
	if listError != nil {
		return PipelineError{Reason: FailureReasonRemoteSetup, State: StateSecondaryRemoteAdded, Cause: listError}
	}

	remoteAlreadyPresent := false
	for _, remoteName := range remoteNames {
		if remoteName == options.LegacyRemoteName {
			remoteAlreadyPresent = true
			break
		}
	}

	if remoteAlreadyPresent {
		service.logStep(outcome, logMessageRemoteAlreadyPresentConstant, zap.String(logFieldRemoteConstant, options.LegacyRemoteName))
		return service.advance(outcome, StateSecondaryRemoteAdded)
	}

	if addError := service.versionControl.AddRemote(executionContext, outcome.RepositoryPath, options.LegacyRemoteName, legacyRemoteURL); addError != nil {
		return PipelineError{Reason: FailureReasonRemoteSetup, State: StateSecondaryRemoteAdded, Cause: addError}
	}
	service.logStep(outcome, logMessageRemoteAddedConstant, zap.String(logFieldRemoteConstant, options.LegacyRemoteName))
	return service.advance(outcome, StateSecondaryRemoteAdded)
}

func (service *Service) fetchLegacyContent(executionContext context.Context, outcome *MigrationOutcome, options MigrationOptions) error {
	if fetchError := service.versionControl.Fetch(executionContext, outcome.RepositoryPath, options.LegacyRemoteName); fetchError != nil {
		return PipelineError{Reason: FailureReasonFetchFailed, State: StateSecondaryFetched, Cause: fetchError}
	}
	service.logStep(outcome, logMessageFetchedConstant, zap.String(logFieldRemoteConstant, options.LegacyRemoteName))
	if advanceError := service.advance(outcome, StateSecondaryFetched); advanceError != nil {
		return advanceError
	}

	if lfsError := service.versionControl.FetchLargeFileObjects(executionContext, outcome.RepositoryPath, options.LegacyRemoteName); lfsError != nil {
		return PipelineError{Reason: FailureReasonFetchFailed, State: StateLargeFileObjectsFetched, Cause: lfsError}
	}
	service.logStep(outcome, logMessageLFSFetchedConstant, zap.String(logFieldRemoteConstant, options.LegacyRemoteName))
	return service.advance(outcome, StateLargeFileObjectsFetched)
}

func (service *Service) establishLegacyBranch(executionContext context.Context, outcome *MigrationOutcome, options MigrationOptions) (bool, error) {
	legacyDefault, lookupError := service.versionControl.LookupRemoteDefaultBranch(executionContext, outcome.RepositoryPath, options.LegacyRemoteName)
	if lookupError != nil {
		return false, PipelineError{Reason: FailureReasonBranchSetup, State: StateLegacyTrackingBranchEstablished, Cause: lookupError}
	}

	if !legacyDefault.Found {
		outcome.LegacyBranchName = legacyFallbackBranchNameConstant
		service.recordWarning(outcome, warningLegacyDefaultBranchAbsentConstant)

		branchPresent, existsError := service.versionControl.BranchExists(executionContext, outcome.RepositoryPath, outcome.LegacyBranchName)
		if existsError != nil {
			return false, PipelineError{Reason: FailureReasonBranchSetup, State: StateLegacyTrackingBranchEstablished, Cause: existsError}
		}
		if !branchPresent {
			if createError := service.versionControl.CheckoutNew(executionContext, outcome.RepositoryPath, outcome.LegacyBranchName); createError != nil {
				return false, PipelineError{Reason: FailureReasonBranchSetup, State: StateLegacyTrackingBranchEstablished, Cause: createError}
			}
		}
		return false, service.advance(outcome, StateLegacyTrackingBranchEstablished)
	}

	outcome.LegacyBranchName = legacyDefault.BranchName
	if outcome.LegacyBranchName == options.PrimaryBranchName {
		outcome.LegacyBranchName = legacyBranchCollisionPrefixConstant + legacyDefault.BranchName
	}

	branchPresent, existsError := service.versionControl.BranchExists(executionContext, outcome.RepositoryPath, outcome.LegacyBranchName)
	if existsError != nil {
		return false, PipelineError{Reason: FailureReasonBranchSetup, State: StateLegacyTrackingBranchEstablished, Cause: existsError}
	}
	if branchPresent {
		service.logStep(outcome, logMessageBranchAlreadyPresentConstant, zap.String(logFieldBranchConstant, outcome.LegacyBranchName))
		return true, service.advance(outcome, StateLegacyTrackingBranchEstablished)
	}

	remoteReference := fmt.Sprintf(remoteReferenceTemplateConstant, options.LegacyRemoteName, legacyDefault.BranchName)
	if trackError := service.versionControl.CreateTrackingBranch(executionContext, outcome.RepositoryPath, outcome.LegacyBranchName, remoteReference); trackError != nil {
		return false, PipelineError{Reason: FailureReasonBranchSetup, State: StateLegacyTrackingBranchEstablished, Cause: trackError}
	}
	service.logStep(outcome, logMessageTrackingEstablishedConstant, zap.String(logFieldBranchConstant, outcome.LegacyBranchName))
	return true, service.advance(outcome, StateLegacyTrackingBranchEstablished)
}

func (service *Service) ensurePrimaryBranch(executionContext context.Context, outcome *MigrationOutcome, options MigrationOptions) error {
	branchPresent, existsError := service.versionControl.BranchExists(executionContext, outcome.RepositoryPath, options.PrimaryBranchName)
	if existsError != nil {
		return PipelineError{Reason: FailureReasonBranchSetup, State: StatePrimaryDefaultBranchEnsured, Cause: existsError}
	}

	if branchPresent {
		if checkoutError := service.versionControl.Checkout(executionContext, outcome.RepositoryPath, options.PrimaryBranchName); checkoutError != nil {
			return PipelineError{Reason: FailureReasonBranchSetup, State: StatePrimaryDefaultBranchEnsured, Cause: checkoutError}
		}
	} else {
		if createError := service.versionControl.CheckoutNew(executionContext, outcome.RepositoryPath, options.PrimaryBranchName); createError != nil {
			return PipelineError{Reason: FailureReasonBranchSetup, State: StatePrimaryDefaultBranchEnsured, Cause: createError}
		}
	}

	service.logStep(outcome, logMessagePrimaryBranchReadyConstant, zap.String(logFieldBranchConstant, options.PrimaryBranchName))
	return service.advance(outcome, StatePrimaryDefaultBranchEnsured)
}

func (service *Service) mergeLegacyBranch(executionContext context.Context, outcome *MigrationOutcome, trackingEstablished bool) error {
	if !trackingEstablished {
		service.recordWarning(outcome, warningMergeSkippedConstant)
		return service.advance(outcome, StateMerged)
	}

	if mergeError := service.versionControl.Merge(executionContext, outcome.RepositoryPath, outcome.LegacyBranchName); mergeError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(mergeError, &commandFailure) {
			if abortError := service.versionControl.AbortMerge(executionContext, outcome.RepositoryPath); abortError != nil {
				service.logger.Warn("Merge abort failed", zap.String(logFieldRepositoryConstant, outcome.RepositoryName), zap.Error(abortError))
			}
			return PipelineError{Reason: FailureReasonMergeConflict, State: StateMerged, Cause: mergeError}
		}
		return PipelineError{Reason: FailureReasonMergeConflict, State: StateMerged, Cause: mergeError}
	}

	outcome.MergePerformed = true
	service.logStep(outcome, logMessageMergedConstant, zap.String(logFieldBranchConstant, outcome.LegacyBranchName))
	return service.advance(outcome, StateMerged)
}

func (service *Service) materializeRepository(executionContext context.Context, outcome *MigrationOutcome, options MigrationOptions) error {
	repositoryHasCommits, commitsError := service.versionControl.HasCommits(executionContext, outcome.RepositoryPath)
	if commitsError != nil {
		return PipelineError{Reason: FailureReasonMaterialize, State: StateMerged, Cause: commitsError}
	}
	if repositoryHasCommits {
		return nil
	}

	placeholderPath := filepath.Join(outcome.RepositoryPath, placeholderFileNameConstant)
	placeholderContent := fmt.Sprintf(placeholderContentTemplateConstant, options.RepositoryName)
	if writeError := os.WriteFile(placeholderPath, []byte(placeholderContent), placeholderFilePermissionsConstant); writeError != nil {
		return PipelineError{Reason: FailureReasonMaterialize, State: StateMerged, Cause: fmt.Errorf(placeholderWriteErrorTemplateConstant, writeError)}
	}

	if stageError := service.versionControl.StageAll(executionContext, outcome.RepositoryPath); stageError != nil {
		return PipelineError{Reason: FailureReasonMaterialize, State: StateMerged, Cause: stageError}
	}
	if commitError := service.versionControl.Commit(executionContext, outcome.RepositoryPath, initialCommitMessageConstant); commitError != nil {
		return PipelineError{Reason: FailureReasonMaterialize, State: StateMerged, Cause: commitError}
	}

	outcome.PlaceholderCommitted = true
	service.logger.Info(logMessagePlaceholderCommittedConstant, zap.String(logFieldRepositoryConstant, outcome.RepositoryName))
	return nil
}

func (service *Service) publish(executionContext context.Context, outcome *MigrationOutcome, options MigrationOptions) error {
	if pushError := service.versionControl.Push(executionContext, outcome.RepositoryPath, options.PrimaryRemoteName, options.PrimaryBranchName, true); pushError != nil {
		return PipelineError{Reason: FailureReasonPublishFailed, State: StatePublished, Cause: pushError}
	}
	service.logStep(outcome, logMessagePublishedConstant, zap.String(logFieldBranchConstant, options.PrimaryBranchName))
	return service.advance(outcome, StatePublished)
}

func (service *Service) advance(outcome *MigrationOutcome, completedState MigrationState) error {
	expectedState := outcome.State.Next()
	if completedState != expectedState {
		return fmt.Errorf(unexpectedTransitionTemplateConstant, outcome.State, completedState)
	}
	outcome.State = completedState
	return nil
}

func (service *Service) logStep(outcome *MigrationOutcome, message string, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String(logFieldRepositoryConstant, outcome.RepositoryName),
		zap.String(logFieldStateConstant, outcome.State.Next().String()),
	}, fields...)
	service.logger.Info(message, allFields...)
}

func (service *Service) recordWarning(outcome *MigrationOutcome, warning string) {
	outcome.Warnings = append(outcome.Warnings, warning)
	service.logger.Warn(warning, zap.String(logFieldRepositoryConstant, outcome.RepositoryName))
}

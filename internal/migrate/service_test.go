package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gm-pacific/nexahub/internal/execshell"
	"github.com/gm-pacific/nexahub/internal/gitrepo"
	"github.com/gm-pacific/nexahub/internal/migrate"
)

const (
	migratedRepositoryNameConstant = "payments"
	organizationNameConstant       = "gm-pacific"
	legacyWorkspaceNameConstant    = "gmpacific"
)

// fakeVersionControl simulates git behavior in memory while recording every
// mutating call so tests can assert which operations actually ran.
type fakeVersionControl struct {
	recordedCalls     []string
	cloneRemoteURLs   []string
	remoteNames       []string
	localBranches     map[string]bool
	legacyDefault     gitrepo.RemoteDefaultBranch
	commitsPresent    bool
	mergeFailure      error
	createDirectories bool
}

func newFakeVersionControl() *fakeVersionControl {
	return &fakeVersionControl{localBranches: map[string]bool{}, createDirectories: true}
}

func (fake *fakeVersionControl) record(callName string) {
	fake.recordedCalls = append(fake.recordedCalls, callName)
}

func (fake *fakeVersionControl) callCount(callName string) int {
	count := 0
	for _, recordedCall := range fake.recordedCalls {
		if recordedCall == callName {
			count++
		}
	}
	return count
}

func (fake *fakeVersionControl) Clone(_ context.Context, remoteURL string, targetDirectory string) error {
	fake.record("Clone")
	fake.cloneRemoteURLs = append(fake.cloneRemoteURLs, remoteURL)
	if fake.createDirectories {
		return os.MkdirAll(targetDirectory, 0o755)
	}
	return nil
}

func (fake *fakeVersionControl) AddRemote(_ context.Context, _ string, remoteName string, _ string) error {
	fake.record("AddRemote")
	fake.remoteNames = append(fake.remoteNames, remoteName)
	return nil
}

func (fake *fakeVersionControl) ListRemotes(_ context.Context, _ string) ([]string, error) {
	return append([]string{"origin"}, fake.remoteNames...), nil
}

func (fake *fakeVersionControl) Fetch(_ context.Context, _ string, _ string) error {
	fake.record("Fetch")
	return nil
}

func (fake *fakeVersionControl) FetchLargeFileObjects(_ context.Context, _ string, _ string) error {
	fake.record("FetchLargeFileObjects")
	return nil
}

func (fake *fakeVersionControl) LookupRemoteDefaultBranch(_ context.Context, _ string, _ string) (gitrepo.RemoteDefaultBranch, error) {
	return fake.legacyDefault, nil
}

func (fake *fakeVersionControl) BranchExists(_ context.Context, _ string, branchName string) (bool, error) {
	return fake.localBranches[branchName], nil
}

func (fake *fakeVersionControl) HasCommits(_ context.Context, _ string) (bool, error) {
	return fake.commitsPresent, nil
}

func (fake *fakeVersionControl) CreateTrackingBranch(_ context.Context, _ string, branchName string, _ string) error {
	fake.record("CreateTrackingBranch")
	fake.localBranches[branchName] = true
	return nil
}

func (fake *fakeVersionControl) Checkout(_ context.Context, _ string, _ string) error {
	fake.record("Checkout")
	return nil
}

func (fake *fakeVersionControl) CheckoutNew(_ context.Context, _ string, branchName string) error {
	fake.record("CheckoutNew")
	fake.localBranches[branchName] = true
	return nil
}

func (fake *fakeVersionControl) Merge(_ context.Context, _ string, _ string) error {
	fake.record("Merge")
	return fake.mergeFailure
}

func (fake *fakeVersionControl) AbortMerge(_ context.Context, _ string) error {
	fake.record("AbortMerge")
	return nil
}

func (fake *fakeVersionControl) StageAll(_ context.Context, _ string) error {
	fake.record("StageAll")
	return nil
}

func (fake *fakeVersionControl) Commit(_ context.Context, _ string, _ string) error {
	fake.record("Commit")
	fake.commitsPresent = true
	return nil
}

func (fake *fakeVersionControl) Push(_ context.Context, _ string, _ string, _ string, _ bool) error {
	fake.record("Push")
	return nil
}

func buildMigrationOptions(workspaceDirectory string) migrate.MigrationOptions {
	return migrate.MigrationOptions{
		RepositoryName:      migratedRepositoryNameConstant,
		OrganizationName:    organizationNameConstant,
		LegacyWorkspaceName: legacyWorkspaceNameConstant,
		WorkspaceDirectory:  workspaceDirectory,
	}
}

func buildService(testInstance *testing.T, versionControl migrate.VersionControlClient) *migrate.Service {
	testInstance.Helper()
	service, creationError := migrate.NewService(migrate.ServiceDependencies{Logger: zap.NewNop(), VersionControl: versionControl})
	require.NoError(testInstance, creationError)
	return service
}

func TestNewServiceRequiresVersionControl(testInstance *testing.T) {
	service, creationError := migrate.NewService(migrate.ServiceDependencies{Logger: zap.NewNop()})
	require.Nil(testInstance, service)
	require.Error(testInstance, creationError)
}

func TestExecuteRunsFullPipelineWithLegacyHistory(testInstance *testing.T) {
	fake := newFakeVersionControl()
	fake.legacyDefault = gitrepo.RemoteDefaultBranch{Found: true, BranchName: "master"}
	fake.commitsPresent = true
	service := buildService(testInstance, fake)

	outcome, executionError := service.Execute(context.Background(), buildMigrationOptions(testInstance.TempDir()))

	require.NoError(testInstance, executionError)
	require.Equal(testInstance, migrate.StatePublished, outcome.State)
	require.Equal(testInstance, "master", outcome.LegacyBranchName)
	require.True(testInstance, outcome.MergePerformed)
	require.False(testInstance, outcome.PlaceholderCommitted)
	require.Empty(testInstance, outcome.Warnings)
	require.Equal(testInstance, 1, fake.callCount("Clone"))
	require.Equal(testInstance, 1, fake.callCount("CreateTrackingBranch"))
	require.Equal(testInstance, 1, fake.callCount("Merge"))
	require.Equal(testInstance, 1, fake.callCount("Push"))
	require.Equal(testInstance, 0, fake.callCount("Commit"))
}

func TestExecuteIsIdempotentAcrossRepeatedRuns(testInstance *testing.T) {
	fake := newFakeVersionControl()
	fake.legacyDefault = gitrepo.RemoteDefaultBranch{Found: true, BranchName: "master"}
	fake.commitsPresent = true
	service := buildService(testInstance, fake)
	options := buildMigrationOptions(testInstance.TempDir())

	firstOutcome, firstError := service.Execute(context.Background(), options)
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, migrate.StatePublished, firstOutcome.State)

	secondOutcome, secondError := service.Execute(context.Background(), options)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, migrate.StatePublished, secondOutcome.State)

	require.Equal(testInstance, 1, fake.callCount("Clone"))
	require.Equal(testInstance, 1, fake.callCount("AddRemote"))
	require.Equal(testInstance, 1, fake.callCount("CreateTrackingBranch"))
	require.Equal(testInstance, 0, fake.callCount("Commit"))
}

func TestExecuteMaterializesEmptyLegacyRepository(testInstance *testing.T) {
	fake := newFakeVersionControl()
	fake.legacyDefault = gitrepo.RemoteDefaultBranch{}
	service := buildService(testInstance, fake)
	workspaceDirectory := testInstance.TempDir()

	outcome, executionError := service.Execute(context.Background(), buildMigrationOptions(workspaceDirectory))

	require.NoError(testInstance, executionError)
	require.Equal(testInstance, migrate.StatePublished, outcome.State)
	require.False(testInstance, outcome.MergePerformed)
	require.True(testInstance, outcome.PlaceholderCommitted)
	require.Len(testInstance, outcome.Warnings, 2)
	require.Equal(testInstance, 1, fake.callCount("Commit"))
	require.Equal(testInstance, 0, fake.callCount("Merge"))

	placeholderContent, readError := os.ReadFile(filepath.Join(workspaceDirectory, migratedRepositoryNameConstant, "README.md"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "# payments\n", string(placeholderContent))
}

func TestExecuteStopsOnMergeConflictWithoutPublishing(testInstance *testing.T) {
	fake := newFakeVersionControl()
	fake.legacyDefault = gitrepo.RemoteDefaultBranch{Found: true, BranchName: "master"}
	fake.commitsPresent = true
	fake.mergeFailure = execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "CONFLICT (content): Merge conflict in service.go"},
	}
	service := buildService(testInstance, fake)

	outcome, executionError := service.Execute(context.Background(), buildMigrationOptions(testInstance.TempDir()))

	var pipelineFailure migrate.PipelineError
	require.ErrorAs(testInstance, executionError, &pipelineFailure)
	require.Equal(testInstance, migrate.FailureReasonMergeConflict, pipelineFailure.Reason)
	require.Equal(testInstance, migrate.StatePrimaryDefaultBranchEnsured, outcome.State)
	require.Equal(testInstance, 1, fake.callCount("AbortMerge"))
	require.Equal(testInstance, 0, fake.callCount("Push"))
}

func TestExecuteRenamesLegacyBranchCollidingWithPrimaryBranch(testInstance *testing.T) {
	fake := newFakeVersionControl()
	fake.legacyDefault = gitrepo.RemoteDefaultBranch{Found: true, BranchName: "main"}
	fake.commitsPresent = true
	service := buildService(testInstance, fake)

	outcome, executionError := service.Execute(context.Background(), buildMigrationOptions(testInstance.TempDir()))

	require.NoError(testInstance, executionError)
	require.Equal(testInstance, "legacy-main", outcome.LegacyBranchName)
}

func TestExecuteValidatesOptions(testInstance *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(options *migrate.MigrationOptions)
		message string
	}{
		{
			name:    "missing_repository_name",
			mutate:  func(options *migrate.MigrationOptions) { options.RepositoryName = " " },
			message: "repository_name",
		},
		{
			name:    "missing_organization",
			mutate:  func(options *migrate.MigrationOptions) { options.OrganizationName = "" },
			message: "organization",
		},
		{
			name:    "missing_legacy_workspace",
			mutate:  func(options *migrate.MigrationOptions) { options.LegacyWorkspaceName = "" },
			message: "legacy_workspace",
		},
		{
			name:    "missing_workspace_directory",
			mutate:  func(options *migrate.MigrationOptions) { options.WorkspaceDirectory = "" },
			message: "workspace_directory",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			fake := newFakeVersionControl()
			service := buildService(subtestInstance, fake)
			options := buildMigrationOptions(subtestInstance.TempDir())
			testCase.mutate(&options)

			_, executionError := service.Execute(context.Background(), options)

			var pipelineFailure migrate.PipelineError
			require.ErrorAs(subtestInstance, executionError, &pipelineFailure)
			require.Equal(subtestInstance, migrate.FailureReasonInvalidOptions, pipelineFailure.Reason)
			require.Contains(subtestInstance, executionError.Error(), testCase.message)
			require.Empty(subtestInstance, fake.recordedCalls)
		})
	}
}

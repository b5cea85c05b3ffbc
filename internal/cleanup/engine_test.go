package cleanup_test

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gm-pacific/nexahub/internal/cleanup"
	"github.com/gm-pacific/nexahub/internal/githubcli"
)

const (
	testRepositoryFullNameConstant  = "gm-pacific/payments"
	secondRepositoryFullNameConstant = "gm-pacific/ledger"
)

type fakeGitHubOperations struct {
	repositories        []githubcli.Repository
	repositoryListError error
	branchesByRepo      map[string][]githubcli.Branch
	branchListErrors    map[string]error
	timestampsBySHA     map[string]time.Time
	deletionErrors      map[string][]error
	listRepositoryCalls int
	listBranchCalls     []string
	timestampCalls      []string
	deletionCalls       []string
}

func newFakeGitHubOperations() *fakeGitHubOperations {
	return &fakeGitHubOperations{
		branchesByRepo:   map[string][]githubcli.Branch{},
		branchListErrors: map[string]error{},
		timestampsBySHA:  map[string]time.Time{},
		deletionErrors:   map[string][]error{},
	}
}

func (operations *fakeGitHubOperations) ListRepositories(_ context.Context) iter.Seq2[githubcli.Repository, error] {
	return func(yield func(githubcli.Repository, error) bool) {
		operations.listRepositoryCalls++
		if operations.repositoryListError != nil {
			yield(githubcli.Repository{}, operations.repositoryListError)
			return
		}
		for _, repository := range operations.repositories {
			if !yield(repository, nil) {
				return
			}
		}
	}
}

func (operations *fakeGitHubOperations) ListBranches(_ context.Context, repository string) ([]githubcli.Branch, error) {
	operations.listBranchCalls = append(operations.listBranchCalls, repository)
	if listError, present := operations.branchListErrors[repository]; present {
		return nil, listError
	}
	return operations.branchesByRepo[repository], nil
}

func (operations *fakeGitHubOperations) GetBranchCommitTimestamp(_ context.Context, repository string, commitSHA string) (time.Time, error) {
	operations.timestampCalls = append(operations.timestampCalls, repository+"@"+commitSHA)
	return operations.timestampsBySHA[commitSHA], nil
}

func (operations *fakeGitHubOperations) DeleteBranch(_ context.Context, repository string, branch string) error {
	deletionKey := repository + "#" + branch
	operations.deletionCalls = append(operations.deletionCalls, deletionKey)
	pendingErrors := operations.deletionErrors[deletionKey]
	if len(pendingErrors) == 0 {
		return nil
	}
	operations.deletionErrors[deletionKey] = pendingErrors[1:]
	return pendingErrors[0]
}

type recordingSleeper struct {
	sleepDurations []time.Duration
}

func (sleeper *recordingSleeper) sleep(duration time.Duration) {
	sleeper.sleepDurations = append(sleeper.sleepDurations, duration)
}

func buildTestEngine(testInstance *testing.T, operations cleanup.GitHubOperations, now time.Time, sleeper *recordingSleeper) *cleanup.Engine {
	testInstance.Helper()
	engine, creationError := cleanup.NewEngine(cleanup.EngineDependencies{
		Logger:         zap.NewNop(),
		GitHub:         operations,
		Clock:          func() time.Time { return now },
		Sleep:          sleeper.sleep,
		PacingInterval: time.Millisecond,
	})
	require.NoError(testInstance, creationError)
	return engine
}

func TestNewEngineValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  cleanup.EngineDependencies
		expectedError error
	}{
		{
			name:          "missing_logger",
			dependencies:  cleanup.EngineDependencies{GitHub: newFakeGitHubOperations()},
			expectedError: cleanup.ErrEngineLoggerNotConfigured,
		},
		{
			name:          "missing_github_client",
			dependencies:  cleanup.EngineDependencies{Logger: zap.NewNop()},
			expectedError: cleanup.ErrEngineClientNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			engine, creationError := cleanup.NewEngine(testCase.dependencies)
			require.Nil(subtestInstance, engine)
			require.ErrorIs(subtestInstance, creationError, testCase.expectedError)
		})
	}
}

func TestEvaluateBranchStalenessBoundary(testInstance *testing.T) {
	evaluationTime := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name            string
		lastCommit      time.Time
		thresholdDays   int
		dryRun          bool
		expectedOutcome cleanup.CleanupOutcome
		expectedAgeDays int
		expectedReason  string
	}{
		{
			name:            "age_equal_to_threshold_is_not_stale",
			lastCommit:      evaluationTime.Add(-4*24*time.Hour - 6*time.Hour),
			thresholdDays:   4,
			dryRun:          true,
			expectedOutcome: cleanup.OutcomeSkipped,
			expectedAgeDays: 4,
			expectedReason:  "not yet stale",
		},
		{
			name:            "age_one_day_past_threshold_is_stale",
			lastCommit:      evaluationTime.Add(-5*24*time.Hour - 6*time.Hour),
			thresholdDays:   4,
			dryRun:          true,
			expectedOutcome: cleanup.OutcomeWouldDelete,
			expectedAgeDays: 5,
		},
		{
			name:            "partial_days_floor_below_threshold",
			lastCommit:      evaluationTime.Add(-4*24*time.Hour - 23*time.Hour),
			thresholdDays:   4,
			dryRun:          true,
			expectedOutcome: cleanup.OutcomeSkipped,
			expectedAgeDays: 4,
			expectedReason:  "not yet stale",
		},
		{
			name:            "fresh_branch_skipped",
			lastCommit:      evaluationTime.Add(-2 * time.Hour),
			thresholdDays:   4,
			dryRun:          false,
			expectedOutcome: cleanup.OutcomeSkipped,
			expectedAgeDays: 0,
			expectedReason:  "not yet stale",
		},
		{
			name:            "stale_branch_deleted_when_executing",
			lastCommit:      evaluationTime.Add(-10 * 24 * time.Hour),
			thresholdDays:   4,
			dryRun:          false,
			expectedOutcome: cleanup.OutcomeDeleted,
			expectedAgeDays: 10,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			operations := newFakeGitHubOperations()
			sleeper := &recordingSleeper{}
			engine := buildTestEngine(subtestInstance, operations, evaluationTime, sleeper)

			record := cleanup.BranchRecord{
				Repository:          testRepositoryFullNameConstant,
				Name:                "devin/1755600000-fix-totals",
				LastCommitTimestamp: testCase.lastCommit,
			}
			policy := cleanup.CleanupPolicy{ThresholdDays: testCase.thresholdDays, DryRun: testCase.dryRun}

			result := engine.EvaluateBranch(context.Background(), record, policy)

			require.Equal(subtestInstance, testCase.expectedOutcome, result.Outcome)
			require.Equal(subtestInstance, testCase.expectedAgeDays, result.AgeDays)
			require.Equal(subtestInstance, testCase.expectedReason, result.Reason)
		})
	}
}

func TestEvaluateBranchDryRunNeverDeletes(testInstance *testing.T) {
	evaluationTime := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	operations := newFakeGitHubOperations()
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, evaluationTime, sleeper)

	record := cleanup.BranchRecord{
		Repository:          testRepositoryFullNameConstant,
		Name:                "devin/1755000000-retry-webhooks",
		LastCommitTimestamp: evaluationTime.Add(-30 * 24 * time.Hour),
	}

	result := engine.EvaluateBranch(context.Background(), record, cleanup.CleanupPolicy{DryRun: true})

	require.Equal(testInstance, cleanup.OutcomeWouldDelete, result.Outcome)
	require.Empty(testInstance, operations.deletionCalls)
}

func TestEvaluateBranchAlreadyAbsent(testInstance *testing.T) {
	evaluationTime := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	operations := newFakeGitHubOperations()
	deletionKey := testRepositoryFullNameConstant + "#devin/1754000000-drop-index"
	operations.deletionErrors[deletionKey] = []error{
		githubcli.BranchNotFoundError{Repository: testRepositoryFullNameConstant, Branch: "devin/1754000000-drop-index"},
	}
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, evaluationTime, sleeper)

	record := cleanup.BranchRecord{
		Repository:          testRepositoryFullNameConstant,
		Name:                "devin/1754000000-drop-index",
		LastCommitTimestamp: evaluationTime.Add(-20 * 24 * time.Hour),
	}

	result := engine.EvaluateBranch(context.Background(), record, cleanup.CleanupPolicy{DryRun: false})

	require.Equal(testInstance, cleanup.OutcomeSkipped, result.Outcome)
	require.Equal(testInstance, "already absent", result.Reason)
	require.Len(testInstance, operations.deletionCalls, 1)
}

func TestEvaluateBranchRetriesRateLimitedDeletions(testInstance *testing.T) {
	evaluationTime := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	operations := newFakeGitHubOperations()
	deletionKey := testRepositoryFullNameConstant + "#devin/1753000000-cache-warmup"
	operations.deletionErrors[deletionKey] = []error{
		githubcli.RateLimitedError{Operation: "delete branch", Cause: errors.New("HTTP 429")},
		githubcli.RateLimitedError{Operation: "delete branch", Cause: errors.New("HTTP 429")},
	}
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, evaluationTime, sleeper)

	record := cleanup.BranchRecord{
		Repository:          testRepositoryFullNameConstant,
		Name:                "devin/1753000000-cache-warmup",
		LastCommitTimestamp: evaluationTime.Add(-15 * 24 * time.Hour),
	}

	result := engine.EvaluateBranch(context.Background(), record, cleanup.CleanupPolicy{DryRun: false})

	require.Equal(testInstance, cleanup.OutcomeDeleted, result.Outcome)
	require.Len(testInstance, operations.deletionCalls, 3)
}

func TestEvaluateBranchExhaustedRetriesFail(testInstance *testing.T) {
	evaluationTime := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	operations := newFakeGitHubOperations()
	deletionKey := testRepositoryFullNameConstant + "#devin/1752000000-split-queue"
	rateLimited := githubcli.RateLimitedError{Operation: "delete branch", Cause: errors.New("HTTP 429")}
	operations.deletionErrors[deletionKey] = []error{rateLimited, rateLimited, rateLimited, rateLimited}
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, evaluationTime, sleeper)

	record := cleanup.BranchRecord{
		Repository:          testRepositoryFullNameConstant,
		Name:                "devin/1752000000-split-queue",
		LastCommitTimestamp: evaluationTime.Add(-15 * 24 * time.Hour),
	}

	result := engine.EvaluateBranch(context.Background(), record, cleanup.CleanupPolicy{DryRun: false})

	require.Equal(testInstance, cleanup.OutcomeFailed, result.Outcome)
	require.Len(testInstance, operations.deletionCalls, 4)
}

func TestListRepositoriesResolvesAutomationBranches(testInstance *testing.T) {
	evaluationTime := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	operations := newFakeGitHubOperations()
	operations.repositories = []githubcli.Repository{
		{FullName: testRepositoryFullNameConstant, DefaultBranch: "main"},
		{FullName: secondRepositoryFullNameConstant, DefaultBranch: "main"},
	}
	operations.branchesByRepo[testRepositoryFullNameConstant] = []githubcli.Branch{
		{Name: "main", CommitSHA: "aaa111"},
		{Name: "devin/1755000000-fix-totals", CommitSHA: "bbb222"},
	}
	operations.branchesByRepo[secondRepositoryFullNameConstant] = []githubcli.Branch{
		{Name: "main", CommitSHA: "ccc333"},
	}
	operations.timestampsBySHA["bbb222"] = evaluationTime.Add(-6 * 24 * time.Hour)
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, evaluationTime, sleeper)

	collectedEntries := []cleanup.RepositoryCatalogEntry{}
	for entry, catalogError := range engine.ListRepositories(context.Background(), cleanup.CleanupPolicy{}) {
		require.NoError(testInstance, catalogError)
		collectedEntries = append(collectedEntries, entry)
	}

	require.Len(testInstance, collectedEntries, 2)
	require.Equal(testInstance, testRepositoryFullNameConstant, collectedEntries[0].FullName)
	require.Len(testInstance, collectedEntries[0].Branches, 1)
	require.Equal(testInstance, "devin/1755000000-fix-totals", collectedEntries[0].Branches[0].Name)
	require.Equal(testInstance, evaluationTime.Add(-6*24*time.Hour), collectedEntries[0].Branches[0].LastCommitTimestamp)
	require.Empty(testInstance, collectedEntries[1].Branches)
	require.Equal(testInstance, []string{testRepositoryFullNameConstant + "@bbb222"}, operations.timestampCalls)
	require.NotEmpty(testInstance, sleeper.sleepDurations)
}

func TestRunIsolatesRepositoryFailures(testInstance *testing.T) {
	evaluationTime := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	operations := newFakeGitHubOperations()
	operations.repositories = []githubcli.Repository{
		{FullName: testRepositoryFullNameConstant, DefaultBranch: "main"},
		{FullName: secondRepositoryFullNameConstant, DefaultBranch: "main"},
	}
	operations.branchListErrors[testRepositoryFullNameConstant] = errors.New("HTTP 500")
	operations.branchesByRepo[secondRepositoryFullNameConstant] = []githubcli.Branch{
		{Name: "devin/1751000000-prune-logs", CommitSHA: "ddd444"},
	}
	operations.timestampsBySHA["ddd444"] = evaluationTime.Add(-9 * 24 * time.Hour)
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, evaluationTime, sleeper)

	report, runError := engine.Run(context.Background(), cleanup.CleanupPolicy{DryRun: true})

	require.NoError(testInstance, runError)
	require.Equal(testInstance, 1, report.Counts[cleanup.OutcomeFailed])
	require.Equal(testInstance, 1, report.Counts[cleanup.OutcomeWouldDelete])
	require.Len(testInstance, report.Failures, 1)
	require.Equal(testInstance, cleanup.PhaseIdle, engine.Phase())
}

func TestRunFailsWhenCatalogListingFails(testInstance *testing.T) {
	operations := newFakeGitHubOperations()
	operations.repositoryListError = githubcli.OperationError{Operation: "list repositories", Cause: errors.New("HTTP 500")}
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, time.Now(), sleeper)

	report, runError := engine.Run(context.Background(), cleanup.CleanupPolicy{DryRun: true})

	require.Error(testInstance, runError)
	var listingFailure cleanup.CatalogListingError
	require.ErrorAs(testInstance, runError, &listingFailure)
	require.Empty(testInstance, report.Results)
}

func TestRunFromSnapshotNeverListsLiveRepositories(testInstance *testing.T) {
	evaluationTime := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	snapshotPath := testInstance.TempDir() + "/catalog.json"
	snapshotEntries := []cleanup.RepositoryCatalogEntry{
		{
			FullName:      testRepositoryFullNameConstant,
			DefaultBranch: "main",
			Branches: []cleanup.BranchSnapshot{
				{Name: "devin/1750000000-stale-work", LastCommitTimestamp: evaluationTime.Add(-12 * 24 * time.Hour)},
				{Name: "devin/1756000000-fresh-work", LastCommitTimestamp: evaluationTime.Add(-1 * 24 * time.Hour)},
			},
		},
	}
	require.NoError(testInstance, cleanup.SaveCatalogSnapshot(snapshotPath, snapshotEntries))

	operations := newFakeGitHubOperations()
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, evaluationTime, sleeper)

	report, runError := engine.Run(context.Background(), cleanup.CleanupPolicy{DryRun: true, SnapshotPath: snapshotPath})

	require.NoError(testInstance, runError)
	require.Zero(testInstance, operations.listRepositoryCalls)
	require.Empty(testInstance, operations.listBranchCalls)
	require.Equal(testInstance, 1, report.Counts[cleanup.OutcomeWouldDelete])
	require.Equal(testInstance, 1, report.Counts[cleanup.OutcomeSkipped])
}

func TestRunPacesConsecutiveEvaluations(testInstance *testing.T) {
	evaluationTime := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	snapshotPath := testInstance.TempDir() + "/catalog.json"
	snapshotEntries := []cleanup.RepositoryCatalogEntry{
		{
			FullName:      testRepositoryFullNameConstant,
			DefaultBranch: "main",
			Branches: []cleanup.BranchSnapshot{
				{Name: "devin/1750000001-first", LastCommitTimestamp: evaluationTime.Add(-12 * 24 * time.Hour)},
				{Name: "devin/1750000002-second", LastCommitTimestamp: evaluationTime.Add(-12 * 24 * time.Hour)},
				{Name: "devin/1750000003-third", LastCommitTimestamp: evaluationTime.Add(-12 * 24 * time.Hour)},
			},
		},
	}
	require.NoError(testInstance, cleanup.SaveCatalogSnapshot(snapshotPath, snapshotEntries))

	operations := newFakeGitHubOperations()
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, evaluationTime, sleeper)

	_, runError := engine.Run(context.Background(), cleanup.CleanupPolicy{DryRun: true, SnapshotPath: snapshotPath})

	require.NoError(testInstance, runError)
	require.Len(testInstance, sleeper.sleepDurations, 2)
}

func TestFindAutomationBranchesFiltersByPrefix(testInstance *testing.T) {
	catalogEntries := []cleanup.RepositoryCatalogEntry{
		{
			FullName: testRepositoryFullNameConstant,
			Branches: []cleanup.BranchSnapshot{
				{Name: "devin/1749000000-keep"},
				{Name: "feature/manual-work"},
				{Name: "main"},
			},
		},
	}
	operations := newFakeGitHubOperations()
	sleeper := &recordingSleeper{}
	engine := buildTestEngine(testInstance, operations, time.Now(), sleeper)

	collectedRecords := []cleanup.BranchRecord{}
	for record, recordError := range engine.FindAutomationBranches(cleanup.CatalogFromEntries(catalogEntries), cleanup.CleanupPolicy{}) {
		require.NoError(testInstance, recordError)
		collectedRecords = append(collectedRecords, record)
	}

	require.Len(testInstance, collectedRecords, 1)
	require.Equal(testInstance, "devin/1749000000-keep", collectedRecords[0].Name)
	require.Equal(testInstance, testRepositoryFullNameConstant, collectedRecords[0].Repository)
}

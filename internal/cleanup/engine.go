package cleanup

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/gm-pacific/nexahub/internal/githubcli"
)

const (
	engineLoggerNotConfiguredMessageConstant = "logger is not configured"
	engineClientNotConfiguredMessageConstant = "github client is not configured"

	defaultPacingInterval = time.Second
	deletionRetryAttempts = 3
)

// CatalogListingError marks a failure to enumerate the repository catalog
// itself, as opposed to a failure scoped to a single repository.
type CatalogListingError struct {
	Cause error
}

// Error describes the listing failure.
func (listingError CatalogListingError) Error() string {
	return fmt.Sprintf("catalog listing: %s", listingError.Cause)
}

// Unwrap exposes the underlying cause.
func (listingError CatalogListingError) Unwrap() error {
	return listingError.Cause
}

// Engine sentinel errors.
var (
	ErrEngineLoggerNotConfigured = errors.New(engineLoggerNotConfiguredMessageConstant)
	ErrEngineClientNotConfigured = errors.New(engineClientNotConfiguredMessageConstant)
)

// RunPhase tracks which stage of a cleanup run the engine is in.
type RunPhase string

// Run phases, in execution order.
const (
	PhaseIdle       RunPhase = "Idle"
	PhaseListing    RunPhase = "Listing"
	PhaseFiltering  RunPhase = "Filtering"
	PhaseEvaluating RunPhase = "Evaluating"
	PhaseReporting  RunPhase = "Reporting"
)

// GitHubOperations is the GitHub capability surface the engine depends on.
type GitHubOperations interface {
	ListRepositories(executionContext context.Context) iter.Seq2[githubcli.Repository, error]
	ListBranches(executionContext context.Context, repository string) ([]githubcli.Branch, error)
	GetBranchCommitTimestamp(executionContext context.Context, repository string, commitSHA string) (time.Time, error)
	DeleteBranch(executionContext context.Context, repository string, branch string) error
}

// EngineDependencies carries engine collaborators.
type EngineDependencies struct {
	Logger *zap.Logger
	GitHub GitHubOperations
	// Clock returns the current time; defaults to time.Now.
	Clock func() time.Time
	// Sleep paces consecutive provider calls; defaults to time.Sleep.
	Sleep func(time.Duration)
	// PacingInterval separates consecutive provider calls; defaults to one second.
	PacingInterval time.Duration
}

// Engine evaluates automation branches against a cleanup policy.
type Engine struct {
	logger         *zap.Logger
	github         GitHubOperations
	clock          func() time.Time
	sleep          func(time.Duration)
	pacingInterval time.Duration
	phase          RunPhase
}

// NewEngine validates dependencies and constructs an Engine.
func NewEngine(dependencies EngineDependencies) (*Engine, error) {
	if dependencies.Logger == nil {
		return nil, ErrEngineLoggerNotConfigured
	}
	if dependencies.GitHub == nil {
		return nil, ErrEngineClientNotConfigured
	}
	engine := &Engine{
		logger:         dependencies.Logger,
		github:         dependencies.GitHub,
		clock:          dependencies.Clock,
		sleep:          dependencies.Sleep,
		pacingInterval: dependencies.PacingInterval,
		phase:          PhaseIdle,
	}
	if engine.clock == nil {
		engine.clock = time.Now
	}
	if engine.sleep == nil {
		engine.sleep = time.Sleep
	}
	if engine.pacingInterval <= 0 {
		engine.pacingInterval = defaultPacingInterval
	}
	return engine, nil
}

// Phase reports the engine's current run phase.
func (engine *Engine) Phase() RunPhase {
	return engine.phase
}

func (engine *Engine) transitionTo(phase RunPhase) {
	engine.logger.Debug("Cleanup run phase changed",
		zap.String("from", string(engine.phase)),
		zap.String("to", string(phase)),
	)
	engine.phase = phase
}

// ListRepositories walks the account's repositories and resolves the
// automation branches of each one, including last commit timestamps. The
// returned sequence is lazy; enumeration restarts from the first page on
// every iteration.
func (engine *Engine) ListRepositories(executionContext context.Context, policy CleanupPolicy) iter.Seq2[RepositoryCatalogEntry, error] {
	normalizedPolicy := policy.Normalize()
	return func(yield func(RepositoryCatalogEntry, error) bool) {
		firstCall := true
		for repository, listingError := range engine.github.ListRepositories(executionContext) {
			if listingError != nil {
				yield(RepositoryCatalogEntry{}, CatalogListingError{Cause: listingError})
				return
			}
			if !firstCall {
				engine.sleep(engine.pacingInterval)
			}
			firstCall = false

			entry, entryError := engine.buildCatalogEntry(executionContext, repository, normalizedPolicy)
			if entryError != nil {
				if !yield(entry, entryError) {
					return
				}
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (engine *Engine) buildCatalogEntry(executionContext context.Context, repository githubcli.Repository, policy CleanupPolicy) (RepositoryCatalogEntry, error) {
	entry := RepositoryCatalogEntry{
		FullName:      repository.FullName,
		DefaultBranch: repository.DefaultBranch,
		Branches:      []BranchSnapshot{},
	}

	repositoryBranches, listError := engine.github.ListBranches(executionContext, repository.FullName)
	if listError != nil {
		return entry, fmt.Errorf("repository %s: %w", repository.FullName, listError)
	}

	for _, repositoryBranch := range repositoryBranches {
		candidate := BranchRecord{Repository: repository.FullName, Name: repositoryBranch.Name}
		if !candidate.MatchesAutomationConvention(policy.AutomationBranchPrefix) {
			continue
		}
		engine.sleep(engine.pacingInterval)
		commitTimestamp, timestampError := engine.github.GetBranchCommitTimestamp(executionContext, repository.FullName, repositoryBranch.CommitSHA)
		if timestampError != nil {
			return entry, fmt.Errorf("repository %s branch %s: %w", repository.FullName, repositoryBranch.Name, timestampError)
		}
		entry.Branches = append(entry.Branches, BranchSnapshot{
			Name:                repositoryBranch.Name,
			LastCommitTimestamp: commitTimestamp,
		})
	}
	return entry, nil
}

// FindAutomationBranches flattens a repository catalog into the branch
// records matching the automation naming convention.
func (engine *Engine) FindAutomationBranches(catalog iter.Seq2[RepositoryCatalogEntry, error], policy CleanupPolicy) iter.Seq2[BranchRecord, error] {
	normalizedPolicy := policy.Normalize()
	return func(yield func(BranchRecord, error) bool) {
		for entry, catalogError := range catalog {
			if catalogError != nil {
				if !yield(BranchRecord{}, catalogError) {
					return
				}
				continue
			}
			for _, branchSnapshot := range entry.Branches {
				record := BranchRecord{
					Repository:          entry.FullName,
					Name:                branchSnapshot.Name,
					LastCommitTimestamp: branchSnapshot.LastCommitTimestamp,
				}
				if !record.MatchesAutomationConvention(normalizedPolicy.AutomationBranchPrefix) {
					continue
				}
				if !yield(record, nil) {
					return
				}
			}
		}
	}
}

// EvaluateBranch applies the staleness policy to one branch record. A branch
// becomes eligible only when its age strictly exceeds the threshold.
func (engine *Engine) EvaluateBranch(executionContext context.Context, record BranchRecord, policy CleanupPolicy) CleanupResult {
	normalizedPolicy := policy.Normalize()
	result := CleanupResult{
		Repository: record.Repository,
		Branch:     record.Name,
		AgeDays:    record.AgeDays(engine.clock()),
	}

	if result.AgeDays <= normalizedPolicy.ThresholdDays {
		result.Outcome = OutcomeSkipped
		result.Reason = skippedNotStaleReasonConstant
		return result
	}

	if normalizedPolicy.DryRun {
		result.Outcome = OutcomeWouldDelete
		return result
	}

	deletionError := engine.deleteBranchWithRetry(executionContext, record)
	switch {
	case deletionError == nil:
		result.Outcome = OutcomeDeleted
	case isBranchAbsence(deletionError):
		result.Outcome = OutcomeSkipped
		result.Reason = skippedAlreadyAbsentReasonConstant
	default:
		result.Outcome = OutcomeFailed
		result.Reason = deletionError.Error()
	}
	return result
}

func (engine *Engine) deleteBranchWithRetry(executionContext context.Context, record BranchRecord) error {
	retrySchedule := backoff.WithMaxRetries(backoff.NewConstantBackOff(engine.pacingInterval), deletionRetryAttempts)
	deleteOperation := func() error {
		deletionError := engine.github.DeleteBranch(executionContext, record.Repository, record.Name)
		if deletionError == nil {
			return nil
		}
		var rateLimited githubcli.RateLimitedError
		if errors.As(deletionError, &rateLimited) {
			return deletionError
		}
		return backoff.Permanent(deletionError)
	}
	return backoff.Retry(deleteOperation, backoff.WithContext(retrySchedule, executionContext))
}

func isBranchAbsence(candidateError error) bool {
	var notFound githubcli.BranchNotFoundError
	return errors.As(candidateError, &notFound)
}

// Run executes a full cleanup pass. When the policy names a snapshot path the
// catalog is read from that file; no live repository enumeration happens in
// that case. Per-branch failures are isolated; the run itself fails only when
// the catalog cannot be enumerated at all.
func (engine *Engine) Run(executionContext context.Context, policy CleanupPolicy) (CleanupReport, error) {
	normalizedPolicy := policy.Normalize()
	report := newCleanupReport()

	engine.transitionTo(PhaseListing)
	defer engine.transitionTo(PhaseIdle)

	catalog, catalogError := engine.resolveCatalog(executionContext, normalizedPolicy)
	if catalogError != nil {
		return report, catalogError
	}

	engine.transitionTo(PhaseFiltering)
	candidates := engine.FindAutomationBranches(catalog, normalizedPolicy)

	engine.transitionTo(PhaseEvaluating)
	firstEvaluation := true
	for record, candidateError := range candidates {
		if candidateError != nil {
			if isCatalogListingFailure(candidateError) {
				return report, candidateError
			}
			report.add(CleanupResult{Outcome: OutcomeFailed, Reason: candidateError.Error()})
			engine.logger.Warn("Skipping repository after catalog failure", zap.Error(candidateError))
			continue
		}
		if !firstEvaluation {
			engine.sleep(engine.pacingInterval)
		}
		firstEvaluation = false

		result := engine.EvaluateBranch(executionContext, record, normalizedPolicy)
		report.add(result)
		engine.logBranchResult(result)
	}

	engine.transitionTo(PhaseReporting)
	engine.logger.Info("Cleanup run finished",
		zap.Bool("dry_run", normalizedPolicy.DryRun),
		zap.Int("threshold_days", normalizedPolicy.ThresholdDays),
		zap.Int("deleted", report.Counts[OutcomeDeleted]),
		zap.Int("would_delete", report.Counts[OutcomeWouldDelete]),
		zap.Int("skipped", report.Counts[OutcomeSkipped]),
		zap.Int("failed", report.Counts[OutcomeFailed]),
	)
	return report, nil
}

func (engine *Engine) resolveCatalog(executionContext context.Context, policy CleanupPolicy) (iter.Seq2[RepositoryCatalogEntry, error], error) {
	if len(policy.SnapshotPath) > 0 {
		snapshotEntries, loadError := LoadCatalogSnapshot(policy.SnapshotPath)
		if loadError != nil {
			return nil, loadError
		}
		engine.logger.Info("Using catalog snapshot",
			zap.String("path", policy.SnapshotPath),
			zap.Int("repositories", len(snapshotEntries)),
		)
		return CatalogFromEntries(snapshotEntries), nil
	}
	return engine.ListRepositories(executionContext, policy), nil
}

func (engine *Engine) logBranchResult(result CleanupResult) {
	fields := []zap.Field{
		zap.String("repository", result.Repository),
		zap.String("branch", result.Branch),
		zap.Int("age_days", result.AgeDays),
		zap.String("outcome", string(result.Outcome)),
	}
	if len(result.Reason) > 0 {
		fields = append(fields, zap.String("reason", result.Reason))
	}
	if result.Outcome == OutcomeFailed {
		engine.logger.Warn("Branch cleanup failed", fields...)
		return
	}
	engine.logger.Info("Branch evaluated", fields...)
}

func isCatalogListingFailure(candidateError error) bool {
	var listingFailure CatalogListingError
	return errors.As(candidateError, &listingFailure)
}

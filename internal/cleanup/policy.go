package cleanup

import (
	"strings"
	"time"
)

const (
	// DefaultThresholdDays is the staleness threshold applied when no override is configured.
	DefaultThresholdDays = 4
	// DefaultAutomationBranchPrefix identifies branches created by the unattended coding agent.
	DefaultAutomationBranchPrefix = "devin/"

	skippedNotStaleReasonConstant      = "not yet stale"
	skippedAlreadyAbsentReasonConstant = "already absent"
	hoursPerDayConstant                = 24
)

// BranchRecord is a read-only snapshot of one remote branch at evaluation time.
type BranchRecord struct {
	Repository          string
	Name                string
	LastCommitTimestamp time.Time
}

// MatchesAutomationConvention reports whether the branch name carries the
// reserved automation prefix.
func (record BranchRecord) MatchesAutomationConvention(prefix string) bool {
	return strings.HasPrefix(record.Name, prefix)
}

// AgeDays computes the whole days elapsed since the branch's last commit.
func (record BranchRecord) AgeDays(now time.Time) int {
	elapsed := now.Sub(record.LastCommitTimestamp)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed.Hours()) / hoursPerDayConstant
}

// CleanupPolicy is immutable for the duration of one run.
type CleanupPolicy struct {
	ThresholdDays          int
	DryRun                 bool
	AutomationBranchPrefix string
	SnapshotPath           string
}

// Normalize fills unset policy fields with defaults.
func (policy CleanupPolicy) Normalize() CleanupPolicy {
	normalized := policy
	if normalized.ThresholdDays <= 0 {
		normalized.ThresholdDays = DefaultThresholdDays
	}
	if len(strings.TrimSpace(normalized.AutomationBranchPrefix)) == 0 {
		normalized.AutomationBranchPrefix = DefaultAutomationBranchPrefix
	}
	return normalized
}

// CleanupOutcome enumerates per-branch evaluation results.
type CleanupOutcome string

// Per-branch outcomes.
const (
	OutcomeDeleted     CleanupOutcome = "Deleted"
	OutcomeWouldDelete CleanupOutcome = "WouldDelete"
	OutcomeSkipped     CleanupOutcome = "Skipped"
	OutcomeFailed      CleanupOutcome = "Failed"
)

// CleanupResult records the decision taken for one branch.
type CleanupResult struct {
	Repository string
	Branch     string
	AgeDays    int
	Outcome    CleanupOutcome
	Reason     string
}

// CleanupReport aggregates an entire run.
type CleanupReport struct {
	Results  []CleanupResult
	Counts   map[CleanupOutcome]int
	Failures []CleanupResult
}

func newCleanupReport() CleanupReport {
	return CleanupReport{Counts: map[CleanupOutcome]int{}}
}

func (report *CleanupReport) add(result CleanupResult) {
	report.Results = append(report.Results, result)
	report.Counts[result.Outcome]++
	if result.Outcome == OutcomeFailed {
		report.Failures = append(report.Failures, result)
	}
}

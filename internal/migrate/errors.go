package migrate

import "fmt"

// FailureReason labels the fatal conditions the migration pipeline can surface.
type FailureReason string

// Fatal pipeline failure reasons.
const (
	FailureReasonCloneFailed    FailureReason = "CloneFailed"
	FailureReasonRemoteSetup    FailureReason = "RemoteSetupFailed"
	FailureReasonFetchFailed    FailureReason = "FetchFailed"
	FailureReasonBranchSetup    FailureReason = "BranchSetupFailed"
	FailureReasonMergeConflict  FailureReason = "MergeConflict"
	FailureReasonMaterialize    FailureReason = "MaterializeFailed"
	FailureReasonPublishFailed  FailureReason = "PublishFailed"
	FailureReasonInvalidOptions FailureReason = "InvalidOptions"
)

// PipelineError reports which migration phase failed and why.
type PipelineError struct {
	Reason FailureReason
	State  MigrationState
	Cause  error
}

// Error names the failing phase and the underlying cause.
func (pipelineError PipelineError) Error() string {
	if pipelineError.Cause == nil {
		return fmt.Sprintf("%s during %s", pipelineError.Reason, pipelineError.State)
	}
	return fmt.Sprintf("%s during %s: %s", pipelineError.Reason, pipelineError.State, pipelineError.Cause)
}

// Unwrap exposes the underlying cause.
func (pipelineError PipelineError) Unwrap() error {
	return pipelineError.Cause
}

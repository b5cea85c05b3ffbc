package migrate

// MigrationState identifies the furthest completed step of the migration
// pipeline. States are strictly ordered and a step may only run when its
// immediate predecessor has completed.
type MigrationState int

// Pipeline states in execution order.
const (
	StateInitial MigrationState = iota
	StateCloned
	StateSecondaryRemoteAdded
	StateSecondaryFetched
	StateLargeFileObjectsFetched
	StateLegacyTrackingBranchEstablished
	StatePrimaryDefaultBranchEnsured
	StateMerged
	StatePublished
)

var migrationStateNames = map[MigrationState]string{
	StateInitial:                         "Initial",
	StateCloned:                          "Cloned",
	StateSecondaryRemoteAdded:            "SecondaryRemoteAdded",
	StateSecondaryFetched:                "SecondaryFetched",
	StateLargeFileObjectsFetched:         "LargeFileObjectsFetched",
	StateLegacyTrackingBranchEstablished: "LegacyTrackingBranchEstablished",
	StatePrimaryDefaultBranchEnsured:     "PrimaryDefaultBranchEnsured",
	StateMerged:                          "Merged",
	StatePublished:                       "Published",
}

// String names the state for status lines and failure reports.
func (state MigrationState) String() string {
	stateName, stateKnown := migrationStateNames[state]
	if !stateKnown {
		return "Unknown"
	}
	return stateName
}

// Next returns the state that follows in pipeline order. Published is terminal
// and returns itself.
func (state MigrationState) Next() MigrationState {
	if state >= StatePublished {
		return StatePublished
	}
	return state + 1
}

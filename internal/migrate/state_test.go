package migrate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gm-pacific/nexahub/internal/migrate"
)

func TestMigrationStateOrdering(testInstance *testing.T) {
	expectedOrder := []migrate.MigrationState{
		migrate.StateInitial,
		migrate.StateCloned,
		migrate.StateSecondaryRemoteAdded,
		migrate.StateSecondaryFetched,
		migrate.StateLargeFileObjectsFetched,
		migrate.StateLegacyTrackingBranchEstablished,
		migrate.StatePrimaryDefaultBranchEnsured,
		migrate.StateMerged,
		migrate.StatePublished,
	}

	for stateIndex := 0; stateIndex < len(expectedOrder)-1; stateIndex++ {
		require.Equal(testInstance, expectedOrder[stateIndex+1], expectedOrder[stateIndex].Next())
	}
	require.Equal(testInstance, migrate.StatePublished, migrate.StatePublished.Next())
}

func TestMigrationStateNames(testInstance *testing.T) {
	require.Equal(testInstance, "Cloned", migrate.StateCloned.String())
	require.Equal(testInstance, "LargeFileObjectsFetched", migrate.StateLargeFileObjectsFetched.String())
	require.Equal(testInstance, "Published", migrate.StatePublished.String())
	require.Equal(testInstance, "Unknown", migrate.MigrationState(42).String())
}

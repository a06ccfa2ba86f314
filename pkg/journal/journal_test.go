package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schuecal/avdroll/pkg/types"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndGet(t *testing.T) {
	j := openTestJournal(t)

	record := &types.RunRecord{
		ID:           "run-1",
		StartedAt:    time.Date(2024, 5, 17, 6, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC),
		Outcome:      types.RunOutcomeSucceeded,
		ImageFolder:  "build.2024.05.17.03",
		HostPoolName: "we-app-avd-build.2024.05.17.03",
		Waves: []types.WaveReport{
			{Wave: 1, Hosts: 6, Restarted: 6},
			{Wave: 2, Hosts: 6, Restarted: 5, Failures: []types.HostRestartFailure{
				{VMName: "we-sn-17-3", Wave: 2, Err: "conflict"},
			}},
		},
	}
	require.NoError(t, j.Record(record))

	got, err := j.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, record.Outcome, got.Outcome)
	assert.Len(t, got.Waves, 2)
	assert.Equal(t, "we-sn-17-3", got.Waves[1].Failures[0].VMName)
}

func TestGetMissingRun(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Get("nope")
	assert.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	j := openTestJournal(t)

	base := time.Date(2024, 5, 15, 6, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, j.Record(&types.RunRecord{
			ID:        id,
			StartedAt: base.AddDate(0, 0, i),
			Outcome:   types.RunOutcomeNoChange,
		}))
	}

	records, err := j.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "run-c", records[0].ID)
	assert.Equal(t, "run-a", records[2].ID)
}

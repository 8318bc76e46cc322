package recorder

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psylab/cadence/internal/timeval"
)

func TestNewRejectsReservedUserColumn(t *testing.T) {
	var _, err = New("ignored.csv", nil, []string{"trial"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReservedColumn)
}

func TestNewRejectsUserColumnCollidingWithInfoKey(t *testing.T) {
	var _, err = New("ignored.csv", map[string]string{"subject": "s01"}, []string{"subject"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReservedColumn)
}

func TestStartWritesFixedThenInfoThenCodeThenUserHeader(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "events.csv")
	var r, err = New(path, map[string]string{"subject": "s01"}, []string{"rt", "key"})
	require.NoError(t, err)

	require.NoError(t, r.Start(time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)))

	var rows = readCSV(t, path)
	assert.Equal(t, []string{
		"psych_version", "start_date", "start_time", "offset", "trial", "time",
		"subject", "code", "rt", "key",
	}, rows[0])
}

func TestRecordWritesOneRowWithMissingValuesEmpty(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "events.csv")
	var r, err = New(path, map[string]string{"subject": "s01"}, []string{"rt", "key"})
	require.NoError(t, err)
	require.NoError(t, r.Start(time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)))

	require.NoError(t, r.Record(1, 3, timeval.Seconds(1.5), "trial_start", map[string]string{"key": "y"}))

	var rows = readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "s01", rows[1][6])
	assert.Equal(t, "trial_start", rows[1][7])
	assert.Equal(t, "", rows[1][8]) // rt not supplied
	assert.Equal(t, "y", rows[1][9])
}

func TestRecordRejectsUnknownColumn(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "events.csv")
	var r, err = New(path, nil, []string{"rt"})
	require.NoError(t, err)
	require.NoError(t, r.Start(time.Now()))

	var recErr = r.Record(0, 0, 0, "resp", map[string]string{"bogus": "1"})
	require.Error(t, recErr)
	assert.ErrorIs(t, recErr, ErrUnknownColumn)
}

func TestRecordAppendsAcrossMultipleCalls(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "events.csv")
	var r, err = New(path, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.Start(time.Now()))

	require.NoError(t, r.Record(0, 1, 0, "a", nil))
	require.NoError(t, r.Record(0, 1, 1, "b", nil))
	require.NoError(t, r.Record(0, 2, 2, "c", nil))

	var rows = readCSV(t, path)
	require.Len(t, rows, 4) // header + 3
	assert.Equal(t, "a", rows[1][6])
	assert.Equal(t, "c", rows[3][6])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	var f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var rows, readErr = csv.NewReader(f).ReadAll()
	require.NoError(t, readErr)

	return rows
}

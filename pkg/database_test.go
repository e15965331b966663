package emulator

import (
	"path/filepath"
	"testing"

	sqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const thresholdsSchema = `CREATE TABLE ShowerThresholds (
	Station   INTEGER NOT NULL,
	Threshold INTEGER NOT NULL,
	MinRun    INTEGER NOT NULL,
	MaxRun    INTEGER NOT NULL
)`

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := ConnectToDatabase("sqlite", "", "", "", filepath.Join(t.TempDir(), "conditions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.MustExec(thresholdsSchema)
	rows := []struct {
		station, threshold, minRun, maxRun int
	}{
		{1, 5, 0, 99},
		{2, 7, 0, 99},
		{1, 9, 100, 200},
		{3, 11, 100, 200},
		{7, 3, 100, 200},
	}
	for _, row := range rows {
		db.MustExec("INSERT INTO ShowerThresholds (Station, Threshold, MinRun, MaxRun) VALUES (?, ?, ?, ?)",
			row.station, row.threshold, row.minRun, row.maxRun)
	}
	return db
}

func TestGetThresholdsFromDB(t *testing.T) {
	db := openTestDB(t)
	defaults := [N_STATIONS]int{6, 6, 6, 6}

	thresholds, err := getThresholdsFromDB(db, 50, defaults)
	require.NoError(t, err)
	assert.Equal(t, [N_STATIONS]int{5, 7, 6, 6}, thresholds)

	// Unknown stations are ignored
	thresholds, err = getThresholdsFromDB(db, 150, defaults)
	require.NoError(t, err)
	assert.Equal(t, [N_STATIONS]int{9, 6, 11, 6}, thresholds)

	thresholds, err = getThresholdsFromDB(db, 500, defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, thresholds)
}

func TestLoadDatabaseUpdatesConfiguration(t *testing.T) {
	db := openTestDB(t)
	saved := GetConfiguration()
	t.Cleanup(func() { SetConfiguration(saved) })

	require.NoError(t, LoadDatabase(db, 150))
	assert.Equal(t, [N_STATIONS]int{9, 6, 11, 6}, GetConfiguration().Thresholds)
}

func TestLoadDatabaseMissingTable(t *testing.T) {
	db, err := ConnectToDatabase("sqlite", "", "", "", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, LoadDatabase(db, 1))
}

func TestConnectUnknownDriver(t *testing.T) {
	_, err := ConnectToDatabase("postgres", "user", "pass", "localhost", "DTSHOWERS")
	assert.ErrorContains(t, err, "unknown database driver")
}

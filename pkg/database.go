package emulator

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

// LoadDatabase replaces the station thresholds of the global configuration
// with the ones valid for runNumber.
func LoadDatabase(dbConn *sqlx.DB, runNumber int) error {
	thresholds, err := getThresholdsFromDB(dbConn, runNumber, configuration.Thresholds)
	if err != nil {
		errMessage := fmt.Errorf("error getting shower thresholds from database: %w", err)
		logger.Error(errMessage.Error())
		return errMessage
	}
	configuration.Thresholds = thresholds
	return nil
}

// ConnectToDatabase opens the conditions database. For the sqlite driver
// dbname is the path of the database file.
func ConnectToDatabase(driver string, user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	switch driver {
	case "mysql":
		port := "3306"
		dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
		return sqlx.Connect("mysql", dbURI)
	case "sqlite":
		return sqlx.Connect("sqlite", dbname)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

type ThresholdEntry struct {
	Station   int `db:"Station"`
	Threshold int `db:"Threshold"`
}

func getThresholdsFromDB(db *sqlx.DB, runNumber int, defaults [N_STATIONS]int) ([N_STATIONS]int, error) {
	thresholds := defaults
	query := "SELECT Station, Threshold FROM ShowerThresholds WHERE MinRun <= ? and MaxRun >= ? ORDER BY Station"

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading shower thresholds for run %d from database", runNumber)
		logger.Info(message, "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(query, runNumber, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error querying database: %w", err)
		return defaults, errMessage
	}
	defer rows.Close()

	for rows.Next() {
		result := ThresholdEntry{}
		err := rows.StructScan(&result)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return defaults, errMessage
		}
		if result.Station < 1 || result.Station > N_STATIONS {
			message := fmt.Sprintf("ignoring threshold for unknown station %d", result.Station)
			logger.Error(message)
			continue
		}
		thresholds[result.Station-1] = result.Threshold
	}
	if err := rows.Err(); err != nil {
		return defaults, fmt.Errorf("error reading DB rows: %w", err)
	}
	return thresholds, nil
}

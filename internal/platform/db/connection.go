package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"

	_ "github.com/lib/pq"
)

func buildPostgresConnectionString(cfg *config.Config) (string, error) {
	psqlConnectionInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s TimeZone=UTC",
		cfg.DeadLetterDbHost,
		cfg.DeadLetterDbPort,
		cfg.DeadLetterDbUser,
		cfg.DeadLetterDbPassword,
		cfg.DeadLetterDbName)

	sslSettings, err := buildPostgresSslConfigString(cfg)
	if err != nil {
		return "", err
	}

	return psqlConnectionInfo + " " + sslSettings, nil
}

func buildPostgresSslConfigString(cfg *config.Config) (string, error) {
	if cfg.DeadLetterDbSslMode == "disable" {
		return "sslmode=disable", nil
	} else if cfg.DeadLetterDbSslMode == "verify-full" {
		return "sslmode=verify-full sslrootcert=" + cfg.DeadLetterDbSslRootCert, nil
	} else {
		return "", errors.New("Invalid SSL configuration for database connection: " + cfg.DeadLetterDbSslMode)
	}
}

// InitializeDatabaseConnection opens the dead-letter database.  sql.Open does not
// dial, so callers that need a reachable database should Ping.
func InitializeDatabaseConnection(cfg *config.Config) (*sql.DB, error) {
	psqlConnectionInfo, err := buildPostgresConnectionString(cfg)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open("postgres", psqlConnectionInfo)
	if err != nil {
		return nil, err
	}

	database.SetMaxOpenConns(4)
	database.SetMaxIdleConns(2)

	return database, nil
}

package deadletter

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const insertDeadLetterQuery = `INSERT INTO identity_event_dead_letter
    (event_id, event_type, reason, attempts, last_error, event_key, payload, dead_lettered_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type PostgresSink struct {
	database *sql.DB
}

func NewPostgresSink(database *sql.DB) *PostgresSink {
	return &PostgresSink{database: database}
}

func (s *PostgresSink) Record(ctx context.Context, dl delivery.DeadLetter) error {
	at, err := time.Parse(time.RFC3339Nano, dl.At)
	if err != nil {
		at = time.Now().UTC()
	}

	statement, err := s.database.PrepareContext(ctx, insertDeadLetterQuery)
	if err != nil {
		return err
	}
	defer statement.Close()

	_, err = statement.ExecContext(ctx,
		dl.EventID,
		dl.EventType,
		dl.Reason,
		dl.Attempts,
		nullableString(dl.LastError),
		nullableString(dl.Key),
		dl.Payload,
		at)

	if isUniqueViolation(err) {
		logger.Log.WithFields(logrus.Fields{"event_id": dl.EventID}).Debug("Dead-letter record already exists")
		return nil
	}

	return err
}

func (s *PostgresSink) Close() error {
	return s.database.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgerrcode.UniqueViolation
	}
	return false
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/platform/obs"

	"github.com/go-sql-driver/mysql"
)

const (
	upsertAttempts = 8
	upsertBackoff  = 10 * time.Millisecond

	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// SQLSolutionStore is the database/sql implementation of ports.SolutionStore.
//
// Every transition is a single statement: SetSolution is one conditional
// upsert and the Mark* operations are one UPDATE each, whose affected-row count
// decides not-found. Readers therefore never see zero or two ACTUAL rows for a
// schema id. Each call is bounded by Timeout.
type SQLSolutionStore struct {
	DB      *sql.DB
	Timeout time.Duration
	dialect Dialect
	q       solutionQueries
}

func NewPostgresSolutionStore(db *sql.DB, timeout time.Duration) *SQLSolutionStore {
	return &SQLSolutionStore{DB: db, Timeout: timeout, dialect: Postgres, q: postgresQueries}
}

// MySQL connections must be opened with clientFoundRows (see platform/db.OpenMySQL),
// otherwise marking an already-obsolete row reports zero rows and looks like not-found.
func NewMySQLSolutionStore(db *sql.DB, timeout time.Duration) *SQLSolutionStore {
	return &SQLSolutionStore{DB: db, Timeout: timeout, dialect: MySQL, q: mysqlQueries}
}

// NewSQLSolutionStore picks the constructor matching dialect.
func NewSQLSolutionStore(db *sql.DB, dialect Dialect, timeout time.Duration) (*SQLSolutionStore, error) {
	q, err := dialect.queries()
	if err != nil {
		return nil, err
	}
	return &SQLSolutionStore{DB: db, Timeout: timeout, dialect: dialect, q: q}, nil
}

func (s *SQLSolutionStore) Dialect() Dialect { return s.dialect }

func (s *SQLSolutionStore) HasActualSolution(ctx context.Context, schemaID int64) (_ bool, err error) {
	defer obs.Time(ctx, "store.HasActualSolution")(&err)
	defer recordOp("has_actual", &err)

	if s.DB == nil {
		return false, errNilDB
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int
	if err := s.DB.QueryRowContext(ctx, s.q.countActual, schemaID).Scan(&count); err != nil {
		return false, unavailable(fmt.Sprintf("has actual solution schema_id=%d", schemaID), err)
	}

	return count > 0, nil
}

func (s *SQLSolutionStore) GetSolution(ctx context.Context, schemaID int64) (_ []byte, err error) {
	defer obs.Time(ctx, "store.GetSolution")(&err)
	defer recordOp("get", &err)

	if s.DB == nil {
		return nil, errNilDB
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var payload []byte
	if err := s.DB.QueryRowContext(ctx, s.q.getActual, schemaID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get solution schema_id=%d: does not exist or is obsolete: %w", schemaID, domain.ErrNotFound)
		}
		return nil, unavailable(fmt.Sprintf("get solution schema_id=%d", schemaID), err)
	}

	return payload, nil
}

func (s *SQLSolutionStore) MarkSolutionObsolete(ctx context.Context, schemaID int64) (err error) {
	defer obs.Time(ctx, "store.MarkSolutionObsolete")(&err)
	defer recordOp("mark_obsolete", &err)

	return s.updateStatus(ctx, "mark solution obsolete", s.q.markObsolete, schemaID)
}

func (s *SQLSolutionStore) MarkSolutionActual(ctx context.Context, schemaID int64) (err error) {
	defer obs.Time(ctx, "store.MarkSolutionActual")(&err)
	defer recordOp("mark_actual", &err)

	return s.updateStatus(ctx, "mark solution actual", s.q.markActual, schemaID)
}

func (s *SQLSolutionStore) updateStatus(ctx context.Context, op, query string, schemaID int64) error {
	if s.DB == nil {
		return errNilDB
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.DB.ExecContext(ctx, query, schemaID)
	if err != nil {
		return unavailable(fmt.Sprintf("%s schema_id=%d", op, schemaID), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(fmt.Sprintf("%s schema_id=%d: rows affected", op, schemaID), err)
	}
	if n == 0 {
		return fmt.Errorf("%s schema_id=%d: solution does not exist: %w", op, schemaID, domain.ErrNotFound)
	}

	return nil
}

func (s *SQLSolutionStore) SetSolution(ctx context.Context, schemaID int64, payload []byte) (err error) {
	defer obs.Time(ctx, "store.SetSolution")(&err)
	defer recordOp("set", &err)

	if s.DB == nil {
		return errNilDB
	}

	if len(payload) == 0 {
		return fmt.Errorf("set solution schema_id=%d: payload must not be empty", schemaID)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	for attempt := 1; ; attempt++ {
		_, err = s.DB.ExecContext(ctx, s.q.upsert, schemaID, string(payload))
		if err == nil || attempt == upsertAttempts || !s.retryable(err) {
			break
		}
		select {
		case <-ctx.Done():
			return unavailable(fmt.Sprintf("set solution schema_id=%d", schemaID), ctx.Err())
		case <-time.After(time.Duration(attempt) * upsertBackoff):
		}
	}
	if err != nil {
		return unavailable(fmt.Sprintf("set solution schema_id=%d", schemaID), err)
	}

	return nil
}

// retryable reports whether the upsert lost a lock race and can run again.
// Concurrent ON DUPLICATE KEY UPDATE statements on one key deadlock under InnoDB.
func (s *SQLSolutionStore) retryable(err error) bool {
	if s.dialect != MySQL {
		return false
	}
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockWaitTimeout
}

func (s *SQLSolutionStore) SolutionRecord(ctx context.Context, schemaID int64) (_ domain.SolutionRecord, err error) {
	defer obs.Time(ctx, "store.SolutionRecord")(&err)
	defer recordOp("record", &err)

	if s.DB == nil {
		return domain.SolutionRecord{}, errNilDB
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		rec    domain.SolutionRecord
		status string
	)
	row := s.DB.QueryRowContext(ctx, s.q.record, schemaID)
	if err := row.Scan(&rec.SchemaID, &rec.Payload, &status, &rec.Version, &rec.PreviousPayload, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SolutionRecord{}, fmt.Errorf("solution record schema_id=%d: %w", schemaID, domain.ErrNotFound)
		}
		return domain.SolutionRecord{}, unavailable(fmt.Sprintf("solution record schema_id=%d", schemaID), err)
	}

	rec.Status, err = domain.ParseSolutionStatus(status)
	if err != nil {
		return domain.SolutionRecord{}, fmt.Errorf("solution record schema_id=%d: %w", schemaID, err)
	}

	return rec, nil
}

func (s *SQLSolutionStore) Ping(ctx context.Context) (err error) {
	defer obs.Time(ctx, "store.Ping")(&err)

	if s.DB == nil {
		return errNilDB
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.DB.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLSolutionStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

package repositories

import "fmt"

// Dialect selects the SQL flavor used by SQLSolutionStore and InitSchema.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

type solutionQueries struct {
	createTable  []string
	countActual  string
	getActual    string
	markObsolete string
	markActual   string
	upsert       string
	record       string
}

var postgresQueries = solutionQueries{
	createTable: []string{
		`
	CREATE TABLE IF NOT EXISTS solutions (
		schema_id BIGINT PRIMARY KEY,
		solution_json TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('actual', 'obsolete')),
		version BIGINT NOT NULL DEFAULT 1,
		previous_solution_json TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`,
		`
	CREATE INDEX IF NOT EXISTS idx_solutions_status
	ON solutions(status);
	`,
	},
	countActual: `
	SELECT COUNT(*)
	FROM solutions
	WHERE schema_id = $1 AND status = 'actual';
	`,
	getActual: `
	SELECT solution_json
	FROM solutions
	WHERE schema_id = $1 AND status = 'actual';
	`,
	markObsolete: `
	UPDATE solutions
	SET status = 'obsolete', updated_at = now()
	WHERE schema_id = $1;
	`,
	markActual: `
	UPDATE solutions
	SET status = 'actual', updated_at = now()
	WHERE schema_id = $1;
	`,
	// The previous payload is read from the pre-update row, so the demotion of
	// the old version and the insert of the new one happen in one statement.
	upsert: `
	INSERT INTO solutions (schema_id, solution_json, status, version, previous_solution_json, updated_at)
	VALUES ($1, $2, 'actual', 1, NULL, now())
	ON CONFLICT (schema_id) DO UPDATE
	SET previous_solution_json = solutions.solution_json,
		solution_json = EXCLUDED.solution_json,
		status = 'actual',
		version = solutions.version + 1,
		updated_at = now();
	`,
	record: `
	SELECT schema_id, solution_json, status, version, previous_solution_json, updated_at
	FROM solutions
	WHERE schema_id = $1;
	`,
}

var mysqlQueries = solutionQueries{
	createTable: []string{
		`
	CREATE TABLE IF NOT EXISTS solutions (
		schema_id BIGINT NOT NULL PRIMARY KEY,
		solution_json LONGTEXT NOT NULL,
		status ENUM('actual', 'obsolete') NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		previous_solution_json LONGTEXT NULL,
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_solutions_status (status)
	);
	`,
	},
	countActual: `
	SELECT COUNT(*)
	FROM solutions
	WHERE schema_id = ? AND status = 'actual';
	`,
	getActual: `
	SELECT solution_json
	FROM solutions
	WHERE schema_id = ? AND status = 'actual';
	`,
	markObsolete: `
	UPDATE solutions
	SET status = 'obsolete', updated_at = NOW(6)
	WHERE schema_id = ?;
	`,
	markActual: `
	UPDATE solutions
	SET status = 'actual', updated_at = NOW(6)
	WHERE schema_id = ?;
	`,
	// MySQL applies assignments left to right, so previous_solution_json must
	// be copied before solution_json is overwritten.
	upsert: `
	INSERT INTO solutions (schema_id, solution_json, status, version, previous_solution_json, updated_at)
	VALUES (?, ?, 'actual', 1, NULL, NOW(6))
	ON DUPLICATE KEY UPDATE
		previous_solution_json = solution_json,
		solution_json = VALUES(solution_json),
		status = 'actual',
		version = version + 1,
		updated_at = NOW(6);
	`,
	record: `
	SELECT schema_id, solution_json, status, version, previous_solution_json, updated_at
	FROM solutions
	WHERE schema_id = ?;
	`,
}

func (d Dialect) queries() (solutionQueries, error) {
	switch d {
	case Postgres:
		return postgresQueries, nil
	case MySQL:
		return mysqlQueries, nil
	}
	return solutionQueries{}, fmt.Errorf("unknown sql dialect %q", d)
}

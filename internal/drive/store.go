package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/fmachado/driveplane/internal/config"
)

var (
	// ErrRecordNotFound means the before-image SELECT returned zero rows.
	ErrRecordNotFound = errors.New("record not found")
	// ErrIntegrity means a pipeline_id lookup returned more than one row.
	ErrIntegrity = errors.New("integrity violation: duplicate pipeline id")
	// ErrRowCount means a delete or insert affected a row count other than one.
	ErrRowCount = errors.New("unexpected affected row count")
)

// Store executes the drive-table queries for one tick. The connection
// handle is exclusively owned by the tick that opened it; there is no
// pooling across ticks.
type Store struct {
	db     *sqlx.DB
	cfg    config.Config
	table  string
	logger zerolog.Logger
}

// Open validates the config, connects to the drive warehouse and pings
// it. The caller must Close the store before the tick returns.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("pgx", cfg.Drive.DSN())
	if err != nil {
		return nil, fmt.Errorf("open drive connection: %w", err)
	}
	// One underlying connection per tick.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error().
			Str("keyword", "DRIVE_CONNECTION").
			Fields(map[string]interface{}{"config": cfg.Drive.Redacted()}).
			Err(err).
			Msg("failed to establish drive connection")
		return nil, fmt.Errorf("connect to drive warehouse %s/%s: %w",
			cfg.Drive.Database, cfg.Drive.Schema, err)
	}

	s := NewStore(db, cfg, logger)
	s.logger.Info().
		Str("keyword", "DRIVE_CONNECTION").
		Str("database", cfg.Drive.Database).
		Str("schema", cfg.Drive.Schema).
		Msg("drive connection established")
	return s, nil
}

// NewStore wraps an existing handle. Used by Open and by tests that
// substitute a mocked database.
func NewStore(db *sqlx.DB, cfg config.Config, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		cfg:    cfg,
		table:  cfg.Drive.Table,
		logger: logger.With().Str("component", "drive-store").Logger(),
	}
}

// Close releases the connection. Release errors are logged, never
// propagated.
func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn().
			Str("keyword", "DRIVE_CONNECTION").
			Err(err).
			Msg("error closing drive connection")
		return
	}
	s.logger.Debug().
		Str("keyword", "DRIVE_CONNECTION").
		Msg("drive connection closed")
}

// Ping reports drive reachability; it backs the drive health probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func selectList() string {
	return strings.Join(Columns, ", ")
}

func (s *Store) quadrupleParams() map[string]interface{} {
	return map[string]interface{}{
		"PIPELINE_NAME":   s.cfg.PipelineName,
		"SOURCE_NAME":     s.cfg.SourceName,
		"SOURCE_CATEGORY": s.cfg.SourceCategory,
		"SOURCE_SUB_TYPE": s.cfg.SourceSubType,
	}
}

// FetchInProcess returns the IN_PROCESS rows for the configured
// quadruple whose gating flags are both 'YES', oldest window first.
func (s *Store) FetchInProcess(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE PIPELINE_STATUS = :PIPELINE_STATUS
		  AND CONTINUITY_CHECK_PERFORMED = 'YES'
		  AND CAN_FETCH_HISTORICAL_DATA = 'YES'
		  AND PIPELINE_NAME = :PIPELINE_NAME
		  AND SOURCE_NAME = :SOURCE_NAME
		  AND SOURCE_CATEGORY = :SOURCE_CATEGORY
		  AND SOURCE_SUB_TYPE = :SOURCE_SUB_TYPE
		ORDER BY QUERY_WINDOW_START_TIME ASC`, selectList(), s.table)

	params := s.quadrupleParams()
	params["PIPELINE_STATUS"] = StatusInProcess

	recs, err := s.queryRecords(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("fetch in-process records: %w", err)
	}
	s.logger.Info().
		Str("keyword", "QUERY_EXECUTION_SUCCESS").
		Int("records_found", len(recs)).
		Msg("fetched in-process records")
	return recs, nil
}

// FetchAdmissiblePending returns PENDING rows whose window start is at
// or before maxAccepted, oldest first, capped at limit.
func (s *Store) FetchAdmissiblePending(ctx context.Context, maxAccepted time.Time, limit int) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE PIPELINE_STATUS = :PIPELINE_STATUS
		  AND CONTINUITY_CHECK_PERFORMED = 'YES'
		  AND CAN_FETCH_HISTORICAL_DATA = 'YES'
		  AND PIPELINE_NAME = :PIPELINE_NAME
		  AND SOURCE_NAME = :SOURCE_NAME
		  AND SOURCE_CATEGORY = :SOURCE_CATEGORY
		  AND SOURCE_SUB_TYPE = :SOURCE_SUB_TYPE
		  AND QUERY_WINDOW_START_TIME <= :MAX_ACCEPTED_TIME
		ORDER BY QUERY_WINDOW_START_TIME ASC
		LIMIT %d`, selectList(), s.table, limit)

	params := s.quadrupleParams()
	params["PIPELINE_STATUS"] = StatusPending
	params["MAX_ACCEPTED_TIME"] = maxAccepted

	recs, err := s.queryRecords(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("fetch admissible pending records: %w", err)
	}
	s.logger.Info().
		Str("keyword", "FETCH_VALID_PENDING_SUCCESS").
		Int("records_found", len(recs)).
		Time("max_accepted_time", maxAccepted).
		Msg("fetched admissible pending records")
	return recs, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, params map[string]interface{}) ([]Record, error) {
	rows, err := sqlx.NamedQueryContext(ctx, s.db, query, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.StructScan(&r); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Replace atomically swaps the stored row for updated: delete by
// pipeline_id then insert, in one transaction, with before-image
// capture. Both records must carry the same non-empty pipeline_id;
// that precondition is checked before any statement runs.
func (s *Store) Replace(ctx context.Context, original, updated Record) error {
	id, err := validateRecordPair(original, updated)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace transaction: %w", err)
	}

	if err := s.executeDelete(ctx, tx, id); err != nil {
		s.rollback(tx, id, err)
		return err
	}
	if err := s.executeInsert(ctx, tx, updated); err != nil {
		s.rollback(tx, id, err)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace for pipeline %s: %w", id, err)
	}

	s.logger.Info().
		Str("keyword", "DELETE_INSERT_TRANSACTION_SUCCESS").
		Str("pipeline_id", id).
		Msg("replaced drive record")
	return nil
}

// DeleteOne removes a single row by pipeline_id, with before-image
// capture and a strict affected-row check. Recovery tooling only; the
// reclaim path always goes through Replace.
func (s *Store) DeleteOne(ctx context.Context, pipelineID string) error {
	id, err := validatePipelineID(pipelineID)
	if err != nil {
		return err
	}
	return s.executeDelete(ctx, s.db, id)
}

// InsertOne inserts a single row. Recovery tooling counterpart of
// DeleteOne.
func (s *Store) InsertOne(ctx context.Context, rec Record) error {
	if _, err := validatePipelineID(rec.PipelineID); err != nil {
		return err
	}
	return s.executeInsert(ctx, s.db, rec)
}

// fetchBeforeImage captures the row about to be deleted and logs it
// verbatim so an operator can reconstruct it from logs alone.
func (s *Store) fetchBeforeImage(ctx context.Context, e sqlx.ExtContext, id string) (Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE PIPELINE_ID = :PIPELINE_ID", selectList(), s.table)

	rows, err := sqlx.NamedQueryContext(ctx, e, query, map[string]interface{}{"PIPELINE_ID": id})
	if err != nil {
		return Record{}, fmt.Errorf("fetch before-image for pipeline %s: %w", id, err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.StructScan(&r); err != nil {
			return Record{}, fmt.Errorf("scan before-image: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("fetch before-image for pipeline %s: %w", id, err)
	}

	switch {
	case len(recs) == 0:
		s.logger.Error().
			Str("keyword", "DELETE_RECORD_NOT_FOUND").
			Str("pipeline_id", id).
			Msg("no record found for deletion")
		return Record{}, fmt.Errorf("pipeline %s: %w", id, ErrRecordNotFound)
	case len(recs) > 1:
		s.logger.Error().
			Str("keyword", "DELETE_MULTIPLE_RECORDS_FOUND").
			Str("pipeline_id", id).
			Int("records_found", len(recs)).
			Msg("multiple records found for deletion")
		return Record{}, fmt.Errorf("pipeline %s: %d rows: %w", id, len(recs), ErrIntegrity)
	}

	before := recs[0]
	s.logger.Info().
		Str("keyword", "RECORD_BEFORE_DELETE").
		Str("pipeline_id", id).
		Interface("record", before).
		Msg("record about to be deleted")
	return before, nil
}

func (s *Store) executeDelete(ctx context.Context, e sqlx.ExtContext, id string) error {
	if _, err := s.fetchBeforeImage(ctx, e, id); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE PIPELINE_ID = :PIPELINE_ID", s.table)
	res, err := sqlx.NamedExecContext(ctx, e, query, map[string]interface{}{"PIPELINE_ID": id})
	if err != nil {
		return fmt.Errorf("delete pipeline %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pipeline %s: rows affected: %w", id, err)
	}
	if n != 1 {
		s.logger.Error().
			Str("keyword", "DELETE_UNEXPECTED_ROW_COUNT").
			Str("pipeline_id", id).
			Int64("rows_affected", n).
			Msg("delete affected unexpected number of rows")
		return fmt.Errorf("delete pipeline %s affected %d rows: %w", id, n, ErrRowCount)
	}

	s.logger.Info().
		Str("keyword", "DELETE_RECORD_SUCCESS").
		Str("pipeline_id", id).
		Msg("deleted drive record")
	return nil
}

func (s *Store) executeInsert(ctx context.Context, e sqlx.ExtContext, rec Record) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		s.table, selectList(), strings.Join(Columns, ", :"))

	res, err := sqlx.NamedExecContext(ctx, e, query, rec)
	if err != nil {
		return fmt.Errorf("insert pipeline %s: %w", rec.PipelineID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert pipeline %s: rows affected: %w", rec.PipelineID, err)
	}
	if n != 1 {
		s.logger.Error().
			Str("keyword", "INSERT_UNEXPECTED_ROW_COUNT").
			Str("pipeline_id", rec.PipelineID).
			Int64("rows_affected", n).
			Msg("insert affected unexpected number of rows")
		return fmt.Errorf("insert pipeline %s affected %d rows: %w", rec.PipelineID, n, ErrRowCount)
	}

	s.logger.Info().
		Str("keyword", "INSERT_RECORD_SUCCESS").
		Str("pipeline_id", rec.PipelineID).
		Msg("inserted drive record")
	return nil
}

// rollback aborts the transaction after cause. A rollback failure is
// logged but cause stays the surfaced error.
func (s *Store) rollback(tx *sqlx.Tx, id string, cause error) {
	if err := tx.Rollback(); err != nil {
		s.logger.Error().
			Str("keyword", "ROLLBACK_FAILED").
			Str("pipeline_id", id).
			AnErr("rollback_error", err).
			AnErr("original_error", cause).
			Msg("failed to roll back replace transaction")
	}
}

func validatePipelineID(id string) (string, error) {
	cleaned := strings.TrimSpace(id)
	if cleaned == "" {
		return "", fmt.Errorf("%w: pipeline id must be a non-empty string", config.ErrConfig)
	}
	return cleaned, nil
}

func validateRecordPair(original, updated Record) (string, error) {
	origID, err := validatePipelineID(original.PipelineID)
	if err != nil {
		return "", err
	}
	updID, err := validatePipelineID(updated.PipelineID)
	if err != nil {
		return "", err
	}
	if origID != updID {
		return "", fmt.Errorf("%w: pipeline id mismatch: original=%s updated=%s",
			config.ErrConfig, origID, updID)
	}
	return origID, nil
}

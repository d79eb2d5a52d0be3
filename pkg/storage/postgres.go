package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate runs database migrations
func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// analysisRow holds the column values of one bucket_analyses row
type analysisRow struct {
	id               string
	tierDistribution []byte
	ageDistribution  []byte
	groups           []byte
	lifecycle        []byte
	advisories       []byte
}

// args lists the INSERT parameters in column order
func (row *analysisRow) args(a *models.BucketAnalysis) []any {
	return []any{
		row.id, a.Bucket, a.Region, a.AnalyzedAt, a.IsEmpty,
		a.TotalObjects, a.TotalBytes, a.UnpricedObjects, a.NoGainObjects,
		a.Summary.ObjectsToTransition, a.Summary.BytesToTransition,
		a.Summary.MonthlySavings, a.Summary.AnnualSavings,
		row.tierDistribution, row.ageDistribution, row.groups,
		row.lifecycle, row.advisories, a.PricingRegion,
	}
}

func buildAnalysisRow(a *models.BucketAnalysis) (*analysisRow, error) {
	row := &analysisRow{id: a.ID}
	if row.id == "" {
		row.id = uuid.New().String()
	}

	fields := []struct {
		name string
		v    any
		dst  *[]byte
	}{
		{"tier distribution", a.TierDistribution, &row.tierDistribution},
		{"age distribution", a.AgeDistribution, &row.ageDistribution},
		{"transition groups", nonNil(a.Groups), &row.groups},
		{"lifecycle", nonNil(a.Lifecycle), &row.lifecycle},
		{"advisories", nonNil(a.Advisories), &row.advisories},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.name, err)
		}
		*f.dst = data
	}

	return row, nil
}

// SaveAnalysis stores an analysis snapshot
func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *models.BucketAnalysis) error {
	row, err := buildAnalysisRow(a)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bucket_analyses (
			id, bucket, region, analyzed_at, is_empty,
			total_objects, total_bytes, unpriced_objects, no_gain_objects,
			objects_to_transition, bytes_to_transition,
			monthly_savings_usd, annual_savings_usd,
			tier_distribution, age_distribution, transition_groups,
			lifecycle, advisories, pricing_region
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	if _, err := s.db.ExecContext(ctx, query, row.args(a)...); err != nil {
		return fmt.Errorf("insert analysis for %s: %w", a.Bucket, err)
	}

	return nil
}

// runRow holds the encoded JSON columns of one migration_runs row
type runRow struct {
	id      string
	errors  []byte
	samples []byte
}

// args lists the INSERT parameters in column order
func (row *runRow) args(r *models.MigrationResult) []any {
	return []any{
		row.id, r.Bucket, r.DryRun, string(r.Outcome), r.StartedAt, r.CompletedAt,
		r.TotalObjects, r.Batches, r.Processed, r.Simulated, r.Succeeded, r.Failed, r.Skipped,
		r.PartialFailure, r.EstimatedMonthlySavings, r.RealizedMonthlySavings,
		row.errors, r.ErrorsTruncated, row.samples,
	}
}

func buildRunRow(r *models.MigrationResult) (*runRow, error) {
	row := &runRow{id: r.ID}
	if row.id == "" {
		row.id = uuid.New().String()
	}

	var err error
	if row.errors, err = json.Marshal(nonNil(r.Errors)); err != nil {
		return nil, fmt.Errorf("encode errors: %w", err)
	}
	if row.samples, err = json.Marshal(nonNil(r.Samples)); err != nil {
		return nil, fmt.Errorf("encode sample transitions: %w", err)
	}

	return row, nil
}

// SaveMigrationRun stores a migration run summary
func (s *PostgresStore) SaveMigrationRun(ctx context.Context, r *models.MigrationResult) error {
	row, err := buildRunRow(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO migration_runs (
			id, bucket, dry_run, outcome, started_at, completed_at,
			total_objects, batches, processed, simulated, succeeded, failed, skipped,
			partial_failure, estimated_savings_usd, realized_savings_usd,
			errors, errors_truncated, sample_transitions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	if _, err := s.db.ExecContext(ctx, query, row.args(r)...); err != nil {
		return fmt.Errorf("insert migration run for %s: %w", r.Bucket, err)
	}

	return nil
}

// ListAnalyses retrieves recent analyses for a bucket
func (s *PostgresStore) ListAnalyses(ctx context.Context, bucket string, limit int) ([]*models.AnalysisRecord, error) {
	query := `
		SELECT id, bucket, region, analyzed_at, is_empty,
			total_objects, total_bytes, no_gain_objects,
			objects_to_transition, monthly_savings_usd
		FROM bucket_analyses
		WHERE bucket = $1
		ORDER BY analyzed_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, bucket, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.AnalysisRecord
	for rows.Next() {
		var rec models.AnalysisRecord
		err := rows.Scan(
			&rec.ID, &rec.Bucket, &rec.Region, &rec.AnalyzedAt, &rec.IsEmpty,
			&rec.TotalObjects, &rec.TotalBytes, &rec.NoGainObjects,
			&rec.ObjectsToTransition, &rec.MonthlySavings,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// ListMigrationRuns retrieves recent migration runs for a bucket
func (s *PostgresStore) ListMigrationRuns(ctx context.Context, bucket string, limit int) ([]*models.RunRecord, error) {
	query := `
		SELECT id, bucket, dry_run, outcome, started_at, completed_at,
			processed, succeeded, failed, skipped, simulated, partial_failure,
			estimated_savings_usd, realized_savings_usd
		FROM migration_runs
		WHERE bucket = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, bucket, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.RunRecord
	for rows.Next() {
		var rec models.RunRecord
		var outcome string
		err := rows.Scan(
			&rec.ID, &rec.Bucket, &rec.DryRun, &outcome, &rec.StartedAt, &rec.CompletedAt,
			&rec.Processed, &rec.Succeeded, &rec.Failed, &rec.Skipped, &rec.Simulated, &rec.PartialFailure,
			&rec.EstimatedMonthlySavings, &rec.RealizedMonthlySavings,
		)
		if err != nil {
			return nil, err
		}
		rec.Outcome = models.RunOutcome(outcome)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// nonNil keeps empty lists encoded as [] instead of null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package storage

import (
	"context"
	"fmt"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

// Sink accepts analysis snapshots and migration run summaries. Callers treat
// every error as non-fatal.
type Sink interface {
	SaveAnalysis(ctx context.Context, analysis *models.BucketAnalysis) error
	SaveMigrationRun(ctx context.Context, run *models.MigrationResult) error
}

// Store defines the interface for persistent storage
type Store interface {
	Sink

	ListAnalyses(ctx context.Context, bucket string, limit int) ([]*models.AnalysisRecord, error)
	ListMigrationRuns(ctx context.Context, bucket string, limit int) ([]*models.RunRecord, error)

	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	Enabled bool
	URL     string
}

// NewStore opens the configured store, or a NopStore when storage is disabled
func NewStore(config *Config) (Store, error) {
	if config == nil || !config.Enabled {
		return NopStore{}, nil
	}
	if config.URL == "" {
		return nil, fmt.Errorf("storage enabled but no database URL configured")
	}
	store, err := NewPostgresStore(config.URL)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NopStore discards writes and has no history
type NopStore struct{}

func (NopStore) SaveAnalysis(context.Context, *models.BucketAnalysis) error {
	return nil
}

func (NopStore) SaveMigrationRun(context.Context, *models.MigrationResult) error {
	return nil
}

func (NopStore) ListAnalyses(context.Context, string, int) ([]*models.AnalysisRecord, error) {
	return nil, nil
}

func (NopStore) ListMigrationRuns(context.Context, string, int) ([]*models.RunRecord, error) {
	return nil, nil
}

func (NopStore) Ping(context.Context) error {
	return nil
}

func (NopStore) Close() error {
	return nil
}

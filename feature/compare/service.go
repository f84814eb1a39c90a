package compare

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"koala-diff/core/database"
	"koala-diff/core/diff"
	"koala-diff/core/source"
	"koala-diff/core/storage"
	"koala-diff/feature/report"
)

// Request describes one comparison to run. Source and Target are dataset
// references (path, s3://bucket/key or table:name).
type Request struct {
	Source string `json:"source"`
	Target string `json:"target"`

	KeyColumns []string           `json:"key_columns"`
	Tolerances map[string]float64 `json:"tolerances,omitempty"`

	DuplicatePolicy string `json:"duplicate_policy,omitempty"`
	Paranoid        bool   `json:"paranoid,omitempty"`
	RetainMatched   bool   `json:"retain_matched,omitempty"`

	MemoryBudgetMB int `json:"memory_budget_mb,omitempty"`
	Partitions     int `json:"partitions,omitempty"`
	Workers        int `json:"workers,omitempty"`
}

// Service resolves dataset references and runs comparisons. The database
// and storage client are optional; requests referencing them fail when the
// backend is not configured.
type Service struct {
	cfg    diff.Config
	db     *gorm.DB
	store  storage.Client
	logger *zap.Logger
}

// NewService creates a new compare service.
func NewService(cfg diff.Config, db *gorm.DB, store storage.Client, logger *zap.Logger) *Service {
	return &Service{
		cfg:    cfg,
		db:     db,
		store:  store,
		logger: logger,
	}
}

// Run executes one comparison and returns its report.
func (s *Service) Run(ctx context.Context, req Request) (*report.Report, error) {
	keyColumns := req.KeyColumns
	if len(keyColumns) == 0 {
		// Table sources can fall back to the table's primary key.
		resolved, err := s.defaultKeyColumns(req.Source)
		if err != nil {
			return nil, err
		}
		keyColumns = resolved
	}
	if len(keyColumns) == 0 {
		return nil, fmt.Errorf("no key columns given and none could be inferred")
	}

	opts := s.cfg.Options(keyColumns)
	opts.ColumnTolerances = req.Tolerances
	opts.DuplicateKeyPolicy = diff.DuplicatePolicy(req.DuplicatePolicy)
	opts.ParanoidHashVerification = req.Paranoid
	opts.RetainMatched = req.RetainMatched
	if req.MemoryBudgetMB > 0 {
		opts.MemoryBudgetBytes = int64(req.MemoryBudgetMB) << 20
	}
	if req.Partitions > 0 {
		opts.PartitionFanout = req.Partitions
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}

	src, err := s.open(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()
	tgt, err := s.open(ctx, req.Target)
	if err != nil {
		return nil, fmt.Errorf("opening target: %w", err)
	}
	defer tgt.Close()

	s.logger.Info("Running comparison",
		zap.String("source", req.Source),
		zap.String("target", req.Target),
		zap.Strings("key_columns", keyColumns))

	result, err := diff.Compare(ctx, src, tgt, opts)
	if err != nil {
		return nil, err
	}

	rep := report.Build(result, req.Source, req.Target)
	s.logger.Info("Comparison finished",
		zap.String("report_id", rep.ID),
		zap.Int64("compared_pairs", rep.ComparedPairs),
		zap.Float64("match_integrity", rep.MatchIntegrity),
		zap.Int64("elapsed_ms", rep.ElapsedMS))
	return rep, nil
}

// open resolves a dataset reference to a streaming source.
func (s *Service) open(ctx context.Context, ref string) (source.Source, error) {
	switch {
	case strings.HasPrefix(ref, "s3://"):
		if s.store == nil {
			return nil, fmt.Errorf("no storage client configured for %s", ref)
		}
		bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid object reference %q", ref)
		}
		return source.OpenObject(ctx, s.store, bucket, key)
	case strings.HasPrefix(ref, "table:"):
		if s.db == nil {
			return nil, fmt.Errorf("no database configured for %s", ref)
		}
		return source.OpenTable(s.db, strings.TrimPrefix(ref, "table:"))
	default:
		return source.Open(ref)
	}
}

// defaultKeyColumns looks up the primary key for table references. Other
// reference types have no inferable key.
func (s *Service) defaultKeyColumns(ref string) ([]string, error) {
	if !strings.HasPrefix(ref, "table:") || s.db == nil {
		return nil, nil
	}
	return database.PrimaryKeyColumns(s.db, strings.TrimPrefix(ref, "table:"))
}

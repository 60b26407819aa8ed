package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chemstatilizer/chemstat-backend/internal/blob"
	"github.com/chemstatilizer/chemstat-backend/internal/logger"
	"github.com/chemstatilizer/chemstat-backend/internal/repos"
	"github.com/chemstatilizer/chemstat-backend/internal/tabular"
	"github.com/chemstatilizer/chemstat-backend/internal/types"
)

type DatasetService interface {
	// Ingest runs the whole upload pipeline: parse, normalize, validate,
	// summarize, persist blob + record, then apply retention. Nothing is
	// persisted when any validation step fails.
	Ingest(ctx context.Context, filename string, raw []byte) (*types.Dataset, error)
	ListRecent(ctx context.Context, limit int) ([]*types.Dataset, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Dataset, error)
}

type datasetService struct {
	db             *gorm.DB
	log            *logger.Logger
	datasetRepo    repos.DatasetRepo
	store          blob.Store
	retentionLimit int
}

func NewDatasetService(db *gorm.DB, baseLog *logger.Logger, datasetRepo repos.DatasetRepo, store blob.Store, retentionLimit int) DatasetService {
	return &datasetService{
		db:             db,
		log:            baseLog.With("service", "DatasetService"),
		datasetRepo:    datasetRepo,
		store:          store,
		retentionLimit: retentionLimit,
	}
}

func (s *datasetService) Ingest(ctx context.Context, filename string, raw []byte) (*types.Dataset, error) {
	tbl, err := tabular.ParseCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	tabular.NormalizeHeaders(tbl)

	numeric, err := tabular.Validate(tbl)
	if err != nil {
		return nil, err
	}
	summary := tabular.ComputeSummary(tbl, numeric)

	canonical, err := tbl.WriteCSV()
	if err != nil {
		return nil, fmt.Errorf("serialize canonical csv: %w", err)
	}

	ds := &types.Dataset{
		ID:         uuid.New(),
		Filename:   filename,
		UploadedAt: time.Now().UTC(),
		RowCount:   len(tbl.Rows),
	}
	ds.StorageKey = fmt.Sprintf("datasets/%s.csv", ds.ID)
	if err := ds.SetSummary(summary); err != nil {
		return nil, err
	}

	// Blob first, record second. If the record fails the blob is
	// removed again so neither half is left visible alone.
	if err := s.store.Upload(ctx, ds.StorageKey, bytes.NewReader(canonical)); err != nil {
		return nil, fmt.Errorf("store dataset blob: %w", err)
	}
	if err := s.datasetRepo.Create(ctx, nil, ds); err != nil {
		if delErr := s.store.Delete(ctx, ds.StorageKey); delErr != nil {
			s.log.Warn("Failed to clean up blob after record failure (ignored)", "key", ds.StorageKey, "error", delErr)
		}
		return nil, err
	}
	s.log.Info("Dataset ingested", "dataset_id", ds.ID, "filename", filename, "rows", ds.RowCount)

	s.applyRetention(ctx)
	return ds, nil
}

// applyRetention evicts everything beyond the newest retentionLimit
// records. Failures are logged and swallowed: eviction must never fail
// the upload that triggered it, and concurrent sweeps racing on the same
// victim are harmless because deletes are idempotent.
func (s *datasetService) applyRetention(ctx context.Context) {
	all, err := s.datasetRepo.ListRecent(ctx, nil, 0)
	if err != nil {
		s.log.Warn("Retention sweep could not list datasets (ignored)", "error", err)
		return
	}
	if len(all) <= s.retentionLimit {
		return
	}
	for _, old := range all[s.retentionLimit:] {
		if err := s.store.Delete(ctx, old.StorageKey); err != nil {
			s.log.Warn("Failed to delete evicted blob (ignored)", "key", old.StorageKey, "error", err)
		}
		if err := s.datasetRepo.DeleteByID(ctx, nil, old.ID); err != nil {
			s.log.Warn("Failed to delete evicted record (ignored)", "dataset_id", old.ID, "error", err)
			continue
		}
		s.log.Info("Evicted dataset beyond retention limit", "dataset_id", old.ID, "uploaded_at", old.UploadedAt)
	}
}

func (s *datasetService) ListRecent(ctx context.Context, limit int) ([]*types.Dataset, error) {
	return s.datasetRepo.ListRecent(ctx, nil, limit)
}

func (s *datasetService) Get(ctx context.Context, id uuid.UUID) (*types.Dataset, error) {
	return s.datasetRepo.GetByID(ctx, nil, id)
}

// readBlob reads back a dataset's canonical CSV bytes.
func readBlob(ctx context.Context, store blob.Store, key string) ([]byte, error) {
	rc, err := store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

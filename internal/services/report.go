package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chemstatilizer/chemstat-backend/internal/blob"
	"github.com/chemstatilizer/chemstat-backend/internal/logger"
	"github.com/chemstatilizer/chemstat-backend/internal/repos"
	"github.com/chemstatilizer/chemstat-backend/internal/report"
	"github.com/chemstatilizer/chemstat-backend/internal/tabular"
	"github.com/chemstatilizer/chemstat-backend/internal/types"
)

// StorageReadError marks a failure to re-read a stored dataset blob at
// report time. It is a server-side fault, not a client error.
type StorageReadError struct {
	Key   string
	Cause error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("failed to read dataset blob %q: %v", e.Key, e.Cause)
}

func (e *StorageReadError) Unwrap() error {
	return e.Cause
}

type ReportService interface {
	// Generate re-derives the table from the stored blob and renders the
	// PDF report. Nothing is cached; every call re-reads and re-renders.
	Generate(ctx context.Context, id uuid.UUID) (*types.Dataset, []byte, error)
}

type reportService struct {
	log         *logger.Logger
	datasetRepo repos.DatasetRepo
	store       blob.Store
	renderer    *report.Renderer
}

func NewReportService(baseLog *logger.Logger, datasetRepo repos.DatasetRepo, store blob.Store, renderer *report.Renderer) ReportService {
	return &reportService{
		log:         baseLog.With("service", "ReportService"),
		datasetRepo: datasetRepo,
		store:       store,
		renderer:    renderer,
	}
}

func (s *reportService) Generate(ctx context.Context, id uuid.UUID) (*types.Dataset, []byte, error) {
	ds, err := s.datasetRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, nil, err
	}

	raw, err := readBlob(ctx, s.store, ds.StorageKey)
	if err != nil {
		return nil, nil, &StorageReadError{Key: ds.StorageKey, Cause: err}
	}

	// Re-derive the table the same way ingestion did. The blob was
	// written from a validated table, so a parse failure here means the
	// stored data went bad, which is also a storage-read fault.
	tbl, err := tabular.ParseCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, &StorageReadError{Key: ds.StorageKey, Cause: err}
	}
	tabular.NormalizeHeaders(tbl)

	numeric := make(map[string][]float64, len(tabular.NumericColumns))
	for _, col := range tabular.NumericColumns {
		if cells, ok := tbl.Column(col); ok {
			numeric[col] = tabular.CoerceColumn(cells)
		}
	}

	summary, err := ds.GetSummary()
	if err != nil {
		s.log.Warn("Stored summary unreadable, recomputing for report", "dataset_id", ds.ID, "error", err)
		summary = tabular.ComputeSummary(tbl, numeric)
	}

	pdf, err := s.renderer.Render(ds, summary, tbl, numeric)
	if err != nil {
		return nil, nil, fmt.Errorf("render report for %s: %w", ds.ID, err)
	}
	s.log.Info("Report generated", "dataset_id", ds.ID, "bytes", len(pdf))
	return ds, pdf, nil
}

package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chemstatilizer/chemstat-backend/internal/logger"
	"github.com/chemstatilizer/chemstat-backend/internal/types"
)

// NotFoundError reports a lookup of an unknown dataset id.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset %s not found", e.ID)
}

type DatasetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, ds *types.Dataset) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Dataset, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Dataset, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type datasetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	return &datasetRepo{db: db, log: baseLog.With("repo", "DatasetRepo")}
}

func (r *datasetRepo) Create(ctx context.Context, tx *gorm.DB, ds *types.Dataset) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(ds).Error; err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	return nil
}

func (r *datasetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var ds types.Dataset
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&ds).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return &ds, nil
}

func (r *datasetRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Dataset
	q := transaction.WithContext(ctx).Order("uploaded_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return results, nil
}

// DeleteByID is idempotent: deleting an already-removed record succeeds.
// Concurrent retention sweeps may race on the same victim.
func (r *datasetRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Where("id = ?", id).Delete(&types.Dataset{}).Error; err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	return nil
}

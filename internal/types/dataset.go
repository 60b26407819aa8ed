package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Dataset is one uploaded CSV: the record row plus a pointer (StorageKey)
// to the canonicalized CSV blob in the object store.
type Dataset struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Filename   string         `gorm:"column:filename;not null" json:"filename"`
	StorageKey string         `gorm:"column:storage_key;not null" json:"csv_file"`
	UploadedAt time.Time      `gorm:"column:uploaded_at;not null;index" json:"uploaded_at"`
	RowCount   int            `gorm:"column:row_count;not null;default:0" json:"row_count"`
	Summary    datatypes.JSON `gorm:"column:summary;type:jsonb" json:"summary"`
}

func (Dataset) TableName() string { return "dataset" }

func (d *Dataset) SetSummary(s Summary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	d.Summary = datatypes.JSON(raw)
	return nil
}

func (d *Dataset) GetSummary() (Summary, error) {
	var s Summary
	if len(d.Summary) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(d.Summary, &s); err != nil {
		return s, fmt.Errorf("unmarshal summary: %w", err)
	}
	return s, nil
}

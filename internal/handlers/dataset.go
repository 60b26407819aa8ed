package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chemstatilizer/chemstat-backend/internal/blob"
	"github.com/chemstatilizer/chemstat-backend/internal/logger"
	"github.com/chemstatilizer/chemstat-backend/internal/repos"
	"github.com/chemstatilizer/chemstat-backend/internal/services"
	"github.com/chemstatilizer/chemstat-backend/internal/tabular"
	"github.com/chemstatilizer/chemstat-backend/internal/types"
)

type DatasetHandler struct {
	log            *logger.Logger
	datasetService services.DatasetService
	reportService  services.ReportService
	store          blob.Store
	maxUploadBytes int64
	listLimit      int
}

func NewDatasetHandler(log *logger.Logger, dsvc services.DatasetService, rsvc services.ReportService, store blob.Store, maxUploadBytes int64, listLimit int) *DatasetHandler {
	return &DatasetHandler{
		log:            log.With("handler", "DatasetHandler"),
		datasetService: dsvc,
		reportService:  rsvc,
		store:          store,
		maxUploadBytes: maxUploadBytes,
		listLimit:      listLimit,
	}
}

// DatasetResponse is the JSON shape of one dataset record.
type DatasetResponse struct {
	ID         uuid.UUID       `json:"id"`
	Filename   string          `json:"filename"`
	UploadedAt time.Time       `json:"uploaded_at"`
	RowCount   int             `json:"row_count"`
	Summary    json.RawMessage `json:"summary"`
	CSVFile    string          `json:"csv_file"`
}

func (h *DatasetHandler) toResponse(ds *types.Dataset) DatasetResponse {
	return DatasetResponse{
		ID:         ds.ID,
		Filename:   ds.Filename,
		UploadedAt: ds.UploadedAt,
		RowCount:   ds.RowCount,
		Summary:    json.RawMessage(ds.Summary),
		CSVFile:    h.store.PublicURL(ds.StorageKey),
	}
}

// POST /upload/
func (h *DatasetHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, "No file provided.")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		RespondDetail(c, http.StatusRequestEntityTooLarge, "File too large (max 10MB).")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, fmt.Sprintf("Failed to read CSV: %v", err))
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		RespondDetail(c, http.StatusBadRequest, fmt.Sprintf("Failed to read CSV: %v", err))
		return
	}
	if int64(len(raw)) > h.maxUploadBytes {
		RespondDetail(c, http.StatusRequestEntityTooLarge, "File too large (max 10MB).")
		return
	}

	ds, err := h.datasetService.Ingest(c.Request.Context(), fileHeader.Filename, raw)
	if err != nil {
		h.respondIngestError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.toResponse(ds))
}

func (h *DatasetHandler) respondIngestError(c *gin.Context, err error) {
	var perr *tabular.ParseError
	if errors.As(err, &perr) {
		RespondDetail(c, http.StatusBadRequest, fmt.Sprintf("Failed to read CSV: %v", perr.Unwrap()))
		return
	}
	var verr *tabular.ValidationError
	if errors.As(err, &verr) {
		RespondDetail(c, http.StatusBadRequest, verr.Error())
		return
	}
	h.log.Error("Upload failed", "error", err)
	RespondDetail(c, http.StatusInternalServerError, "Failed to store dataset.")
}

// GET /datasets/
func (h *DatasetHandler) List(c *gin.Context) {
	datasets, err := h.datasetService.ListRecent(c.Request.Context(), h.listLimit)
	if err != nil {
		h.log.Error("List datasets failed", "error", err)
		RespondDetail(c, http.StatusInternalServerError, "Failed to list datasets.")
		return
	}
	out := make([]DatasetResponse, 0, len(datasets))
	for _, ds := range datasets {
		out = append(out, h.toResponse(ds))
	}
	c.JSON(http.StatusOK, out)
}

// GET /datasets/:id/report/
func (h *DatasetHandler) Report(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDetail(c, http.StatusNotFound, "Dataset not found.")
		return
	}

	ds, pdf, err := h.reportService.Generate(c.Request.Context(), id)
	if err != nil {
		var nf *repos.NotFoundError
		if errors.As(err, &nf) {
			RespondDetail(c, http.StatusNotFound, "Dataset not found.")
			return
		}
		var sre *services.StorageReadError
		if errors.As(err, &sre) {
			h.log.Error("Report blob read failed", "dataset_id", id, "error", err)
			RespondDetail(c, http.StatusInternalServerError, "Failed to read dataset CSV.")
			return
		}
		h.log.Error("Report generation failed", "dataset_id", id, "error", err)
		RespondDetail(c, http.StatusInternalServerError, "Failed to generate report.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"report_%s.pdf\"", ds.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
